package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/remindo/internal/model"
	"github.com/hitoshi/remindo/internal/reminder"
)

// ReminderServiceInterface はリマインダーハンドラーが必要とするサービスインターフェース。
type ReminderServiceInterface interface {
	Create(ctx context.Context, p model.ReminderPatch) (*model.Reminder, error)
	Get(ctx context.Context, id string) (*model.Reminder, error)
	List(ctx context.Context, f model.ReminderFilter) ([]*model.Reminder, error)
	Update(ctx context.Context, id string, p model.ReminderPatch) (*model.Reminder, error)
	Delete(ctx context.Context, id string) error
}

// ReminderHandler はリマインダー管理のHTTPハンドラー。
type ReminderHandler struct {
	service ReminderServiceInterface
}

// NewReminderHandler はReminderHandlerを生成する。
func NewReminderHandler(service ReminderServiceInterface) *ReminderHandler {
	return &ReminderHandler{service: service}
}

// reminderResponse はリマインダーのJSON表現。
type reminderResponse struct {
	ID             string    `json:"id"`
	ItemID         string    `json:"itemId"`
	TelegramChatID string    `json:"telegramChatId"`
	ScheduledTime  time.Time `json:"scheduledTime"`
	Sent           bool      `json:"sent"`
	CreatedAt      time.Time `json:"createdAt"`
}

func toReminderResponse(rem *model.Reminder) reminderResponse {
	return reminderResponse{
		ID:             rem.ID,
		ItemID:         rem.ItemID,
		TelegramChatID: rem.TelegramChatID,
		ScheduledTime:  rem.ScheduledTime,
		Sent:           rem.Sent,
		CreatedAt:      rem.CreatedAt,
	}
}

// ListReminders はリマインダー一覧を返す。
// GET /api/reminders?itemId=xxx&sent=false&dueBefore=2030-01-01T00:00:00Z
func (h *ReminderHandler) ListReminders(w http.ResponseWriter, r *http.Request) {
	reminders, err := h.service.List(r.Context(), reminder.FilterFromQuery(r.URL.Query()))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	out := make([]reminderResponse, len(reminders))
	for i, rem := range reminders {
		out[i] = toReminderResponse(rem)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetReminder はリマインダーを1件返す。
// GET /api/reminders/:id
func (h *ReminderHandler) GetReminder(w http.ResponseWriter, r *http.Request) {
	rem, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReminderResponse(rem))
}

// CreateReminder はリマインダーを作成する。
// POST /api/reminders
func (h *ReminderHandler) CreateReminder(w http.ResponseWriter, r *http.Request) {
	obj, err := decodeObject(w, r)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	patch, err := reminderPatchFromJSON(obj)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	rem, err := h.service.Create(r.Context(), patch)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReminderResponse(rem))
}

// UpdateReminder はボディに含まれるフィールドのみを更新する。
// PUT /api/reminders/:id
func (h *ReminderHandler) UpdateReminder(w http.ResponseWriter, r *http.Request) {
	obj, err := decodeObject(w, r)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	patch, err := reminderPatchFromJSON(obj)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	rem, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReminderResponse(rem))
}

// DeleteReminder はリマインダーを削除する。
// DELETE /api/reminders/:id
func (h *ReminderHandler) DeleteReminder(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Reminder deleted"})
}
