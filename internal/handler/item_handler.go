package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/remindo/internal/item"
	"github.com/hitoshi/remindo/internal/model"
)

// ItemServiceInterface はアイテムハンドラーが必要とするサービスインターフェース。
type ItemServiceInterface interface {
	Create(ctx context.Context, p model.ItemPatch) (*model.Item, error)
	Get(ctx context.Context, id string) (*model.Item, error)
	List(ctx context.Context, f model.ItemFilter) ([]*model.Item, error)
	ListByTag(ctx context.Context, tag string) ([]*model.Item, error)
	Update(ctx context.Context, id string, p model.ItemPatch) (*model.Item, error)
	ToggleComplete(ctx context.Context, id string) (*model.Item, error)
	Delete(ctx context.Context, id string) error
}

// ItemHandler はアイテム管理のHTTPハンドラー。
type ItemHandler struct {
	service ItemServiceInterface
}

// NewItemHandler はItemHandlerを生成する。
func NewItemHandler(service ItemServiceInterface) *ItemHandler {
	return &ItemHandler{service: service}
}

// itemResponse はアイテムのJSON表現。
type itemResponse struct {
	ID             string     `json:"id"`
	Type           string     `json:"type"`
	Title          string     `json:"title"`
	Details        string     `json:"details"`
	Tags           []string   `json:"tags"`
	TelegramChatID *string    `json:"telegramChatId"`
	Datetime       *time.Time `json:"datetime"`
	Deadline       *time.Time `json:"deadline"`
	Completed      bool       `json:"completed"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func toItemResponse(it *model.Item) itemResponse {
	tags := it.Tags
	if tags == nil {
		tags = []string{}
	}
	return itemResponse{
		ID:             it.ID,
		Type:           string(it.Type),
		Title:          it.Title,
		Details:        it.Details,
		Tags:           tags,
		TelegramChatID: it.TelegramChatID,
		Datetime:       it.ScheduledAt,
		Deadline:       it.Deadline,
		Completed:      it.Completed,
		CreatedAt:      it.CreatedAt,
		UpdatedAt:      it.UpdatedAt,
	}
}

func toItemResponses(items []*model.Item) []itemResponse {
	out := make([]itemResponse, len(items))
	for i, it := range items {
		out[i] = toItemResponse(it)
	}
	return out
}

// ListItems はアイテム一覧を返す。
// GET /api/items?type=task&tag=work&search=milk&completed=false
func (h *ItemHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context(), item.FilterFromQuery(r.URL.Query()))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponses(items))
}

// GetItem はアイテムを1件返す。
// GET /api/items/:id
func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	it, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(it))
}

// CreateItem はアイテムを作成する。
// POST /api/items
func (h *ItemHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	obj, err := decodeObject(w, r)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	patch, err := itemPatchFromJSON(obj)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	it, err := h.service.Create(r.Context(), patch)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toItemResponse(it))
}

// UpdateItem はボディに含まれるフィールドのみを更新する。
// PUT /api/items/:id
func (h *ItemHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	obj, err := decodeObject(w, r)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	patch, err := itemPatchFromJSON(obj)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	it, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(it))
}

// DeleteItem はアイテムを削除する。
// DELETE /api/items/:id
func (h *ItemHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Item deleted"})
}

// ToggleComplete は完了状態を反転する。
// POST /api/items/:id/toggle-complete
func (h *ItemHandler) ToggleComplete(w http.ResponseWriter, r *http.Request) {
	it, err := h.service.ToggleComplete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(it))
}

// Routes はアイテムリソースのルーティングを登録する。/api/items と /api/tasks の両方にマウントする。
func (h *ItemHandler) Routes(r chi.Router) {
	r.Get("/", h.ListItems)
	r.Post("/", h.CreateItem)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.GetItem)
		r.Put("/", h.UpdateItem)
		r.Delete("/", h.DeleteItem)
		r.Post("/toggle-complete", h.ToggleComplete)
		r.Post("/if-complete", h.ToggleComplete)
	})
}
