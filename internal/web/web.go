// Package web はホーム画面（アジェンダ表示）とフォーム送信ルートを提供する。
//
// フォームの入力はAPIと同じItemPatchに変換され、アイテムサービスの
// ビルダーを通して保存される。
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/remindo/internal/middleware"
	"github.com/hitoshi/remindo/internal/model"
	"github.com/hitoshi/remindo/internal/normalize"
)

//go:embed templates/*.html
var templateFS embed.FS

// ItemService はホーム画面が利用するアイテム操作を定義する。
type ItemService interface {
	Agenda(ctx context.Context) ([]*model.Item, error)
	Create(ctx context.Context, p model.ItemPatch) (*model.Item, error)
	ToggleComplete(ctx context.Context, id string) (*model.Item, error)
	Delete(ctx context.Context, id string) error
}

// ReminderService はリマインダー種別フォームからの通知予定登録に使用する。
type ReminderService interface {
	Create(ctx context.Context, p model.ReminderPatch) (*model.Reminder, error)
}

// DetailsRenderer はアイテム詳細をHTMLに変換する。
type DetailsRenderer interface {
	Render(src string) (template.HTML, error)
}

// Handler はHTMLビューのハンドラー。
type Handler struct {
	items     ItemService
	reminders ReminderService
	renderer  DetailsRenderer
	tmpl      *template.Template
}

// NewHandler はHandlerを生成する。remindersがnilの場合は通知予定を登録しない。
func NewHandler(items ItemService, reminders ReminderService, renderer DetailsRenderer) *Handler {
	tmpl := template.Must(template.New("").Funcs(template.FuncMap{
		"fmtTime": formatTime,
	}).ParseFS(templateFS, "templates/*.html"))

	return &Handler{
		items:     items,
		reminders: reminders,
		renderer:  renderer,
		tmpl:      tmpl,
	}
}

// Routes はHTMLビューのルートを登録する。
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.Home)
	r.Post("/tasks/create", h.CreateTask)
	r.Post("/reminders/create", h.CreateReminder)
	r.Post("/tasks/{id}/toggle", h.Toggle)
	r.Post("/tasks/delete/{id}", h.Delete)
}

// agendaEntry はテンプレートに渡す1行分の表示データ。
type agendaEntry struct {
	*model.Item
	Due     *time.Time
	Details template.HTML
}

type homeData struct {
	Entries []agendaEntry
	Pending int
}

// Home はアジェンダ（期日順のアイテム一覧）を表示する。
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	items, err := h.items.Agenda(r.Context())
	if err != nil {
		slog.Error("failed to load agenda", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	data := homeData{Entries: make([]agendaEntry, 0, len(items))}
	for _, it := range items {
		details, err := h.renderer.Render(it.Details)
		if err != nil {
			slog.Warn("failed to render details",
				slog.String("item_id", it.ID),
				slog.String("error", err.Error()),
			)
			details = template.HTML(template.HTMLEscapeString(it.Details))
		}
		if !it.Completed {
			data.Pending++
		}
		data.Entries = append(data.Entries, agendaEntry{Item: it, Due: it.DueAt(), Details: details})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.ExecuteTemplate(w, "home.html", data); err != nil {
		slog.Error("failed to render home", slog.String("error", err.Error()))
	}
}

// CreateTask はタスク作成フォームを処理し、ホームへリダイレクトする。
// タイトル未入力などの検証エラーは作成せずにリダイレクトのみ行う。
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	p, ok := h.parseForm(w, r, model.ItemTypeTask)
	if !ok {
		return
	}
	p.Deadline = formValue(r, "deadline")
	h.createAndRedirect(w, r, p)
}

// CreateReminder はリマインダー種別アイテムの作成フォームを処理する。
// 予定日時とチャットIDの両方が指定された場合は通知予定も登録する。
func (h *Handler) CreateReminder(w http.ResponseWriter, r *http.Request) {
	p, ok := h.parseForm(w, r, model.ItemTypeReminder)
	if !ok {
		return
	}
	p.Datetime = formValue(r, "datetime")
	item := h.createAndRedirect(w, r, p)
	if item == nil || h.reminders == nil || item.ScheduledAt == nil || item.TelegramChatID == nil {
		return
	}

	_, err := h.reminders.Create(r.Context(), model.ReminderPatch{
		ItemID:         model.Some(item.ID),
		TelegramChatID: model.Some(*item.TelegramChatID),
		ScheduledTime:  model.Some(item.ScheduledAt.Format(time.RFC3339Nano)),
	})
	if err != nil {
		slog.Warn("failed to schedule reminder",
			slog.String("item_id", item.ID),
			slog.String("error", err.Error()),
		)
	}
}

// Toggle は完了状態を反転する。存在しないIDの場合は404を返す。
func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.items.ToggleComplete(r.Context(), id); err != nil {
		middleware.WriteError(w, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// Delete はアイテムを削除する。存在しないIDの場合は404を返す。
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.items.Delete(r.Context(), id); err != nil {
		middleware.WriteError(w, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// parseForm はフォーム共通のフィールドをItemPatchに変換する。
func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request, typ model.ItemType) (model.ItemPatch, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := r.ParseForm(); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return model.ItemPatch{}, false
	}

	p := model.ItemPatch{
		Type:           model.Some(typ),
		Title:          model.Some(strings.TrimSpace(r.PostForm.Get("title"))),
		Details:        formValue(r, "details"),
		TelegramChatID: formValue(r, "telegram_chat_id"),
	}
	if raw := r.PostForm.Get("tags"); raw != "" {
		p.Tags = model.Some(normalize.Tags(raw))
	}
	return p, true
}

func (h *Handler) createAndRedirect(w http.ResponseWriter, r *http.Request, p model.ItemPatch) *model.Item {
	item, err := h.items.Create(r.Context(), p)
	if err != nil {
		var apiErr *model.APIError
		if !errors.As(err, &apiErr) {
			slog.Error("failed to create item from form", slog.String("error", err.Error()))
		}
		item = nil
	}
	http.Redirect(w, r, "/", http.StatusFound)
	return item
}



// formValue は空でないフォーム値のみを指定済みとして扱う。
func formValue(r *http.Request, key string) model.Optional[string] {
	v := strings.TrimSpace(r.PostForm.Get(key))
	if v == "" {
		return model.Optional[string]{}
	}
	return model.Some(v)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04")
}
