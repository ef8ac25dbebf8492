package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/remindo/internal/model"
)

// TagServiceInterface はタグハンドラーが必要とするサービスインターフェース。
type TagServiceInterface interface {
	List(ctx context.Context) ([]*model.Tag, error)
	Get(ctx context.Context, name string) (*model.Tag, error)
}

// TagHandler はタグ参照のHTTPハンドラー。
// タグ付きアイテム一覧はアイテムサービスに委譲する。
type TagHandler struct {
	service     TagServiceInterface
	itemService ItemServiceInterface
}

// NewTagHandler はTagHandlerを生成する。
func NewTagHandler(service TagServiceInterface, itemService ItemServiceInterface) *TagHandler {
	return &TagHandler{service: service, itemService: itemService}
}

// tagResponse はタグのJSON表現。
type tagResponse struct {
	Name      string    `json:"name"`
	Color     *string   `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
}

func toTagResponse(t *model.Tag) tagResponse {
	return tagResponse{Name: t.Name, Color: t.Color, CreatedAt: t.CreatedAt}
}

// ListTags は全タグを返す。
// GET /api/tags
func (h *TagHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	out := make([]tagResponse, len(tags))
	for i, t := range tags {
		out[i] = toTagResponse(t)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetTag はタグを1件返す。
// GET /api/tags/:name
func (h *TagHandler) GetTag(w http.ResponseWriter, r *http.Request) {
	tag, err := h.service.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTagResponse(tag))
}

// ListTagItems は指定タグを持つアイテムを返す。タグが未登録でも空配列を返す。
// GET /api/tags/:name/items
func (h *TagHandler) ListTagItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.itemService.ListByTag(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponses(items))
}
