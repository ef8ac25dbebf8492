package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/remindo/internal/item"
	"github.com/hitoshi/remindo/internal/middleware"
	"github.com/hitoshi/remindo/internal/reminder"
	"github.com/hitoshi/remindo/internal/repository"
	"github.com/hitoshi/remindo/internal/tag"
	"github.com/hitoshi/remindo/internal/user"
)

// newTestRouter はメモリストアを使った実サービスでルーターを構築する。
func newTestRouter(t *testing.T) (http.Handler, *repository.Repositories) {
	t.Helper()
	repos := repository.NewMemoryRepositories()
	deps := &RouterDeps{
		CORSAllowedOrigin: "*",
		HealthChecker:     repos.Ping,
		ItemService:       item.NewItemService(repos.Items, nil),
		TagService:        tag.NewTagService(repos.Tags),
		ReminderService:   reminder.NewReminderService(repos.Reminders, repos.Items, nil),
		UserService:       user.NewService(repos.Users, nil),
	}
	return NewRouter(deps), repos
}

// doJSON はJSONボディ付きリクエストを送り、レスポンスを返す。
func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// decodeBody はレスポンスボディをデコードする。
func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode response: %v\nbody: %s", err, w.Body.String())
	}
	return v
}

func assertStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d\nbody: %s", w.Code, want, w.Body.String())
	}
}

func assertErrorCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	assertStatus(t, w, status)
	body := decodeBody[middleware.ErrorResponseBody](t, w)
	if body.Code != code {
		t.Errorf("code = %q, want %q", body.Code, code)
	}
	if body.Error == "" {
		t.Error("error message should not be empty")
	}
}

func TestNewRouter_Health(t *testing.T) {
	h, _ := newTestRouter(t)

	w := doJSON(t, h, http.MethodGet, "/health", "")
	assertStatus(t, w, http.StatusOK)
	if got := decodeBody[statusResponse](t, w); got.Status != "ok" {
		t.Errorf("status = %q, want ok", got.Status)
	}

	w = doJSON(t, h, http.MethodGet, "/health/ready", "")
	assertStatus(t, w, http.StatusOK)
}

func TestNewRouter_UnknownRoute_Returns404(t *testing.T) {
	h, _ := newTestRouter(t)

	w := doJSON(t, h, http.MethodGet, "/api/unknown", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestNewRouter_SecurityHeaders(t *testing.T) {
	h, _ := newTestRouter(t)

	w := doJSON(t, h, http.MethodGet, "/api/items", "")
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
}

func TestNewRouter_RateLimitedAPI(t *testing.T) {
	repos := repository.NewMemoryRepositories()
	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{Rate: 0.1, Burst: 1, CleanupInterval: time.Minute})
	defer rl.Stop()

	h := NewRouter(&RouterDeps{
		RateLimiter:     rl,
		ItemService:     item.NewItemService(repos.Items, nil),
		TagService:      tag.NewTagService(repos.Tags),
		ReminderService: reminder.NewReminderService(repos.Reminders, repos.Items, nil),
		UserService:     user.NewService(repos.Users, nil),
	})

	assertStatus(t, doJSON(t, h, http.MethodGet, "/api/items", ""), http.StatusOK)
	assertStatus(t, doJSON(t, h, http.MethodGet, "/api/items", ""), http.StatusTooManyRequests)
	// /health はレート制限の対象外
	assertStatus(t, doJSON(t, h, http.MethodGet, "/health", ""), http.StatusOK)
}
