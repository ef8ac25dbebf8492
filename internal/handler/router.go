package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/remindo/internal/metrics"
	"github.com/hitoshi/remindo/internal/middleware"
)

// WebRoutes はHTMLビューとフォーム送信ルートを登録するコンポーネント。
type WebRoutes interface {
	Routes(r chi.Router)
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Metrics           metrics.MetricsCollector
	MetricsHandler    http.Handler

	// ストア疎通確認（/health/ready）
	HealthChecker func(ctx context.Context) error

	ItemService     ItemServiceInterface
	TagService      TagServiceInterface
	ReminderService ReminderServiceInterface
	UserService     UserServiceInterface

	// HTMLビュー（任意）
	Web WebRoutes
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → Metrics
//
// /api 配下にはさらにクライアントIP単位のレート制限を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mc := deps.Metrics
	if mc == nil {
		mc = metrics.NopCollector{}
	}

	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewMetricsMiddleware(mc))

	r.Get("/health", Health)
	r.Get("/health/ready", Readiness(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	itemHandler := NewItemHandler(deps.ItemService)
	tagHandler := NewTagHandler(deps.TagService, deps.ItemService)
	reminderHandler := NewReminderHandler(deps.ReminderService)
	userHandler := NewUserHandler(deps.UserService)

	r.Route("/api", func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware())
		}

		// アイテム管理（/api/tasks は互換用の別名）
		r.Route("/items", itemHandler.Routes)
		r.Route("/tasks", itemHandler.Routes)

		// タグ参照
		r.Route("/tags", func(r chi.Router) {
			r.Get("/", tagHandler.ListTags)
			r.Get("/{name}", tagHandler.GetTag)
			r.Get("/{name}/items", tagHandler.ListTagItems)
		})

		// リマインダー管理
		r.Route("/reminders", func(r chi.Router) {
			r.Get("/", reminderHandler.ListReminders)
			r.Post("/", reminderHandler.CreateReminder)
			r.Get("/{id}", reminderHandler.GetReminder)
			r.Put("/{id}", reminderHandler.UpdateReminder)
			r.Delete("/{id}", reminderHandler.DeleteReminder)
		})

		// ユーザー管理
		r.Route("/users", func(r chi.Router) {
			r.Get("/", userHandler.ListUsers)
			r.Post("/", userHandler.CreateUser)
			r.Get("/{id}", userHandler.GetUser)
			r.Put("/{id}", userHandler.UpdateUser)
			r.Delete("/{id}", userHandler.DeleteUser)
		})
	})

	if deps.Web != nil {
		deps.Web.Routes(r)
	}

	return r
}
