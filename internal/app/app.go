package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/remindo/internal/config"
	"github.com/hitoshi/remindo/internal/database"
	"github.com/hitoshi/remindo/internal/handler"
	"github.com/hitoshi/remindo/internal/item"
	"github.com/hitoshi/remindo/internal/logger"
	"github.com/hitoshi/remindo/internal/metrics"
	"github.com/hitoshi/remindo/internal/middleware"
	"github.com/hitoshi/remindo/internal/reminder"
	"github.com/hitoshi/remindo/internal/repository"
	"github.com/hitoshi/remindo/internal/security"
	"github.com/hitoshi/remindo/internal/tag"
	"github.com/hitoshi/remindo/internal/user"
	"github.com/hitoshi/remindo/internal/web"
	"github.com/hitoshi/remindo/internal/worker/cleanup"
)

const (
	storeConnectTimeout = 5 * time.Second
	shutdownTimeout     = 30 * time.Second
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、LOG_LEVELに従ってJSON構造化ログをセットアップする。
// wが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		// 設定エラーもJSONログで出力できるようにする
		logger.SetupDefault(w, "info")
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetupDefault(w, cfg.LogLevel)
	return cfg, nil
}

// OpenRepositories は設定されたバックエンドのリポジトリ一式を開き、疎通を確認する。
func OpenRepositories(ctx context.Context, cfg *config.Config) (*repository.Repositories, error) {
	var repos *repository.Repositories

	switch cfg.StoreBackend {
	case config.BackendMemory:
		return repository.NewMemoryRepositories(), nil
	case config.BackendPostgres:
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		repos = repository.NewPostgresRepositories(db)
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		repos = repository.NewRedisRepositories(client)
	default:
		return nil, fmt.Errorf("unsupported store backend: %q", cfg.StoreBackend)
	}

	pingCtx, cancel := context.WithTimeout(ctx, storeConnectTimeout)
	defer cancel()
	if err := repos.Ping(pingCtx); err != nil {
		repos.Close()
		return nil, fmt.Errorf("failed to connect to %s store: %w", cfg.StoreBackend, err)
	}

	slog.Info("store connection established", slog.String("backend", string(cfg.StoreBackend)))
	return repos, nil
}

// Server はHTTPハンドラーと付随するバックグラウンド資源をまとめたもの。
type Server struct {
	Handler     http.Handler
	Cleanup     *cleanup.CleanupJob
	rateLimiter *middleware.RateLimiter
}

// Close はレートリミッターのクリーンアップgoroutineを停止する。
func (s *Server) Close() {
	s.rateLimiter.Stop()
}

// BuildServer はリポジトリからサービス・ハンドラー・ミドルウェアを組み立てる。
// regにはメトリクスを登録するレジストリを渡す。
func BuildServer(cfg *config.Config, repos *repository.Repositories, reg *prometheus.Registry) *Server {
	collector := metrics.NewCollector(reg)

	itemService := item.NewItemService(repos.Items, collector)
	reminderService := reminder.NewReminderService(repos.Reminders, repos.Items, collector)
	tagService := tag.NewTagService(repos.Tags)
	userService := user.NewService(repos.Users, collector)

	renderer := security.NewMarkdownRenderer(security.NewContentSanitizer())
	webHandler := web.NewHandler(itemService, reminderService, renderer)

	rateLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig(cfg.RateLimitGeneral))

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Metrics:           collector,
		MetricsHandler:    metrics.Handler(reg),
		HealthChecker:     repos.Ping,

		ItemService:     itemService,
		TagService:      tagService,
		ReminderService: reminderService,
		UserService:     userService,

		Web: webHandler,
	})

	job := cleanup.NewCleanupJob(repos.Reminders, repos.Tags, collector, slog.Default())
	job.Retention = cfg.ReminderRetention

	return &Server{Handler: router, Cleanup: job, rateLimiter: rateLimiter}
}

// newRegistry はプロセス・Goランタイムのメトリクスを含むレジストリを生成する。
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// runServe はAPIサーバーモードで起動する。
// メモリバックエンドの場合は別プロセスのワーカーからストアを参照できないため、
// クリーンアップジョブを同一プロセス内で実行する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	repos, err := OpenRepositories(ctx, cfg)
	if err != nil {
		return err
	}
	defer repos.Close()

	srv := BuildServer(cfg, repos, newRegistry())
	defer srv.Close()

	if cfg.StoreBackend == config.BackendMemory {
		go srv.Cleanup.Start(ctx, cfg.CleanupInterval)
	}

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      srv.Handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return serveUntilDone(ctx, server, "API server")
}

// runWorker はワーカーモードで起動する。
// クリーンアップジョブを定期実行し、/metricsをスクレイプ用に公開する。
func runWorker(ctx context.Context, cfg *config.Config) error {
	if cfg.StoreBackend == config.BackendMemory {
		return errors.New("worker requires a shared store: set STORE_BACKEND to postgres or redis")
	}

	repos, err := OpenRepositories(ctx, cfg)
	if err != nil {
		return err
	}
	defer repos.Close()

	reg := newRegistry()
	collector := metrics.NewCollector(reg)

	job := cleanup.NewCleanupJob(repos.Reminders, repos.Tags, collector, slog.Default())
	job.Retention = cfg.ReminderRetention

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           metrics.SetupMetricsRoute(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go job.Start(ctx, cfg.CleanupInterval)

	return serveUntilDone(ctx, server, "worker metrics server")
}

// serveUntilDone はHTTPサーバーを起動し、ctxのキャンセルまたは起動失敗まで待機する。
func serveUntilDone(ctx context.Context, server *http.Server, name string) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info(name+" starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("%s listen error: %w", name, err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down " + name + "...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s shutdown failed: %w", name, err)
	}

	slog.Info(name + " stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// downが正の場合はそのステップ数だけ巻き戻す。
func runMigrate(cfg *config.Config, down int) error {
	if cfg.StoreBackend != config.BackendPostgres {
		return fmt.Errorf("migrate requires STORE_BACKEND=postgres (got %q)", cfg.StoreBackend)
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		slog.Int("down", down),
	)

	if down > 0 {
		if err := database.RollbackMigrations(cfg.DatabaseURL, down); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	} else if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := database.Version(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	slog.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
func runHealthcheck(target string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(target)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return "***"
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
