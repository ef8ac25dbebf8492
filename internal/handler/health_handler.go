package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// readinessTimeout はストア疎通確認のタイムアウト。
const readinessTimeout = 3 * time.Second

type statusResponse struct {
	Status string `json:"status"`
}

// Health は静的なステータスを返す死活監視エンドポイント。
// GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// Readiness はストアへの疎通を確認するエンドポイントを返す。pingがnilの場合は常に成功とする。
// GET /health/ready
func Readiness(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
			defer cancel()
			if err := ping(ctx); err != nil {
				slog.Warn("store ping failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, statusResponse{Status: "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
	}
}
