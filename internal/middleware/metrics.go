package middleware

import (
	"net/http"
	"time"

	"github.com/hitoshi/remindo/internal/metrics"
)

// unmatchedRoute はchiのルートに一致しなかったリクエストのラベル値。
// パスをそのままラベルにするとカーディナリティが爆発するため集約する。
const unmatchedRoute = "unmatched"

// NewMetricsMiddleware はリクエスト数と処理時間をルートパターン単位で記録するミドルウェアを返す。
func NewMetricsMiddleware(mc metrics.MetricsCollector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)

			next.ServeHTTP(rec, r)

			route := routePattern(r)
			if route == "" {
				route = unmatchedRoute
			}
			mc.RecordRequest(r.Method, route, rec.statusCode, time.Since(start))
		})
	}
}
