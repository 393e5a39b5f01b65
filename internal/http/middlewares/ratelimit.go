package middlewares

import (
	"net/http"
	"strconv"

	httpx "github.com/dropDatabas3/proxyjohn/internal/http"
	"github.com/dropDatabas3/proxyjohn/internal/observability/logger"
	"github.com/dropDatabas3/proxyjohn/internal/rate"
)

// WithRateLimit limita por IP+path usando el limiter dado. Si el limiter
// falla (redis caído), el request pasa: preferimos degradar a abrir.
func WithRateLimit(l rate.Limiter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r) + "|" + r.URL.Path
			res, err := l.Allow(r.Context(), key)
			if err != nil {
				logger.Named("rate").Warn("limiter no disponible", logger.Err(err))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			if !res.Allowed {
				retry := int(res.RetryAfter.Seconds())
				if retry < 1 {
					retry = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				httpx.WriteError(w, http.StatusTooManyRequests, "rate_limited", "demasiados intentos, probá más tarde", httpx.CodeRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
