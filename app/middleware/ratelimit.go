package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/FACorreiaa/learnhub-api/internal/api"
)

// RateLimitByIP caps each client IP at requests per window. Rejected
// requests get the standard 429 error envelope.
func RateLimitByIP(requests int, window time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	return httprate.Limit(
		requests,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			logger.WarnContext(r.Context(), "Rate limit exceeded",
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("path", r.URL.Path))
			api.ErrorResponse(w, r, http.StatusTooManyRequests, "Too many requests, please try again later")
		}),
	)
}
