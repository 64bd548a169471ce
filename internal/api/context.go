package api

import (
	"context"
	"net/http"

	"github.com/FACorreiaa/learnhub-api/internal/types"
)

type contextKey string

const (
	userKey        contextKey = "user"
	stackTracesKey contextKey = "stackTraces"
)

// WithUser stores the authenticated user on the context.
func WithUser(ctx context.Context, user *types.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the user stored by the auth middleware.
func UserFromContext(ctx context.Context) (*types.User, bool) {
	user, ok := ctx.Value(userKey).(*types.User)
	return user, ok && user != nil
}

// ShowStackTraces sets whether HandleError attaches stack traces to the
// responses of the wrapped handler.
func ShowStackTraces(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), stackTracesKey, enabled)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func stackTracesEnabled(ctx context.Context) bool {
	enabled, _ := ctx.Value(stackTracesKey).(bool)
	return enabled
}
