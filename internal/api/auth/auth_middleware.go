package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/FACorreiaa/learnhub-api/internal/api"
	"github.com/FACorreiaa/learnhub-api/internal/types"
)

const (
	msgTokenExpired       = "TokenExpired"
	msgPleaseAuthenticate = "Please authenticate"
	msgForbidden          = "Forbidden"
)

// UserLoader resolves the subject of an access token.
type UserLoader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*types.User, error)
}

// Authenticator guards routes with bearer access tokens. Loaded users are
// cached by id; services that change a user evict the entry.
type Authenticator struct {
	tokens *TokenIssuer
	users  UserLoader
	cache  *cache.Cache
	logger *slog.Logger
}

func NewAuthenticator(tokens *TokenIssuer, users UserLoader, userCache *cache.Cache, logger *slog.Logger) *Authenticator {
	return &Authenticator{
		tokens: tokens,
		users:  users,
		cache:  userCache,
		logger: logger,
	}
}

// Require authenticates the request and, when roles are given, checks the
// user holds one of them.
func (a *Authenticator) Require(roles ...types.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			l := a.logger.With(slog.String("middleware", "Authenticate"))

			raw, ok := bearerToken(r)
			if !ok {
				l.DebugContext(ctx, "Missing or malformed Authorization header")
				api.ErrorResponse(w, r, http.StatusUnauthorized, msgPleaseAuthenticate)
				return
			}

			claims, err := a.tokens.ParseToken(raw)
			if err != nil {
				l.WarnContext(ctx, "Token validation failed", slog.Any("error", err))
				if errors.Is(err, jwt.ErrTokenExpired) {
					api.ErrorResponse(w, r, http.StatusUnauthorized, msgTokenExpired)
					return
				}
				api.ErrorResponse(w, r, http.StatusUnauthorized, msgPleaseAuthenticate)
				return
			}
			if claims.Type != types.TokenAccess {
				l.WarnContext(ctx, "Non-access token presented", slog.String("type", string(claims.Type)))
				api.ErrorResponse(w, r, http.StatusUnauthorized, msgPleaseAuthenticate)
				return
			}

			user, err := a.loadUser(ctx, UserID(claims))
			if err != nil {
				if !errors.Is(err, api.ErrNotFound) {
					l.ErrorContext(ctx, "Failed to load user", slog.Any("error", err))
				}
				api.ErrorResponse(w, r, http.StatusUnauthorized, msgPleaseAuthenticate)
				return
			}
			if user.IsDeleted {
				api.ErrorResponse(w, r, http.StatusUnauthorized, msgPleaseAuthenticate)
				return
			}
			if user.IsBlocked {
				api.ErrorResponse(w, r, http.StatusForbidden, msgUserBlocked)
				return
			}
			if !user.HasRole(roles...) {
				l.WarnContext(ctx, "Role check failed",
					slog.String("userID", user.ID.String()),
					slog.String("role", string(user.Role)))
				api.ErrorResponse(w, r, http.StatusForbidden, msgForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(api.WithUser(ctx, user)))
		})
	}
}

func (a *Authenticator) loadUser(ctx context.Context, id uuid.UUID) (*types.User, error) {
	key := id.String()
	if a.cache != nil {
		if cached, ok := a.cache.Get(key); ok {
			return cached.(*types.User), nil
		}
	}
	user, err := a.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.cache != nil {
		a.cache.SetDefault(key, user)
	}
	return user, nil
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}
