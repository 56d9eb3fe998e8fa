package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/dom/blog/internal/api/response"
	"github.com/dom/blog/internal/domain"
	"github.com/dom/blog/internal/logging"
	"github.com/dom/blog/internal/service"
)

const SessionCookieName = "session"

type contextKey string

const (
	UserKey  contextKey = "user"
	TokenKey contextKey = "sessionToken"
)

// OptionalAuth attaches the admin to the request context when the session
// cookie is valid. Anonymous requests pass through untouched.
func OptionalAuth(authService *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := SessionToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := authService.CurrentUser(r.Context(), token)
			if err != nil {
				if !errors.Is(err, service.ErrNoSession) {
					logging.Error("session lookup failed", logging.Err(err))
				}
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user, token)))
		})
	}
}

// RequireAdmin rejects requests without a live admin session.
func RequireAdmin(authService *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := SessionToken(r)
			if token == "" {
				response.Error(w, r, response.ErrUnauthorized)
				return
			}

			user, err := authService.CurrentUser(r.Context(), token)
			if errors.Is(err, service.ErrNoSession) {
				response.Error(w, r, response.ErrUnauthorized)
				return
			}
			if err != nil {
				logging.Error("session lookup failed", logging.Err(err))
				response.Error(w, r, response.ErrInternal)
				return
			}
			if user.Role != domain.RoleAdmin {
				response.Error(w, r, response.NewError(http.StatusForbidden, "Admin access required"))
				return
			}

			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user, token)))
		})
	}
}

// SessionToken reads the raw session token from the request cookie.
func SessionToken(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func withUser(ctx context.Context, user *domain.AuthUser, token string) context.Context {
	ctx = context.WithValue(ctx, UserKey, user)
	return context.WithValue(ctx, TokenKey, token)
}

func GetUser(ctx context.Context) (*domain.AuthUser, bool) {
	user, ok := ctx.Value(UserKey).(*domain.AuthUser)
	return user, ok
}

// GetSessionToken returns the token the auth middleware accepted.
func GetSessionToken(ctx context.Context) string {
	token, _ := ctx.Value(TokenKey).(string)
	return token
}

func IsAdmin(ctx context.Context) bool {
	user, ok := GetUser(ctx)
	return ok && user.Role == domain.RoleAdmin
}
