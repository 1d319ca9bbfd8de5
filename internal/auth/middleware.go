package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/music-server/internal/apperror"
)

// CookieName holds the session JWT.
const CookieName = "token"

// contextKey is package-private so no other package can read or shadow our values.
type contextKey string

const userIDKey contextKey = "userID"

// RequireAuth rejects the request with 401 unless it carries a valid session
// token, then stores the user ID in the context for UserIDFromContext.
//
// The token is read from the "token" cookie first, then from an
// "Authorization: Bearer <jwt>" header for non-browser clients.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := extractUserID(r, tokens)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized - you must be logged in")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// AdminChecker decides whether a user may use the admin routes.
// It returns an apperror.ErrNotFound (or ErrUnauthorized) chain when the
// user ID names nobody.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// RequireAdmin must run after RequireAuth.
//
//	no user on context / unknown user → 401
//	known user, not an admin          → 403
//	lookup failed                     → 500
func RequireAdmin(checker AdminChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized - you must be logged in")
				return
			}

			isAdmin, err := checker.IsAdmin(r.Context(), userID)
			switch {
			case errors.Is(err, apperror.ErrNotFound), errors.Is(err, apperror.ErrUnauthorized):
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized - you must be logged in")
				return
			case err != nil:
				logger.Error("admin check failed", slog.String("userID", userID), slog.String("error", err.Error()))
				writeAuthError(w, http.StatusInternalServerError, "internal_error", "An internal error occurred")
				return
			case !isAdmin:
				writeAuthError(w, http.StatusForbidden, "forbidden", "Unauthorized - you must be an admin")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// UserIDFromContext returns the authenticated user's ID, or ("", false) if
// the request did not pass through RequireAuth.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// WithUserID stores userID on ctx the same way RequireAuth does.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func extractUserID(r *http.Request, tokens *TokenService) (string, error) {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return tokens.Validate(cookie.Value)
	}

	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, found := strings.Cut(h, " ")
		if found && strings.EqualFold(scheme, "Bearer") && token != "" {
			return tokens.Validate(strings.TrimSpace(token))
		}
	}

	return "", http.ErrNoCookie
}

// writeAuthError mirrors handler.ErrorResponse. The handler package imports
// this one, so it cannot be reused directly.
func writeAuthError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": kind, "message": message})
}
