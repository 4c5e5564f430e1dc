package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dom/faceoff/internal/domain"
	"github.com/dom/faceoff/internal/service"
	"go.uber.org/zap"
)

type contextKey string

const (
	SessionUserKey contextKey = "sessionUser"

	SessionCookieName = "faceoff_session"
)

// Auth resolves the session cookie and rejects the request when it does not
// name a live session. A session lookup that fails outright is a 500.
func Auth(authService *service.AuthService, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				unauthorized(w)
				return
			}

			sessionUser, err := authService.Authenticate(r.Context(), cookie.Value)
			if err != nil {
				if domain.KindOf(err) == domain.KindUnexpected {
					logger.Error("session lookup failed", zap.Error(err))
					writeMessage(w, http.StatusInternalServerError, domain.ErrUnexpected.Message)
					return
				}
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), SessionUserKey, sessionUser)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetSessionUser(ctx context.Context) (*service.SessionUser, bool) {
	sessionUser, ok := ctx.Value(SessionUserKey).(*service.SessionUser)
	return sessionUser, ok && sessionUser != nil
}

// WithSessionUser returns a context carrying sessionUser.
func WithSessionUser(ctx context.Context, sessionUser *service.SessionUser) context.Context {
	return context.WithValue(ctx, SessionUserKey, sessionUser)
}

func unauthorized(w http.ResponseWriter) {
	writeMessage(w, http.StatusUnauthorized, "Not authenticated")
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}
