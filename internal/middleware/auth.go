package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"shiftTracker/internal/logger"
	"shiftTracker/internal/models/user"
	"strings"

	"go.uber.org/zap"
)

const userKey contextKey = "user"

// LoginPath - куда отправляется неаутентифицированный браузер
const LoginPath = "/users/login"

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*user.User, error)
}

func WithUser(ctx context.Context, u *user.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

func UserFromContext(ctx context.Context) *user.User {
	if u, ok := ctx.Value(userKey).(*user.User); ok {
		return u
	}
	return nil
}

func isAPI(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}

// Authenticate требует действующий токен сессии в cookie.
// JSON API получает 401, браузер перенаправляется на страницу входа с параметром next
func Authenticate(authn Authenticator, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var token string
			if c, err := r.Cookie(cookieName); err == nil {
				token = c.Value
			}

			u, err := authn.Authenticate(r.Context(), token)
			if err != nil {
				if token != "" {
					logger.Warn("HTTP: Недействительная сессия",
						zap.String("request_id", GetRequestID(r.Context())),
						zap.Error(err))
				}
				unauthorized(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	if isAPI(r) {
		writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Требуется вход в систему")
		return
	}
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", LoginPath)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, LoginPath+"?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
}

var errNoUser = errors.New("пользователь не найден в контексте")

// RequireCapability пропускает только пользователей, для которых allowed возвращает true
func RequireCapability(allowed func(*user.User) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := UserFromContext(r.Context())
			if u == nil {
				logger.Error("HTTP: Проверка прав без аутентификации", errNoUser)
				unauthorized(w, r)
				return
			}
			if !allowed(u) {
				logger.Warn("HTTP: Доступ запрещен",
					zap.String("user_id", u.ID.String()),
					zap.String("role", string(u.Role)),
					zap.String("path", r.URL.Path))

				if isAPI(r) {
					writeJSONError(w, http.StatusForbidden, "FORBIDDEN", "Доступ запрещен")
					return
				}
				http.Error(w, "Доступ запрещен", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSONError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"error":   errCode,
		"message": message,
	})
}
