package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"shiftTracker/internal/middleware"
	"shiftTracker/internal/models/user"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRequestID(t *testing.T) {
	var seen string
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.GetRequestID(r.Context())
	}))

	// входящий заголовок сохраняется
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, "abc", seen)
	assert.Equal(t, "abc", w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(seen)
	assert.NoError(t, err)
}

func TestLogging_PassesStatus(t *testing.T) {
	handler := middleware.Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "short and stout", w.Body.String())
}

func TestRateLimit(t *testing.T) {
	handler := middleware.RateLimit(2, http.MethodPost)(okHandler)

	send := func(method string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/users/login", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, send(http.MethodPost).Code)
	w := send(http.MethodPost)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = send(http.MethodPost)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")

	// GET не ограничивается
	assert.Equal(t, http.StatusOK, send(http.MethodGet).Code)
}

type stubAuth struct {
	users map[string]*user.User
}

func (s stubAuth) Authenticate(ctx context.Context, token string) (*user.User, error) {
	if u, ok := s.users[token]; ok {
		return u, nil
	}
	return nil, errors.New("bad token")
}

func TestAuthenticate(t *testing.T) {
	manager := &user.User{ID: uuid.New(), Role: user.RoleManager}
	authn := stubAuth{users: map[string]*user.User{"good": manager}}

	var got *user.User
	handler := middleware.Authenticate(authn, "session")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = middleware.UserFromContext(r.Context())
	}))

	t.Run("valid cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "session", Value: "good"})
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, got)
		assert.Equal(t, manager.ID, got.ID)
	})

	t.Run("browser redirected to login", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/task/1?x=1", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/users/login?next=%2Ftask%2F1%3Fx%3D1", w.Header().Get("Location"))
	})

	t.Run("htmx gets HX-Redirect", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("HX-Request", "true")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, middleware.LoginPath, w.Header().Get("HX-Redirect"))
	})

	t.Run("api gets 401 json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/templates", nil)
		req.AddCookie(&http.Cookie{Name: "session", Value: "forged"})
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
	})
}

func TestRequireCapability(t *testing.T) {
	gate := middleware.RequireCapability((*user.User).CanManageTemplates)(okHandler)

	serve := func(path string, u *user.User) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		if u != nil {
			req = req.WithContext(middleware.WithUser(req.Context(), u))
		}
		w := httptest.NewRecorder()
		gate.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, serve("/api/templates", &user.User{Role: user.RoleAdmin}).Code)

	w := serve("/api/templates", &user.User{Role: user.RoleManager})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "FORBIDDEN")

	assert.Equal(t, http.StatusForbidden, serve("/management/item/create", &user.User{Role: user.RoleEmployee}).Code)
	assert.Equal(t, http.StatusFound, serve("/management", nil).Code)
}
