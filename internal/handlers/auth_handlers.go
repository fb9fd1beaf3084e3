package handlers

import (
	"net/http"
	"shiftTracker/internal/logger"
	"shiftTracker/internal/render"
	"shiftTracker/internal/service"
	"strings"

	"go.uber.org/zap"
)

type CookieConfig struct {
	Name   string
	Secure bool
}

type AuthHandler struct {
	pages
	auth   AuthService
	cookie CookieConfig
}

func NewAuthHandler(auth AuthService, cookie CookieConfig, view *render.Renderer) *AuthHandler {
	return &AuthHandler{
		pages:  pages{view: view},
		auth:   auth,
		cookie: cookie,
	}
}

type LoginForm struct {
	Username string
	Next     string
	Error    string
}

// safeNext допускает только локальные пути, чтобы next не уводил на чужой сайт
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, http.StatusOK, "login", "Вход", LoginForm{Next: safeNext(r.URL.Query().Get("next"))})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !parseForm(r) {
		h.badRequest(w, r, "Некорректные данные формы")
		return
	}

	form := LoginForm{
		Username: r.PostFormValue("username"),
		Next:     safeNext(r.PostFormValue("next")),
	}

	session, err := h.auth.Login(r.Context(), form.Username, r.PostFormValue("password"))
	if err != nil {
		if busErr, ok := service.AsBusiness(err); ok {
			form.Error = busErr.Message
			h.page(w, r, http.StatusOK, "login", "Вход", form)
			return
		}
		h.fail(w, r, err, "/users/login")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	logger.Info("HTTP: Вход выполнен",
		zap.String("user_id", session.User.ID.String()),
		zap.String("client_ip", r.RemoteAddr))

	http.Redirect(w, r, form.Next, http.StatusSeeOther)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/users/login", http.StatusSeeOther)
}
