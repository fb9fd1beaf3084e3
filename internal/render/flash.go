package render

import (
	"encoding/base64"
	"net/http"
	"strings"
)

const flashCookie = "flash"

const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// Flash - сообщение, переживающее один редирект
type Flash struct {
	Kind    string
	Message string
}

func SetFlash(w http.ResponseWriter, kind, message string) {
	value := base64.RawURLEncoding.EncodeToString([]byte(kind + "\n" + message))
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// PopFlash читает сообщение и сразу удаляет cookie
func PopFlash(w http.ResponseWriter, r *http.Request) *Flash {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	kind, message, ok := strings.Cut(string(raw), "\n")
	if !ok || message == "" {
		return nil
	}
	return &Flash{Kind: kind, Message: message}
}
