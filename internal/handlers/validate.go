package handlers

import (
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func checkContentType(r *http.Request, target string) bool {
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		return false
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	return mediaType == target
}

func pathID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// formList читает повторяющееся поле формы, принимает имена и с [] и без
func formList(r *http.Request, name string) []string {
	values := r.PostForm[name]
	return append(values, r.PostForm[name+"[]"]...)
}

// parseIDs разбирает список id, пустые и некорректные значения пропускаются
func parseIDs(values []string) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(values))
	for _, v := range values {
		id, err := uuid.Parse(strings.TrimSpace(v))
		if err != nil || id == uuid.Nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func checkbox(r *http.Request, name string) bool {
	switch r.PostFormValue(name) {
	case "on", "true", "1":
		return true
	}
	return false
}
