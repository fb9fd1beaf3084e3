package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"shiftTracker/internal/logger"
	"shiftTracker/internal/models/task"
	"shiftTracker/internal/models/user"
	"strings"
	"time"

	"go.uber.org/zap"
)

//go:embed templates
var files embed.FS

// View - общие данные страницы, Data зависит от страницы
type View struct {
	Title string
	User  *user.User
	Flash *Flash
	Data  any
}

// Card - данные карточки задачи, пользователь нужен для кнопок действий
type Card struct {
	Task *task.Task
	User *user.User
}

var funcs = template.FuncMap{
	"date": func(t time.Time) string { return t.Format("02.01.2006") },
	"isoDate": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format(task.DateLayout)
	},
	"clock": func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Format("15:04")
	},
	"card": func(t *task.Task, u *user.User) Card { return Card{Task: t, User: u} },
	"statuses": func() []task.Status {
		return []task.Status{task.StatusAvailable, task.StatusInProgress, task.StatusCompleted}
	},
	"join": strings.Join,
}

type Renderer struct {
	pages    map[string]*template.Template
	partials *template.Template
}

// New разбирает шаблоны: каждая страница собирается вместе с layout и всеми partials
func New() (*Renderer, error) {
	partials, err := template.New("partials").Funcs(funcs).ParseFS(files, "templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("разбор partials: %w", err)
	}

	pageFiles, err := fs.Glob(files, "templates/pages/*.html")
	if err != nil {
		return nil, fmt.Errorf("поиск страниц: %w", err)
	}

	r := &Renderer{pages: make(map[string]*template.Template, len(pageFiles)), partials: partials}
	for _, file := range pageFiles {
		name := strings.TrimSuffix(path.Base(file), ".html")
		page, err := template.New("layout.html").Funcs(funcs).ParseFS(files,
			"templates/layout.html",
			"templates/partials/*.html",
			file,
		)
		if err != nil {
			return nil, fmt.Errorf("разбор страницы %s: %w", name, err)
		}
		r.pages[name] = page
	}
	return r, nil
}

// Page отрисовывает полную страницу в layout
func (r *Renderer) Page(w http.ResponseWriter, status int, name string, view View) {
	page, ok := r.pages[name]
	if !ok {
		logger.Error("Render: Страница не найдена", nil, zap.String("page", name))
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}
	r.execute(w, status, page, "layout", view)
}

// Partial отрисовывает фрагмент для HTMX
func (r *Renderer) Partial(w http.ResponseWriter, status int, name string, data any) {
	r.execute(w, status, r.partials, name, data)
}

// буфер нужен, чтобы ошибка шаблона не оставила наполовину записанный ответ
func (r *Renderer) execute(w http.ResponseWriter, status int, tmpl *template.Template, name string, data any) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		logger.Error("Render: Ошибка шаблона", err, zap.String("template", name))
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func IsHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
