package handlers

import (
	"fmt"
	"net/http"
	"shiftTracker/internal/handlers/dto"
	"shiftTracker/internal/logger"
	"shiftTracker/internal/middleware"
	"shiftTracker/internal/models/task"
	"shiftTracker/internal/models/template"
	"shiftTracker/internal/render"
	"shiftTracker/internal/service"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// пустых полей для подзадач в ручной форме
const manualSubtaskFields = 5

type TaskHandler struct {
	pages
	tasks     TaskService
	templates TemplateService
}

func NewTaskHandler(tasks TaskService, templates TemplateService, view *render.Renderer) *TaskHandler {
	return &TaskHandler{
		pages:     pages{view: view},
		tasks:     tasks,
		templates: templates,
	}
}

func (h *TaskHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP: Health check")

	err := h.tasks.HealthCheck(r.Context())
	if err != nil {
		logger.Error("HTTP: Сервис недоступен", err)
	}
	healthCheck(w, err == nil)
}

func (h *TaskHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	query := service.DashboardQuery{
		Mode: service.ParseMode(r.URL.Query().Get("mode")),
		Date: r.URL.Query().Get("date"),
	}

	dashboard, err := h.tasks.Dashboard(r.Context(), query)
	if err != nil {
		h.fail(w, r, err, "/")
		return
	}

	logger.Debug("HTTP: Дашборд собран",
		zap.String("mode", string(dashboard.Mode)),
		zap.Int("tasks", len(dashboard.Tasks)),
		zap.Duration("ms", time.Since(start)))

	h.page(w, r, http.StatusOK, "dashboard", "Задачи", dashboard)
}

func (h *TaskHandler) TaskDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.badRequest(w, r, "Некорректный id задачи")
		return
	}

	detail, err := h.tasks.GetTaskDetail(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "/")
		return
	}
	h.page(w, r, http.StatusOK, "task_detail", detail.Task.Title, detail)
}

type TaskForm struct {
	Action       string
	Manual       bool
	Title        string
	Date         string
	Templates    []*template.TaskTemplate
	Items        []*template.SubtaskItem
	SubtaskNames []string
}

func formAction(r *http.Request) string {
	if path := strings.TrimSuffix(r.URL.Path, "/"); path != "" {
		return path
	}
	return "/"
}

// CreateTaskForm обслуживает и /task/create, и /management/task/create
func (h *TaskHandler) CreateTaskForm(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())

	form := TaskForm{
		Action: formAction(r),
		Manual: r.URL.Query().Get("manual") == "1",
		Date:   r.URL.Query().Get("date"),
	}
	if _, err := task.ParseDate(form.Date); err != nil {
		form.Date = h.tasks.Today().Format(task.DateLayout)
	}

	if form.Manual {
		form.SubtaskNames = make([]string, manualSubtaskFields)
	} else {
		templates, err := h.templates.ListTemplates(r.Context(), u, true)
		if err != nil {
			h.fail(w, r, err, "/")
			return
		}
		items, err := h.templates.ListSubtaskItems(r.Context(), true)
		if err != nil {
			h.fail(w, r, err, "/")
			return
		}
		form.Templates = templates
		form.Items = items
	}

	h.page(w, r, http.StatusOK, "task_form", "Новая задача", form)
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	u := middleware.UserFromContext(r.Context())

	if !parseForm(r) {
		h.badRequest(w, r, "Некорректные данные формы")
		return
	}

	back := formAction(r)
	in := service.CreateTaskInput{Title: r.PostFormValue("title")}
	if date, err := task.ParseDate(r.PostFormValue("date")); err == nil {
		in.Date = date
	}

	if r.PostFormValue("manual") == "1" {
		in.SubtaskNames = formList(r, "subtask_name")
		back += "?manual=1"
	} else {
		templateID, err := uuid.Parse(r.PostFormValue("template_id"))
		if err != nil {
			h.fail(w, r, service.NewValidationError("template_id", "Выберите шаблон"), back)
			return
		}
		in.TemplateID = &templateID
		in.ItemIDs = parseIDs(formList(r, "subtask_ids"))
	}

	created, err := h.tasks.CreateTask(r.Context(), u, in)
	if err != nil {
		h.fail(w, r, err, back)
		return
	}

	logger.Info("HTTP_OUT: Задача создана",
		zap.String("task_id", created.ID.String()),
		zap.Duration("ms", time.Since(start)))

	h.success(w, r,
		fmt.Sprintf("Задача %q успешно создана", created.Title),
		"/?date="+created.Date.Format(task.DateLayout))
}

func (h *TaskHandler) EditTaskForm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.badRequest(w, r, "Некорректный id задачи")
		return
	}
	u := middleware.UserFromContext(r.Context())
	if !u.CanCreateTasks() {
		h.fail(w, r, service.NewForbidden("Доступ запрещен"), "/")
		return
	}

	t, err := h.tasks.GetTask(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "/")
		return
	}
	h.page(w, r, http.StatusOK, "task_edit", "Изменить задачу", t)
}

func (h *TaskHandler) EditTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.badRequest(w, r, "Некорректный id задачи")
		return
	}
	if !parseForm(r) {
		h.badRequest(w, r, "Некорректные данные формы")
		return
	}

	var date time.Time
	if parsed, err := task.ParseDate(r.PostFormValue("date")); err == nil {
		date = parsed
	}

	updated, err := h.tasks.UpdateTask(r.Context(), middleware.UserFromContext(r.Context()), id,
		task.WithTitle(strings.TrimSpace(r.PostFormValue("title"))),
		task.WithDate(date),
		task.WithStatus(task.Status(r.PostFormValue("status"))),
	)
	if err != nil {
		h.fail(w, r, err, "/task/"+id.String()+"/edit")
		return
	}

	h.success(w, r, fmt.Sprintf("Задача %q обновлена", updated.Title), "/")
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.badRequest(w, r, "Некорректный id задачи")
		return
	}

	deleted, err := h.tasks.DeleteTask(r.Context(), middleware.UserFromContext(r.Context()), id)
	if err != nil {
		h.fail(w, r, err, "/")
		return
	}
	h.success(w, r, fmt.Sprintf("Задача %q удалена", deleted.Title), "/")
}

func (h *TaskHandler) TakeForm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.badRequest(w, r, "Некорректный id задачи")
		return
	}

	t, err := h.tasks.GetTask(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "/")
		return
	}

	if render.IsHTMX(r) {
		h.view.Partial(w, http.StatusOK, "take_modal", t)
		return
	}
	h.page(w, r, http.StatusOK, "take", "Взять задачу", t)
}

func (h *TaskHandler) Take(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.badRequest(w, r, "Некорректный id задачи")
		return
	}
	if !parseForm(r) {
		h.badRequest(w, r, "Некорректные данные формы")
		return
	}

	result, err := h.tasks.ClaimSubtasks(r.Context(), middleware.UserFromContext(r.Context()), id,
		parseIDs(formList(r, "subtasks")))
	if err != nil {
		h.fail(w, r, err, "/")
		return
	}

	h.success(w, r,
		fmt.Sprintf("Вы взяли %d подзадач из задачи %q", len(result.Claimed), result.Task.Title),
		"/")
}

type CompleteForm struct {
	Subtask *task.Subtask
	Task    *task.Task
}

func (h *TaskHandler) CompleteForm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.badRequest(w, r, "Некорректный id подзадачи")
		return
	}

	st, t, err := h.tasks.CompletionTarget(r.Context(), middleware.UserFromContext(r.Context()), id)
	if err != nil {
		h.fail(w, r, err, "/")
		return
	}

	form := CompleteForm{Subtask: st, Task: t}
	if render.IsHTMX(r) {
		h.view.Partial(w, http.StatusOK, "complete_modal", form)
		return
	}
	h.page(w, r, http.StatusOK, "complete", "Завершить подзадачу", form)
}

// Complete для HTMX возвращает обновлённую карточку задачи
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.badRequest(w, r, "Некорректный id подзадачи")
		return
	}
	u := middleware.UserFromContext(r.Context())

	st, err := h.tasks.CompleteSubtask(r.Context(), u, id)
	if err != nil {
		h.fail(w, r, err, "/")
		return
	}

	message := fmt.Sprintf("Подзадача %q отмечена как выполненная", st.Name)
	if !render.IsHTMX(r) {
		h.success(w, r, message, "/")
		return
	}

	t, err := h.tasks.GetTask(r.Context(), st.TaskID)
	if err != nil {
		h.fail(w, r, err, "/")
		return
	}
	render.SetFlash(w, render.FlashSuccess, message)
	h.view.Partial(w, http.StatusOK, "task_card", render.Card{Task: t, User: u})
}

// UpdateSubtask - JSON endpoint для правки названия и порядка
func (h *TaskHandler) UpdateSubtask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		responseWithError(w, http.StatusBadRequest, "некорректный id подзадачи")
		return
	}
	if !parseForm(r) {
		responseWithError(w, http.StatusBadRequest, "некорректные данные формы")
		return
	}

	var upd service.SubtaskUpdate
	if _, present := r.PostForm["name"]; present {
		name := r.PostFormValue("name")
		upd.Name = &name
	}
	if raw, present := r.PostForm["order"]; present && len(raw) > 0 {
		order, err := strconv.Atoi(strings.TrimSpace(raw[0]))
		if err != nil {
			logger.Warn("HTTP: Ошибка валидации",
				zap.String("field", "order"),
				zap.String("client_ip", r.RemoteAddr))
			responseWithError(w, http.StatusBadRequest, "Некорректный порядок")
			return
		}
		upd.Order = &order
	}

	st, err := h.tasks.UpdateSubtask(r.Context(), middleware.UserFromContext(r.Context()), id, upd)
	if err != nil {
		respondJSONError(w, r, err, "update_subtask")
		return
	}
	writeJSON(w, http.StatusOK, dto.FromSubtask(st))
}

func (h *TaskHandler) DeleteSubtask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.badRequest(w, r, "Некорректный id подзадачи")
		return
	}

	st, err := h.tasks.DeleteSubtask(r.Context(), middleware.UserFromContext(r.Context()), id)
	if err != nil {
		h.fail(w, r, err, "/")
		return
	}
	h.success(w, r, fmt.Sprintf("Подзадача %q удалена", st.Name), "/")
}
