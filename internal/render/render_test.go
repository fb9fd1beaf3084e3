package render_test

import (
	"net/http"
	"net/http/httptest"
	"shiftTracker/internal/models/task"
	"shiftTracker/internal/models/user"
	"shiftTracker/internal/render"
	"shiftTracker/internal/service"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTask(assignee *user.User) *task.Task {
	tk := &task.Task{ID: uuid.New(), Title: "Открытие смены", Date: task.Day(time.Now()), Status: task.StatusInProgress}

	done := task.NewSubtask(tk.ID, "Открыть двери", 0)
	start := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	done.MarkInProgress(start)
	done.Complete(start.Add(65 * time.Minute))

	open := task.NewSubtask(tk.ID, "Включить свет", 1)
	open.MarkInProgress(start)
	open.Assignments = []*task.Assignment{{SubtaskID: open.ID, UserID: assignee.ID, UserName: "Анна"}}

	tk.Subtasks = []*task.Subtask{done, open}
	return tk
}

func TestRenderer_Page(t *testing.T) {
	r, err := render.New()
	require.NoError(t, err)

	u := &user.User{ID: uuid.New(), Username: "anna", FullName: "Анна Петрова", Role: user.RoleManager}
	today := task.Day(time.Now())
	dashboard := &service.Dashboard{
		Mode:             service.ModeDaily,
		Today:            today,
		SelectedDate:     today,
		Tasks:            []*task.Task{sampleTask(u)},
		Week:             service.WeekDates(today, today),
		ActiveTasksCount: 1,
	}

	w := httptest.NewRecorder()
	r.Page(w, http.StatusOK, "dashboard", render.View{
		Title: "Задачи",
		User:  u,
		Flash: &render.Flash{Kind: render.FlashSuccess, Message: "Готово"},
		Data:  dashboard,
	})

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, body, "Открытие смены")
	assert.Contains(t, body, "1ч 5м")
	assert.Contains(t, body, "flash-success")
	assert.Contains(t, body, "Активных задач: 1")
	// назначенный пользователь видит кнопку завершения
	assert.Contains(t, body, "/subtask/"+dashboard.Tasks[0].Subtasks[1].ID.String()+"/complete")
	assert.Contains(t, body, "Управление")
}

func TestRenderer_AllModeGroups(t *testing.T) {
	r, err := render.New()
	require.NoError(t, err)

	u := &user.User{ID: uuid.New(), Username: "emp", Role: user.RoleEmployee}
	today := task.Day(time.Now())
	tk := sampleTask(u)
	tk.Date = today

	w := httptest.NewRecorder()
	r.Page(w, http.StatusOK, "dashboard", render.View{User: u, Data: &service.Dashboard{
		Mode:  service.ModeAll,
		Today: today,
		Groups: []service.DayGroup{
			{Date: today, IsToday: true, Tasks: []*task.Task{tk}},
			{Date: today.AddDate(0, 0, 1)},
		},
	}})

	body := w.Body.String()
	assert.Contains(t, body, "Сегодня")
	assert.Contains(t, body, "Нет задач")
	assert.NotContains(t, body, "Новая задача")
}

func TestRenderer_Partial(t *testing.T) {
	r, err := render.New()
	require.NoError(t, err)

	u := &user.User{ID: uuid.New(), Role: user.RoleEmployee}
	tk := sampleTask(u)

	w := httptest.NewRecorder()
	r.Partial(w, http.StatusOK, "task_card", render.Card{Task: tk, User: u})

	body := w.Body.String()
	assert.Contains(t, body, `id="task-`+tk.ID.String()+`"`)
	assert.Contains(t, body, "indicator-green")
	assert.NotContains(t, body, "<html")

	w = httptest.NewRecorder()
	r.Partial(w, http.StatusOK, "take_modal", tk)
	assert.Contains(t, w.Body.String(), "Включить свет")
	assert.NotContains(t, w.Body.String(), "Открыть двери")
}

func TestRenderer_UnknownPage(t *testing.T) {
	r, err := render.New()
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r.Page(w, http.StatusOK, "missing", render.View{})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestFlash(t *testing.T) {
	w := httptest.NewRecorder()
	render.SetFlash(w, render.FlashError, "Выберите хотя бы одну подзадачу")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range w.Result().Cookies() {
		req.AddCookie(c)
	}

	w = httptest.NewRecorder()
	flash := render.PopFlash(w, req)
	require.NotNil(t, flash)
	assert.Equal(t, render.FlashError, flash.Kind)
	assert.Equal(t, "Выберите хотя бы одну подзадачу", flash.Message)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)

	assert.Nil(t, render.PopFlash(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)))
}
