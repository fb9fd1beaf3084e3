package service_test

import (
	"context"
	"errors"
	"shiftTracker/internal/models/task"
	"shiftTracker/internal/models/template"
	"shiftTracker/internal/models/user"
	repo "shiftTracker/internal/repository"
	"shiftTracker/internal/service"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC)

func newUser(role user.Role) *user.User {
	return &user.User{ID: uuid.New(), Username: string(role), Role: role, IsActive: true}
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	busErr, ok := service.AsBusiness(err)
	require.True(t, ok, "ожидалась бизнес-ошибка, получено %v", err)
	assert.Equal(t, code, busErr.Code)
}

// TestTaskService_HealthCheck тестирует HealthCheck
func TestTaskService_HealthCheck(t *testing.T) {
	tests := []struct {
		name        string
		setupMock   func(*MockTaskRepository)
		expectError bool
	}{
		{
			name: "success - health check passes",
			setupMock: func(m *MockTaskRepository) {
				m.On("HealthCheck", mock.Anything).Return(nil)
			},
			expectError: false,
		},
		{
			name: "error - health check fails",
			setupMock: func(m *MockTaskRepository) {
				m.On("HealthCheck", mock.Anything).Return(errors.New("db connection failed"))
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockTaskRepository)
			tt.setupMock(mockRepo)

			svc := service.NewTaskService(mockRepo)
			err := svc.HealthCheck(context.Background())

			if tt.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "проверка здоровья сервиса")
			} else {
				assert.NoError(t, err)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

// TestTaskService_CompleteSubtask тестирует проверки при завершении подзадачи
func TestTaskService_CompleteSubtask(t *testing.T) {
	ctx := context.Background()
	taskID := uuid.New()
	subtaskID := uuid.New()
	started := fixedNow.Add(-65 * time.Minute)

	tests := []struct {
		name      string
		role      user.Role
		setupMock func(*MockTaskRepository, *user.User)
		errCode   string
	}{
		{
			name: "success - assignee completes",
			role: user.RoleEmployee,
			setupMock: func(m *MockTaskRepository, u *user.User) {
				st := &task.Subtask{ID: subtaskID, TaskID: taskID, Name: "Касса", Status: task.SubtaskInProgress, StartedAt: &started}
				m.On("GetSubtask", mock.Anything, subtaskID).Return(st, nil)
				m.On("HasAssignment", mock.Anything, subtaskID, u.ID).Return(true, nil)
				m.On("UpdateSubtask", mock.Anything, mock.MatchedBy(func(st *task.Subtask) bool {
					return st.Status == task.SubtaskCompleted && st.CompletedAt != nil && st.CompletedAt.Equal(fixedNow)
				})).Return(nil)
				m.On("GetTask", mock.Anything, taskID).Return(&task.Task{ID: taskID, Title: "Смена", Status: task.StatusInProgress}, nil)
				m.On("ListSubtasks", mock.Anything, []uuid.UUID{taskID}).Return([]*task.Subtask{
					{ID: subtaskID, TaskID: taskID, Status: task.SubtaskCompleted},
				}, nil)
				m.On("UpdateTask", mock.Anything, mock.MatchedBy(func(t *task.Task) bool {
					return t.Status == task.StatusCompleted
				})).Return(nil)
				m.On("CreateAction", mock.Anything, mock.MatchedBy(func(a *task.Action) bool {
					d, ok := a.Details.(task.CompletedDetails)
					return ok && a.Type == task.ActionCompleted && d.DurationMinutes == 65 && d.DurationFormatted == "1ч 5м"
				})).Return(nil)
			},
		},
		{
			name: "error - manager without assignment",
			role: user.RoleManager,
			setupMock: func(m *MockTaskRepository, u *user.User) {
				st := &task.Subtask{ID: subtaskID, TaskID: taskID, Status: task.SubtaskInProgress, StartedAt: &started}
				m.On("GetSubtask", mock.Anything, subtaskID).Return(st, nil)
				m.On("HasAssignment", mock.Anything, subtaskID, u.ID).Return(false, nil)
			},
			errCode: service.CodeForbidden,
		},
		{
			name: "error - already completed",
			role: user.RoleEmployee,
			setupMock: func(m *MockTaskRepository, u *user.User) {
				done := fixedNow.Add(-time.Minute)
				st := &task.Subtask{ID: subtaskID, TaskID: taskID, Status: task.SubtaskCompleted, StartedAt: &started, CompletedAt: &done}
				m.On("GetSubtask", mock.Anything, subtaskID).Return(st, nil)
				m.On("HasAssignment", mock.Anything, subtaskID, u.ID).Return(true, nil)
			},
			errCode: service.CodeAlreadyCompleted,
		},
		{
			name: "error - subtask not found",
			role: user.RoleEmployee,
			setupMock: func(m *MockTaskRepository, u *user.User) {
				m.On("GetSubtask", mock.Anything, subtaskID).Return(nil, repo.ErrNotFound)
			},
			errCode: service.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockTaskRepository)
			u := newUser(tt.role)
			tt.setupMock(mockRepo, u)

			svc := service.NewTaskService(mockRepo, service.WithClock(func() time.Time { return fixedNow }))
			st, err := svc.CompleteSubtask(ctx, u, subtaskID)

			if tt.errCode != "" {
				requireCode(t, err, tt.errCode)
				mockRepo.AssertNotCalled(t, "UpdateSubtask", mock.Anything, mock.Anything)
				mockRepo.AssertNotCalled(t, "CreateAction", mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
				assert.Equal(t, 65, st.DurationMinutes())
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

// TestTaskService_CreateTask тестирует создание задачи из шаблона
func TestTaskService_CreateTask(t *testing.T) {
	ctx := context.Background()
	templateID := uuid.New()
	date := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)

	tmpl := &template.TaskTemplate{
		ID:       templateID,
		Name:     "Открытие",
		IsActive: true,
		Entries: []*template.Entry{
			{Order: 1, Item: &template.SubtaskItem{Name: "Включить свет", IsActive: true}},
			{Order: 0, Item: &template.SubtaskItem{Name: "Открыть двери", IsActive: true}},
			{Order: 2, Item: &template.SubtaskItem{Name: "Старое", IsActive: false}},
		},
	}

	tests := []struct {
		name      string
		role      user.Role
		template  *template.TaskTemplate
		setupMock func(*MockTaskRepository)
		errCode   string
		subtasks  []string
	}{
		{
			name:     "success - admin uses template",
			role:     user.RoleAdmin,
			template: tmpl,
			setupMock: func(m *MockTaskRepository) {
				m.On("GetTemplate", mock.Anything, templateID).Return(tmpl, nil)
				m.On("CreateTask", mock.Anything, mock.Anything).Return(nil)
				m.On("CreateSubtask", mock.Anything, mock.Anything).Return(nil).Twice()
				m.On("CreateAction", mock.Anything, mock.MatchedBy(func(a *task.Action) bool {
					d, ok := a.Details.(task.CreatedDetails)
					return ok && d.SubtasksCount == 2 && d.TemplateName != nil && *d.TemplateName == "Открытие"
				})).Return(nil)
			},
			subtasks: []string{"Открыть двери", "Включить свет"},
		},
		{
			name:     "error - manager and closed template",
			role:     user.RoleManager,
			template: tmpl,
			setupMock: func(m *MockTaskRepository) {
				m.On("GetTemplate", mock.Anything, templateID).Return(tmpl, nil)
			},
			errCode: service.CodeForbidden,
		},
		{
			name:      "error - employee cannot create",
			role:      user.RoleEmployee,
			template:  tmpl,
			setupMock: func(m *MockTaskRepository) {},
			errCode:   service.CodeForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockTaskRepository)
			tt.setupMock(mockRepo)

			svc := service.NewTaskService(mockRepo)
			created, err := svc.CreateTask(ctx, newUser(tt.role), service.CreateTaskInput{
				Title:      "Утро",
				Date:       date,
				TemplateID: &templateID,
			})

			if tt.errCode != "" {
				requireCode(t, err, tt.errCode)
				mockRepo.AssertNotCalled(t, "CreateTask", mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
				assert.Equal(t, task.StatusAvailable, created.Status)
				names := []string{}
				for i, st := range created.Subtasks {
					assert.Equal(t, i, st.Order)
					names = append(names, st.Name)
				}
				assert.Equal(t, tt.subtasks, names)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestTaskService_CreateTaskValidation(t *testing.T) {
	svc := service.NewTaskService(new(MockTaskRepository))
	admin := newUser(user.RoleAdmin)

	_, err := svc.CreateTask(context.Background(), admin, service.CreateTaskInput{Title: "  ", Date: fixedNow})
	requireCode(t, err, service.CodeValidation)

	_, err = svc.CreateTask(context.Background(), admin, service.CreateTaskInput{Title: "Смена"})
	requireCode(t, err, service.CodeValidation)
}

// TestTaskService_UpdateTask проверяет запись истории при ручной смене статуса
func TestTaskService_UpdateTask(t *testing.T) {
	ctx := context.Background()
	taskID := uuid.New()
	mockRepo := new(MockTaskRepository)

	mockRepo.On("GetTask", mock.Anything, taskID).Return(&task.Task{ID: taskID, Title: "Смена", Status: task.StatusAvailable}, nil)
	mockRepo.On("UpdateTask", mock.Anything, mock.Anything).Return(nil)
	mockRepo.On("CreateAction", mock.Anything, mock.MatchedBy(func(a *task.Action) bool {
		d, ok := a.Details.(task.UpdatedDetails)
		return ok && d.Changes["title"] == task.FieldChange{Old: "Смена", New: "Ночная смена"} &&
			d.Changes["status"] == task.FieldChange{Old: "available", New: "completed"}
	})).Return(nil).Once()
	mockRepo.On("CreateAction", mock.Anything, mock.MatchedBy(func(a *task.Action) bool {
		d, ok := a.Details.(task.StatusChangedDetails)
		return ok && d.Manual && d.From == task.StatusAvailable && d.To == task.StatusCompleted
	})).Return(nil).Once()

	svc := service.NewTaskService(mockRepo)
	updated, err := svc.UpdateTask(ctx, newUser(user.RoleManager), taskID,
		task.WithTitle("Ночная смена"),
		task.WithStatus(task.StatusCompleted),
	)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, updated.Status)
	mockRepo.AssertExpectations(t)
}

func TestTaskService_UpdateTaskWithoutChanges(t *testing.T) {
	taskID := uuid.New()
	mockRepo := new(MockTaskRepository)
	mockRepo.On("GetTask", mock.Anything, taskID).Return(&task.Task{ID: taskID, Title: "Смена", Status: task.StatusAvailable}, nil)

	svc := service.NewTaskService(mockRepo)
	_, err := svc.UpdateTask(context.Background(), newUser(user.RoleAdmin), taskID, task.WithTitle("Смена"))
	require.NoError(t, err)

	mockRepo.AssertNotCalled(t, "UpdateTask", mock.Anything, mock.Anything)
	mockRepo.AssertNotCalled(t, "CreateAction", mock.Anything, mock.Anything)
}

func TestTaskService_ClaimSubtasksValidation(t *testing.T) {
	ctx := context.Background()
	taskID := uuid.New()
	foreignID := uuid.New()
	doneID := uuid.New()

	mockRepo := new(MockTaskRepository)
	mockRepo.On("GetTask", mock.Anything, taskID).Return(&task.Task{ID: taskID, Status: task.StatusInProgress}, nil)
	mockRepo.On("ListSubtasks", mock.Anything, []uuid.UUID{taskID}).Return([]*task.Subtask{
		{ID: doneID, TaskID: taskID, Name: "Касса", Status: task.SubtaskCompleted},
	}, nil)

	svc := service.NewTaskService(mockRepo)
	u := newUser(user.RoleEmployee)

	_, err := svc.ClaimSubtasks(ctx, u, taskID, nil)
	requireCode(t, err, service.CodeValidation)
	busErr, _ := service.AsBusiness(err)
	assert.Equal(t, "Выберите хотя бы одну подзадачу", busErr.Message)

	_, err = svc.ClaimSubtasks(ctx, u, taskID, []uuid.UUID{foreignID})
	requireCode(t, err, service.CodeValidation)

	_, err = svc.ClaimSubtasks(ctx, u, taskID, []uuid.UUID{doneID})
	requireCode(t, err, service.CodeValidation)

	mockRepo.AssertNotCalled(t, "CreateAssignment", mock.Anything, mock.Anything)
}

func TestTaskService_ManagementStats(t *testing.T) {
	mockRepo := new(MockTaskRepository)
	mockRepo.On("CountTasksByStatus", mock.Anything).Return(map[task.Status]int{
		task.StatusAvailable:  2,
		task.StatusInProgress: 3,
		task.StatusCompleted:  4,
	}, nil)

	stats, err := service.NewTaskService(mockRepo).ManagementStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &service.ManagementStats{Total: 9, Available: 2, InProgress: 3, Completed: 4}, stats)
}

func TestTaskService_SubtaskEditPermissions(t *testing.T) {
	svc := service.NewTaskService(new(MockTaskRepository))
	employee := newUser(user.RoleEmployee)
	name := "Новое"

	_, err := svc.UpdateSubtask(context.Background(), employee, uuid.New(), service.SubtaskUpdate{Name: &name})
	requireCode(t, err, service.CodeForbidden)

	_, err = svc.DeleteSubtask(context.Background(), employee, uuid.New())
	requireCode(t, err, service.CodeForbidden)

	negative := -1
	_, err = svc.UpdateSubtask(context.Background(), newUser(user.RoleManager), uuid.New(), service.SubtaskUpdate{Order: &negative})
	requireCode(t, err, service.CodeValidation)
}
