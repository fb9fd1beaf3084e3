package service_test

import (
	"context"
	"shiftTracker/internal/models/task"
	"shiftTracker/internal/models/template"
	"shiftTracker/internal/service"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockTaskRepository - мок репозитория задач
type MockTaskRepository struct {
	mock.Mock
}

// InTx не записывается как вызов, просто выполняет fn
func (m *MockTaskRepository) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *MockTaskRepository) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTaskRepository) CreateTask(ctx context.Context, t *task.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTaskRepository) UpdateTask(ctx context.Context, t *task.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTaskRepository) DeleteTask(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTaskRepository) GetTask(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskRepository) ListTasksOn(ctx context.Context, date time.Time) ([]*task.Task, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

func (m *MockTaskRepository) ListTasksFrom(ctx context.Context, from time.Time) ([]*task.Task, error) {
	args := m.Called(ctx, from)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

func (m *MockTaskRepository) CountTasksByStatus(ctx context.Context) (map[task.Status]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[task.Status]int), args.Error(1)
}

func (m *MockTaskRepository) CreateSubtask(ctx context.Context, st *task.Subtask) error {
	args := m.Called(ctx, st)
	return args.Error(0)
}

func (m *MockTaskRepository) UpdateSubtask(ctx context.Context, st *task.Subtask) error {
	args := m.Called(ctx, st)
	return args.Error(0)
}

func (m *MockTaskRepository) DeleteSubtask(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTaskRepository) GetSubtask(ctx context.Context, id uuid.UUID) (*task.Subtask, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Subtask), args.Error(1)
}

func (m *MockTaskRepository) ListSubtasks(ctx context.Context, taskIDs ...uuid.UUID) ([]*task.Subtask, error) {
	args := m.Called(ctx, taskIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Subtask), args.Error(1)
}

func (m *MockTaskRepository) CreateAssignment(ctx context.Context, a *task.Assignment) (bool, error) {
	args := m.Called(ctx, a)
	return args.Bool(0), args.Error(1)
}

func (m *MockTaskRepository) ListAssignments(ctx context.Context, subtaskIDs ...uuid.UUID) ([]*task.Assignment, error) {
	args := m.Called(ctx, subtaskIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Assignment), args.Error(1)
}

func (m *MockTaskRepository) HasAssignment(ctx context.Context, subtaskID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, subtaskID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTaskRepository) CreateAction(ctx context.Context, action *task.Action) error {
	args := m.Called(ctx, action)
	return args.Error(0)
}

func (m *MockTaskRepository) ListActions(ctx context.Context, taskID uuid.UUID, limit int) ([]*task.Action, error) {
	args := m.Called(ctx, taskID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Action), args.Error(1)
}

func (m *MockTaskRepository) GetTemplate(ctx context.Context, id uuid.UUID) (*template.TaskTemplate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*template.TaskTemplate), args.Error(1)
}

func (m *MockTaskRepository) GetSubtaskItem(ctx context.Context, id uuid.UUID) (*template.SubtaskItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*template.SubtaskItem), args.Error(1)
}

var _ service.TaskRepository = (*MockTaskRepository)(nil)
