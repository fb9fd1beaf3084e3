package service

import (
	"context"
	"shiftTracker/internal/models/task"
	"shiftTracker/internal/models/template"
	"shiftTracker/internal/models/user"
	"time"

	"github.com/google/uuid"
)

// Transactor выполняет fn в одной транзакции хранилища
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type TaskRepository interface {
	Transactor
	HealthCheck(ctx context.Context) error

	CreateTask(ctx context.Context, t *task.Task) error
	UpdateTask(ctx context.Context, t *task.Task) error
	DeleteTask(ctx context.Context, id uuid.UUID) error
	GetTask(ctx context.Context, id uuid.UUID) (*task.Task, error)
	ListTasksOn(ctx context.Context, date time.Time) ([]*task.Task, error)
	ListTasksFrom(ctx context.Context, from time.Time) ([]*task.Task, error)
	CountTasksByStatus(ctx context.Context) (map[task.Status]int, error)

	CreateSubtask(ctx context.Context, st *task.Subtask) error
	UpdateSubtask(ctx context.Context, st *task.Subtask) error
	DeleteSubtask(ctx context.Context, id uuid.UUID) error
	GetSubtask(ctx context.Context, id uuid.UUID) (*task.Subtask, error)
	ListSubtasks(ctx context.Context, taskIDs ...uuid.UUID) ([]*task.Subtask, error)

	CreateAssignment(ctx context.Context, a *task.Assignment) (bool, error)
	ListAssignments(ctx context.Context, subtaskIDs ...uuid.UUID) ([]*task.Assignment, error)
	HasAssignment(ctx context.Context, subtaskID, userID uuid.UUID) (bool, error)

	CreateAction(ctx context.Context, action *task.Action) error
	ListActions(ctx context.Context, taskID uuid.UUID, limit int) ([]*task.Action, error)

	GetTemplate(ctx context.Context, id uuid.UUID) (*template.TaskTemplate, error)
	GetSubtaskItem(ctx context.Context, id uuid.UUID) (*template.SubtaskItem, error)
}

type TemplateRepository interface {
	Transactor

	CreateTemplate(ctx context.Context, t *template.TaskTemplate) error
	UpdateTemplate(ctx context.Context, t *template.TaskTemplate) error
	DeleteTemplate(ctx context.Context, id uuid.UUID) error
	GetTemplate(ctx context.Context, id uuid.UUID) (*template.TaskTemplate, error)
	ListTemplates(ctx context.Context, filter template.Filter) ([]*template.TaskTemplate, error)
	ReplaceTemplateEntries(ctx context.Context, templateID uuid.UUID, entries []*template.Entry) error

	CreateSubtaskItem(ctx context.Context, item *template.SubtaskItem) error
	UpdateSubtaskItem(ctx context.Context, item *template.SubtaskItem) error
	GetSubtaskItem(ctx context.Context, id uuid.UUID) (*template.SubtaskItem, error)
	FindSubtaskItemByName(ctx context.Context, name string) (*template.SubtaskItem, error)
	ListSubtaskItems(ctx context.Context, onlyActive bool) ([]*template.SubtaskItem, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, u *user.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetUserByUsername(ctx context.Context, username string) (*user.User, error)
}
