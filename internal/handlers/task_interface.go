package handlers

import (
	"context"
	"shiftTracker/internal/models/task"
	"shiftTracker/internal/models/template"
	"shiftTracker/internal/models/user"
	"shiftTracker/internal/service"
	"time"

	"github.com/google/uuid"
)

type TaskService interface {
	HealthCheck(ctx context.Context) error
	Today() time.Time
	Dashboard(ctx context.Context, q service.DashboardQuery) (*service.Dashboard, error)
	GetTask(ctx context.Context, id uuid.UUID) (*task.Task, error)
	GetTaskDetail(ctx context.Context, id uuid.UUID) (*service.TaskDetail, error)
	CreateTask(ctx context.Context, u *user.User, in service.CreateTaskInput) (*task.Task, error)
	UpdateTask(ctx context.Context, u *user.User, id uuid.UUID, options ...task.TaskOption) (*task.Task, error)
	DeleteTask(ctx context.Context, u *user.User, id uuid.UUID) (*task.Task, error)
	ClaimSubtasks(ctx context.Context, u *user.User, taskID uuid.UUID, subtaskIDs []uuid.UUID) (*service.ClaimResult, error)
	CompletionTarget(ctx context.Context, u *user.User, subtaskID uuid.UUID) (*task.Subtask, *task.Task, error)
	CompleteSubtask(ctx context.Context, u *user.User, subtaskID uuid.UUID) (*task.Subtask, error)
	UpdateSubtask(ctx context.Context, u *user.User, id uuid.UUID, upd service.SubtaskUpdate) (*task.Subtask, error)
	DeleteSubtask(ctx context.Context, u *user.User, id uuid.UUID) (*task.Subtask, error)
	ManagementStats(ctx context.Context) (*service.ManagementStats, error)
}

type TemplateService interface {
	ListTemplates(ctx context.Context, u *user.User, onlyActive bool) ([]*template.TaskTemplate, error)
	GetTemplate(ctx context.Context, u *user.User, id uuid.UUID) (*template.TaskTemplate, error)
	CreateTemplate(ctx context.Context, u *user.User, in service.TemplateInput) (*template.TaskTemplate, error)
	UpdateTemplate(ctx context.Context, u *user.User, id uuid.UUID, in service.TemplateInput) (*template.TaskTemplate, error)
	DeleteTemplate(ctx context.Context, u *user.User, id uuid.UUID) (*template.TaskTemplate, error)
	ListSubtaskItems(ctx context.Context, onlyActive bool) ([]*template.SubtaskItem, error)
	GetSubtaskItem(ctx context.Context, id uuid.UUID) (*template.SubtaskItem, error)
	CreateSubtaskItem(ctx context.Context, u *user.User, in service.ItemInput) (*template.SubtaskItem, error)
	UpdateSubtaskItem(ctx context.Context, u *user.User, id uuid.UUID, in service.ItemInput) (*template.SubtaskItem, error)
}

type AuthService interface {
	Login(ctx context.Context, username, password string) (*service.Session, error)
}
