package service

import (
	"context"
	"errors"
	"fmt"
	"shiftTracker/internal/logger"
	"shiftTracker/internal/models/task"
	"shiftTracker/internal/models/user"
	repo "shiftTracker/internal/repository"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// здесь происходит проверка ошибок бизнес-логики

const defaultHistoryLimit = 50

type TaskService struct {
	repo         TaskRepository
	now          func() time.Time
	historyLimit int
}

type Option func(*TaskService)

// WithClock подменяет источник времени
func WithClock(now func() time.Time) Option {
	return func(s *TaskService) {
		s.now = now
	}
}

func WithHistoryLimit(limit int) Option {
	return func(s *TaskService) {
		s.historyLimit = limit
	}
}

func NewTaskService(repo TaskRepository, opts ...Option) *TaskService {
	s := &TaskService{
		repo:         repo,
		now:          time.Now,
		historyLimit: defaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TaskService) HealthCheck(ctx context.Context) error {
	if err := s.repo.HealthCheck(ctx); err != nil {
		return fmt.Errorf("проверка здоровья сервиса: %w", err)
	}
	return nil
}

// Today - текущая дата по часам сервера
func (s *TaskService) Today() time.Time {
	return task.Day(s.now())
}

// translate переводит ошибки репозитория в бизнес-ошибки
func translate(err error, resource Resource, id uuid.UUID, op string) error {
	if _, ok := AsBusiness(err); ok {
		return err
	}
	switch {
	case errors.Is(err, repo.ErrNotFound):
		logger.Info("Service: Объект не найден", zap.String("resource", string(resource)), zap.String("target_id", id.String()))
		return NewNotFound(resource, id.String())
	case errors.Is(err, repo.ErrConflict):
		return NewBusinessError(CodeConflict, fmt.Sprintf("%s уже существует", resource))
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *TaskService) GetTask(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	t, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return nil, translate(err, ResourceTask, id, "получение задачи")
	}
	if err := s.loadSubtasks(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// loadSubtasks подгружает подзадачи с исполнителями одним запросом на уровень
func (s *TaskService) loadSubtasks(ctx context.Context, tasks ...*task.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	byTask := make(map[uuid.UUID]*task.Task, len(tasks))
	taskIDs := make([]uuid.UUID, 0, len(tasks))
	for _, t := range tasks {
		t.Subtasks = []*task.Subtask{}
		byTask[t.ID] = t
		taskIDs = append(taskIDs, t.ID)
	}

	subtasks, err := s.repo.ListSubtasks(ctx, taskIDs...)
	if err != nil {
		return fmt.Errorf("получение подзадач: %w", err)
	}
	if len(subtasks) == 0 {
		return nil
	}

	bySubtask := make(map[uuid.UUID]*task.Subtask, len(subtasks))
	subtaskIDs := make([]uuid.UUID, 0, len(subtasks))
	for _, st := range subtasks {
		st.Assignments = []*task.Assignment{}
		bySubtask[st.ID] = st
		subtaskIDs = append(subtaskIDs, st.ID)
		if t, ok := byTask[st.TaskID]; ok {
			t.Subtasks = append(t.Subtasks, st)
		}
	}

	assignments, err := s.repo.ListAssignments(ctx, subtaskIDs...)
	if err != nil {
		return fmt.Errorf("получение назначений: %w", err)
	}
	for _, a := range assignments {
		if st, ok := bySubtask[a.SubtaskID]; ok {
			st.Assignments = append(st.Assignments, a)
		}
	}
	return nil
}

type TaskDetail struct {
	Task    *task.Task
	History []*task.Action
}

func (s *TaskService) GetTaskDetail(ctx context.Context, id uuid.UUID) (*TaskDetail, error) {
	t, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	history, err := s.repo.ListActions(ctx, id, s.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("получение истории: %w", err)
	}
	return &TaskDetail{Task: t, History: history}, nil
}

type CreateTaskInput struct {
	Title        string
	Date         time.Time
	TemplateID   *uuid.UUID
	ItemIDs      []uuid.UUID
	SubtaskNames []string
}

// CreateTask создаёт задачу из шаблона или вручную из списка названий
func (s *TaskService) CreateTask(ctx context.Context, u *user.User, in CreateTaskInput) (*task.Task, error) {
	if !u.CanCreateTasks() {
		return nil, NewForbidden("Недостаточно прав для создания задач")
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, NewValidationError("title", "Название задачи не может быть пустым")
	}
	if in.Date.IsZero() {
		return nil, NewValidationError("date", "Укажите дату задачи")
	}

	newTask := &task.Task{
		ID:        uuid.New(),
		Title:     title,
		Date:      task.Day(in.Date),
		Status:    task.StatusAvailable,
		CreatedBy: u.ID,
	}

	err := s.repo.InTx(ctx, func(ctx context.Context) error {
		var (
			names   []string
			details task.CreatedDetails
		)

		if in.TemplateID != nil {
			tmpl, err := s.repo.GetTemplate(ctx, *in.TemplateID)
			if err != nil {
				return translate(err, ResourceTemplate, *in.TemplateID, "получение шаблона")
			}
			if !tmpl.UsableBy(u) {
				return NewForbidden("Шаблон недоступен")
			}

			if len(in.ItemIDs) > 0 {
				names, err = s.itemNames(ctx, in.ItemIDs)
				if err != nil {
					return err
				}
			} else {
				for _, item := range tmpl.ActiveItems() {
					names = append(names, item.Name)
				}
			}

			templateID := tmpl.ID
			templateName := tmpl.Name
			newTask.TemplateID = &templateID
			details.TemplateName = &templateName
		} else {
			for _, name := range in.SubtaskNames {
				if name = strings.TrimSpace(name); name != "" {
					names = append(names, name)
				}
			}
			details.ManualCreation = true
		}

		if err := s.repo.CreateTask(ctx, newTask); err != nil {
			return fmt.Errorf("добавление задачи: %w", err)
		}

		subtasks := make([]*task.Subtask, 0, len(names))
		for order, name := range names {
			st := task.NewSubtask(newTask.ID, name, order)
			if err := s.repo.CreateSubtask(ctx, st); err != nil {
				return fmt.Errorf("добавление подзадачи: %w", err)
			}
			subtasks = append(subtasks, st)
		}
		newTask.Subtasks = subtasks
		newTask.UpdateStatus(subtasks)

		details.SubtasksCount = len(subtasks)
		return s.repo.CreateAction(ctx, task.NewAction(newTask, u.ID, details))
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Service: Задача создана",
		zap.String("task_id", newTask.ID.String()),
		zap.Int("subtasks", len(newTask.Subtasks)))
	return newTask, nil
}

// itemNames - названия выбранных объектов подзадач, неизвестные и повторные id пропускаются
func (s *TaskService) itemNames(ctx context.Context, ids []uuid.UUID) ([]string, error) {
	seen := make(map[uuid.UUID]bool, len(ids))
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		item, err := s.repo.GetSubtaskItem(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("получение объекта подзадачи: %w", err)
		}
		names = append(names, item.Name)
	}
	return names, nil
}

// UpdateTask применяет изменения формы редактирования, статус может быть задан вручную
func (s *TaskService) UpdateTask(ctx context.Context, u *user.User, id uuid.UUID, options ...task.TaskOption) (*task.Task, error) {
	if !u.CanCreateTasks() {
		return nil, NewForbidden("Недостаточно прав для редактирования задач")
	}

	var updated *task.Task
	err := s.repo.InTx(ctx, func(ctx context.Context) error {
		t, err := s.repo.GetTask(ctx, id)
		if err != nil {
			return translate(err, ResourceTask, id, "получение задачи")
		}

		before := *t
		t.Apply(options...)
		updated = t

		changes := diffTask(&before, t)
		if len(changes) == 0 {
			return nil
		}

		if err := s.repo.UpdateTask(ctx, t); err != nil {
			return translate(err, ResourceTask, id, "обновление задачи")
		}
		if err := s.repo.CreateAction(ctx, task.NewAction(t, u.ID, task.UpdatedDetails{Changes: changes})); err != nil {
			return fmt.Errorf("запись истории: %w", err)
		}

		if before.Status != t.Status {
			statusChanged := task.StatusChangedDetails{From: before.Status, To: t.Status, Manual: true}
			if err := s.repo.CreateAction(ctx, task.NewAction(t, u.ID, statusChanged)); err != nil {
				return fmt.Errorf("запись истории: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func diffTask(before, after *task.Task) map[string]task.FieldChange {
	changes := make(map[string]task.FieldChange)
	if before.Title != after.Title {
		changes["title"] = task.FieldChange{Old: before.Title, New: after.Title}
	}
	if !before.Date.Equal(after.Date) {
		changes["date"] = task.FieldChange{
			Old: before.Date.Format(task.DateLayout),
			New: after.Date.Format(task.DateLayout),
		}
	}
	if before.Status != after.Status {
		changes["status"] = task.FieldChange{Old: string(before.Status), New: string(after.Status)}
	}
	return changes
}

// DeleteTask удаляет задачу, запись в истории делается до удаления
func (s *TaskService) DeleteTask(ctx context.Context, u *user.User, id uuid.UUID) (*task.Task, error) {
	if !u.CanCreateTasks() {
		return nil, NewForbidden("Недостаточно прав для удаления задач")
	}

	var deleted *task.Task
	err := s.repo.InTx(ctx, func(ctx context.Context) error {
		t, err := s.repo.GetTask(ctx, id)
		if err != nil {
			return translate(err, ResourceTask, id, "получение задачи")
		}
		deleted = t

		details := task.DeletedDetails{Title: t.Title, Date: t.Date.Format(task.DateLayout)}
		if err := s.repo.CreateAction(ctx, task.NewAction(t, u.ID, details)); err != nil {
			return fmt.Errorf("запись истории: %w", err)
		}
		if err := s.repo.DeleteTask(ctx, id); err != nil {
			return translate(err, ResourceTask, id, "удаление задачи")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Service: Задача удалена", zap.String("task_id", id.String()))
	return deleted, nil
}

type ClaimResult struct {
	Task    *task.Task
	Claimed []string
}

// ClaimSubtasks назначает пользователя на выбранные незавершённые подзадачи задачи
func (s *TaskService) ClaimSubtasks(ctx context.Context, u *user.User, taskID uuid.UUID, subtaskIDs []uuid.UUID) (*ClaimResult, error) {
	if len(subtaskIDs) == 0 {
		return nil, NewValidationError("subtasks", "Выберите хотя бы одну подзадачу")
	}

	result := &ClaimResult{}
	err := s.repo.InTx(ctx, func(ctx context.Context) error {
		t, err := s.repo.GetTask(ctx, taskID)
		if err != nil {
			return translate(err, ResourceTask, taskID, "получение задачи")
		}

		subtasks, err := s.repo.ListSubtasks(ctx, taskID)
		if err != nil {
			return fmt.Errorf("получение подзадач: %w", err)
		}
		byID := make(map[uuid.UUID]*task.Subtask, len(subtasks))
		for _, st := range subtasks {
			byID[st.ID] = st
		}

		selected := make([]*task.Subtask, 0, len(subtaskIDs))
		seen := make(map[uuid.UUID]bool, len(subtaskIDs))
		for _, id := range subtaskIDs {
			if seen[id] {
				continue
			}
			seen[id] = true

			st, ok := byID[id]
			if !ok {
				return NewValidationError("subtasks", "Подзадача не относится к этой задаче")
			}
			if st.Status == task.SubtaskCompleted {
				return NewValidationError("subtasks", fmt.Sprintf("Подзадача %q уже завершена", st.Name))
			}
			selected = append(selected, st)
		}

		now := s.now()
		names := make([]string, 0, len(selected))
		for _, st := range selected {
			created, err := s.repo.CreateAssignment(ctx, &task.Assignment{SubtaskID: st.ID, UserID: u.ID})
			if err != nil {
				return translate(err, ResourceSubtask, st.ID, "назначение подзадачи")
			}
			if created && st.MarkInProgress(now) {
				if err := s.repo.UpdateSubtask(ctx, st); err != nil {
					return fmt.Errorf("обновление подзадачи: %w", err)
				}
			}
			names = append(names, st.Name)
		}

		if t.UpdateStatus(subtasks) {
			if err := s.repo.UpdateTask(ctx, t); err != nil {
				return fmt.Errorf("обновление статуса задачи: %w", err)
			}
		}

		if err := s.repo.CreateAction(ctx, task.NewAction(t, u.ID, task.AssignedDetails{Subtasks: names})); err != nil {
			return fmt.Errorf("запись истории: %w", err)
		}

		result.Task = t
		result.Claimed = names
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Service: Подзадачи взяты в работу",
		zap.String("task_id", taskID.String()),
		zap.String("user_id", u.ID.String()),
		zap.Int("count", len(result.Claimed)))
	return result, nil
}

// CompletionTarget проверяет право на завершение без изменений, для окна подтверждения
func (s *TaskService) CompletionTarget(ctx context.Context, u *user.User, subtaskID uuid.UUID) (*task.Subtask, *task.Task, error) {
	st, err := s.repo.GetSubtask(ctx, subtaskID)
	if err != nil {
		return nil, nil, translate(err, ResourceSubtask, subtaskID, "получение подзадачи")
	}
	if err := s.ensureAssigned(ctx, u, st); err != nil {
		return nil, nil, err
	}

	t, err := s.repo.GetTask(ctx, st.TaskID)
	if err != nil {
		return nil, nil, translate(err, ResourceTask, st.TaskID, "получение задачи")
	}
	return st, t, nil
}

func (s *TaskService) ensureAssigned(ctx context.Context, u *user.User, st *task.Subtask) error {
	assigned, err := s.repo.HasAssignment(ctx, st.ID, u.ID)
	if err != nil {
		return fmt.Errorf("проверка назначения: %w", err)
	}
	if !assigned {
		logger.Info("Service: Попытка завершить чужую подзадачу",
			zap.String("subtask_id", st.ID.String()),
			zap.String("user_id", u.ID.String()))
		return NewForbidden("У вас нет прав на завершение этой подзадачи")
	}
	return nil
}

// CompleteSubtask завершает подзадачу назначенного пользователя и пересчитывает задачу
func (s *TaskService) CompleteSubtask(ctx context.Context, u *user.User, subtaskID uuid.UUID) (*task.Subtask, error) {
	var completed *task.Subtask
	err := s.repo.InTx(ctx, func(ctx context.Context) error {
		st, err := s.repo.GetSubtask(ctx, subtaskID)
		if err != nil {
			return translate(err, ResourceSubtask, subtaskID, "получение подзадачи")
		}
		if err := s.ensureAssigned(ctx, u, st); err != nil {
			return err
		}
		if st.Status == task.SubtaskCompleted {
			return NewBusinessError(CodeAlreadyCompleted, "Подзадача уже завершена",
				ToDetail("subtask_id", st.ID.String()))
		}

		st.Complete(s.now())
		if err := s.repo.UpdateSubtask(ctx, st); err != nil {
			return fmt.Errorf("обновление подзадачи: %w", err)
		}

		t, err := s.recomputeStatus(ctx, st.TaskID)
		if err != nil {
			return err
		}

		if err := s.repo.CreateAction(ctx, task.NewAction(t, u.ID, task.CompletedFrom(st))); err != nil {
			return fmt.Errorf("запись истории: %w", err)
		}
		completed = st
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Service: Подзадача завершена",
		zap.String("subtask_id", subtaskID.String()),
		zap.Int("duration_minutes", completed.DurationMinutes()))
	return completed, nil
}

// recomputeStatus выводит статус задачи из подзадач и сохраняет его при изменении
func (s *TaskService) recomputeStatus(ctx context.Context, taskID uuid.UUID) (*task.Task, error) {
	t, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return nil, translate(err, ResourceTask, taskID, "получение задачи")
	}
	subtasks, err := s.repo.ListSubtasks(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("получение подзадач: %w", err)
	}
	if t.UpdateStatus(subtasks) {
		if err := s.repo.UpdateTask(ctx, t); err != nil {
			return nil, fmt.Errorf("обновление статуса задачи: %w", err)
		}
	}
	t.Subtasks = subtasks
	return t, nil
}

func (s *TaskService) GetSubtask(ctx context.Context, id uuid.UUID) (*task.Subtask, error) {
	st, err := s.repo.GetSubtask(ctx, id)
	if err != nil {
		return nil, translate(err, ResourceSubtask, id, "получение подзадачи")
	}
	assignments, err := s.repo.ListAssignments(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("получение назначений: %w", err)
	}
	st.Assignments = assignments
	return st, nil
}

type SubtaskUpdate struct {
	Name  *string
	Order *int
}

// UpdateSubtask меняет название и порядок, статус не затрагивается
func (s *TaskService) UpdateSubtask(ctx context.Context, u *user.User, id uuid.UUID, upd SubtaskUpdate) (*task.Subtask, error) {
	if !u.CanCreateTasks() {
		return nil, NewForbidden("Доступ запрещен")
	}
	if upd.Order != nil && *upd.Order < 0 {
		return nil, NewValidationError("order", "Некорректный порядок")
	}

	var updated *task.Subtask
	err := s.repo.InTx(ctx, func(ctx context.Context) error {
		st, err := s.repo.GetSubtask(ctx, id)
		if err != nil {
			return translate(err, ResourceSubtask, id, "получение подзадачи")
		}

		if upd.Name != nil {
			if name := strings.TrimSpace(*upd.Name); name != "" {
				st.Name = name
			}
		}
		if upd.Order != nil {
			st.Order = *upd.Order
		}

		if err := s.repo.UpdateSubtask(ctx, st); err != nil {
			return translate(err, ResourceSubtask, id, "обновление подзадачи")
		}
		updated = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteSubtask удаляет подзадачу и пересчитывает статус задачи
func (s *TaskService) DeleteSubtask(ctx context.Context, u *user.User, id uuid.UUID) (*task.Subtask, error) {
	if !u.CanCreateTasks() {
		return nil, NewForbidden("Недостаточно прав для удаления подзадач")
	}

	var deleted *task.Subtask
	err := s.repo.InTx(ctx, func(ctx context.Context) error {
		st, err := s.repo.GetSubtask(ctx, id)
		if err != nil {
			return translate(err, ResourceSubtask, id, "получение подзадачи")
		}
		if err := s.repo.DeleteSubtask(ctx, id); err != nil {
			return translate(err, ResourceSubtask, id, "удаление подзадачи")
		}
		if _, err := s.recomputeStatus(ctx, st.TaskID); err != nil {
			return err
		}
		deleted = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

type ManagementStats struct {
	Total      int
	Available  int
	InProgress int
	Completed  int
}

func (s *TaskService) ManagementStats(ctx context.Context) (*ManagementStats, error) {
	counts, err := s.repo.CountTasksByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("подсчёт задач: %w", err)
	}

	stats := &ManagementStats{
		Available:  counts[task.StatusAvailable],
		InProgress: counts[task.StatusInProgress],
		Completed:  counts[task.StatusCompleted],
	}
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}
