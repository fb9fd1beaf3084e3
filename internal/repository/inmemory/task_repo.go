package inmemory

import (
	"cmp"
	"context"
	"shiftTracker/internal/models/task"
	repo "shiftTracker/internal/repository"
	"slices"
	"time"

	"github.com/google/uuid"
)

func (s *Storage) CreateTask(ctx context.Context, taskToCreate *task.Task) error {
	defer s.lock(ctx)()

	if taskToCreate.ID == uuid.Nil {
		taskToCreate.ID = uuid.New()
	}
	now := time.Now()
	taskToCreate.CreatedAt = now
	taskToCreate.UpdatedAt = now

	stored := *taskToCreate
	stored.Subtasks = nil
	s.tasks[stored.ID] = &stored
	s.nextSeq(stored.ID)
	return nil
}

func (s *Storage) UpdateTask(ctx context.Context, taskToUpdate *task.Task) error {
	defer s.lock(ctx)()

	existing, ok := s.tasks[taskToUpdate.ID]
	if !ok {
		return repo.ErrNotFound
	}
	taskToUpdate.CreatedAt = existing.CreatedAt
	taskToUpdate.UpdatedAt = time.Now()

	stored := *taskToUpdate
	stored.Subtasks = nil
	s.tasks[stored.ID] = &stored
	return nil
}

// удаление задачи удаляет подзадачи и назначения, история действий остаётся без ссылки на задачу
func (s *Storage) DeleteTask(ctx context.Context, id uuid.UUID) error {
	defer s.lock(ctx)()

	if _, ok := s.tasks[id]; !ok {
		return repo.ErrNotFound
	}
	delete(s.tasks, id)
	delete(s.seq, id)

	for subtaskID, st := range s.subtasks {
		if st.TaskID == id {
			s.deleteSubtask(subtaskID)
		}
	}

	for i, a := range s.actions {
		if a.TaskID != nil && *a.TaskID == id {
			detached := *a
			detached.TaskID = nil
			s.actions[i] = &detached
		}
	}
	return nil
}

func (s *Storage) GetTask(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	defer s.rlock(ctx)()

	t, ok := s.tasks[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return s.taskView(t), nil
}

// задачи на дату, новые первыми
func (s *Storage) ListTasksOn(ctx context.Context, date time.Time) ([]*task.Task, error) {
	defer s.rlock(ctx)()

	res := []*task.Task{}
	for _, t := range s.tasks {
		if t.Date.Equal(date) {
			res = append(res, s.taskView(t))
		}
	}
	slices.SortFunc(res, s.newestFirst)
	return res, nil
}

// задачи начиная с даты, по возрастанию даты
func (s *Storage) ListTasksFrom(ctx context.Context, from time.Time) ([]*task.Task, error) {
	defer s.rlock(ctx)()

	res := []*task.Task{}
	for _, t := range s.tasks {
		if !t.Date.Before(from) {
			res = append(res, s.taskView(t))
		}
	}
	slices.SortFunc(res, func(a, b *task.Task) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return s.newestFirst(a, b)
	})
	return res, nil
}

func (s *Storage) CountTasksByStatus(ctx context.Context) (map[task.Status]int, error) {
	defer s.rlock(ctx)()

	res := make(map[task.Status]int)
	for _, t := range s.tasks {
		res[t.Status]++
	}
	return res, nil
}

func (s *Storage) newestFirst(a, b *task.Task) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(s.seq[b.ID], s.seq[a.ID])
}

func (s *Storage) taskView(t *task.Task) *task.Task {
	res := *t
	res.CreatorName = s.displayName(t.CreatedBy)
	if t.TemplateID != nil {
		if tmpl, ok := s.templates[*t.TemplateID]; ok {
			res.TemplateName = tmpl.Name
		}
	}
	return &res
}

func (s *Storage) CreateSubtask(ctx context.Context, st *task.Subtask) error {
	defer s.lock(ctx)()

	if _, ok := s.tasks[st.TaskID]; !ok {
		return repo.ErrNotFound
	}
	if st.ID == uuid.Nil {
		st.ID = uuid.New()
	}
	st.CreatedAt = time.Now()

	stored := *st
	stored.Assignments = nil
	s.subtasks[stored.ID] = &stored
	s.nextSeq(stored.ID)
	return nil
}

func (s *Storage) UpdateSubtask(ctx context.Context, st *task.Subtask) error {
	defer s.lock(ctx)()

	if _, ok := s.subtasks[st.ID]; !ok {
		return repo.ErrNotFound
	}

	stored := *st
	stored.Assignments = nil
	s.subtasks[stored.ID] = &stored
	return nil
}

func (s *Storage) DeleteSubtask(ctx context.Context, id uuid.UUID) error {
	defer s.lock(ctx)()

	if _, ok := s.subtasks[id]; !ok {
		return repo.ErrNotFound
	}
	s.deleteSubtask(id)
	return nil
}

func (s *Storage) deleteSubtask(id uuid.UUID) {
	delete(s.subtasks, id)
	delete(s.seq, id)
	for key := range s.assignments {
		if key.subtask == id {
			delete(s.assignments, key)
		}
	}
}

func (s *Storage) GetSubtask(ctx context.Context, id uuid.UUID) (*task.Subtask, error) {
	defer s.rlock(ctx)()

	st, ok := s.subtasks[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	res := *st
	return &res, nil
}

func (s *Storage) ListSubtasks(ctx context.Context, taskIDs ...uuid.UUID) ([]*task.Subtask, error) {
	defer s.rlock(ctx)()

	res := []*task.Subtask{}
	for _, st := range s.subtasks {
		if !slices.Contains(taskIDs, st.TaskID) {
			continue
		}
		stCopy := *st
		res = append(res, &stCopy)
	}

	slices.SortFunc(res, func(a, b *task.Subtask) int {
		if c := cmp.Compare(a.Order, b.Order); c != 0 {
			return c
		}
		return cmp.Compare(s.seq[a.ID], s.seq[b.ID])
	})
	return res, nil
}

// CreateAssignment возвращает false, если пользователь уже назначен
func (s *Storage) CreateAssignment(ctx context.Context, a *task.Assignment) (bool, error) {
	defer s.lock(ctx)()

	if _, ok := s.subtasks[a.SubtaskID]; !ok {
		return false, repo.ErrNotFound
	}

	key := assignmentKey{subtask: a.SubtaskID, user: a.UserID}
	if _, exists := s.assignments[key]; exists {
		return false, nil
	}

	a.AssignedAt = time.Now()
	a.UserName = s.firstName(a.UserID)

	stored := *a
	s.assignments[key] = &stored
	return true, nil
}

func (s *Storage) ListAssignments(ctx context.Context, subtaskIDs ...uuid.UUID) ([]*task.Assignment, error) {
	defer s.rlock(ctx)()

	res := []*task.Assignment{}
	for key, a := range s.assignments {
		if !slices.Contains(subtaskIDs, key.subtask) {
			continue
		}
		aCopy := *a
		aCopy.UserName = s.firstName(a.UserID)
		res = append(res, &aCopy)
	}

	slices.SortFunc(res, func(a, b *task.Assignment) int {
		if c := a.AssignedAt.Compare(b.AssignedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.UserName, b.UserName)
	})
	return res, nil
}

func (s *Storage) HasAssignment(ctx context.Context, subtaskID, userID uuid.UUID) (bool, error) {
	defer s.rlock(ctx)()

	_, ok := s.assignments[assignmentKey{subtask: subtaskID, user: userID}]
	return ok, nil
}

func (s *Storage) CreateAction(ctx context.Context, action *task.Action) error {
	defer s.lock(ctx)()

	if action.ID == uuid.Nil {
		action.ID = uuid.New()
	}
	action.Timestamp = time.Now()
	action.UserName = s.firstName(action.UserID)

	stored := *action
	s.actions = append(s.actions, &stored)
	return nil
}

// история по задаче, новые записи первыми
func (s *Storage) ListActions(ctx context.Context, taskID uuid.UUID, limit int) ([]*task.Action, error) {
	defer s.rlock(ctx)()

	res := []*task.Action{}
	for i := len(s.actions) - 1; i >= 0; i-- {
		if limit > 0 && len(res) >= limit {
			break
		}
		a := s.actions[i]
		if a.TaskID == nil || *a.TaskID != taskID {
			continue
		}
		aCopy := *a
		res = append(res, &aCopy)
	}
	return res, nil
}
