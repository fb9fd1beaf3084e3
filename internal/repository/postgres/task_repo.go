package postgres

import (
	"context"
	"errors"
	"shiftTracker/internal/logger"
	"shiftTracker/internal/models/task"
	repo "shiftTracker/internal/repository"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const taskSelect = `SELECT t.id, t.title, t.date, t.status, t.template_id, t.created_by, t.created_at, t.updated_at,
				u.full_name, u.username, COALESCE(tt.name, '')
				FROM tasks t
				JOIN users u ON u.id = t.created_by
				LEFT JOIN task_templates tt ON tt.id = t.template_id`

const subtaskColumns = `id, task_id, name, status, sort_order, started_at, completed_at, created_at`

// created_at через clock_timestamp(): порядок вставок внутри транзакции сохраняется
func (s *Storage) CreateTask(ctx context.Context, taskToCreate *task.Task) error {
	start := time.Now()
	defer s.observe("create_task", start)

	if taskToCreate.ID == uuid.Nil {
		taskToCreate.ID = uuid.New()
	}

	query := `INSERT INTO tasks
				(id, title, date, status, template_id, created_by, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, clock_timestamp(), clock_timestamp())
				RETURNING created_at, updated_at`

	err := s.db(ctx).QueryRow(ctx, query,
		taskToCreate.ID,
		taskToCreate.Title,
		taskToCreate.Date,
		taskToCreate.Status,
		taskToCreate.TemplateID,
		taskToCreate.CreatedBy,
	).Scan(&taskToCreate.CreatedAt, &taskToCreate.UpdatedAt)
	if err != nil {
		logger.Error("Repository: Не удалось добавить задачу", err, zap.Duration("ms", time.Since(start)))
		return wrap("добавление задачи", err)
	}
	return nil
}

func (s *Storage) UpdateTask(ctx context.Context, taskToUpdate *task.Task) error {
	start := time.Now()
	defer s.observe("update_task", start)

	query := `UPDATE tasks
			SET title = $1,
				date = $2,
				status = $3,
				template_id = $4,
				updated_at = clock_timestamp()
			WHERE id = $5
			RETURNING created_at, updated_at`

	err := s.db(ctx).QueryRow(ctx, query,
		taskToUpdate.Title,
		taskToUpdate.Date,
		taskToUpdate.Status,
		taskToUpdate.TemplateID,
		taskToUpdate.ID,
	).Scan(&taskToUpdate.CreatedAt, &taskToUpdate.UpdatedAt)
	if err != nil {
		logger.Error("Repository: Не удалось обновить задачу", err, zap.String("task_id", taskToUpdate.ID.String()))
		return wrap("обновление задачи", err)
	}
	return nil
}

// подзадачи и назначения удаляются каскадно, история остаётся с task_id = NULL
func (s *Storage) DeleteTask(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	defer s.observe("delete_task", start)

	tag, err := s.db(ctx).Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		logger.Error("Repository: Полное удаление задачи", err, zap.Duration("ms", time.Since(start)))
		return wrap("удаление задачи", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Storage) GetTask(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	start := time.Now()
	defer s.observe("get_task", start)

	t, err := scanTask(s.db(ctx).QueryRow(ctx, taskSelect+` WHERE t.id = $1`, id))
	if err != nil {
		return nil, wrap("получение задачи", err)
	}
	return t, nil
}

func (s *Storage) ListTasksOn(ctx context.Context, date time.Time) ([]*task.Task, error) {
	return s.listTasks(ctx, "list_tasks_on", taskSelect+` WHERE t.date = $1 ORDER BY t.created_at DESC`, date)
}

func (s *Storage) ListTasksFrom(ctx context.Context, from time.Time) ([]*task.Task, error) {
	return s.listTasks(ctx, "list_tasks_from", taskSelect+` WHERE t.date >= $1 ORDER BY t.date, t.created_at DESC`, from)
}

func (s *Storage) listTasks(ctx context.Context, op, query string, args ...any) ([]*task.Task, error) {
	start := time.Now()
	defer s.observe(op, start)

	rows, err := s.db(ctx).Query(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: Не удалось получить задачи", err, zap.Duration("ms", time.Since(start)))
		return nil, wrap("получение задач", err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			logger.Warn("Repository: Ошибка сканирования задачи", zap.Error(err))
			return nil, wrap("сканирование задачи", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, wrap("итерация по строкам", err)
	}
	return tasks, nil
}

func (s *Storage) CountTasksByStatus(ctx context.Context) (map[task.Status]int, error) {
	start := time.Now()
	defer s.observe("count_tasks", start)

	rows, err := s.db(ctx).Query(ctx, `SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		logger.Error("Repository: Не удалось посчитать задачи", err)
		return nil, wrap("подсчёт задач", err)
	}
	defer rows.Close()

	res := make(map[task.Status]int)
	for rows.Next() {
		var status task.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, wrap("сканирование статуса", err)
		}
		res[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("итерация по строкам", err)
	}
	return res, nil
}

func scanTask(row rowScanner) (*task.Task, error) {
	t := &task.Task{}
	var fullName, username string
	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Date,
		&t.Status,
		&t.TemplateID,
		&t.CreatedBy,
		&t.CreatedAt,
		&t.UpdatedAt,
		&fullName,
		&username,
		&t.TemplateName,
	)
	if err != nil {
		return nil, err
	}
	t.Date = task.Day(t.Date)
	t.CreatorName = displayName(fullName, username)
	return t, nil
}

func (s *Storage) CreateSubtask(ctx context.Context, st *task.Subtask) error {
	start := time.Now()
	defer s.observe("create_subtask", start)

	if st.ID == uuid.Nil {
		st.ID = uuid.New()
	}

	query := `INSERT INTO subtasks
				(id, task_id, name, status, sort_order, started_at, completed_at, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, clock_timestamp())
				RETURNING created_at`

	err := s.db(ctx).QueryRow(ctx, query,
		st.ID,
		st.TaskID,
		st.Name,
		st.Status,
		st.Order,
		st.StartedAt,
		st.CompletedAt,
	).Scan(&st.CreatedAt)
	if err != nil {
		logger.Error("Repository: Не удалось добавить подзадачу", err)
		return wrap("добавление подзадачи", err)
	}
	return nil
}

func (s *Storage) UpdateSubtask(ctx context.Context, st *task.Subtask) error {
	start := time.Now()
	defer s.observe("update_subtask", start)

	query := `UPDATE subtasks
			SET name = $1,
				status = $2,
				sort_order = $3,
				started_at = $4,
				completed_at = $5
			WHERE id = $6`

	tag, err := s.db(ctx).Exec(ctx, query,
		st.Name,
		st.Status,
		st.Order,
		st.StartedAt,
		st.CompletedAt,
		st.ID,
	)
	if err != nil {
		logger.Error("Repository: Не удалось обновить подзадачу", err, zap.String("subtask_id", st.ID.String()))
		return wrap("обновление подзадачи", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Storage) DeleteSubtask(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	defer s.observe("delete_subtask", start)

	tag, err := s.db(ctx).Exec(ctx, `DELETE FROM subtasks WHERE id = $1`, id)
	if err != nil {
		logger.Error("Repository: Не удалось удалить подзадачу", err)
		return wrap("удаление подзадачи", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Storage) GetSubtask(ctx context.Context, id uuid.UUID) (*task.Subtask, error) {
	start := time.Now()
	defer s.observe("get_subtask", start)

	query := `SELECT ` + subtaskColumns + ` FROM subtasks WHERE id = $1`
	st, err := scanSubtask(s.db(ctx).QueryRow(ctx, query, id))
	if err != nil {
		return nil, wrap("получение подзадачи", err)
	}
	return st, nil
}

func (s *Storage) ListSubtasks(ctx context.Context, taskIDs ...uuid.UUID) ([]*task.Subtask, error) {
	start := time.Now()
	defer s.observe("list_subtasks", start)

	if len(taskIDs) == 0 {
		return []*task.Subtask{}, nil
	}

	query := `SELECT ` + subtaskColumns + ` FROM subtasks
				WHERE task_id = ANY($1::uuid[])
				ORDER BY sort_order, created_at`

	rows, err := s.db(ctx).Query(ctx, query, idStrings(taskIDs))
	if err != nil {
		logger.Error("Repository: Не удалось получить подзадачи", err)
		return nil, wrap("получение подзадач", err)
	}
	defer rows.Close()

	subtasks := []*task.Subtask{}
	for rows.Next() {
		st, err := scanSubtask(rows)
		if err != nil {
			return nil, wrap("сканирование подзадачи", err)
		}
		subtasks = append(subtasks, st)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("итерация по строкам", err)
	}
	return subtasks, nil
}

func scanSubtask(row rowScanner) (*task.Subtask, error) {
	st := &task.Subtask{}
	err := row.Scan(
		&st.ID,
		&st.TaskID,
		&st.Name,
		&st.Status,
		&st.Order,
		&st.StartedAt,
		&st.CompletedAt,
		&st.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// CreateAssignment возвращает false, если пользователь уже назначен
func (s *Storage) CreateAssignment(ctx context.Context, a *task.Assignment) (bool, error) {
	start := time.Now()
	defer s.observe("create_assignment", start)

	query := `WITH inserted AS (
				INSERT INTO subtask_assignments (subtask_id, user_id, assigned_at)
				VALUES ($1, $2, clock_timestamp())
				ON CONFLICT (subtask_id, user_id) DO NOTHING
				RETURNING assigned_at, user_id
			)
			SELECT i.assigned_at, u.full_name, u.username
			FROM inserted i JOIN users u ON u.id = i.user_id`

	var fullName, username string
	err := s.db(ctx).QueryRow(ctx, query, a.SubtaskID, a.UserID).Scan(&a.AssignedAt, &fullName, &username)
	if err != nil {
		// пустой результат означает, что назначение уже есть
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		logger.Error("Repository: Не удалось назначить подзадачу", err)
		return false, wrap("назначение подзадачи", err)
	}
	a.UserName = firstName(fullName, username)
	return true, nil
}

func (s *Storage) ListAssignments(ctx context.Context, subtaskIDs ...uuid.UUID) ([]*task.Assignment, error) {
	start := time.Now()
	defer s.observe("list_assignments", start)

	if len(subtaskIDs) == 0 {
		return []*task.Assignment{}, nil
	}

	query := `SELECT a.subtask_id, a.user_id, a.assigned_at, u.full_name, u.username
				FROM subtask_assignments a
				JOIN users u ON u.id = a.user_id
				WHERE a.subtask_id = ANY($1::uuid[])
				ORDER BY a.assigned_at, u.username`

	rows, err := s.db(ctx).Query(ctx, query, idStrings(subtaskIDs))
	if err != nil {
		logger.Error("Repository: Не удалось получить назначения", err)
		return nil, wrap("получение назначений", err)
	}
	defer rows.Close()

	assignments := []*task.Assignment{}
	for rows.Next() {
		a := &task.Assignment{}
		var fullName, username string
		if err := rows.Scan(&a.SubtaskID, &a.UserID, &a.AssignedAt, &fullName, &username); err != nil {
			return nil, wrap("сканирование назначения", err)
		}
		a.UserName = firstName(fullName, username)
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("итерация по строкам", err)
	}
	return assignments, nil
}

func (s *Storage) HasAssignment(ctx context.Context, subtaskID, userID uuid.UUID) (bool, error) {
	start := time.Now()
	defer s.observe("has_assignment", start)

	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM subtask_assignments WHERE subtask_id = $1 AND user_id = $2)`
	if err := s.db(ctx).QueryRow(ctx, query, subtaskID, userID).Scan(&exists); err != nil {
		return false, wrap("проверка назначения", err)
	}
	return exists, nil
}

func (s *Storage) CreateAction(ctx context.Context, action *task.Action) error {
	start := time.Now()
	defer s.observe("create_action", start)

	if action.ID == uuid.Nil {
		action.ID = uuid.New()
	}

	details, err := task.EncodeDetails(action.Details)
	if err != nil {
		return wrap("сериализация деталей", err)
	}

	query := `WITH inserted AS (
				INSERT INTO task_actions (id, task_id, task_title, user_id, action_type, acted_at, details)
				VALUES ($1, $2, $3, $4, $5, clock_timestamp(), $6)
				RETURNING acted_at, user_id
			)
			SELECT i.acted_at, u.full_name, u.username
			FROM inserted i JOIN users u ON u.id = i.user_id`

	var fullName, username string
	err = s.db(ctx).QueryRow(ctx, query,
		action.ID,
		action.TaskID,
		action.TaskTitle,
		action.UserID,
		action.Type,
		details,
	).Scan(&action.Timestamp, &fullName, &username)
	if err != nil {
		logger.Error("Repository: Не удалось записать действие", err, zap.String("action", string(action.Type)))
		return wrap("запись действия", err)
	}
	action.UserName = firstName(fullName, username)
	return nil
}

func (s *Storage) ListActions(ctx context.Context, taskID uuid.UUID, limit int) ([]*task.Action, error) {
	start := time.Now()
	defer s.observe("list_actions", start)

	query := `SELECT a.id, a.task_id, a.task_title, a.user_id, a.action_type, a.acted_at, a.details,
				u.full_name, u.username
				FROM task_actions a
				JOIN users u ON u.id = a.user_id
				WHERE a.task_id = $1
				ORDER BY a.acted_at DESC
				LIMIT NULLIF($2, 0)`

	rows, err := s.db(ctx).Query(ctx, query, taskID, limit)
	if err != nil {
		logger.Error("Repository: Не удалось получить историю", err)
		return nil, wrap("получение истории", err)
	}
	defer rows.Close()

	actions := []*task.Action{}
	for rows.Next() {
		a := &task.Action{}
		var raw []byte
		var fullName, username string
		err := rows.Scan(&a.ID, &a.TaskID, &a.TaskTitle, &a.UserID, &a.Type, &a.Timestamp, &raw, &fullName, &username)
		if err != nil {
			return nil, wrap("сканирование действия", err)
		}
		a.UserName = firstName(fullName, username)
		a.Details, err = task.DecodeDetails(a.Type, raw)
		if err != nil {
			logger.Warn("Repository: Не удалось разобрать детали действия", zap.Error(err), zap.String("action_id", a.ID.String()))
		}
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("итерация по строкам", err)
	}
	return actions, nil
}
