package postgres

import (
	"context"
	"shiftTracker/internal/logger"
	"shiftTracker/internal/models/template"
	repo "shiftTracker/internal/repository"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const templateColumns = `id, name, description, is_active, available_for_managers, created_by, created_at, updated_at`
const itemColumns = `id, name, description, is_active, created_by, created_at, updated_at`

func (s *Storage) CreateTemplate(ctx context.Context, t *template.TaskTemplate) error {
	start := time.Now()
	defer s.observe("create_template", start)

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	query := `INSERT INTO task_templates
				(id, name, description, is_active, available_for_managers, created_by)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING created_at, updated_at`

	err := s.db(ctx).QueryRow(ctx, query,
		t.ID,
		t.Name,
		t.Description,
		t.IsActive,
		t.AvailableForManagers,
		t.CreatedBy,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		logger.Error("Repository: Не удалось добавить шаблон", err)
		return wrap("добавление шаблона", err)
	}
	return nil
}

func (s *Storage) UpdateTemplate(ctx context.Context, t *template.TaskTemplate) error {
	start := time.Now()
	defer s.observe("update_template", start)

	query := `UPDATE task_templates
			SET name = $1,
				description = $2,
				is_active = $3,
				available_for_managers = $4,
				updated_at = NOW()
			WHERE id = $5
			RETURNING updated_at`

	err := s.db(ctx).QueryRow(ctx, query,
		t.Name,
		t.Description,
		t.IsActive,
		t.AvailableForManagers,
		t.ID,
	).Scan(&t.UpdatedAt)
	if err != nil {
		logger.Error("Repository: Не удалось обновить шаблон", err, zap.String("template_id", t.ID.String()))
		return wrap("обновление шаблона", err)
	}
	return nil
}

// записи шаблона удаляются каскадно, задачи теряют ссылку через ON DELETE SET NULL
func (s *Storage) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	defer s.observe("delete_template", start)

	tag, err := s.db(ctx).Exec(ctx, `DELETE FROM task_templates WHERE id = $1`, id)
	if err != nil {
		logger.Error("Repository: Не удалось удалить шаблон", err)
		return wrap("удаление шаблона", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Storage) GetTemplate(ctx context.Context, id uuid.UUID) (*template.TaskTemplate, error) {
	start := time.Now()
	defer s.observe("get_template", start)

	query := `SELECT ` + templateColumns + ` FROM task_templates WHERE id = $1`
	t, err := scanTemplate(s.db(ctx).QueryRow(ctx, query, id))
	if err != nil {
		return nil, wrap("получение шаблона", err)
	}

	if err := s.loadEntries(ctx, []*template.TaskTemplate{t}); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Storage) ListTemplates(ctx context.Context, filter template.Filter) ([]*template.TaskTemplate, error) {
	start := time.Now()
	defer s.observe("list_templates", start)

	query := `SELECT ` + templateColumns + ` FROM task_templates
				WHERE ($1 = FALSE OR is_active)
				AND ($2 = FALSE OR available_for_managers)
				ORDER BY name`

	rows, err := s.db(ctx).Query(ctx, query, filter.OnlyActive, filter.OnlyForManagers)
	if err != nil {
		logger.Error("Repository: Не удалось получить шаблоны", err)
		return nil, wrap("получение шаблонов", err)
	}
	defer rows.Close()

	templates := []*template.TaskTemplate{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, wrap("сканирование шаблона", err)
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, wrap("итерация по строкам", err)
	}

	if err := s.loadEntries(ctx, templates); err != nil {
		return nil, err
	}
	return templates, nil
}

func (s *Storage) loadEntries(ctx context.Context, templates []*template.TaskTemplate) error {
	if len(templates) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*template.TaskTemplate, len(templates))
	ids := make([]uuid.UUID, 0, len(templates))
	for _, t := range templates {
		t.Entries = []*template.Entry{}
		byID[t.ID] = t
		ids = append(ids, t.ID)
	}

	query := `SELECT e.template_id, e.item_id, e.sort_order,
				i.id, i.name, i.description, i.is_active, i.created_by, i.created_at, i.updated_at
				FROM template_entries e
				JOIN subtask_items i ON i.id = e.item_id
				WHERE e.template_id = ANY($1::uuid[])
				ORDER BY e.sort_order, i.name`

	rows, err := s.db(ctx).Query(ctx, query, idStrings(ids))
	if err != nil {
		logger.Error("Repository: Не удалось получить подзадачи шаблонов", err)
		return wrap("получение подзадач шаблонов", err)
	}
	defer rows.Close()

	for rows.Next() {
		e := &template.Entry{Item: &template.SubtaskItem{}}
		err := rows.Scan(
			&e.TemplateID,
			&e.ItemID,
			&e.Order,
			&e.Item.ID,
			&e.Item.Name,
			&e.Item.Description,
			&e.Item.IsActive,
			&e.Item.CreatedBy,
			&e.Item.CreatedAt,
			&e.Item.UpdatedAt,
		)
		if err != nil {
			return wrap("сканирование подзадачи шаблона", err)
		}
		if t, ok := byID[e.TemplateID]; ok {
			t.Entries = append(t.Entries, e)
		}
	}
	if err := rows.Err(); err != nil {
		return wrap("итерация по строкам", err)
	}
	return nil
}

// ReplaceTemplateEntries полностью заменяет набор подзадач шаблона
func (s *Storage) ReplaceTemplateEntries(ctx context.Context, templateID uuid.UUID, entries []*template.Entry) error {
	start := time.Now()
	defer s.observe("replace_template_entries", start)

	return s.InTx(ctx, func(ctx context.Context) error {
		var exists bool
		err := s.db(ctx).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM task_templates WHERE id = $1)`, templateID).Scan(&exists)
		if err != nil {
			return wrap("проверка шаблона", err)
		}
		if !exists {
			return repo.ErrNotFound
		}

		if _, err := s.db(ctx).Exec(ctx, `DELETE FROM template_entries WHERE template_id = $1`, templateID); err != nil {
			return wrap("очистка подзадач шаблона", err)
		}
		if len(entries) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for _, e := range entries {
			batch.Queue(`INSERT INTO template_entries (template_id, item_id, sort_order) VALUES ($1, $2, $3)`,
				templateID, e.ItemID, e.Order)
		}

		results := s.db(ctx).SendBatch(ctx, batch)
		for range entries {
			if _, err := results.Exec(); err != nil {
				results.Close()
				logger.Warn("Repository: Не удалось добавить подзадачу в шаблон", zap.Error(err))
				return wrap("добавление подзадачи в шаблон", err)
			}
		}
		return results.Close()
	})
}

func scanTemplate(row rowScanner) (*template.TaskTemplate, error) {
	t := &template.TaskTemplate{}
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Description,
		&t.IsActive,
		&t.AvailableForManagers,
		&t.CreatedBy,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func scanItem(row rowScanner) (*template.SubtaskItem, error) {
	item := &template.SubtaskItem{}
	err := row.Scan(
		&item.ID,
		&item.Name,
		&item.Description,
		&item.IsActive,
		&item.CreatedBy,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Storage) CreateSubtaskItem(ctx context.Context, item *template.SubtaskItem) error {
	start := time.Now()
	defer s.observe("create_subtask_item", start)

	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}

	query := `INSERT INTO subtask_items
				(id, name, description, is_active, created_by)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING created_at, updated_at`

	err := s.db(ctx).QueryRow(ctx, query,
		item.ID,
		item.Name,
		item.Description,
		item.IsActive,
		item.CreatedBy,
	).Scan(&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		logger.Error("Repository: Не удалось добавить объект подзадачи", err)
		return wrap("добавление объекта подзадачи", err)
	}
	return nil
}

func (s *Storage) UpdateSubtaskItem(ctx context.Context, item *template.SubtaskItem) error {
	start := time.Now()
	defer s.observe("update_subtask_item", start)

	query := `UPDATE subtask_items
			SET name = $1,
				description = $2,
				is_active = $3,
				updated_at = NOW()
			WHERE id = $4
			RETURNING updated_at`

	err := s.db(ctx).QueryRow(ctx, query, item.Name, item.Description, item.IsActive, item.ID).Scan(&item.UpdatedAt)
	if err != nil {
		logger.Error("Repository: Не удалось обновить объект подзадачи", err)
		return wrap("обновление объекта подзадачи", err)
	}
	return nil
}

func (s *Storage) GetSubtaskItem(ctx context.Context, id uuid.UUID) (*template.SubtaskItem, error) {
	start := time.Now()
	defer s.observe("get_subtask_item", start)

	query := `SELECT ` + itemColumns + ` FROM subtask_items WHERE id = $1`
	item, err := scanItem(s.db(ctx).QueryRow(ctx, query, id))
	if err != nil {
		return nil, wrap("получение объекта подзадачи", err)
	}
	return item, nil
}

func (s *Storage) FindSubtaskItemByName(ctx context.Context, name string) (*template.SubtaskItem, error) {
	start := time.Now()
	defer s.observe("find_subtask_item", start)

	query := `SELECT ` + itemColumns + ` FROM subtask_items WHERE name = $1 ORDER BY created_at LIMIT 1`
	item, err := scanItem(s.db(ctx).QueryRow(ctx, query, name))
	if err != nil {
		return nil, wrap("поиск объекта подзадачи", err)
	}
	return item, nil
}

func (s *Storage) ListSubtaskItems(ctx context.Context, onlyActive bool) ([]*template.SubtaskItem, error) {
	start := time.Now()
	defer s.observe("list_subtask_items", start)

	query := `SELECT ` + itemColumns + ` FROM subtask_items
				WHERE ($1 = FALSE OR is_active)
				ORDER BY name`

	rows, err := s.db(ctx).Query(ctx, query, onlyActive)
	if err != nil {
		logger.Error("Repository: Не удалось получить объекты подзадач", err)
		return nil, wrap("получение объектов подзадач", err)
	}
	defer rows.Close()

	items := []*template.SubtaskItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, wrap("сканирование объекта подзадачи", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("итерация по строкам", err)
	}
	return items, nil
}
