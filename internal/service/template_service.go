package service

import (
	"context"
	"errors"
	"fmt"
	"shiftTracker/internal/logger"
	"shiftTracker/internal/models/template"
	"shiftTracker/internal/models/user"
	repo "shiftTracker/internal/repository"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TemplateService struct {
	repo TemplateRepository
}

func NewTemplateService(repo TemplateRepository) *TemplateService {
	return &TemplateService{repo: repo}
}

// ListTemplates - шаблоны, видимые пользователю
func (s *TemplateService) ListTemplates(ctx context.Context, u *user.User, onlyActive bool) ([]*template.TaskTemplate, error) {
	templates, err := s.repo.ListTemplates(ctx, template.FilterFor(u, onlyActive))
	if err != nil {
		return nil, fmt.Errorf("получение шаблонов: %w", err)
	}
	return templates, nil
}

func (s *TemplateService) GetTemplate(ctx context.Context, u *user.User, id uuid.UUID) (*template.TaskTemplate, error) {
	t, err := s.repo.GetTemplate(ctx, id)
	if err != nil {
		return nil, translate(err, ResourceTemplate, id, "получение шаблона")
	}
	if !t.ReadableBy(u) {
		return nil, NewForbidden("Доступ запрещен")
	}
	return t, nil
}

type TemplateInput struct {
	Name                 string
	Description          string
	IsActive             bool
	AvailableForManagers bool
	// выбранные объекты подзадач в нужном порядке
	ItemIDs []uuid.UUID
	// новые подзадачи по названию, существующий объект с таким названием переиспользуется
	SubtaskNames []string
}

func (in TemplateInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return NewValidationError("name", "Название шаблона не может быть пустым")
	}
	return nil
}

func (s *TemplateService) CreateTemplate(ctx context.Context, u *user.User, in TemplateInput) (*template.TaskTemplate, error) {
	if !u.CanManageTemplates() {
		return nil, NewForbidden("Управлять шаблонами может только администратор")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	t := &template.TaskTemplate{
		ID:                   uuid.New(),
		Name:                 strings.TrimSpace(in.Name),
		Description:          strings.TrimSpace(in.Description),
		IsActive:             in.IsActive,
		AvailableForManagers: in.AvailableForManagers,
		CreatedBy:            u.ID,
	}

	err := s.repo.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.CreateTemplate(ctx, t); err != nil {
			return translate(err, ResourceTemplate, t.ID, "добавление шаблона")
		}
		return s.replaceEntries(ctx, u, t.ID, in)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Service: Шаблон создан", zap.String("template_id", t.ID.String()))
	return s.repo.GetTemplate(ctx, t.ID)
}

func (s *TemplateService) UpdateTemplate(ctx context.Context, u *user.User, id uuid.UUID, in TemplateInput) (*template.TaskTemplate, error) {
	if !u.CanManageTemplates() {
		return nil, NewForbidden("Управлять шаблонами может только администратор")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	err := s.repo.InTx(ctx, func(ctx context.Context) error {
		t, err := s.repo.GetTemplate(ctx, id)
		if err != nil {
			return translate(err, ResourceTemplate, id, "получение шаблона")
		}

		t.Name = strings.TrimSpace(in.Name)
		t.Description = strings.TrimSpace(in.Description)
		t.IsActive = in.IsActive
		t.AvailableForManagers = in.AvailableForManagers

		if err := s.repo.UpdateTemplate(ctx, t); err != nil {
			return translate(err, ResourceTemplate, id, "обновление шаблона")
		}
		return s.replaceEntries(ctx, u, id, in)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetTemplate(ctx, id)
}

// replaceEntries собирает итоговый список объектов без повторов, порядок 0..N-1
func (s *TemplateService) replaceEntries(ctx context.Context, u *user.User, templateID uuid.UUID, in TemplateInput) error {
	seen := make(map[uuid.UUID]bool)
	entries := []*template.Entry{}
	add := func(itemID uuid.UUID) {
		if seen[itemID] {
			return
		}
		seen[itemID] = true
		entries = append(entries, &template.Entry{TemplateID: templateID, ItemID: itemID, Order: len(entries)})
	}

	for _, id := range in.ItemIDs {
		if _, err := s.repo.GetSubtaskItem(ctx, id); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewValidationError("item_id", fmt.Sprintf("Объект подзадачи %s не найден", id))
			}
			return fmt.Errorf("получение объекта подзадачи: %w", err)
		}
		add(id)
	}

	for _, name := range in.SubtaskNames {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		item, err := s.repo.FindSubtaskItemByName(ctx, name)
		if errors.Is(err, repo.ErrNotFound) {
			item = &template.SubtaskItem{ID: uuid.New(), Name: name, IsActive: true, CreatedBy: u.ID}
			err = s.repo.CreateSubtaskItem(ctx, item)
		}
		if err != nil {
			return fmt.Errorf("подготовка объекта подзадачи: %w", err)
		}
		add(item.ID)
	}

	if err := s.repo.ReplaceTemplateEntries(ctx, templateID, entries); err != nil {
		return translate(err, ResourceTemplate, templateID, "сохранение подзадач шаблона")
	}
	return nil
}

func (s *TemplateService) DeleteTemplate(ctx context.Context, u *user.User, id uuid.UUID) (*template.TaskTemplate, error) {
	if !u.CanManageTemplates() {
		return nil, NewForbidden("Управлять шаблонами может только администратор")
	}

	var deleted *template.TaskTemplate
	err := s.repo.InTx(ctx, func(ctx context.Context) error {
		t, err := s.repo.GetTemplate(ctx, id)
		if err != nil {
			return translate(err, ResourceTemplate, id, "получение шаблона")
		}
		if err := s.repo.DeleteTemplate(ctx, id); err != nil {
			return translate(err, ResourceTemplate, id, "удаление шаблона")
		}
		deleted = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Service: Шаблон удалён", zap.String("template_id", id.String()))
	return deleted, nil
}

func (s *TemplateService) ListSubtaskItems(ctx context.Context, onlyActive bool) ([]*template.SubtaskItem, error) {
	items, err := s.repo.ListSubtaskItems(ctx, onlyActive)
	if err != nil {
		return nil, fmt.Errorf("получение объектов подзадач: %w", err)
	}
	return items, nil
}

func (s *TemplateService) GetSubtaskItem(ctx context.Context, id uuid.UUID) (*template.SubtaskItem, error) {
	item, err := s.repo.GetSubtaskItem(ctx, id)
	if err != nil {
		return nil, translate(err, ResourceItem, id, "получение объекта подзадачи")
	}
	return item, nil
}

type ItemInput struct {
	Name        string
	Description string
	IsActive    bool
}

func (s *TemplateService) CreateSubtaskItem(ctx context.Context, u *user.User, in ItemInput) (*template.SubtaskItem, error) {
	if !u.CanManageTemplates() {
		return nil, NewForbidden("Управлять объектами подзадач может только администратор")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, NewValidationError("name", "Название подзадачи не может быть пустым")
	}

	item := &template.SubtaskItem{
		ID:          uuid.New(),
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		IsActive:    in.IsActive,
		CreatedBy:   u.ID,
	}
	if err := s.repo.CreateSubtaskItem(ctx, item); err != nil {
		return nil, translate(err, ResourceItem, item.ID, "добавление объекта подзадачи")
	}
	return item, nil
}

func (s *TemplateService) UpdateSubtaskItem(ctx context.Context, u *user.User, id uuid.UUID, in ItemInput) (*template.SubtaskItem, error) {
	if !u.CanManageTemplates() {
		return nil, NewForbidden("Управлять объектами подзадач может только администратор")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, NewValidationError("name", "Название подзадачи не может быть пустым")
	}

	var updated *template.SubtaskItem
	err := s.repo.InTx(ctx, func(ctx context.Context) error {
		item, err := s.repo.GetSubtaskItem(ctx, id)
		if err != nil {
			return translate(err, ResourceItem, id, "получение объекта подзадачи")
		}
		item.Name = name
		item.Description = strings.TrimSpace(in.Description)
		item.IsActive = in.IsActive

		if err := s.repo.UpdateSubtaskItem(ctx, item); err != nil {
			return translate(err, ResourceItem, id, "обновление объекта подзадачи")
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
