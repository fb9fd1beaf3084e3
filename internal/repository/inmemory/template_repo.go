package inmemory

import (
	"context"
	"shiftTracker/internal/models/template"
	repo "shiftTracker/internal/repository"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

func (s *Storage) CreateTemplate(ctx context.Context, t *template.TaskTemplate) error {
	defer s.lock(ctx)()

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now

	stored := *t
	stored.Entries = nil
	s.templates[t.ID] = &stored
	return nil
}

func (s *Storage) UpdateTemplate(ctx context.Context, t *template.TaskTemplate) error {
	defer s.lock(ctx)()

	if _, ok := s.templates[t.ID]; !ok {
		return repo.ErrNotFound
	}
	t.UpdatedAt = time.Now()

	stored := *t
	stored.Entries = nil
	s.templates[t.ID] = &stored
	return nil
}

// удаление шаблона каскадно удаляет его подзадачи, задачи теряют ссылку на шаблон
func (s *Storage) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	defer s.lock(ctx)()

	if _, ok := s.templates[id]; !ok {
		return repo.ErrNotFound
	}
	delete(s.templates, id)
	delete(s.entries, id)

	for taskID, t := range s.tasks {
		if t.TemplateID != nil && *t.TemplateID == id {
			updated := *t
			updated.TemplateID = nil
			s.tasks[taskID] = &updated
		}
	}
	return nil
}

func (s *Storage) GetTemplate(ctx context.Context, id uuid.UUID) (*template.TaskTemplate, error) {
	defer s.rlock(ctx)()

	t, ok := s.templates[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return s.withEntries(t), nil
}

func (s *Storage) ListTemplates(ctx context.Context, filter template.Filter) ([]*template.TaskTemplate, error) {
	defer s.rlock(ctx)()

	res := []*template.TaskTemplate{}
	for _, t := range s.templates {
		if !filter.Match(t) {
			continue
		}
		res = append(res, s.withEntries(t))
	}

	slices.SortFunc(res, func(a, b *template.TaskTemplate) int {
		return strings.Compare(a.Name, b.Name)
	})
	return res, nil
}

func (s *Storage) ReplaceTemplateEntries(ctx context.Context, templateID uuid.UUID, entries []*template.Entry) error {
	defer s.lock(ctx)()

	if _, ok := s.templates[templateID]; !ok {
		return repo.ErrNotFound
	}

	seen := make(map[uuid.UUID]bool, len(entries))
	stored := make([]template.Entry, 0, len(entries))
	for _, e := range entries {
		if seen[e.ItemID] {
			return repo.ErrConflict
		}
		if _, ok := s.items[e.ItemID]; !ok {
			return repo.ErrNotFound
		}
		seen[e.ItemID] = true
		stored = append(stored, template.Entry{TemplateID: templateID, ItemID: e.ItemID, Order: e.Order})
	}
	s.entries[templateID] = stored
	return nil
}

func (s *Storage) withEntries(t *template.TaskTemplate) *template.TaskTemplate {
	res := *t
	res.Entries = make([]*template.Entry, 0, len(s.entries[t.ID]))
	for _, e := range s.entries[t.ID] {
		entry := e
		if item, ok := s.items[e.ItemID]; ok {
			itemCopy := *item
			entry.Item = &itemCopy
		}
		res.Entries = append(res.Entries, &entry)
	}
	slices.SortStableFunc(res.Entries, func(a, b *template.Entry) int { return a.Order - b.Order })
	return &res
}

func (s *Storage) CreateSubtaskItem(ctx context.Context, item *template.SubtaskItem) error {
	defer s.lock(ctx)()

	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now

	stored := *item
	s.items[item.ID] = &stored
	return nil
}

func (s *Storage) UpdateSubtaskItem(ctx context.Context, item *template.SubtaskItem) error {
	defer s.lock(ctx)()

	if _, ok := s.items[item.ID]; !ok {
		return repo.ErrNotFound
	}
	item.UpdatedAt = time.Now()

	stored := *item
	s.items[item.ID] = &stored
	return nil
}

func (s *Storage) GetSubtaskItem(ctx context.Context, id uuid.UUID) (*template.SubtaskItem, error) {
	defer s.rlock(ctx)()

	item, ok := s.items[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	res := *item
	return &res, nil
}

func (s *Storage) FindSubtaskItemByName(ctx context.Context, name string) (*template.SubtaskItem, error) {
	defer s.rlock(ctx)()

	for _, item := range s.items {
		if item.Name == name {
			res := *item
			return &res, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (s *Storage) ListSubtaskItems(ctx context.Context, onlyActive bool) ([]*template.SubtaskItem, error) {
	defer s.rlock(ctx)()

	res := []*template.SubtaskItem{}
	for _, item := range s.items {
		if onlyActive && !item.IsActive {
			continue
		}
		itemCopy := *item
		res = append(res, &itemCopy)
	}

	slices.SortFunc(res, func(a, b *template.SubtaskItem) int {
		return strings.Compare(a.Name, b.Name)
	})
	return res, nil
}
