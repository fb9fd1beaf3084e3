package template

import (
	"shiftTracker/internal/models/user"
	"slices"
	"time"

	"github.com/google/uuid"
)

// SubtaskItem - независимый объект подзадачи, переиспользуется в разных шаблонах
type SubtaskItem struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedBy   uuid.UUID `json:"created_by" db:"created_by"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Entry - связь шаблона с объектом подзадачи и её порядок
type Entry struct {
	TemplateID uuid.UUID    `json:"template_id" db:"template_id"`
	ItemID     uuid.UUID    `json:"item_id" db:"item_id"`
	Order      int          `json:"order" db:"sort_order"`
	Item       *SubtaskItem `json:"item,omitempty"`
}

type TaskTemplate struct {
	ID                   uuid.UUID `json:"id" db:"id"`
	Name                 string    `json:"name" db:"name"`
	Description          string    `json:"description" db:"description"`
	IsActive             bool      `json:"is_active" db:"is_active"`
	AvailableForManagers bool      `json:"available_for_managers" db:"available_for_managers"`
	CreatedBy            uuid.UUID `json:"created_by" db:"created_by"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time `json:"updated_at" db:"updated_at"`
	Entries              []*Entry  `json:"entries,omitempty"`
}

// ReadableBy - админ видит всё, остальные только шаблоны, открытые менеджерам
func (t *TaskTemplate) ReadableBy(u *user.User) bool {
	return u.CanManageTemplates() || t.AvailableForManagers
}

// UsableBy - можно ли создать задачу из шаблона
func (t *TaskTemplate) UsableBy(u *user.User) bool {
	return t.IsActive && t.ReadableBy(u)
}

// ActiveItems возвращает активные объекты подзадач в порядке шаблона
func (t *TaskTemplate) ActiveItems() []*SubtaskItem {
	entries := slices.Clone(t.Entries)
	slices.SortStableFunc(entries, func(a, b *Entry) int { return a.Order - b.Order })

	items := make([]*SubtaskItem, 0, len(entries))
	for _, e := range entries {
		if e.Item == nil || !e.Item.IsActive {
			continue
		}
		items = append(items, e.Item)
	}
	return items
}

type Filter struct {
	OnlyActive      bool
	OnlyForManagers bool
}

// FilterFor - какие шаблоны показывать пользователю в списках
func FilterFor(u *user.User, onlyActive bool) Filter {
	return Filter{
		OnlyActive:      onlyActive,
		OnlyForManagers: !u.CanManageTemplates(),
	}
}

func (f Filter) Match(t *TaskTemplate) bool {
	if f.OnlyActive && !t.IsActive {
		return false
	}
	if f.OnlyForManagers && !t.AvailableForManagers {
		return false
	}
	return true
}
