package dto

import (
	"shiftTracker/internal/models/task"
	"shiftTracker/internal/models/template"
	"slices"

	"github.com/google/uuid"
)

type TemplateSummary struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
}

type TemplateSubtask struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Order int       `json:"order"`
}

type TemplateDetail struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Subtasks    []TemplateSubtask `json:"subtasks"`
}

// ItemResponse - объект подзадачи в списке для формы
type ItemResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
}

// TemplateRequest - тело POST/PUT /api/templates
type TemplateRequest struct {
	Name                 string      `json:"name"`
	Description          string      `json:"description"`
	IsActive             *bool       `json:"is_active,omitempty"`
	AvailableForManagers bool        `json:"available_for_managers"`
	SubtaskIDs           []uuid.UUID `json:"subtask_ids"`
	SubtaskNames         []string    `json:"subtask_names"`
}

// SubtaskResponse - ответ на редактирование подзадачи, статус в отображаемом виде
type SubtaskResponse struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Order  int       `json:"order"`
	Status string    `json:"status"`
}

func FromTemplate(t *template.TaskTemplate) TemplateSummary {
	return TemplateSummary{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
	}
}

func FromTemplateList(templates []*template.TaskTemplate) []TemplateSummary {
	result := make([]TemplateSummary, len(templates))
	for i, t := range templates {
		result[i] = FromTemplate(t)
	}
	return result
}

// FromTemplateDetail - только активные объекты подзадач в порядке шаблона
func FromTemplateDetail(t *template.TaskTemplate) TemplateDetail {
	entries := slices.Clone(t.Entries)
	slices.SortStableFunc(entries, func(a, b *template.Entry) int { return a.Order - b.Order })

	subtasks := make([]TemplateSubtask, 0, len(entries))
	for _, e := range entries {
		if e.Item == nil || !e.Item.IsActive {
			continue
		}
		subtasks = append(subtasks, TemplateSubtask{ID: e.Item.ID, Name: e.Item.Name, Order: e.Order})
	}

	return TemplateDetail{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Subtasks:    subtasks,
	}
}

func FromItemList(items []*template.SubtaskItem) []ItemResponse {
	result := make([]ItemResponse, len(items))
	for i, item := range items {
		result[i] = ItemResponse{ID: item.ID, Name: item.Name, Description: item.Description}
	}
	return result
}

func FromSubtask(st *task.Subtask) SubtaskResponse {
	return SubtaskResponse{
		ID:     st.ID,
		Name:   st.Name,
		Order:  st.Order,
		Status: st.Status.Label(),
	}
}
