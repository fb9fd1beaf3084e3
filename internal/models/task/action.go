package task

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ActionType string

const ActionCreated ActionType = "created"
const ActionUpdated ActionType = "updated"
const ActionDeleted ActionType = "deleted"
const ActionAssigned ActionType = "assigned"
const ActionCompleted ActionType = "completed"
const ActionStatusChanged ActionType = "status_changed"

func (a ActionType) Label() string {
	switch a {
	case ActionCreated:
		return "Создана"
	case ActionUpdated:
		return "Обновлена"
	case ActionDeleted:
		return "Удалена"
	case ActionAssigned:
		return "Назначена"
	case ActionCompleted:
		return "Завершена"
	case ActionStatusChanged:
		return "Статус изменен"
	}
	return string(a)
}

// Action - запись аудита, создаётся один раз и больше не меняется
type Action struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	TaskID    *uuid.UUID `json:"task_id,omitempty" db:"task_id"`
	TaskTitle string     `json:"task_title" db:"task_title"`
	UserID    uuid.UUID  `json:"user_id" db:"user_id"`
	UserName  string     `json:"user_name" db:"user_name"`
	Type      ActionType `json:"action_type" db:"action_type"`
	Timestamp time.Time  `json:"timestamp" db:"timestamp"`
	Details   Details    `json:"details" db:"details"`
}

// Details - полезная нагрузка записи, свой тип на каждый ActionType
type Details interface {
	ActionType() ActionType
}

type CreatedDetails struct {
	TemplateName   *string `json:"template_name"`
	SubtasksCount  int     `json:"subtasks_count"`
	ManualCreation bool    `json:"manual_creation,omitempty"`
}

type FieldChange struct {
	Old string `json:"old"`
	New string `json:"new"`
}

type UpdatedDetails struct {
	Changes map[string]FieldChange `json:"changes"`
}

type DeletedDetails struct {
	Title string `json:"title"`
	Date  string `json:"date"`
}

type AssignedDetails struct {
	Subtasks []string `json:"subtasks"`
}

type CompletedDetails struct {
	Subtask           string     `json:"subtask"`
	StartedAt         *time.Time `json:"started_at"`
	CompletedAt       time.Time  `json:"completed_at"`
	DurationMinutes   int        `json:"duration_minutes"`
	DurationFormatted string     `json:"duration_formatted"`
}

type StatusChangedDetails struct {
	From   Status `json:"from"`
	To     Status `json:"to"`
	Manual bool   `json:"manual"`
}

func (CreatedDetails) ActionType() ActionType       { return ActionCreated }
func (UpdatedDetails) ActionType() ActionType       { return ActionUpdated }
func (DeletedDetails) ActionType() ActionType       { return ActionDeleted }
func (AssignedDetails) ActionType() ActionType      { return ActionAssigned }
func (CompletedDetails) ActionType() ActionType     { return ActionCompleted }
func (StatusChangedDetails) ActionType() ActionType { return ActionStatusChanged }

func NewAction(t *Task, userID uuid.UUID, details Details) *Action {
	taskID := t.ID
	return &Action{
		ID:        uuid.New(),
		TaskID:    &taskID,
		TaskTitle: t.Title,
		UserID:    userID,
		Type:      details.ActionType(),
		Details:   details,
	}
}

// CompletedFrom собирает детали завершения по уже завершённой подзадаче
func CompletedFrom(st *Subtask) CompletedDetails {
	d := CompletedDetails{
		Subtask:           st.Name,
		StartedAt:         st.StartedAt,
		DurationMinutes:   st.DurationMinutes(),
		DurationFormatted: st.DurationFormatted(),
	}
	if st.CompletedAt != nil {
		d.CompletedAt = *st.CompletedAt
	}
	return d
}

func EncodeDetails(d Details) ([]byte, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(d)
}

func DecodeDetails(actionType ActionType, raw []byte) (Details, error) {
	var (
		details Details
		err     error
	)

	switch actionType {
	case ActionCreated:
		var d CreatedDetails
		err = json.Unmarshal(raw, &d)
		details = d
	case ActionUpdated:
		var d UpdatedDetails
		err = json.Unmarshal(raw, &d)
		details = d
	case ActionDeleted:
		var d DeletedDetails
		err = json.Unmarshal(raw, &d)
		details = d
	case ActionAssigned:
		var d AssignedDetails
		err = json.Unmarshal(raw, &d)
		details = d
	case ActionCompleted:
		var d CompletedDetails
		err = json.Unmarshal(raw, &d)
		details = d
	case ActionStatusChanged:
		var d StatusChangedDetails
		err = json.Unmarshal(raw, &d)
		details = d
	default:
		return nil, fmt.Errorf("неизвестный тип действия %q", actionType)
	}

	if err != nil {
		return nil, fmt.Errorf("разбор деталей %s: %w", actionType, err)
	}
	return details, nil
}

// Describe - строка для истории задачи
func (a *Action) Describe() string {
	if d, ok := a.Details.(CompletedDetails); ok && d.StartedAt != nil {
		return fmt.Sprintf("Задача: %s - %s, выполнил %s, за %s (%s-%s), %s",
			a.TaskTitle,
			d.Subtask,
			a.UserName,
			d.DurationFormatted,
			d.StartedAt.Format("15:04"),
			d.CompletedAt.Format("15:04"),
			d.StartedAt.Format("02.01.2006"),
		)
	}
	return fmt.Sprintf("%s - %s - %s", a.UserName, a.Type.Label(), a.TaskTitle)
}
