package task

import (
	"time"

	"github.com/google/uuid"
)

const DateLayout = "2006-01-02"

type Task struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	Title      string     `json:"title" db:"title"`
	Date       time.Time  `json:"date" db:"date"`
	Status     Status     `json:"status" db:"status"`
	TemplateID *uuid.UUID `json:"template_id,omitempty" db:"template_id"`
	CreatedBy  uuid.UUID  `json:"created_by" db:"created_by"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`

	// заполняются сервисом при чтении
	Subtasks     []*Subtask `json:"subtasks,omitempty"`
	CreatorName  string     `json:"creator_name,omitempty"`
	TemplateName string     `json:"template_name,omitempty"`
}

type Status string

const StatusAvailable Status = "available"
const StatusInProgress Status = "in_progress"
const StatusCompleted Status = "completed"

func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

func (s Status) Label() string {
	switch s {
	case StatusAvailable:
		return "Доступна"
	case StatusInProgress:
		return "В процессе"
	case StatusCompleted:
		return "Завершена"
	}
	return string(s)
}

// DeriveStatus вычисляет статус задачи по статусам подзадач
func DeriveStatus(subtasks []*Subtask) Status {
	if len(subtasks) == 0 {
		return StatusAvailable
	}

	allCompleted := true
	started := false
	for _, st := range subtasks {
		if st.Status != SubtaskCompleted {
			allCompleted = false
		}
		if st.Status == SubtaskInProgress || st.Status == SubtaskCompleted {
			started = true
		}
	}

	switch {
	case allCompleted:
		return StatusCompleted
	case started:
		return StatusInProgress
	default:
		return StatusAvailable
	}
}

// UpdateStatus пересчитывает статус, возвращает true если он изменился
func (t *Task) UpdateStatus(subtasks []*Subtask) bool {
	next := DeriveStatus(subtasks)
	if next == t.Status {
		return false
	}
	t.Status = next
	return true
}

// Day приводит момент времени к календарной дате (полночь UTC)
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

var cardColors = []string{"beige", "purple", "pink", "blue", "green"}

// ColorGradient - циклический цвет карточки
func (t *Task) ColorGradient() string {
	return cardColors[int(t.ID[len(t.ID)-1])%len(cardColors)]
}

type Progress struct {
	Percentage int
	Completed  int
	InProgress int
	Pending    int
	Total      int
}

func (t *Task) Progress() Progress {
	p := Progress{Total: len(t.Subtasks)}
	if p.Total == 0 {
		return p
	}
	for _, st := range t.Subtasks {
		switch st.Status {
		case SubtaskCompleted:
			p.Completed++
		case SubtaskInProgress:
			p.InProgress++
		default:
			p.Pending++
		}
	}
	p.Percentage = p.Completed * 100 / p.Total
	return p
}

// OpenSubtasks - подзадачи, которые ещё можно взять в работу
func (t *Task) OpenSubtasks() []*Subtask {
	res := make([]*Subtask, 0, len(t.Subtasks))
	for _, st := range t.Subtasks {
		if st.Status != SubtaskCompleted {
			res = append(res, st)
		}
	}
	return res
}
