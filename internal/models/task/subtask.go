package task

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type SubtaskStatus string

const SubtaskPending SubtaskStatus = "pending"
const SubtaskInProgress SubtaskStatus = "in_progress"
const SubtaskCompleted SubtaskStatus = "completed"

func (s SubtaskStatus) Label() string {
	switch s {
	case SubtaskPending:
		return "Ожидает"
	case SubtaskInProgress:
		return "В процессе"
	case SubtaskCompleted:
		return "Завершена"
	}
	return string(s)
}

type Subtask struct {
	ID          uuid.UUID     `json:"id" db:"id"`
	TaskID      uuid.UUID     `json:"task_id" db:"task_id"`
	Name        string        `json:"name" db:"name"`
	Status      SubtaskStatus `json:"status" db:"status"`
	Order       int           `json:"order" db:"sort_order"`
	StartedAt   *time.Time    `json:"started_at,omitempty" db:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`

	Assignments []*Assignment `json:"assignments,omitempty"`
}

// Assignment - исполнитель, взявший подзадачу
type Assignment struct {
	SubtaskID  uuid.UUID `json:"subtask_id" db:"subtask_id"`
	UserID     uuid.UUID `json:"user_id" db:"user_id"`
	UserName   string    `json:"user_name" db:"user_name"`
	AssignedAt time.Time `json:"assigned_at" db:"assigned_at"`
}

func NewSubtask(taskID uuid.UUID, name string, order int) *Subtask {
	return &Subtask{
		ID:     uuid.New(),
		TaskID: taskID,
		Name:   name,
		Status: SubtaskPending,
		Order:  order,
	}
}

// MarkInProgress переводит подзадачу из pending в in_progress,
// для остальных статусов ничего не делает
func (s *Subtask) MarkInProgress(now time.Time) bool {
	if s.Status != SubtaskPending {
		return false
	}
	s.Status = SubtaskInProgress
	s.StartedAt = &now
	return true
}

// Complete завершает подзадачу, started_at не может оказаться позже completed_at
func (s *Subtask) Complete(now time.Time) {
	if s.StartedAt == nil {
		s.StartedAt = &now
	}
	s.Status = SubtaskCompleted
	s.CompletedAt = &now
}

func (s *Subtask) AssignedTo(userID uuid.UUID) bool {
	for _, a := range s.Assignments {
		if a.UserID == userID {
			return true
		}
	}
	return false
}

func (s *Subtask) Duration() (time.Duration, bool) {
	if s.StartedAt == nil || s.CompletedAt == nil {
		return 0, false
	}
	return s.CompletedAt.Sub(*s.StartedAt), true
}

// DurationMinutes - длительность в целых минутах, 0 если подзадача не завершена
func (s *Subtask) DurationMinutes() int {
	d, ok := s.Duration()
	if !ok {
		return 0
	}
	return int(d / time.Minute)
}

func (s *Subtask) DurationFormatted() string {
	d, ok := s.Duration()
	if !ok {
		return "Не завершена"
	}
	return FormatDuration(d)
}

// FormatDuration: "2ч 5м" или "5м"
func FormatDuration(d time.Duration) string {
	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)
	if hours > 0 {
		return fmt.Sprintf("%dч %dм", hours, minutes)
	}
	return fmt.Sprintf("%dм", minutes)
}

func (s *Subtask) IndicatorClass() string {
	switch s.Status {
	case SubtaskInProgress:
		return "indicator-orange"
	case SubtaskCompleted:
		return "indicator-green"
	default:
		return "indicator-gray"
	}
}
