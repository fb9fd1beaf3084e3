package task

import (
	"time"
)

// TaskOption - изменение одного поля задачи из формы редактирования
type TaskOption func(*Task)

func WithTitle(title string) TaskOption {
	if title == "" {
		return nil
	}
	return func(task *Task) {
		task.Title = title
	}
}

func WithDate(date time.Time) TaskOption {
	if date.IsZero() {
		return nil
	}
	return func(task *Task) {
		task.Date = Day(date)
	}
}

// WithStatus - ручная смена статуса в обход пересчёта по подзадачам
func WithStatus(status Status) TaskOption {
	if !status.Valid() {
		return nil
	}
	return func(task *Task) {
		task.Status = status
	}
}

// Apply применяет опции, пропуская nil
func (t *Task) Apply(options ...TaskOption) {
	for _, opt := range options {
		if opt != nil {
			opt(t)
		}
	}
}
