package task_test

import (
	"shiftTracker/internal/models/task"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSubtask_Lifecycle(t *testing.T) {
	start := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	st := task.NewSubtask(uuid.New(), "Касса", 0)

	assert.Equal(t, "Не завершена", st.DurationFormatted())
	assert.Equal(t, "indicator-gray", st.IndicatorClass())

	assert.True(t, st.MarkInProgress(start))
	assert.False(t, st.MarkInProgress(start.Add(time.Hour)))
	assert.Equal(t, start, *st.StartedAt)
	assert.Equal(t, "indicator-orange", st.IndicatorClass())

	st.Complete(start.Add(125 * time.Minute))
	assert.Equal(t, task.SubtaskCompleted, st.Status)
	assert.Equal(t, 125, st.DurationMinutes())
	assert.Equal(t, "2ч 5м", st.DurationFormatted())
	assert.Equal(t, "indicator-green", st.IndicatorClass())
}

// завершение без старта проставляет started_at
func TestSubtask_CompleteWithoutStart(t *testing.T) {
	now := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	st := task.NewSubtask(uuid.New(), "Касса", 0)

	st.Complete(now)

	assert.Equal(t, now, *st.StartedAt)
	assert.Equal(t, 0, st.DurationMinutes())
	assert.Equal(t, "0м", st.DurationFormatted())
}

func TestSubtask_AssignedTo(t *testing.T) {
	userID := uuid.New()
	st := task.NewSubtask(uuid.New(), "Касса", 0)
	st.Assignments = []*task.Assignment{{SubtaskID: st.ID, UserID: userID}}

	assert.True(t, st.AssignedTo(userID))
	assert.False(t, st.AssignedTo(uuid.New()))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "5м", task.FormatDuration(5*time.Minute))
	assert.Equal(t, "1ч 0м", task.FormatDuration(time.Hour))
	assert.Equal(t, "26ч 3м", task.FormatDuration(26*time.Hour+3*time.Minute+40*time.Second))
}
