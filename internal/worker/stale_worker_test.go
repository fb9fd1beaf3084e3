package worker_test

import (
	"context"
	"errors"
	"shiftTracker/internal/models/task"
	"shiftTracker/internal/repository/inmemory"
	"shiftTracker/internal/worker"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingLister struct{}

func (failingLister) ListTasksFrom(ctx context.Context, from time.Time) ([]*task.Task, error) {
	return nil, errors.New("database error")
}

func TestStaleWorker_Check(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	today := task.Day(now)
	storage := inmemory.NewStorage()

	add := func(title string, date time.Time, status task.Status) *task.Task {
		tk := &task.Task{ID: uuid.New(), Title: title, Date: date, Status: status, CreatedBy: uuid.New()}
		require.NoError(t, storage.CreateTask(ctx, tk))
		return tk
	}

	stale := add("Вчерашнее закрытие", today.AddDate(0, 0, -1), task.StatusInProgress)
	add("Вчерашнее открытие", today.AddDate(0, 0, -1), task.StatusCompleted)
	add("Сегодня", today, task.StatusAvailable)
	add("Давно", today.AddDate(0, 0, -30), task.StatusAvailable)

	lookback := 7
	w := worker.NewStaleWorker(storage, nil, &lookback).WithClock(func() time.Time { return now })

	found, err := w.Check(ctx)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, stale.ID, found[0].ID)
}

func TestStaleWorker_CheckError(t *testing.T) {
	_, err := worker.NewStaleWorker(failingLister{}, nil, nil).Check(context.Background())
	assert.ErrorContains(t, err, "получение задач")
}

func TestStaleWorker_StopsOnCancel(t *testing.T) {
	interval := 10 * time.Millisecond
	w := worker.NewStaleWorker(inmemory.NewStorage(), &interval, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker не остановился")
	}
}
