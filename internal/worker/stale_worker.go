package worker

import (
	"context"
	"fmt"
	"shiftTracker/internal/logger"
	"shiftTracker/internal/models/task"
	"time"

	"go.uber.org/zap"
)

type TaskLister interface {
	ListTasksFrom(ctx context.Context, from time.Time) ([]*task.Task, error)
}

// StaleWorker периодически ищет незавершённые задачи прошлых дней и пишет их в лог
type StaleWorker struct {
	repo     TaskLister
	interval time.Duration
	lookback int
	now      func() time.Time
}

func NewStaleWorker(repo TaskLister, interval *time.Duration, lookbackDays *int) *StaleWorker {
	intervalToSet := 15 * time.Minute
	if interval != nil && *interval > 0 {
		intervalToSet = *interval
	}

	lookbackToSet := 7
	if lookbackDays != nil && *lookbackDays > 0 {
		lookbackToSet = *lookbackDays
	}

	return &StaleWorker{
		repo:     repo,
		interval: intervalToSet,
		lookback: lookbackToSet,
		now:      time.Now,
	}
}

// WithClock подменяет источник времени
func (w *StaleWorker) WithClock(now func() time.Time) *StaleWorker {
	w.now = now
	return w
}

func (w *StaleWorker) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logger.Info("Worker: Проверка незавершённых задач запущена", zap.Duration("interval", w.interval))
	for {
		select {
		case <-ticker.C:
			if _, err := w.Check(ctx); err != nil {
				logger.Warn("Worker: Ошибка проверки задач", zap.Error(err))
			}
		case <-ctx.Done():
			logger.Info("Worker: Проверка незавершённых задач останавливается")
			return nil
		}
	}
}

// Check возвращает незавершённые задачи с датой раньше сегодняшней
func (w *StaleWorker) Check(ctx context.Context) ([]*task.Task, error) {
	start := time.Now()
	today := task.Day(w.now())

	tasks, err := w.repo.ListTasksFrom(ctx, today.AddDate(0, 0, -w.lookback))
	if err != nil {
		return nil, fmt.Errorf("получение задач: %w", err)
	}

	stale := []*task.Task{}
	for _, t := range tasks {
		if t.Status == task.StatusCompleted || !task.Day(t.Date).Before(today) {
			continue
		}
		stale = append(stale, t)
		logger.Warn("Worker: Задача не завершена в свой день",
			zap.String("task_id", t.ID.String()),
			zap.String("title", t.Title),
			zap.String("date", t.Date.Format(task.DateLayout)),
			zap.String("status", string(t.Status)))
	}

	logger.Info("Worker: Завершение проверки задач",
		zap.Duration("ms", time.Since(start)),
		zap.Int("checked", len(tasks)),
		zap.Int("stale", len(stale)))
	return stale, nil
}
