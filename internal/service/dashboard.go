package service

import (
	"context"
	"fmt"
	"shiftTracker/internal/models/task"
	"time"
)

type DashboardMode string

const (
	ModeDaily DashboardMode = "daily"
	ModeAll   DashboardMode = "all"
)

// дней до сегодняшнего, которые показываются в режиме "все задачи" и в ленте навигации
const lookbackDays = 3

func ParseMode(s string) DashboardMode {
	if DashboardMode(s) == ModeAll {
		return ModeAll
	}
	return ModeDaily
}

type DashboardQuery struct {
	Mode DashboardMode
	Date string
}

type DayGroup struct {
	Date    time.Time
	IsToday bool
	Tasks   []*task.Task
}

func (g DayGroup) HasTasks() bool {
	return len(g.Tasks) > 0
}

type WeekDay struct {
	Date       time.Time
	DayName    string
	DayNumber  int
	IsSelected bool
	IsToday    bool
}

type Dashboard struct {
	Mode             DashboardMode
	Today            time.Time
	SelectedDate     time.Time
	Tasks            []*task.Task
	Groups           []DayGroup
	Week             []WeekDay
	ActiveTasksCount int
}

var weekdayShort = map[time.Weekday]string{
	time.Monday:    "Пн",
	time.Tuesday:   "Вт",
	time.Wednesday: "Ср",
	time.Thursday:  "Чт",
	time.Friday:    "Пт",
	time.Saturday:  "Сб",
	time.Sunday:    "Вс",
}

// Dashboard собирает главную страницу: задачи одного дня или все задачи с группировкой по датам
func (s *TaskService) Dashboard(ctx context.Context, q DashboardQuery) (*Dashboard, error) {
	today := s.Today()
	selected := today
	if q.Date != "" {
		if parsed, err := task.ParseDate(q.Date); err == nil {
			selected = parsed
		}
	}

	d := &Dashboard{
		Mode:         ParseMode(string(q.Mode)),
		Today:        today,
		SelectedDate: selected,
		Week:         WeekDates(selected, today),
	}

	var (
		tasks []*task.Task
		err   error
	)
	if d.Mode == ModeAll {
		tasks, err = s.repo.ListTasksFrom(ctx, today.AddDate(0, 0, -lookbackDays))
	} else {
		tasks, err = s.repo.ListTasksOn(ctx, selected)
	}
	if err != nil {
		return nil, fmt.Errorf("получение задач: %w", err)
	}

	if err := s.loadSubtasks(ctx, tasks...); err != nil {
		return nil, err
	}

	d.Tasks = tasks
	if d.Mode == ModeAll {
		d.Groups = GroupByDate(tasks, today)
	}
	for _, t := range tasks {
		if t.Status != task.StatusCompleted {
			d.ActiveTasksCount++
		}
	}
	return d, nil
}

// WeekDates - лента навигации: три дня до выбранной даты, она сама и три после
func WeekDates(selected, today time.Time) []WeekDay {
	week := make([]WeekDay, 0, 2*lookbackDays+1)
	for i := -lookbackDays; i <= lookbackDays; i++ {
		date := selected.AddDate(0, 0, i)
		week = append(week, WeekDay{
			Date:       date,
			DayName:    weekdayShort[date.Weekday()],
			DayNumber:  date.Day(),
			IsSelected: date.Equal(selected),
			IsToday:    date.Equal(today),
		})
	}
	return week
}

// GroupByDate раскладывает задачи по дням от max(today-3, самой ранней даты) до самой поздней,
// дни без задач попадают в результат пустыми группами
func GroupByDate(tasks []*task.Task, today time.Time) []DayGroup {
	start := today.AddDate(0, 0, -lookbackDays)

	byDate := make(map[time.Time][]*task.Task)
	var first, last time.Time
	for _, t := range tasks {
		date := task.Day(t.Date)
		if date.Before(start) {
			continue
		}
		byDate[date] = append(byDate[date], t)
		if first.IsZero() || date.Before(first) {
			first = date
		}
		if last.IsZero() || date.After(last) {
			last = date
		}
	}
	if len(byDate) == 0 {
		return []DayGroup{}
	}

	groups := []DayGroup{}
	for date := first; !date.After(last); date = date.AddDate(0, 0, 1) {
		groups = append(groups, DayGroup{
			Date:    date,
			IsToday: date.Equal(today),
			Tasks:   byDate[date],
		})
	}
	return groups
}
