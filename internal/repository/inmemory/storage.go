package inmemory

import (
	"context"
	"maps"
	"shiftTracker/internal/logger"
	"shiftTracker/internal/models/task"
	"shiftTracker/internal/models/template"
	"shiftTracker/internal/models/user"
	"sync"

	"github.com/google/uuid"
)

type txKey struct{}

type assignmentKey struct {
	subtask uuid.UUID
	user    uuid.UUID
}

type state struct {
	users       map[uuid.UUID]*user.User
	templates   map[uuid.UUID]*template.TaskTemplate
	entries     map[uuid.UUID][]template.Entry
	items       map[uuid.UUID]*template.SubtaskItem
	tasks       map[uuid.UUID]*task.Task
	subtasks    map[uuid.UUID]*task.Subtask
	assignments map[assignmentKey]*task.Assignment
	actions     []*task.Action
	seq         map[uuid.UUID]int
	next        int
}

// Storage - хранилище в памяти, транзакции сериализуются общим мьютексом
type Storage struct {
	mtx *sync.RWMutex
	state
}

func NewStorage() *Storage {
	return &Storage{
		mtx: &sync.RWMutex{},
		state: state{
			users:       make(map[uuid.UUID]*user.User),
			templates:   make(map[uuid.UUID]*template.TaskTemplate),
			entries:     make(map[uuid.UUID][]template.Entry),
			items:       make(map[uuid.UUID]*template.SubtaskItem),
			tasks:       make(map[uuid.UUID]*task.Task),
			subtasks:    make(map[uuid.UUID]*task.Subtask),
			assignments: make(map[assignmentKey]*task.Assignment),
			seq:         make(map[uuid.UUID]int),
		},
	}
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	logger.Info("Repository: Соединение стабильно")
	return nil
}

func (s *Storage) Close() {}

func (s *Storage) inTx(ctx context.Context) bool {
	owner, ok := ctx.Value(txKey{}).(*Storage)
	return ok && owner == s
}

func (s *Storage) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mtx.Lock()
	return s.mtx.Unlock
}

func (s *Storage) rlock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mtx.RLock()
	return s.mtx.RUnlock
}

// InTx выполняет fn под эксклюзивной блокировкой, при ошибке состояние откатывается
func (s *Storage) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	snapshot := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.state = snapshot
		logger.Warn("Repository: Транзакция откатена")
		return err
	}
	return nil
}

func (s *Storage) snapshot() state {
	snap := state{
		users:       maps.Clone(s.users),
		templates:   maps.Clone(s.templates),
		entries:     make(map[uuid.UUID][]template.Entry, len(s.entries)),
		items:       maps.Clone(s.items),
		tasks:       maps.Clone(s.tasks),
		subtasks:    maps.Clone(s.subtasks),
		assignments: maps.Clone(s.assignments),
		actions:     append([]*task.Action(nil), s.actions...),
		seq:         maps.Clone(s.seq),
		next:        s.next,
	}
	for id, e := range s.entries {
		snap.entries[id] = append([]template.Entry(nil), e...)
	}
	return snap
}

func (s *Storage) nextSeq(id uuid.UUID) {
	s.next++
	s.seq[id] = s.next
}
