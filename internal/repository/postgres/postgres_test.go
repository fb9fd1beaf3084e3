package postgres_test

import (
	"context"
	"fmt"
	"shiftTracker/internal/models/task"
	"shiftTracker/internal/models/template"
	"shiftTracker/internal/models/user"
	repo "shiftTracker/internal/repository"
	"shiftTracker/internal/repository/postgres"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresTestSuite для интеграционных тестов с PostgreSQL
type PostgresTestSuite struct {
	suite.Suite
	container  testcontainers.Container
	storage    *postgres.Storage
	ctx        context.Context
	connString string
	admin      *user.User
}

func (s *PostgresTestSuite) SetupSuite() {
	s.ctx = context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(s.ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(s.T(), err)
	s.container = container

	host, err := container.Host(s.ctx)
	require.NoError(s.T(), err)

	port, err := container.MappedPort(s.ctx, "5432")
	require.NoError(s.T(), err)

	s.connString = fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	// порт может открыться раньше, чем база примет подключения
	require.Eventually(s.T(), func() bool {
		return postgres.Migrate(s.connString) == nil
	}, 30*time.Second, time.Second)

	s.storage, err = postgres.New(s.ctx, s.connString, postgres.PoolOptions{})
	require.NoError(s.T(), err)
}

func (s *PostgresTestSuite) TearDownSuite() {
	if s.storage != nil {
		s.storage.Close()
	}
	if s.container != nil {
		s.container.Terminate(s.ctx)
	}
}

// SetupTest очищает таблицы и создаёт администратора
func (s *PostgresTestSuite) SetupTest() {
	conn, err := pgx.Connect(s.ctx, s.connString)
	require.NoError(s.T(), err)
	defer conn.Close(s.ctx)

	_, err = conn.Exec(s.ctx, `TRUNCATE task_actions, subtask_assignments, subtasks, tasks,
		template_entries, task_templates, subtask_items, users CASCADE`)
	require.NoError(s.T(), err)

	s.admin = &user.User{Username: "admin", FullName: "Анна Петрова", PasswordHash: "x", Role: user.RoleAdmin, IsActive: true}
	require.NoError(s.T(), s.storage.CreateUser(s.ctx, s.admin))
}

func TestPostgresTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционные тесты в коротком режиме")
	}
	suite.Run(t, new(PostgresTestSuite))
}

func (s *PostgresTestSuite) createTask(title string, date time.Time) *task.Task {
	t := &task.Task{Title: title, Date: task.Day(date), Status: task.StatusAvailable, CreatedBy: s.admin.ID}
	require.NoError(s.T(), s.storage.CreateTask(s.ctx, t))
	return t
}

func (s *PostgresTestSuite) TestUsers() {
	got, err := s.storage.GetUserByUsername(s.ctx, "admin")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), s.admin.ID, got.ID)
	assert.Equal(s.T(), user.RoleAdmin, got.Role)

	err = s.storage.CreateUser(s.ctx, &user.User{Username: "admin", PasswordHash: "y", Role: user.RoleEmployee})
	assert.ErrorIs(s.T(), err, repo.ErrConflict)

	_, err = s.storage.GetUserByID(s.ctx, uuid.New())
	assert.ErrorIs(s.T(), err, repo.ErrNotFound)
}

func (s *PostgresTestSuite) TestTaskCRUD() {
	today := time.Now()
	t := s.createTask("Смена", today)
	assert.False(s.T(), t.CreatedAt.IsZero())

	got, err := s.storage.GetTask(s.ctx, t.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Смена", got.Title)
	assert.Equal(s.T(), task.Day(today), got.Date)
	assert.Equal(s.T(), "Анна Петрова", got.CreatorName)

	got.Title = "Новая смена"
	got.Status = task.StatusInProgress
	require.NoError(s.T(), s.storage.UpdateTask(s.ctx, got))

	updated, err := s.storage.GetTask(s.ctx, t.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Новая смена", updated.Title)
	assert.Equal(s.T(), task.StatusInProgress, updated.Status)

	require.NoError(s.T(), s.storage.DeleteTask(s.ctx, t.ID))
	_, err = s.storage.GetTask(s.ctx, t.ID)
	assert.ErrorIs(s.T(), err, repo.ErrNotFound)
	assert.ErrorIs(s.T(), s.storage.DeleteTask(s.ctx, t.ID), repo.ErrNotFound)
}

func (s *PostgresTestSuite) TestListTasks() {
	today := task.Day(time.Now())
	first := s.createTask("Первая", today)
	second := s.createTask("Вторая", today)
	s.createTask("Завтра", today.AddDate(0, 0, 1))
	s.createTask("Вчера", today.AddDate(0, 0, -1))

	onDay, err := s.storage.ListTasksOn(s.ctx, today)
	require.NoError(s.T(), err)
	require.Len(s.T(), onDay, 2)
	assert.Equal(s.T(), second.ID, onDay[0].ID)
	assert.Equal(s.T(), first.ID, onDay[1].ID)

	from, err := s.storage.ListTasksFrom(s.ctx, today)
	require.NoError(s.T(), err)
	require.Len(s.T(), from, 3)
	assert.Equal(s.T(), "Завтра", from[2].Title)

	counts, err := s.storage.CountTasksByStatus(s.ctx)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 4, counts[task.StatusAvailable])
}

func (s *PostgresTestSuite) TestSubtasksAndAssignments() {
	t := s.createTask("Смена", time.Now())

	first := task.NewSubtask(t.ID, "Касса", 0)
	second := task.NewSubtask(t.ID, "Склад", 0)
	require.NoError(s.T(), s.storage.CreateSubtask(s.ctx, first))
	require.NoError(s.T(), s.storage.CreateSubtask(s.ctx, second))

	subtasks, err := s.storage.ListSubtasks(s.ctx, t.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), subtasks, 2)
	assert.Equal(s.T(), "Касса", subtasks[0].Name)

	created, err := s.storage.CreateAssignment(s.ctx, &task.Assignment{SubtaskID: first.ID, UserID: s.admin.ID})
	require.NoError(s.T(), err)
	assert.True(s.T(), created)

	created, err = s.storage.CreateAssignment(s.ctx, &task.Assignment{SubtaskID: first.ID, UserID: s.admin.ID})
	require.NoError(s.T(), err)
	assert.False(s.T(), created)

	assignments, err := s.storage.ListAssignments(s.ctx, first.ID, second.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), assignments, 1)
	assert.Equal(s.T(), "Анна", assignments[0].UserName)

	now := time.Now()
	first.Complete(now)
	require.NoError(s.T(), s.storage.UpdateSubtask(s.ctx, first))
	got, err := s.storage.GetSubtask(s.ctx, first.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), task.SubtaskCompleted, got.Status)
	require.NotNil(s.T(), got.CompletedAt)

	_, err = s.storage.CreateAssignment(s.ctx, &task.Assignment{SubtaskID: uuid.New(), UserID: s.admin.ID})
	assert.ErrorIs(s.T(), err, repo.ErrNotFound)

	require.NoError(s.T(), s.storage.DeleteSubtask(s.ctx, first.ID))
	has, err := s.storage.HasAssignment(s.ctx, first.ID, s.admin.ID)
	require.NoError(s.T(), err)
	assert.False(s.T(), has)
}

func (s *PostgresTestSuite) TestActionsSurviveTaskDeletion() {
	t := s.createTask("Смена", time.Now())

	require.NoError(s.T(), s.storage.CreateAction(s.ctx, task.NewAction(t, s.admin.ID, task.CreatedDetails{SubtasksCount: 2})))
	require.NoError(s.T(), s.storage.CreateAction(s.ctx, task.NewAction(t, s.admin.ID, task.AssignedDetails{Subtasks: []string{"Касса"}})))

	actions, err := s.storage.ListActions(s.ctx, t.ID, 0)
	require.NoError(s.T(), err)
	require.Len(s.T(), actions, 2)
	assert.Equal(s.T(), task.ActionAssigned, actions[0].Type)
	assert.Equal(s.T(), task.AssignedDetails{Subtasks: []string{"Касса"}}, actions[0].Details)
	assert.Equal(s.T(), "Анна", actions[0].UserName)

	limited, err := s.storage.ListActions(s.ctx, t.ID, 1)
	require.NoError(s.T(), err)
	assert.Len(s.T(), limited, 1)

	require.NoError(s.T(), s.storage.DeleteTask(s.ctx, t.ID))

	conn, err := pgx.Connect(s.ctx, s.connString)
	require.NoError(s.T(), err)
	defer conn.Close(s.ctx)

	var orphaned int
	err = conn.QueryRow(s.ctx, `SELECT COUNT(*) FROM task_actions WHERE task_id IS NULL AND task_title = $1`, "Смена").Scan(&orphaned)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 2, orphaned)
}

func (s *PostgresTestSuite) TestTemplates() {
	cash := &template.SubtaskItem{Name: "Касса", IsActive: true, CreatedBy: s.admin.ID}
	stock := &template.SubtaskItem{Name: "Склад", IsActive: true, CreatedBy: s.admin.ID}
	require.NoError(s.T(), s.storage.CreateSubtaskItem(s.ctx, cash))
	require.NoError(s.T(), s.storage.CreateSubtaskItem(s.ctx, stock))

	tmpl := &template.TaskTemplate{Name: "Открытие", IsActive: true, AvailableForManagers: false, CreatedBy: s.admin.ID}
	require.NoError(s.T(), s.storage.CreateTemplate(s.ctx, tmpl))

	err := s.storage.ReplaceTemplateEntries(s.ctx, tmpl.ID, []*template.Entry{
		{ItemID: stock.ID, Order: 0},
		{ItemID: cash.ID, Order: 1},
	})
	require.NoError(s.T(), err)

	got, err := s.storage.GetTemplate(s.ctx, tmpl.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), got.Entries, 2)
	assert.Equal(s.T(), "Склад", got.Entries[0].Item.Name)

	err = s.storage.ReplaceTemplateEntries(s.ctx, tmpl.ID, []*template.Entry{
		{ItemID: cash.ID, Order: 0},
		{ItemID: cash.ID, Order: 1},
	})
	assert.ErrorIs(s.T(), err, repo.ErrConflict)

	// неудачная замена не должна затронуть прежний набор
	got, err = s.storage.GetTemplate(s.ctx, tmpl.ID)
	require.NoError(s.T(), err)
	assert.Len(s.T(), got.Entries, 2)

	forManagers, err := s.storage.ListTemplates(s.ctx, template.Filter{OnlyForManagers: true})
	require.NoError(s.T(), err)
	assert.Empty(s.T(), forManagers)

	all, err := s.storage.ListTemplates(s.ctx, template.Filter{OnlyActive: true})
	require.NoError(s.T(), err)
	assert.Len(s.T(), all, 1)

	templateID := tmpl.ID
	t := &task.Task{Title: "Смена", Date: task.Day(time.Now()), Status: task.StatusAvailable, TemplateID: &templateID, CreatedBy: s.admin.ID}
	require.NoError(s.T(), s.storage.CreateTask(s.ctx, t))

	withTemplate, err := s.storage.GetTask(s.ctx, t.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Открытие", withTemplate.TemplateName)

	require.NoError(s.T(), s.storage.DeleteTemplate(s.ctx, tmpl.ID))
	detached, err := s.storage.GetTask(s.ctx, t.ID)
	require.NoError(s.T(), err)
	assert.Nil(s.T(), detached.TemplateID)

	found, err := s.storage.FindSubtaskItemByName(s.ctx, "Касса")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), cash.ID, found.ID)
}

func (s *PostgresTestSuite) TestInTxRollback() {
	boom := fmt.Errorf("boom")
	var created *task.Task

	err := s.storage.InTx(s.ctx, func(ctx context.Context) error {
		created = &task.Task{Title: "Откат", Date: task.Day(time.Now()), Status: task.StatusAvailable, CreatedBy: s.admin.ID}
		require.NoError(s.T(), s.storage.CreateTask(ctx, created))
		return boom
	})
	assert.ErrorIs(s.T(), err, boom)

	_, err = s.storage.GetTask(s.ctx, created.ID)
	assert.ErrorIs(s.T(), err, repo.ErrNotFound)
}
