package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"shiftTracker/internal/auth"
	"shiftTracker/internal/config"
	"shiftTracker/internal/logger"
	"shiftTracker/internal/render"
	"shiftTracker/internal/repository/inmemory"
	"shiftTracker/internal/repository/postgres"
	"shiftTracker/internal/seed"
	"shiftTracker/internal/service"
	"shiftTracker/internal/worker"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Repository - всё, что нужно сервисам от хранилища
type Repository interface {
	service.TaskRepository
	service.TemplateRepository
	service.UserRepository
	Close()
}

type App struct {
	config     *config.Config
	server     *http.Server
	handler    http.Handler
	repository Repository
	tasks      *service.TaskService
	templates  *service.TemplateService
	auth       *service.AuthService
	worker     *worker.StaleWorker
	shutdowns  []func() // функции для graceful shutdown
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
	}
}

func (a *App) Init(ctx context.Context) (*App, error) {
	if err := logger.Init(logger.Options{
		Level:       a.config.Logging.Level,
		Development: a.config.Logging.Development,
		File:        a.config.Logging.File,
		MaxSizeMB:   a.config.Logging.MaxSizeMB,
		MaxBackups:  a.config.Logging.MaxBackups,
		MaxAgeDays:  a.config.Logging.MaxAgeDays,
		Compress:    a.config.Logging.Compress,
	}); err != nil {
		return nil, fmt.Errorf("инициализация логгера: %w", err)
	}

	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Завершение работы логгирования...")
		logger.Sync()
	})

	repository, err := a.initRepository(ctx)
	if err != nil {
		return nil, err
	}
	a.repository = repository
	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Закрытие хранилища...")
		repository.Close()
	})

	a.tasks = service.NewTaskService(repository)
	a.templates = service.NewTemplateService(repository)
	a.auth = service.NewAuthService(repository, auth.NewIssuer(a.config.Auth.Secret, a.config.Auth.TokenTTL))

	if a.config.Repository.SeedFile != "" {
		if err := a.seed(ctx, a.config.Repository.SeedFile); err != nil {
			return nil, err
		}
	}

	view, err := render.New()
	if err != nil {
		return nil, fmt.Errorf("загрузка шаблонов страниц: %w", err)
	}

	a.handler = a.routes(view)

	if a.config.Worker.Enabled {
		a.worker = worker.NewStaleWorker(repository, &a.config.Worker.Interval, &a.config.Worker.LookbackDays)
	}

	a.server = &http.Server{
		Addr:              a.config.GetServerAddr(),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Приложение инициализировано",
		zap.String("repository", a.config.Repository.Type),
		zap.String("addr", a.server.Addr))
	return a, nil
}

func (a *App) initRepository(ctx context.Context) (Repository, error) {
	switch a.config.Repository.Type {
	case config.RepositoryPostgres:
		db := a.config.Database
		if db.Migrate {
			if err := postgres.Migrate(db.URL); err != nil {
				return nil, fmt.Errorf("миграции: %w", err)
			}
		}
		storage, err := postgres.New(ctx, db.URL, postgres.PoolOptions{
			MaxConns:        int32(db.MaxConnections),
			MinConns:        int32(db.MinConnections),
			MaxConnIdleTime: db.IdleTimeout,
			SlowQuery:       db.SlowQuery,
		})
		if err != nil {
			return nil, fmt.Errorf("подключение к postgres: %w", err)
		}
		return storage, nil
	case config.RepositoryInMemory:
		logger.Warn("Используется хранилище в памяти, данные не сохраняются между запусками")
		return inmemory.NewStorage(), nil
	}
	return nil, fmt.Errorf("неизвестный тип хранилища %q", a.config.Repository.Type)
}

func (a *App) seed(ctx context.Context, path string) error {
	f, err := seed.Load(path)
	if err != nil {
		return err
	}
	if _, err := seed.Apply(ctx, f, a.auth, a.templates); err != nil {
		return fmt.Errorf("начальное заполнение: %w", err)
	}
	return nil
}

// Handler - корневой обработчик со всеми маршрутами
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run запускает HTTP сервер и фоновые задачи, останавливается при отмене ctx
func (a *App) Run(ctx context.Context) error {
	defer a.shutdown()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Server started", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP сервер: %w", err)
		}
		return nil
	})

	if a.worker != nil {
		g.Go(func() error {
			return a.worker.Start(gCtx)
		})
	}

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Остановка HTTP сервера...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("остановка HTTP сервера: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func (a *App) shutdown() {
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}
}
