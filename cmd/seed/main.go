package main

import (
	"context"
	"fmt"
	"os"
	"shiftTracker/internal/auth"
	"shiftTracker/internal/config"
	"shiftTracker/internal/logger"
	"shiftTracker/internal/repository/postgres"
	"shiftTracker/internal/seed"
	"shiftTracker/internal/service"

	"go.uber.org/zap"
)

// seed заполняет базу postgres пользователями, объектами подзадач и шаблонами из yaml
func main() {
	flags := config.Flags()
	file := flags.StringP("file", "f", "seed.example.yml", "yaml с начальными данными")
	if err := flags.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "загрузка конфигурации: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(logger.Options{Level: cfg.Logging.Level, Development: true}); err != nil {
		fmt.Fprintf(os.Stderr, "инициализация логгера: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(context.Background(), cfg, *file); err != nil {
		logger.Error("Seed: Ошибка заполнения", err, zap.String("file", *file))
		logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, path string) error {
	f, err := seed.Load(path)
	if err != nil {
		return err
	}

	if cfg.Database.Migrate {
		if err := postgres.Migrate(cfg.Database.URL); err != nil {
			return err
		}
	}
	storage, err := postgres.New(ctx, cfg.Database.URL, postgres.PoolOptions{})
	if err != nil {
		return err
	}
	defer storage.Close()

	users := service.NewAuthService(storage, auth.NewIssuer(cfg.Auth.Secret, cfg.Auth.TokenTTL))
	_, err = seed.Apply(ctx, f, users, service.NewTemplateService(storage))
	return err
}
