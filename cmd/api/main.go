package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"shiftTracker/internal/app"
	"shiftTracker/internal/config"
	"shiftTracker/internal/logger"
	"syscall"
)

func main() {
	flags := config.Flags()
	if err := flags.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "загрузка конфигурации: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(cfg).Init(ctx)
	if err != nil {
		logger.Error("Ошибка запуска приложения", err)
		logger.Sync()
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "сервер остановлен с ошибкой: %v\n", err)
		os.Exit(1)
	}
}
