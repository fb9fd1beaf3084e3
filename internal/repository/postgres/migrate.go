package postgres

import (
	"errors"
	"fmt"
	"shiftTracker/internal/logger"
	"shiftTracker/internal/migrations"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// Migrate применяет встроенные миграции к базе
func Migrate(connString string) error {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("источник миграций: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, migrateURL(connString))
	if err != nil {
		logger.Error("Repository: Ошибка инициализации миграций", err)
		return fmt.Errorf("инициализация миграций: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error("Repository: Ошибка применения миграций", err)
		return fmt.Errorf("применение миграций: %w", err)
	}

	version, dirty, _ := m.Version()
	logger.Info("Repository: Миграции применены", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

func migrateURL(connString string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(connString, prefix) {
			return "pgx5://" + strings.TrimPrefix(connString, prefix)
		}
	}
	return connString
}
