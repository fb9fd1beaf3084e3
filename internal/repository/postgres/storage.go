package postgres

import (
	"context"
	"errors"
	"fmt"
	"shiftTracker/internal/logger"
	repo "shiftTracker/internal/repository"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// PoolOptions - параметры пула соединений
type PoolOptions struct {
	MaxConns        int32
	MinConns        int32
	MaxConnIdleTime time.Duration
	SlowQuery       time.Duration
}

type Storage struct {
	pool      *pgxpool.Pool
	slowQuery time.Duration
}

type txKey struct{}

// querier - общее подмножество pgxpool.Pool и pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

func New(ctx context.Context, connString string, opts PoolOptions) (*Storage, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		logger.Error("Repository: Ошибка загрузки конфига", err)
		return nil, fmt.Errorf("загрузка конфига: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnIdleTime = time.Minute * 5
	if opts.MaxConns > 0 {
		config.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		config.MinConns = opts.MinConns
	}
	if opts.MaxConnIdleTime > 0 {
		config.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		logger.Error("Repository: Ошибка создания пула", err)
		return nil, fmt.Errorf("создание пула: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		logger.Error("Repository: Неудачная проверка ping", err)
		return nil, fmt.Errorf("проверка соединения ping: %w", err)
	}

	slowQuery := opts.SlowQuery
	if slowQuery <= 0 {
		slowQuery = time.Millisecond * 100
	}

	logger.Info("Repository: Успешное создание подключения к PostgreSQL")
	return &Storage{pool: pool, slowQuery: slowQuery}, nil
}

func (s *Storage) Close() {
	s.pool.Close()
	logger.Info("Repository: Закрытие всех соединений PostgreSQL")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	err := s.pool.Ping(ctx)
	if err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	logger.Info("Repository: Соединение стабильно")
	return nil
}

// InTx выполняет fn в транзакции, вложенные вызовы используют внешнюю транзакцию
func (s *Storage) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
	if err != nil {
		logger.Warn("Repository: Транзакция откатена", zap.Error(err))
		return err
	}
	return nil
}

func (s *Storage) db(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return s.pool
}

func (s *Storage) observe(op string, start time.Time) {
	if elapsed := time.Since(start); elapsed > s.slowQuery {
		logger.Warn("Repository: Медленный запрос", zap.String("op", op), zap.Duration("ms", elapsed))
	}
}

// mapErr переводит ошибки драйвера в ошибки репозитория
func mapErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return repo.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return repo.ErrConflict
		case foreignKeyViolation:
			return repo.ErrNotFound
		}
	}
	return err
}

func wrap(msg string, err error) error {
	mapped := mapErr(err)
	if errors.Is(mapped, repo.ErrNotFound) || errors.Is(mapped, repo.ErrConflict) {
		return mapped
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func idStrings[T fmt.Stringer](ids []T) []string {
	res := make([]string, 0, len(ids))
	for _, id := range ids {
		res = append(res, id.String())
	}
	return res
}
