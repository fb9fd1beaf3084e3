package postgres

import (
	"context"
	"shiftTracker/internal/logger"
	"shiftTracker/internal/models/user"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const userColumns = `id, username, full_name, email, password_hash, role, is_active, created_at`

func (s *Storage) CreateUser(ctx context.Context, u *user.User) error {
	start := time.Now()
	defer s.observe("create_user", start)

	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}

	query := `INSERT INTO users
				(id, username, full_name, email, password_hash, role, is_active)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				RETURNING created_at`

	err := s.db(ctx).QueryRow(ctx, query,
		u.ID,
		u.Username,
		u.FullName,
		u.Email,
		u.PasswordHash,
		u.Role,
		u.IsActive,
	).Scan(&u.CreatedAt)
	if err != nil {
		logger.Error("Repository: Не удалось добавить пользователя", err, zap.String("username", u.Username))
		return wrap("добавление пользователя", err)
	}
	return nil
}

func (s *Storage) GetUserByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	start := time.Now()
	defer s.observe("get_user", start)

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(s.db(ctx).QueryRow(ctx, query, id))
	if err != nil {
		return nil, wrap("получение пользователя", err)
	}
	return u, nil
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	start := time.Now()
	defer s.observe("get_user_by_username", start)

	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	u, err := scanUser(s.db(ctx).QueryRow(ctx, query, username))
	if err != nil {
		return nil, wrap("получение пользователя", err)
	}
	return u, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*user.User, error) {
	u := &user.User{}
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.FullName,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.IsActive,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// firstName повторяет user.FirstName для полей, выбранных вместе с основной строкой
func firstName(fullName, username string) string {
	return (&user.User{FullName: fullName, Username: username}).FirstName()
}

func displayName(fullName, username string) string {
	return (&user.User{FullName: fullName, Username: username}).DisplayName()
}
