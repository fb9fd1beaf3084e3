package service

import (
	"context"
	"errors"
	"fmt"
	"shiftTracker/internal/auth"
	"shiftTracker/internal/logger"
	"shiftTracker/internal/models/user"
	repo "shiftTracker/internal/repository"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrUnauthenticated = errors.New("пользователь не аутентифицирован")

type TokenIssuer interface {
	Issue(userID uuid.UUID) (string, time.Time, error)
	Parse(token string) (uuid.UUID, error)
}

type AuthService struct {
	users  UserRepository
	tokens TokenIssuer
}

func NewAuthService(users UserRepository, tokens TokenIssuer) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

type Session struct {
	User      *user.User
	Token     string
	ExpiresAt time.Time
}

func invalidCredentials() *BusinessError {
	return NewValidationError("credentials", "Неверное имя пользователя или пароль")
}

// Login проверяет пароль и выпускает токен сессии
func (s *AuthService) Login(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, invalidCredentials()
	}

	u, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			logger.Info("Service: Неудачная попытка входа", zap.String("username", username))
			return nil, invalidCredentials()
		}
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}
	if !u.IsActive || !auth.CheckPassword(password, u.PasswordHash) {
		logger.Info("Service: Неудачная попытка входа", zap.String("username", username))
		return nil, invalidCredentials()
	}

	token, expires, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, fmt.Errorf("выпуск токена: %w", err)
	}

	logger.Info("Service: Пользователь вошёл", zap.String("user_id", u.ID.String()))
	return &Session{User: u, Token: token, ExpiresAt: expires}, nil
}

// Authenticate возвращает активного пользователя по токену сессии
func (s *AuthService) Authenticate(ctx context.Context, token string) (*user.User, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	id, err := s.tokens.Parse(token)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	u, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}
	if !u.IsActive {
		return nil, ErrUnauthenticated
	}
	return u, nil
}

type RegisterInput struct {
	Username string
	Password string
	FullName string
	Email    string
	Role     user.Role
}

// Register создаёт пользователя, используется при начальном заполнении базы
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*user.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, NewValidationError("username", "Имя пользователя не может быть пустым")
	}
	if len(in.Password) < 6 {
		return nil, NewValidationError("password", "Пароль должен быть не короче 6 символов")
	}
	role := in.Role
	if role == "" {
		role = user.RoleEmployee
	}
	if !role.Valid() {
		return nil, NewValidationError("role", fmt.Sprintf("Неизвестная роль %q", role))
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("хеширование пароля: %w", err)
	}

	u := &user.User{
		ID:           uuid.New(),
		Username:     username,
		FullName:     strings.TrimSpace(in.FullName),
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return nil, NewBusinessError(CodeConflict, fmt.Sprintf("Пользователь %s уже существует", username),
				ToDetail("username", username))
		}
		return nil, fmt.Errorf("добавление пользователя: %w", err)
	}
	return u, nil
}

func (s *AuthService) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	u, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, NewNotFound(ResourceUser, username)
		}
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}
	return u, nil
}
