package inmemory

import (
	"context"
	"shiftTracker/internal/models/user"
	repo "shiftTracker/internal/repository"
	"time"

	"github.com/google/uuid"
)

func (s *Storage) CreateUser(ctx context.Context, u *user.User) error {
	defer s.lock(ctx)()

	for _, existing := range s.users {
		if existing.Username == u.Username {
			return repo.ErrConflict
		}
	}

	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = time.Now()

	stored := *u
	s.users[u.ID] = &stored
	return nil
}

func (s *Storage) GetUserByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	defer s.rlock(ctx)()

	u, ok := s.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	res := *u
	return &res, nil
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	defer s.rlock(ctx)()

	for _, u := range s.users {
		if u.Username == username {
			res := *u
			return &res, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (s *Storage) firstName(id uuid.UUID) string {
	if u, ok := s.users[id]; ok {
		return u.FirstName()
	}
	return ""
}

func (s *Storage) displayName(id uuid.UUID) string {
	if u, ok := s.users[id]; ok {
		return u.DisplayName()
	}
	return ""
}
