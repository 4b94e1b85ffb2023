package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/haulstack/haulstack/internal/shared"
	"github.com/haulstack/haulstack/internal/users"
)

// UserSource resolves accounts for authentication.
type UserSource interface {
	FindByEmail(ctx context.Context, email string) (users.User, error)
	GetUser(ctx context.Context, id int64) (users.User, error)
}

// Service wraps authentication business rules.
type Service struct {
	source UserSource
}

// NewService constructs a new Service.
func NewService(source UserSource) *Service {
	return &Service{source: source}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (users.User, error) {
	user, err := s.source.FindByEmail(ctx, email)
	if err != nil {
		return users.User{}, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return users.User{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return users.User{}, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Resolve loads the account behind a session user ID.
func (s *Service) Resolve(ctx context.Context, id int64) (users.User, error) {
	user, err := s.source.GetUser(ctx, id)
	if err != nil {
		return users.User{}, err
	}
	if !user.IsActive {
		return users.User{}, shared.ErrNotFound
	}
	return user, nil
}
