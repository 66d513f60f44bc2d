package services

import (
	"context"
	"errors"

	"github.com/raviro/statuspage-backend/internal/core/domain"
	apperrors "github.com/raviro/statuspage-backend/internal/core/errors"
	"github.com/raviro/statuspage-backend/internal/core/ports"
)

// AuthService implements registration and login for dashboard accounts
type AuthService struct {
	userRepo ports.UserRepository
}

var _ ports.AuthService = (*AuthService)(nil)

// NewAuthService creates a new auth service
func NewAuthService(userRepo ports.UserRepository) *AuthService {
	return &AuthService{userRepo: userRepo}
}

// Register creates a new account with a hashed password.
func (s *AuthService) Register(ctx context.Context, fullName, email, password string) (*domain.User, error) {
	user, err := domain.NewUser(domain.UserRegistrationParams{
		FullName: fullName,
		Email:    email,
		Password: password,
	})
	if err != nil {
		return nil, err
	}

	created, err := s.userRepo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserExists) {
			return nil, apperrors.NewConflictError(err, "An account with this email already exists")
		}
		return nil, err
	}

	return created, nil
}

// Login verifies credentials and returns the account. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.CheckPassword(password) {
		return nil, apperrors.ErrInvalidCredentials
	}

	return user, nil
}
