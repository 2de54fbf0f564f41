package service

import (
	"context"
	"net/mail"
	"strings"

	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

type UserService struct {
	repo   domain.UserRepository
	logger *zerolog.Logger
}

func NewUserService(repo domain.UserRepository, logger *zerolog.Logger) *UserService {
	return &UserService{repo: repo, logger: logger}
}

// ValidateEmail accepts a bare address such as user@example.com.
func ValidateEmail(email string) error {
	if email == "" {
		return domain.Validationf("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@"):], ".") {
		return domain.Validationf("invalid email: %s", email)
	}
	return nil
}

func (s *UserService) Create(ctx context.Context, in models.UserInput) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	if name == "" {
		return nil, domain.Validationf("name is required")
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}

	user := &models.User{Name: name, Email: email}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("user_id", user.ID).Msg("User created")
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

func (s *UserService) List(ctx context.Context) ([]*models.User, error) {
	return s.repo.GetAllUsers(ctx)
}

// Update applies a partial change; a new email must be valid and unused.
func (s *UserService) Update(ctx context.Context, id int64, patch models.UserPatch) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil && strings.TrimSpace(*patch.Name) != "" {
		user.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Email != nil {
		email := strings.TrimSpace(*patch.Email)
		if err := ValidateEmail(email); err != nil {
			return nil, err
		}
		user.Email = email
	}

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes a user that nothing refers to.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.GetUserByID(ctx, id); err != nil {
		return err
	}

	referenced, err := s.repo.UserHasReferences(ctx, id)
	if err != nil {
		return err
	}
	if referenced {
		return domain.Conflictf("user %d still owns items, bookings, comments or requests", id)
	}

	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("user_id", id).Msg("User deleted")
	return nil
}
