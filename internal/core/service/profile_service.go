package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/straightdeal/marketplace-api/internal/core/domain"
	"github.com/straightdeal/marketplace-api/internal/core/ports"
)

type profileService struct {
	repo       ports.IdentityRepository
	bcryptCost int
	log        zerolog.Logger
}

// NewProfileService returns the ProfileService used by the /api/profile routes.
func NewProfileService(repo ports.IdentityRepository, bcryptCost int, log zerolog.Logger) ports.ProfileService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &profileService{repo: repo, bcryptCost: bcryptCost, log: log}
}

func (s *profileService) Profile(ctx context.Context, userID string) (*domain.Identity, error) {
	return s.repo.FindByID(ctx, userID)
}

func (s *profileService) ChangeName(ctx context.Context, userID, firstName, lastName string) (*domain.Identity, error) {
	firstName, lastName = strings.TrimSpace(firstName), strings.TrimSpace(lastName)
	if firstName == "" || lastName == "" {
		return nil, domain.Invalid("first name and last name are required")
	}
	identity, err := s.repo.UpdateName(ctx, userID, firstName, lastName)
	if err != nil {
		return nil, fmt.Errorf("change name: %w", err)
	}
	return identity, nil
}

// ChangePassword replaces the password of a local account after checking the current one.
// Federated accounts never hold a password.
func (s *profileService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if err := domain.ValidatePassword(newPassword); err != nil {
		return err
	}
	identity, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if identity.Provider != domain.ProviderLocal {
		return domain.ErrWrongProvider
	}
	if !identity.HasPassword() {
		return domain.ErrPasswordNotSet
	}
	if bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(currentPassword)) != nil {
		return domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return domain.ErrPasswordTooLong
	}
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	s.log.Info().Str("user_id", userID).Msg("password changed")
	return nil
}
