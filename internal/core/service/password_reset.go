package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/straightdeal/marketplace-api/internal/core/domain"
)

// ForgotPassword issues a reset token for a verified local identity and emails the link.
// Only the digest of the token is stored.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return domain.Invalid("email is required")
	}

	identity, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if identity.Provider != domain.ProviderLocal {
		return domain.ErrWrongProvider
	}
	if !identity.IsEmailVerified {
		return domain.ErrNotVerified
	}
	if err := s.allowSend(ctx, "reset:"+identity.Email); err != nil {
		return err
	}

	token, err := s.secrets.Token()
	if err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}
	expiry := s.now().UTC().Add(s.cfg.ResetTokenTTL)
	if err := s.repo.SetResetToken(ctx, identity.ID, s.secrets.Hash(token), expiry); err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}
	s.log.Info().Str("user_id", identity.ID).Msg("password reset requested")
	return s.sendResetEmail(ctx, identity, token, expiry)
}

// CheckResetToken validates a reset token without consuming it.
func (s *AuthService) CheckResetToken(ctx context.Context, token string) error {
	_, err := s.resetTarget(ctx, token)
	return err
}

// ResetPassword replaces the password of the identity holding token. The reset slot and
// the stored refresh token are cleared in the same update.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := domain.ValidatePassword(newPassword); err != nil {
		return err
	}
	if _, err := s.resetTarget(ctx, token); err != nil {
		return err
	}

	hash, err := s.hashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	identity, err := s.repo.ConsumeResetToken(ctx, s.secrets.Hash(strings.TrimSpace(token)), hash, s.now().UTC())
	if err != nil {
		if errors.Is(err, domain.ErrStaleToken) {
			return domain.ErrInvalidResetToken
		}
		return fmt.Errorf("reset password: %w", err)
	}
	s.log.Info().Str("user_id", identity.ID).Msg("password reset")
	return nil
}

func (s *AuthService) resetTarget(ctx context.Context, token string) (*domain.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrInvalidResetToken
	}
	hash := s.secrets.Hash(token)
	identity, err := s.repo.FindByResetTokenHash(ctx, hash)
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			return nil, domain.ErrInvalidResetToken
		}
		return nil, fmt.Errorf("reset token: %w", err)
	}
	if !domain.SlotValid(identity.ResetTokenHash, hash, identity.ResetTokenExpiry, s.now().UTC()) {
		return nil, domain.ErrInvalidResetToken
	}
	return identity, nil
}
