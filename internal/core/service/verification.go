package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/straightdeal/marketplace-api/internal/core/domain"
	"github.com/straightdeal/marketplace-api/internal/core/ports"
)

// VerifyEmail consumes the email code of a local identity and starts a session. The
// session carries the Visitor role until the phone is verified as well.
func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) (*ports.TokenPair, error) {
	email = domain.NormalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return nil, domain.Invalid("email and otp are required")
	}

	identity, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if identity.Provider != domain.ProviderLocal {
		return nil, domain.ErrWrongProvider
	}
	if identity.IsEmailVerified {
		return nil, domain.ErrAlreadyVerified
	}

	now := s.now().UTC()
	if err := checkCode(identity.EmailOTP, code, identity.EmailOTPExpiry, now); err != nil {
		return nil, err
	}
	verified, err := s.repo.ConsumeEmailOTP(ctx, identity.ID, code, now)
	if err != nil {
		if errors.Is(err, domain.ErrStaleToken) {
			return nil, domain.ErrInvalidCode
		}
		return nil, fmt.Errorf("verify email: %w", err)
	}
	s.log.Info().Str("user_id", verified.ID).Msg("email verified")

	verified, err = s.promote(ctx, verified)
	if err != nil {
		return nil, fmt.Errorf("verify email: %w", err)
	}
	pair, err := s.startSession(ctx, verified)
	if err != nil {
		return nil, fmt.Errorf("verify email: %w", err)
	}
	return pair, nil
}

// ResendVerification replaces the outstanding email code and sends the new one.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
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
	if identity.IsEmailVerified {
		return domain.ErrAlreadyVerified
	}
	if err := s.allowSend(ctx, "email:"+identity.Email); err != nil {
		return err
	}

	code, err := s.secrets.Code()
	if err != nil {
		return fmt.Errorf("resend verification: %w", err)
	}
	expiry := s.secrets.ExpiryFrom(s.now().UTC())
	if err := s.repo.SetEmailOTP(ctx, identity.ID, code, expiry); err != nil {
		return fmt.Errorf("resend verification: %w", err)
	}
	identity.EmailOTP, identity.EmailOTPExpiry = code, expiry
	return s.sendVerificationEmail(ctx, identity, code)
}

// SendPhoneOTP stores a code bound to phoneNumber and sends it by SMS.
func (s *AuthService) SendPhoneOTP(ctx context.Context, userID, phoneNumber string) error {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if err := domain.ValidatePhoneNumber(phoneNumber); err != nil {
		return err
	}

	identity, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if identity.IsPhoneVerified {
		return domain.ErrAlreadyVerified
	}
	if err := s.allowSend(ctx, "phone:"+phoneNumber); err != nil {
		return err
	}

	code, err := s.secrets.Code()
	if err != nil {
		return fmt.Errorf("send phone otp: %w", err)
	}
	expiry := s.secrets.ExpiryFrom(s.now().UTC())
	if err := s.repo.SetPhoneOTP(ctx, identity.ID, phoneNumber, code, expiry); err != nil {
		return fmt.Errorf("send phone otp: %w", err)
	}
	return s.sendPhoneCode(ctx, identity, phoneNumber, code, expiry)
}

// VerifyPhoneOTP consumes the phone code, promotes the identity when its verification is
// complete and starts a fresh session carrying the new role.
func (s *AuthService) VerifyPhoneOTP(ctx context.Context, userID, phoneNumber, code string) (*ports.TokenPair, error) {
	phoneNumber = strings.TrimSpace(phoneNumber)
	code = strings.TrimSpace(code)
	if err := domain.ValidatePhoneNumber(phoneNumber); err != nil {
		return nil, err
	}
	if code == "" {
		return nil, domain.Invalid("otp is required")
	}

	identity, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if identity.IsPhoneVerified {
		return nil, domain.ErrAlreadyVerified
	}
	if identity.PhoneNumber != phoneNumber {
		return nil, domain.ErrInvalidCode
	}

	now := s.now().UTC()
	if err := checkCode(identity.PhoneOTP, code, identity.PhoneOTPExpiry, now); err != nil {
		return nil, err
	}
	verified, err := s.repo.ConsumePhoneOTP(ctx, identity.ID, phoneNumber, code, now)
	if err != nil {
		if errors.Is(err, domain.ErrStaleToken) {
			return nil, domain.ErrInvalidCode
		}
		return nil, fmt.Errorf("verify phone otp: %w", err)
	}
	s.log.Info().Str("user_id", verified.ID).Msg("phone verified")

	verified, err = s.promote(ctx, verified)
	if err != nil {
		return nil, fmt.Errorf("verify phone otp: %w", err)
	}
	pair, err := s.startSession(ctx, verified)
	if err != nil {
		return nil, fmt.Errorf("verify phone otp: %w", err)
	}
	return pair, nil
}

// checkCode reports ErrInvalidCode for a mismatch regardless of expiry.
func checkCode(stored, presented string, expiry, now time.Time) error {
	if domain.SlotValid(stored, presented, expiry, now) {
		return nil
	}
	if !domain.SlotValid(stored, presented, expiry, expiry) {
		return domain.ErrInvalidCode
	}
	return domain.ErrCodeExpired
}
