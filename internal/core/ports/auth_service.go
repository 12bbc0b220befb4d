package ports

import (
	"context"

	"github.com/straightdeal/marketplace-api/internal/core/domain"
)

// RegisterInput carries the fields of a local registration.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// TokenPair is returned by every operation that starts a session.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthService is the identity manager used by the HTTP handlers.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.Identity, error)
	VerifyEmail(ctx context.Context, email, code string) (*TokenPair, error)
	ResendVerification(ctx context.Context, email string) error

	Login(ctx context.Context, email, password string) (*TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	Refresh(ctx context.Context, refreshToken string) (string, error)

	SendPhoneOTP(ctx context.Context, userID, phoneNumber string) error
	VerifyPhoneOTP(ctx context.Context, userID, phoneNumber, code string) (*TokenPair, error)

	ForgotPassword(ctx context.Context, email string) error
	CheckResetToken(ctx context.Context, token string) error
	ResetPassword(ctx context.Context, token, newPassword string) error

	GoogleAuthURL(ctx context.Context) (string, error)
	GoogleCallback(ctx context.Context, code, state string) (*TokenPair, error)
}

// ProfileService exposes the caller's own account.
type ProfileService interface {
	Profile(ctx context.Context, userID string) (*domain.Identity, error)
	ChangeName(ctx context.Context, userID, firstName, lastName string) (*domain.Identity, error)
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
}
