package ports

import (
	"context"
	"time"

	"github.com/straightdeal/marketplace-api/internal/core/domain"
)

// IdentityRepository is the credential store. It is the only component that persists
// identities and their token slots.
//
// The Consume*, Promote* and Clear* operations are conditional updates: they apply only when
// the stored state still matches the arguments and report domain.ErrStaleToken otherwise.
type IdentityRepository interface {
	Create(ctx context.Context, identity *domain.Identity) (*domain.Identity, error)
	FindByID(ctx context.Context, id string) (*domain.Identity, error)
	FindByEmail(ctx context.Context, email string) (*domain.Identity, error)
	FindByResetTokenHash(ctx context.Context, hash string) (*domain.Identity, error)

	SetEmailOTP(ctx context.Context, id, code string, expiry time.Time) error
	// ConsumeEmailOTP marks the email verified and clears the slot when code matches the
	// stored one, has not expired at now, and the email is still unverified.
	ConsumeEmailOTP(ctx context.Context, id, code string, now time.Time) (*domain.Identity, error)

	SetPhoneOTP(ctx context.Context, id, phone, code string, expiry time.Time) error
	ConsumePhoneOTP(ctx context.Context, id, phone, code string, now time.Time) (*domain.Identity, error)

	// PromoteToUser moves a fully verified Visitor to the User role.
	PromoteToUser(ctx context.Context, id string) (*domain.Identity, error)

	SetResetToken(ctx context.Context, id, hash string, expiry time.Time) error
	// ConsumeResetToken replaces the password, clears the reset slot and the stored refresh
	// token in one update.
	ConsumeResetToken(ctx context.Context, hash, passwordHash string, now time.Time) (*domain.Identity, error)

	SetRefreshToken(ctx context.Context, id, token string) error
	ClearRefreshToken(ctx context.Context, id, current string) error

	UpdateName(ctx context.Context, id, firstName, lastName string) (*domain.Identity, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}
