package ports

import (
	"context"
	"time"

	"github.com/straightdeal/marketplace-api/internal/core/domain"
)

// TokenCodec mints and verifies signed, time-bound tokens.
type TokenCodec interface {
	Mint(claims domain.Claims, ttl time.Duration) (string, error)
	// Verify returns domain.ErrTokenExpired or domain.ErrTokenInvalid on failure.
	Verify(token string) (*domain.Claims, error)
}

// SecretGenerator produces one-time codes and opaque tokens.
type SecretGenerator interface {
	Code() (string, error)
	// ExpiryFrom returns the expiry of a code issued at now.
	ExpiryFrom(now time.Time) time.Time
	Token() (string, error)
	Hash(token string) string
}

// Throttle limits how often a one-time code can be sent to a destination.
type Throttle interface {
	// Allow records one attempt for key and returns domain.ErrRateLimited once the budget
	// for the current window is spent.
	Allow(ctx context.Context, key string) error
}

// OAuthStateStore keeps the opaque state parameter of pending OAuth flows.
type OAuthStateStore interface {
	Save(ctx context.Context, state, intent string, ttl time.Duration) error
	// Consume returns and deletes the intent stored for state; ok is false when unknown.
	Consume(ctx context.Context, state string) (intent string, ok bool, err error)
}
