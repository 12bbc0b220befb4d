package domain

import (
	"context"
	"time"
)

// TokenKind distinguishes access tokens from refresh tokens.
type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
)

// Claims is the payload carried by access and refresh tokens.
type Claims struct {
	UserID        string    `json:"id"`
	Email         string    `json:"email"`
	Role          Role      `json:"role"`
	EmailVerified bool      `json:"email_verified"`
	PhoneVerified bool      `json:"phone_verified"`
	Kind          TokenKind `json:"typ"`
	ExpiresAt     time.Time `json:"-"`
}

// Principal is the authenticated caller resolved by the authorization gate.
type Principal struct {
	UserID        string
	Email         string
	Role          Role
	EmailVerified bool
	PhoneVerified bool
}

// PrincipalFromClaims converts verified token claims into a Principal.
func PrincipalFromClaims(c *Claims) Principal {
	return Principal{
		UserID:        c.UserID,
		Email:         c.Email,
		Role:          c.Role,
		EmailVerified: c.EmailVerified,
		PhoneVerified: c.PhoneVerified,
	}
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the Principal stored in ctx, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
