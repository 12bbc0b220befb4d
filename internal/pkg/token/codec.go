// Package token mints and verifies the HS256 JWTs used for access and refresh tokens.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/straightdeal/marketplace-api/internal/core/domain"
)

var signingMethod = jwt.SigningMethodHS256

// jwtClaims is the wire form of domain.Claims.
type jwtClaims struct {
	Email         string           `json:"email"`
	Role          domain.Role      `json:"role"`
	EmailVerified bool             `json:"email_verified"`
	PhoneVerified bool             `json:"phone_verified"`
	Kind          domain.TokenKind `json:"typ"`
	jwt.RegisteredClaims
}

// Codec signs and verifies one kind of token with one secret.
type Codec struct {
	secret []byte
	issuer string
	kind   domain.TokenKind
	now    func() time.Time
}

// New returns a Codec for tokens of the given kind.
func New(secret, issuer string, kind domain.TokenKind) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("token: secret is required")
	}
	if kind != domain.TokenAccess && kind != domain.TokenRefresh {
		return nil, fmt.Errorf("token: unknown kind %q", kind)
	}
	return &Codec{secret: []byte(secret), issuer: issuer, kind: kind, now: time.Now}, nil
}

// WithClock replaces the codec's time source. Used by tests.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	c.now = now
	return c
}

// Mint signs claims with an expiry ttl from now. Each token gets a fresh jti.
func (c *Codec) Mint(claims domain.Claims, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", errors.New("token: ttl must be positive")
	}
	if claims.UserID == "" {
		return "", errors.New("token: subject is required")
	}

	now := c.now()
	payload := jwtClaims{
		Email:         claims.Email,
		Role:          claims.Role,
		EmailVerified: claims.EmailVerified,
		PhoneVerified: claims.PhoneVerified,
		Kind:          c.kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.UserID,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(signingMethod, payload).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("signing %s token: %w", c.kind, err)
	}
	return signed, nil
}

// Verify checks signature, issuer, expiry and kind and returns the embedded claims.
// A token is still valid at its expiry instant; the jwt validator treats that instant as
// expired, so expiry and issuer are checked here instead.
func (c *Codec) Verify(raw string) (*domain.Claims, error) {
	if raw == "" {
		return nil, domain.ErrTokenInvalid
	}

	var payload jwtClaims
	_, err := jwt.ParseWithClaims(raw, &payload, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{signingMethod.Alg()}), jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}
	if payload.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing exp", domain.ErrTokenInvalid)
	}
	if c.issuer != "" && payload.Issuer != c.issuer {
		return nil, fmt.Errorf("%w: unexpected issuer %q", domain.ErrTokenInvalid, payload.Issuer)
	}
	if payload.Kind != c.kind || payload.Subject == "" {
		return nil, domain.ErrTokenInvalid
	}
	if c.now().After(payload.ExpiresAt.Time) {
		return nil, domain.ErrTokenExpired
	}

	claims := &domain.Claims{
		UserID:        payload.Subject,
		Email:         payload.Email,
		Role:          payload.Role,
		EmailVerified: payload.EmailVerified,
		PhoneVerified: payload.PhoneVerified,
		Kind:          payload.Kind,
	}
	claims.ExpiresAt = payload.ExpiresAt.Time
	return claims, nil
}
