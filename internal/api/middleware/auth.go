package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/straightdeal/marketplace-api/internal/core/domain"
	"github.com/straightdeal/marketplace-api/internal/core/ports"
)

const principalKey = "principal"

// IdentityLookup reads the current state of an identity. It is satisfied by
// ports.IdentityRepository.
type IdentityLookup interface {
	FindByID(ctx context.Context, id string) (*domain.Identity, error)
}

// AuthOptions configures the authorization gate.
type AuthOptions struct {
	// Lookup, when set, makes the gate re-read role and verification flags from the store
	// on every request instead of trusting the signed claims.
	Lookup IdentityLookup
}

// Auth validates the bearer access token and attaches the caller's domain.Principal to
// both the echo context and the request context.
//
// A missing or malformed header is reported as domain.ErrUnauthorized (401); a token that
// fails verification keeps the codec's domain.ErrTokenInvalid or domain.ErrTokenExpired (403).
func Auth(verifier ports.TokenCodec, opts AuthOptions) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return err
			}

			claims, err := verifier.Verify(raw)
			if err != nil {
				return err
			}
			p := domain.PrincipalFromClaims(claims)

			if opts.Lookup != nil {
				identity, err := opts.Lookup.FindByID(c.Request().Context(), p.UserID)
				if errors.Is(err, domain.ErrIdentityNotFound) {
					return domain.ErrUnauthorized
				}
				if err != nil {
					return err
				}
				p.Role = identity.Role
				p.EmailVerified = identity.IsEmailVerified
				p.PhoneVerified = identity.IsPhoneVerified
			}

			c.Set(principalKey, p)
			c.SetRequest(c.Request().WithContext(domain.WithPrincipal(c.Request().Context(), p)))
			return next(c)
		}
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header").SetInternal(domain.ErrUnauthorized)
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header").SetInternal(domain.ErrUnauthorized)
	}
	return strings.TrimSpace(parts[1]), nil
}

// PrincipalFrom returns the caller attached by Auth.
func PrincipalFrom(c echo.Context) (domain.Principal, bool) {
	p, ok := c.Get(principalKey).(domain.Principal)
	return p, ok
}
