package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/straightdeal/marketplace-api/internal/core/domain"
	"github.com/straightdeal/marketplace-api/internal/pkg/token"
)

type stubLookup struct {
	identity *domain.Identity
	err      error
	calls    int
}

func (s *stubLookup) FindByID(ctx context.Context, id string) (*domain.Identity, error) {
	s.calls++
	return s.identity, s.err
}

func newCodec(t *testing.T, now time.Time) *token.Codec {
	t.Helper()
	c, err := token.New("access-secret", "straightdeal", domain.TokenAccess)
	require.NoError(t, err)
	return c.WithClock(func() time.Time { return now })
}

func mint(t *testing.T, c *token.Codec, role domain.Role) string {
	t.Helper()
	signed, err := c.Mint(domain.Claims{
		UserID:        "id-1",
		Email:         "ada@example.com",
		Role:          role,
		EmailVerified: true,
	}, 15*time.Minute)
	require.NoError(t, err)
	return signed
}

func run(t *testing.T, mw echo.MiddlewareFunc, authorization string) (domain.Principal, bool, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	c := e.NewContext(req, httptest.NewRecorder())

	var (
		got    domain.Principal
		called bool
	)
	err := mw(func(c echo.Context) error {
		called = true
		p, ok := PrincipalFrom(c)
		require.True(t, ok, "principal on echo context")
		fromCtx, ok := domain.PrincipalFromContext(c.Request().Context())
		require.True(t, ok, "principal on request context")
		require.Equal(t, p, fromCtx)
		got = p
		return c.NoContent(http.StatusOK)
	})(c)
	return got, called, err
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	now := time.Now()
	codec := newCodec(t, now)

	p, called, err := run(t, Auth(codec, AuthOptions{}), "Bearer "+mint(t, codec, domain.RoleVisitor))

	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "id-1", p.UserID)
	assert.Equal(t, "ada@example.com", p.Email)
	assert.Equal(t, domain.RoleVisitor, p.Role)
	assert.True(t, p.EmailVerified)
	assert.False(t, p.PhoneVerified)
}

func TestAuthMiddleware_MissingOrMalformedHeader(t *testing.T) {
	codec := newCodec(t, time.Now())
	for _, header := range []string{"", "Token abc", "Bearer", "Bearer   "} {
		_, called, err := run(t, Auth(codec, AuthOptions{}), header)
		require.Error(t, err, "header %q", header)
		assert.False(t, called)

		var he *echo.HTTPError
		require.True(t, errors.As(err, &he))
		assert.Equal(t, http.StatusUnauthorized, he.Code)
		assert.ErrorIs(t, he.Internal, domain.ErrUnauthorized)
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	issued := time.Now()
	codec := newCodec(t, issued)
	signed := mint(t, codec, domain.RoleUser)

	t.Run("tampered", func(t *testing.T) {
		_, called, err := run(t, Auth(codec, AuthOptions{}), "Bearer "+signed+"x")
		assert.ErrorIs(t, err, domain.ErrTokenInvalid)
		assert.False(t, called)
	})

	t.Run("expired", func(t *testing.T) {
		later := newCodec(t, issued.Add(16*time.Minute))
		_, called, err := run(t, Auth(later, AuthOptions{}), "Bearer "+signed)
		assert.ErrorIs(t, err, domain.ErrTokenExpired)
		assert.False(t, called)
	})

	t.Run("refresh token presented as access token", func(t *testing.T) {
		refresh, err := token.New("access-secret", "straightdeal", domain.TokenRefresh)
		require.NoError(t, err)
		rt, err := refresh.Mint(domain.Claims{UserID: "id-1", Role: domain.RoleUser}, time.Hour)
		require.NoError(t, err)

		_, called, err := run(t, Auth(codec, AuthOptions{}), "Bearer "+rt)
		assert.ErrorIs(t, err, domain.ErrTokenInvalid)
		assert.False(t, called)
	})
}

func TestAuthMiddleware_StoreRoleCheck(t *testing.T) {
	codec := newCodec(t, time.Now())
	signed := mint(t, codec, domain.RoleUser)

	t.Run("role comes from the store", func(t *testing.T) {
		lookup := &stubLookup{identity: &domain.Identity{ID: "id-1", Role: domain.RoleVisitor, IsEmailVerified: true}}
		p, called, err := run(t, Auth(codec, AuthOptions{Lookup: lookup}), "Bearer "+signed)
		require.NoError(t, err)
		assert.True(t, called)
		assert.Equal(t, 1, lookup.calls)
		assert.Equal(t, domain.RoleVisitor, p.Role, "demoted identity loses its signed role")
	})

	t.Run("deleted identity", func(t *testing.T) {
		lookup := &stubLookup{err: domain.ErrIdentityNotFound}
		_, called, err := run(t, Auth(codec, AuthOptions{Lookup: lookup}), "Bearer "+signed)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		assert.False(t, called)
	})

	t.Run("store unavailable", func(t *testing.T) {
		lookup := &stubLookup{err: errors.New("server selection timeout")}
		_, called, err := run(t, Auth(codec, AuthOptions{Lookup: lookup}), "Bearer "+signed)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrUnauthorized)
		assert.False(t, called)
	})
}
