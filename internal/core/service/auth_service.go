package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/straightdeal/marketplace-api/internal/core/domain"
	"github.com/straightdeal/marketplace-api/internal/core/ports"
)

const (
	defaultAccessTTL     = 15 * time.Minute
	defaultRefreshTTL    = 7 * 24 * time.Hour
	defaultResetTokenTTL = 30 * time.Minute
	defaultStateTTL      = 10 * time.Minute

	oauthIntentLogin = "login"
)

// AuthConfig holds the policy constants of the identity manager.
type AuthConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	ResetTokenTTL time.Duration
	StateTTL      time.Duration
	BcryptCost    int
	// ResetPasswordURL is the client page that receives ?token=<reset token>.
	ResetPasswordURL string
}

func (c *AuthConfig) applyDefaults() {
	if c.AccessTTL <= 0 {
		c.AccessTTL = defaultAccessTTL
	}
	if c.RefreshTTL <= 0 {
		c.RefreshTTL = defaultRefreshTTL
	}
	if c.ResetTokenTTL <= 0 {
		c.ResetTokenTTL = defaultResetTokenTTL
	}
	if c.StateTTL <= 0 {
		c.StateTTL = defaultStateTTL
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = bcrypt.DefaultCost
	}
}

// AuthDeps are the collaborators of AuthService. Throttle, Provider and States may be nil:
// sends are then unthrottled and Google sign-in is disabled.
type AuthDeps struct {
	Repo     ports.IdentityRepository
	Access   ports.TokenCodec
	Refresh  ports.TokenCodec
	Secrets  ports.SecretGenerator
	Notifier ports.Notifier
	Throttle ports.Throttle
	Provider ports.IdentityProvider
	States   ports.OAuthStateStore
	Log      zerolog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// AuthService is the identity manager: registration, verification, sessions, password
// reset and Google federation.
type AuthService struct {
	repo     ports.IdentityRepository
	access   ports.TokenCodec
	refresh  ports.TokenCodec
	secrets  ports.SecretGenerator
	notifier ports.Notifier
	throttle ports.Throttle
	provider ports.IdentityProvider
	states   ports.OAuthStateStore
	log      zerolog.Logger
	now      func() time.Time
	cfg      AuthConfig
}

var _ ports.AuthService = (*AuthService)(nil)

func NewAuthService(deps AuthDeps, cfg AuthConfig) *AuthService {
	cfg.applyDefaults()
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		repo:     deps.Repo,
		access:   deps.Access,
		refresh:  deps.Refresh,
		secrets:  deps.Secrets,
		notifier: deps.Notifier,
		throttle: deps.Throttle,
		provider: deps.Provider,
		states:   deps.States,
		log:      deps.Log,
		now:      now,
		cfg:      cfg,
	}
}

func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.Identity, error) {
	in.Email = domain.NormalizeEmail(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if in.FirstName == "" || in.LastName == "" {
		return nil, domain.Invalid("first name and last name are required")
	}
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return nil, domain.Invalid("a valid email is required")
	}
	if err := domain.ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		if existing.IsEmailVerified {
			return nil, domain.ErrEmailTaken
		}
		return nil, domain.ErrEmailPendingVerification
	case !errors.Is(err, domain.ErrIdentityNotFound):
		return nil, fmt.Errorf("register: %w", err)
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	code, err := s.secrets.Code()
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	now := s.now().UTC()
	identity, err := s.repo.Create(ctx, &domain.Identity{
		Email:          in.Email,
		PasswordHash:   hash,
		Role:           domain.RoleVisitor,
		Provider:       domain.ProviderLocal,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		EmailOTP:       code,
		EmailOTPExpiry: s.secrets.ExpiryFrom(now),
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, domain.ErrEmailPendingVerification
		}
		return nil, fmt.Errorf("register: %w", err)
	}
	s.log.Info().Str("user_id", identity.ID).Msg("identity registered")

	if err := s.sendVerificationEmail(ctx, identity, code); err != nil {
		return identity, err
	}
	return identity, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.TokenPair, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.Invalid("email and password are required")
	}

	identity, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if identity.Role != domain.RoleAdmin && !identity.CanSignIn() {
		return nil, domain.ErrNotVerified
	}
	if !identity.HasPassword() {
		return nil, domain.ErrPasswordNotSet
	}
	if bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	pair, err := s.startSession(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	s.log.Info().Str("user_id", identity.ID).Str("role", string(identity.Role)).Msg("login succeeded")
	return pair, nil
}

// Logout revokes the stored refresh token when it still equals the presented one. A token
// that no longer verifies has nothing left to revoke, so it is not an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return domain.ErrUnauthorized
	}
	claims, err := s.refresh.Verify(refreshToken)
	if err != nil {
		return nil
	}
	err = s.repo.ClearRefreshToken(ctx, claims.UserID, refreshToken)
	switch {
	case err == nil:
		s.log.Info().Str("user_id", claims.UserID).Msg("refresh token revoked")
		return nil
	case errors.Is(err, domain.ErrStaleToken), errors.Is(err, domain.ErrIdentityNotFound):
		return nil
	default:
		return fmt.Errorf("logout: %w", err)
	}
}

// Refresh mints a new access token from the identity's current state. The refresh token
// itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", domain.ErrUnauthorized
	}
	claims, err := s.refresh.Verify(refreshToken)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrInvalidRefreshToken, err)
	}

	identity, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			return "", domain.ErrInvalidRefreshToken
		}
		return "", fmt.Errorf("refresh: %w", err)
	}
	if identity.RefreshToken == "" ||
		subtle.ConstantTimeCompare([]byte(identity.RefreshToken), []byte(refreshToken)) != 1 {
		s.log.Warn().Str("user_id", identity.ID).Msg("refresh token rejected: not the stored token")
		return "", domain.ErrInvalidRefreshToken
	}

	access, err := s.access.Mint(identity.Claims(), s.cfg.AccessTTL)
	if err != nil {
		return "", fmt.Errorf("refresh: %w", err)
	}
	return access, nil
}

// startSession mints an access/refresh pair and stores the refresh token, replacing any
// previous session of the identity.
func (s *AuthService) startSession(ctx context.Context, identity *domain.Identity) (*ports.TokenPair, error) {
	claims := identity.Claims()
	access, err := s.access.Mint(claims, s.cfg.AccessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.refresh.Mint(claims, s.cfg.RefreshTTL)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetRefreshToken(ctx, identity.ID, refresh); err != nil {
		return nil, err
	}
	return &ports.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// promote moves a Visitor whose verification is complete to the User role. A concurrent
// promotion is not an error; the current state is re-read instead.
func (s *AuthService) promote(ctx context.Context, identity *domain.Identity) (*domain.Identity, error) {
	if identity.Role != domain.RoleVisitor || !identity.IsFullyVerified() {
		return identity, nil
	}
	promoted, err := s.repo.PromoteToUser(ctx, identity.ID)
	if errors.Is(err, domain.ErrStaleToken) {
		return s.repo.FindByID(ctx, identity.ID)
	}
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", promoted.ID).Msg("identity promoted to User")
	return promoted, nil
}

// allowSend applies the per-destination send budget. A throttle outage lets the send through.
func (s *AuthService) allowSend(ctx context.Context, key string) error {
	if s.throttle == nil {
		return nil
	}
	err := s.throttle.Allow(ctx, key)
	if err == nil || errors.Is(err, domain.ErrRateLimited) {
		return err
	}
	s.log.Warn().Err(err).Str("key", key).Msg("send throttle unavailable, allowing")
	return nil
}

func (s *AuthService) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", domain.ErrPasswordTooLong
	}
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
