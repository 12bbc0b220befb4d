package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/straightdeal/marketplace-api/internal/core/domain"
	"github.com/straightdeal/marketplace-api/internal/core/ports"
)

var errOAuthDisabled = errors.New("google sign-in is not configured")

// GoogleAuthURL stores a fresh state value and returns the consent page URL carrying it.
func (s *AuthService) GoogleAuthURL(ctx context.Context) (string, error) {
	if s.provider == nil || s.states == nil {
		return "", errOAuthDisabled
	}
	state, err := s.secrets.Token()
	if err != nil {
		return "", fmt.Errorf("google auth: %w", err)
	}
	if err := s.states.Save(ctx, state, oauthIntentLogin, s.cfg.StateTTL); err != nil {
		return "", fmt.Errorf("google auth: %w", err)
	}
	return s.provider.AuthCodeURL(state), nil
}

// GoogleCallback completes the authorization-code flow. Only emails the provider has verified
// are accepted. The identity is found by email or created as a verified User; an email owned
// by another provider is never linked.
func (s *AuthService) GoogleCallback(ctx context.Context, code, state string) (*ports.TokenPair, error) {
	if s.provider == nil || s.states == nil {
		return nil, errOAuthDisabled
	}
	if code == "" {
		return nil, domain.ErrOAuthMissingCode
	}
	if state == "" {
		return nil, domain.ErrOAuthInvalidState
	}
	intent, ok, err := s.states.Consume(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("google callback: %w", err)
	}
	if !ok || intent != oauthIntentLogin {
		return nil, domain.ErrOAuthInvalidState
	}

	tokens, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		s.log.Warn().Err(err).Msg("google code exchange failed")
		return nil, fmt.Errorf("%w: %v", domain.ErrOAuthExchange, err)
	}
	if tokens == nil || tokens.AccessToken == "" {
		return nil, domain.ErrOAuthMissingToken
	}
	profile, err := s.provider.FetchProfile(ctx, tokens.AccessToken)
	if err != nil {
		s.log.Warn().Err(err).Msg("google profile fetch failed")
		return nil, fmt.Errorf("%w: %v", domain.ErrOAuthExchange, err)
	}
	email := domain.NormalizeEmail(profile.Email)
	if email == "" {
		return nil, domain.ErrOAuthMissingEmail
	}
	if !profile.EmailVerified {
		s.log.Info().Msg("google profile email not verified")
		return nil, domain.ErrOAuthUnverifiedEmail
	}

	identity, err := s.federatedIdentity(ctx, email, profile)
	if err != nil {
		return nil, err
	}
	pair, err := s.startSession(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("google callback: %w", err)
	}
	s.log.Info().Str("user_id", identity.ID).Msg("google sign-in succeeded")
	return pair, nil
}

func (s *AuthService) federatedIdentity(ctx context.Context, email string, profile *ports.ProviderProfile) (*domain.Identity, error) {
	identity, err := s.repo.FindByEmail(ctx, email)
	if err == nil {
		if identity.Provider != domain.ProviderGoogle {
			return nil, domain.ErrProviderConflict
		}
		return identity, nil
	}
	if !errors.Is(err, domain.ErrIdentityNotFound) {
		return nil, fmt.Errorf("google callback: %w", err)
	}

	now := s.now().UTC()
	created, err := s.repo.Create(ctx, &domain.Identity{
		Email:           email,
		Role:            domain.RoleUser,
		Provider:        domain.ProviderGoogle,
		FirstName:       profile.GivenName,
		LastName:        profile.FamilyName,
		Avatar:          profile.Picture,
		IsEmailVerified: true,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if errors.Is(err, domain.ErrEmailTaken) {
		// Lost a race with a concurrent callback or registration for the same email.
		return s.federatedIdentity(ctx, email, profile)
	}
	if err != nil {
		return nil, fmt.Errorf("google callback: %w", err)
	}
	s.log.Info().Str("user_id", created.ID).Msg("federated identity created")
	return created, nil
}
