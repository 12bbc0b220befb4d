package ports

import "context"

// ProviderTokens are the tokens returned by an external identity provider.
type ProviderTokens struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
}

// ProviderProfile is the subset of the provider's user info the service relies on.
type ProviderProfile struct {
	Email         string
	EmailVerified bool
	GivenName     string
	FamilyName    string
	Picture       string
}

// IdentityProvider is an OAuth authorization-code provider such as Google.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*ProviderTokens, error)
	FetchProfile(ctx context.Context, accessToken string) (*ProviderProfile, error)
}
