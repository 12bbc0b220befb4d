package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Role check modes for the authorization gate.
const (
	RoleCheckClaims = "claims"
	RoleCheckStore  = "store"
)

type Config struct {
	Port      string   `env:"PORT,      default=8080"`
	Env       string   `env:"ENV,       default=development"`
	LogLevel  string   `env:"LOG_LEVEL, default=info"`
	ServerURL string   `env:"SERVER_URL, default=http://localhost:8080"`
	ClientURL string   `env:"CLIENT_URL, default=http://localhost:5173"`
	Origins   []string `env:"CORS_ALLOWED_ORIGINS, default=http://localhost:5173"`

	JWT       JWTConfig
	Auth      AuthConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	Google    GoogleConfig
	SendGrid  SendGridConfig
	Twilio    TwilioConfig
	RateLimit RateLimitConfig
	Breaker   BreakerConfig
}

type JWTConfig struct {
	AccessSecret  string        `env:"JWT_ACCESS_TOKEN_SECRET"`
	RefreshSecret string        `env:"JWT_REFRESH_TOKEN_SECRET"`
	Issuer        string        `env:"JWT_ISSUER,      default=straightdeal"`
	AccessTTL     time.Duration `env:"JWT_ACCESS_TTL,  default=15m"`
	RefreshTTL    time.Duration `env:"JWT_REFRESH_TTL, default=168h"`
}

type AuthConfig struct {
	// RoleCheck selects whether the gate trusts the role in the token ("claims") or
	// re-reads it from the credential store on every request ("store").
	RoleCheck        string        `env:"AUTH_ROLE_CHECK,        default=claims"`
	OTPTTL           time.Duration `env:"AUTH_OTP_TTL,           default=5m"`
	ResetTokenTTL    time.Duration `env:"AUTH_RESET_TOKEN_TTL,   default=30m"`
	BcryptCost       int           `env:"AUTH_BCRYPT_COST,       default=10"`
	OTPSendLimit     int           `env:"AUTH_OTP_SEND_LIMIT,    default=5"`
	OTPSendWindow    time.Duration `env:"AUTH_OTP_SEND_WINDOW,   default=1h"`
	ResetPasswordURL string        `env:"AUTH_RESET_PASSWORD_URL"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=straightdeal"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type GoogleConfig struct {
	ClientID     string `env:"GOOGLE_CLIENT_ID"`
	ClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	// RedirectURL defaults to SERVER_URL + /api/auth/google/callback.
	RedirectURL string `env:"GOOGLE_REDIRECT_URL"`
}

type SendGridConfig struct {
	APIKey      string `env:"SENDGRID_API_KEY"`
	SenderEmail string `env:"SENDER_EMAIL"`
	SenderName  string `env:"SENDER_NAME, default=StraightDeal"`
}

type TwilioConfig struct {
	AccountSID string `env:"TWILIO_ACCOUNT_SID"`
	AuthToken  string `env:"TWILIO_AUTH_TOKEN"`
	FromNumber string `env:"TWILIO_PHONE_NUMBER"`
}

type RateLimitConfig struct {
	Requests int           `env:"RATE_LIMIT_REQUESTS, default=2000"`
	Window   time.Duration `env:"RATE_LIMIT_WINDOW,   default=15m"`
	Burst    int           `env:"RATE_LIMIT_BURST,    default=50"`
}

type BreakerConfig struct {
	MaxFailures uint32        `env:"BREAKER_MAX_FAILURES, default=5"`
	Interval    time.Duration `env:"BREAKER_INTERVAL,     default=1m"`
	Timeout     time.Duration `env:"BREAKER_TIMEOUT,      default=30s"`
}

// Load reads configuration from environment variables using go-envconfig and validates it.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// Validate rejects configurations the service cannot run safely with.
func (c *Config) Validate() error {
	var errs []error
	if c.JWT.AccessSecret == "" {
		errs = append(errs, errors.New("JWT_ACCESS_TOKEN_SECRET is required"))
	}
	if c.JWT.RefreshSecret == "" {
		errs = append(errs, errors.New("JWT_REFRESH_TOKEN_SECRET is required"))
	}
	if c.JWT.AccessSecret != "" && c.JWT.AccessSecret == c.JWT.RefreshSecret {
		errs = append(errs, errors.New("access and refresh token secrets must differ"))
	}
	if c.JWT.AccessTTL <= 0 {
		errs = append(errs, errors.New("JWT_ACCESS_TTL must be positive"))
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		errs = append(errs, fmt.Errorf("JWT_REFRESH_TTL (%s) must exceed JWT_ACCESS_TTL (%s)", c.JWT.RefreshTTL, c.JWT.AccessTTL))
	}
	switch c.Auth.RoleCheck {
	case RoleCheckClaims, RoleCheckStore:
	default:
		errs = append(errs, fmt.Errorf("AUTH_ROLE_CHECK must be %q or %q", RoleCheckClaims, RoleCheckStore))
	}
	if c.Auth.OTPTTL < time.Minute || c.Auth.OTPTTL > 10*time.Minute {
		errs = append(errs, errors.New("AUTH_OTP_TTL must be between 1m and 10m"))
	}
	if c.Auth.ResetTokenTTL <= 0 {
		errs = append(errs, errors.New("AUTH_RESET_TOKEN_TTL must be positive"))
	}
	if c.IsProduction() {
		// Without providers verification codes would only reach the log.
		if c.SendGrid.APIKey == "" || c.SendGrid.SenderEmail == "" {
			errs = append(errs, errors.New("SENDGRID_API_KEY and SENDER_EMAIL are required in production"))
		}
		if c.Twilio.AccountSID == "" || c.Twilio.AuthToken == "" || c.Twilio.FromNumber == "" {
			errs = append(errs, errors.New("TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_PHONE_NUMBER are required in production"))
		}
	}
	return errors.Join(errs...)
}

// IsProduction reports whether the service runs with ENV=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// GoogleRedirectURL returns the OAuth callback registered with Google.
func (c *Config) GoogleRedirectURL() string {
	if c.Google.RedirectURL != "" {
		return c.Google.RedirectURL
	}
	return strings.TrimRight(c.ServerURL, "/") + "/api/auth/google/callback"
}

// ResetURL returns the client page that receives the password reset token.
func (c *Config) ResetURL() string {
	if c.Auth.ResetPasswordURL != "" {
		return c.Auth.ResetPasswordURL
	}
	return strings.TrimRight(c.ClientURL, "/") + "/reset-password"
}
