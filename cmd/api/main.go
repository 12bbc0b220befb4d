// @title           StraightDeal Marketplace API
// @version         1.0
// @description     Identity, session and profile endpoints of the StraightDeal car marketplace.
// @BasePath        /api
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/straightdeal/marketplace-api/internal/api"
	"github.com/straightdeal/marketplace-api/internal/api/handler"
	"github.com/straightdeal/marketplace-api/internal/api/middleware"
	"github.com/straightdeal/marketplace-api/internal/core/domain"
	"github.com/straightdeal/marketplace-api/internal/core/service"
	mongostore "github.com/straightdeal/marketplace-api/internal/infrastructure/db/mongo"
	redisstore "github.com/straightdeal/marketplace-api/internal/infrastructure/db/redis"
	"github.com/straightdeal/marketplace-api/internal/infrastructure/notify"
	"github.com/straightdeal/marketplace-api/internal/infrastructure/oauth"
	"github.com/straightdeal/marketplace-api/internal/pkg/config"
	"github.com/straightdeal/marketplace-api/internal/pkg/otp"
	"github.com/straightdeal/marketplace-api/internal/pkg/token"
	"github.com/straightdeal/marketplace-api/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log := logger.Get()
		log.Error().Err(err).Msg("api stopped")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "marketplace-api",
	})

	// --- Stores ---
	mongoClient, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := mongoClient.Close(closeCtx); err != nil {
			log.Error().Err(err).Msg("error closing mongodb")
		}
	}()

	identities := mongostore.NewIdentityRepository(mongoClient.Database())
	if err := identities.EnsureIndexes(ctx); err != nil {
		return err
	}

	rdb, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("error closing redis")
		}
	}()

	// --- Tokens ---
	access, err := token.New(cfg.JWT.AccessSecret, cfg.JWT.Issuer, domain.TokenAccess)
	if err != nil {
		return err
	}
	refresh, err := token.New(cfg.JWT.RefreshSecret, cfg.JWT.Issuer, domain.TokenRefresh)
	if err != nil {
		return err
	}

	// --- Outbound providers ---
	notifier := notify.New(notify.Config{
		SendGrid: notify.SendGridConfig{
			APIKey:      cfg.SendGrid.APIKey,
			SenderEmail: cfg.SendGrid.SenderEmail,
			SenderName:  cfg.SendGrid.SenderName,
		},
		Twilio: notify.TwilioConfig{
			AccountSID: cfg.Twilio.AccountSID,
			AuthToken:  cfg.Twilio.AuthToken,
			FromNumber: cfg.Twilio.FromNumber,
		},
		Breaker: notify.BreakerConfig{
			MaxFailures: cfg.Breaker.MaxFailures,
			Interval:    cfg.Breaker.Interval,
			Timeout:     cfg.Breaker.Timeout,
		},
	}, logger.Component("notify"))

	deps := service.AuthDeps{
		Repo:     identities,
		Access:   access,
		Refresh:  refresh,
		Secrets:  otp.NewGenerator(6, cfg.Auth.OTPTTL),
		Notifier: notifier,
		Throttle: redisstore.NewSendThrottle(rdb, cfg.Auth.OTPSendLimit, cfg.Auth.OTPSendWindow),
		Log:      logger.Component("auth"),
	}
	if cfg.Google.ClientID != "" && cfg.Google.ClientSecret != "" {
		deps.Provider = oauth.NewGoogle(oauth.GoogleConfig{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL(),
		})
		deps.States = redisstore.NewStateStore(rdb)
	} else {
		log.Warn().Msg("GOOGLE_CLIENT_ID not set, google sign-in disabled")
	}

	authService := service.NewAuthService(deps, service.AuthConfig{
		AccessTTL:        cfg.JWT.AccessTTL,
		RefreshTTL:       cfg.JWT.RefreshTTL,
		ResetTokenTTL:    cfg.Auth.ResetTokenTTL,
		BcryptCost:       cfg.Auth.BcryptCost,
		ResetPasswordURL: cfg.ResetURL(),
	})
	profileService := service.NewProfileService(identities, cfg.Auth.BcryptCost, logger.Component("profile"))

	// --- HTTP ---
	var lookup middleware.IdentityLookup
	if cfg.Auth.RoleCheck == config.RoleCheckStore {
		lookup = identities
	}

	router := api.NewRouter(api.Dependencies{
		Auth:     authService,
		Profiles: profileService,
		Access:   access,
		Lookup:   lookup,
		Checks: []handler.DependencyCheck{
			{Name: "mongodb", Ping: mongoClient.Ping},
			{Name: "redis", Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
		},
		Log: logger.Component("http"),
	}, api.Options{
		ClientURL: cfg.ClientURL,
		Origins:   cfg.Origins,
		Cookie: handler.CookieConfig{
			Secure: cfg.IsProduction(),
			MaxAge: cfg.JWT.RefreshTTL,
		},
		RateLimit: middleware.RateLimitConfig{
			Requests: cfg.RateLimit.Requests,
			Window:   cfg.RateLimit.Window,
			Burst:    cfg.RateLimit.Burst,
		},
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return serve(ctx, server, log)
}

// serve runs the server until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, server *http.Server, log zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
