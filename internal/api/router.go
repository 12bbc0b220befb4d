package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/straightdeal/marketplace-api/docs"
	"github.com/straightdeal/marketplace-api/internal/api/handler"
	"github.com/straightdeal/marketplace-api/internal/api/middleware"
	"github.com/straightdeal/marketplace-api/internal/core/domain"
	"github.com/straightdeal/marketplace-api/internal/core/ports"
)

// Dependencies are the collaborators the HTTP surface is built from.
type Dependencies struct {
	Auth     ports.AuthService
	Profiles ports.ProfileService
	// Access verifies bearer access tokens.
	Access ports.TokenCodec
	// Lookup enables the per-request role re-check. Nil trusts the token claims.
	Lookup middleware.IdentityLookup
	Checks []handler.DependencyCheck
	Log    zerolog.Logger
}

// Options carries the transport settings of the router.
type Options struct {
	ClientURL string
	Origins   []string
	Cookie    handler.CookieConfig
	RateLimit middleware.RateLimitConfig
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies, opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(deps.Log))
	e.Use(middleware.Metrics())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     opts.Origins,
		AllowCredentials: true,
		AllowMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization,
		},
	}))
	e.Use(middleware.NewIPRateLimiter(opts.RateLimit, deps.Log).Handler())

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.Auth, opts.Cookie)
	oauthHandler := handler.NewOAuthHandler(deps.Auth, opts.Cookie, opts.ClientURL, deps.Log)
	profileHandler := handler.NewProfileHandler(deps.Profiles)

	gate := middleware.AuthOptions{Lookup: deps.Lookup}
	authenticated := middleware.Authorize(deps.Access, gate)
	members := middleware.Authorize(deps.Access, gate, domain.RoleUser, domain.RoleAdmin)

	// --- Auth routes ---
	auth := e.Group("/api/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.DELETE("/logout", authHandler.Logout)
	auth.POST("/verify-email", authHandler.VerifyEmail)
	auth.POST("/resend-verification-email", authHandler.ResendVerification)
	auth.POST("/forgot-password", authHandler.ForgotPassword)
	auth.GET("/reset-password", authHandler.CheckResetToken)
	auth.POST("/reset-password", authHandler.ResetPassword)
	auth.POST("/refresh-token", authHandler.Refresh)
	auth.GET("/google", oauthHandler.GoogleAuth)
	auth.GET("/google/callback", oauthHandler.GoogleCallback)
	auth.POST("/send-phone-otp", authHandler.SendPhoneOTP, authenticated)
	auth.POST("/verify-phone-otp", authHandler.VerifyPhoneOTP, authenticated)

	// --- Profile routes ---
	profile := e.Group("/api/profile", members)
	profile.GET("/me", profileHandler.Me)
	profile.PATCH("/change-name", profileHandler.ChangeName)
	profile.PATCH("/change-password", profileHandler.ChangePassword)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.Checks...)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	// --- Operations ---
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
