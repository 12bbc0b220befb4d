package domain

import "errors"

// Input errors (400).
var (
	ErrValidation        = errors.New("validation failed")
	ErrWeakPassword      = errors.New("password must be at least 8 characters and contain upper-case, lower-case, digit and special characters")
	ErrPasswordTooLong   = errors.New("password must be at most 72 bytes")
	ErrInvalidPhone      = errors.New("phone number must be in international format, e.g. +14155550123")
	ErrAlreadyVerified   = errors.New("already verified")
	ErrInvalidCode       = errors.New("invalid verification code")
	ErrCodeExpired       = errors.New("verification code has expired")
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
	ErrPasswordNotSet    = errors.New("password not set for this account")
)

// Authentication and authorization errors (401, 403).
var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUnauthorized        = errors.New("authentication required")
	ErrForbidden           = errors.New("access forbidden")
	ErrWrongProvider       = errors.New("operation not available for accounts created with an external provider")
	ErrNotVerified         = errors.New("account is not verified")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrTokenInvalid        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token has expired")
)

// Lookup and conflict errors (404, 409).
var (
	ErrIdentityNotFound         = errors.New("user not found")
	ErrEmailTaken               = errors.New("email is already in use")
	ErrEmailPendingVerification = errors.New("email is already registered but not verified")
	ErrProviderConflict         = errors.New("email is registered with a different sign-in method")
)

// Infrastructure errors.
var (
	ErrRateLimited        = errors.New("too many requests, please try again later")
	ErrNotificationFailed = errors.New("failed to send notification")
	// ErrStaleToken is returned by conditional store updates that matched nothing because a
	// concurrent request replaced or consumed the slot first.
	ErrStaleToken = errors.New("token slot changed concurrently")
)

// OAuth callback failures. Each one maps to a redirect error code.
var (
	ErrOAuthMissingCode  = errors.New("missing_code")
	ErrOAuthInvalidState = errors.New("invalid_state")
	ErrOAuthExchange     = errors.New("exchange_failed")
	ErrOAuthMissingToken = errors.New("missing_token")
	ErrOAuthMissingEmail = errors.New("missing_email")

	// ErrOAuthUnverifiedEmail rejects a provider profile whose email the provider has not verified.
	ErrOAuthUnverifiedEmail = errors.New("unverified_email")
)
