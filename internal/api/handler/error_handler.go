package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/straightdeal/marketplace-api/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// messageResponse is returned by operations that have nothing else to report.
type messageResponse struct {
	Message string `json:"message"`
}

// statusBySentinel is matched in order; the first sentinel found in the chain wins.
var statusBySentinel = []struct {
	err  error
	code int
}{
	{domain.ErrWeakPassword, http.StatusBadRequest},
	{domain.ErrPasswordTooLong, http.StatusBadRequest},
	{domain.ErrInvalidPhone, http.StatusBadRequest},
	{domain.ErrAlreadyVerified, http.StatusBadRequest},
	{domain.ErrInvalidCode, http.StatusBadRequest},
	{domain.ErrCodeExpired, http.StatusBadRequest},
	{domain.ErrInvalidResetToken, http.StatusBadRequest},
	{domain.ErrPasswordNotSet, http.StatusBadRequest},

	{domain.ErrInvalidCredentials, http.StatusUnauthorized},
	{domain.ErrUnauthorized, http.StatusUnauthorized},

	{domain.ErrForbidden, http.StatusForbidden},
	{domain.ErrWrongProvider, http.StatusForbidden},
	{domain.ErrNotVerified, http.StatusForbidden},
	{domain.ErrInvalidRefreshToken, http.StatusForbidden},
	{domain.ErrTokenExpired, http.StatusForbidden},
	{domain.ErrTokenInvalid, http.StatusForbidden},

	{domain.ErrIdentityNotFound, http.StatusNotFound},

	{domain.ErrEmailTaken, http.StatusConflict},
	{domain.ErrEmailPendingVerification, http.StatusConflict},
	{domain.ErrProviderConflict, http.StatusConflict},

	{domain.ErrRateLimited, http.StatusTooManyRequests},
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that maps domain errors to their
// HTTP status and renders {"error": "<message>"}. Unexpected errors are logged and
// reported as a generic 500.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) && he.Internal != nil {
		log.Debug().Err(he.Internal).Str("path", c.Path()).Msg("request rejected")
	}

	code, msg, known := statusOf(err)
	if known {
		return code, msg
	}

	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	if errors.Is(err, domain.ErrNotificationFailed) {
		return http.StatusInternalServerError, domain.ErrNotificationFailed.Error()
	}
	return code, msg
}

// statusOf maps err to its HTTP status and client-facing message. known is false for
// errors outside the domain taxonomy.
func statusOf(err error) (code int, msg string, known bool) {
	// Echo's own errors (bind failures, unknown routes, ...).
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message), true
	}

	// Validation messages carry the offending field, so they are returned whole.
	if errors.Is(err, domain.ErrValidation) {
		return http.StatusBadRequest, err.Error(), true
	}

	for _, s := range statusBySentinel {
		if errors.Is(err, s.err) {
			return s.code, s.err.Error(), true
		}
	}
	return http.StatusInternalServerError, "internal server error", false
}
