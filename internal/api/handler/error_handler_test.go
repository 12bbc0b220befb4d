package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/straightdeal/marketplace-api/internal/core/domain"
)

func TestHTTPErrorHandler_Taxonomy(t *testing.T) {
	cases := []struct {
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
		{domain.ErrNotificationFailed, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	e := newEcho()
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			e.HTTPErrorHandler(fmt.Errorf("wrapped: %w", tc.err), c)

			assert.Equal(t, tc.code, rec.Code)
			body := decode(t, rec.Body.Bytes())
			if tc.code < 500 {
				assert.Equal(t, tc.err.Error(), body["error"], "wrapping context is not leaked")
			}
		})
	}
}

func TestHTTPErrorHandler_ValidationKeepsDetail(t *testing.T) {
	e := newEcho()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)

	e.HTTPErrorHandler(domain.Invalid("firstName is required"), c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation failed: firstName is required", decode(t, rec.Body.Bytes())["error"])
}

func TestHTTPErrorHandler_EchoErrorsKeepTheirCode(t *testing.T) {
	e := newEcho()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	e.HTTPErrorHandler(echo.NewHTTPError(http.StatusTooManyRequests, "slow down"), c)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "slow down", decode(t, rec.Body.Bytes())["error"])
}

func TestHTTPErrorHandler_UnknownErrorIsGeneric(t *testing.T) {
	e := newEcho()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	e.HTTPErrorHandler(errors.New("mongo: password=hunter2"), c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decode(t, rec.Body.Bytes())["error"])
}
