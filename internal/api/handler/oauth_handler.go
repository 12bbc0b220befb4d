package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/straightdeal/marketplace-api/internal/api/metrics"
	"github.com/straightdeal/marketplace-api/internal/core/domain"
	"github.com/straightdeal/marketplace-api/internal/core/ports"
)

// callbackErrors maps OAuth callback failures to the error code of the failure redirect.
var callbackErrors = []struct {
	err  error
	code string
}{
	{domain.ErrOAuthMissingCode, "missing_code"},
	{domain.ErrOAuthInvalidState, "invalid_state"},
	{domain.ErrOAuthExchange, "exchange_failed"},
	{domain.ErrOAuthMissingToken, "missing_token"},
	{domain.ErrOAuthMissingEmail, "missing_email"},
	{domain.ErrOAuthUnverifiedEmail, "unverified_email"},
	{domain.ErrProviderConflict, "provider_conflict"},
}

// OAuthHandler serves the browser-navigated Google sign-in routes. Failures are reported
// through redirects to the client application, never as JSON.
type OAuthHandler struct {
	auth      ports.AuthService
	cookie    CookieConfig
	clientURL string
	log       zerolog.Logger
}

func NewOAuthHandler(auth ports.AuthService, cookie CookieConfig, clientURL string, log zerolog.Logger) *OAuthHandler {
	return &OAuthHandler{
		auth:      auth,
		cookie:    cookie,
		clientURL: strings.TrimRight(clientURL, "/"),
		log:       log,
	}
}

// GoogleAuth starts the Google flow. Browsers are redirected to the consent screen;
// clients asking for JSON receive the URL instead.
//
// @Summary      Start Google sign-in
// @Tags         oauth
// @Produce      json
// @Success      200  {object}  urlResponse
// @Success      302
// @Failure      500  {object}  errorResponse
// @Router       /auth/google [get]
func (h *OAuthHandler) GoogleAuth(c echo.Context) error {
	authURL, err := h.auth.GoogleAuthURL(c.Request().Context())
	if err := observe("google_auth", err); err != nil {
		return err
	}
	if strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON) {
		return c.JSON(http.StatusOK, urlResponse{URL: authURL})
	}
	return c.Redirect(http.StatusFound, authURL)
}

// GoogleCallback completes the Google flow and redirects to the client's success or
// failure page.
//
// @Summary      Google sign-in callback
// @Tags         oauth
// @Param        code   query  string  false  "Authorization code"
// @Param        state  query  string  false  "State issued by /auth/google"
// @Success      302
// @Router       /auth/google/callback [get]
func (h *OAuthHandler) GoogleCallback(c echo.Context) error {
	pair, err := h.auth.GoogleCallback(c.Request().Context(), c.QueryParam("code"), c.QueryParam("state"))
	if observe("google_callback", err) != nil {
		return c.Redirect(http.StatusFound, h.failureURL(c, err))
	}

	metrics.SessionsIssuedTotal.WithLabelValues("google").Inc()
	h.cookie.set(c, pair.RefreshToken)

	q := url.Values{}
	q.Set("status", "success")
	q.Set("access_token", pair.AccessToken)
	return c.Redirect(http.StatusFound, h.clientURL+"/success-login?"+q.Encode())
}

func (h *OAuthHandler) failureURL(c echo.Context, err error) string {
	code := "server_error"
	for _, ce := range callbackErrors {
		if errors.Is(err, ce.err) {
			code = ce.code
			break
		}
	}
	if code == "server_error" {
		h.log.Error().Err(err).Str("path", c.Path()).Msg("google callback failed")
	} else {
		h.log.Info().Err(err).Str("reason", code).Msg("google callback rejected")
	}

	q := url.Values{}
	q.Set("status", "error")
	q.Set("error", code)
	return h.clientURL + "/failed-login?" + q.Encode()
}
