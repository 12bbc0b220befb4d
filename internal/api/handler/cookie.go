package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const refreshCookieName = "refreshToken"

// CookieConfig controls the refresh-token cookie.
type CookieConfig struct {
	// Secure is set outside development so the cookie only travels over HTTPS.
	Secure bool
	// MaxAge matches the refresh token lifetime.
	MaxAge time.Duration
	Path   string
}

func (cc CookieConfig) path() string {
	if cc.Path == "" {
		return "/api/auth"
	}
	return cc.Path
}

func (cc CookieConfig) set(c echo.Context, refreshToken string) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    refreshToken,
		Path:     cc.path(),
		MaxAge:   int(cc.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cc.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (cc CookieConfig) clear(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     cc.path(),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   cc.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// refreshTokenFrom prefers the body value and falls back to the cookie.
func refreshTokenFrom(c echo.Context, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	if ck, err := c.Cookie(refreshCookieName); err == nil {
		return ck.Value
	}
	return ""
}
