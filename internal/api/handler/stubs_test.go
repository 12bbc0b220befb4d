package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"

	"github.com/straightdeal/marketplace-api/internal/core/domain"
	"github.com/straightdeal/marketplace-api/internal/core/ports"
)

type stubAuthService struct {
	registerFn       func(ctx context.Context, in ports.RegisterInput) (*domain.Identity, error)
	verifyEmailFn    func(ctx context.Context, email, code string) (*ports.TokenPair, error)
	resendFn         func(ctx context.Context, email string) error
	loginFn          func(ctx context.Context, email, password string) (*ports.TokenPair, error)
	logoutFn         func(ctx context.Context, refreshToken string) error
	refreshFn        func(ctx context.Context, refreshToken string) (string, error)
	sendPhoneOTPFn   func(ctx context.Context, userID, phone string) error
	verifyPhoneOTPFn func(ctx context.Context, userID, phone, code string) (*ports.TokenPair, error)
	forgotFn         func(ctx context.Context, email string) error
	checkResetFn     func(ctx context.Context, token string) error
	resetFn          func(ctx context.Context, token, password string) error
	googleURLFn      func(ctx context.Context) (string, error)
	googleCallbackFn func(ctx context.Context, code, state string) (*ports.TokenPair, error)
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.Identity, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) VerifyEmail(ctx context.Context, email, code string) (*ports.TokenPair, error) {
	return s.verifyEmailFn(ctx, email, code)
}

func (s *stubAuthService) ResendVerification(ctx context.Context, email string) error {
	return s.resendFn(ctx, email)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (*ports.TokenPair, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.logoutFn(ctx, refreshToken)
}

func (s *stubAuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	return s.refreshFn(ctx, refreshToken)
}

func (s *stubAuthService) SendPhoneOTP(ctx context.Context, userID, phone string) error {
	return s.sendPhoneOTPFn(ctx, userID, phone)
}

func (s *stubAuthService) VerifyPhoneOTP(ctx context.Context, userID, phone, code string) (*ports.TokenPair, error) {
	return s.verifyPhoneOTPFn(ctx, userID, phone, code)
}

func (s *stubAuthService) ForgotPassword(ctx context.Context, email string) error {
	return s.forgotFn(ctx, email)
}

func (s *stubAuthService) CheckResetToken(ctx context.Context, token string) error {
	return s.checkResetFn(ctx, token)
}

func (s *stubAuthService) ResetPassword(ctx context.Context, token, password string) error {
	return s.resetFn(ctx, token, password)
}

func (s *stubAuthService) GoogleAuthURL(ctx context.Context) (string, error) {
	return s.googleURLFn(ctx)
}

func (s *stubAuthService) GoogleCallback(ctx context.Context, code, state string) (*ports.TokenPair, error) {
	return s.googleCallbackFn(ctx, code, state)
}

type stubProfileService struct {
	profileFn        func(ctx context.Context, userID string) (*domain.Identity, error)
	changeNameFn     func(ctx context.Context, userID, first, last string) (*domain.Identity, error)
	changePasswordFn func(ctx context.Context, userID, current, next string) error
}

func (s *stubProfileService) Profile(ctx context.Context, userID string) (*domain.Identity, error) {
	return s.profileFn(ctx, userID)
}

func (s *stubProfileService) ChangeName(ctx context.Context, userID, first, last string) (*domain.Identity, error) {
	return s.changeNameFn(ctx, userID, first, last)
}

func (s *stubProfileService) ChangePassword(ctx context.Context, userID, current, next string) error {
	return s.changePasswordFn(ctx, userID, current, next)
}

// newEcho mirrors the router's validator and error handler.
func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(zerolog.Nop())
	return e
}

// serve runs h against a request and renders a returned error through the error handler,
// as echo does for routed requests.
func serve(e *echo.Echo, h echo.HandlerFunc, method, target, body string, decorate ...func(*http.Request)) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for _, d := range decorate {
		d(req)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func asPrincipal(p domain.Principal) func(*http.Request) {
	return func(r *http.Request) {
		*r = *r.WithContext(domain.WithPrincipal(r.Context(), p))
	}
}

func withCookie(name, value string) func(*http.Request) {
	return func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: name, Value: value})
	}
}

func refreshCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == refreshCookieName {
			return ck
		}
	}
	return nil
}

var testCookie = CookieConfig{MaxAge: 7 * 24 * time.Hour}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}
