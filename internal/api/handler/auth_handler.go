package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/straightdeal/marketplace-api/internal/api/metrics"
	"github.com/straightdeal/marketplace-api/internal/core/ports"
)

// AuthHandler serves the local sign-up, sign-in and recovery routes under /api/auth.
type AuthHandler struct {
	auth   ports.AuthService
	cookie CookieConfig
}

func NewAuthHandler(auth ports.AuthService, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{auth: auth, cookie: cookie}
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload").SetInternal(err)
	}
	return c.Validate(req)
}

// startSession sets the refresh cookie and writes the token pair.
func (h *AuthHandler) startSession(c echo.Context, method string, pair *ports.TokenPair) error {
	metrics.SessionsIssuedTotal.WithLabelValues(method).Inc()
	h.cookie.set(c, pair.RefreshToken)
	return c.JSON(http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

// Register creates a local account and emails a verification code.
//
// @Summary      Register a new account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Registration details"
// @Success      201   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	_, err := h.auth.Register(c.Request().Context(), ports.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err := observe("register", err); err != nil {
		return err
	}
	metrics.OTPSentTotal.WithLabelValues("email").Inc()

	return c.JSON(http.StatusCreated, messageResponse{
		Message: "Registration successful. Please check your email for verification.",
	})
}

// VerifyEmail checks the emailed code and starts a Visitor session.
//
// @Summary      Verify email address
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      verifyEmailRequest  true  "Email and one-time code"
// @Success      200   {object}  tokenResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /auth/verify-email [post]
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	var req verifyEmailRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	pair, err := h.auth.VerifyEmail(c.Request().Context(), req.Email, req.OTP)
	if err := observe("verify_email", err); err != nil {
		return err
	}
	return h.startSession(c, "email_verification", pair)
}

// ResendVerification issues a new email code, replacing the previous one.
//
// @Summary      Resend the email verification code
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      emailRequest  true  "Account email"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /auth/resend-verification-email [post]
func (h *AuthHandler) ResendVerification(c echo.Context) error {
	var req emailRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	err := h.auth.ResendVerification(c.Request().Context(), req.Email)
	if err := observe("resend_verification", err); err != nil {
		return err
	}
	metrics.OTPSentTotal.WithLabelValues("email").Inc()
	return c.JSON(http.StatusOK, messageResponse{Message: "Verification code sent. Please check your email."})
}

// Login authenticates with email and password.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  tokenResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	pair, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err := observe("login", err); err != nil {
		return err
	}
	return h.startSession(c, "password", pair)
}

// Logout revokes the presented refresh token and expires the cookie.
//
// @Summary      Logout
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  false  "Refresh token, when not sent as cookie"
// @Success      200   {object}  messageResponse
// @Failure      401   {object}  errorResponse
// @Router       /auth/logout [delete]
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload").SetInternal(err)
	}

	token := refreshTokenFrom(c, req.RefreshToken)
	if token == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "no refresh token found, please log in first")
	}

	if err := observe("logout", h.auth.Logout(c.Request().Context(), token)); err != nil {
		return err
	}
	h.cookie.clear(c)
	return c.JSON(http.StatusOK, messageResponse{Message: "Logout successful"})
}

// Refresh exchanges the stored refresh token for a new access token.
//
// @Summary      Refresh the access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  false  "Refresh token, when not sent as cookie"
// @Success      200   {object}  tokenResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /auth/refresh-token [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload").SetInternal(err)
	}

	token := refreshTokenFrom(c, req.RefreshToken)
	if token == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "refresh token is required")
	}

	access, err := h.auth.Refresh(c.Request().Context(), token)
	if err := observe("refresh", err); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tokenResponse{AccessToken: access})
}

// SendPhoneOTP texts a code to the caller's phone number.
//
// @Summary      Send a phone verification code
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      sendPhoneOTPRequest  true  "E.164 phone number"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /auth/send-phone-otp [post]
func (h *AuthHandler) SendPhoneOTP(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req sendPhoneOTPRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	err = h.auth.SendPhoneOTP(c.Request().Context(), p.UserID, req.PhoneNumber)
	if err := observe("send_phone_otp", err); err != nil {
		return err
	}
	metrics.OTPSentTotal.WithLabelValues("sms").Inc()
	return c.JSON(http.StatusOK, messageResponse{Message: "Verification code sent."})
}

// VerifyPhoneOTP checks the texted code. A fully verified Visitor is promoted to User
// and receives a fresh session carrying the new role.
//
// @Summary      Verify phone number
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      verifyPhoneOTPRequest  true  "Phone number and one-time code"
// @Success      200   {object}  tokenResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /auth/verify-phone-otp [post]
func (h *AuthHandler) VerifyPhoneOTP(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req verifyPhoneOTPRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	pair, err := h.auth.VerifyPhoneOTP(c.Request().Context(), p.UserID, req.PhoneNumber, req.OTP)
	if err := observe("verify_phone_otp", err); err != nil {
		return err
	}
	return h.startSession(c, "phone_verification", pair)
}

// ForgotPassword emails a single-use reset link.
//
// @Summary      Request a password reset
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      emailRequest  true  "Account email"
// @Success      200   {object}  messageResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req emailRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	err := h.auth.ForgotPassword(c.Request().Context(), req.Email)
	if err := observe("forgot_password", err); err != nil {
		return err
	}
	metrics.OTPSentTotal.WithLabelValues("email").Inc()
	return c.JSON(http.StatusOK, messageResponse{Message: "Password reset link sent to your email."})
}

// CheckResetToken reports whether a reset token is still usable. It changes nothing.
//
// @Summary      Check a password reset token
// @Tags         auth
// @Produce      json
// @Param        token  query     string  true  "Reset token from the emailed link"
// @Success      200    {object}  messageResponse
// @Failure      400    {object}  errorResponse
// @Router       /auth/reset-password [get]
func (h *AuthHandler) CheckResetToken(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}

	if err := observe("check_reset_token", h.auth.CheckResetToken(c.Request().Context(), token)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Token is valid."})
}

// ResetPassword sets a new password and ends every other session.
//
// @Summary      Reset the password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      resetPasswordRequest  true  "Reset token and new password"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Router       /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := observe("reset_password", h.auth.ResetPassword(c.Request().Context(), req.Token, req.Password)); err != nil {
		return err
	}
	h.cookie.clear(c)
	return c.JSON(http.StatusOK, messageResponse{Message: "Password has been reset. Please log in."})
}
