package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/straightdeal/marketplace-api/internal/core/ports"
)

// ProfileHandler serves the caller's own account under /api/profile.
type ProfileHandler struct {
	profiles ports.ProfileService
}

func NewProfileHandler(profiles ports.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// Me returns the caller's profile.
//
// @Summary      Current profile
// @Tags         profile
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  profileResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /profile/me [get]
func (h *ProfileHandler) Me(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	identity, err := h.profiles.Profile(c.Request().Context(), p.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toProfileResponse(identity))
}

// ChangeName updates the caller's first and last name.
//
// @Summary      Change name
// @Tags         profile
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      changeNameRequest  true  "New name"
// @Success      200   {object}  profileResponse
// @Failure      400   {object}  errorResponse
// @Router       /profile/change-name [patch]
func (h *ProfileHandler) ChangeName(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req changeNameRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	identity, err := h.profiles.ChangeName(c.Request().Context(), p.UserID, req.FirstName, req.LastName)
	if err := observe("change_name", err); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toProfileResponse(identity))
}

// ChangePassword replaces the caller's password. Only local accounts have one.
//
// @Summary      Change password
// @Tags         profile
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      changePasswordRequest  true  "Current and new password"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /profile/change-password [patch]
func (h *ProfileHandler) ChangePassword(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req changePasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	err = h.profiles.ChangePassword(c.Request().Context(), p.UserID, req.CurrentPassword, req.NewPassword)
	if err := observe("change_password", err); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Password updated."})
}
