package handler

import (
	"time"

	"github.com/straightdeal/marketplace-api/internal/core/domain"
)

// --- Request / Response types ---

type registerRequest struct {
	FirstName string `json:"firstName" validate:"required,max=50"`
	LastName  string `json:"lastName"  validate:"required,max=50"`
	Email     string `json:"email"     validate:"required,email"`
	Password  string `json:"password"  validate:"required,strongpassword"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type verifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp"   validate:"required,len=6,numeric"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"    validate:"required"`
	Password string `json:"password" validate:"required,strongpassword"`
}

// refreshRequest is optional; browsers send the cookie instead.
type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type sendPhoneOTPRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required,phone"`
}

type verifyPhoneOTPRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required,phone"`
	OTP         string `json:"otp"         validate:"required,len=6,numeric"`
}

type changeNameRequest struct {
	FirstName string `json:"firstName" validate:"required,max=50"`
	LastName  string `json:"lastName"  validate:"required,max=50"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,strongpassword"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

type urlResponse struct {
	URL string `json:"url"`
}

type profileResponse struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	FirstName       string    `json:"firstName"`
	LastName        string    `json:"lastName"`
	Role            string    `json:"role"`
	Provider        string    `json:"provider"`
	PhoneNumber     string    `json:"phoneNumber,omitempty"`
	Avatar          string    `json:"avatar,omitempty"`
	IsEmailVerified bool      `json:"isEmailVerified"`
	IsPhoneVerified bool      `json:"isPhoneVerified"`
	HasPassword     bool      `json:"hasPassword"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func toProfileResponse(i *domain.Identity) profileResponse {
	return profileResponse{
		ID:              i.ID,
		Email:           i.Email,
		FirstName:       i.FirstName,
		LastName:        i.LastName,
		Role:            string(i.Role),
		Provider:        string(i.Provider),
		PhoneNumber:     i.PhoneNumber,
		Avatar:          i.Avatar,
		IsEmailVerified: i.IsEmailVerified,
		IsPhoneVerified: i.IsPhoneVerified,
		HasPassword:     i.HasPassword(),
		CreatedAt:       i.CreatedAt,
		UpdatedAt:       i.UpdatedAt,
	}
}
