package domain

import (
	"crypto/subtle"
	"time"
)

// Role is the authorization level of an identity.
type Role string

const (
	RoleVisitor Role = "Visitor"
	RoleUser    Role = "User"
	RoleAdmin   Role = "Admin"
)

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleVisitor, RoleUser, RoleAdmin:
		return true
	}
	return false
}

// Provider records where an identity was created. It never changes.
type Provider string

const (
	ProviderLocal  Provider = "Local"
	ProviderGoogle Provider = "Google"
)

// Identity is a marketplace account together with its credential and token-slot state.
//
// Each token slot (email OTP, phone OTP, reset token, refresh token) holds at most one
// outstanding value; writing a new one replaces the previous one.
type Identity struct {
	ID           string   `json:"id"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"-"`
	Role         Role     `json:"role"`
	Provider     Provider `json:"provider"`

	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Avatar      string `json:"avatar,omitempty"`

	IsEmailVerified bool `json:"is_email_verified"`
	IsPhoneVerified bool `json:"is_phone_verified"`

	EmailOTP       string    `json:"-"`
	EmailOTPExpiry time.Time `json:"-"`
	PhoneOTP       string    `json:"-"`
	PhoneOTPExpiry time.Time `json:"-"`

	// ResetTokenHash is the SHA-256 digest of the emailed reset token.
	ResetTokenHash   string    `json:"-"`
	ResetTokenExpiry time.Time `json:"-"`

	RefreshToken string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasPassword reports whether the identity can log in with a password.
func (i *Identity) HasPassword() bool {
	return i.PasswordHash != ""
}

// IsFullyVerified reports whether every verification step required for the User role is done.
func (i *Identity) IsFullyVerified() bool {
	return i.IsEmailVerified && i.IsPhoneVerified
}

// CanSignIn reports whether the verification checks of password login pass. Local accounts
// need both channels verified; federated accounts only need the provider-verified email.
func (i *Identity) CanSignIn() bool {
	if i.Provider != ProviderLocal {
		return i.IsEmailVerified
	}
	return i.IsFullyVerified()
}

// Claims returns the token claims describing the identity's current state.
func (i *Identity) Claims() Claims {
	return Claims{
		UserID:        i.ID,
		Email:         i.Email,
		Role:          i.Role,
		EmailVerified: i.IsEmailVerified,
		PhoneVerified: i.IsPhoneVerified,
	}
}

// SlotValid reports whether a stored one-time value matches the presented one and has not
// expired. Expiry is inclusive: a value is still valid at exactly its expiry instant.
func SlotValid(stored, presented string, expiry, now time.Time) bool {
	if stored == "" || subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) != 1 {
		return false
	}
	return !now.After(expiry)
}
