package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	cases := []struct {
		password string
		ok       bool
	}{
		{"Abcdefg1!", true},
		{"Sh0rt!a", false},
		{"alllowercase1!", false},
		{"ALLUPPERCASE1!", false},
		{"NoDigitsHere!", false},
		{"NoSpecials123", false},
		{"Pa$$w0rdOK", true},
	}
	for _, tc := range cases {
		err := ValidatePassword(tc.password)
		if tc.ok {
			assert.NoError(t, err, tc.password)
		} else {
			assert.ErrorIs(t, err, ErrWeakPassword, tc.password)
		}
	}
}

func TestValidatePassword_BcryptLimit(t *testing.T) {
	atLimit := "Aa1!" + strings.Repeat("x", MaxPasswordLength-4)
	assert.NoError(t, ValidatePassword(atLimit))
	assert.ErrorIs(t, ValidatePassword(atLimit+"x"), ErrPasswordTooLong)
}

func TestValidatePhoneNumber(t *testing.T) {
	assert.NoError(t, ValidatePhoneNumber("+14155550123"))
	assert.NoError(t, ValidatePhoneNumber("+6281234567890"))
	assert.ErrorIs(t, ValidatePhoneNumber("14155550123"), ErrInvalidPhone)
	assert.ErrorIs(t, ValidatePhoneNumber("+0123456789"), ErrInvalidPhone)
	assert.ErrorIs(t, ValidatePhoneNumber("+1 415 555"), ErrInvalidPhone)
}

func TestSlotValid(t *testing.T) {
	expiry := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, SlotValid("123456", "123456", expiry, expiry.Add(-time.Second)))
	assert.True(t, SlotValid("123456", "123456", expiry, expiry), "expiry instant is inclusive")
	assert.False(t, SlotValid("123456", "123456", expiry, expiry.Add(time.Nanosecond)))
	assert.False(t, SlotValid("123456", "654321", expiry, expiry.Add(-time.Hour)))
	assert.False(t, SlotValid("", "", expiry, expiry.Add(-time.Hour)))
}
