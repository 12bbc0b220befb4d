// Package otp generates numeric one-time codes and opaque single-use tokens.
package otp

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"
)

const (
	DefaultDigits = 6
	DefaultTTL    = 5 * time.Minute

	tokenBytes = 32
)

// Generator produces codes of a fixed width that expire after TTL.
type Generator struct {
	Digits int
	TTL    time.Duration
}

// NewGenerator returns a Generator, applying defaults for non-positive values.
func NewGenerator(digits int, ttl time.Duration) *Generator {
	if digits <= 0 {
		digits = DefaultDigits
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Generator{Digits: digits, TTL: ttl}
}

// Code returns a uniformly distributed numeric string of g.Digits digits.
// Leading zeros are kept.
func (g *Generator) Code() (string, error) {
	if g.Digits < 4 || g.Digits > 10 {
		return "", errors.New("otp: digits must be between 4 and 10")
	}

	var b strings.Builder
	b.Grow(g.Digits)

	ten := big.NewInt(10)
	for i := 0; i < g.Digits; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("otp: %w", err)
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

// ExpiryFrom returns the instant a code issued at now stops being valid.
func (g *Generator) ExpiryFrom(now time.Time) time.Time {
	return now.Add(g.TTL)
}

// Token returns 32 random bytes encoded as unpadded base64url.
func (g *Generator) Token() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("otp: generating token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Hash returns the hex SHA-256 digest under which a token is stored.
func (g *Generator) Hash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
