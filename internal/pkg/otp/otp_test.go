package otp

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_Code(t *testing.T) {
	g := NewGenerator(6, 5*time.Minute)
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		code, err := g.Code()
		require.NoError(t, err)
		require.Len(t, code, 6)
		for _, r := range code {
			require.True(t, r >= '0' && r <= '9', "non-digit in %q", code)
		}
		seen[code] = struct{}{}
	}
	assert.Greater(t, len(seen), 150, "codes should be spread out")
}

func TestGenerator_Defaults(t *testing.T) {
	g := NewGenerator(0, 0)
	assert.Equal(t, DefaultDigits, g.Digits)
	assert.Equal(t, DefaultTTL, g.TTL)

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(5*time.Minute), g.ExpiryFrom(now))
}

func TestGenerator_RejectsBadWidth(t *testing.T) {
	_, err := (&Generator{Digits: 2, TTL: time.Minute}).Code()
	assert.Error(t, err)
}

func TestGenerator_TokenAndHash(t *testing.T) {
	g := NewGenerator(6, time.Minute)

	tok, err := g.Token()
	require.NoError(t, err)
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	require.NoError(t, err)
	assert.Len(t, raw, 32)

	other, err := g.Token()
	require.NoError(t, err)
	assert.NotEqual(t, tok, other)

	assert.Equal(t, g.Hash(tok), g.Hash(tok))
	assert.NotEqual(t, g.Hash(tok), g.Hash(other))
	assert.Len(t, g.Hash(tok), 64)
}
