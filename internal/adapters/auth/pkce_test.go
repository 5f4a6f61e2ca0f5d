package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPKCEPairDerivesChallengeFromVerifier(t *testing.T) {
	t.Parallel()

	pair, err := NewPKCEPair()
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(pair.Verifier), 43)

	sum := sha256.Sum256([]byte(pair.Verifier))
	assert.Equal(t, base64.RawURLEncoding.EncodeToString(sum[:]), pair.Challenge)
}

func TestNewStateIsUniquePerCall(t *testing.T) {
	t.Parallel()

	first, err := NewState()
	require.NoError(t, err)
	second, err := NewState()
	require.NoError(t, err)

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
