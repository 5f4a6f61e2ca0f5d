package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
)

const PKCEChallengeMethodS256 = "S256"

// 32 random bytes encode to a 43-character verifier, the RFC 7636 minimum.
const verifierEntropyBytes = 32

// PKCEPair holds the proof key for one login attempt. Only the challenge
// travels in the authorize URL; the verifier stays local until the code
// exchange.
type PKCEPair struct {
	Verifier  string
	Challenge string
}

func NewPKCEPair() (PKCEPair, error) {
	verifier, err := randomToken(verifierEntropyBytes)
	if err != nil {
		return PKCEPair{}, err
	}

	hash := sha256.Sum256([]byte(verifier))

	return PKCEPair{
		Verifier:  verifier,
		Challenge: base64.RawURLEncoding.EncodeToString(hash[:]),
	}, nil
}

// NewState mints the anti-forgery state that ties an authorize redirect back
// to the callback listener that issued it.
func NewState() (string, error) {
	return randomToken(16)
}

func randomToken(size int) (string, error) {
	raw := make([]byte, size)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(raw), nil
}
