package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// TokenBytes is the entropy of a session token; it renders as 64 hex chars.
const TokenBytes = 32

// TokenGenerator mints opaque session tokens.
type TokenGenerator interface {
	NewToken() (string, error)
}

// RandomTokens reads tokens from crypto/rand.
type RandomTokens struct{}

// NewToken returns a fresh hex-encoded random token.
func (RandomTokens) NewToken() (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
