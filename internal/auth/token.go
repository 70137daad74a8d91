package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// TokenPrefix is the prefix for session tokens
	TokenPrefix = "tip_sk_" // #nosec G101 // Not a credential, just a prefix pattern

	// TokenPrefixLength is the number of characters stored in plaintext for lookup
	TokenPrefixLength = 8

	// TokenLength is the length of the random part of tokens (in bytes, hex encoded)
	TokenLength = 32
)

// GenerateToken generates a new session token.
// Returns: raw token, lookup prefix, error.
// Format: tip_sk_<64 hex chars>; the first 8 hex chars double as the prefix.
func GenerateToken() (string, string, error) {
	bytes := make([]byte, TokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", fmt.Errorf("generate token: %w", err)
	}

	hexToken := hex.EncodeToString(bytes)
	return TokenPrefix + hexToken, hexToken[:TokenPrefixLength], nil
}

// HashToken creates a bcrypt hash of a token's secret part
func HashToken(token string, cost int) (string, error) {
	secret := strings.TrimPrefix(token, TokenPrefix)

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", fmt.Errorf("hash token: %w", err)
	}
	return string(hash), nil
}

// VerifyTokenHash checks if a token matches a stored hash
func VerifyTokenHash(token, hash string) bool {
	secret := strings.TrimPrefix(token, TokenPrefix)
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// ExtractTokenPrefix extracts the lookup prefix from a raw token
func ExtractTokenPrefix(token string) (string, error) {
	if !strings.HasPrefix(token, TokenPrefix) {
		return "", ErrTokenMalformed
	}
	secret := strings.TrimPrefix(token, TokenPrefix)
	if len(secret) < TokenPrefixLength {
		return "", ErrTokenMalformed
	}
	return secret[:TokenPrefixLength], nil
}
