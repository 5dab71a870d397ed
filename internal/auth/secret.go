package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
)

const codeDigits = 6

var codeModulus = big.NewInt(1_000_000)

// HashSecret returns the hex-encoded SHA-256 digest of a plaintext code
// or token. Digests, never plaintexts, are what gets persisted.
func HashSecret(value string) string {
	hash := sha256.Sum256([]byte(value))
	return hex.EncodeToString(hash[:])
}

// SecureCompare compares two digests in constant time.
func SecureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// GenerateCode returns a zero-padded six-digit numeric OTP code drawn
// uniformly from crypto/rand.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeModulus)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

// GenerateSessionToken returns a URL-safe bearer token with 256 bits of
// entropy.
func GenerateSessionToken() (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.URLEncoding.EncodeToString(tokenBytes), nil
}
