package auth

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashSecretIsDeterministicHex(t *testing.T) {
	first := HashSecret("123456")
	second := HashSecret("123456")

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), first)
	assert.NotEqual(t, first, HashSecret("123457"))
}

func TestSecureCompare(t *testing.T) {
	digest := HashSecret("123456")

	assert.True(t, SecureCompare(digest, HashSecret("123456")))
	assert.False(t, SecureCompare(digest, HashSecret("654321")))
	assert.False(t, SecureCompare(digest, ""))
}

func TestGenerateCodeFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^\d{6}$`)

	for i := 0; i < 100; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		assert.Regexp(t, pattern, code)
	}
}

func TestGenerateSessionTokenUniqueness(t *testing.T) {
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		token, err := GenerateSessionToken()
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.False(t, seen[token], "token collision")
		seen[token] = true
	}
}
