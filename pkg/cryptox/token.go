package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

// TokenSize256 is 32 random bytes, 43 characters once encoded.
const TokenSize256 = 32

// GenerateToken returns size random bytes, base64url encoded without padding.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("cryptox: token size must be positive, got %d", size)
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptox: generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// FingerprintToken is a SHA-256 digest of token, base64url encoded.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// EqualTokens compares two tokens in constant time via their fingerprints so
// that differing lengths do not leak through timing.
func EqualTokens(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(FingerprintToken(a)), []byte(FingerprintToken(b))) == 1
}
