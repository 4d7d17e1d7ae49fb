package cryptox

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	// SecretAlphabet is the character set of generated account secrets.
	SecretAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789!@#$%^&*"

	// SecretLength is the length of every generated account secret.
	SecretLength = 12
)

// GenerateSecret returns a one-time account secret. Each character is an
// independent uniform draw over SecretAlphabet.
//
// An error here means the system random source is broken; callers must treat
// it as fatal for the whole batch rather than failing a single row.
func GenerateSecret() (string, error) {
	limit := big.NewInt(int64(len(SecretAlphabet)))
	out := make([]byte, SecretLength)
	for i := range out {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("cryptox: generate secret: %w", err)
		}
		out[i] = SecretAlphabet[n.Int64()]
	}
	return string(out), nil
}
