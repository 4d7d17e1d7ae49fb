package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Argon2id parameters shared by identity passwords and invitation secrets.
const (
	memory      = 19 * 1024 // KiB
	iterations  = 2
	parallelism = 1
	keyLength   = 32
	saltLength  = 16
)

var (
	pepperMu   sync.Mutex
	pepper     string
	pepperFile = "pepper"
)

// SetPepperPath points the hasher at the file holding the server pepper. The
// file is created with a random value on first use.
func SetPepperPath(file string) {
	pepperMu.Lock()
	defer pepperMu.Unlock()
	pepperFile = file
	pepper = ""
}

// SetPepper installs a pepper directly. Used by tests and by deployments that
// inject the pepper from a secret store.
func SetPepper(p string) {
	pepperMu.Lock()
	defer pepperMu.Unlock()
	pepper = p
}

func currentPepper() (string, error) {
	pepperMu.Lock()
	defer pepperMu.Unlock()

	if pepper != "" {
		return pepper, nil
	}

	p, err := loadOrCreatePepper(pepperFile)
	if err != nil {
		return "", fmt.Errorf("cryptox: pepper: %w", err)
	}
	pepper = p
	return pepper, nil
}

func loadOrCreatePepper(file string) (string, error) {
	file = filepath.Clean(file)

	raw, err := os.ReadFile(file)
	if err == nil {
		if len(raw) == 0 {
			return "", errors.New("pepper file is empty")
		}
		return string(raw), nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(file), 0o750); err != nil {
		return "", err
	}

	buf := make([]byte, keyLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	p := base64.RawURLEncoding.EncodeToString(buf)
	if err := os.WriteFile(file, []byte(p), 0o600); err != nil {
		return "", err
	}
	return p, nil
}
