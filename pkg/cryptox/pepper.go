package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Argon2id parameters for client secrets.
const (
	memory      = 19 * 1024 // KiB
	iterations  = 2
	parallelism = 1
	keyLength   = 32
	saltLength  = 16
)

var (
	pepperMu sync.RWMutex
	pepper   string
)

// LoadPepper reads the pepper from file, creating the file with a fresh
// random value when it does not exist yet. Losing the file invalidates every
// stored client secret.
func LoadPepper(file string) error {
	file = filepath.Clean(file)
	if err := os.MkdirAll(filepath.Dir(file), 0o750); err != nil {
		return err
	}

	raw, err := os.ReadFile(file)
	switch {
	case err == nil:
		setPepper(strings.TrimSpace(string(raw)))
		return nil
	case !errors.Is(err, os.ErrNotExist):
		return err
	}

	generated, err := randomPepper()
	if err != nil {
		return err
	}
	if err := os.WriteFile(file, []byte(generated), 0o600); err != nil {
		return err
	}
	setPepper(generated)
	return nil
}

// GetPepper returns the loaded pepper. Without a prior LoadPepper an
// in-memory value is generated, which only suits tests and one-shot tools.
func GetPepper() string {
	pepperMu.RLock()
	p := pepper
	pepperMu.RUnlock()
	if p != "" {
		return p
	}

	pepperMu.Lock()
	defer pepperMu.Unlock()
	if pepper == "" {
		pepper = MustGenerateToken(keyLength)
	}
	return pepper
}

func setPepper(p string) {
	pepperMu.Lock()
	pepper = p
	pepperMu.Unlock()
}

func randomPepper() (string, error) {
	buf := make([]byte, keyLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
