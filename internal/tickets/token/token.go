// Package token produces the opaque strings encoded in ticket QR codes.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// Size is the number of random bytes behind a token (128 bits).
const Size = 16

type Generator interface {
	Generate() (string, error)
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func() (string, error)

func (f GeneratorFunc) Generate() (string, error) { return f() }

// Random draws tokens from crypto/rand and encodes them URL-safe without padding.
type Random struct{}

func (Random) Generate() (string, error) {
	return New()
}

func New() (string, error) {
	b := make([]byte, Size)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
