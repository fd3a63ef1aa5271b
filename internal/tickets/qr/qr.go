// Package qr renders ticket tokens as scannable PNG images.
package qr

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

const DefaultSize = 256

type Generator struct {
	Size int
}

func NewGenerator(size int) *Generator {
	if size <= 0 {
		size = DefaultSize
	}
	return &Generator{Size: size}
}

// PNG encodes the token itself. Scanners post it back verbatim to confirm a check-in.
func (g *Generator) PNG(token string) ([]byte, error) {
	if token == "" {
		return nil, fmt.Errorf("empty token")
	}
	png, err := qrcode.Encode(token, qrcode.Medium, g.Size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
