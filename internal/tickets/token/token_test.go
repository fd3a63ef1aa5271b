package token

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenShape(t *testing.T) {
	tok, err := New()
	require.NoError(t, err)
	assert.Len(t, tok, 22)

	raw, err := base64.RawURLEncoding.DecodeString(tok)
	require.NoError(t, err)
	assert.Len(t, raw, Size)
}

func TestTokensAreDistinct(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		tok, err := Random{}.Generate()
		require.NoError(t, err)
		_, dup := seen[tok]
		require.False(t, dup, "duplicate token %s", tok)
		seen[tok] = struct{}{}
	}
}

func TestGeneratorFunc(t *testing.T) {
	g := GeneratorFunc(func() (string, error) { return "fixed", nil })
	tok, err := g.Generate()
	require.NoError(t, err)
	assert.Equal(t, "fixed", tok)
}
