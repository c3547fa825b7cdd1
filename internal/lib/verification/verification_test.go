package verification

import (
	"encoding/base64"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewToken(t *testing.T) {
	seen := make(map[string]struct{})

	for i := 0; i < 100; i++ {
		tok, err := NewToken()
		require.NoError(t, err)

		raw, err := base64.RawURLEncoding.DecodeString(tok)
		require.NoError(t, err)
		assert.Len(t, raw, tokenBytes)
		assert.Equal(t, tok, url.QueryEscape(tok), "token must be URL safe")

		_, dup := seen[tok]
		require.False(t, dup)
		seen[tok] = struct{}{}
	}
}

func TestHashToken(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
	assert.Len(t, HashToken("abc"), 64)
}

func TestLink(t *testing.T) {
	assert.Equal(t,
		"https://canalyzer.app/auth/verify-email?token=tok_123",
		Link("https://canalyzer.app/", "tok_123"),
	)

	u, err := url.Parse(Link("http://localhost:8000", "a-b_c"))
	require.NoError(t, err)
	assert.Equal(t, "/auth/verify-email", u.Path)
	assert.Equal(t, "a-b_c", u.Query().Get("token"))
}
