package verification

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
)

const tokenBytes = 32

// NewToken returns a URL-safe random token.
func NewToken() (string, error) {
	const op = "verification.NewToken"

	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashToken is the digest under which a ticket is stored.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Link builds the verification URL mailed to the user.
func Link(baseURL, token string) string {
	return fmt.Sprintf("%s/auth/verify-email?token=%s", strings.TrimRight(baseURL, "/"), url.QueryEscape(token))
}
