package jwt

import (
	"errors"
	"fmt"
	"time"

	"canalyzer/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

var ErrSecretMissing = errors.New("jwt signing secret is not configured")

// Claims is the payload of a session token. EmailVerified is a snapshot taken
// at issuance.
type Claims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

type Manager struct {
	secret      []byte
	ttl         time.Duration
	rememberTTL time.Duration
	now         func() time.Time
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func New(secret string, ttl, rememberTTL time.Duration, opts ...Option) (*Manager, error) {
	if secret == "" {
		return nil, ErrSecretMissing
	}

	m := &Manager{
		secret:      []byte(secret),
		ttl:         ttl,
		rememberTTL: rememberTTL,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// NewToken signs a session token for user. remember selects the long TTL.
func (m *Manager) NewToken(user models.User, remember bool) (string, error) {
	const op = "jwt.NewToken"

	if m == nil || len(m.secret) == 0 {
		return "", fmt.Errorf("%s: %w", op, ErrSecretMissing)
	}

	ttl := m.ttl
	if remember {
		ttl = m.rememberTTL
	}

	issuedAt := m.now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
		Email:         user.Email,
		EmailVerified: user.EmailVerified,
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// Parse returns the claims of a valid token. Any structural, signature or
// expiry failure yields ok == false.
func (m *Manager) Parse(tokenStr string) (*Claims, bool) {
	if m == nil || len(m.secret) == 0 || tokenStr == "" {
		return nil, false
	}

	claims := &Claims{}

	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid {
		return nil, false
	}

	if claims.Subject == "" {
		return nil, false
	}

	return claims, true
}
