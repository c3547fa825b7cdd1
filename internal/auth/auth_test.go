package auth

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"canalyzer/internal/lib/jwt"
	sl "canalyzer/internal/lib/logger"
	"canalyzer/internal/lib/password"
	"canalyzer/internal/models"
	"canalyzer/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeUsers struct {
	mu      sync.Mutex
	byEmail map[string]models.User
	failErr error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byEmail: map[string]models.User{}}
}

func (f *fakeUsers) CreateUser(_ context.Context, email, passHash string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failErr != nil {
		return "", f.failErr
	}
	if _, ok := f.byEmail[email]; ok {
		return "", storage.ErrUserExists
	}

	id := "u-" + email
	f.byEmail[email] = models.User{ID: id, Email: email, PassHash: passHash}

	return id, nil
}

func (f *fakeUsers) UserByEmail(_ context.Context, email string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.byEmail[email]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}

	return u, nil
}

func (f *fakeUsers) SetEmailVerified(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for email, u := range f.byEmail {
		if u.ID == userID {
			u.EmailVerified = true
			f.byEmail[email] = u
			return nil
		}
	}

	return nil
}

func (f *fakeUsers) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.byEmail)
}

type fakeTickets struct {
	mu      sync.Mutex
	tickets map[string]models.VerificationTicket
}

func newFakeTickets() *fakeTickets {
	return &fakeTickets{tickets: map[string]models.VerificationTicket{}}
}

func (f *fakeTickets) SaveTicket(_ context.Context, t models.VerificationTicket) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.tickets[t.TokenHash] = t

	return nil
}

func (f *fakeTickets) ConsumeTicket(_ context.Context, tokenHash string, now time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.tickets[tokenHash]
	if !ok {
		return "", storage.ErrTicketNotFound
	}
	if t.ExpiresAt.Before(now) {
		return "", storage.ErrTicketExpired
	}

	delete(f.tickets, tokenHash)

	return t.UserID, nil
}

func (f *fakeTickets) DeleteUserTickets(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for h, t := range f.tickets {
		if t.UserID == userID {
			delete(f.tickets, h)
		}
	}

	return nil
}

func (f *fakeTickets) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.tickets)
}

type fakeNotifier struct {
	mu    sync.Mutex
	links []string
	err   error
}

func (f *fakeNotifier) SendVerificationEmail(_ context.Context, _, link string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}

	f.links = append(f.links, link)

	return nil
}

func (f *fakeNotifier) lastToken(t *testing.T) string {
	t.Helper()

	f.mu.Lock()
	defer f.mu.Unlock()

	require.NotEmpty(t, f.links)

	u, err := url.Parse(f.links[len(f.links)-1])
	require.NoError(t, err)

	return u.Query().Get("token")
}

func (f *fakeNotifier) sent() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.links)
}

type suite struct {
	auth     *Auth
	users    *fakeUsers
	tickets  *fakeTickets
	notifier *fakeNotifier
	tokens   *jwt.Manager
	now      time.Time
}

func newSuite(t *testing.T, baseURL string) *suite {
	t.Helper()

	s := &suite{
		users:    newFakeUsers(),
		tickets:  newFakeTickets(),
		notifier: &fakeNotifier{},
		now:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	clock := func() time.Time { return s.now }

	tokens, err := jwt.New("test-secret", 24*time.Hour, 30*24*time.Hour, jwt.WithClock(clock))
	require.NoError(t, err)
	s.tokens = tokens

	s.auth = New(
		sl.NewDiscardLogger(),
		s.users,
		s.tickets,
		password.NewBcryptHasher(bcrypt.MinCost),
		tokens,
		s.notifier,
		baseURL,
		24*time.Hour,
		WithClock(clock),
	)

	return s
}

func (s *suite) registerAndVerify(t *testing.T, email, pass string) {
	t.Helper()

	ctx := context.Background()
	require.NoError(t, s.auth.Register(ctx, email, pass))
	require.NoError(t, s.auth.VerifyEmail(ctx, s.notifier.lastToken(t)))
}

func TestRegister_Success(t *testing.T) {
	s := newSuite(t, "https://canalyzer.app/")

	err := s.auth.Register(context.Background(), "  A@B.com ", "password1")
	require.NoError(t, err)

	u, err := s.users.UserByEmail(context.Background(), "a@b.com")
	require.NoError(t, err)
	assert.False(t, u.EmailVerified)
	assert.NotEqual(t, "password1", u.PassHash)

	require.Equal(t, 1, s.notifier.sent())
	assert.True(t, strings.HasPrefix(s.notifier.links[0], "https://canalyzer.app/auth/verify-email?token="))
	assert.Equal(t, 1, s.tickets.count())

	for _, ticket := range s.tickets.tickets {
		assert.Equal(t, u.ID, ticket.UserID)
		assert.Equal(t, s.now.Add(24*time.Hour), ticket.ExpiresAt)
	}
}

func TestRegister_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		email string
		pass  string
	}{
		{"missing at sign", "ab.com", "password1"},
		{"empty email", "", "password1"},
		{"short password", "a@b.com", "short7!"},
		{"empty password", "a@b.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSuite(t, "https://canalyzer.app")

			err := s.auth.Register(context.Background(), tt.email, tt.pass)
			require.ErrorIs(t, err, ErrInvalidInput)
			assert.Equal(t, CodeInvalidInput, Code(err))
			assert.Zero(t, s.users.count())
			assert.Zero(t, s.notifier.sent())
		})
	}
}

func TestRegister_EightCharPasswordAccepted(t *testing.T) {
	s := newSuite(t, "https://canalyzer.app")

	require.NoError(t, s.auth.Register(context.Background(), "a@b.com", "12345678"))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	s := newSuite(t, "https://canalyzer.app")
	ctx := context.Background()

	require.NoError(t, s.auth.Register(ctx, "a@b.com", "password1"))

	err := s.auth.Register(ctx, "A@B.COM", "password2")
	require.ErrorIs(t, err, ErrEmailExists)
	assert.Equal(t, CodeEmailExists, Code(err))
	assert.Equal(t, 1, s.users.count())
}

func TestRegister_BaseURLMissing(t *testing.T) {
	s := newSuite(t, "")

	err := s.auth.Register(context.Background(), "a@b.com", "password1")
	require.ErrorIs(t, err, ErrAppBaseURLMissing)
	assert.Equal(t, CodeAppBaseURLMissing, Code(err))
	assert.Zero(t, s.notifier.sent())
}

func TestRegister_MailFailureKeepsUser(t *testing.T) {
	s := newSuite(t, "https://canalyzer.app")
	s.notifier.err = errors.New("provider returned 500")

	err := s.auth.Register(context.Background(), "a@b.com", "password1")
	require.ErrorIs(t, err, ErrMailFailed)
	assert.Equal(t, CodeMailFailed, Code(err))
	assert.Equal(t, 1, s.users.count())
	assert.Equal(t, 1, s.tickets.count())
}

func TestRegister_StoreFailure(t *testing.T) {
	s := newSuite(t, "https://canalyzer.app")
	s.users.failErr = errors.New("connection refused")

	err := s.auth.Register(context.Background(), "a@b.com", "password1")
	require.Error(t, err)
	assert.Equal(t, CodeInternal, Code(err))
}

func TestVerifyEmail(t *testing.T) {
	s := newSuite(t, "https://canalyzer.app")
	ctx := context.Background()

	require.NoError(t, s.auth.Register(ctx, "a@b.com", "password1"))
	token := s.notifier.lastToken(t)

	err := s.auth.VerifyEmail(ctx, "wrong-token")
	require.ErrorIs(t, err, ErrInvalidToken)

	require.NoError(t, s.auth.VerifyEmail(ctx, token))

	u, err := s.users.UserByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.True(t, u.EmailVerified)

	err = s.auth.VerifyEmail(ctx, token)
	require.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, CodeInvalidToken, Code(err))
}

func TestVerifyEmail_Empty(t *testing.T) {
	s := newSuite(t, "https://canalyzer.app")

	err := s.auth.VerifyEmail(context.Background(), "  ")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyEmail_Expired(t *testing.T) {
	s := newSuite(t, "https://canalyzer.app")
	ctx := context.Background()

	require.NoError(t, s.auth.Register(ctx, "a@b.com", "password1"))
	token := s.notifier.lastToken(t)

	s.now = s.now.Add(24*time.Hour + time.Second)

	err := s.auth.VerifyEmail(ctx, token)
	require.ErrorIs(t, err, ErrTokenExpired)
	assert.Equal(t, CodeTokenExpired, Code(err))
	assert.Equal(t, 1, s.tickets.count())
}

func TestLogin_BeforeAndAfterVerification(t *testing.T) {
	s := newSuite(t, "https://canalyzer.app")
	ctx := context.Background()

	require.NoError(t, s.auth.Register(ctx, "a@b.com", "password1"))

	_, err := s.auth.Login(ctx, "a@b.com", "password1", false)
	require.ErrorIs(t, err, ErrEmailNotVerified)
	assert.Equal(t, CodeEmailNotVerified, Code(err))

	require.NoError(t, s.auth.VerifyEmail(ctx, s.notifier.lastToken(t)))

	token, err := s.auth.Login(ctx, "A@b.com", "password1", false)
	require.NoError(t, err)

	claims, ok := s.tokens.Parse(token)
	require.True(t, ok)
	assert.Equal(t, "a@b.com", claims.Email)
	assert.True(t, claims.EmailVerified)
	assert.Equal(t, s.now.Add(24*time.Hour).Unix(), claims.ExpiresAt.Unix())
}

func TestLogin_RememberMe(t *testing.T) {
	s := newSuite(t, "https://canalyzer.app")
	s.registerAndVerify(t, "a@b.com", "password1")

	token, err := s.auth.Login(context.Background(), "a@b.com", "password1", true)
	require.NoError(t, err)

	claims, ok := s.tokens.Parse(token)
	require.True(t, ok)
	assert.Equal(t, s.now.Add(30*24*time.Hour).Unix(), claims.ExpiresAt.Unix())
}

func TestLogin_IndistinguishableFailures(t *testing.T) {
	s := newSuite(t, "https://canalyzer.app")
	s.registerAndVerify(t, "a@b.com", "password1")
	ctx := context.Background()

	_, wrongPass := s.auth.Login(ctx, "a@b.com", "password2", false)
	_, unknown := s.auth.Login(ctx, "ghost@b.com", "password1", false)

	require.ErrorIs(t, wrongPass, ErrInvalidCredentials)
	require.ErrorIs(t, unknown, ErrInvalidCredentials)

	wrongCode, wrongMsg := Describe(wrongPass)
	unknownCode, unknownMsg := Describe(unknown)
	assert.Equal(t, wrongCode, unknownCode)
	assert.Equal(t, wrongMsg, unknownMsg)
}

func TestLogin_WrongPasswordUnverified(t *testing.T) {
	s := newSuite(t, "https://canalyzer.app")
	ctx := context.Background()

	require.NoError(t, s.auth.Register(ctx, "a@b.com", "password1"))

	_, err := s.auth.Login(ctx, "a@b.com", "password2", false)
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestMe(t *testing.T) {
	s := newSuite(t, "https://canalyzer.app")
	s.registerAndVerify(t, "a@b.com", "password1")

	token, err := s.auth.Login(context.Background(), "a@b.com", "password1", false)
	require.NoError(t, err)

	id, err := s.auth.Me("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, Identity{Email: "a@b.com", EmailVerified: true}, id)

	id, err = s.auth.Me("bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", id.Email)
}

func TestMe_AuthRequired(t *testing.T) {
	s := newSuite(t, "https://canalyzer.app")
	s.registerAndVerify(t, "a@b.com", "password1")

	token, err := s.auth.Login(context.Background(), "a@b.com", "password1", false)
	require.NoError(t, err)

	for _, header := range []string{"", "Bearer", "Bearer garbage", "Basic " + token, token} {
		_, err := s.auth.Me(header)
		require.ErrorIs(t, err, ErrAuthRequired, header)
		assert.Equal(t, CodeAuthRequired, Code(err))
	}

	s.now = s.now.Add(24*time.Hour + time.Second)

	_, err = s.auth.Me("Bearer " + token)
	require.ErrorIs(t, err, ErrAuthRequired)
}

func TestMe_UnverifiedSnapshot(t *testing.T) {
	s := newSuite(t, "https://canalyzer.app")

	token, err := s.tokens.NewToken(models.User{ID: "u-1", Email: "a@b.com"}, false)
	require.NoError(t, err)

	_, err = s.auth.Me("Bearer " + token)
	require.ErrorIs(t, err, ErrEmailNotVerified)
}

func TestResendVerification_Unverified(t *testing.T) {
	s := newSuite(t, "https://canalyzer.app")
	ctx := context.Background()

	require.NoError(t, s.auth.Register(ctx, "a@b.com", "password1"))
	oldToken := s.notifier.lastToken(t)

	require.NoError(t, s.auth.ResendVerification(ctx, "A@B.com"))
	require.Equal(t, 2, s.notifier.sent())
	assert.Equal(t, 1, s.tickets.count())

	newToken := s.notifier.lastToken(t)
	assert.NotEqual(t, oldToken, newToken)

	require.ErrorIs(t, s.auth.VerifyEmail(ctx, oldToken), ErrInvalidToken)
	require.NoError(t, s.auth.VerifyEmail(ctx, newToken))
}

func TestResendVerification_Silent(t *testing.T) {
	s := newSuite(t, "https://canalyzer.app")
	s.registerAndVerify(t, "a@b.com", "password1")
	ctx := context.Background()

	require.NoError(t, s.auth.ResendVerification(ctx, "a@b.com"))
	require.NoError(t, s.auth.ResendVerification(ctx, "ghost@b.com"))
	assert.Equal(t, 1, s.notifier.sent())
}

func TestResendVerification_InvalidEmail(t *testing.T) {
	s := newSuite(t, "https://canalyzer.app")

	err := s.auth.ResendVerification(context.Background(), "nope")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestResendVerification_MailFailure(t *testing.T) {
	s := newSuite(t, "https://canalyzer.app")
	ctx := context.Background()

	require.NoError(t, s.auth.Register(ctx, "a@b.com", "password1"))
	s.notifier.err = errors.New("timeout")

	err := s.auth.ResendVerification(ctx, "a@b.com")
	require.ErrorIs(t, err, ErrMailFailed)
}

func TestDescribe(t *testing.T) {
	code, msg := Describe(nil)
	assert.Empty(t, code)
	assert.Empty(t, msg)

	code, _ = Describe(errors.New("boom"))
	assert.Equal(t, CodeInternal, code)

	code, msg = Describe(ErrTokenExpired)
	assert.Equal(t, CodeTokenExpired, code)
	assert.NotEmpty(t, msg)
}
