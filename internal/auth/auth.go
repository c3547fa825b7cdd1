package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"canalyzer/internal/lib/jwt"
	sl "canalyzer/internal/lib/logger"
	"canalyzer/internal/lib/verification"
	"canalyzer/internal/models"
	"canalyzer/internal/storage"

	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrEmailExists        = errors.New("email already registered")
	ErrAppBaseURLMissing  = errors.New("app base url is not configured")
	ErrMailFailed         = errors.New("failed to send verification email")
	ErrInvalidToken       = errors.New("invalid verification token")
	ErrTokenExpired       = errors.New("verification token expired")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrAuthRequired       = errors.New("authentication required")
)

const (
	MsgRegistered   = "Registration successful. Please check your email to verify your account."
	MsgVerified     = "Email verified successfully. You can now log in."
	MsgVerification = "If the account exists and is not verified yet, a new verification email has been sent."
)

type UserStore interface {
	CreateUser(ctx context.Context, email, passHash string) (string, error)
	UserByEmail(ctx context.Context, email string) (models.User, error)
	SetEmailVerified(ctx context.Context, userID string) error
}

type TicketStore interface {
	SaveTicket(ctx context.Context, ticket models.VerificationTicket) error
	ConsumeTicket(ctx context.Context, tokenHash string, now time.Time) (string, error)
	DeleteUserTickets(ctx context.Context, userID string) error
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

type TokenManager interface {
	NewToken(user models.User, remember bool) (string, error)
	Parse(token string) (*jwt.Claims, bool)
}

type Notifier interface {
	SendVerificationEmail(ctx context.Context, email, link string) error
}

// Identity is what /auth/me reports. It comes from the session claims, so
// EmailVerified reflects the state at login time.
type Identity struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

type credentials struct {
	Email    string `validate:"required,contains=@"`
	Password string `validate:"required,min=8"`
}

type emailOnly struct {
	Email string `validate:"required,contains=@"`
}

type Auth struct {
	log       *slog.Logger
	users     UserStore
	tickets   TicketStore
	hasher    PasswordHasher
	tokens    TokenManager
	notifier  Notifier
	validate  *validator.Validate
	baseURL   string
	ticketTTL time.Duration
	now       func() time.Time
}

type Option func(*Auth)

func WithClock(now func() time.Time) Option {
	return func(a *Auth) {
		a.now = now
	}
}

func New(
	log *slog.Logger,
	users UserStore,
	tickets TicketStore,
	hasher PasswordHasher,
	tokens TokenManager,
	notifier Notifier,
	baseURL string,
	ticketTTL time.Duration,
	opts ...Option,
) *Auth {
	a := &Auth{
		log:       log,
		users:     users,
		tickets:   tickets,
		hasher:    hasher,
		tokens:    tokens,
		notifier:  notifier,
		validate:  validator.New(),
		baseURL:   strings.TrimRight(baseURL, "/"),
		ticketTTL: ticketTTL,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an unverified account and mails its verification link.
// On ErrMailFailed the user and ticket stay persisted.
func (a *Auth) Register(ctx context.Context, email, password string) error {
	const op = "auth.Register"

	email = NormalizeEmail(email)

	log := a.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)

	if err := a.validate.Struct(credentials{Email: email, Password: password}); err != nil {
		log.Info("invalid registration input", sl.Err(err))
		return fmt.Errorf("%s: %w", op, ErrInvalidInput)
	}

	passHash, err := a.hasher.Hash(password)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	userID, err := a.users.CreateUser(ctx, email, passHash)
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			log.Warn("user already exists")
			return fmt.Errorf("%s: %w", op, ErrEmailExists)
		}

		log.Error("failed to save user", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user registered", slog.String("uid", userID))

	if err := a.sendVerification(ctx, log, userID, email); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// sendVerification issues a fresh ticket for userID and mails the link.
func (a *Auth) sendVerification(ctx context.Context, log *slog.Logger, userID, email string) error {
	token, err := verification.NewToken()
	if err != nil {
		log.Error("failed to generate verification token", sl.Err(err))
		return err
	}

	ticket := models.VerificationTicket{
		TokenHash: verification.HashToken(token),
		UserID:    userID,
		ExpiresAt: a.now().Add(a.ticketTTL),
	}

	if err := a.tickets.SaveTicket(ctx, ticket); err != nil {
		log.Error("failed to save verification ticket", sl.Err(err))
		return err
	}

	if a.baseURL == "" {
		log.Error("APP_BASE_URL is not set, cannot build verification link")
		return ErrAppBaseURLMissing
	}

	link := verification.Link(a.baseURL, token)

	if err := a.notifier.SendVerificationEmail(ctx, email, link); err != nil {
		log.Error("failed to send verification email", sl.Err(err))
		return ErrMailFailed
	}

	log.Info("verification email sent")

	return nil
}

func (a *Auth) VerifyEmail(ctx context.Context, token string) error {
	const op = "auth.VerifyEmail"

	log := a.log.With(slog.String("op", op))

	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	userID, err := a.tickets.ConsumeTicket(ctx, verification.HashToken(token), a.now())
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrTicketNotFound):
			log.Info("verification token not found")
			return fmt.Errorf("%s: %w", op, ErrInvalidToken)
		case errors.Is(err, storage.ErrTicketExpired):
			log.Info("verification token expired")
			return fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}

		log.Error("failed to consume verification ticket", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := a.users.SetEmailVerified(ctx, userID); err != nil {
		log.Error("failed to mark email verified", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("email verified", slog.String("uid", userID))

	return nil
}

// Login returns a signed session token. Unknown email and wrong password
// are reported the same way.
func (a *Auth) Login(ctx context.Context, email, password string, remember bool) (string, error) {
	const op = "auth.Login"

	email = NormalizeEmail(email)

	log := a.log.With(slog.String("op", op))

	user, err := a.users.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Info("user not found")
			return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		log.Error("failed to get user", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if !a.hasher.Compare(user.PassHash, password) {
		log.Info("invalid credentials", slog.String("uid", user.ID))
		return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if !user.EmailVerified {
		log.Info("login before email verification", slog.String("uid", user.ID))
		return "", fmt.Errorf("%s: %w", op, ErrEmailNotVerified)
	}

	token, err := a.tokens.NewToken(user, remember)
	if err != nil {
		log.Error("failed to generate session token", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user logged in", slog.String("uid", user.ID), slog.Bool("remember_me", remember))

	return token, nil
}

// Authenticate resolves an Authorization header value to session claims.
func (a *Auth) Authenticate(header string) (*jwt.Claims, bool) {
	header = strings.TrimSpace(header)

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return nil, false
	}

	return a.tokens.Parse(strings.TrimSpace(token))
}

func (a *Auth) Me(header string) (Identity, error) {
	const op = "auth.Me"

	claims, ok := a.Authenticate(header)
	if !ok {
		return Identity{}, fmt.Errorf("%s: %w", op, ErrAuthRequired)
	}

	if !claims.EmailVerified {
		return Identity{}, fmt.Errorf("%s: %w", op, ErrEmailNotVerified)
	}

	return Identity{Email: claims.Email, EmailVerified: claims.EmailVerified}, nil
}

// ResendVerification replaces any outstanding tickets of an unverified
// account with a new one. Unknown and verified emails succeed silently.
func (a *Auth) ResendVerification(ctx context.Context, email string) error {
	const op = "auth.ResendVerification"

	email = NormalizeEmail(email)

	log := a.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)

	if err := a.validate.Struct(emailOnly{Email: email}); err != nil {
		log.Info("invalid resend input", sl.Err(err))
		return fmt.Errorf("%s: %w", op, ErrInvalidInput)
	}

	user, err := a.users.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Info("resend requested for unknown email")
			return nil
		}

		log.Error("failed to get user", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if user.EmailVerified {
		log.Info("resend requested for verified email")
		return nil
	}

	if a.baseURL == "" {
		log.Error("APP_BASE_URL is not set, cannot build verification link")
		return fmt.Errorf("%s: %w", op, ErrAppBaseURLMissing)
	}

	if err := a.tickets.DeleteUserTickets(ctx, user.ID); err != nil {
		log.Error("failed to delete old tickets", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := a.sendVerification(ctx, log, user.ID, email); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
