package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"canalyzer/internal/models"
	"canalyzer/internal/storage"
	"canalyzer/internal/storage/migrations"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type Storage struct {
	db *sql.DB
}

// New opens (creating if needed) the database file at path and applies
// migrations.
func New(ctx context.Context, path string) (*Storage, error) {
	const op = "storage.sqlite.New"

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open database: %w", op, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	if err := migrations.Up(ctx, db, goose.DialectSQLite3); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// one writer at a time; SQLite serializes them anyway
	db.SetMaxOpenConns(1)

	return &Storage{db: db}, nil
}

func (s *Storage) CreateUser(ctx context.Context, email, passHash string) (string, error) {
	const op = "storage.sqlite.CreateUser"

	query := `
		INSERT INTO users (id, email, password_hash, email_verified, created_at)
		VALUES (?, ?, ?, 0, ?)
	`

	id := uuid.NewString()

	_, err := s.db.ExecContext(ctx, query, id, email, passHash, time.Now().Unix())
	if err != nil {
		var sqliteErr *sqlite.Error
		if errors.As(err, &sqliteErr) {
			switch sqliteErr.Code() {
			case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT:
				return "", storage.ErrUserExists
			}
		}

		return "", fmt.Errorf("%s: failed to save user: %w", op, err)
	}

	return id, nil
}

func (s *Storage) UserByEmail(ctx context.Context, email string) (models.User, error) {
	const op = "storage.sqlite.UserByEmail"

	query := `
		SELECT id, email, password_hash, email_verified, created_at
		FROM users
		WHERE email = ?
	`

	var (
		u         models.User
		createdAt int64
	)

	err := s.db.QueryRowContext(ctx, query, email).Scan(
		&u.ID,
		&u.Email,
		&u.PassHash,
		&u.EmailVerified,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	u.CreatedAt = time.Unix(createdAt, 0).UTC()

	return u, nil
}

func (s *Storage) SetEmailVerified(ctx context.Context, userID string) error {
	const op = "storage.sqlite.SetEmailVerified"

	_, err := s.db.ExecContext(ctx, `UPDATE users SET email_verified = 1 WHERE id = ?`, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) SaveTicket(ctx context.Context, ticket models.VerificationTicket) error {
	const op = "storage.sqlite.SaveTicket"

	query := `
		INSERT INTO verification_tickets (token_hash, user_id, expires_at)
		VALUES (?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query, ticket.TokenHash, ticket.UserID, ticket.ExpiresAt.Unix())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ConsumeTicket deletes the unexpired ticket and returns its owner in a
// single statement, so concurrent calls succeed at most once.
func (s *Storage) ConsumeTicket(ctx context.Context, tokenHash string, now time.Time) (string, error) {
	const op = "storage.sqlite.ConsumeTicket"

	var userID string

	err := s.db.QueryRowContext(ctx, `
		DELETE FROM verification_tickets
		WHERE token_hash = ? AND expires_at >= ?
		RETURNING user_id
	`, tokenHash, now.Unix()).Scan(&userID)
	if err == nil {
		return userID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	var expiresAt int64

	err = s.db.QueryRowContext(ctx,
		`SELECT expires_at FROM verification_tickets WHERE token_hash = ?`, tokenHash,
	).Scan(&expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", storage.ErrTicketNotFound
		}

		return "", fmt.Errorf("%s: %w", op, err)
	}

	return "", storage.ErrTicketExpired
}

func (s *Storage) DeleteUserTickets(ctx context.Context, userID string) error {
	const op = "storage.sqlite.DeleteUserTickets"

	_, err := s.db.ExecContext(ctx, `DELETE FROM verification_tickets WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) Close() {
	_ = s.db.Close()
}
