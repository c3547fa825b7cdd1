package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"canalyzer/internal/models"
	"canalyzer/internal/storage"
	"canalyzer/internal/storage/migrations"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const uniqueViolation = "23505"

// DBTX is the part of *pgxpool.Pool the repository needs.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresRepo struct {
	db   DBTX
	pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*PostgresRepo, error) {
	const op = "storage.postgres.New"

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	if err := migrations.Up(ctx, stdlib.OpenDBFromPool(pool), goose.DialectPostgres); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &PostgresRepo{db: pool, pool: pool}, nil
}

// NewWithDB wraps an existing connection. Migrations are not applied.
func NewWithDB(db DBTX) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) CreateUser(ctx context.Context, email, passHash string) (string, error) {
	const op = "storage.postgres.CreateUser"

	query := `
		INSERT INTO users (id, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id;
	`

	var id string

	err := r.db.QueryRow(ctx, query, uuid.NewString(), email, passHash).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return "", storage.ErrUserExists
		}

		return "", fmt.Errorf("%s: failed to save user: %w", op, err)
	}

	return id, nil
}

func (r *PostgresRepo) UserByEmail(ctx context.Context, email string) (models.User, error) {
	const op = "storage.postgres.UserByEmail"

	query := `
		SELECT id, email, password_hash, email_verified, created_at
		FROM users
		WHERE lower(email) = lower($1);
	`

	var u models.User

	err := r.db.QueryRow(ctx, query, email).Scan(
		&u.ID,
		&u.Email,
		&u.PassHash,
		&u.EmailVerified,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

func (r *PostgresRepo) SetEmailVerified(ctx context.Context, userID string) error {
	const op = "storage.postgres.SetEmailVerified"

	query := `UPDATE users SET email_verified = TRUE WHERE id = $1`

	if _, err := r.db.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) SaveTicket(ctx context.Context, ticket models.VerificationTicket) error {
	const op = "storage.postgres.SaveTicket"

	const query = `
		INSERT INTO verification_tickets (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
	`

	if _, err := r.db.Exec(ctx, query, ticket.TokenHash, ticket.UserID, ticket.ExpiresAt.Unix()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ConsumeTicket deletes the unexpired ticket and returns its owner in a
// single statement, so concurrent calls succeed at most once.
func (r *PostgresRepo) ConsumeTicket(ctx context.Context, tokenHash string, now time.Time) (string, error) {
	const op = "storage.postgres.ConsumeTicket"

	const consumeQuery = `
		DELETE FROM verification_tickets
		WHERE token_hash = $1 AND expires_at >= $2
		RETURNING user_id
	`

	var userID string

	err := r.db.QueryRow(ctx, consumeQuery, tokenHash, now.Unix()).Scan(&userID)
	if err == nil {
		return userID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	const lookupQuery = `SELECT expires_at FROM verification_tickets WHERE token_hash = $1`

	var expiresAt int64

	err = r.db.QueryRow(ctx, lookupQuery, tokenHash).Scan(&expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", storage.ErrTicketNotFound
		}

		return "", fmt.Errorf("%s: %w", op, err)
	}

	return "", storage.ErrTicketExpired
}

func (r *PostgresRepo) DeleteUserTickets(ctx context.Context, userID string) error {
	const op = "storage.postgres.DeleteUserTickets"

	query := `DELETE FROM verification_tickets WHERE user_id = $1`

	if _, err := r.db.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}
