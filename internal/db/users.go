package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, username, email, password_hash, is_admin, email_verified,
	verify_token, reset_token, reset_expires_at, created_at, updated_at`

// UserRepository handles user database operations.
type UserRepository struct {
	pool *pgxpool.Pool
}

// Create inserts a new user. A duplicate email returns ErrConflict.
func (r *UserRepository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, is_admin,
			email_verified, verify_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now()
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.IsAdmin,
		user.EmailVerified,
		user.VerifyToken,
		now,
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// Get retrieves a user by ID.
func (r *UserRepository) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.getBy(ctx, "id = $1", id)
}

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getBy(ctx, "email = $1", email)
}

// GetByLogin retrieves a user by email or username.
func (r *UserRepository) GetByLogin(ctx context.Context, login string) (*User, error) {
	return r.getBy(ctx, "email = $1 OR username = $1", login)
}

// GetByVerifyToken retrieves a user by pending verification token.
func (r *UserRepository) GetByVerifyToken(ctx context.Context, token string) (*User, error) {
	return r.getBy(ctx, "verify_token = $1", token)
}

// GetByResetToken retrieves a user whose reset token is still valid.
func (r *UserRepository) GetByResetToken(ctx context.Context, token string) (*User, error) {
	return r.getBy(ctx, "reset_token = $1 AND reset_expires_at > NOW()", token)
}

func (r *UserRepository) getBy(ctx context.Context, where string, args ...any) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where
	var user User
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.IsAdmin,
		&user.EmailVerified,
		&user.VerifyToken,
		&user.ResetToken,
		&user.ResetExpires,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return &user, nil
}

// MarkVerified flags the user's email as verified and clears the token.
func (r *UserRepository) MarkVerified(ctx context.Context, id uuid.UUID) error {
	return r.update(ctx, id, `email_verified = TRUE, verify_token = NULL`)
}

// UpdateUsername changes the display name.
func (r *UserRepository) UpdateUsername(ctx context.Context, id uuid.UUID, username string) error {
	return r.update(ctx, id, `username = $2`, username)
}

// UpdateEmail changes the address and resets verification with a new token.
func (r *UserRepository) UpdateEmail(ctx context.Context, id uuid.UUID, email, verifyToken string) error {
	err := r.update(ctx, id, `email = $2, email_verified = FALSE, verify_token = $3`, email, verifyToken)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

// UpdatePassword replaces the password hash and clears any reset token.
func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return r.update(ctx, id, `password_hash = $2, reset_token = NULL, reset_expires_at = NULL`, passwordHash)
}

// SetResetToken stores a password reset token with an expiry.
func (r *UserRepository) SetResetToken(ctx context.Context, id uuid.UUID, token string, expires time.Time) error {
	return r.update(ctx, id, `reset_token = $2, reset_expires_at = $3`, token, expires)
}

// SetAdmin grants or revokes the admin flag.
func (r *UserRepository) SetAdmin(ctx context.Context, id uuid.UUID, admin bool) error {
	return r.update(ctx, id, `is_admin = $2`, admin)
}

func (r *UserRepository) update(ctx context.Context, id uuid.UUID, set string, args ...any) error {
	query := `UPDATE users SET ` + set + `, updated_at = NOW() WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		if isUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("updating user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns all users ordered by creation time, for the admin panel.
func (r *UserRepository) List(ctx context.Context) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var user User
		if err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.Email,
			&user.PasswordHash,
			&user.IsAdmin,
			&user.EmailVerified,
			&user.VerifyToken,
			&user.ResetToken,
			&user.ResetExpires,
			&user.CreatedAt,
			&user.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// Count returns the total number of accounts.
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

// Delete removes a user and, via cascade, their playlists and liked songs.
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// isUniqueViolation reports a 23505 unique_violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
