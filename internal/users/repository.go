package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a user lookup finds no matching record.
var ErrNotFound = errors.New("user not found")

// ErrDuplicateEmail is returned when a signup reuses a registered email.
var ErrDuplicateEmail = errors.New("email already registered")

// ErrDuplicateUsername is returned when the requested username is taken.
var ErrDuplicateUsername = errors.New("username already taken")

// Repository provides CRUD operations for users against PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a user Repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user record. Sets ID, CreatedAt, UpdatedAt on the user.
func (r *Repository) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	q := `
		INSERT INTO users (id, username, email, password_hash, image_url, provider,
		                   email_verified, otp, otp_expiry, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10, $11)`
	_, err := r.db.Exec(ctx, q,
		u.ID, u.Username, u.Email, u.PasswordHash, u.ImageURL, u.Provider,
		u.EmailVerified, u.OTP, u.OTPExpiry, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if pgErr.ConstraintName == "users_email_key" {
				return ErrDuplicateEmail
			}
			return ErrDuplicateUsername
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by their internal UUID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.scanOne(ctx, selectUser+` WHERE id = $1`, id)
}

// GetByEmail retrieves a user by email address.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.scanOne(ctx, selectUser+` WHERE email = $1`, email)
}

// GetByUsername retrieves a user by username.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.scanOne(ctx, selectUser+` WHERE username = $1`, username)
}

// SetOTP stores a fresh one-time code and its expiry on the user.
func (r *Repository) SetOTP(ctx context.Context, userID uuid.UUID, otp string, expiry time.Time) error {
	q := `UPDATE users SET otp = $2, otp_expiry = $3, updated_at = $4 WHERE id = $1`
	_, err := r.db.Exec(ctx, q, userID, otp, expiry, time.Now().UTC())
	return err
}

// MarkVerified flips email_verified and clears the one-time code.
func (r *Repository) MarkVerified(ctx context.Context, userID uuid.UUID) error {
	q := `UPDATE users SET email_verified = true, otp = NULL, otp_expiry = NULL, updated_at = $2 WHERE id = $1`
	_, err := r.db.Exec(ctx, q, userID, time.Now().UTC())
	return err
}

// UpdateProfile updates the username and, when imageSet is true, the image URL.
func (r *Repository) UpdateProfile(ctx context.Context, userID uuid.UUID, username string, imageURL string, imageSet bool) error {
	var err error
	if imageSet {
		q := `UPDATE users SET username = $2, image_url = $3, updated_at = $4 WHERE id = $1`
		_, err = r.db.Exec(ctx, q, userID, username, imageURL, time.Now().UTC())
	} else {
		q := `UPDATE users SET username = $2, updated_at = $3 WHERE id = $1`
		_, err = r.db.Exec(ctx, q, userID, username, time.Now().UTC())
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

const selectUser = `
	SELECT id, username, email, password_hash, image_url, provider,
	       email_verified, COALESCE(otp, ''), otp_expiry, created_at, updated_at
	FROM users`

// scanOne executes a single-row query and scans the result into a User.
func (r *Repository) scanOne(ctx context.Context, q string, args ...any) (*User, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}

	var u User
	if err := rows.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.ImageURL, &u.Provider,
		&u.EmailVerified, &u.OTP, &u.OTPExpiry, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, rows.Err()
}
