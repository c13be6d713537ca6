package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a user has no cart.
var ErrNotFound = errors.New("cart not found")

// Repository provides cart persistence against PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a cart Repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts a cart for the user. Sets ID, CreatedAt, UpdatedAt.
func (r *Repository) Create(ctx context.Context, c *Cart) error {
	c.ID = uuid.New()
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.Items == nil {
		c.Items = []LineItem{}
	}

	items, err := json.Marshal(c.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}

	q := `
		INSERT INTO carts (id, user_id, user_email, items, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.Exec(ctx, q, c.ID, c.UserID, c.UserEmail, items, c.CreatedAt, c.UpdatedAt); err != nil {
		return fmt.Errorf("create cart: %w", err)
	}
	return nil
}

// GetByUser retrieves the user's cart.
func (r *Repository) GetByUser(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	q := `
		SELECT id, user_id, user_email, items, created_at, updated_at
		FROM carts WHERE user_id = $1`

	var c Cart
	var items []byte
	err := r.db.QueryRow(ctx, q, userID).Scan(
		&c.ID, &c.UserID, &c.UserEmail, &items, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if err := json.Unmarshal(items, &c.Items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	return &c, nil
}

// UpdateItems replaces the cart's line items.
func (r *Repository) UpdateItems(ctx context.Context, cartID uuid.UUID, items []LineItem) error {
	if items == nil {
		items = []LineItem{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}

	q := `UPDATE carts SET items = $2, updated_at = $3 WHERE id = $1`
	tag, err := r.db.Exec(ctx, q, cartID, raw, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update cart: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
