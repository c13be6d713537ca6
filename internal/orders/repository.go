package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rigforge/rigforge/internal/cart"
)

// ErrNotFound is returned when an order lookup finds no matching record.
var ErrNotFound = errors.New("order not found")

// Repository provides order persistence against PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates an order Repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts a new order. Sets ID, CreatedAt, UpdatedAt.
func (r *Repository) Create(ctx context.Context, o *Order) error {
	o.ID = uuid.New()
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	if o.Items == nil {
		o.Items = []cart.LineItem{}
	}

	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}

	q := `
		INSERT INTO orders (id, user_id, user_email, items, total_amount, status,
		                    checkout_session_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9)`
	_, err = r.db.Exec(ctx, q,
		o.ID, o.UserID, o.UserEmail, items, o.TotalAmount, o.Status,
		o.CheckoutSessionID, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

// GetByID retrieves an order by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	return scanOrder(r.db.QueryRow(ctx, selectOrder+` WHERE id = $1`, id))
}

// GetBySessionID retrieves the order tied to a checkout session.
func (r *Repository) GetBySessionID(ctx context.Context, sessionID string) (*Order, error) {
	return scanOrder(r.db.QueryRow(ctx, selectOrder+` WHERE checkout_session_id = $1`, sessionID))
}

// SetSessionID attaches the external checkout session to an order.
func (r *Repository) SetSessionID(ctx context.Context, orderID uuid.UUID, sessionID string) error {
	q := `UPDATE orders SET checkout_session_id = $2, updated_at = $3 WHERE id = $1`
	tag, err := r.db.Exec(ctx, q, orderID, sessionID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set session id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus moves an order to a new status.
func (r *Repository) UpdateStatus(ctx context.Context, orderID uuid.UUID, status Status) error {
	q := `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`
	tag, err := r.db.Exec(ctx, q, orderID, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByUser returns the user's orders, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Order, error) {
	q := selectOrder + ` WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	out := make([]*Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// CompleteAndClearCart atomically marks the order completed and empties the
// user's cart. A crash cannot leave a completed order next to a full cart.
func (r *Repository) CompleteAndClearCart(ctx context.Context, orderID, userID uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	tag, err := tx.Exec(ctx,
		`UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`,
		orderID, StatusCompleted, now,
	)
	if err != nil {
		return fmt.Errorf("complete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(ctx,
		`UPDATE carts SET items = '[]'::jsonb, updated_at = $2 WHERE user_id = $1`,
		userID, now,
	); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// CancelStaleCheckouts cancels checkout orders that never received a payment
// session and are older than the cutoff. Returns how many were cancelled.
func (r *Repository) CancelStaleCheckouts(ctx context.Context, olderThan time.Time) (int, error) {
	q := `
		UPDATE orders SET status = $1, updated_at = $2
		WHERE status = $3 AND checkout_session_id IS NULL AND created_at < $4`
	tag, err := r.db.Exec(ctx, q, StatusCancelled, time.Now().UTC(), StatusCheckout, olderThan)
	if err != nil {
		return 0, fmt.Errorf("cancel stale checkouts: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

const selectOrder = `
	SELECT id, user_id, user_email, items, total_amount, status,
	       COALESCE(checkout_session_id, ''), created_at, updated_at
	FROM orders`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var items []byte
	err := row.Scan(
		&o.ID, &o.UserID, &o.UserEmail, &items, &o.TotalAmount, &o.Status,
		&o.CheckoutSessionID, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	return &o, nil
}
