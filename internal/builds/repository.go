package builds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rigforge/rigforge/internal/catalog"
)

// ErrNotFound is returned when a build lookup finds no matching record.
var ErrNotFound = errors.New("build not found")

// ListFilter narrows a build listing. A nil ViewerID lists public builds
// only; a non-nil ViewerID additionally includes that user's private builds.
// A non-nil OwnerID overrides visibility entirely and returns all of that
// owner's builds.
type ListFilter struct {
	ViewerID *uuid.UUID
	OwnerID  *uuid.UUID
	Page     int
	Limit    int
}

// Repository provides CRUD operations for builds against PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a build Repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts a new build. Sets ID, CreatedAt, UpdatedAt on the build.
func (r *Repository) Create(ctx context.Context, b *Build) error {
	b.ID = uuid.New()
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	if b.Components == nil {
		b.Components = make(map[catalog.Slot]catalog.Component)
	}

	comps, err := json.Marshal(b.Components)
	if err != nil {
		return fmt.Errorf("marshal components: %w", err)
	}

	q := `
		INSERT INTO builds (id, user_id, username, user_email, user_image, name,
		                    description, components, total_price, is_public, is_draft,
		                    view_count, reply_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err = r.db.Exec(ctx, q,
		b.ID, b.UserID, b.Username, b.UserEmail, b.UserImage, b.Name,
		b.Description, comps, b.TotalPrice, b.IsPublic, b.IsDraft,
		b.ViewCount, b.ReplyCount, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create build: %w", err)
	}
	return nil
}

// GetByID retrieves a build by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Build, error) {
	row := r.db.QueryRow(ctx, selectBuild+` WHERE id = $1`, id)
	return scanBuild(row)
}

// LatestDraft returns the owner's most recently created draft build.
func (r *Repository) LatestDraft(ctx context.Context, userID uuid.UUID) (*Build, error) {
	q := selectBuild + `
		WHERE user_id = $1 AND is_draft
		ORDER BY created_at DESC
		LIMIT 1`
	row := r.db.QueryRow(ctx, q, userID)
	return scanBuild(row)
}

// Update persists the mutable fields of a build and bumps updated_at.
func (r *Repository) Update(ctx context.Context, b *Build) error {
	b.UpdatedAt = time.Now().UTC()

	comps, err := json.Marshal(b.Components)
	if err != nil {
		return fmt.Errorf("marshal components: %w", err)
	}

	q := `
		UPDATE builds
		SET name = $2, description = $3, components = $4, total_price = $5,
		    is_public = $6, is_draft = $7, updated_at = $8
		WHERE id = $1`
	tag, err := r.db.Exec(ctx, q,
		b.ID, b.Name, b.Description, comps, b.TotalPrice,
		b.IsPublic, b.IsDraft, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update build: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a build by ID.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM builds WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete build: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAllForUser removes every build owned by the user and returns how many
// were deleted.
func (r *Repository) DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM builds WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete builds: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// List returns one page of builds matching the filter, newest first, along
// with the total match count.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]*Build, int, error) {
	where, args := listPredicate(f)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM builds`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count builds: %w", err)
	}

	offset := (f.Page - 1) * f.Limit
	q := fmt.Sprintf(`%s%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		selectBuild, where, len(args)+1, len(args)+2)
	rows, err := r.db.Query(ctx, q, append(args, f.Limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list builds: %w", err)
	}
	defer rows.Close()

	out, err := scanBuilds(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ListByUser returns all of a user's builds, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Build, error) {
	q := selectBuild + ` WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list user builds: %w", err)
	}
	defer rows.Close()
	return scanBuilds(rows)
}

// IncrementViewCount bumps the view counter without touching updated_at.
func (r *Repository) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `UPDATE builds SET view_count = view_count + 1 WHERE id = $1`, id)
	return err
}

// IncrementReplyCount bumps the reply counter without touching updated_at.
func (r *Repository) IncrementReplyCount(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `UPDATE builds SET reply_count = reply_count + 1 WHERE id = $1`, id)
	return err
}

func listPredicate(f ListFilter) (string, []any) {
	switch {
	case f.OwnerID != nil:
		return ` WHERE user_id = $1`, []any{*f.OwnerID}
	case f.ViewerID != nil:
		return ` WHERE (is_public OR user_id = $1)`, []any{*f.ViewerID}
	default:
		return ` WHERE is_public`, nil
	}
}

const selectBuild = `
	SELECT id, user_id, username, user_email, user_image, name, description,
	       components, total_price, is_public, is_draft, view_count, reply_count,
	       created_at, updated_at
	FROM builds`

func scanBuild(row pgx.Row) (*Build, error) {
	var b Build
	var comps []byte
	err := row.Scan(
		&b.ID, &b.UserID, &b.Username, &b.UserEmail, &b.UserImage, &b.Name,
		&b.Description, &comps, &b.TotalPrice, &b.IsPublic, &b.IsDraft,
		&b.ViewCount, &b.ReplyCount, &b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan build: %w", err)
	}
	if err := json.Unmarshal(comps, &b.Components); err != nil {
		return nil, fmt.Errorf("unmarshal components: %w", err)
	}
	return &b, nil
}

func scanBuilds(rows pgx.Rows) ([]*Build, error) {
	out := make([]*Build, 0)
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
