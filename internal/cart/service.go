package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rigforge/rigforge/internal/builds"
	"github.com/rigforge/rigforge/internal/catalog"
	"go.uber.org/zap"
)

// ErrEmptyBuild is returned when a build with no populated slots is added.
var ErrEmptyBuild = errors.New("cannot add an empty build to the cart")

// ErrDuplicateItem is returned when the build is already in the cart.
var ErrDuplicateItem = errors.New("build is already in the cart")

// cartRepo is the storage interface consumed by Service.
type cartRepo interface {
	Create(ctx context.Context, c *Cart) error
	GetByUser(ctx context.Context, userID uuid.UUID) (*Cart, error)
	UpdateItems(ctx context.Context, cartID uuid.UUID, items []LineItem) error
}

// buildGetter resolves the build being added so its components can be
// snapshotted into the line item.
type buildGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*builds.Build, error)
}

// Service manages the per-user shopping cart.
type Service struct {
	repo   cartRepo
	builds buildGetter
	logger *zap.Logger
}

// NewService creates a cart Service.
func NewService(repo cartRepo, builds buildGetter, logger *zap.Logger) *Service {
	return &Service{repo: repo, builds: builds, logger: logger}
}

// AddBuild snapshots a build into the owner's cart, creating the cart on
// first use. nameOverride replaces the build's name on the line item when
// non-empty.
func (s *Service) AddBuild(ctx context.Context, userID uuid.UUID, userEmail string, buildID uuid.UUID, nameOverride string) (*Cart, error) {
	b, err := s.builds.GetByID(ctx, buildID)
	if err != nil {
		return nil, err
	}
	if len(b.Components) == 0 {
		return nil, ErrEmptyBuild
	}

	c, err := s.repo.GetByUser(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		c = &Cart{UserID: userID, UserEmail: userEmail}
		if err := s.repo.Create(ctx, c); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	if c.Contains(buildID) {
		return nil, ErrDuplicateItem
	}

	name := b.Name
	if o := strings.TrimSpace(nameOverride); o != "" {
		name = o
	}

	item := LineItem{
		BuildID:    buildID,
		BuildName:  name,
		Components: flattenComponents(b),
		TotalPrice: b.ComputeTotal(),
	}
	c.Items = append(c.Items, item)
	if err := s.repo.UpdateItems(ctx, c.ID, c.Items); err != nil {
		return nil, err
	}
	return c, nil
}

// RemoveItem drops a build from the cart. Removing a build that is not in
// the cart is a no-op; a missing cart is an error.
func (s *Service) RemoveItem(ctx context.Context, userID, buildID uuid.UUID) (*Cart, error) {
	c, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	kept := c.Items[:0]
	for _, it := range c.Items {
		if it.BuildID != buildID {
			kept = append(kept, it)
		}
	}
	if len(kept) == len(c.Items) {
		return c, nil
	}
	c.Items = kept
	if err := s.repo.UpdateItems(ctx, c.ID, c.Items); err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns the user's cart. A cart with no items is valid; a user who
// never had a cart gets ErrNotFound.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	return s.repo.GetByUser(ctx, userID)
}

// Clear empties the user's cart if one exists.
func (s *Service) Clear(ctx context.Context, userID uuid.UUID) error {
	c, err := s.repo.GetByUser(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.repo.UpdateItems(ctx, c.ID, nil); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// flattenComponents lists a build's slot snapshots in stable slot order.
func flattenComponents(b *builds.Build) []catalog.Component {
	out := make([]catalog.Component, 0, len(b.Components))
	for _, slot := range catalog.Slots {
		if c, ok := b.Components[slot]; ok {
			out = append(out, c)
		}
	}
	return out
}
