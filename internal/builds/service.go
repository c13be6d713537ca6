package builds

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rigforge/rigforge/internal/catalog"
	"go.uber.org/zap"
)

// ErrForbidden is returned when a user touches a build they do not own.
var ErrForbidden = errors.New("you do not own this build")

const (
	maxNameLen        = 100
	maxDescriptionLen = 2000
	defaultPageSize   = 12
	maxPageSize       = 50
)

// Owner identifies the acting user, with the denormalized display fields
// stamped onto every build they create.
type Owner struct {
	ID       uuid.UUID
	Username string
	Email    string
	ImageURL string
}

// UpdatePatch carries a partial build update. Empty strings leave the
// current value unchanged; nil pointers leave TotalPrice and IsPublic
// unchanged while non-nil pointers overwrite, zero values included.
type UpdatePatch struct {
	Name        string
	Description string
	Components  map[catalog.Slot]catalog.Component
	TotalPrice  *float64
	IsPublic    *bool
}

// buildRepo is the storage interface consumed by Service.
type buildRepo interface {
	Create(ctx context.Context, b *Build) error
	GetByID(ctx context.Context, id uuid.UUID) (*Build, error)
	LatestDraft(ctx context.Context, userID uuid.UUID) (*Build, error)
	Update(ctx context.Context, b *Build) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int, error)
	List(ctx context.Context, f ListFilter) ([]*Build, int, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Build, error)
	IncrementViewCount(ctx context.Context, id uuid.UUID) error
}

// Service implements build assembly: the draft upsert flow, explicit CRUD,
// and visibility-aware listings.
type Service struct {
	repo   buildRepo
	logger *zap.Logger
}

// NewService creates a build Service.
func NewService(repo buildRepo, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// AddComponentToDraft drops a component into the owner's current draft build,
// creating a fresh private draft when none exists. The returned bool is true
// when a new draft was created. Two concurrent calls can each create a draft;
// the duplicate is private scratch state the owner can delete.
func (s *Service) AddComponentToDraft(ctx context.Context, owner Owner, c catalog.Component) (*Build, bool, error) {
	if err := validateComponent(c); err != nil {
		return nil, false, err
	}
	slot := catalog.NormalizeSlot(c.Category)

	draft, err := s.repo.LatestDraft(ctx, owner.ID)
	if err == nil {
		draft.SetComponent(slot, c)
		if err := s.repo.Update(ctx, draft); err != nil {
			return nil, false, err
		}
		return draft, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, fmt.Errorf("find draft: %w", err)
	}

	b := &Build{
		UserID:      owner.ID,
		Username:    owner.Username,
		UserEmail:   owner.Email,
		UserImage:   owner.ImageURL,
		Name:        fmt.Sprintf("My Build - Draft %d", time.Now().UnixMilli()),
		Description: "Draft build - Work in progress",
		IsPublic:    false,
		IsDraft:     true,
	}
	b.SetComponent(slot, c)
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// AddComponentToBuild drops a component into a specific build owned by the
// caller, overwriting whatever occupied the slot.
func (s *Service) AddComponentToBuild(ctx context.Context, owner Owner, buildID uuid.UUID, c catalog.Component) (*Build, error) {
	if err := validateComponent(c); err != nil {
		return nil, err
	}

	b, err := s.repo.GetByID(ctx, buildID)
	if err != nil {
		return nil, err
	}
	if b.UserID != owner.ID {
		return nil, ErrForbidden
	}

	b.SetComponent(catalog.NormalizeSlot(c.Category), c)
	if err := s.repo.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// CreateBuildWithComponent creates a named private build seeded with a single
// component, bypassing the draft lookup.
func (s *Service) CreateBuildWithComponent(ctx context.Context, owner Owner, name string, c catalog.Component) (*Build, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("build name is required")
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validateComponent(c); err != nil {
		return nil, err
	}

	b := &Build{
		UserID:      owner.ID,
		Username:    owner.Username,
		UserEmail:   owner.Email,
		UserImage:   owner.ImageURL,
		Name:        name,
		Description: "Work in progress",
		IsPublic:    false,
	}
	b.SetComponent(catalog.NormalizeSlot(c.Category), c)
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Create makes a build from an explicit payload. Visibility defaults to
// public when isPublic is nil.
func (s *Service) Create(ctx context.Context, owner Owner, name, description string, components map[catalog.Slot]catalog.Component, totalPrice *float64, isPublic *bool) (*Build, error) {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	if len(description) > maxDescriptionLen {
		return nil, fmt.Errorf("description must be at most %d characters", maxDescriptionLen)
	}

	b := &Build{
		UserID:      owner.ID,
		Username:    owner.Username,
		UserEmail:   owner.Email,
		UserImage:   owner.ImageURL,
		Name:        name,
		Description: description,
		Components:  components,
		IsPublic:    true,
	}
	if isPublic != nil {
		b.IsPublic = *isPublic
	}
	b.TotalPrice = b.ComputeTotal()
	if totalPrice != nil {
		b.TotalPrice = *totalPrice
	}

	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Update applies a partial update to a build the caller owns. Naming a draft
// promotes it to a regular build. When the patch replaces the components the
// total is recomputed from them first, so an explicit TotalPrice in the same
// patch still wins.
func (s *Service) Update(ctx context.Context, owner Owner, buildID uuid.UUID, patch UpdatePatch) (*Build, error) {
	b, err := s.repo.GetByID(ctx, buildID)
	if err != nil {
		return nil, err
	}
	if b.UserID != owner.ID {
		return nil, ErrForbidden
	}

	if name := strings.TrimSpace(patch.Name); name != "" {
		if err := validateName(name); err != nil {
			return nil, err
		}
		b.Name = name
		b.IsDraft = false
	}
	if patch.Description != "" {
		if len(patch.Description) > maxDescriptionLen {
			return nil, fmt.Errorf("description must be at most %d characters", maxDescriptionLen)
		}
		b.Description = patch.Description
	}
	if patch.Components != nil {
		b.Components = patch.Components
		b.TotalPrice = b.ComputeTotal()
	}
	if patch.TotalPrice != nil {
		b.TotalPrice = *patch.TotalPrice
	}
	if patch.IsPublic != nil {
		b.IsPublic = *patch.IsPublic
	}

	if err := s.repo.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Delete removes a build the caller owns.
func (s *Service) Delete(ctx context.Context, owner Owner, buildID uuid.UUID) error {
	b, err := s.repo.GetByID(ctx, buildID)
	if err != nil {
		return err
	}
	if b.UserID != owner.ID {
		return ErrForbidden
	}
	return s.repo.Delete(ctx, buildID)
}

// DeleteAllForOwner removes every build the caller owns and reports the count.
func (s *Service) DeleteAllForOwner(ctx context.Context, owner Owner) (int, error) {
	return s.repo.DeleteAllForUser(ctx, owner.ID)
}

// Get fetches a single build and bumps its view counter. The counter write is
// best effort; a failure is logged, not surfaced.
func (s *Service) Get(ctx context.Context, buildID uuid.UUID) (*Build, error) {
	b, err := s.repo.GetByID(ctx, buildID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.IncrementViewCount(ctx, buildID); err != nil {
		s.logger.Warn("increment view count",
			zap.String("build_id", buildID.String()),
			zap.Error(err),
		)
	} else {
		b.ViewCount++
	}
	return b, nil
}

// List returns one page of builds visible to the viewer. An explicit owner
// filter returns that owner's builds regardless of visibility, which backs
// the "my builds" view.
func (s *Service) List(ctx context.Context, viewerID, ownerID *uuid.UUID, page, limit int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	list, total, err := s.repo.List(ctx, ListFilter{
		ViewerID: viewerID,
		OwnerID:  ownerID,
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		return nil, err
	}

	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return &Page{Builds: list, Total: total, Page: page, Pages: pages, PerPage: limit}, nil
}

// ListForOwner returns all of the caller's builds, newest first.
func (s *Service) ListForOwner(ctx context.Context, owner Owner) ([]*Build, error) {
	return s.repo.ListByUser(ctx, owner.ID)
}

func validateName(name string) error {
	if len(name) < 3 {
		return fmt.Errorf("build name must be at least 3 characters long")
	}
	if len(name) > maxNameLen {
		return fmt.Errorf("build name must be at most %d characters", maxNameLen)
	}
	return nil
}

func validateComponent(c catalog.Component) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("component name is required")
	}
	if strings.TrimSpace(c.Category) == "" {
		return fmt.Errorf("component category is required")
	}
	if c.Price < 0 {
		return fmt.Errorf("component price cannot be negative")
	}
	return nil
}
