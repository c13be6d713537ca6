package builds

import (
	"time"

	"github.com/google/uuid"
	"github.com/rigforge/rigforge/internal/catalog"
)

// Build is a named PC configuration assembled from the component catalog.
// Components holds at most one snapshot per slot; the snapshot is copied at
// add time, so later catalog price changes never affect existing builds.
type Build struct {
	ID          uuid.UUID                          `json:"id"`
	UserID      uuid.UUID                          `json:"userId"`
	Username    string                             `json:"username"`
	UserEmail   string                             `json:"userEmail,omitempty"`
	UserImage   string                             `json:"userImage,omitempty"`
	Name        string                             `json:"name"`
	Description string                             `json:"description,omitempty"`
	Components  map[catalog.Slot]catalog.Component `json:"components"`
	TotalPrice  float64                            `json:"totalPrice"`
	IsPublic    bool                               `json:"isPublic"`
	IsDraft     bool                               `json:"isDraft"`
	ViewCount   int                                `json:"viewCount"`
	ReplyCount  int                                `json:"replyCount"`
	CreatedAt   time.Time                          `json:"createdAt"`
	UpdatedAt   time.Time                          `json:"updatedAt"`
}

// ComputeTotal sums the prices of the populated slots.
func (b *Build) ComputeTotal() float64 {
	var total float64
	for _, c := range b.Components {
		total += c.Price
	}
	return total
}

// SetComponent places a snapshot into its slot, replacing any previous
// occupant, and recomputes the total from scratch.
func (b *Build) SetComponent(slot catalog.Slot, c catalog.Component) {
	if b.Components == nil {
		b.Components = make(map[catalog.Slot]catalog.Component, 1)
	}
	b.Components[slot] = c
	b.TotalPrice = b.ComputeTotal()
}

// Page is a paginated build listing.
type Page struct {
	Builds  []*Build `json:"builds"`
	Total   int      `json:"total"`
	Page    int      `json:"page"`
	Pages   int      `json:"pages"`
	PerPage int      `json:"perPage"`
}
