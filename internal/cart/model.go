package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/rigforge/rigforge/internal/catalog"
)

// LineItem is one build placed in a cart. Components are flattened snapshots
// copied at add time; editing the build afterwards never changes the cart.
type LineItem struct {
	BuildID    uuid.UUID           `json:"buildId"`
	BuildName  string              `json:"buildName"`
	Components []catalog.Component `json:"components"`
	TotalPrice float64             `json:"totalPrice"`
}

// Cart holds a user's pending line items. Each user has at most one cart.
type Cart struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"userId"`
	UserEmail string     `json:"userEmail,omitempty"`
	Items     []LineItem `json:"items"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Total sums the line item totals.
func (c *Cart) Total() float64 {
	var total float64
	for _, it := range c.Items {
		total += it.TotalPrice
	}
	return total
}

// Contains reports whether the build is already in the cart.
func (c *Cart) Contains(buildID uuid.UUID) bool {
	for _, it := range c.Items {
		if it.BuildID == buildID {
			return true
		}
	}
	return false
}
