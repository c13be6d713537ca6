package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/rigforge/rigforge/internal/cart"
)

// Status is an order's position in the checkout lifecycle.
type Status string

const (
	// StatusPending is an order created without a payment session.
	StatusPending Status = "pending"
	// StatusCheckout is an order awaiting payment confirmation.
	StatusCheckout Status = "checkout"
	// StatusCompleted is a paid order. Terminal.
	StatusCompleted Status = "completed"
	// StatusCancelled is an abandoned or rejected order. Terminal.
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCheckout, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// transitions is the allowed status graph. Completed and cancelled are
// terminal; a same-status update is handled as a no-op before this table is
// consulted.
var transitions = map[Status][]Status{
	StatusPending:  {StatusCheckout, StatusCancelled},
	StatusCheckout: {StatusCompleted, StatusCancelled},
}

// CanTransitionTo reports whether the status may move to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if next == allowed {
			return true
		}
	}
	return false
}

// Order is a checkout attempt over a frozen copy of the cart's line items.
// CheckoutSessionID is empty until the external payment session is created.
type Order struct {
	ID                uuid.UUID       `json:"id"`
	UserID            uuid.UUID       `json:"userId"`
	UserEmail         string          `json:"userEmail,omitempty"`
	Items             []cart.LineItem `json:"items"`
	TotalAmount       float64         `json:"totalAmount"`
	Status            Status          `json:"status"`
	CheckoutSessionID string          `json:"checkoutSessionId,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// CheckoutRedirect is the response of the checkout-session endpoint: where
// to send the customer, and the ids needed to reconcile on return.
type CheckoutRedirect struct {
	URL       string    `json:"url"`
	SessionID string    `json:"sessionId"`
	OrderID   uuid.UUID `json:"orderId"`
}
