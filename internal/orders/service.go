package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rigforge/rigforge/internal/cart"
	"github.com/rigforge/rigforge/internal/payments"
	"go.uber.org/zap"
)

// ErrForbidden is returned when a user touches an order they do not own.
var ErrForbidden = errors.New("you do not own this order")

// ErrEmptyCart is returned when checkout starts with no items to pay for.
var ErrEmptyCart = errors.New("cart is empty")

// ErrInvalidTransition is returned when a status change is not allowed by
// the order lifecycle.
var ErrInvalidTransition = errors.New("order status transition not allowed")

// orderRepo is the storage interface consumed by Service.
type orderRepo interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetBySessionID(ctx context.Context, sessionID string) (*Order, error)
	SetSessionID(ctx context.Context, orderID uuid.UUID, sessionID string) error
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status Status) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Order, error)
	CompleteAndClearCart(ctx context.Context, orderID, userID uuid.UUID) error
}

// cartReader exposes the cart being checked out.
type cartReader interface {
	Get(ctx context.Context, userID uuid.UUID) (*cart.Cart, error)
}

// Service drives the order lifecycle: checkout session creation against the
// external payment processor, completion on return, and manual status moves.
type Service struct {
	repo        orderRepo
	carts       cartReader
	sessions    payments.SessionCreator
	frontendURL string
	logger      *zap.Logger
}

// NewService creates an order Service. frontendURL is the storefront origin
// the payment processor redirects back to.
func NewService(repo orderRepo, carts cartReader, sessions payments.SessionCreator, frontendURL string, logger *zap.Logger) *Service {
	return &Service{
		repo:        repo,
		carts:       carts,
		sessions:    sessions,
		frontendURL: frontendURL,
		logger:      logger,
	}
}

// Create records an order directly from a list of items. With a session id
// the order starts in checkout, otherwise pending.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, userEmail string, items []cart.LineItem, total float64, sessionID string) (*Order, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("order needs at least one item")
	}

	status := StatusPending
	if sessionID != "" {
		status = StatusCheckout
	}
	o := &Order{
		UserID:            userID,
		UserEmail:         userEmail,
		Items:             items,
		TotalAmount:       total,
		Status:            status,
		CheckoutSessionID: sessionID,
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// CreateCheckoutSession snapshots the user's cart into a new order and asks
// the payment processor for a hosted-checkout session. The cart is validated
// before anything external happens. If the processor call fails the order is
// left in checkout with no session id; a background sweep cancels such
// orders after a day.
func (s *Service) CreateCheckoutSession(ctx context.Context, userID uuid.UUID, userEmail string) (*CheckoutRedirect, error) {
	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			return nil, ErrEmptyCart
		}
		return nil, err
	}
	if len(c.Items) == 0 {
		return nil, ErrEmptyCart
	}

	o := &Order{
		UserID:      userID,
		UserEmail:   userEmail,
		Items:       c.Items,
		TotalAmount: c.Total(),
		Status:      StatusCheckout,
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, err
	}

	lineItems := make([]payments.LineItem, 0, len(c.Items))
	for _, it := range c.Items {
		lineItems = append(lineItems, payments.LineItem{
			Name:     it.BuildName,
			Amount:   it.TotalPrice,
			Quantity: 1,
		})
	}

	sess, err := s.sessions.CreateSession(ctx, payments.SessionRequest{
		Items:         lineItems,
		CustomerEmail: userEmail,
		SuccessURL:    s.frontendURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     s.frontendURL + "/cart",
		Metadata: map[string]string{
			"user_id":  userID.String(),
			"order_id": o.ID.String(),
		},
	})
	if err != nil {
		s.logger.Error("create payment session",
			zap.String("order_id", o.ID.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("create payment session: %w", err)
	}

	if err := s.repo.SetSessionID(ctx, o.ID, sess.SessionID); err != nil {
		return nil, err
	}

	return &CheckoutRedirect{URL: sess.URL, SessionID: sess.SessionID, OrderID: o.ID}, nil
}

// Complete finishes the order tied to a checkout session: status moves to
// completed and the user's cart is emptied in one transaction. Calling it
// again for an already-completed order succeeds without touching anything.
func (s *Service) Complete(ctx context.Context, userID uuid.UUID, sessionID string) (*Order, error) {
	o, err := s.repo.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrForbidden
	}

	switch o.Status {
	case StatusCompleted:
		return o, nil
	case StatusCheckout:
	default:
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, StatusCompleted)
	}

	if err := s.repo.CompleteAndClearCart(ctx, o.ID, userID); err != nil {
		return nil, err
	}
	o.Status = StatusCompleted
	return o, nil
}

// UpdateStatus moves an order the caller owns along the lifecycle. Setting
// the current status again is a no-op.
func (s *Service) UpdateStatus(ctx context.Context, userID, orderID uuid.UUID, status Status) (*Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unknown order status %q", status)
	}

	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrForbidden
	}

	if o.Status == status {
		return o, nil
	}
	if !o.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, status)
	}

	if err := s.repo.UpdateStatus(ctx, orderID, status); err != nil {
		return nil, err
	}
	o.Status = status
	return o, nil
}

// Get returns an order the caller owns.
func (s *Service) Get(ctx context.Context, userID, orderID uuid.UUID) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrForbidden
	}
	return o, nil
}

// List returns the caller's orders, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*Order, error) {
	return s.repo.ListByUser(ctx, userID)
}
