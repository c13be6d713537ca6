package orders_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rigforge/rigforge/internal/cart"
	"github.com/rigforge/rigforge/internal/catalog"
	"github.com/rigforge/rigforge/internal/orders"
	"github.com/rigforge/rigforge/internal/payments"
	"go.uber.org/zap"
)

// ── Stubs ─────────────────────────────────────────────────────────────────

type stubOrderRepo struct {
	mu           sync.RWMutex
	byID         map[uuid.UUID]*orders.Order
	clearedCarts map[uuid.UUID]int
	seq          int
}

func newStubOrderRepo() *stubOrderRepo {
	return &stubOrderRepo{
		byID:         make(map[uuid.UUID]*orders.Order),
		clearedCarts: make(map[uuid.UUID]int),
	}
}

func cloneOrder(o *orders.Order) *orders.Order {
	cp := *o
	cp.Items = append([]cart.LineItem(nil), o.Items...)
	return &cp
}

func (r *stubOrderRepo) Create(_ context.Context, o *orders.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o.ID = uuid.New()
	r.seq++
	o.CreatedAt = time.Unix(int64(r.seq), 0)
	o.UpdatedAt = o.CreatedAt
	r.byID[o.ID] = cloneOrder(o)
	return nil
}

func (r *stubOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*orders.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.byID[id]
	if !ok {
		return nil, orders.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (r *stubOrderRepo) GetBySessionID(_ context.Context, sessionID string) (*orders.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, o := range r.byID {
		if o.CheckoutSessionID == sessionID && sessionID != "" {
			return cloneOrder(o), nil
		}
	}
	return nil, orders.ErrNotFound
}

func (r *stubOrderRepo) SetSessionID(_ context.Context, orderID uuid.UUID, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byID[orderID]
	if !ok {
		return orders.ErrNotFound
	}
	o.CheckoutSessionID = sessionID
	return nil
}

func (r *stubOrderRepo) UpdateStatus(_ context.Context, orderID uuid.UUID, status orders.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byID[orderID]
	if !ok {
		return orders.ErrNotFound
	}
	o.Status = status
	return nil
}

func (r *stubOrderRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]*orders.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*orders.Order
	for _, o := range r.byID {
		if o.UserID == userID {
			out = append(out, cloneOrder(o))
		}
	}
	return out, nil
}

func (r *stubOrderRepo) CompleteAndClearCart(_ context.Context, orderID, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byID[orderID]
	if !ok {
		return orders.ErrNotFound
	}
	o.Status = orders.StatusCompleted
	r.clearedCarts[userID]++
	return nil
}

func (r *stubOrderRepo) cartClears(userID uuid.UUID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.clearedCarts[userID]
}

type stubCartReader struct {
	carts map[uuid.UUID]*cart.Cart
}

func (s *stubCartReader) Get(_ context.Context, userID uuid.UUID) (*cart.Cart, error) {
	c, ok := s.carts[userID]
	if !ok {
		return nil, cart.ErrNotFound
	}
	return c, nil
}

type stubSessionCreator struct {
	mu       sync.Mutex
	requests []payments.SessionRequest
	fail     bool
}

func (s *stubSessionCreator) CreateSession(_ context.Context, req payments.SessionRequest) (*payments.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.fail {
		return nil, errors.New("processor unavailable")
	}
	return &payments.Session{SessionID: "cs_test_1", URL: "https://pay.example.com/cs_test_1"}, nil
}

func (s *stubSessionCreator) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// ── Helpers ───────────────────────────────────────────────────────────────

const frontendURL = "http://localhost:3000"

func testItems() []cart.LineItem {
	return []cart.LineItem{
		{
			BuildID:   uuid.New(),
			BuildName: "Gaming Rig",
			Components: []catalog.Component{
				{Name: "AMD Ryzen 7 7800X3D", Price: 399, Category: "cpu"},
				{Name: "NVIDIA GeForce RTX 4070 Super", Price: 599, Category: "graphics-card"},
			},
			TotalPrice: 998,
		},
	}
}

func cartFor(userID uuid.UUID) *stubCartReader {
	return &stubCartReader{carts: map[uuid.UUID]*cart.Cart{
		userID: {ID: uuid.New(), UserID: userID, Items: testItems()},
	}}
}

func emptyCarts() *stubCartReader {
	return &stubCartReader{carts: map[uuid.UUID]*cart.Cart{}}
}

// ── Checkout session ──────────────────────────────────────────────────────

func TestCreateCheckoutSession_success(t *testing.T) {
	repo := newStubOrderRepo()
	sessions := &stubSessionCreator{}
	userID := uuid.New()
	svc := orders.NewService(repo, cartFor(userID), sessions, frontendURL, zap.NewNop())

	redirect, err := svc.CreateCheckoutSession(context.Background(), userID, "alice@example.com")
	if err != nil {
		t.Fatalf("CreateCheckoutSession: %v", err)
	}
	if redirect.SessionID != "cs_test_1" {
		t.Errorf("session id = %q", redirect.SessionID)
	}
	if redirect.URL != "https://pay.example.com/cs_test_1" {
		t.Errorf("url = %q", redirect.URL)
	}

	o, err := repo.GetByID(context.Background(), redirect.OrderID)
	if err != nil {
		t.Fatalf("order not persisted: %v", err)
	}
	if o.Status != orders.StatusCheckout {
		t.Errorf("status = %s, want checkout", o.Status)
	}
	if o.CheckoutSessionID != "cs_test_1" {
		t.Errorf("session id not stored: %q", o.CheckoutSessionID)
	}
	if o.TotalAmount != 998 {
		t.Errorf("total = %v, want 998", o.TotalAmount)
	}

	req := sessions.requests[0]
	if req.SuccessURL != frontendURL+"/checkout/success?session_id={CHECKOUT_SESSION_ID}" {
		t.Errorf("success url = %q", req.SuccessURL)
	}
	if req.CancelURL != frontendURL+"/cart" {
		t.Errorf("cancel url = %q", req.CancelURL)
	}
	if req.Metadata["order_id"] != o.ID.String() {
		t.Errorf("metadata order_id = %q", req.Metadata["order_id"])
	}
}

func TestCreateCheckoutSession_emptyCartFailsBeforeProcessor(t *testing.T) {
	sessions := &stubSessionCreator{}
	svc := orders.NewService(newStubOrderRepo(), emptyCarts(), sessions, frontendURL, zap.NewNop())

	if _, err := svc.CreateCheckoutSession(context.Background(), uuid.New(), "a@b.c"); !errors.Is(err, orders.ErrEmptyCart) {
		t.Errorf("expected ErrEmptyCart, got %v", err)
	}
	if sessions.calls() != 0 {
		t.Error("processor must not be called for an empty cart")
	}
}

func TestCreateCheckoutSession_processorFailureLeavesSessionlessOrder(t *testing.T) {
	repo := newStubOrderRepo()
	sessions := &stubSessionCreator{fail: true}
	userID := uuid.New()
	svc := orders.NewService(repo, cartFor(userID), sessions, frontendURL, zap.NewNop())

	if _, err := svc.CreateCheckoutSession(context.Background(), userID, "a@b.c"); err == nil {
		t.Fatal("expected processor error")
	}

	list, _ := svc.List(context.Background(), userID)
	if len(list) != 1 {
		t.Fatalf("expected the order to remain, got %d", len(list))
	}
	if list[0].Status != orders.StatusCheckout || list[0].CheckoutSessionID != "" {
		t.Errorf("order = %s/%q, want sessionless checkout", list[0].Status, list[0].CheckoutSessionID)
	}
}

// ── Complete ──────────────────────────────────────────────────────────────

func TestComplete_clearsCartAtomicallyAndIsIdempotent(t *testing.T) {
	repo := newStubOrderRepo()
	userID := uuid.New()
	svc := orders.NewService(repo, cartFor(userID), &stubSessionCreator{}, frontendURL, zap.NewNop())

	redirect, err := svc.CreateCheckoutSession(context.Background(), userID, "a@b.c")
	if err != nil {
		t.Fatalf("CreateCheckoutSession: %v", err)
	}

	o, err := svc.Complete(context.Background(), userID, redirect.SessionID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if o.Status != orders.StatusCompleted {
		t.Errorf("status = %s", o.Status)
	}
	if repo.cartClears(userID) != 1 {
		t.Errorf("cart clears = %d, want 1", repo.cartClears(userID))
	}

	// Hitting the success URL twice must not fail or clear again.
	o, err = svc.Complete(context.Background(), userID, redirect.SessionID)
	if err != nil {
		t.Fatalf("second Complete: %v", err)
	}
	if o.Status != orders.StatusCompleted {
		t.Errorf("status after replay = %s", o.Status)
	}
	if repo.cartClears(userID) != 1 {
		t.Errorf("cart clears after replay = %d, want 1", repo.cartClears(userID))
	}
}

func TestComplete_unknownSession(t *testing.T) {
	svc := orders.NewService(newStubOrderRepo(), emptyCarts(), &stubSessionCreator{}, frontendURL, zap.NewNop())
	if _, err := svc.Complete(context.Background(), uuid.New(), "cs_missing"); !errors.Is(err, orders.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestComplete_wrongOwner(t *testing.T) {
	repo := newStubOrderRepo()
	userID := uuid.New()
	svc := orders.NewService(repo, cartFor(userID), &stubSessionCreator{}, frontendURL, zap.NewNop())

	redirect, _ := svc.CreateCheckoutSession(context.Background(), userID, "a@b.c")
	if _, err := svc.Complete(context.Background(), uuid.New(), redirect.SessionID); !errors.Is(err, orders.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

func TestComplete_cancelledOrderRejected(t *testing.T) {
	repo := newStubOrderRepo()
	userID := uuid.New()
	svc := orders.NewService(repo, cartFor(userID), &stubSessionCreator{}, frontendURL, zap.NewNop())

	redirect, _ := svc.CreateCheckoutSession(context.Background(), userID, "a@b.c")
	if _, err := svc.UpdateStatus(context.Background(), userID, redirect.OrderID, orders.StatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := svc.Complete(context.Background(), userID, redirect.SessionID); !errors.Is(err, orders.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

// ── Status transitions ────────────────────────────────────────────────────

func TestUpdateStatus_transitionTable(t *testing.T) {
	cases := []struct {
		from, to orders.Status
		ok       bool
	}{
		{orders.StatusPending, orders.StatusCheckout, true},
		{orders.StatusPending, orders.StatusCancelled, true},
		{orders.StatusPending, orders.StatusCompleted, false},
		{orders.StatusCheckout, orders.StatusCompleted, true},
		{orders.StatusCheckout, orders.StatusCancelled, true},
		{orders.StatusCheckout, orders.StatusPending, false},
		{orders.StatusCompleted, orders.StatusCancelled, false},
		{orders.StatusCancelled, orders.StatusCheckout, false},
	}

	for _, tc := range cases {
		repo := newStubOrderRepo()
		userID := uuid.New()
		svc := orders.NewService(repo, emptyCarts(), &stubSessionCreator{}, frontendURL, zap.NewNop())

		sessionID := ""
		if tc.from != orders.StatusPending {
			sessionID = "cs_seed"
		}
		o, err := svc.Create(context.Background(), userID, "a@b.c", testItems(), 998, sessionID)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if tc.from != o.Status {
			repo.UpdateStatus(context.Background(), o.ID, tc.from)
		}

		_, err = svc.UpdateStatus(context.Background(), userID, o.ID, tc.to)
		if tc.ok && err != nil {
			t.Errorf("%s -> %s: unexpected error %v", tc.from, tc.to, err)
		}
		if !tc.ok && !errors.Is(err, orders.ErrInvalidTransition) {
			t.Errorf("%s -> %s: expected ErrInvalidTransition, got %v", tc.from, tc.to, err)
		}
	}
}

func TestUpdateStatus_sameStatusIsNoop(t *testing.T) {
	repo := newStubOrderRepo()
	userID := uuid.New()
	svc := orders.NewService(repo, emptyCarts(), &stubSessionCreator{}, frontendURL, zap.NewNop())

	o, _ := svc.Create(context.Background(), userID, "a@b.c", testItems(), 998, "")
	got, err := svc.UpdateStatus(context.Background(), userID, o.ID, orders.StatusPending)
	if err != nil {
		t.Fatalf("same-status update: %v", err)
	}
	if got.Status != orders.StatusPending {
		t.Errorf("status = %s", got.Status)
	}
}

func TestUpdateStatus_unknownStatusRejected(t *testing.T) {
	repo := newStubOrderRepo()
	userID := uuid.New()
	svc := orders.NewService(repo, emptyCarts(), &stubSessionCreator{}, frontendURL, zap.NewNop())

	o, _ := svc.Create(context.Background(), userID, "a@b.c", testItems(), 998, "")
	if _, err := svc.UpdateStatus(context.Background(), userID, o.ID, orders.Status("shipped")); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestCreate_statusFollowsSessionPresence(t *testing.T) {
	svc := orders.NewService(newStubOrderRepo(), emptyCarts(), &stubSessionCreator{}, frontendURL, zap.NewNop())
	userID := uuid.New()

	o, err := svc.Create(context.Background(), userID, "a@b.c", testItems(), 998, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if o.Status != orders.StatusPending {
		t.Errorf("sessionless order status = %s, want pending", o.Status)
	}

	o, err = svc.Create(context.Background(), userID, "a@b.c", testItems(), 998, "cs_test_9")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if o.Status != orders.StatusCheckout {
		t.Errorf("order with session status = %s, want checkout", o.Status)
	}
}
