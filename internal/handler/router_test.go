package handler_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rigforge/rigforge/internal/builds"
	"github.com/rigforge/rigforge/internal/cart"
	"github.com/rigforge/rigforge/internal/catalog"
	"github.com/rigforge/rigforge/internal/forum"
	"github.com/rigforge/rigforge/internal/handler"
	"github.com/rigforge/rigforge/internal/identity"
	"github.com/rigforge/rigforge/internal/orders"
	"github.com/rigforge/rigforge/internal/payments"
	"go.uber.org/zap"
)

// ── Stub build repo ──────────────────────────────────────────────────────

type stubBuildRepo struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]*builds.Build
	seq  int64
}

func newStubBuildRepo() *stubBuildRepo {
	return &stubBuildRepo{rows: make(map[uuid.UUID]*builds.Build)}
}

func cloneBuild(b *builds.Build) *builds.Build {
	cp := *b
	if b.Components != nil {
		cp.Components = make(map[catalog.Slot]catalog.Component, len(b.Components))
		for k, v := range b.Components {
			cp.Components[k] = v
		}
	}
	return &cp
}

func (s *stubBuildRepo) Create(_ context.Context, b *builds.Build) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = uuid.New()
	s.seq++
	now := time.Unix(s.seq, 0).UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	s.rows[b.ID] = cloneBuild(b)
	return nil
}

func (s *stubBuildRepo) GetByID(_ context.Context, id uuid.UUID) (*builds.Build, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.rows[id]
	if !ok {
		return nil, builds.ErrNotFound
	}
	return cloneBuild(b), nil
}

func (s *stubBuildRepo) LatestDraft(_ context.Context, userID uuid.UUID) (*builds.Build, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *builds.Build
	for _, b := range s.rows {
		if b.UserID != userID || !b.IsDraft {
			continue
		}
		if latest == nil || b.CreatedAt.After(latest.CreatedAt) {
			latest = b
		}
	}
	if latest == nil {
		return nil, builds.ErrNotFound
	}
	return cloneBuild(latest), nil
}

func (s *stubBuildRepo) Update(_ context.Context, b *builds.Build) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[b.ID]; !ok {
		return builds.ErrNotFound
	}
	s.rows[b.ID] = cloneBuild(b)
	return nil
}

func (s *stubBuildRepo) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return builds.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

func (s *stubBuildRepo) DeleteAllForUser(_ context.Context, userID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, b := range s.rows {
		if b.UserID == userID {
			delete(s.rows, id)
			n++
		}
	}
	return n, nil
}

func (s *stubBuildRepo) List(_ context.Context, f builds.ListFilter) ([]*builds.Build, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []*builds.Build
	for _, b := range s.rows {
		switch {
		case f.OwnerID != nil:
			if b.UserID != *f.OwnerID {
				continue
			}
		case f.ViewerID != nil:
			if !b.IsPublic && b.UserID != *f.ViewerID {
				continue
			}
		default:
			if !b.IsPublic {
				continue
			}
		}
		all = append(all, cloneBuild(b))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	offset := (f.Page - 1) * f.Limit
	if offset > len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if f.Limit > 0 && f.Limit < len(all) {
		all = all[:f.Limit]
	}
	return all, total, nil
}

func (s *stubBuildRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]*builds.Build, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*builds.Build
	for _, b := range s.rows {
		if b.UserID == userID {
			result = append(result, cloneBuild(b))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (s *stubBuildRepo) IncrementViewCount(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.rows[id]
	if !ok {
		return builds.ErrNotFound
	}
	b.ViewCount++
	return nil
}

// ── Stub cart repo ───────────────────────────────────────────────────────

type stubCartRepo struct {
	mu     sync.RWMutex
	byUser map[uuid.UUID]*cart.Cart
}

func newStubCartRepo() *stubCartRepo {
	return &stubCartRepo{byUser: make(map[uuid.UUID]*cart.Cart)}
}

func cloneCart(c *cart.Cart) *cart.Cart {
	cp := *c
	cp.Items = append([]cart.LineItem{}, c.Items...)
	return &cp
}

func (s *stubCartRepo) Create(_ context.Context, c *cart.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = uuid.New()
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.Items == nil {
		c.Items = []cart.LineItem{}
	}
	s.byUser[c.UserID] = cloneCart(c)
	return nil
}

func (s *stubCartRepo) GetByUser(_ context.Context, userID uuid.UUID) (*cart.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byUser[userID]
	if !ok {
		return nil, cart.ErrNotFound
	}
	return cloneCart(c), nil
}

func (s *stubCartRepo) UpdateItems(_ context.Context, cartID uuid.UUID, items []cart.LineItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.byUser {
		if c.ID == cartID {
			if items == nil {
				items = []cart.LineItem{}
			}
			c.Items = append([]cart.LineItem(nil), items...)
			c.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return cart.ErrNotFound
}

func (s *stubCartRepo) clearUser(userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.byUser[userID]; ok {
		c.Items = []cart.LineItem{}
	}
}

// ── Stub order repo ──────────────────────────────────────────────────────

type stubOrderRepo struct {
	mu        sync.RWMutex
	rows      map[uuid.UUID]*orders.Order
	bySession map[string]uuid.UUID
	carts     *stubCartRepo
}

func newStubOrderRepo(carts *stubCartRepo) *stubOrderRepo {
	return &stubOrderRepo{
		rows:      make(map[uuid.UUID]*orders.Order),
		bySession: make(map[string]uuid.UUID),
		carts:     carts,
	}
}

func cloneOrder(o *orders.Order) *orders.Order {
	cp := *o
	cp.Items = append([]cart.LineItem(nil), o.Items...)
	return &cp
}

func (s *stubOrderRepo) Create(_ context.Context, o *orders.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o.ID = uuid.New()
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	s.rows[o.ID] = cloneOrder(o)
	if o.CheckoutSessionID != "" {
		s.bySession[o.CheckoutSessionID] = o.ID
	}
	return nil
}

func (s *stubOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*orders.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.rows[id]
	if !ok {
		return nil, orders.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (s *stubOrderRepo) GetBySessionID(_ context.Context, sessionID string) (*orders.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.bySession[sessionID]
	if !ok {
		return nil, orders.ErrNotFound
	}
	return cloneOrder(s.rows[id]), nil
}

func (s *stubOrderRepo) SetSessionID(_ context.Context, orderID uuid.UUID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.rows[orderID]
	if !ok {
		return orders.ErrNotFound
	}
	o.CheckoutSessionID = sessionID
	s.bySession[sessionID] = orderID
	return nil
}

func (s *stubOrderRepo) UpdateStatus(_ context.Context, orderID uuid.UUID, status orders.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.rows[orderID]
	if !ok {
		return orders.ErrNotFound
	}
	o.Status = status
	return nil
}

func (s *stubOrderRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]*orders.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*orders.Order
	for _, o := range s.rows {
		if o.UserID == userID {
			result = append(result, cloneOrder(o))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (s *stubOrderRepo) CompleteAndClearCart(_ context.Context, orderID, userID uuid.UUID) error {
	s.mu.Lock()
	o, ok := s.rows[orderID]
	if !ok {
		s.mu.Unlock()
		return orders.ErrNotFound
	}
	o.Status = orders.StatusCompleted
	s.mu.Unlock()
	s.carts.clearUser(userID)
	return nil
}

// ── Stub forum repo ──────────────────────────────────────────────────────

type stubForumRepo struct {
	mu        sync.RWMutex
	questions map[uuid.UUID]*forum.Question
	answers   map[uuid.UUID][]*forum.Answer
	replies   map[uuid.UUID][]*forum.BuildReply
	seq       int64
}

func newStubForumRepo() *stubForumRepo {
	return &stubForumRepo{
		questions: make(map[uuid.UUID]*forum.Question),
		answers:   make(map[uuid.UUID][]*forum.Answer),
		replies:   make(map[uuid.UUID][]*forum.BuildReply),
	}
}

func (s *stubForumRepo) CreateQuestion(_ context.Context, q *forum.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q.ID = uuid.New()
	s.seq++
	now := time.Unix(s.seq, 0).UTC()
	q.CreatedAt = now
	q.UpdatedAt = now
	cp := *q
	s.questions[q.ID] = &cp
	return nil
}

func (s *stubForumRepo) GetQuestion(_ context.Context, id uuid.UUID) (*forum.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[id]
	if !ok {
		return nil, forum.ErrQuestionNotFound
	}
	cp := *q
	return &cp, nil
}

func (s *stubForumRepo) ListQuestions(_ context.Context, page, limit int) ([]*forum.Question, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []*forum.Question
	for _, q := range s.questions {
		cp := *q
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	offset := (page - 1) * limit
	if offset > len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (s *stubForumRepo) CreateAnswer(_ context.Context, a *forum.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[a.QuestionID]
	if !ok {
		return forum.ErrQuestionNotFound
	}
	a.ID = uuid.New()
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	cp := *a
	s.answers[a.QuestionID] = append(s.answers[a.QuestionID], &cp)
	q.AnswerCount++
	return nil
}

func (s *stubForumRepo) ListAnswers(_ context.Context, questionID uuid.UUID) ([]*forum.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*forum.Answer
	for _, a := range s.answers[questionID] {
		cp := *a
		result = append(result, &cp)
	}
	return result, nil
}

func (s *stubForumRepo) CreateBuildReply(_ context.Context, br *forum.BuildReply) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	br.ID = uuid.New()
	now := time.Now().UTC()
	br.CreatedAt = now
	br.UpdatedAt = now
	cp := *br
	s.replies[br.BuildID] = append(s.replies[br.BuildID], &cp)
	return nil
}

func (s *stubForumRepo) ListBuildReplies(_ context.Context, buildID uuid.UUID) ([]*forum.BuildReply, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*forum.BuildReply
	for _, br := range s.replies[buildID] {
		cp := *br
		result = append(result, &cp)
	}
	return result, nil
}

// ── Test router ──────────────────────────────────────────────────────────

type testEnv struct {
	router    *gin.Engine
	tokens    *identity.TokenIssuer
	buildRepo *stubBuildRepo
	cartRepo  *stubCartRepo
	orderRepo *stubOrderRepo
	forumRepo *stubForumRepo
}

func newTestEnv() *testEnv {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	tokens := identity.NewTokenIssuer([]byte("test-secret"), "http://test", time.Hour)

	buildRepo := newStubBuildRepo()
	cartRepo := newStubCartRepo()
	orderRepo := newStubOrderRepo(cartRepo)
	forumRepo := newStubForumRepo()

	buildSvc := builds.NewService(buildRepo, logger)
	cartSvc := cart.NewService(cartRepo, buildRepo, logger)
	orderSvc := orders.NewService(orderRepo, cartSvc, payments.NewNoopClient(logger), "http://front.test", logger)
	forumSvc := forum.NewService(forumRepo, buildRepo, logger)

	r := gin.New()
	root := r.Group("")
	handler.NewComponentHandler().Register(root)
	handler.NewBuildHandler(buildSvc, tokens, logger).Register(root)
	handler.NewCartHandler(cartSvc, tokens, logger).Register(root)
	handler.NewOrderHandler(orderSvc, tokens, logger).Register(root)
	handler.NewForumHandler(forumSvc, tokens, logger).Register(root)

	return &testEnv{
		router:    r,
		tokens:    tokens,
		buildRepo: buildRepo,
		cartRepo:  cartRepo,
		orderRepo: orderRepo,
		forumRepo: forumRepo,
	}
}

func (e *testEnv) tokenFor(id uuid.UUID, email, username string) string {
	tok, _ := e.tokens.Issue(id.String(), email, username)
	return tok
}
