// Package client provides the RigForge Go SDK for talking to a RigForge
// storefront API: accounts, builds, carts, checkout, orders, and the
// community board.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Component is a catalog entry or a part attached to a build.
type Component struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	ImageURL string  `json:"imageUrl,omitempty"`
	Category string  `json:"category"`
}

// Build is a PC build as returned by the API.
type Build struct {
	ID          string               `json:"id"`
	UserID      string               `json:"userId"`
	Username    string               `json:"username"`
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Components  map[string]Component `json:"components"`
	TotalPrice  float64              `json:"totalPrice"`
	IsPublic    bool                 `json:"isPublic"`
	IsDraft     bool                 `json:"isDraft"`
	ViewCount   int                  `json:"viewCount"`
	ReplyCount  int                  `json:"replyCount"`
	CreatedAt   time.Time            `json:"createdAt"`
}

// BuildPage is one page of a build listing.
type BuildPage struct {
	Builds  []Build `json:"builds"`
	Total   int     `json:"total"`
	Page    int     `json:"page"`
	Pages   int     `json:"pages"`
	PerPage int     `json:"perPage"`
}

// LineItem is one build snapshotted into a cart or order.
type LineItem struct {
	BuildID    string      `json:"buildId"`
	BuildName  string      `json:"buildName"`
	Components []Component `json:"components"`
	TotalPrice float64     `json:"totalPrice"`
}

// Cart is the caller's shopping cart.
type Cart struct {
	ID    string     `json:"id"`
	Items []LineItem `json:"items"`
}

// Order is a checkout attempt.
type Order struct {
	ID          string     `json:"id"`
	Items       []LineItem `json:"items"`
	TotalAmount float64    `json:"totalAmount"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// CheckoutRedirect is the response of the create-session endpoint.
type CheckoutRedirect struct {
	URL       string `json:"url"`
	SessionID string `json:"sessionId"`
	OrderID   string `json:"orderId"`
}

// User is the public view of an account.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// Question is a community Q&A thread starter.
type Question struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Content     string    `json:"content"`
	AnswerCount int       `json:"answerCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Client is the RigForge SDK entry point.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken attaches a session token to every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a Client connected to baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// do issues a JSON request and decodes the response into out when non-nil.
// A response body with an "error" field produces an error regardless of out.
func (c *Client) do(ctx context.Context, method, path string, reqBody, out any) error {
	var bodyReader io.Reader
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBytes, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBytes))
	}

	if out != nil && len(respBytes) > 0 {
		if err := json.Unmarshal(respBytes, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// ── Accounts ─────────────────────────────────────────────────────────────

// Signup creates an account. The returned user is unverified until the
// emailed OTP is confirmed with VerifyOTP.
func (c *Client) Signup(ctx context.Context, username, email, password string) (*User, error) {
	var resp struct {
		User User `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "/auth/signup", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// VerifyOTP confirms the emailed verification code and returns a session token.
func (c *Client) VerifyOTP(ctx context.Context, userID, otp string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	err := c.do(ctx, http.MethodPost, "/auth/verify-otp", map[string]string{
		"userId": userID,
		"otp":    otp,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Token, nil
}

// Login authenticates and returns a session token. The token is also
// attached to the client for subsequent calls.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return "", err
	}
	c.token = resp.Token
	return resp.Token, nil
}

// ── Catalog and builds ───────────────────────────────────────────────────

// ListComponents returns catalog components, optionally filtered by category.
func (c *Client) ListComponents(ctx context.Context, category string) ([]Component, error) {
	path := "/components"
	if category != "" {
		path += "?category=" + url.QueryEscape(category)
	}
	var resp struct {
		Components []Component `json:"components"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Components, nil
}

// ListBuilds returns one page of visible builds.
func (c *Client) ListBuilds(ctx context.Context, page, limit int) (*BuildPage, error) {
	path := "/builds?page=" + strconv.Itoa(page) + "&limit=" + strconv.Itoa(limit)
	var resp BuildPage
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetBuild returns a single build by id.
func (c *Client) GetBuild(ctx context.Context, id string) (*Build, error) {
	var resp struct {
		Build Build `json:"build"`
	}
	if err := c.do(ctx, http.MethodGet, "/builds/"+id, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Build, nil
}

// CreateBuild creates a named build from a set of components keyed by slot.
func (c *Client) CreateBuild(ctx context.Context, name, description string, components map[string]Component) (*Build, error) {
	var resp struct {
		Build Build `json:"build"`
	}
	err := c.do(ctx, http.MethodPost, "/builds", map[string]any{
		"name":        name,
		"description": description,
		"components":  components,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.Build, nil
}

// AddComponentToDraft drops a component into the caller's draft build,
// creating one when none exists.
func (c *Client) AddComponentToDraft(ctx context.Context, comp Component) (*Build, error) {
	var resp struct {
		Build Build `json:"build"`
	}
	if err := c.do(ctx, http.MethodPost, "/builds/add-component", comp, &resp); err != nil {
		return nil, err
	}
	return &resp.Build, nil
}

// ── Cart and checkout ────────────────────────────────────────────────────

// GetCart returns the caller's cart.
func (c *Client) GetCart(ctx context.Context) (*Cart, error) {
	var resp struct {
		Cart Cart `json:"cart"`
	}
	if err := c.do(ctx, http.MethodGet, "/cart", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Cart, nil
}

// AddBuildToCart snapshots a build into the caller's cart.
func (c *Client) AddBuildToCart(ctx context.Context, buildID, name string) (*Cart, error) {
	var resp struct {
		Cart Cart `json:"cart"`
	}
	err := c.do(ctx, http.MethodPost, "/cart/add-build", map[string]string{
		"buildId": buildID,
		"name":    name,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.Cart, nil
}

// RemoveCartItem removes a build from the caller's cart.
func (c *Client) RemoveCartItem(ctx context.Context, buildID string) (*Cart, error) {
	var resp struct {
		Cart Cart `json:"cart"`
	}
	err := c.do(ctx, http.MethodDelete, "/cart/remove-item", map[string]string{
		"buildId": buildID,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.Cart, nil
}

// CreateCheckoutSession turns the cart into an order and returns the payment
// redirect.
func (c *Client) CreateCheckoutSession(ctx context.Context) (*CheckoutRedirect, error) {
	var resp CheckoutRedirect
	if err := c.do(ctx, http.MethodPost, "/checkout/create-session", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CompleteCheckout marks the order behind sessionID as paid.
func (c *Client) CompleteCheckout(ctx context.Context, sessionID string) (*Order, error) {
	var resp struct {
		Order Order `json:"order"`
	}
	err := c.do(ctx, http.MethodPost, "/checkout/complete", map[string]string{
		"sessionId": sessionID,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.Order, nil
}

// ── Orders ───────────────────────────────────────────────────────────────

// ListOrders returns the caller's orders, newest first.
func (c *Client) ListOrders(ctx context.Context) ([]Order, error) {
	var resp struct {
		Orders []Order `json:"orders"`
	}
	if err := c.do(ctx, http.MethodGet, "/orders", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

// UpdateOrderStatus moves an order along its lifecycle.
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID, status string) (*Order, error) {
	var resp struct {
		Order Order `json:"order"`
	}
	err := c.do(ctx, http.MethodPatch, "/orders/"+orderID, map[string]string{
		"status": status,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.Order, nil
}

// ── Community ────────────────────────────────────────────────────────────

// ListQuestions returns one page of community questions.
func (c *Client) ListQuestions(ctx context.Context, page, limit int) ([]Question, error) {
	path := "/questions?page=" + strconv.Itoa(page) + "&limit=" + strconv.Itoa(limit)
	var resp struct {
		Questions []Question `json:"questions"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Questions, nil
}

// AskQuestion posts a new question.
func (c *Client) AskQuestion(ctx context.Context, content string) (*Question, error) {
	var resp struct {
		Question Question `json:"question"`
	}
	err := c.do(ctx, http.MethodPost, "/questions", map[string]string{
		"content": content,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.Question, nil
}
