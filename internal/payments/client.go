// Package payments wraps the hosted-checkout API of the external payment
// processor behind a small interface so the order flow can run against a
// noop implementation in development and tests.
package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LineItem is one purchasable line on a checkout session.
type LineItem struct {
	Name     string
	Amount   float64
	Quantity int
}

// SessionRequest describes the checkout session to create.
type SessionRequest struct {
	Items         []LineItem
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

// Session is the created hosted-checkout session. The caller redirects the
// customer to URL and later receives SessionID back on the success URL.
type Session struct {
	SessionID string
	URL       string
}

// SessionCreator creates hosted-checkout sessions.
type SessionCreator interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
}

const defaultAPIBase = "https://api.stripe.com/v1"

// Client talks to the payment processor's checkout sessions endpoint.
type Client struct {
	apiBase    string
	secretKey  string
	currency   string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a payment Client. currency defaults to usd.
func NewClient(secretKey, currency string, logger *zap.Logger) *Client {
	if currency == "" {
		currency = "usd"
	}
	return &Client{
		apiBase:    defaultAPIBase,
		secretKey:  secretKey,
		currency:   currency,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// WithAPIBase overrides the API endpoint, used in tests.
func (c *Client) WithAPIBase(base string) *Client {
	c.apiBase = strings.TrimSuffix(base, "/")
	return c
}

// CreateSession creates a hosted-checkout session. The processor expects a
// form-encoded body with indexed line item fields and amounts in integer
// cents.
func (c *Client) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("checkout session needs at least one line item")
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	if req.CustomerEmail != "" {
		form.Set("customer_email", req.CustomerEmail)
	}
	for i, item := range req.Items {
		prefix := fmt.Sprintf("line_items[%d]", i)
		qty := item.Quantity
		if qty < 1 {
			qty = 1
		}
		form.Set(prefix+"[quantity]", strconv.Itoa(qty))
		form.Set(prefix+"[price_data][currency]", c.currency)
		form.Set(prefix+"[price_data][product_data][name]", item.Name)
		form.Set(prefix+"[price_data][unit_amount]", strconv.FormatInt(toCents(item.Amount), 10))
	}
	for k, v := range req.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiBase+"/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build session request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read session response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("payment processor rejected session",
			zap.Int("status", resp.StatusCode),
		)
		return nil, fmt.Errorf("payment processor returned HTTP %d", resp.StatusCode)
	}

	var out struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode session response: %w", err)
	}
	if out.ID == "" {
		return nil, fmt.Errorf("payment processor returned no session id")
	}
	return &Session{SessionID: out.ID, URL: out.URL}, nil
}

// toCents converts a dollar amount to integer cents, rounding half up.
func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// NoopClient fakes checkout sessions for development and tests: no money
// moves, the customer is sent straight to the success URL.
type NoopClient struct {
	logger *zap.Logger
}

// NewNoopClient creates a NoopClient.
func NewNoopClient(logger *zap.Logger) *NoopClient {
	return &NoopClient{logger: logger}
}

// CreateSession returns a generated fake session whose URL is the success
// URL with the session id substituted in.
func (n *NoopClient) CreateSession(_ context.Context, req SessionRequest) (*Session, error) {
	id := "cs_test_" + strings.ReplaceAll(uuid.New().String(), "-", "")
	n.logger.Info("noop payment session created",
		zap.String("session_id", id),
		zap.Int("line_items", len(req.Items)),
	)
	return &Session{
		SessionID: id,
		URL:       strings.ReplaceAll(req.SuccessURL, "{CHECKOUT_SESSION_ID}", id),
	}, nil
}
