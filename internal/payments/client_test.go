package payments_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rigforge/rigforge/internal/payments"
	"go.uber.org/zap"
)

func TestCreateSession_formEncoding(t *testing.T) {
	var gotAuth, gotContentType string
	var gotForm map[string][]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotForm = r.PostForm
		w.Write([]byte(`{"id":"cs_test_123","url":"https://pay.example.com/cs_test_123"}`))
	}))
	defer srv.Close()

	client := payments.NewClient("sk_test_abc", "usd", zap.NewNop()).WithAPIBase(srv.URL)

	sess, err := client.CreateSession(context.Background(), payments.SessionRequest{
		Items: []payments.LineItem{
			{Name: "Gaming Rig", Amount: 998.50, Quantity: 1},
		},
		CustomerEmail: "alice@example.com",
		SuccessURL:    "http://localhost:3000/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     "http://localhost:3000/cart",
		Metadata:      map[string]string{"order_id": "ord-1"},
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if sess.SessionID != "cs_test_123" {
		t.Errorf("session id = %q", sess.SessionID)
	}
	if sess.URL != "https://pay.example.com/cs_test_123" {
		t.Errorf("url = %q", sess.URL)
	}
	if gotAuth != "Bearer sk_test_abc" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if !strings.HasPrefix(gotContentType, "application/x-www-form-urlencoded") {
		t.Errorf("content type = %q", gotContentType)
	}

	checks := map[string]string{
		"mode":                                          "payment",
		"customer_email":                                "alice@example.com",
		"line_items[0][quantity]":                       "1",
		"line_items[0][price_data][currency]":           "usd",
		"line_items[0][price_data][unit_amount]":        "99850",
		"line_items[0][price_data][product_data][name]": "Gaming Rig",
		"metadata[order_id]":                            "ord-1",
	}
	for key, want := range checks {
		if got := gotForm[key]; len(got) != 1 || got[0] != want {
			t.Errorf("form[%s] = %v, want %q", key, got, want)
		}
	}
}

func TestCreateSession_upstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"invalid key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := payments.NewClient("sk_bad", "usd", zap.NewNop()).WithAPIBase(srv.URL)
	if _, err := client.CreateSession(context.Background(), payments.SessionRequest{
		Items: []payments.LineItem{{Name: "Gaming Rig", Amount: 10}},
	}); err == nil {
		t.Error("expected error for upstream failure")
	}
}

func TestCreateSession_requiresLineItems(t *testing.T) {
	client := payments.NewClient("sk_test", "usd", zap.NewNop())
	if _, err := client.CreateSession(context.Background(), payments.SessionRequest{}); err == nil {
		t.Error("expected error for empty line items")
	}
}

func TestNoopClient_substitutesSessionID(t *testing.T) {
	client := payments.NewNoopClient(zap.NewNop())

	sess, err := client.CreateSession(context.Background(), payments.SessionRequest{
		Items:      []payments.LineItem{{Name: "Gaming Rig", Amount: 10}},
		SuccessURL: "http://localhost:3000/checkout/success?session_id={CHECKOUT_SESSION_ID}",
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if sess.SessionID == "" {
		t.Fatal("expected a generated session id")
	}
	if !strings.Contains(sess.URL, sess.SessionID) {
		t.Errorf("url %q does not embed session id %q", sess.URL, sess.SessionID)
	}
}
