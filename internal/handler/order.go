package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rigforge/rigforge/internal/cart"
	"github.com/rigforge/rigforge/internal/identity"
	"github.com/rigforge/rigforge/internal/orders"
	"go.uber.org/zap"
)

// OrderHandler handles checkout and order management routes.
type OrderHandler struct {
	svc    *orders.Service
	tokens *identity.TokenIssuer
	logger *zap.Logger
}

// NewOrderHandler creates an OrderHandler.
func NewOrderHandler(svc *orders.Service, tokens *identity.TokenIssuer, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{svc: svc, tokens: tokens, logger: logger}
}

// Register mounts the checkout and order routes.
func (h *OrderHandler) Register(rg *gin.RouterGroup) {
	required := identity.RequireUser(h.tokens)

	checkout := rg.Group("/checkout", required)
	{
		checkout.POST("/create-session", h.CreateSession)
		checkout.POST("/complete", h.Complete)
	}

	o := rg.Group("/orders", required)
	{
		o.GET("", h.ListOrders)
		o.POST("", h.CreateOrder)
		o.PATCH("/:id", h.UpdateStatus)
	}
}

// CreateSession handles POST /checkout/create-session — turns the cart into
// an order and returns the payment redirect.
func (h *OrderHandler) CreateSession(c *gin.Context) {
	claims := identity.ClaimsFromCtx(c)
	uid, ok := currentUserID(c)
	if !ok {
		return
	}

	redirect, err := h.svc.CreateCheckoutSession(c.Request.Context(), uid, claims.Email)
	if err != nil {
		if errors.Is(err, orders.ErrEmptyCart) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cart is empty"})
			return
		}
		RecordCheckoutSession(false)
		h.logger.Error("create checkout session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create checkout session"})
		return
	}

	RecordCheckoutSession(true)
	c.JSON(http.StatusOK, gin.H{
		"url":       redirect.URL,
		"sessionId": redirect.SessionID,
		"orderId":   redirect.OrderID,
	})
}

type completeRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
}

// Complete handles POST /checkout/complete — called by the frontend success
// page. Safe to call more than once for the same session.
func (h *OrderHandler) Complete(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}

	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	o, err := h.svc.Complete(c.Request.Context(), uid, req.SessionID)
	if err != nil {
		h.respondOrderErr(c, err, "complete order")
		return
	}

	RecordOrderCompleted()
	c.JSON(http.StatusOK, gin.H{"order": o, "message": "Order completed."})
}

// ListOrders handles GET /orders.
func (h *OrderHandler) ListOrders(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}

	list, err := h.svc.List(c.Request.Context(), uid)
	if err != nil {
		h.logger.Error("list orders", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list orders"})
		return
	}
	if list == nil {
		list = []*orders.Order{}
	}

	c.JSON(http.StatusOK, gin.H{"orders": list, "count": len(list)})
}

type createOrderRequest struct {
	Items             []cart.LineItem `json:"items" binding:"required"`
	TotalAmount       float64         `json:"totalAmount"`
	CheckoutSessionID string          `json:"checkoutSessionId"`
}

// CreateOrder handles POST /orders — the manual creation path.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	claims := identity.ClaimsFromCtx(c)
	uid, ok := currentUserID(c)
	if !ok {
		return
	}

	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	total := req.TotalAmount
	if total == 0 {
		for _, it := range req.Items {
			total += it.TotalPrice
		}
	}

	o, err := h.svc.Create(c.Request.Context(), uid, claims.Email, req.Items, total, req.CheckoutSessionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"order": o})
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus handles PATCH /orders/:id. Moves the order along the
// lifecycle; disallowed jumps are rejected with 409.
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	o, err := h.svc.UpdateStatus(c.Request.Context(), uid, id, orders.Status(req.Status))
	if err != nil {
		h.respondOrderErr(c, err, "update order status")
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": o, "message": "Order updated."})
}

// respondOrderErr maps order service errors onto the HTTP envelope.
func (h *OrderHandler) respondOrderErr(c *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, orders.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
	case errors.Is(err, orders.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, orders.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.Error(op, zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}
