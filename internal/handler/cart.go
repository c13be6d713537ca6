package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rigforge/rigforge/internal/builds"
	"github.com/rigforge/rigforge/internal/cart"
	"github.com/rigforge/rigforge/internal/identity"
	"go.uber.org/zap"
)

// CartHandler handles the shopping cart routes.
type CartHandler struct {
	svc    *cart.Service
	tokens *identity.TokenIssuer
	logger *zap.Logger
}

// NewCartHandler creates a CartHandler.
func NewCartHandler(svc *cart.Service, tokens *identity.TokenIssuer, logger *zap.Logger) *CartHandler {
	return &CartHandler{svc: svc, tokens: tokens, logger: logger}
}

// Register mounts the cart routes.
func (h *CartHandler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/cart", identity.RequireUser(h.tokens))
	{
		g.GET("", h.GetCart)
		g.POST("/add-build", h.AddBuild)
		g.DELETE("/remove-item", h.RemoveItem)
	}
}

// GetCart handles GET /cart.
func (h *CartHandler) GetCart(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}

	ct, err := h.svc.Get(c.Request.Context(), uid)
	if err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "cart not found"})
			return
		}
		h.logger.Error("get cart", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load cart"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"cart": ct})
}

type addBuildRequest struct {
	BuildID string `json:"buildId" binding:"required"`
	Name    string `json:"name"`
}

// AddBuild handles POST /cart/add-build.
func (h *CartHandler) AddBuild(c *gin.Context) {
	claims := identity.ClaimsFromCtx(c)
	uid, ok := currentUserID(c)
	if !ok {
		return
	}

	var req addBuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	buildID, err := uuid.Parse(req.BuildID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid buildId"})
		return
	}

	ct, err := h.svc.AddBuild(c.Request.Context(), uid, claims.Email, buildID, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, builds.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "build not found"})
		case errors.Is(err, cart.ErrEmptyBuild), errors.Is(err, cart.ErrDuplicateItem):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.logger.Error("add build to cart", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add build to cart"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"cart": ct, "message": "Build added to cart."})
}

type removeItemRequest struct {
	BuildID string `json:"buildId" binding:"required"`
}

// RemoveItem handles DELETE /cart/remove-item.
func (h *CartHandler) RemoveItem(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}

	var req removeItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	buildID, err := uuid.Parse(req.BuildID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid buildId"})
		return
	}

	ct, err := h.svc.RemoveItem(c.Request.Context(), uid, buildID)
	if err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "cart not found"})
			return
		}
		h.logger.Error("remove cart item", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update cart"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"cart": ct, "message": "Item removed."})
}
