package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rigforge/rigforge/internal/identity"
	"github.com/rigforge/rigforge/internal/users"
	"go.uber.org/zap"
)

// profileSvc is the slice of the user service used by ProfileHandler.
type profileSvc interface {
	GetByID(ctx context.Context, id uuid.UUID) (*users.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, username, imageURL string, imageSet bool) (*users.User, error)
}

// ProfileHandler serves the authenticated user's profile.
type ProfileHandler struct {
	users  profileSvc
	tokens *identity.TokenIssuer
	logger *zap.Logger
}

// NewProfileHandler creates a ProfileHandler.
func NewProfileHandler(users profileSvc, tokens *identity.TokenIssuer, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{users: users, tokens: tokens, logger: logger}
}

// Register mounts the profile routes.
func (h *ProfileHandler) Register(rg *gin.RouterGroup) {
	user := rg.Group("/user", identity.RequireUser(h.tokens))
	{
		user.GET("/profile", h.GetProfile)
		user.PUT("/profile", h.UpdateProfile)
	}
}

// GetProfile handles GET /user/profile.
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}

	u, err := h.users.GetByID(c.Request.Context(), uid)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		h.logger.Error("get profile", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": users.ProfileOf(u)})
}

type updateProfileRequest struct {
	Username string  `json:"username" binding:"required"`
	Image    *string `json:"image"`
}

// UpdateProfile handles PUT /user/profile. A missing image field leaves the
// avatar untouched; an explicit empty string clears it.
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	imageURL := ""
	if req.Image != nil {
		imageURL = *req.Image
	}

	u, err := h.users.UpdateProfile(c.Request.Context(), uid, req.Username, imageURL, req.Image != nil)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated.",
		"user":    users.ProfileOf(u),
	})
}
