package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rigforge/rigforge/internal/builds"
	"github.com/rigforge/rigforge/internal/catalog"
	"github.com/rigforge/rigforge/internal/identity"
	"go.uber.org/zap"
)

// BuildHandler handles the build assembly routes.
type BuildHandler struct {
	svc    *builds.Service
	tokens *identity.TokenIssuer
	logger *zap.Logger
}

// NewBuildHandler creates a BuildHandler.
func NewBuildHandler(svc *builds.Service, tokens *identity.TokenIssuer, logger *zap.Logger) *BuildHandler {
	return &BuildHandler{svc: svc, tokens: tokens, logger: logger}
}

// Register mounts the build routes. Static segments (/user, /cleanup, the
// add-* actions) coexist with /:id thanks to gin's route tree.
func (h *BuildHandler) Register(rg *gin.RouterGroup) {
	required := identity.RequireUser(h.tokens)
	optional := identity.OptionalUser(h.tokens)

	b := rg.Group("/builds")
	{
		b.POST("", required, h.CreateBuild)
		b.GET("", optional, h.ListBuilds)
		b.GET("/user", required, h.ListMyBuilds)
		b.POST("/add-component", required, h.AddComponent)
		b.POST("/add-to-existing", required, h.AddToExisting)
		b.POST("/create-with-component", required, h.CreateWithComponent)
		b.DELETE("/cleanup", required, h.Cleanup)
		b.GET("/:id", h.GetBuild)
		b.PUT("/:id", required, h.UpdateBuild)
		b.DELETE("/:id", required, h.DeleteBuild)
	}
}

type componentPayload struct {
	Name     string  `json:"name"     binding:"required"`
	Price    float64 `json:"price"`
	ImageURL string  `json:"imageUrl"`
	Category string  `json:"category" binding:"required"`
}

func (p componentPayload) component() catalog.Component {
	return catalog.Component{
		Name:     p.Name,
		Price:    p.Price,
		ImageURL: p.ImageURL,
		Category: p.Category,
	}
}

type createBuildRequest struct {
	Name        string                             `json:"name" binding:"required"`
	Description string                             `json:"description"`
	Components  map[catalog.Slot]catalog.Component `json:"components"`
	TotalPrice  *float64                           `json:"totalPrice"`
	IsPublic    *bool                              `json:"isPublic"`
}

type updateBuildRequest struct {
	Name        string                             `json:"name"`
	Description string                             `json:"description"`
	Components  map[catalog.Slot]catalog.Component `json:"components"`
	TotalPrice  *float64                           `json:"totalPrice"`
	IsPublic    *bool                              `json:"isPublic"`
}

// CreateBuild handles POST /builds.
func (h *BuildHandler) CreateBuild(c *gin.Context) {
	owner, ok := currentOwner(c)
	if !ok {
		return
	}

	var req createBuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b, err := h.svc.Create(c.Request.Context(), owner, req.Name, req.Description,
		req.Components, req.TotalPrice, req.IsPublic)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	RecordBuildCreated()
	c.JSON(http.StatusCreated, gin.H{"build": b})
}

// ListBuilds handles GET /builds — public builds plus the caller's private
// ones; ?userId= lists that owner's builds regardless of visibility.
func (h *BuildHandler) ListBuilds(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "12"))

	var viewerID *uuid.UUID
	if claims := identity.ClaimsFromCtx(c); claims != nil {
		if uid, err := uuid.Parse(claims.UserID); err == nil {
			viewerID = &uid
		}
	}

	var ownerID *uuid.UUID
	if raw := c.Query("userId"); raw != "" {
		uid, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid userId"})
			return
		}
		ownerID = &uid
	}

	result, err := h.svc.List(c.Request.Context(), viewerID, ownerID, page, limit)
	if err != nil {
		h.logger.Error("list builds", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list builds"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListMyBuilds handles GET /builds/user.
func (h *BuildHandler) ListMyBuilds(c *gin.Context) {
	owner, ok := currentOwner(c)
	if !ok {
		return
	}

	list, err := h.svc.ListForOwner(c.Request.Context(), owner)
	if err != nil {
		h.logger.Error("list own builds", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list builds"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"builds": list, "count": len(list)})
}

// GetBuild handles GET /builds/:id.
func (h *BuildHandler) GetBuild(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	b, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, builds.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "build not found"})
			return
		}
		h.logger.Error("get build", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get build"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"build": b})
}

// AddComponent handles POST /builds/add-component — the quick-add draft
// upsert.
func (h *BuildHandler) AddComponent(c *gin.Context) {
	owner, ok := currentOwner(c)
	if !ok {
		return
	}

	var req componentPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b, created, err := h.svc.AddComponentToDraft(c.Request.Context(), owner, req.component())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status := http.StatusOK
	message := "Component added to your draft build."
	if created {
		status = http.StatusCreated
		message = "Started a new draft build with your component."
		RecordBuildCreated()
	}
	c.JSON(status, gin.H{"build": b, "message": message})
}

type addToExistingRequest struct {
	BuildID   string           `json:"buildId" binding:"required"`
	Component componentPayload `json:"component" binding:"required"`
}

// AddToExisting handles POST /builds/add-to-existing.
func (h *BuildHandler) AddToExisting(c *gin.Context) {
	owner, ok := currentOwner(c)
	if !ok {
		return
	}

	var req addToExistingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	buildID, err := uuid.Parse(req.BuildID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid buildId"})
		return
	}

	b, err := h.svc.AddComponentToBuild(c.Request.Context(), owner, buildID, req.Component.component())
	if err != nil {
		h.respondBuildErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"build": b, "message": "Component added."})
}

type createWithComponentRequest struct {
	Name      string           `json:"name" binding:"required"`
	Component componentPayload `json:"component" binding:"required"`
}

// CreateWithComponent handles POST /builds/create-with-component.
func (h *BuildHandler) CreateWithComponent(c *gin.Context) {
	owner, ok := currentOwner(c)
	if !ok {
		return
	}

	var req createWithComponentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b, err := h.svc.CreateBuildWithComponent(c.Request.Context(), owner, req.Name, req.Component.component())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	RecordBuildCreated()
	c.JSON(http.StatusCreated, gin.H{"build": b})
}

// UpdateBuild handles PUT /builds/:id.
func (h *BuildHandler) UpdateBuild(c *gin.Context) {
	owner, ok := currentOwner(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req updateBuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b, err := h.svc.Update(c.Request.Context(), owner, id, builds.UpdatePatch{
		Name:        req.Name,
		Description: req.Description,
		Components:  req.Components,
		TotalPrice:  req.TotalPrice,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		h.respondBuildErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"build": b, "message": "Build updated."})
}

// DeleteBuild handles DELETE /builds/:id.
func (h *BuildHandler) DeleteBuild(c *gin.Context) {
	owner, ok := currentOwner(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), owner, id); err != nil {
		h.respondBuildErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Build deleted."})
}

// Cleanup handles DELETE /builds/cleanup — removes all of the caller's
// builds.
func (h *BuildHandler) Cleanup(c *gin.Context) {
	owner, ok := currentOwner(c)
	if !ok {
		return
	}

	n, err := h.svc.DeleteAllForOwner(c.Request.Context(), owner)
	if err != nil {
		h.logger.Error("cleanup builds", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete builds"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Builds deleted.", "deleted": n})
}

// respondBuildErr maps build service errors onto the HTTP envelope.
func (h *BuildHandler) respondBuildErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, builds.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "build not found"})
	case errors.Is(err, builds.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}
