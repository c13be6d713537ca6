package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rigforge/rigforge/internal/catalog"
)

// ComponentHandler serves the static component catalog.
type ComponentHandler struct{}

// NewComponentHandler creates a ComponentHandler.
func NewComponentHandler() *ComponentHandler {
	return &ComponentHandler{}
}

// Register mounts the catalog routes.
func (h *ComponentHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/components", h.ListComponents)
}

// ListComponents handles GET /components. ?category= filters by category or
// any of its synonyms.
func (h *ComponentHandler) ListComponents(c *gin.Context) {
	items := catalog.List(c.Query("category"))
	c.JSON(http.StatusOK, gin.H{"components": items, "count": len(items)})
}
