package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rigforge/rigforge/internal/builds"
	"github.com/rigforge/rigforge/internal/forum"
	"github.com/rigforge/rigforge/internal/identity"
	"go.uber.org/zap"
)

// ForumHandler handles the community Q&A and build reply routes.
type ForumHandler struct {
	svc    *forum.Service
	tokens *identity.TokenIssuer
	logger *zap.Logger
}

// NewForumHandler creates a ForumHandler.
func NewForumHandler(svc *forum.Service, tokens *identity.TokenIssuer, logger *zap.Logger) *ForumHandler {
	return &ForumHandler{svc: svc, tokens: tokens, logger: logger}
}

// Register mounts the forum routes.
func (h *ForumHandler) Register(rg *gin.RouterGroup) {
	required := identity.RequireUser(h.tokens)

	q := rg.Group("/questions")
	{
		q.GET("", h.ListQuestions)
		q.POST("", required, h.AskQuestion)
		q.GET("/:id/answers", h.ListAnswers)
		q.POST("/:id/answers", required, h.AnswerQuestion)
	}

	rg.GET("/builds/:id/replies", h.ListBuildReplies)
	rg.POST("/builds/:id/replies", required, h.ReplyToBuild)
}

type contentRequest struct {
	Content string `json:"content" binding:"required"`
}

// ListQuestions handles GET /questions.
func (h *ForumHandler) ListQuestions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	result, err := h.svc.ListQuestions(c.Request.Context(), page, limit)
	if err != nil {
		h.logger.Error("list questions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list questions"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// AskQuestion handles POST /questions.
func (h *ForumHandler) AskQuestion(c *gin.Context) {
	author, ok := currentAuthor(c)
	if !ok {
		return
	}

	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	q, err := h.svc.AskQuestion(c.Request.Context(), author, req.Content)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"question": q})
}

// ListAnswers handles GET /questions/:id/answers.
func (h *ForumHandler) ListAnswers(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	list, err := h.svc.ListAnswers(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, forum.ErrQuestionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "question not found"})
			return
		}
		h.logger.Error("list answers", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list answers"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"answers": list, "count": len(list)})
}

// AnswerQuestion handles POST /questions/:id/answers.
func (h *ForumHandler) AnswerQuestion(c *gin.Context) {
	author, ok := currentAuthor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	a, err := h.svc.AnswerQuestion(c.Request.Context(), author, id, req.Content)
	if err != nil {
		if errors.Is(err, forum.ErrQuestionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "question not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"answer": a})
}

// ListBuildReplies handles GET /builds/:id/replies.
func (h *ForumHandler) ListBuildReplies(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	list, err := h.svc.ListBuildReplies(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, builds.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "build not found"})
			return
		}
		h.logger.Error("list build replies", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list replies"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"replies": list, "count": len(list)})
}

// ReplyToBuild handles POST /builds/:id/replies.
func (h *ForumHandler) ReplyToBuild(c *gin.Context) {
	author, ok := currentAuthor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	br, err := h.svc.ReplyToBuild(c.Request.Context(), author, id, req.Content)
	if err != nil {
		if errors.Is(err, builds.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "build not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"reply": br})
}
