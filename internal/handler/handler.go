// Package handler wires the storefront services to their HTTP routes.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rigforge/rigforge/internal/builds"
	"github.com/rigforge/rigforge/internal/forum"
	"github.com/rigforge/rigforge/internal/identity"
)

// currentUserID extracts the authenticated user's UUID from the session
// claims. Writes the error response and returns false when absent or
// malformed; routes behind RequireUser only hit the malformed case.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	claims := identity.ClaimsFromCtx(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized. Please login first."})
		return uuid.Nil, false
	}
	uid, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user id in token"})
		return uuid.Nil, false
	}
	return uid, true
}

// currentOwner builds the acting-owner value stamped onto created records.
func currentOwner(c *gin.Context) (builds.Owner, bool) {
	claims := identity.ClaimsFromCtx(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized. Please login first."})
		return builds.Owner{}, false
	}
	uid, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user id in token"})
		return builds.Owner{}, false
	}
	return builds.Owner{ID: uid, Username: claims.Username, Email: claims.Email}, true
}

// currentAuthor is currentOwner reshaped for forum posts.
func currentAuthor(c *gin.Context) (forum.Author, bool) {
	owner, ok := currentOwner(c)
	if !ok {
		return forum.Author{}, false
	}
	return forum.Author{
		ID:       owner.ID,
		Username: owner.Username,
		Email:    owner.Email,
		ImageURL: owner.ImageURL,
	}, true
}

// parseIDParam parses a :id path parameter as a UUID, writing a 400 on
// failure.
func parseIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}
