package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bebranft/creator-market/internal/auth"
	"github.com/bebranft/creator-market/internal/services"
)

// FollowHandler handles follow graph endpoints
type FollowHandler struct {
	followService *services.FollowService
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(followService *services.FollowService) *FollowHandler {
	return &FollowHandler{followService: followService}
}

// Follow makes the authenticated user follow the address in the path.
func (h *FollowHandler) Follow(c *gin.Context) {
	address, ok := auth.GetWalletAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if err := h.followService.Follow(c.Request.Context(), address, c.Param("address")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "following"})
}

// Unfollow removes the edge; removing an absent edge still succeeds.
func (h *FollowHandler) Unfollow(c *gin.Context) {
	address, ok := auth.GetWalletAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if err := h.followService.Unfollow(c.Request.Context(), address, c.Param("address")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "not_following"})
}

// IsFollowing reports whether one address follows another.
func (h *FollowHandler) IsFollowing(c *gin.Context) {
	following, err := h.followService.IsFollowing(c.Request.Context(), c.Param("address"), c.Param("other"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": following})
}
