package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bebranft/creator-market/internal/auth"
	"github.com/bebranft/creator-market/internal/services"
)

// UserHandler handles user-related endpoints
type UserHandler struct {
	userService *services.UserService
	pipeline    *services.PublicationService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService *services.UserService, pipeline *services.PublicationService) *UserHandler {
	return &UserHandler{userService: userService, pipeline: pipeline}
}

// GetProfile returns the profile for an address, registering it lazily.
func (h *UserHandler) GetProfile(c *gin.Context) {
	profile, err := h.userService.GetProfile(c.Request.Context(), c.Param("address"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// RegisterRequest is the explicit registration payload
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email"`
}

// Register explicitly registers the authenticated wallet.
func (h *UserHandler) Register(c *gin.Context) {
	address, ok := auth.GetWalletAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username is required"})
		return
	}

	user, err := h.pipeline.RegisterUser(c.Request.Context(), address, req.Username, req.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// RepairStats re-creates a stats row lost to a partial registration failure.
func (h *UserHandler) RepairStats(c *gin.Context) {
	address, ok := auth.GetWalletAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	if err := h.pipeline.RepairUserStats(c.Request.Context(), address); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "repaired"})
}

// UpdateProfileRequest carries profile mutations; absent fields are untouched.
type UpdateProfileRequest struct {
	Username    *string           `json:"username"`
	Email       *string           `json:"email"`
	Bio         *string           `json:"bio"`
	SocialLinks map[string]string `json:"social_links"`
}

// UpdateProfile mutates the authenticated user's profile.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	address, ok := auth.GetWalletAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), address, services.ProfileUpdate{
		Username:    req.Username,
		Email:       req.Email,
		Bio:         req.Bio,
		SocialLinks: req.SocialLinks,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateStatsRequest nudges a non-post counter.
type UpdateStatsRequest struct {
	Kind  string `json:"kind" binding:"required"`
	Delta int    `json:"delta" binding:"required"`
}

// UpdateStats applies a manual counter adjustment.
func (h *UserHandler) UpdateStats(c *gin.Context) {
	address, ok := auth.GetWalletAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req UpdateStatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind and delta are required"})
		return
	}

	stats, err := h.userService.UpdateStats(c.Request.Context(), address, services.StatKind(req.Kind), req.Delta)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

// MigrateRequest bootstraps a user from a pinned profile blob.
type MigrateRequest struct {
	ContentID string `json:"content_id" binding:"required"`
}

// Migrate runs the one-time legacy bootstrap for the authenticated wallet.
func (h *UserHandler) Migrate(c *gin.Context) {
	address, ok := auth.GetWalletAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req MigrateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content_id is required"})
		return
	}

	user, err := h.pipeline.MigrateLegacyUser(c.Request.Context(), address, req.ContentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// Delete tears down the authenticated user's account.
func (h *UserHandler) Delete(c *gin.Context) {
	address, ok := auth.GetWalletAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if err := h.pipeline.DeleteUserAndCleanup(c.Request.Context(), address); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
