package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/bebranft/creator-market/internal/auth"
	"github.com/bebranft/creator-market/internal/services"
)

// PublicationHandler handles publish, mint and reconciliation endpoints
type PublicationHandler struct {
	pipeline *services.PublicationService
}

// NewPublicationHandler creates a new PublicationHandler
func NewPublicationHandler(pipeline *services.PublicationService) *PublicationHandler {
	return &PublicationHandler{pipeline: pipeline}
}

// PublishRequest is the publish-and-mint payload
type PublishRequest struct {
	Title       string   `json:"title" binding:"required"`
	Content     string   `json:"content"`
	Description string   `json:"description"`
	ExternalURL string   `json:"external_url"`
	Tags        []string `json:"tags"`
	Name        string   `json:"name"`
	Symbol      string   `json:"symbol"`
	Price       string   `json:"price"`
	MaxSupply   uint64   `json:"max_supply"`
	RoyaltyBps  int      `json:"royalty_bps"`
}

// Publish drafts a post, pins its token metadata and mints the first edition.
func (h *PublicationHandler) Publish(c *gin.Context) {
	address, ok := auth.GetWalletAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	price := decimal.Zero
	if req.Price != "" {
		parsed, err := decimal.NewFromString(req.Price)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid price"})
			return
		}
		price = parsed
	}

	post, token, err := h.pipeline.PublishAndMint(c.Request.Context(), services.PublishRequest{
		CreatorAddress: address,
		Title:          req.Title,
		Content:        req.Content,
		Description:    req.Description,
		ExternalURL:    req.ExternalURL,
		Tags:           req.Tags,
		Name:           req.Name,
		Symbol:         req.Symbol,
		Price:          price,
		MaxSupply:      req.MaxSupply,
		RoyaltyBps:     req.RoyaltyBps,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"post":  post,
		"token": token,
	})
}

// ReconcileMintRequest identifies a confirmed mint the database missed.
type ReconcileMintRequest struct {
	ContractAddress string `json:"contract_address" binding:"required"`
	EditionNumber   uint64 `json:"edition_number"`
	PostID          uint   `json:"post_id" binding:"required"`
	TxHash          string `json:"tx_hash"`
}

// ReconcileMint re-attempts the token-recording step.
func (h *PublicationHandler) ReconcileMint(c *gin.Context) {
	var req ReconcileMintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "contract_address and post_id are required"})
		return
	}
	if req.EditionNumber == 0 {
		req.EditionNumber = 1
	}

	token, err := h.pipeline.ReconcileMint(c.Request.Context(), req.ContractAddress, req.EditionNumber, req.PostID, req.TxHash)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// RetryMintRequest names a draft post whose mint never landed.
type RetryMintRequest struct {
	PostID uint `json:"post_id" binding:"required"`
}

// RetryMint re-runs the mint steps for an existing draft without creating a
// new post.
func (h *PublicationHandler) RetryMint(c *gin.Context) {
	var req RetryMintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "post_id is required"})
		return
	}

	post, token, err := h.pipeline.RetryMint(c.Request.Context(), req.PostID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"post":  post,
		"token": token,
	})
}

// MintSupplyRequest tops up an existing token.
type MintSupplyRequest struct {
	Quantity uint64 `json:"quantity" binding:"required"`
}

// MintSupply mints additional supply on an existing contract for the caller.
func (h *PublicationHandler) MintSupply(c *gin.Context) {
	address, ok := auth.GetWalletAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req MintSupplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity is required"})
		return
	}

	token, err := h.pipeline.MintSupply(c.Request.Context(), c.Param("contract"), req.Quantity, address)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// CreateCoinRequest launches a freestanding fungible token.
type CreateCoinRequest struct {
	Name          string `json:"name" binding:"required"`
	Symbol        string `json:"symbol"`
	Description   string `json:"description"`
	InitialSupply uint64 `json:"initial_supply" binding:"required"`
	MaxSupply     uint64 `json:"max_supply"`
	Price         string `json:"price"`
}

// CreateCoin mints a coin-variant token with no backing post.
func (h *PublicationHandler) CreateCoin(c *gin.Context) {
	address, ok := auth.GetWalletAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req CreateCoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and initial_supply are required"})
		return
	}

	price := decimal.Zero
	if req.Price != "" {
		parsed, err := decimal.NewFromString(req.Price)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid price"})
			return
		}
		price = parsed
	}

	token, err := h.pipeline.CreateCoin(c.Request.Context(), services.CoinRequest{
		CreatorAddress: address,
		Name:           req.Name,
		Symbol:         req.Symbol,
		Description:    req.Description,
		InitialSupply:  req.InitialSupply,
		MaxSupply:      req.MaxSupply,
		Price:          price,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token})
}

// ReconcileCoinRequest identifies a confirmed coin mint the database missed.
// Coins have no backing post, so the original parameters ride along.
type ReconcileCoinRequest struct {
	ContractAddress string `json:"contract_address" binding:"required"`
	TxHash          string `json:"tx_hash"`
	Name            string `json:"name" binding:"required"`
	Symbol          string `json:"symbol"`
	Description     string `json:"description"`
	InitialSupply   uint64 `json:"initial_supply" binding:"required"`
	MaxSupply       uint64 `json:"max_supply"`
	Price           string `json:"price"`
}

// ReconcileCoin re-attempts the coin-recording step.
func (h *PublicationHandler) ReconcileCoin(c *gin.Context) {
	address, ok := auth.GetWalletAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req ReconcileCoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "contract_address, name and initial_supply are required"})
		return
	}

	price := decimal.Zero
	if req.Price != "" {
		parsed, err := decimal.NewFromString(req.Price)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid price"})
			return
		}
		price = parsed
	}

	token, err := h.pipeline.ReconcileCoin(c.Request.Context(), services.CoinRequest{
		CreatorAddress: address,
		Name:           req.Name,
		Symbol:         req.Symbol,
		Description:    req.Description,
		InitialSupply:  req.InitialSupply,
		MaxSupply:      req.MaxSupply,
		Price:          price,
	}, req.ContractAddress, req.TxHash)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
