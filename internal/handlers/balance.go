package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bebranft/creator-market/internal/apperr"
	"github.com/bebranft/creator-market/internal/blockchain"
)

// BalanceHandler exposes on-chain balance reads for wallets and tokens.
type BalanceHandler struct {
	client *blockchain.SolanaClient
}

// NewBalanceHandler creates a new BalanceHandler
func NewBalanceHandler(client *blockchain.SolanaClient) *BalanceHandler {
	return &BalanceHandler{client: client}
}

// GetBalance returns the SOL balance for a wallet address.
func (h *BalanceHandler) GetBalance(c *gin.Context) {
	address := c.Param("address")
	if !h.client.ValidateWalletAddress(address) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid wallet address",
			"kind":  apperr.KindInvalidArgument.String(),
		})
		return
	}

	balance, err := h.client.GetSOLBalance(c.Request.Context(), address)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "failed to read balance",
			"kind":  apperr.KindNetworkUnavailable.String(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"wallet_address": address,
		"sol_balance":    balance,
	})
}

// GetTokenBalance returns the wallet's balance for one token mint.
func (h *BalanceHandler) GetTokenBalance(c *gin.Context) {
	address := c.Param("address")
	contract := c.Param("contract")
	if !h.client.ValidateWalletAddress(address) || !h.client.ValidateWalletAddress(contract) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid wallet or mint address",
			"kind":  apperr.KindInvalidArgument.String(),
		})
		return
	}

	balance, err := h.client.GetTokenAccountBalance(c.Request.Context(), address, contract)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "failed to read token balance",
			"kind":  apperr.KindNetworkUnavailable.String(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"wallet_address":   address,
		"contract_address": contract,
		"balance":          balance,
	})
}
