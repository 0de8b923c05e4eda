package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bebranft/creator-market/internal/apperr"
	"github.com/bebranft/creator-market/internal/services"
)

// respondError maps the error taxonomy onto HTTP statuses. PartialFailure
// responses carry the identities needed to drive a repair call; they are
// never collapsed into a generic message.
func respondError(c *gin.Context, err error) {
	var recordErr *services.MintRecordError
	if errors.As(err, &recordErr) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":            "mint confirmed on chain but not recorded",
			"kind":             apperr.KindPartialFailure.String(),
			"contract_address": recordErr.ContractAddress,
			"edition_number":   recordErr.EditionNumber,
			"post_id":          recordErr.PostID,
			"tx_hash":          recordErr.TxHash,
		})
		return
	}

	kind := apperr.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case apperr.KindInvalidArgument:
		status = http.StatusBadRequest
	case apperr.KindConflict:
		status = http.StatusConflict
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindStorageUnavailable, apperr.KindNetworkUnavailable:
		status = http.StatusServiceUnavailable
	case apperr.KindTimeout:
		status = http.StatusGatewayTimeout
	case apperr.KindReverted:
		status = http.StatusUnprocessableEntity
	}

	c.JSON(status, gin.H{
		"error": err.Error(),
		"kind":  kind.String(),
	})
}
