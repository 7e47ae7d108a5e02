package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/brainwave-ai/gateway/internal/common"
	"github.com/brainwave-ai/gateway/internal/identity"
	"github.com/brainwave-ai/gateway/internal/retrieval"
)

type searchRequest struct {
	Query string `json:"query"`
	JWT   string `json:"jwt"`
}

// VectorSearch returns the assembled context text for a query. An empty
// contextText is a valid success: nothing cleared the similarity threshold.
func (h *Handler) VectorSearch(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, "invalid json")
		return
	}

	contextText, err := h.Retrieval.Search(c.Request.Context(), req.Query, req.JWT, nil)
	if err != nil {
		switch {
		case errors.Is(err, retrieval.ErrQueryMissing),
			errors.Is(err, retrieval.ErrCredentialMissing):
			common.Fail(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, identity.ErrCredentialMissing),
			errors.Is(err, identity.ErrUserNotFound),
			errors.Is(err, identity.ErrProfileNotFound):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":       "not_authenticated",
				"description": "The user does not have an active session or is not authenticated",
			})
		default:
			// The raw error stays server-side.
			log.Printf("vector search failed err=%v", err)
			common.Fail(c, http.StatusInternalServerError, "error processing your request")
		}
		return
	}

	common.OK(c, gin.H{"contextText": contextText})
}
