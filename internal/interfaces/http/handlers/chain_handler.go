package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"winmore.backend/internal/domain/repositories"
	"winmore.backend/internal/interfaces/http/response"
)

// ChainHandler serves the supported chain and token contract catalogue.
type ChainHandler struct {
	chainRepo repositories.ChainRepository
}

// NewChainHandler creates a new chain handler
func NewChainHandler(chainRepo repositories.ChainRepository) *ChainHandler {
	return &ChainHandler{chainRepo: chainRepo}
}

// ListChains returns every configured chain with its token contracts
func (h *ChainHandler) ListChains(c *gin.Context) {
	chains, err := h.chainRepo.GetAll(c.Request.Context(), true)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"chains": chains})
}
