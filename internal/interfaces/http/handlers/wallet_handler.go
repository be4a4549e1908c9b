package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"winmore.backend/internal/domain/entities"
	domainerrors "winmore.backend/internal/domain/errors"
	"winmore.backend/internal/domain/repositories"
	"winmore.backend/internal/interfaces/http/middleware"
	"winmore.backend/internal/interfaces/http/response"
	"winmore.backend/internal/usecases"
	"winmore.backend/pkg/utils"
)

// WalletHandler serves the custodial wallet surface: balances, ledger
// history and withdrawal submission.
type WalletHandler struct {
	ledger     *usecases.LedgerUsecase
	withdrawal *usecases.WithdrawalUsecase
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(ledger *usecases.LedgerUsecase, withdrawal *usecases.WithdrawalUsecase) *WalletHandler {
	return &WalletHandler{ledger: ledger, withdrawal: withdrawal}
}

// GetWallet returns the caller's wallet with its per-chain token balances
func (h *WalletHandler) GetWallet(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("authentication required"))
		return
	}

	view, err := h.ledger.GetUserWallet(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// GetTransactions returns the caller's ledger history, newest first
func (h *WalletHandler) GetTransactions(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("authentication required"))
		return
	}

	var query struct {
		Filter string `form:"filter"`
		utils.PaginationParams
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, domainerrors.BadRequest("invalid query parameters"))
		return
	}

	params := utils.GetPaginationParams(query.Page, query.Limit)
	history, err := h.ledger.GetUserTransactionsHistory(
		c.Request.Context(),
		userID,
		repositories.TransactionTypeFilter(query.Filter),
		params.Limit,
		params.CalculateOffset(),
	)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"transactions": history})
}

type withdrawRequest struct {
	ChainID int64           `json:"chainId" binding:"required"`
	Token   entities.Token  `json:"token" binding:"required"`
	Amount  decimal.Decimal `json:"amount" binding:"required"`
}

// Withdraw debits the ledger and broadcasts the on-chain transfer. The
// response acknowledges the broadcast; settlement happens asynchronously.
func (h *WalletHandler) Withdraw(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("authentication required"))
		return
	}

	var req withdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, domainerrors.BadRequest("invalid withdrawal request: "+err.Error()))
		return
	}

	ack, err := h.withdrawal.Withdraw(c.Request.Context(), userID, req.ChainID, req.Token, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusAccepted, ack)
}
