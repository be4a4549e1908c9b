package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"winmore.backend/internal/domain/entities"
	domainerrors "winmore.backend/internal/domain/errors"
	"winmore.backend/internal/domain/repositories"
	"winmore.backend/internal/interfaces/http/middleware"
	"winmore.backend/internal/interfaces/http/response"
	"winmore.backend/internal/usecases"
	"winmore.backend/pkg/utils"
)

// DreamMineHandler serves the dream-mine game endpoints.
type DreamMineHandler struct {
	mine *usecases.DreamMineUsecase
}

// NewDreamMineHandler creates a new dream-mine handler
func NewDreamMineHandler(mine *usecases.DreamMineUsecase) *DreamMineHandler {
	return &DreamMineHandler{mine: mine}
}

type newMineGameRequest struct {
	Bet       decimal.Decimal   `json:"bet" binding:"required"`
	Token     entities.Token    `json:"token" binding:"required"`
	ChainID   int64             `json:"chainId" binding:"required"`
	Mode      entities.GameMode `json:"mode" binding:"required"`
	RowsCount int               `json:"rowsCount" binding:"required"`
}

// NewGame stakes the bet and opens a mining session
func (h *DreamMineHandler) NewGame(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("authentication required"))
		return
	}

	var req newMineGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, domainerrors.BadRequest("invalid game request: "+err.Error()))
		return
	}

	game, err := h.mine.NewGame(c.Request.Context(), userID, req.Bet, req.Token, req.ChainID, req.Mode, req.RowsCount)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, game)
}

type mineRequest struct {
	Choice *int `json:"choice" binding:"required"`
}

// Mine digs one column of the current row
func (h *DreamMineHandler) Mine(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("authentication required"))
		return
	}

	var req mineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, domainerrors.BadRequest("choice is required"))
		return
	}

	game, err := h.mine.Mine(c.Request.Context(), userID, *req.Choice)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, game)
}

// BackOff cashes out the current multiplier instead of digging further
func (h *DreamMineHandler) BackOff(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("authentication required"))
		return
	}

	game, err := h.mine.BackOff(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, game)
}

// GetGame returns one of the caller's games by id
func (h *DreamMineHandler) GetGame(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("authentication required"))
		return
	}

	gameID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("invalid game id"))
		return
	}

	game, err := h.mine.GetGame(c.Request.Context(), userID, gameID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, game)
}

// ListGames returns the caller's games, filtered and paginated
func (h *DreamMineHandler) ListGames(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("authentication required"))
		return
	}

	q, err := bindGameQuery(c, &userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	games, err := h.mine.FindGames(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"games": games})
}

// GetRules returns the published game rules
func (h *DreamMineHandler) GetRules(c *gin.Context) {
	rules, err := h.mine.GetRules(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"rules": rules})
}

// bindGameQuery parses the shared game listing parameters.
func bindGameQuery(c *gin.Context, userID *uuid.UUID) (repositories.GameQuery, error) {
	var query struct {
		Filter string `form:"filter"`
		Lucky  bool   `form:"lucky"`
		utils.PaginationParams
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		return repositories.GameQuery{}, domainerrors.BadRequest("invalid query parameters")
	}

	params := utils.GetPaginationParams(query.Page, query.Limit)
	return repositories.GameQuery{
		UserID:    userID,
		Filter:    repositories.GameStatusFilter(query.Filter),
		LuckySort: query.Lucky,
		Limit:     params.Limit,
		Offset:    params.CalculateOffset(),
	}, nil
}
