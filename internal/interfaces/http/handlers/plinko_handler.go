package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"winmore.backend/internal/domain/entities"
	domainerrors "winmore.backend/internal/domain/errors"
	"winmore.backend/internal/interfaces/http/middleware"
	"winmore.backend/internal/interfaces/http/response"
	"winmore.backend/internal/usecases"
)

// PlinkoHandler serves the plinko game endpoints.
type PlinkoHandler struct {
	plinko *usecases.PlinkoUsecase
}

// NewPlinkoHandler creates a new plinko handler
func NewPlinkoHandler(plinko *usecases.PlinkoUsecase) *PlinkoHandler {
	return &PlinkoHandler{plinko: plinko}
}

type newPlinkoGameRequest struct {
	Bet        decimal.Decimal   `json:"bet" binding:"required"`
	Token      entities.Token    `json:"token" binding:"required"`
	ChainID    int64             `json:"chainId" binding:"required"`
	Mode       entities.GameMode `json:"mode" binding:"required"`
	RowsCount  int               `json:"rowsCount" binding:"required"`
	BallsCount int               `json:"ballsCount" binding:"required"`
}

// NewGame stakes bet times ball count and opens a plinko session
func (h *PlinkoHandler) NewGame(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("authentication required"))
		return
	}

	var req newPlinkoGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, domainerrors.BadRequest("invalid game request: "+err.Error()))
		return
	}

	game, err := h.plinko.NewGame(c.Request.Context(), userID, req.Bet, req.Token, req.ChainID, req.Mode, req.RowsCount, req.BallsCount)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, game)
}

// Drop releases the next ball and returns its scored trajectory
func (h *PlinkoHandler) Drop(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("authentication required"))
		return
	}

	game, ball, err := h.plinko.Drop(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"game": game, "ball": ball})
}

// GetGame returns one of the caller's games by id
func (h *PlinkoHandler) GetGame(c *gin.Context) {
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

	game, err := h.plinko.GetGame(c.Request.Context(), userID, gameID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, game)
}

// GetOngoing returns the caller's open session, if any
func (h *PlinkoHandler) GetOngoing(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("authentication required"))
		return
	}

	game, err := h.plinko.GetLatestOngoing(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, game)
}

// ListGames returns the caller's games, filtered and paginated
func (h *PlinkoHandler) ListGames(c *gin.Context) {
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

	games, err := h.plinko.FindGames(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"games": games})
}

// GetBoard returns the peg and bucket geometry for a row count, so the
// client renders exactly the board the server simulates.
func (h *PlinkoHandler) GetBoard(c *gin.Context) {
	rows, err := strconv.Atoi(c.Query("rows"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("rows must be an integer"))
		return
	}

	board, err := h.plinko.Board(c.Request.Context(), rows)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, board)
}

// GetRules returns the published rules with the effective per-bucket
// multipliers of every difficulty mode.
func (h *PlinkoHandler) GetRules(c *gin.Context) {
	rules, err := h.plinko.GetRules(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	type ruleView struct {
		*entities.PlinkoRule
		ModeMultipliers map[entities.GameMode][]float64 `json:"modeMultipliers"`
	}
	views := make([]ruleView, 0, len(rules))
	for _, rule := range rules {
		view := ruleView{PlinkoRule: rule, ModeMultipliers: map[entities.GameMode][]float64{}}
		for _, mode := range []entities.GameMode{entities.GameModeEasy, entities.GameModeMedium, entities.GameModeHard} {
			multipliers, err := usecases.PopulateBucketMultipliers(rule, mode)
			if err != nil {
				response.Error(c, err)
				return
			}
			view.ModeMultipliers[mode] = multipliers
		}
		views = append(views, view)
	}
	response.Success(c, http.StatusOK, gin.H{"rules": views})
}
