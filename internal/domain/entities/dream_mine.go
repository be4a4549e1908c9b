package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
)

// GameMode is the difficulty tier shared by both games.
type GameMode string

const (
	GameModeEasy   GameMode = "EASY"
	GameModeMedium GameMode = "MEDIUM"
	GameModeHard   GameMode = "HARD"
)

// GameStatus is the dream-mine state machine:
// NOT_STARTED -> ONGOING -> WON | FLAWLESS_WIN | LOST.
// WON is a voluntary mid-game cash-out; FLAWLESS_WIN clears every row.
type GameStatus string

const (
	GameStatusNotStarted  GameStatus = "NOT_STARTED"
	GameStatusOngoing     GameStatus = "ONGOING"
	GameStatusWon         GameStatus = "WON"
	GameStatusFlawlessWin GameStatus = "FLAWLESS_WIN"
	GameStatusLost        GameStatus = "LOST"
)

// IsTerminal reports whether no further moves are legal.
func (s GameStatus) IsTerminal() bool {
	return s == GameStatusWon || s == GameStatusFlawlessWin || s == GameStatusLost
}

// DreamMineGame is one mine run. Nulls holds, per cleared (or backfilled)
// row, the column revealed as empty — kept for client replay.
type DreamMineGame struct {
	ID         uuid.UUID       `json:"id"`
	UserID     uuid.UUID       `json:"userId"`
	InitialBet decimal.Decimal `json:"initialBet"`
	Token      Token           `json:"token"`
	ChainID    int64           `json:"chainId"`
	Mode       GameMode        `json:"mode"`
	RowsCount  int             `json:"rowsCount"`
	CurrentRow int             `json:"currentRow"`
	Status     GameStatus      `json:"status"`
	Stake      decimal.Decimal `json:"stake"`
	LastChoice null.Int        `json:"lastChoice,omitempty"`
	Nulls      []int           `json:"nulls"`
	CreatedAt  time.Time       `json:"createdAt"`
	FinishedAt null.Time       `json:"finishedAt,omitempty"`
}

// DreamMineRule is the published rule set for a given row count.
// Multipliers and Probabilities are indexed by row and must both have
// RowsCount entries. DifficultyMultipliers carries one or two scaling
// coefficients: index 0 is MEDIUM and the last index is HARD, so a
// single-entry rule makes MEDIUM and HARD indistinguishable only in the
// sense that MEDIUM falls back to the same value.
type DreamMineRule struct {
	ID                    uuid.UUID       `json:"id"`
	RowsCount             int             `json:"rows"`
	Multipliers           []float64       `json:"multipliers"`
	Probabilities         []float64       `json:"probabilities"`
	DifficultyMultipliers []float64       `json:"difficultyMultipliers"`
	MinBetAmount          decimal.Decimal `json:"minBetAmount"`
	MaxBetAmount          decimal.Decimal `json:"maxBetAmount"`
	CreatedAt             time.Time       `json:"createdAt"`
}
