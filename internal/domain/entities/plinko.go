package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
)

// PlinkoGameStatus is the ball-drop game lifecycle.
type PlinkoGameStatus string

const (
	PlinkoStatusNotDroppedYet PlinkoGameStatus = "NOT_DROPPED_YET"
	PlinkoStatusDropping      PlinkoGameStatus = "DROPPING"
	PlinkoStatusFinished      PlinkoGameStatus = "FINISHED"
)

// PlinkoGame is one ball-drop session of BallsCount balls at InitialBet each.
type PlinkoGame struct {
	ID         uuid.UUID        `json:"id"`
	UserID     uuid.UUID        `json:"userId"`
	InitialBet decimal.Decimal  `json:"initialBet"`
	Token      Token            `json:"token"`
	ChainID    int64            `json:"chainId"`
	Mode       GameMode         `json:"mode"`
	RowsCount  int              `json:"rowsCount"`
	BallsCount int              `json:"ballsCount"`
	Status     PlinkoGameStatus `json:"status"`
	Prize      decimal.Decimal  `json:"prize"`
	CreatedAt  time.Time        `json:"createdAt"`
	FinishedAt null.Time        `json:"finishedAt,omitempty"`

	Balls []*PlinkoBall `json:"balls,omitempty"`
}

// PlinkoBall is one resolved drop: the RNG-chosen bucket plus the initial
// state whose deterministic simulation lands there, kept so the client can
// replay a physically consistent animation.
type PlinkoBall struct {
	ID               uuid.UUID       `json:"id"`
	GameID           uuid.UUID       `json:"gameId"`
	UserID           uuid.UUID       `json:"userId"`
	BucketIndex      int             `json:"bucketIndex"`
	ScoredMultiplier float64         `json:"scoredMultiplier"`
	DropSpecs        PlinkoDropSpecs `json:"dropSpecs"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// PlinkoDropSpecs is the initial ball state for a deterministic drop.
type PlinkoDropSpecs struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	VX     float64 `json:"vx"`
	VY     float64 `json:"vy"`
	Radius float64 `json:"radius"`
}

// PlinkoRule is the published rule set for a given peg row count.
// Multipliers and Probabilities are indexed by bucket.
type PlinkoRule struct {
	ID                    uuid.UUID       `json:"id"`
	RowsCount             int             `json:"rows"`
	Multipliers           []float64       `json:"multipliers"`
	Probabilities         []float64       `json:"probabilities"`
	DifficultyMultipliers []float64       `json:"difficultyMultipliers"`
	Gravity               float64         `json:"gravity"`
	Friction              float64         `json:"friction"`
	HorizontalSpeedFactor float64         `json:"horizontalSpeedFactor"`
	VerticalSpeedFactor   float64         `json:"verticalSpeedFactor"`
	MinBetAmount          decimal.Decimal `json:"minBetAmount"`
	MaxBetAmount          decimal.Decimal `json:"maxBetAmount"`
	CreatedAt             time.Time       `json:"createdAt"`
}
