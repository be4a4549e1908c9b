package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DreamMineGame struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	InitialBet decimal.Decimal `gorm:"type:decimal(38,18);not null"`
	Token      string          `gorm:"type:varchar(16);not null"`
	ChainID    int64           `gorm:"not null"`
	Mode       string          `gorm:"type:varchar(16);not null"`
	RowsCount  int             `gorm:"not null"`
	CurrentRow int             `gorm:"not null;default:0"`
	Status     string          `gorm:"type:varchar(16);not null;index"`
	Stake      decimal.Decimal `gorm:"type:decimal(38,18);not null"`
	LastChoice *int            `gorm:""`
	Nulls      string          `gorm:"type:jsonb;default:'[]'"` // per-row revealed empty columns
	CreatedAt  time.Time
	FinishedAt *time.Time
}

func (DreamMineGame) TableName() string { return "dream_mine_games" }

type DreamMineRule struct {
	ID                    uuid.UUID       `gorm:"type:uuid;primaryKey"`
	RowsCount             int             `gorm:"not null;uniqueIndex"`
	Multipliers           string          `gorm:"type:jsonb;not null"`
	Probabilities         string          `gorm:"type:jsonb;not null"`
	DifficultyMultipliers string          `gorm:"type:jsonb;not null"`
	MinBetAmount          decimal.Decimal `gorm:"type:decimal(38,18);not null;default:0"`
	MaxBetAmount          decimal.Decimal `gorm:"type:decimal(38,18);not null"`
	CreatedAt             time.Time
}

func (DreamMineRule) TableName() string { return "dream_mine_rules" }

type PlinkoGame struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	InitialBet decimal.Decimal `gorm:"type:decimal(38,18);not null"`
	Token      string          `gorm:"type:varchar(16);not null"`
	ChainID    int64           `gorm:"not null"`
	Mode       string          `gorm:"type:varchar(16);not null"`
	RowsCount  int             `gorm:"not null"`
	BallsCount int             `gorm:"not null"`
	Status     string          `gorm:"type:varchar(24);not null;index"`
	Prize      decimal.Decimal `gorm:"type:decimal(38,18);not null;default:0"`
	CreatedAt  time.Time
	FinishedAt *time.Time
}

func (PlinkoGame) TableName() string { return "plinko_games" }

type PlinkoBall struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	GameID           uuid.UUID `gorm:"type:uuid;not null;index"`
	UserID           uuid.UUID `gorm:"type:uuid;not null;index"`
	BucketIndex      int       `gorm:"not null"`
	ScoredMultiplier float64   `gorm:"not null"`
	DropSpecs        string    `gorm:"type:jsonb;not null"`
	CreatedAt        time.Time
}

func (PlinkoBall) TableName() string { return "plinko_balls" }

type PlinkoRule struct {
	ID                    uuid.UUID       `gorm:"type:uuid;primaryKey"`
	RowsCount             int             `gorm:"not null;uniqueIndex"`
	Multipliers           string          `gorm:"type:jsonb;not null"`
	Probabilities         string          `gorm:"type:jsonb;not null"`
	DifficultyMultipliers string          `gorm:"type:jsonb;not null"`
	Gravity               float64         `gorm:"not null"`
	Friction              float64         `gorm:"not null"`
	HorizontalSpeedFactor float64         `gorm:"not null"`
	VerticalSpeedFactor   float64         `gorm:"not null"`
	MinBetAmount          decimal.Decimal `gorm:"type:decimal(38,18);not null;default:0"`
	MaxBetAmount          decimal.Decimal `gorm:"type:decimal(38,18);not null"`
	CreatedAt             time.Time
}

func (PlinkoRule) TableName() string { return "plinko_rules" }
