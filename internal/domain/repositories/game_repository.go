package repositories

import (
	"context"

	"github.com/google/uuid"
	"winmore.backend/internal/domain/entities"
)

// GameStatusFilter widens the game status enums for listing queries.
type GameStatusFilter string

const (
	GameFilterAll      GameStatusFilter = "ALL"
	GameFilterFinished GameStatusFilter = "FINISHED"
	GameFilterGained   GameStatusFilter = "GAINED"
	GameFilterOngoing  GameStatusFilter = "ONGOING"
)

// GameQuery carries common listing parameters.
type GameQuery struct {
	UserID    *uuid.UUID
	Filter    GameStatusFilter
	LuckySort bool // order by stake/prize desc instead of recency
	Limit     int
	Offset    int
}

// DreamMineRepository defines mine-game data operations
type DreamMineRepository interface {
	CreateGame(ctx context.Context, game *entities.DreamMineGame) error
	GetGame(ctx context.Context, id uuid.UUID) (*entities.DreamMineGame, error)
	UpdateGame(ctx context.Context, game *entities.DreamMineGame) error
	FindGames(ctx context.Context, q GameQuery) ([]*entities.DreamMineGame, error)
	GetOngoingByUser(ctx context.Context, userID uuid.UUID) (*entities.DreamMineGame, error)

	GetRules(ctx context.Context) ([]*entities.DreamMineRule, error)
	GetRuleByRows(ctx context.Context, rows int) (*entities.DreamMineRule, error)
	CreateRule(ctx context.Context, rule *entities.DreamMineRule) error
}

// PlinkoRepository defines ball-drop game data operations
type PlinkoRepository interface {
	CreateGame(ctx context.Context, game *entities.PlinkoGame) error
	GetGame(ctx context.Context, id uuid.UUID) (*entities.PlinkoGame, error)
	UpdateGame(ctx context.Context, game *entities.PlinkoGame) error
	FindGames(ctx context.Context, q GameQuery) ([]*entities.PlinkoGame, error)
	GetLatestUnfinishedByUser(ctx context.Context, userID uuid.UUID) (*entities.PlinkoGame, error)

	CreateBall(ctx context.Context, ball *entities.PlinkoBall) error
	GetBallsByGame(ctx context.Context, gameID uuid.UUID) ([]*entities.PlinkoBall, error)

	GetRules(ctx context.Context) ([]*entities.PlinkoRule, error)
	GetRuleByRows(ctx context.Context, rows int) (*entities.PlinkoRule, error)
	CreateRule(ctx context.Context, rule *entities.PlinkoRule) error
}
