package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
	"winmore.backend/internal/domain/entities"
	domainerrors "winmore.backend/internal/domain/errors"
)

func TestPlinkoRepository_GameAndBalls(t *testing.T) {
	db := newTestDB(t)
	createPlinkoTables(t, db)
	repo := NewPlinkoRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	game := &entities.PlinkoGame{
		UserID:     userID,
		InitialBet: decimal.New(1, 0),
		Token:      entities.TokenUSDC,
		ChainID:    137,
		Mode:       entities.GameModeHard,
		RowsCount:  12,
		BallsCount: 3,
		Status:     entities.PlinkoStatusNotDroppedYet,
		Prize:      decimal.Zero,
	}
	require.NoError(t, repo.CreateGame(ctx, game))

	open, err := repo.GetLatestUnfinishedByUser(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, game.ID, open.ID)

	for i := 0; i < 2; i++ {
		require.NoError(t, repo.CreateBall(ctx, &entities.PlinkoBall{
			GameID:           game.ID,
			UserID:           userID,
			BucketIndex:      i + 4,
			ScoredMultiplier: 0.5,
			DropSpecs: entities.PlinkoDropSpecs{
				X: 0.48, Y: 0, VX: 0.02, VY: 0.1, Radius: 0.015,
			},
		}))
	}

	got, err := repo.GetGame(ctx, game.ID)
	require.NoError(t, err)
	require.Len(t, got.Balls, 2)
	require.Equal(t, 4, got.Balls[0].BucketIndex)
	require.InDelta(t, 0.48, got.Balls[0].DropSpecs.X, 1e-12)

	got.Status = entities.PlinkoStatusFinished
	got.Prize = decimal.RequireFromString("1.5")
	got.FinishedAt = null.TimeFrom(time.Now())
	require.NoError(t, repo.UpdateGame(ctx, got))

	_, err = repo.GetLatestUnfinishedByUser(ctx, userID)
	require.ErrorIs(t, err, domainerrors.ErrNotFound)

	final, err := repo.GetGame(ctx, game.ID)
	require.NoError(t, err)
	require.Equal(t, entities.PlinkoStatusFinished, final.Status)
	require.True(t, final.Prize.Equal(decimal.RequireFromString("1.5")))

	_, err = repo.GetGame(ctx, uuid.New())
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestPlinkoRepository_Rules(t *testing.T) {
	db := newTestDB(t)
	createPlinkoTables(t, db)
	repo := NewPlinkoRepository(db)
	ctx := context.Background()

	rule := &entities.PlinkoRule{
		RowsCount:             12,
		Multipliers:           []float64{10, 4, 2, 1, 0.5, 0.3, 0.2, 0.3, 0.5, 1, 2, 4, 10},
		Probabilities:         []float64{0.002, 0.01, 0.04, 0.09, 0.15, 0.2, 0.216, 0.2, 0.15, 0.09, 0.04, 0.01, 0.002},
		DifficultyMultipliers: []float64{0.9, 0.75},
		Gravity:               9.8,
		Friction:              0.92,
		HorizontalSpeedFactor: 0.4,
		VerticalSpeedFactor:   0.6,
		MinBetAmount:          decimal.New(1, 0),
		MaxBetAmount:          decimal.New(500, 0),
	}
	require.NoError(t, repo.CreateRule(ctx, rule))
	require.ErrorIs(t, repo.CreateRule(ctx, &entities.PlinkoRule{
		RowsCount:             12,
		Multipliers:           rule.Multipliers,
		Probabilities:         rule.Probabilities,
		DifficultyMultipliers: rule.DifficultyMultipliers,
		MaxBetAmount:          decimal.New(1, 0),
	}), domainerrors.ErrAlreadyExists)

	got, err := repo.GetRuleByRows(ctx, 12)
	require.NoError(t, err)
	require.Equal(t, rule.Multipliers, got.Multipliers)
	require.InDelta(t, 0.92, got.Friction, 1e-12)

	_, err = repo.GetRuleByRows(ctx, 16)
	require.ErrorIs(t, err, domainerrors.ErrNotFound)

	all, err := repo.GetRules(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}
