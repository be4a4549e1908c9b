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
	domainRepos "winmore.backend/internal/domain/repositories"
)

func TestDreamMineRepository_GameRoundTrip(t *testing.T) {
	db := newTestDB(t)
	createDreamMineTables(t, db)
	repo := NewDreamMineRepository(db)
	ctx := context.Background()

	game := &entities.DreamMineGame{
		UserID:     uuid.New(),
		InitialBet: decimal.RequireFromString("2.5"),
		Token:      entities.TokenUSDT,
		ChainID:    137,
		Mode:       entities.GameModeMedium,
		RowsCount:  9,
		Status:     entities.GameStatusNotStarted,
		Stake:      decimal.RequireFromString("2.5"),
		Nulls:      []int{},
	}
	require.NoError(t, repo.CreateGame(ctx, game))

	got, err := repo.GetGame(ctx, game.ID)
	require.NoError(t, err)
	require.Equal(t, entities.GameModeMedium, got.Mode)
	require.Empty(t, got.Nulls)
	require.False(t, got.LastChoice.Valid)

	got.CurrentRow = 2
	got.Status = entities.GameStatusOngoing
	got.Stake = decimal.RequireFromString("4.1")
	got.LastChoice = null.IntFrom(1)
	got.Nulls = []int{3, 0}
	require.NoError(t, repo.UpdateGame(ctx, got))

	got, err = repo.GetGame(ctx, game.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.CurrentRow)
	require.Equal(t, []int{3, 0}, got.Nulls)
	require.True(t, got.Stake.Equal(decimal.RequireFromString("4.1")))
	require.Equal(t, 1, got.LastChoice.Int)

	now := time.Now()
	got.Status = entities.GameStatusLost
	got.Stake = decimal.Zero
	got.FinishedAt = null.TimeFrom(now)
	require.NoError(t, repo.UpdateGame(ctx, got))

	got, err = repo.GetGame(ctx, game.ID)
	require.NoError(t, err)
	require.True(t, got.Status.IsTerminal())
	require.True(t, got.FinishedAt.Valid)

	_, err = repo.GetGame(ctx, uuid.New())
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestDreamMineRepository_OngoingAndFilters(t *testing.T) {
	db := newTestDB(t)
	createDreamMineTables(t, db)
	repo := NewDreamMineRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	mk := func(status entities.GameStatus, stake string) *entities.DreamMineGame {
		g := &entities.DreamMineGame{
			UserID:     userID,
			InitialBet: decimal.New(1, 0),
			Token:      entities.TokenUSDT,
			ChainID:    1,
			Mode:       entities.GameModeEasy,
			RowsCount:  9,
			Status:     status,
			Stake:      decimal.RequireFromString(stake),
			Nulls:      []int{},
		}
		require.NoError(t, repo.CreateGame(ctx, g))
		return g
	}

	mk(entities.GameStatusLost, "0")
	won := mk(entities.GameStatusWon, "5")
	ongoing := mk(entities.GameStatusOngoing, "2")

	open, err := repo.GetOngoingByUser(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, ongoing.ID, open.ID)

	_, err = repo.GetOngoingByUser(ctx, uuid.New())
	require.ErrorIs(t, err, domainerrors.ErrNotFound)

	finished, err := repo.FindGames(ctx, domainRepos.GameQuery{UserID: &userID, Filter: domainRepos.GameFilterFinished})
	require.NoError(t, err)
	require.Len(t, finished, 2)

	gained, err := repo.FindGames(ctx, domainRepos.GameQuery{UserID: &userID, Filter: domainRepos.GameFilterGained})
	require.NoError(t, err)
	require.Len(t, gained, 1)
	require.Equal(t, won.ID, gained[0].ID)

	lucky, err := repo.FindGames(ctx, domainRepos.GameQuery{Filter: domainRepos.GameFilterAll, LuckySort: true, Limit: 1})
	require.NoError(t, err)
	require.Len(t, lucky, 1)
	require.Equal(t, won.ID, lucky[0].ID)
}

func TestDreamMineRepository_Rules(t *testing.T) {
	db := newTestDB(t)
	createDreamMineTables(t, db)
	repo := NewDreamMineRepository(db)
	ctx := context.Background()

	rule := &entities.DreamMineRule{
		RowsCount:             9,
		Multipliers:           []float64{1.2, 1.5, 2, 3, 4.5, 7, 11, 18, 30},
		Probabilities:         []float64{0.8, 0.75, 0.7, 0.65, 0.6, 0.55, 0.5, 0.45, 0.4},
		DifficultyMultipliers: []float64{0.85, 0.65},
		MinBetAmount:          decimal.New(1, 0),
		MaxBetAmount:          decimal.New(1000, 0),
	}
	require.NoError(t, repo.CreateRule(ctx, rule))
	require.ErrorIs(t, repo.CreateRule(ctx, &entities.DreamMineRule{
		RowsCount:             9,
		Multipliers:           rule.Multipliers,
		Probabilities:         rule.Probabilities,
		DifficultyMultipliers: rule.DifficultyMultipliers,
		MaxBetAmount:          decimal.New(1, 0),
	}), domainerrors.ErrAlreadyExists)

	got, err := repo.GetRuleByRows(ctx, 9)
	require.NoError(t, err)
	require.Equal(t, rule.Multipliers, got.Multipliers)
	require.Equal(t, rule.DifficultyMultipliers, got.DifficultyMultipliers)

	_, err = repo.GetRuleByRows(ctx, 12)
	require.ErrorIs(t, err, domainerrors.ErrNotFound)

	all, err := repo.GetRules(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}
