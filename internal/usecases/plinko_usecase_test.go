package usecases

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"winmore.backend/internal/domain/entities"
	domainerrors "winmore.backend/internal/domain/errors"
	"winmore.backend/internal/domain/repositories"
)

// seedPlinkoRule publishes an 8-row rule whose weight mass sits entirely on
// the middle bucket, so every drop targets a bucket the physics search can
// always reach.
func seedPlinkoRule(t *testing.T, env *testEnv) *entities.PlinkoRule {
	t.Helper()
	count := BucketCount(8)
	rule := &entities.PlinkoRule{
		RowsCount:             8,
		Multipliers:           make([]float64, count),
		Probabilities:         make([]float64, count),
		DifficultyMultipliers: []float64{1.5, 2.5},
		Gravity:               2.0,
		Friction:              0.99,
		HorizontalSpeedFactor: 1.0,
		VerticalSpeedFactor:   1.0,
		MinBetAmount:          decimal.NewFromInt(1),
		MaxBetAmount:          decimal.NewFromInt(1000),
	}
	for i := 0; i < count; i++ {
		rule.Multipliers[i] = 0.5
	}
	mid := count / 2
	rule.Multipliers[mid] = 2.0
	rule.Probabilities[mid] = 100
	require.NoError(t, env.plinkoRepo.CreateRule(context.Background(), rule))
	return rule
}

func newPlinkoUsecase(env *testEnv, seed int64) *PlinkoUsecase {
	return NewPlinkoUsecase(env.plinkoRepo, env.ledger, env.uow, rand.New(rand.NewSource(seed)), 10*time.Second)
}

func TestPlinkoNewGameValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := newPlinkoUsecase(env, 1)
	seedPlinkoRule(t, env)
	env.fund(t, decimal.NewFromInt(100), entities.TokenUSDT, 137)

	_, err := u.NewGame(ctx, env.userID, decimal.NewFromInt(5), entities.TokenUSDT, 137, entities.GameModeEasy, 99, 2)
	require.ErrorIs(t, err, domainerrors.ErrInvalidInput)

	_, err = u.NewGame(ctx, env.userID, decimal.NewFromInt(5000), entities.TokenUSDT, 137, entities.GameModeEasy, 8, 2)
	require.ErrorIs(t, err, domainerrors.ErrInvalidInput)

	_, err = u.NewGame(ctx, env.userID, decimal.NewFromInt(5), entities.TokenUSDT, 137, entities.GameModeEasy, 8, 0)
	require.ErrorIs(t, err, domainerrors.ErrInvalidInput)

	_, err = u.NewGame(ctx, env.userID, decimal.NewFromInt(5), entities.TokenUSDT, 137, entities.GameModeEasy, 8, plinkoMaxBalls+1)
	require.ErrorIs(t, err, domainerrors.ErrInvalidInput)

	_, err = u.NewGame(ctx, env.userID, decimal.NewFromInt(5), entities.TokenUSDT, 137, entities.GameModeEasy, 8, 2)
	require.NoError(t, err)

	// one open session per user
	_, err = u.NewGame(ctx, env.userID, decimal.NewFromInt(5), entities.TokenUSDT, 137, entities.GameModeEasy, 8, 2)
	require.ErrorIs(t, err, domainerrors.ErrConflict)
}

func TestPlinkoNewGameDebitsTotalBet(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := newPlinkoUsecase(env, 1)
	seedPlinkoRule(t, env)
	env.fund(t, decimal.NewFromInt(100), entities.TokenUSDT, 137)

	game, err := u.NewGame(ctx, env.userID, decimal.NewFromInt(10), entities.TokenUSDT, 137, entities.GameModeEasy, 8, 3)
	require.NoError(t, err)
	require.Equal(t, entities.PlinkoStatusNotDroppedYet, game.Status)
	require.True(t, game.Prize.IsZero())

	// the debit is bet-per-ball times the ball count
	require.True(t, env.balance(t, env.userWallet.ID, entities.TokenUSDT, 137).Equal(decimal.NewFromInt(70)))
}

func TestPlinkoDropFullGame(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := newPlinkoUsecase(env, 3)
	rule := seedPlinkoRule(t, env)
	env.fund(t, decimal.NewFromInt(100), entities.TokenUSDT, 137)

	_, err := u.NewGame(ctx, env.userID, decimal.NewFromInt(10), entities.TokenUSDT, 137, entities.GameModeEasy, 8, 2)
	require.NoError(t, err)

	board := BuildPlinkoBoard(8)
	mid := BucketCount(8) / 2

	game, ball, err := u.Drop(ctx, env.userID)
	require.NoError(t, err)
	require.Equal(t, entities.PlinkoStatusDropping, game.Status)
	require.Equal(t, mid, ball.BucketIndex)
	require.InDelta(t, 2.0, ball.ScoredMultiplier, 1e-9)
	// the persisted initial state replays into the scored bucket
	require.Equal(t, ball.BucketIndex, SimulateDropping(board, physicsFromRule(rule), ball.DropSpecs))

	game, ball, err = u.Drop(ctx, env.userID)
	require.NoError(t, err)
	require.Equal(t, entities.PlinkoStatusFinished, game.Status)
	require.True(t, game.FinishedAt.Valid)
	require.Len(t, game.Balls, 2)
	require.Equal(t, ball.BucketIndex, SimulateDropping(board, physicsFromRule(rule), ball.DropSpecs))

	// prize = 2 balls * 10 * 2.0, paid on top of the 80 left after the bet
	require.True(t, game.Prize.Equal(decimal.NewFromInt(40)), "prize %s", game.Prize)
	require.True(t, env.balance(t, env.userWallet.ID, entities.TokenUSDT, 137).Equal(decimal.NewFromInt(120)))

	// the finished game is closed for further drops
	_, _, err = u.Drop(ctx, env.userID)
	require.ErrorIs(t, err, domainerrors.ErrNotFound)

	// and persisted with its balls
	stored, err := u.GetGame(ctx, env.userID, game.ID)
	require.NoError(t, err)
	require.Equal(t, entities.PlinkoStatusFinished, stored.Status)
	require.Len(t, stored.Balls, 2)
	require.Equal(t, mid, stored.Balls[0].BucketIndex)
}

func TestPlinkoDropWithoutGame(t *testing.T) {
	env := newTestEnv(t)
	u := newPlinkoUsecase(env, 1)
	seedPlinkoRule(t, env)

	_, _, err := u.Drop(context.Background(), env.userID)
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestPlinkoResolveBucketsDifficulty(t *testing.T) {
	count := BucketCount(8)
	rule := &entities.PlinkoRule{
		RowsCount:             8,
		Multipliers:           make([]float64, count),
		Probabilities:         make([]float64, count),
		DifficultyMultipliers: []float64{1.5, 2.5},
	}
	for i := 0; i < count; i++ {
		rule.Multipliers[i] = 1.0
		rule.Probabilities[i] = 10
	}

	easy, err := resolveBuckets(rule, entities.GameModeEasy)
	require.NoError(t, err)
	require.Len(t, easy, count)
	require.InDelta(t, 1.0, easy[0].Multiplier, 1e-9)

	medium, err := resolveBuckets(rule, entities.GameModeMedium)
	require.NoError(t, err)
	require.InDelta(t, 1.5, medium[0].Multiplier, 1e-9)
	require.InDelta(t, 10/1.5, medium[0].Weight, 1e-9)

	hard, err := resolveBuckets(rule, entities.GameModeHard)
	require.NoError(t, err)
	require.InDelta(t, 2.5, hard[0].Multiplier, 1e-9)

	_, err = resolveBuckets(rule, entities.GameMode("EXTREME"))
	require.ErrorIs(t, err, domainerrors.ErrInvalidInput)

	// a rule whose arrays disagree with the board geometry is rejected
	short := &entities.PlinkoRule{
		RowsCount:             8,
		Multipliers:           []float64{1, 2},
		Probabilities:         []float64{50, 50},
		DifficultyMultipliers: []float64{1.5},
	}
	_, err = resolveBuckets(short, entities.GameModeEasy)
	require.ErrorIs(t, err, domainerrors.ErrConflict)
}

func TestPlinkoPickBucketWeights(t *testing.T) {
	env := newTestEnv(t)
	u := newPlinkoUsecase(env, 11)

	buckets := []bucketConfig{
		{Multiplier: 1, Weight: 0},
		{Multiplier: 2, Weight: 100},
		{Multiplier: 3, Weight: 0},
	}
	for i := 0; i < 100; i++ {
		idx, err := u.pickBucket(buckets)
		require.NoError(t, err)
		require.Equal(t, 1, idx)
	}

	_, err := u.pickBucket([]bucketConfig{{Weight: 0}, {Weight: 0}})
	require.ErrorIs(t, err, domainerrors.ErrConflict)
}

func TestPlinkoPickBucketDistribution(t *testing.T) {
	env := newTestEnv(t)
	u := newPlinkoUsecase(env, 42)

	buckets := []bucketConfig{
		{Weight: 25},
		{Weight: 50},
		{Weight: 25},
	}
	const trials = 10000
	counts := make([]int, len(buckets))
	for i := 0; i < trials; i++ {
		idx, err := u.pickBucket(buckets)
		require.NoError(t, err)
		counts[idx]++
	}
	require.InDelta(t, 25, float64(counts[0])/trials*100, 2)
	require.InDelta(t, 50, float64(counts[1])/trials*100, 2)
	require.InDelta(t, 25, float64(counts[2])/trials*100, 2)
}

func TestPlinkoBoardEndpoint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := newPlinkoUsecase(env, 1)
	seedPlinkoRule(t, env)

	board, err := u.Board(ctx, 8)
	require.NoError(t, err)
	require.Equal(t, 8, board.Rows)
	require.Len(t, board.Buckets, BucketCount(8))

	_, err = u.Board(ctx, 12)
	require.ErrorIs(t, err, domainerrors.ErrInvalidInput)
}

func TestPlinkoFindGames(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := newPlinkoUsecase(env, 3)
	seedPlinkoRule(t, env)
	env.fund(t, decimal.NewFromInt(100), entities.TokenUSDT, 137)

	_, err := u.NewGame(ctx, env.userID, decimal.NewFromInt(10), entities.TokenUSDT, 137, entities.GameModeEasy, 8, 1)
	require.NoError(t, err)
	_, _, err = u.Drop(ctx, env.userID)
	require.NoError(t, err)

	// a single 2.0x ball on a 10 bet beats the 10 staked: GAINED
	gained, err := u.FindGames(ctx, repositories.GameQuery{UserID: &env.userID, Filter: repositories.GameFilterGained})
	require.NoError(t, err)
	require.Len(t, gained, 1)

	ongoing, err := u.FindGames(ctx, repositories.GameQuery{UserID: &env.userID, Filter: repositories.GameFilterOngoing})
	require.NoError(t, err)
	require.Empty(t, ongoing)
}
