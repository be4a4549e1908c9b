package usecases

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"
	"winmore.backend/internal/domain/entities"
	domainerrors "winmore.backend/internal/domain/errors"
	"winmore.backend/internal/domain/repositories"
	"winmore.backend/pkg/logger"
	"winmore.backend/pkg/metrics"
)

const (
	plinkoMaxBalls             = 100
	defaultPlinkoSearchTimeout = 3 * time.Second
)

// bucketConfig is the resolved per-bucket parameters after difficulty
// scaling.
type bucketConfig struct {
	Multiplier float64
	Weight     float64
}

// PlinkoUsecase is the ball-drop game engine. The outcome of each ball is
// decided by the weighted RNG up front; the physics layer then searches for
// an initial state whose deterministic simulation lands in the chosen
// bucket, so the replayed animation and the payout always agree.
type PlinkoUsecase struct {
	repo   repositories.PlinkoRepository
	ledger *LedgerUsecase
	uow    repositories.UnitOfWork

	searchTimeout time.Duration

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewPlinkoUsecase creates a new plinko usecase. A nil rng gets a
// time-seeded source; tests pass a fixed seed. A zero searchTimeout gets
// the default.
func NewPlinkoUsecase(repo repositories.PlinkoRepository, ledger *LedgerUsecase, uow repositories.UnitOfWork, rng *rand.Rand, searchTimeout time.Duration) *PlinkoUsecase {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if searchTimeout <= 0 {
		searchTimeout = defaultPlinkoSearchTimeout
	}
	return &PlinkoUsecase{
		repo:          repo,
		ledger:        ledger,
		uow:           uow,
		searchTimeout: searchTimeout,
		rng:           rng,
	}
}

func (u *PlinkoUsecase) randFloat() float64 {
	u.rngMu.Lock()
	defer u.rngMu.Unlock()
	return u.rng.Float64()
}

func (u *PlinkoUsecase) randIndex(n int) int {
	u.rngMu.Lock()
	defer u.rngMu.Unlock()
	return u.rng.Intn(n)
}

// resolveBuckets resolves the per-bucket {multiplier, weight} table for a
// rule under a difficulty mode. Coefficient indexing matches the mine game:
// [0] is MEDIUM, [len-1] is HARD.
func resolveBuckets(rule *entities.PlinkoRule, mode entities.GameMode) ([]bucketConfig, error) {
	count := BucketCount(rule.RowsCount)
	if len(rule.Multipliers) != count || len(rule.Probabilities) != count {
		return nil, fmt.Errorf("rule for %d rows has %d multipliers and %d probabilities, want %d: %w",
			rule.RowsCount, len(rule.Multipliers), len(rule.Probabilities), count, domainerrors.ErrConflict)
	}

	coeff := 1.0
	switch mode {
	case entities.GameModeEasy:
	case entities.GameModeMedium:
		coeff = rule.DifficultyMultipliers[0]
	case entities.GameModeHard:
		coeff = rule.DifficultyMultipliers[len(rule.DifficultyMultipliers)-1]
	default:
		return nil, fmt.Errorf("unknown mode %q: %w", mode, domainerrors.ErrInvalidInput)
	}
	if coeff <= 0 {
		return nil, fmt.Errorf("non-positive difficulty coefficient for %d rows: %w", rule.RowsCount, domainerrors.ErrConflict)
	}

	buckets := make([]bucketConfig, count)
	for i := 0; i < count; i++ {
		buckets[i] = bucketConfig{
			Multiplier: rule.Multipliers[i] * coeff,
			Weight:     rule.Probabilities[i] / coeff,
		}
	}
	return buckets, nil
}

// pickBucket draws a bucket index from the weighted distribution
func (u *PlinkoUsecase) pickBucket(buckets []bucketConfig) (int, error) {
	var total float64
	for i := range buckets {
		total += buckets[i].Weight
	}
	if total <= 0 {
		return 0, fmt.Errorf("bucket weights sum to zero: %w", domainerrors.ErrConflict)
	}

	r := u.randFloat() * total
	for i := range buckets {
		r -= buckets[i].Weight
		if r < 0 {
			return i, nil
		}
	}
	return len(buckets) - 1, nil
}

// PopulateBucketMultipliers returns the effective per-bucket multipliers of
// a rule under a difficulty mode, for the rules endpoint.
func PopulateBucketMultipliers(rule *entities.PlinkoRule, mode entities.GameMode) ([]float64, error) {
	buckets, err := resolveBuckets(rule, mode)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(buckets))
	for i := range buckets {
		out[i] = buckets[i].Multiplier
	}
	return out, nil
}

// NewGame places the total bet (per-ball bet times ball count) and opens a
// session with no balls dropped yet
func (u *PlinkoUsecase) NewGame(ctx context.Context, userID uuid.UUID, bet decimal.Decimal, token entities.Token, chainID int64, mode entities.GameMode, rowsCount, ballsCount int) (*entities.PlinkoGame, error) {
	rule, err := u.repo.GetRuleByRows(ctx, rowsCount)
	if err != nil {
		return nil, domainerrors.BadRequest(fmt.Sprintf("no rule published for %d rows", rowsCount))
	}
	if bet.LessThan(rule.MinBetAmount) || bet.GreaterThan(rule.MaxBetAmount) {
		return nil, domainerrors.BadRequest(fmt.Sprintf("bet per ball must be within [%s, %s]", rule.MinBetAmount, rule.MaxBetAmount))
	}
	if ballsCount < 1 || ballsCount > plinkoMaxBalls {
		return nil, domainerrors.BadRequest(fmt.Sprintf("balls count must be within [1, %d]", plinkoMaxBalls))
	}
	if _, err := u.repo.GetLatestUnfinishedByUser(ctx, userID); err == nil {
		return nil, domainerrors.Conflict("an unfinished game already exists")
	}
	if _, err := resolveBuckets(rule, mode); err != nil {
		return nil, err
	}

	game := &entities.PlinkoGame{
		UserID:     userID,
		InitialBet: bet,
		Token:      token,
		ChainID:    chainID,
		Mode:       mode,
		RowsCount:  rowsCount,
		BallsCount: ballsCount,
		Status:     entities.PlinkoStatusNotDroppedYet,
		Prize:      decimal.Zero,
	}
	total := bet.Mul(decimal.NewFromInt(int64(ballsCount)))

	err = u.uow.Do(ctx, func(txCtx context.Context) error {
		trx, err := u.ledger.PlaceBet(txCtx, userID, total, token, chainID, entities.TransactionRemarks{
			Bet: &entities.BetRemarks{GameKind: "plinko"},
		})
		if err != nil {
			return err
		}
		if err := u.repo.CreateGame(txCtx, game); err != nil {
			return err
		}
		return u.ledger.AddRemarks(txCtx, trx.ID, map[string]interface{}{"gameId": game.ID.String()})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "plinko game opened",
		zap.String("gameId", game.ID.String()),
		zap.String("userId", userID.String()),
		zap.String("betPerBall", bet.String()),
		zap.Int("balls", ballsCount),
		zap.String("mode", string(mode)))
	return game, nil
}

// Drop resolves the next ball of the user's open game: the weighted RNG
// picks the bucket, the physics search produces a replayable initial state,
// and the last ball finalizes the game with the accumulated prize payout.
// A physics search timeout surfaces a retryable error and leaves the game
// untouched.
func (u *PlinkoUsecase) Drop(ctx context.Context, userID uuid.UUID) (*entities.PlinkoGame, *entities.PlinkoBall, error) {
	game, err := u.repo.GetLatestUnfinishedByUser(ctx, userID)
	if err != nil {
		return nil, nil, domainerrors.NotFound("no open game")
	}

	balls, err := u.repo.GetBallsByGame(ctx, game.ID)
	if err != nil {
		return nil, nil, err
	}
	if len(balls) >= game.BallsCount {
		return nil, nil, domainerrors.ErrGameNotOpen
	}

	rule, err := u.repo.GetRuleByRows(ctx, game.RowsCount)
	if err != nil {
		return nil, nil, err
	}
	buckets, err := resolveBuckets(rule, game.Mode)
	if err != nil {
		return nil, nil, err
	}

	target, err := u.pickBucket(buckets)
	if err != nil {
		return nil, nil, err
	}

	board := BuildPlinkoBoard(game.RowsCount)
	specs, err := FindDroppingBall(ctx, board, physicsFromRule(rule), target, u.randIndex, u.searchTimeout)
	if err != nil {
		logger.Warn(ctx, "plinko physics search exhausted",
			zap.String("gameId", game.ID.String()),
			zap.Int("targetBucket", target))
		return nil, nil, err
	}

	ball := &entities.PlinkoBall{
		GameID:           game.ID,
		UserID:           userID,
		BucketIndex:      target,
		ScoredMultiplier: buckets[target].Multiplier,
		DropSpecs:        specs,
	}

	game.Prize = game.Prize.Add(game.InitialBet.Mul(decimal.NewFromFloat(ball.ScoredMultiplier)))
	lastBall := len(balls)+1 == game.BallsCount
	if lastBall {
		game.Status = entities.PlinkoStatusFinished
		game.FinishedAt = null.TimeFrom(time.Now())
	} else {
		game.Status = entities.PlinkoStatusDropping
	}

	err = u.uow.Do(ctx, func(txCtx context.Context) error {
		if err := u.repo.CreateBall(txCtx, ball); err != nil {
			return err
		}
		if err := u.repo.UpdateGame(txCtx, game); err != nil {
			return err
		}
		if lastBall && game.Prize.IsPositive() {
			_, err := u.ledger.RewardTheWinner(txCtx, game.UserID, game.Prize, game.Token, game.ChainID, entities.TransactionRemarks{
				Reward: &entities.RewardRemarks{
					GameKind: "plinko",
					GameID:   game.ID,
					WinnerID: game.UserID,
				},
			})
			return err
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if lastBall {
		metrics.GamesResolved.WithLabelValues("plinko", string(entities.PlinkoStatusFinished)).Inc()
		logger.Info(ctx, "plinko game finished",
			zap.String("gameId", game.ID.String()),
			zap.String("prize", game.Prize.String()))
	}
	game.Balls = append(balls, ball)
	return game, ball, nil
}

// Board returns the static board geometry for a row count
func (u *PlinkoUsecase) Board(ctx context.Context, rowsCount int) (*PlinkoBoard, error) {
	if _, err := u.repo.GetRuleByRows(ctx, rowsCount); err != nil {
		return nil, domainerrors.BadRequest(fmt.Sprintf("no rule published for %d rows", rowsCount))
	}
	return BuildPlinkoBoard(rowsCount), nil
}

// GetGame returns a game with its balls, restricted to its owner
func (u *PlinkoUsecase) GetGame(ctx context.Context, userID, gameID uuid.UUID) (*entities.PlinkoGame, error) {
	game, err := u.repo.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game.UserID != userID {
		return nil, domainerrors.Forbidden("not your game")
	}
	return game, nil
}

// GetLatestOngoing returns the user's open session, if any
func (u *PlinkoUsecase) GetLatestOngoing(ctx context.Context, userID uuid.UUID) (*entities.PlinkoGame, error) {
	return u.repo.GetLatestUnfinishedByUser(ctx, userID)
}

// FindGames lists games matching the query
func (u *PlinkoUsecase) FindGames(ctx context.Context, q repositories.GameQuery) ([]*entities.PlinkoGame, error) {
	return u.repo.FindGames(ctx, q)
}

// GetRules lists the published rule sets
func (u *PlinkoUsecase) GetRules(ctx context.Context) ([]*entities.PlinkoRule, error) {
	return u.repo.GetRules(ctx)
}
