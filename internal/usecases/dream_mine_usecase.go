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

// dmColumnsCount is the full column count per row; EASY uses all of them,
// MEDIUM one fewer, HARD two fewer (smaller choice space = harder).
const dmColumnsCount = 5

// rowConfig is the resolved per-row parameters after difficulty scaling.
type rowConfig struct {
	ColumnsCount int
	Multiplier   float64
	Probability  float64 // percent, [0,100]
}

// DreamMineUsecase is the row-by-row mine game engine
type DreamMineUsecase struct {
	repo   repositories.DreamMineRepository
	ledger *LedgerUsecase
	uow    repositories.UnitOfWork

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewDreamMineUsecase creates a new dream-mine usecase. A nil rng gets a
// time-seeded source; tests pass a fixed seed.
func NewDreamMineUsecase(repo repositories.DreamMineRepository, ledger *LedgerUsecase, uow repositories.UnitOfWork, rng *rand.Rand) *DreamMineUsecase {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &DreamMineUsecase{repo: repo, ledger: ledger, uow: uow, rng: rng}
}

func (u *DreamMineUsecase) roll() float64 {
	u.rngMu.Lock()
	defer u.rngMu.Unlock()
	return u.rng.Float64() * 100
}

func (u *DreamMineUsecase) randomInt(n int) int {
	u.rngMu.Lock()
	defer u.rngMu.Unlock()
	return u.rng.Intn(n)
}

// resolveRow resolves {columns, multiplier, probability} for a row under
// the game's difficulty. The coefficient indexing is load-bearing for the
// house edge: [0] is MEDIUM and [len-1] is HARD, so a single-entry array
// makes MEDIUM fall back to the HARD value.
func resolveRow(rule *entities.DreamMineRule, mode entities.GameMode, row int) (rowConfig, error) {
	if row < 0 || row >= len(rule.Multipliers) || row >= len(rule.Probabilities) {
		return rowConfig{}, fmt.Errorf("row %d outside rule for %d rows: %w", row, rule.RowsCount, domainerrors.ErrInvalidInput)
	}

	cfg := rowConfig{
		ColumnsCount: dmColumnsCount,
		Multiplier:   rule.Multipliers[row],
		Probability:  rule.Probabilities[row],
	}

	var coeff float64
	switch mode {
	case entities.GameModeEasy:
		return cfg, nil
	case entities.GameModeMedium:
		cfg.ColumnsCount = dmColumnsCount - 1
		coeff = rule.DifficultyMultipliers[0]
	case entities.GameModeHard:
		cfg.ColumnsCount = dmColumnsCount - 2
		coeff = rule.DifficultyMultipliers[len(rule.DifficultyMultipliers)-1]
	default:
		return rowConfig{}, fmt.Errorf("unknown mode %q: %w", mode, domainerrors.ErrInvalidInput)
	}
	if coeff <= 0 {
		return rowConfig{}, fmt.Errorf("non-positive difficulty coefficient for %d rows: %w", rule.RowsCount, domainerrors.ErrConflict)
	}

	// Harder modes trade win chance for payout: multiplier scales up by
	// the coefficient, probability scales down by it.
	cfg.Multiplier *= coeff
	cfg.Probability /= coeff
	if cfg.Probability > 100 {
		cfg.Probability = 100
	}
	return cfg, nil
}

// PopulateMultipliers returns the effective per-row multipliers of a rule
// under a difficulty mode, for the rules endpoint.
func PopulateMultipliers(rule *entities.DreamMineRule, mode entities.GameMode) ([]float64, error) {
	out := make([]float64, rule.RowsCount)
	for row := 0; row < rule.RowsCount; row++ {
		cfg, err := resolveRow(rule, mode, row)
		if err != nil {
			return nil, err
		}
		out[row] = cfg.Multiplier
	}
	return out, nil
}

// NewGame places the bet and opens a run at row zero
func (u *DreamMineUsecase) NewGame(ctx context.Context, userID uuid.UUID, bet decimal.Decimal, token entities.Token, chainID int64, mode entities.GameMode, rowsCount int) (*entities.DreamMineGame, error) {
	rule, err := u.repo.GetRuleByRows(ctx, rowsCount)
	if err != nil {
		return nil, domainerrors.BadRequest(fmt.Sprintf("no rule published for %d rows", rowsCount))
	}
	if bet.LessThan(rule.MinBetAmount) || bet.GreaterThan(rule.MaxBetAmount) {
		return nil, domainerrors.BadRequest(fmt.Sprintf("bet must be within [%s, %s]", rule.MinBetAmount, rule.MaxBetAmount))
	}
	if _, err := u.repo.GetOngoingByUser(ctx, userID); err == nil {
		return nil, domainerrors.Conflict("an unfinished game already exists")
	}

	game := &entities.DreamMineGame{
		UserID:     userID,
		InitialBet: bet,
		Token:      token,
		ChainID:    chainID,
		Mode:       mode,
		RowsCount:  rowsCount,
		CurrentRow: 0,
		Status:     entities.GameStatusNotStarted,
		Stake:      bet,
		Nulls:      []int{},
	}

	err = u.uow.Do(ctx, func(txCtx context.Context) error {
		trx, err := u.ledger.PlaceBet(txCtx, userID, bet, token, chainID, entities.TransactionRemarks{
			Bet: &entities.BetRemarks{GameKind: "dream_mine"},
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

	logger.Info(ctx, "dream mine game opened",
		zap.String("gameId", game.ID.String()),
		zap.String("userId", userID.String()),
		zap.String("bet", bet.String()),
		zap.String("mode", string(mode)))
	return game, nil
}

// Mine resolves one row for the user's open game. A cleared row sets the
// stake to the initial bet times the row's multiplier (the rule arrays are
// cumulative, not per-row factors) and advances; clearing the last row
// finalizes FLAWLESS_WIN with an immediate payout; an unlucky roll
// finalizes LOST with the remaining null columns backfilled for client
// replay.
func (u *DreamMineUsecase) Mine(ctx context.Context, userID uuid.UUID, choice int) (*entities.DreamMineGame, error) {
	game, err := u.repo.GetOngoingByUser(ctx, userID)
	if err != nil {
		return nil, domainerrors.NotFound("no open game")
	}
	if game.Status.IsTerminal() {
		return nil, domainerrors.ErrGameNotOpen
	}

	rule, err := u.repo.GetRuleByRows(ctx, game.RowsCount)
	if err != nil {
		return nil, err
	}
	cfg, err := resolveRow(rule, game.Mode, game.CurrentRow)
	if err != nil {
		return nil, err
	}
	if choice < 1 || choice > cfg.ColumnsCount {
		return nil, domainerrors.BadRequest(fmt.Sprintf("choice must be within [1, %d]", cfg.ColumnsCount))
	}

	game.LastChoice = null.IntFrom(choice)

	if u.roll() <= cfg.Probability {
		game.Stake = game.InitialBet.Mul(decimal.NewFromFloat(cfg.Multiplier))
		game.Nulls = append(game.Nulls, u.nullColumnAvoiding(cfg.ColumnsCount, choice))
		game.CurrentRow++
		if game.CurrentRow == game.RowsCount {
			if err := u.finalizeWin(ctx, game, entities.GameStatusFlawlessWin); err != nil {
				return nil, err
			}
			return game, nil
		}
		game.Status = entities.GameStatusOngoing
		if err := u.repo.UpdateGame(ctx, game); err != nil {
			return nil, err
		}
		return game, nil
	}

	// Lost: the losing row reveals the player's own pick; the rows never
	// reached are backfilled so the client can replay a full board.
	game.Nulls = append(game.Nulls, choice)
	for row := game.CurrentRow + 1; row < game.RowsCount; row++ {
		rowCfg, err := resolveRow(rule, game.Mode, row)
		if err != nil {
			return nil, err
		}
		game.Nulls = append(game.Nulls, u.randomInt(rowCfg.ColumnsCount)+1)
	}
	game.Status = entities.GameStatusLost
	game.Stake = decimal.Zero
	game.FinishedAt = null.TimeFrom(time.Now())
	if err := u.repo.UpdateGame(ctx, game); err != nil {
		return nil, err
	}

	metrics.GamesResolved.WithLabelValues("dream_mine", string(entities.GameStatusLost)).Inc()
	return game, nil
}

// BackOff cashes out mid-game; legal only after at least one cleared row
func (u *DreamMineUsecase) BackOff(ctx context.Context, userID uuid.UUID) (*entities.DreamMineGame, error) {
	game, err := u.repo.GetOngoingByUser(ctx, userID)
	if err != nil {
		return nil, domainerrors.NotFound("no open game")
	}
	if game.Status.IsTerminal() {
		return nil, domainerrors.ErrGameNotOpen
	}
	if game.CurrentRow == 0 {
		return nil, domainerrors.BadRequest("cannot back off before clearing a row")
	}
	if err := u.finalizeWin(ctx, game, entities.GameStatusWon); err != nil {
		return nil, err
	}
	return game, nil
}

// finalizeWin pays out the current stake and closes the game atomically
func (u *DreamMineUsecase) finalizeWin(ctx context.Context, game *entities.DreamMineGame, status entities.GameStatus) error {
	game.Status = status
	game.FinishedAt = null.TimeFrom(time.Now())

	err := u.uow.Do(ctx, func(txCtx context.Context) error {
		if err := u.repo.UpdateGame(txCtx, game); err != nil {
			return err
		}
		_, err := u.ledger.RewardTheWinner(txCtx, game.UserID, game.Stake, game.Token, game.ChainID, entities.TransactionRemarks{
			Reward: &entities.RewardRemarks{
				GameKind: "dream_mine",
				GameID:   game.ID,
				WinnerID: game.UserID,
			},
		})
		return err
	})
	if err != nil {
		return err
	}

	metrics.GamesResolved.WithLabelValues("dream_mine", string(status)).Inc()
	logger.Info(ctx, "dream mine game won",
		zap.String("gameId", game.ID.String()),
		zap.String("status", string(status)),
		zap.String("prize", game.Stake.String()))
	return nil
}

// nullColumnAvoiding picks a random column in [1, columns] distinct from
// the player's choice.
func (u *DreamMineUsecase) nullColumnAvoiding(columns, choice int) int {
	col := u.randomInt(columns-1) + 1
	if col >= choice {
		col++
	}
	return col
}

// GetGame returns a game by id, restricted to its owner
func (u *DreamMineUsecase) GetGame(ctx context.Context, userID, gameID uuid.UUID) (*entities.DreamMineGame, error) {
	game, err := u.repo.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game.UserID != userID {
		return nil, domainerrors.Forbidden("not your game")
	}
	return game, nil
}

// FindGames lists games matching the query
func (u *DreamMineUsecase) FindGames(ctx context.Context, q repositories.GameQuery) ([]*entities.DreamMineGame, error) {
	return u.repo.FindGames(ctx, q)
}

// GetRules lists the published rule sets
func (u *DreamMineUsecase) GetRules(ctx context.Context) ([]*entities.DreamMineRule, error) {
	return u.repo.GetRules(ctx)
}
