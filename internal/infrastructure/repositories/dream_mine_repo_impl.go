package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"winmore.backend/internal/domain/entities"
	domainerrors "winmore.backend/internal/domain/errors"
	domainRepos "winmore.backend/internal/domain/repositories"
	"winmore.backend/internal/infrastructure/models"
	"winmore.backend/pkg/utils"
)

// DreamMineRepository implements mine-game data operations
type DreamMineRepository struct {
	db *gorm.DB
}

// NewDreamMineRepository creates a new dream-mine repository
func NewDreamMineRepository(db *gorm.DB) *DreamMineRepository {
	return &DreamMineRepository{db: db}
}

// CreateGame creates a new mine run
func (r *DreamMineRepository) CreateGame(ctx context.Context, game *entities.DreamMineGame) error {
	if game.ID == uuid.Nil {
		game.ID = utils.GenerateUUIDv7()
	}
	game.CreatedAt = time.Now()

	m, err := r.toModel(game)
	if err != nil {
		return err
	}
	return GetDB(ctx, r.db).WithContext(ctx).Create(m).Error
}

// GetGame gets a mine run by ID
func (r *DreamMineRepository) GetGame(ctx context.Context, id uuid.UUID) (*entities.DreamMineGame, error) {
	var m models.DreamMineGame
	if err := GetDB(ctx, r.db).WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m)
}

// UpdateGame persists the full game state after a move
func (r *DreamMineRepository) UpdateGame(ctx context.Context, game *entities.DreamMineGame) error {
	nulls, err := json.Marshal(game.Nulls)
	if err != nil {
		return err
	}

	result := GetDB(ctx, r.db).WithContext(ctx).Model(&models.DreamMineGame{}).
		Where("id = ?", game.ID).
		Updates(map[string]interface{}{
			"current_row": game.CurrentRow,
			"status":      string(game.Status),
			"stake":       game.Stake,
			"last_choice": game.LastChoice.Ptr(),
			"nulls":       string(nulls),
			"finished_at": game.FinishedAt.Ptr(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

// FindGames lists mine runs matching the query
func (r *DreamMineRepository) FindGames(ctx context.Context, q domainRepos.GameQuery) ([]*entities.DreamMineGame, error) {
	db := GetDB(ctx, r.db).WithContext(ctx).Model(&models.DreamMineGame{})

	if q.UserID != nil {
		db = db.Where("user_id = ?", *q.UserID)
	}

	switch q.Filter {
	case "", domainRepos.GameFilterAll:
	case domainRepos.GameFilterFinished:
		db = db.Where("status IN ?", []string{
			string(entities.GameStatusWon),
			string(entities.GameStatusFlawlessWin),
			string(entities.GameStatusLost),
		})
	case domainRepos.GameFilterGained:
		db = db.Where("status IN ?", []string{
			string(entities.GameStatusWon),
			string(entities.GameStatusFlawlessWin),
		})
	case domainRepos.GameFilterOngoing:
		db = db.Where("status IN ?", []string{
			string(entities.GameStatusNotStarted),
			string(entities.GameStatusOngoing),
		})
	}

	if q.LuckySort {
		db = db.Order("stake DESC")
	} else {
		db = db.Order("created_at DESC")
	}
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}
	if q.Offset > 0 {
		db = db.Offset(q.Offset)
	}

	var ms []models.DreamMineGame
	if err := db.Find(&ms).Error; err != nil {
		return nil, err
	}

	games := make([]*entities.DreamMineGame, 0, len(ms))
	for i := range ms {
		game, err := r.toEntity(&ms[i])
		if err != nil {
			return nil, err
		}
		games = append(games, game)
	}
	return games, nil
}

// GetOngoingByUser returns the user's open run, or ErrNotFound. A user has
// at most one non-terminal run at a time.
func (r *DreamMineRepository) GetOngoingByUser(ctx context.Context, userID uuid.UUID) (*entities.DreamMineGame, error) {
	var m models.DreamMineGame
	err := GetDB(ctx, r.db).WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID, []string{
			string(entities.GameStatusNotStarted),
			string(entities.GameStatusOngoing),
		}).
		Order("created_at DESC").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m)
}

// GetRules lists all rule sets ordered by row count
func (r *DreamMineRepository) GetRules(ctx context.Context) ([]*entities.DreamMineRule, error) {
	var ms []models.DreamMineRule
	if err := GetDB(ctx, r.db).WithContext(ctx).Order("rows_count ASC").Find(&ms).Error; err != nil {
		return nil, err
	}
	rules := make([]*entities.DreamMineRule, 0, len(ms))
	for i := range ms {
		rule, err := dreamMineRuleToEntity(&ms[i])
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// GetRuleByRows gets the rule set for a row count
func (r *DreamMineRepository) GetRuleByRows(ctx context.Context, rows int) (*entities.DreamMineRule, error) {
	var m models.DreamMineRule
	err := GetDB(ctx, r.db).WithContext(ctx).Where("rows_count = ?", rows).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return dreamMineRuleToEntity(&m)
}

// CreateRule creates a rule set
func (r *DreamMineRepository) CreateRule(ctx context.Context, rule *entities.DreamMineRule) error {
	if rule.ID == uuid.Nil {
		rule.ID = utils.GenerateUUIDv7()
	}
	rule.CreatedAt = time.Now()

	multipliers, err := json.Marshal(rule.Multipliers)
	if err != nil {
		return err
	}
	probabilities, err := json.Marshal(rule.Probabilities)
	if err != nil {
		return err
	}
	difficulty, err := json.Marshal(rule.DifficultyMultipliers)
	if err != nil {
		return err
	}

	m := &models.DreamMineRule{
		ID:                    rule.ID,
		RowsCount:             rule.RowsCount,
		Multipliers:           string(multipliers),
		Probabilities:         string(probabilities),
		DifficultyMultipliers: string(difficulty),
		MinBetAmount:          rule.MinBetAmount,
		MaxBetAmount:          rule.MaxBetAmount,
		CreatedAt:             rule.CreatedAt,
	}
	if err := GetDB(ctx, r.db).WithContext(ctx).Create(m).Error; err != nil {
		if isDuplicateErr(err) {
			return domainerrors.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *DreamMineRepository) toModel(game *entities.DreamMineGame) (*models.DreamMineGame, error) {
	nulls, err := json.Marshal(game.Nulls)
	if err != nil {
		return nil, err
	}
	return &models.DreamMineGame{
		ID:         game.ID,
		UserID:     game.UserID,
		InitialBet: game.InitialBet,
		Token:      string(game.Token),
		ChainID:    game.ChainID,
		Mode:       string(game.Mode),
		RowsCount:  game.RowsCount,
		CurrentRow: game.CurrentRow,
		Status:     string(game.Status),
		Stake:      game.Stake,
		LastChoice: game.LastChoice.Ptr(),
		Nulls:      string(nulls),
		CreatedAt:  game.CreatedAt,
		FinishedAt: game.FinishedAt.Ptr(),
	}, nil
}

func (r *DreamMineRepository) toEntity(m *models.DreamMineGame) (*entities.DreamMineGame, error) {
	game := &entities.DreamMineGame{
		ID:         m.ID,
		UserID:     m.UserID,
		InitialBet: m.InitialBet,
		Token:      entities.Token(m.Token),
		ChainID:    m.ChainID,
		Mode:       entities.GameMode(m.Mode),
		RowsCount:  m.RowsCount,
		CurrentRow: m.CurrentRow,
		Status:     entities.GameStatus(m.Status),
		Stake:      m.Stake,
		LastChoice: null.IntFromPtr(m.LastChoice),
		Nulls:      []int{},
		CreatedAt:  m.CreatedAt,
		FinishedAt: null.TimeFromPtr(m.FinishedAt),
	}
	if m.Nulls != "" {
		if err := json.Unmarshal([]byte(m.Nulls), &game.Nulls); err != nil {
			return nil, err
		}
	}
	return game, nil
}

func dreamMineRuleToEntity(m *models.DreamMineRule) (*entities.DreamMineRule, error) {
	rule := &entities.DreamMineRule{
		ID:           m.ID,
		RowsCount:    m.RowsCount,
		MinBetAmount: m.MinBetAmount,
		MaxBetAmount: m.MaxBetAmount,
		CreatedAt:    m.CreatedAt,
	}
	if err := json.Unmarshal([]byte(m.Multipliers), &rule.Multipliers); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(m.Probabilities), &rule.Probabilities); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(m.DifficultyMultipliers), &rule.DifficultyMultipliers); err != nil {
		return nil, err
	}
	return rule, nil
}
