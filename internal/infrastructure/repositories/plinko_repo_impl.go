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

// PlinkoRepository implements ball-drop game data operations
type PlinkoRepository struct {
	db *gorm.DB
}

// NewPlinkoRepository creates a new plinko repository
func NewPlinkoRepository(db *gorm.DB) *PlinkoRepository {
	return &PlinkoRepository{db: db}
}

// CreateGame creates a new drop session
func (r *PlinkoRepository) CreateGame(ctx context.Context, game *entities.PlinkoGame) error {
	if game.ID == uuid.Nil {
		game.ID = utils.GenerateUUIDv7()
	}
	game.CreatedAt = time.Now()

	m := &models.PlinkoGame{
		ID:         game.ID,
		UserID:     game.UserID,
		InitialBet: game.InitialBet,
		Token:      string(game.Token),
		ChainID:    game.ChainID,
		Mode:       string(game.Mode),
		RowsCount:  game.RowsCount,
		BallsCount: game.BallsCount,
		Status:     string(game.Status),
		Prize:      game.Prize,
		CreatedAt:  game.CreatedAt,
		FinishedAt: game.FinishedAt.Ptr(),
	}
	return GetDB(ctx, r.db).WithContext(ctx).Create(m).Error
}

// GetGame gets a drop session by ID, balls included
func (r *PlinkoRepository) GetGame(ctx context.Context, id uuid.UUID) (*entities.PlinkoGame, error) {
	var m models.PlinkoGame
	if err := GetDB(ctx, r.db).WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}

	game := plinkoGameToEntity(&m)
	balls, err := r.GetBallsByGame(ctx, id)
	if err != nil {
		return nil, err
	}
	game.Balls = balls
	return game, nil
}

// UpdateGame persists the session state after a drop
func (r *PlinkoRepository) UpdateGame(ctx context.Context, game *entities.PlinkoGame) error {
	result := GetDB(ctx, r.db).WithContext(ctx).Model(&models.PlinkoGame{}).
		Where("id = ?", game.ID).
		Updates(map[string]interface{}{
			"status":      string(game.Status),
			"prize":       game.Prize,
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

// FindGames lists drop sessions matching the query
func (r *PlinkoRepository) FindGames(ctx context.Context, q domainRepos.GameQuery) ([]*entities.PlinkoGame, error) {
	db := GetDB(ctx, r.db).WithContext(ctx).Model(&models.PlinkoGame{})

	if q.UserID != nil {
		db = db.Where("user_id = ?", *q.UserID)
	}

	switch q.Filter {
	case "", domainRepos.GameFilterAll:
	case domainRepos.GameFilterFinished:
		db = db.Where("status = ?", string(entities.PlinkoStatusFinished))
	case domainRepos.GameFilterGained:
		db = db.Where("status = ? AND prize > initial_bet * balls_count", string(entities.PlinkoStatusFinished))
	case domainRepos.GameFilterOngoing:
		db = db.Where("status <> ?", string(entities.PlinkoStatusFinished))
	}

	if q.LuckySort {
		db = db.Order("prize DESC")
	} else {
		db = db.Order("created_at DESC")
	}
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}
	if q.Offset > 0 {
		db = db.Offset(q.Offset)
	}

	var ms []models.PlinkoGame
	if err := db.Find(&ms).Error; err != nil {
		return nil, err
	}

	games := make([]*entities.PlinkoGame, 0, len(ms))
	for i := range ms {
		games = append(games, plinkoGameToEntity(&ms[i]))
	}
	return games, nil
}

// GetLatestUnfinishedByUser returns the user's open session, or ErrNotFound
func (r *PlinkoRepository) GetLatestUnfinishedByUser(ctx context.Context, userID uuid.UUID) (*entities.PlinkoGame, error) {
	var m models.PlinkoGame
	err := GetDB(ctx, r.db).WithContext(ctx).
		Where("user_id = ? AND status <> ?", userID, string(entities.PlinkoStatusFinished)).
		Order("created_at DESC").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return plinkoGameToEntity(&m), nil
}

// CreateBall records one resolved drop
func (r *PlinkoRepository) CreateBall(ctx context.Context, ball *entities.PlinkoBall) error {
	if ball.ID == uuid.Nil {
		ball.ID = utils.GenerateUUIDv7()
	}
	ball.CreatedAt = time.Now()

	specs, err := json.Marshal(ball.DropSpecs)
	if err != nil {
		return err
	}

	m := &models.PlinkoBall{
		ID:               ball.ID,
		GameID:           ball.GameID,
		UserID:           ball.UserID,
		BucketIndex:      ball.BucketIndex,
		ScoredMultiplier: ball.ScoredMultiplier,
		DropSpecs:        string(specs),
		CreatedAt:        ball.CreatedAt,
	}
	return GetDB(ctx, r.db).WithContext(ctx).Create(m).Error
}

// GetBallsByGame lists a session's drops in resolution order
func (r *PlinkoRepository) GetBallsByGame(ctx context.Context, gameID uuid.UUID) ([]*entities.PlinkoBall, error) {
	var ms []models.PlinkoBall
	err := GetDB(ctx, r.db).WithContext(ctx).
		Where("game_id = ?", gameID).
		Order("created_at ASC").
		Find(&ms).Error
	if err != nil {
		return nil, err
	}

	balls := make([]*entities.PlinkoBall, 0, len(ms))
	for i := range ms {
		ball, err := plinkoBallToEntity(&ms[i])
		if err != nil {
			return nil, err
		}
		balls = append(balls, ball)
	}
	return balls, nil
}

// GetRules lists all rule sets ordered by row count
func (r *PlinkoRepository) GetRules(ctx context.Context) ([]*entities.PlinkoRule, error) {
	var ms []models.PlinkoRule
	if err := GetDB(ctx, r.db).WithContext(ctx).Order("rows_count ASC").Find(&ms).Error; err != nil {
		return nil, err
	}
	rules := make([]*entities.PlinkoRule, 0, len(ms))
	for i := range ms {
		rule, err := plinkoRuleToEntity(&ms[i])
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// GetRuleByRows gets the rule set for a peg row count
func (r *PlinkoRepository) GetRuleByRows(ctx context.Context, rows int) (*entities.PlinkoRule, error) {
	var m models.PlinkoRule
	err := GetDB(ctx, r.db).WithContext(ctx).Where("rows_count = ?", rows).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return plinkoRuleToEntity(&m)
}

// CreateRule creates a rule set
func (r *PlinkoRepository) CreateRule(ctx context.Context, rule *entities.PlinkoRule) error {
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

	m := &models.PlinkoRule{
		ID:                    rule.ID,
		RowsCount:             rule.RowsCount,
		Multipliers:           string(multipliers),
		Probabilities:         string(probabilities),
		DifficultyMultipliers: string(difficulty),
		Gravity:               rule.Gravity,
		Friction:              rule.Friction,
		HorizontalSpeedFactor: rule.HorizontalSpeedFactor,
		VerticalSpeedFactor:   rule.VerticalSpeedFactor,
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

func plinkoGameToEntity(m *models.PlinkoGame) *entities.PlinkoGame {
	return &entities.PlinkoGame{
		ID:         m.ID,
		UserID:     m.UserID,
		InitialBet: m.InitialBet,
		Token:      entities.Token(m.Token),
		ChainID:    m.ChainID,
		Mode:       entities.GameMode(m.Mode),
		RowsCount:  m.RowsCount,
		BallsCount: m.BallsCount,
		Status:     entities.PlinkoGameStatus(m.Status),
		Prize:      m.Prize,
		CreatedAt:  m.CreatedAt,
		FinishedAt: null.TimeFromPtr(m.FinishedAt),
	}
}

func plinkoBallToEntity(m *models.PlinkoBall) (*entities.PlinkoBall, error) {
	ball := &entities.PlinkoBall{
		ID:               m.ID,
		GameID:           m.GameID,
		UserID:           m.UserID,
		BucketIndex:      m.BucketIndex,
		ScoredMultiplier: m.ScoredMultiplier,
		CreatedAt:        m.CreatedAt,
	}
	if err := json.Unmarshal([]byte(m.DropSpecs), &ball.DropSpecs); err != nil {
		return nil, err
	}
	return ball, nil
}

func plinkoRuleToEntity(m *models.PlinkoRule) (*entities.PlinkoRule, error) {
	rule := &entities.PlinkoRule{
		ID:                    m.ID,
		RowsCount:             m.RowsCount,
		Gravity:               m.Gravity,
		Friction:              m.Friction,
		HorizontalSpeedFactor: m.HorizontalSpeedFactor,
		VerticalSpeedFactor:   m.VerticalSpeedFactor,
		MinBetAmount:          m.MinBetAmount,
		MaxBetAmount:          m.MaxBetAmount,
		CreatedAt:             m.CreatedAt,
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
