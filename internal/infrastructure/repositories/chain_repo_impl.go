package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"winmore.backend/internal/domain/entities"
	domainerrors "winmore.backend/internal/domain/errors"
	"winmore.backend/internal/infrastructure/models"
	"winmore.backend/pkg/utils"
)

// ChainRepository implements chain data operations
type ChainRepository struct {
	db *gorm.DB
}

// NewChainRepository creates a new chain repository
func NewChainRepository(db *gorm.DB) *ChainRepository {
	return &ChainRepository{db: db}
}

// GetByID gets a chain by its network id
func (r *ChainRepository) GetByID(ctx context.Context, id int64) (*entities.Chain, error) {
	var m models.Chain
	err := GetDB(ctx, r.db).WithContext(ctx).Preload("Contracts").Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

// GetAll lists all configured chains
func (r *ChainRepository) GetAll(ctx context.Context, withContracts bool) ([]*entities.Chain, error) {
	db := GetDB(ctx, r.db).WithContext(ctx)
	if withContracts {
		db = db.Preload("Contracts")
	}

	var ms []models.Chain
	if err := db.Order("id ASC").Find(&ms).Error; err != nil {
		return nil, err
	}

	chains := make([]*entities.Chain, 0, len(ms))
	for i := range ms {
		chains = append(chains, r.toEntity(&ms[i]))
	}
	return chains, nil
}

// Exists reports whether a chain is supported
func (r *ChainRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).WithContext(ctx).Model(&models.Chain{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// UpdateLastProcessedBlock persists the scanner cursor
func (r *ChainRepository) UpdateLastProcessedBlock(ctx context.Context, id int64, block uint64) error {
	result := GetDB(ctx, r.db).WithContext(ctx).Model(&models.Chain{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_processed_block": block,
			"updated_at":           time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

// Create creates a chain together with its contracts
func (r *ChainRepository) Create(ctx context.Context, chain *entities.Chain) error {
	now := time.Now()
	m := &models.Chain{
		ID:                 chain.ID,
		Name:               chain.Name,
		ProviderURL:        chain.ProviderURL,
		BlockProcessRange:  chain.BlockProcessRange,
		MaxProcessRange:    chain.MaxProcessRange,
		AcceptedBlockState: string(chain.AcceptedBlockState),
		LastProcessedBlock: chain.LastProcessedBlock.Ptr(),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	for _, contract := range chain.Contracts {
		if contract.ID == uuid.Nil {
			contract.ID = utils.GenerateUUIDv7()
		}
		m.Contracts = append(m.Contracts, models.Contract{
			ID:        contract.ID,
			ChainID:   chain.ID,
			Token:     string(contract.Token),
			Address:   contract.Address,
			Decimals:  intPtrFromNull(contract.Decimals),
			CreatedAt: now,
		})
	}
	return GetDB(ctx, r.db).WithContext(ctx).Create(m).Error
}

func (r *ChainRepository) toEntity(m *models.Chain) *entities.Chain {
	chain := &entities.Chain{
		ID:                 m.ID,
		Name:               m.Name,
		ProviderURL:        m.ProviderURL,
		BlockProcessRange:  m.BlockProcessRange,
		MaxProcessRange:    m.MaxProcessRange,
		AcceptedBlockState: entities.BlockStatus(m.AcceptedBlockState),
		LastProcessedBlock: null.Uint64FromPtr(m.LastProcessedBlock),
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
	for i := range m.Contracts {
		c := &m.Contracts[i]
		chain.Contracts = append(chain.Contracts, &entities.Contract{
			ID:        c.ID,
			ChainID:   c.ChainID,
			Token:     entities.Token(c.Token),
			Address:   c.Address,
			Decimals:  null.IntFromPtr(c.Decimals),
			CreatedAt: c.CreatedAt,
		})
	}
	return chain
}

// ContractRepository implements token contract data operations
type ContractRepository struct {
	db *gorm.DB
}

// NewContractRepository creates a new contract repository
func NewContractRepository(db *gorm.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

// GetByChainAndToken gets the contract for a token on a chain
func (r *ContractRepository) GetByChainAndToken(ctx context.Context, chainID int64, token entities.Token) (*entities.Contract, error) {
	var m models.Contract
	err := GetDB(ctx, r.db).WithContext(ctx).
		Where("chain_id = ? AND token = ?", chainID, string(token)).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return &entities.Contract{
		ID:        m.ID,
		ChainID:   m.ChainID,
		Token:     entities.Token(m.Token),
		Address:   m.Address,
		Decimals:  null.IntFromPtr(m.Decimals),
		CreatedAt: m.CreatedAt,
	}, nil
}

// UpdateDecimals caches the on-chain decimals value
func (r *ContractRepository) UpdateDecimals(ctx context.Context, id uuid.UUID, decimals int) error {
	return GetDB(ctx, r.db).WithContext(ctx).Model(&models.Contract{}).
		Where("id = ?", id).
		Update("decimals", decimals).Error
}

// Create creates a contract
func (r *ContractRepository) Create(ctx context.Context, contract *entities.Contract) error {
	if contract.ID == uuid.Nil {
		contract.ID = utils.GenerateUUIDv7()
	}
	contract.CreatedAt = time.Now()
	m := &models.Contract{
		ID:        contract.ID,
		ChainID:   contract.ChainID,
		Token:     string(contract.Token),
		Address:   contract.Address,
		Decimals:  intPtrFromNull(contract.Decimals),
		CreatedAt: contract.CreatedAt,
	}
	return GetDB(ctx, r.db).WithContext(ctx).Create(m).Error
}

func intPtrFromNull(v null.Int) *int {
	if !v.Valid {
		return nil
	}
	i := v.Int
	return &i
}
