package repositories

import (
	"context"

	"github.com/google/uuid"
	"winmore.backend/internal/domain/entities"
)

// ChainRepository defines chain data operations
type ChainRepository interface {
	GetByID(ctx context.Context, id int64) (*entities.Chain, error)
	GetAll(ctx context.Context, withContracts bool) ([]*entities.Chain, error)
	Exists(ctx context.Context, id int64) (bool, error)
	UpdateLastProcessedBlock(ctx context.Context, id int64, block uint64) error
	Create(ctx context.Context, chain *entities.Chain) error
}

// ContractRepository defines token contract data operations
type ContractRepository interface {
	GetByChainAndToken(ctx context.Context, chainID int64, token entities.Token) (*entities.Contract, error)
	UpdateDecimals(ctx context.Context, id uuid.UUID, decimals int) error
	Create(ctx context.Context, contract *entities.Contract) error
}
