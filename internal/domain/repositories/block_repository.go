package repositories

import (
	"context"

	"github.com/google/uuid"
	"winmore.backend/internal/domain/entities"
)

// BlockRepository defines block and blockchain-log data operations
type BlockRepository interface {
	// GetOrCreateBlock dedupes on (chainId, number).
	GetOrCreateBlock(ctx context.Context, block *entities.Block) (*entities.Block, error)
	GetUnfinalizedBlocks(ctx context.Context, chainID int64) ([]*entities.Block, error)
	MarkBlockFinalized(ctx context.Context, id uuid.UUID) error

	// CreateLog persists a transfer log. The (chainId, trxHash, trxIndex)
	// unique index makes this the deposit de-duplication gate: replays fail
	// with ErrAlreadyExists.
	CreateLog(ctx context.Context, log *entities.BlockchainLog) error
	LogExists(ctx context.Context, chainID int64, trxHash string, trxIndex uint) (bool, error)
	GetLogsByBlock(ctx context.Context, blockID uuid.UUID) ([]*entities.BlockchainLog, error)
	// AttachBroadcast replaces a withdrawal log's placeholder hash with the
	// broadcast transaction hash and records the gas price it was signed with.
	AttachBroadcast(ctx context.Context, id uuid.UUID, trxHash, gasPrice string) error
	// FinalizeLog attaches the broadcast outcome to a withdrawal log.
	FinalizeLog(ctx context.Context, id uuid.UUID, update entities.BlockchainLog, successful bool) error
	// MaxNonce returns the highest recorded nonce for transfers sent from
	// the given address on a chain, and false when none exist.
	MaxNonce(ctx context.Context, chainID int64, from string) (uint64, bool, error)
}
