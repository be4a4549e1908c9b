package repositories

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"winmore.backend/internal/domain/entities"
	domainerrors "winmore.backend/internal/domain/errors"
	"winmore.backend/internal/infrastructure/models"
	"winmore.backend/pkg/utils"
)

// BlockRepository implements block and blockchain-log data operations
type BlockRepository struct {
	db *gorm.DB
}

// NewBlockRepository creates a new block repository
func NewBlockRepository(db *gorm.DB) *BlockRepository {
	return &BlockRepository{db: db}
}

// GetOrCreateBlock dedupes on (chainId, number)
func (r *BlockRepository) GetOrCreateBlock(ctx context.Context, block *entities.Block) (*entities.Block, error) {
	db := GetDB(ctx, r.db).WithContext(ctx)

	var m models.Block
	err := db.Where("chain_id = ? AND number = ?", block.ChainID, block.Number).First(&m).Error
	if err == nil {
		return blockToEntity(&m), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	m = models.Block{
		ID:        utils.GenerateUUIDv7(),
		ChainID:   block.ChainID,
		Number:    block.Number,
		Hash:      block.Hash,
		Status:    string(block.Status),
		CreatedAt: time.Now(),
	}
	if err := db.Create(&m).Error; err != nil {
		if isDuplicateErr(err) {
			// Lost the insert race; the winner's row is authoritative.
			if err := db.Where("chain_id = ? AND number = ?", block.ChainID, block.Number).First(&m).Error; err != nil {
				return nil, err
			}
			return blockToEntity(&m), nil
		}
		return nil, err
	}
	return blockToEntity(&m), nil
}

// GetUnfinalizedBlocks lists blocks recorded at a non-finalized tag
func (r *BlockRepository) GetUnfinalizedBlocks(ctx context.Context, chainID int64) ([]*entities.Block, error) {
	var ms []models.Block
	err := GetDB(ctx, r.db).WithContext(ctx).
		Where("chain_id = ? AND status = ?", chainID, string(entities.BlockStatusLatest)).
		Order("number ASC").
		Find(&ms).Error
	if err != nil {
		return nil, err
	}
	blocks := make([]*entities.Block, 0, len(ms))
	for i := range ms {
		blocks = append(blocks, blockToEntity(&ms[i]))
	}
	return blocks, nil
}

// MarkBlockFinalized flips a block to the finalized status
func (r *BlockRepository) MarkBlockFinalized(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).WithContext(ctx).Model(&models.Block{}).
		Where("id = ?", id).
		Update("status", string(entities.BlockStatusFinalized)).Error
}

// CreateLog persists a transfer log. The unique (chain_id, trx_hash,
// trx_index) index is the deposit de-duplication gate.
func (r *BlockRepository) CreateLog(ctx context.Context, log *entities.BlockchainLog) error {
	if log.ID == uuid.Nil {
		log.ID = utils.GenerateUUIDv7()
	}
	log.CreatedAt = time.Now()
	log.UpdatedAt = log.CreatedAt

	m := &models.BlockchainLog{
		ID:            log.ID,
		From:          log.From,
		To:            log.To,
		Token:         string(log.Token),
		Amount:        log.Amount,
		ChainID:       log.ChainID,
		TrxHash:       log.TrxHash,
		TrxIndex:      log.TrxIndex,
		BlockID:       log.BlockID,
		Nonce:         log.Nonce.Ptr(),
		GasPrice:      log.GasPrice.Ptr(),
		GasUsed:       log.GasUsed.Ptr(),
		Successful:    log.Successful,
		TransactionID: log.TransactionID,
		CreatedAt:     log.CreatedAt,
		UpdatedAt:     log.UpdatedAt,
	}

	if err := GetDB(ctx, r.db).WithContext(ctx).Create(m).Error; err != nil {
		if isDuplicateErr(err) {
			return domainerrors.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// LogExists reports whether a transfer log was already recorded
func (r *BlockRepository) LogExists(ctx context.Context, chainID int64, trxHash string, trxIndex uint) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).WithContext(ctx).Model(&models.BlockchainLog{}).
		Where("chain_id = ? AND trx_hash = ? AND trx_index = ?", chainID, trxHash, trxIndex).
		Count(&count).Error
	return count > 0, err
}

// GetLogsByBlock lists logs recorded against a block
func (r *BlockRepository) GetLogsByBlock(ctx context.Context, blockID uuid.UUID) ([]*entities.BlockchainLog, error) {
	var ms []models.BlockchainLog
	err := GetDB(ctx, r.db).WithContext(ctx).
		Where("block_id = ?", blockID).
		Find(&ms).Error
	if err != nil {
		return nil, err
	}
	logs := make([]*entities.BlockchainLog, 0, len(ms))
	for i := range ms {
		logs = append(logs, logToEntity(&ms[i]))
	}
	return logs, nil
}

// AttachBroadcast replaces the placeholder hash of a pre-broadcast
// withdrawal log with the real transaction hash
func (r *BlockRepository) AttachBroadcast(ctx context.Context, id uuid.UUID, trxHash, gasPrice string) error {
	result := GetDB(ctx, r.db).WithContext(ctx).Model(&models.BlockchainLog{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"trx_hash":   trxHash,
			"gas_price":  gasPrice,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

// FinalizeLog attaches the broadcast outcome to a withdrawal log
func (r *BlockRepository) FinalizeLog(ctx context.Context, id uuid.UUID, update entities.BlockchainLog, successful bool) error {
	fields := map[string]interface{}{
		"successful": successful,
		"updated_at": time.Now(),
	}
	if update.BlockID != nil {
		fields["block_id"] = *update.BlockID
	}
	if update.TrxHash != "" {
		fields["trx_hash"] = update.TrxHash
	}
	if update.TrxIndex != 0 {
		fields["trx_index"] = update.TrxIndex
	}
	if update.GasUsed.Valid {
		fields["gas_used"] = update.GasUsed.Uint64
	}

	result := GetDB(ctx, r.db).WithContext(ctx).Model(&models.BlockchainLog{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

// MaxNonce returns the highest recorded nonce for transfers sent from the
// given address on a chain
func (r *BlockRepository) MaxNonce(ctx context.Context, chainID int64, from string) (uint64, bool, error) {
	var result struct {
		MaxNonce *uint64
	}
	err := GetDB(ctx, r.db).WithContext(ctx).Raw(`
		SELECT MAX(nonce) AS max_nonce
		FROM blockchain_logs
		WHERE chain_id = ? AND from_address = ? AND nonce IS NOT NULL`,
		chainID, from,
	).Scan(&result).Error
	if err != nil {
		return 0, false, err
	}
	if result.MaxNonce == nil {
		return 0, false, nil
	}
	return *result.MaxNonce, true, nil
}

func blockToEntity(m *models.Block) *entities.Block {
	return &entities.Block{
		ID:        m.ID,
		ChainID:   m.ChainID,
		Number:    m.Number,
		Hash:      m.Hash,
		Status:    entities.BlockStatus(m.Status),
		CreatedAt: m.CreatedAt,
	}
}

func logToEntity(m *models.BlockchainLog) *entities.BlockchainLog {
	return &entities.BlockchainLog{
		ID:            m.ID,
		From:          m.From,
		To:            m.To,
		Token:         entities.Token(m.Token),
		Amount:        m.Amount,
		ChainID:       m.ChainID,
		TrxHash:       m.TrxHash,
		TrxIndex:      m.TrxIndex,
		BlockID:       m.BlockID,
		Nonce:         null.Uint64FromPtr(m.Nonce),
		GasPrice:      null.StringFromPtr(m.GasPrice),
		GasUsed:       null.Uint64FromPtr(m.GasUsed),
		Successful:    m.Successful,
		TransactionID: m.TransactionID,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// isDuplicateErr recognizes unique-constraint violations across the
// postgres and sqlite drivers.
func isDuplicateErr(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}
