package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"winmore.backend/internal/domain/entities"
	domainerrors "winmore.backend/internal/domain/errors"
	domainRepos "winmore.backend/internal/domain/repositories"
	"winmore.backend/internal/infrastructure/models"
	"winmore.backend/pkg/utils"
)

// TransactionRepository implements ledger entry data operations
type TransactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create appends a new ledger entry
func (r *TransactionRepository) Create(ctx context.Context, trx *entities.Transaction) error {
	if trx.ID == uuid.Nil {
		trx.ID = utils.GenerateUUIDv7()
	}
	trx.CreatedAt = time.Now()
	trx.UpdatedAt = trx.CreatedAt

	remarks, err := json.Marshal(trx.Remarks)
	if err != nil {
		return err
	}

	m := &models.Transaction{
		ID:            trx.ID,
		SourceID:      trx.SourceID,
		DestinationID: trx.DestinationID,
		Amount:        trx.Amount,
		Token:         string(trx.Token),
		ChainID:       trx.ChainID,
		Status:        string(trx.Status),
		Type:          string(trx.Type),
		Remarks:       string(remarks),
		CreatedAt:     trx.CreatedAt,
		UpdatedAt:     trx.UpdatedAt,
	}

	db := GetDB(ctx, r.db)
	return db.WithContext(ctx).Create(m).Error
}

// GetByID gets a ledger entry by ID
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Transaction, error) {
	var m models.Transaction
	if err := GetDB(ctx, r.db).WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

// UpdateStatus flips the status column. Legality of the transition is the
// ledger engine's concern; this is the only status mutation path.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entities.TransactionStatus) error {
	db := GetDB(ctx, r.db)
	result := db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     string(status),
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

// UpdateRemarks replaces the remarks blob
func (r *TransactionRepository) UpdateRemarks(ctx context.Context, id uuid.UUID, remarks entities.TransactionRemarks) error {
	blob, err := json.Marshal(remarks)
	if err != nil {
		return err
	}
	db := GetDB(ctx, r.db)
	return db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"remarks":    string(blob),
			"updated_at": time.Now(),
		}).Error
}

// SumBalance derives a wallet's (token, chain) balance from the transaction
// log: credits minus debits over SUCCESSFUL rows, zero when no rows match.
// Balance is intentionally never a stored counter.
func (r *TransactionRepository) SumBalance(ctx context.Context, walletID uuid.UUID, token entities.Token, chainID int64) (decimal.Decimal, error) {
	var result struct {
		Balance decimal.Decimal
	}
	err := GetDB(ctx, r.db).WithContext(ctx).Raw(`
		SELECT (
			COALESCE(SUM(CASE WHEN destination_id = ? THEN amount ELSE 0 END), 0) -
			COALESCE(SUM(CASE WHEN source_id = ? THEN amount ELSE 0 END), 0)
		) AS balance
		FROM transactions
		WHERE token = ? AND chain_id = ? AND status = ?`,
		walletID, walletID, string(token), chainID, string(entities.TransactionStatusSuccessful),
	).Scan(&result).Error
	if err != nil {
		return decimal.Zero, err
	}
	return result.Balance, nil
}

// SumBalancesByOwner groups the owner's SUCCESSFUL rows by (chain, token).
func (r *TransactionRepository) SumBalancesByOwner(ctx context.Context, ownerID uuid.UUID) ([]domainRepos.WalletBalance, error) {
	var rows []struct {
		ChainID int64
		Token   string
		Balance decimal.Decimal
	}
	err := GetDB(ctx, r.db).WithContext(ctx).Raw(`
		SELECT t.chain_id AS chain_id, t.token AS token, (
			COALESCE(SUM(CASE WHEN t.destination_id = w.id THEN t.amount ELSE 0 END), 0) -
			COALESCE(SUM(CASE WHEN t.source_id = w.id THEN t.amount ELSE 0 END), 0)
		) AS balance
		FROM transactions t
		JOIN wallets w ON t.destination_id = w.id OR t.source_id = w.id
		WHERE w.owner_id = ? AND t.status = ?
		GROUP BY t.chain_id, t.token`,
		ownerID, string(entities.TransactionStatusSuccessful),
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	balances := make([]domainRepos.WalletBalance, 0, len(rows))
	for _, row := range rows {
		balances = append(balances, domainRepos.WalletBalance{
			ChainID: row.ChainID,
			Token:   entities.Token(row.Token),
			Balance: row.Balance,
		})
	}
	return balances, nil
}

// GetHistoryByOwner lists transactions touching any of the owner's wallets.
func (r *TransactionRepository) GetHistoryByOwner(ctx context.Context, ownerID uuid.UUID, filter domainRepos.TransactionTypeFilter, limit, offset int) ([]*entities.Transaction, error) {
	db := GetDB(ctx, r.db).WithContext(ctx).
		Model(&models.Transaction{}).
		Joins("JOIN wallets sw ON sw.id = transactions.source_id").
		Joins("JOIN wallets dw ON dw.id = transactions.destination_id").
		Where("sw.owner_id = ? OR dw.owner_id = ?", ownerID, ownerID).
		Order("transactions.created_at DESC")

	switch filter {
	case "", domainRepos.TransactionFilterAll:
	case domainRepos.TransactionFilterBlockchain:
		db = db.Where("transactions.type <> ?", string(entities.TransactionTypeInGame))
	default:
		db = db.Where("transactions.type = ?", string(filter))
	}

	if limit > 0 {
		db = db.Limit(limit)
	}
	if offset > 0 {
		db = db.Offset(offset)
	}

	var ms []models.Transaction
	if err := db.Find(&ms).Error; err != nil {
		return nil, err
	}

	trxs := make([]*entities.Transaction, 0, len(ms))
	for i := range ms {
		trxs = append(trxs, r.toEntity(&ms[i]))
	}
	return trxs, nil
}

func (r *TransactionRepository) toEntity(m *models.Transaction) *entities.Transaction {
	trx := &entities.Transaction{
		ID:            m.ID,
		SourceID:      m.SourceID,
		DestinationID: m.DestinationID,
		Amount:        m.Amount,
		Token:         entities.Token(m.Token),
		ChainID:       m.ChainID,
		Status:        entities.TransactionStatus(m.Status),
		Type:          entities.TransactionType(m.Type),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	if m.Remarks != "" {
		// A malformed blob only loses the annotation, not the ledger row.
		_ = json.Unmarshal([]byte(m.Remarks), &trx.Remarks)
	}
	return trx
}
