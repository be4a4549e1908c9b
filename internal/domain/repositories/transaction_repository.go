package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"winmore.backend/internal/domain/entities"
)

// TransactionTypeFilter widens the type enum for history queries.
type TransactionTypeFilter string

const (
	TransactionFilterAll        TransactionTypeFilter = "ALL"
	TransactionFilterBlockchain TransactionTypeFilter = "BLOCKCHAIN"
	TransactionFilterInGame     TransactionTypeFilter = "INGAME"
	TransactionFilterDeposit    TransactionTypeFilter = "DEPOSIT"
	TransactionFilterWithdrawal TransactionTypeFilter = "WITHDRAWAL"
)

// WalletBalance is one (chain, token) balance line of a user's wallet view.
type WalletBalance struct {
	ChainID int64
	Token   entities.Token
	Balance decimal.Decimal
}

// TransactionRepository defines ledger entry data operations. Status is
// mutated exclusively through UpdateStatus so the state machine stays
// enforced in one place.
type TransactionRepository interface {
	Create(ctx context.Context, trx *entities.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Transaction, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status entities.TransactionStatus) error
	UpdateRemarks(ctx context.Context, id uuid.UUID, remarks entities.TransactionRemarks) error
	// SumBalance computes Σ(credits) − Σ(debits) over SUCCESSFUL rows for
	// the wallet on (token, chain), COALESCE-ing to zero when no rows match.
	SumBalance(ctx context.Context, walletID uuid.UUID, token entities.Token, chainID int64) (decimal.Decimal, error)
	// SumBalancesByOwner groups SUCCESSFUL rows of all the owner's wallets
	// by (chain, token).
	SumBalancesByOwner(ctx context.Context, ownerID uuid.UUID) ([]WalletBalance, error)
	GetHistoryByOwner(ctx context.Context, ownerID uuid.UUID, filter TransactionTypeFilter, limit, offset int) ([]*entities.Transaction, error)
}
