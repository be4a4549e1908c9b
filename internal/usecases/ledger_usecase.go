package usecases

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"winmore.backend/internal/domain/entities"
	domainerrors "winmore.backend/internal/domain/errors"
	"winmore.backend/internal/domain/repositories"
	"winmore.backend/pkg/logger"
)

// TransactOptions tunes a single ledger movement.
type TransactOptions struct {
	Type    entities.TransactionType
	Remarks entities.TransactionRemarks
	// HoldPending leaves the transaction PENDING after the balance check
	// passes; used for withdrawals awaiting on-chain confirmation.
	HoldPending bool
}

// LedgerUsecase is the double-entry wallet engine. Balances are always
// derived from the transaction log, never stored, and every movement is a
// transaction row whose status only moves forward.
type LedgerUsecase struct {
	trxRepo    repositories.TransactionRepository
	walletRepo repositories.WalletRepository
	userRepo   repositories.UserRepository
	uow        repositories.UnitOfWork

	mu       sync.RWMutex
	business *entities.BusinessWallet
}

// NewLedgerUsecase creates a new ledger usecase
func NewLedgerUsecase(
	trxRepo repositories.TransactionRepository,
	walletRepo repositories.WalletRepository,
	userRepo repositories.UserRepository,
	uow repositories.UnitOfWork,
) *LedgerUsecase {
	return &LedgerUsecase{
		trxRepo:    trxRepo,
		walletRepo: walletRepo,
		userRepo:   userRepo,
		uow:        uow,
	}
}

// LoadBusinessWallet resolves the admin-owned custodial wallet and pins it
// for the process lifetime. Must run at startup before any ledger operation
// or background job; there is deliberately no lazy re-fetch.
func (u *LedgerUsecase) LoadBusinessWallet(ctx context.Context, privateKey string) error {
	wallet, err := u.walletRepo.GetBusinessWallet(ctx)
	if err != nil {
		return fmt.Errorf("resolve business wallet: %w", err)
	}

	u.mu.Lock()
	u.business = &entities.BusinessWallet{Wallet: *wallet, PrivateKey: privateKey}
	u.mu.Unlock()

	logger.Info(ctx, "business wallet loaded", zap.String("address", wallet.Address))
	return nil
}

// BusinessWallet returns the pinned custodial wallet
func (u *LedgerUsecase) BusinessWallet() (*entities.BusinessWallet, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if u.business == nil {
		return nil, domainerrors.ErrBusinessWalletNotSet
	}
	return u.business, nil
}

// GetBalance sums SUCCESSFUL transactions for the wallet on (token, chain).
// Unknown wallets legitimately read as zero.
func (u *LedgerUsecase) GetBalance(ctx context.Context, walletID uuid.UUID, token entities.Token, chainID int64) (decimal.Decimal, error) {
	return u.trxRepo.SumBalance(ctx, walletID, token, chainID)
}

// Transact moves value between two wallets. The PENDING row is created,
// the source balance is checked (the business wallet is exempt — it is the
// float account), and the status is flipped, all inside one serializable
// database transaction so concurrent movements against the same wallet
// cannot both pass a stale balance read.
//
// Insufficient funds still commits the FAILED row as an audit trail, then
// surfaces ErrInsufficientFunds.
func (u *LedgerUsecase) Transact(ctx context.Context, sourceID, destinationID uuid.UUID, amount decimal.Decimal, token entities.Token, chainID int64, opts TransactOptions) (*entities.Transaction, error) {
	if amount.IsNegative() || amount.IsZero() {
		return nil, domainerrors.BadRequest("amount must be positive")
	}
	if sourceID == destinationID {
		return nil, domainerrors.BadRequest("source and destination must differ")
	}
	if opts.Type == "" {
		opts.Type = entities.TransactionTypeInGame
	}

	business, err := u.BusinessWallet()
	if err != nil {
		return nil, err
	}

	trx := &entities.Transaction{
		SourceID:      sourceID,
		DestinationID: destinationID,
		Amount:        amount,
		Token:         token,
		ChainID:       chainID,
		Status:        entities.TransactionStatusPending,
		Type:          opts.Type,
		Remarks:       opts.Remarks,
	}

	insufficient := false
	err = u.uow.DoSerializable(ctx, func(txCtx context.Context) error {
		if err := u.trxRepo.Create(txCtx, trx); err != nil {
			return err
		}

		if sourceID != business.ID {
			balance, err := u.trxRepo.SumBalance(txCtx, sourceID, token, chainID)
			if err != nil {
				return err
			}
			if balance.LessThan(amount) {
				// Commit the FAILED row; the error is raised after.
				insufficient = true
				trx.Status = entities.TransactionStatusFailed
				return u.trxRepo.UpdateStatus(txCtx, trx.ID, entities.TransactionStatusFailed)
			}
		}

		if opts.HoldPending {
			return nil
		}
		trx.Status = entities.TransactionStatusSuccessful
		return u.trxRepo.UpdateStatus(txCtx, trx.ID, entities.TransactionStatusSuccessful)
	})
	if err != nil {
		return nil, err
	}
	if insufficient {
		logger.Warn(ctx, "transaction failed on balance check",
			zap.String("trxId", trx.ID.String()),
			zap.String("sourceId", sourceID.String()),
			zap.String("amount", amount.String()))
		return trx, domainerrors.InsufficientFunds("insufficient funds")
	}
	return trx, nil
}

// PlaceBet debits the user's wallet into the business wallet
func (u *LedgerUsecase) PlaceBet(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, token entities.Token, chainID int64, remarks entities.TransactionRemarks) (*entities.Transaction, error) {
	business, err := u.BusinessWallet()
	if err != nil {
		return nil, err
	}
	wallet, err := u.walletRepo.Get(ctx, entities.ByOwnerID(userID))
	if err != nil {
		return nil, err
	}

	remarks.FromUser = &userID
	trx, err := u.Transact(ctx, wallet.ID, business.ID, amount, token, chainID, TransactOptions{
		Type:    entities.TransactionTypeInGame,
		Remarks: remarks,
	})
	if err != nil {
		return trx, err
	}
	if trx.Status != entities.TransactionStatusSuccessful {
		return trx, fmt.Errorf("bet transaction %s ended %s: %w", trx.ID, trx.Status, domainerrors.ErrConflict)
	}
	return trx, nil
}

// RewardTheWinner pays a prize from the business wallet to the user
func (u *LedgerUsecase) RewardTheWinner(ctx context.Context, userID uuid.UUID, prize decimal.Decimal, token entities.Token, chainID int64, remarks entities.TransactionRemarks) (*entities.Transaction, error) {
	business, err := u.BusinessWallet()
	if err != nil {
		return nil, err
	}
	wallet, err := u.walletRepo.Get(ctx, entities.ByOwnerID(userID))
	if err != nil {
		return nil, err
	}

	remarks.ToUser = &userID
	return u.Transact(ctx, business.ID, wallet.ID, prize, token, chainID, TransactOptions{
		Type:    entities.TransactionTypeInGame,
		Remarks: remarks,
	})
}

// SubmitTransaction flips PENDING to SUCCESSFUL; illegal from FAILED.
func (u *LedgerUsecase) SubmitTransaction(ctx context.Context, id uuid.UUID) error {
	return u.transition(ctx, id, entities.TransactionStatusSuccessful)
}

// FailTransaction flips PENDING to FAILED.
func (u *LedgerUsecase) FailTransaction(ctx context.Context, id uuid.UUID) error {
	return u.transition(ctx, id, entities.TransactionStatusFailed)
}

// RevertTransaction flips SUCCESSFUL to REVERTED; only legal from SUCCESSFUL.
func (u *LedgerUsecase) RevertTransaction(ctx context.Context, id uuid.UUID) error {
	return u.transition(ctx, id, entities.TransactionStatusReverted)
}

// transition is the only status mutation path. It re-reads the row inside
// the unit of work so the legality check and the write are atomic.
func (u *LedgerUsecase) transition(ctx context.Context, id uuid.UUID, to entities.TransactionStatus) error {
	return u.uow.Do(ctx, func(txCtx context.Context) error {
		trx, err := u.trxRepo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if !trx.Status.CanTransitionTo(to) {
			return fmt.Errorf("transaction %s: %s -> %s: %w", id, trx.Status, to, domainerrors.ErrIllegalTransition)
		}
		return u.trxRepo.UpdateStatus(txCtx, id, to)
	})
}

// AddRemarks merges extra fields into a transaction's remarks, keeping
// already-present keys intact.
func (u *LedgerUsecase) AddRemarks(ctx context.Context, id uuid.UUID, extra map[string]interface{}) error {
	return u.uow.Do(ctx, func(txCtx context.Context) error {
		trx, err := u.trxRepo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		trx.Remarks.Merge(extra)
		return u.trxRepo.UpdateRemarks(txCtx, id, trx.Remarks)
	})
}

// UserWalletView is the per-chain per-token balance map of a user's wallet.
type UserWalletView struct {
	Wallet   *entities.Wallet             `json:"wallet"`
	Balances []repositories.WalletBalance `json:"balances"`
}

// GetUserWallet returns the user's wallet with its derived balances
func (u *LedgerUsecase) GetUserWallet(ctx context.Context, userID uuid.UUID) (*UserWalletView, error) {
	wallet, err := u.walletRepo.Get(ctx, entities.ByOwnerID(userID))
	if err != nil {
		return nil, err
	}
	balances, err := u.trxRepo.SumBalancesByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserWalletView{Wallet: wallet, Balances: balances}, nil
}

// GetUserTransactionsHistory lists the user's transactions, newest first
func (u *LedgerUsecase) GetUserTransactionsHistory(ctx context.Context, userID uuid.UUID, filter repositories.TransactionTypeFilter, limit, offset int) ([]*entities.Transaction, error) {
	return u.trxRepo.GetHistoryByOwner(ctx, userID, filter, limit, offset)
}
