package usecases

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"
	"winmore.backend/internal/domain/entities"
	domainerrors "winmore.backend/internal/domain/errors"
	"winmore.backend/internal/domain/repositories"
	"winmore.backend/internal/infrastructure/blockchain"
	"winmore.backend/pkg/logger"
	"winmore.backend/pkg/metrics"
)

// WithdrawalAck is what the caller gets back immediately: the withdrawal
// was accepted and broadcast, not the final on-chain outcome.
type WithdrawalAck struct {
	TransactionID uuid.UUID `json:"transactionId"`
	LogID         uuid.UUID `json:"logId"`
	TrxHash       string    `json:"trxHash"`
	Nonce         uint64    `json:"nonce"`
}

// WithdrawalUsecase debits the ledger, signs and broadcasts the on-chain
// transfer, and reconciles the receipt back into the ledger asynchronously.
type WithdrawalUsecase struct {
	ledger       *LedgerUsecase
	blockRepo    repositories.BlockRepository
	chainRepo    repositories.ChainRepository
	contractRepo repositories.ContractRepository
	walletRepo   repositories.WalletRepository
	uow          repositories.UnitOfWork
	factory      *blockchain.ClientFactory

	pollInterval time.Duration
	pollTimeout  time.Duration

	mu         sync.Mutex
	chainLocks map[int64]*sync.Mutex

	// pending tracks in-flight receipt waits so shutdown (and tests) can
	// drain them.
	pending sync.WaitGroup
}

// NewWithdrawalUsecase creates a new withdrawal usecase
func NewWithdrawalUsecase(
	ledger *LedgerUsecase,
	blockRepo repositories.BlockRepository,
	chainRepo repositories.ChainRepository,
	contractRepo repositories.ContractRepository,
	walletRepo repositories.WalletRepository,
	uow repositories.UnitOfWork,
	factory *blockchain.ClientFactory,
	pollInterval, pollTimeout time.Duration,
) *WithdrawalUsecase {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	if pollTimeout <= 0 {
		pollTimeout = 5 * time.Minute
	}
	return &WithdrawalUsecase{
		ledger:       ledger,
		blockRepo:    blockRepo,
		chainRepo:    chainRepo,
		contractRepo: contractRepo,
		walletRepo:   walletRepo,
		uow:          uow,
		factory:      factory,
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
		chainLocks:   make(map[int64]*sync.Mutex),
	}
}

// Wait blocks until every in-flight receipt wait has finished
func (u *WithdrawalUsecase) Wait() {
	u.pending.Wait()
}

func (u *WithdrawalUsecase) chainLock(chainID int64) *sync.Mutex {
	u.mu.Lock()
	defer u.mu.Unlock()
	lock, ok := u.chainLocks[chainID]
	if !ok {
		lock = &sync.Mutex{}
		u.chainLocks[chainID] = lock
	}
	return lock
}

// Withdraw debits the user's ledger wallet with a PENDING hold, broadcasts
// the token transfer to the wallet's on-chain address, and returns once the
// transaction is in the mempool. The ledger hold is settled later from the
// receipt; any synchronous failure after the hold exists fails it — a hold
// is never left dangling in PENDING.
func (u *WithdrawalUsecase) Withdraw(ctx context.Context, userID uuid.UUID, chainID int64, token entities.Token, amount decimal.Decimal) (*WithdrawalAck, error) {
	chain, err := u.chainRepo.GetByID(ctx, chainID)
	if err != nil {
		return nil, fmt.Errorf("chain %d: %w", chainID, domainerrors.ErrUnsupportedChain)
	}
	contract, err := u.contractRepo.GetByChainAndToken(ctx, chainID, token)
	if err != nil {
		return nil, fmt.Errorf("token %s on chain %d: %w", token, chainID, domainerrors.ErrUnsupportedToken)
	}
	if !contract.Decimals.Valid {
		return nil, fmt.Errorf("token %s on chain %d has no decimals cached: %w", token, chainID, domainerrors.ErrConflict)
	}
	business, err := u.ledger.BusinessWallet()
	if err != nil {
		return nil, err
	}
	wallet, err := u.walletRepo.Get(ctx, entities.ByOwnerID(userID))
	if err != nil {
		return nil, err
	}
	client, err := u.factory.GetClient(chain.ProviderURL)
	if err != nil {
		return nil, err
	}

	// The hold is the balance check: PENDING debit of the user wallet.
	hold, err := u.ledger.Transact(ctx, wallet.ID, business.ID, amount, token, chainID, TransactOptions{
		Type:        entities.TransactionTypeWithdrawal,
		HoldPending: true,
		Remarks: entities.TransactionRemarks{
			FromUser:   &userID,
			Withdrawal: &entities.WithdrawalRemarks{WalletAddress: wallet.Address},
		},
	})
	if err != nil {
		return nil, err
	}

	log, submitted, err := u.broadcast(ctx, client, chain, contract, business, wallet, amount, hold)
	if err != nil {
		// Never leave the hold PENDING: the sync failure path fails it.
		if failErr := u.ledger.FailTransaction(ctx, hold.ID); failErr != nil {
			logger.Error(ctx, "failed to fail withdrawal hold",
				zap.String("trxId", hold.ID.String()), zap.Error(failErr))
		}
		metrics.WithdrawalsSubmitted.WithLabelValues(fmt.Sprint(chainID), "broadcast_failed").Inc()
		return nil, err
	}

	u.pending.Add(1)
	go u.awaitReceipt(client, chain, hold.ID, log.ID, submitted.TrxHash)

	metrics.WithdrawalsSubmitted.WithLabelValues(fmt.Sprint(chainID), "broadcast").Inc()
	return &WithdrawalAck{
		TransactionID: hold.ID,
		LogID:         log.ID,
		TrxHash:       submitted.TrxHash,
		Nonce:         submitted.Nonce,
	}, nil
}

// broadcast allocates the nonce, records the withdrawal log, then sends the
// signed transfer. The log exists before the broadcast so both outcome paths
// always have a row to finalize, and the per-chain lock is held from nonce
// read to log write so concurrent withdrawals never share a nonce.
func (u *WithdrawalUsecase) broadcast(
	ctx context.Context,
	client blockchain.Client,
	chain *entities.Chain,
	contract *entities.Contract,
	business *entities.BusinessWallet,
	wallet *entities.Wallet,
	amount decimal.Decimal,
	hold *entities.Transaction,
) (*entities.BlockchainLog, *blockchain.SubmittedTransfer, error) {
	lock := u.chainLock(chain.ID)
	lock.Lock()

	nonce, err := u.allocateNonce(ctx, client, chain.ID, business.Address)
	if err != nil {
		lock.Unlock()
		return nil, nil, fmt.Errorf("allocate nonce: %w", err)
	}

	log := &entities.BlockchainLog{
		From:    business.Address,
		To:      wallet.Address,
		Token:   contract.Token,
		Amount:  amount,
		ChainID: chain.ID,
		// Placeholder until the signed hash is known; keeps the unique
		// (chain, hash, index) gate satisfied for concurrent holds.
		TrxHash:       fmt.Sprintf("pending-%s", hold.ID),
		TrxIndex:      0,
		Nonce:         null.Uint64From(nonce),
		Successful:    false,
		TransactionID: &hold.ID,
	}
	if err := u.blockRepo.CreateLog(ctx, log); err != nil {
		lock.Unlock()
		return nil, nil, fmt.Errorf("record withdrawal log: %w", err)
	}
	lock.Unlock()

	raw := amount.Shift(int32(contract.Decimals.Int)).BigInt()
	submitted, err := client.SendTokenTransfer(ctx, blockchain.TransferRequest{
		Contract:   contract.Address,
		PrivateKey: business.PrivateKey,
		To:         wallet.Address,
		Amount:     raw,
		Nonce:      nonce,
	})
	if err != nil {
		if finErr := u.blockRepo.FinalizeLog(ctx, log.ID, entities.BlockchainLog{}, false); finErr != nil {
			logger.Error(ctx, "failed to finalize withdrawal log after broadcast error",
				zap.String("logId", log.ID.String()), zap.Error(finErr))
		}
		return nil, nil, fmt.Errorf("broadcast withdrawal: %w", err)
	}

	if err := u.blockRepo.AttachBroadcast(ctx, log.ID, submitted.TrxHash, submitted.GasPrice); err != nil {
		logger.Error(ctx, "failed to attach broadcast hash",
			zap.String("logId", log.ID.String()),
			zap.String("trxHash", submitted.TrxHash), zap.Error(err))
	}
	return log, submitted, nil
}

// allocateNonce returns max(stored nonce)+1 for the business wallet on the
// chain, floored at the node's pending nonce. Stored logs cover in-flight
// withdrawals the node has not seen yet.
func (u *WithdrawalUsecase) allocateNonce(ctx context.Context, client blockchain.Client, chainID int64, address string) (uint64, error) {
	pending, err := client.PendingNonce(ctx, address)
	if err != nil {
		return 0, err
	}
	stored, found, err := u.blockRepo.MaxNonce(ctx, chainID, address)
	if err != nil {
		return 0, err
	}
	if found && stored+1 > pending {
		return stored + 1, nil
	}
	return pending, nil
}

// awaitReceipt polls until the broadcast transfer is mined or the timeout
// passes, then settles the ledger hold accordingly. Runs detached from the
// request context.
func (u *WithdrawalUsecase) awaitReceipt(client blockchain.Client, chain *entities.Chain, trxID, logID uuid.UUID, trxHash string) {
	defer u.pending.Done()

	ctx, cancel := context.WithTimeout(context.Background(), u.pollTimeout)
	defer cancel()

	ticker := time.NewTicker(u.pollInterval)
	defer ticker.Stop()

	for {
		outcome, err := client.TransferReceipt(ctx, trxHash)
		if err == nil && outcome.Found {
			u.settle(ctx, chain, trxID, logID, trxHash, outcome)
			return
		}
		if err != nil {
			logger.Warn(ctx, "receipt poll failed",
				zap.Int64("chainId", chain.ID),
				zap.String("trxHash", trxHash), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			logger.Error(ctx, "withdrawal confirmation timed out, failing hold",
				zap.Int64("chainId", chain.ID),
				zap.String("trxId", trxID.String()),
				zap.String("trxHash", trxHash))
			u.fail(context.Background(), chain, trxID, logID)
			return
		case <-ticker.C:
		}
	}
}

// settle finalizes the withdrawal from a mined receipt
func (u *WithdrawalUsecase) settle(ctx context.Context, chain *entities.Chain, trxID, logID uuid.UUID, trxHash string, outcome *blockchain.TransferOutcome) {
	if !outcome.Successful {
		logger.Warn(ctx, "withdrawal reverted on chain",
			zap.Int64("chainId", chain.ID), zap.String("trxHash", trxHash))
		u.fail(ctx, chain, trxID, logID)
		return
	}

	err := u.uow.Do(ctx, func(txCtx context.Context) error {
		block, err := u.blockRepo.GetOrCreateBlock(txCtx, &entities.Block{
			ChainID: chain.ID,
			Number:  outcome.BlockNumber,
			Hash:    outcome.BlockHash,
			Status:  chain.AcceptedBlockState,
		})
		if err != nil {
			return err
		}
		if err := u.blockRepo.FinalizeLog(txCtx, logID, entities.BlockchainLog{
			BlockID:  &block.ID,
			TrxIndex: outcome.TrxIndex,
			GasUsed:  null.Uint64From(outcome.GasUsed),
		}, true); err != nil {
			return err
		}
		return u.ledger.SubmitTransaction(txCtx, trxID)
	})
	if err != nil {
		logger.Error(ctx, "failed to settle withdrawal",
			zap.String("trxId", trxID.String()),
			zap.String("trxHash", trxHash), zap.Error(err))
		return
	}

	metrics.WithdrawalsSubmitted.WithLabelValues(fmt.Sprint(chain.ID), "confirmed").Inc()
	logger.Info(ctx, "withdrawal confirmed",
		zap.Int64("chainId", chain.ID),
		zap.String("trxId", trxID.String()),
		zap.String("trxHash", trxHash),
		zap.Uint64("block", outcome.BlockNumber))
}

// fail marks both the log and the ledger hold as failed
func (u *WithdrawalUsecase) fail(ctx context.Context, chain *entities.Chain, trxID, logID uuid.UUID) {
	err := u.uow.Do(ctx, func(txCtx context.Context) error {
		if err := u.blockRepo.FinalizeLog(txCtx, logID, entities.BlockchainLog{}, false); err != nil {
			return err
		}
		return u.ledger.FailTransaction(txCtx, trxID)
	})
	if err != nil {
		logger.Error(ctx, "failed to mark withdrawal failed",
			zap.String("trxId", trxID.String()), zap.Error(err))
		return
	}
	metrics.WithdrawalsSubmitted.WithLabelValues(fmt.Sprint(chain.ID), "failed").Inc()
}
