package usecases

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"winmore.backend/internal/domain/entities"
	domainerrors "winmore.backend/internal/domain/errors"
	"winmore.backend/internal/domain/repositories"
	"winmore.backend/internal/infrastructure/blockchain"
	"winmore.backend/pkg/logger"
	"winmore.backend/pkg/metrics"
)

// chainState is the scanner's per-chain runtime: the provider handle, the
// chain row, and a mutex so a chain's tick never overlaps itself.
type chainState struct {
	mu     sync.Mutex
	chain  *entities.Chain
	client blockchain.Client
}

// ScannerUsecase walks each configured chain's blocks for ERC20 transfers
// into the business wallet and credits them as ledger deposits. Progress is
// a persisted per-chain cursor; a crashed or partially failed pass resumes
// from one before the earliest failing batch.
type ScannerUsecase struct {
	chainRepo    repositories.ChainRepository
	contractRepo repositories.ContractRepository
	blockRepo    repositories.BlockRepository
	walletRepo   repositories.WalletRepository
	ledger       *LedgerUsecase
	uow          repositories.UnitOfWork
	factory      *blockchain.ClientFactory

	// dial is swapped in tests to avoid real RPC sockets
	dial func(providerURL string) (blockchain.Client, error)

	mu     sync.RWMutex
	states map[int64]*chainState
}

// NewScannerUsecase creates a new scanner usecase
func NewScannerUsecase(
	chainRepo repositories.ChainRepository,
	contractRepo repositories.ContractRepository,
	blockRepo repositories.BlockRepository,
	walletRepo repositories.WalletRepository,
	ledger *LedgerUsecase,
	uow repositories.UnitOfWork,
	factory *blockchain.ClientFactory,
) *ScannerUsecase {
	return &ScannerUsecase{
		chainRepo:    chainRepo,
		contractRepo: contractRepo,
		blockRepo:    blockRepo,
		walletRepo:   walletRepo,
		ledger:       ledger,
		uow:          uow,
		factory:      factory,
		dial: func(providerURL string) (blockchain.Client, error) {
			return blockchain.NewEVMClient(providerURL)
		},
		states: make(map[int64]*chainState),
	}
}

// Init loads all chains, opens a provider handle per chain, and resolves
// missing contract decimals from chain (cached in the contract row after).
func (u *ScannerUsecase) Init(ctx context.Context) error {
	chains, err := u.chainRepo.GetAll(ctx, true)
	if err != nil {
		return fmt.Errorf("load chains: %w", err)
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	for _, chain := range chains {
		client, err := u.factory.GetClient(chain.ProviderURL)
		if err != nil {
			// A dead provider at boot is not fatal; the tick retries.
			logger.Warn(ctx, "chain provider unavailable at startup",
				zap.Int64("chainId", chain.ID), zap.Error(err))
			u.states[chain.ID] = &chainState{chain: chain}
			continue
		}
		u.states[chain.ID] = &chainState{chain: chain, client: client}

		for _, contract := range chain.Contracts {
			if contract.Decimals.Valid {
				continue
			}
			decimals, err := client.TokenDecimals(ctx, contract.Address)
			if err != nil {
				logger.Warn(ctx, "decimals fetch failed",
					zap.Int64("chainId", chain.ID),
					zap.String("contract", contract.Address), zap.Error(err))
				continue
			}
			if err := u.contractRepo.UpdateDecimals(ctx, contract.ID, int(decimals)); err != nil {
				return err
			}
			contract.Decimals.SetValid(int(decimals))
		}
	}
	logger.Info(ctx, "scanner initialized", zap.Int("chains", len(chains)))
	return nil
}

// ChainIDs lists the chains the scanner tracks
func (u *ScannerUsecase) ChainIDs() []int64 {
	u.mu.RLock()
	defer u.mu.RUnlock()
	ids := make([]int64, 0, len(u.states))
	for id := range u.states {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ScanChain runs one scan pass for a chain. A pass already in flight makes
// this a no-op; a stuck chain never blocks the others.
func (u *ScannerUsecase) ScanChain(ctx context.Context, chainID int64) error {
	u.mu.RLock()
	state, ok := u.states[chainID]
	u.mu.RUnlock()
	if !ok {
		return fmt.Errorf("chain %d: %w", chainID, domainerrors.ErrUnsupportedChain)
	}

	if !state.mu.TryLock() {
		logger.Debug(ctx, "scan still running, skipping tick", zap.Int64("chainId", chainID))
		return nil
	}
	defer state.mu.Unlock()

	if err := u.ensureConnected(ctx, state); err != nil {
		metrics.ScanErrors.WithLabelValues(fmt.Sprint(chainID)).Inc()
		logger.Warn(ctx, "provider unreachable, retrying next tick",
			zap.Int64("chainId", chainID), zap.Error(err))
		return nil
	}

	if err := u.scanPass(ctx, state); err != nil {
		metrics.ScanErrors.WithLabelValues(fmt.Sprint(chainID)).Inc()
		logger.Error(ctx, "scan pass failed", zap.Int64("chainId", chainID), zap.Error(err))
		return err
	}

	if state.chain.AcceptedBlockState != entities.BlockStatusFinalized {
		if err := u.reorgSweep(ctx, state); err != nil {
			logger.Error(ctx, "reorg sweep failed", zap.Int64("chainId", chainID), zap.Error(err))
		}
	}
	return nil
}

// ensureConnected probes the provider and replaces a dead handle with a
// fresh one.
func (u *ScannerUsecase) ensureConnected(ctx context.Context, state *chainState) error {
	if state.client != nil && state.client.IsConnected(ctx) {
		return nil
	}
	client, err := u.dial(state.chain.ProviderURL)
	if err != nil {
		return err
	}
	if state.client != nil {
		state.client.Close()
	}
	state.client = client
	u.factory.RegisterClient(state.chain.ProviderURL, client)
	logger.Info(ctx, "provider reconnected", zap.Int64("chainId", state.chain.ID))
	return nil
}

type batchResult struct {
	start uint64
	err   error
}

// scanPass walks from the cursor to the chain's confirmed head in batches
// of BlockProcessRange blocks, all batches of a pass in flight at once.
func (u *ScannerUsecase) scanPass(ctx context.Context, state *chainState) error {
	chain := state.chain

	head, _, err := state.client.BlockByTag(ctx, chain.AcceptedBlockState)
	if err != nil {
		return fmt.Errorf("fetch head: %w", err)
	}

	var from uint64
	if chain.LastProcessedBlock.Valid {
		if chain.LastProcessedBlock.Uint64 >= head {
			return nil // no progress since last pass
		}
		from = chain.LastProcessedBlock.Uint64 + 1
	} else {
		from = head // first run: start at the confirmed head
	}

	batchRange := chain.BlockProcessRange
	if batchRange == 0 || batchRange > chain.MaxProcessRange {
		batchRange = chain.MaxProcessRange
	}

	var wg sync.WaitGroup
	results := make(chan batchResult)
	for start := from; start <= head; start += batchRange {
		end := start + batchRange - 1
		if end > head {
			end = head
		}
		wg.Add(1)
		go func(start, end uint64) {
			defer wg.Done()
			results <- batchResult{start: start, err: u.processBatch(ctx, state, start, end)}
		}(start, end)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	// The cursor never advances past a block whose logs were not durably
	// processed: a failing batch caps it at one before the batch start.
	cursor := head
	failed := false
	for r := range results {
		if r.err == nil {
			continue
		}
		failed = true
		logger.Warn(ctx, "scan batch failed",
			zap.Int64("chainId", chain.ID),
			zap.Uint64("batchStart", r.start), zap.Error(r.err))
		if r.start > 0 && r.start-1 < cursor {
			cursor = r.start - 1
		}
	}
	if failed {
		metrics.ScanErrors.WithLabelValues(fmt.Sprint(chain.ID)).Inc()
	}

	if err := u.chainRepo.UpdateLastProcessedBlock(ctx, chain.ID, cursor); err != nil {
		return fmt.Errorf("persist cursor: %w", err)
	}
	chain.LastProcessedBlock.SetValid(cursor)
	metrics.ScanCursor.WithLabelValues(fmt.Sprint(chain.ID)).Set(float64(cursor))
	if cursor >= from {
		metrics.BlocksProcessed.WithLabelValues(fmt.Sprint(chain.ID)).Add(float64(cursor - from + 1))
	}
	return nil
}

// processBatch scans one block range for every tracked contract
func (u *ScannerUsecase) processBatch(ctx context.Context, state *chainState, start, end uint64) error {
	business, err := u.ledger.BusinessWallet()
	if err != nil {
		return err
	}

	for _, contract := range state.chain.Contracts {
		if !contract.Decimals.Valid {
			return fmt.Errorf("contract %s has no decimals cached", contract.Address)
		}
		events, err := state.client.FilterTransfers(ctx, contract.Address, contract.Token,
			int32(contract.Decimals.Int), start, end, business.Address)
		if err != nil {
			return fmt.Errorf("filter %s [%d,%d]: %w", contract.Token, start, end, err)
		}
		for i := range events {
			if events[i].Removed {
				continue
			}
			if err := u.processDeposit(ctx, state.chain, &events[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// processDeposit credits one detected transfer. The block record, the ledger
// credit and the blockchain log commit together; the unique log index is the
// de-duplication gate, so a replayed event rolls the whole credit back.
func (u *ScannerUsecase) processDeposit(ctx context.Context, chain *entities.Chain, event *entities.TransferEvent) error {
	exists, err := u.blockRepo.LogExists(ctx, chain.ID, event.TrxHash, event.TrxIndex)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	wallet, err := u.walletRepo.Get(ctx, entities.ByAddress(event.From))
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			logger.Warn(ctx, "deposit from unknown address ignored",
				zap.Int64("chainId", chain.ID),
				zap.String("from", event.From),
				zap.String("trxHash", event.TrxHash))
			return nil
		}
		return err
	}

	business, err := u.ledger.BusinessWallet()
	if err != nil {
		return err
	}

	err = u.uow.Do(ctx, func(txCtx context.Context) error {
		block, err := u.blockRepo.GetOrCreateBlock(txCtx, &entities.Block{
			ChainID: chain.ID,
			Number:  event.BlockNumber,
			Hash:    event.BlockHash,
			Status:  chain.AcceptedBlockState,
		})
		if err != nil {
			return err
		}

		var ownerID *uuid.UUID
		if wallet.OwnerID != nil {
			ownerID = wallet.OwnerID
		}
		trx, err := u.ledger.Transact(txCtx, business.ID, wallet.ID, event.Amount, event.Token, chain.ID, TransactOptions{
			Type: entities.TransactionTypeDeposit,
			Remarks: entities.TransactionRemarks{
				ToUser: ownerID,
				Deposit: &entities.DepositRemarks{
					WalletAddress: event.From,
					TrxHash:       event.TrxHash,
					TrxIndex:      event.TrxIndex,
				},
			},
		})
		if err != nil {
			return err
		}

		return u.blockRepo.CreateLog(txCtx, &entities.BlockchainLog{
			From:          event.From,
			To:            event.To,
			Token:         event.Token,
			Amount:        event.Amount,
			ChainID:       chain.ID,
			TrxHash:       event.TrxHash,
			TrxIndex:      event.TrxIndex,
			BlockID:       &block.ID,
			Successful:    true,
			TransactionID: &trx.ID,
		})
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrAlreadyExists) {
			// Lost the race to another replayed delivery; the rollback
			// already discarded this credit.
			return nil
		}
		return err
	}

	metrics.DepositsCredited.WithLabelValues(fmt.Sprint(chain.ID), string(event.Token)).Inc()
	logger.Info(ctx, "deposit credited",
		zap.Int64("chainId", chain.ID),
		zap.String("token", string(event.Token)),
		zap.String("amount", event.Amount.String()),
		zap.String("from", event.From),
		zap.String("trxHash", event.TrxHash))
	return nil
}

// reorgSweep re-checks blocks recorded at a non-finalized tag. A hash
// mismatch means the block was reorged out: its deposits are reverted and
// their logs flagged unsuccessful. Matching blocks below the finalized head
// are promoted so they leave the sweep set.
func (u *ScannerUsecase) reorgSweep(ctx context.Context, state *chainState) error {
	blocks, err := u.blockRepo.GetUnfinalizedBlocks(ctx, state.chain.ID)
	if err != nil {
		return err
	}
	if len(blocks) == 0 {
		return nil
	}

	finalizedHead, _, err := state.client.BlockByTag(ctx, entities.BlockStatusFinalized)
	if err != nil {
		return err
	}

	for _, block := range blocks {
		hash, err := state.client.BlockHash(ctx, block.Number)
		if err != nil {
			return err
		}

		if hash == block.Hash {
			if block.Number <= finalizedHead {
				if err := u.blockRepo.MarkBlockFinalized(ctx, block.ID); err != nil {
					return err
				}
			}
			continue
		}

		logger.Warn(ctx, "reorg detected, reverting block deposits",
			zap.Int64("chainId", state.chain.ID),
			zap.Uint64("number", block.Number),
			zap.String("storedHash", block.Hash),
			zap.String("canonicalHash", hash))

		logs, err := u.blockRepo.GetLogsByBlock(ctx, block.ID)
		if err != nil {
			return err
		}
		for _, log := range logs {
			if err := u.uow.Do(ctx, func(txCtx context.Context) error {
				if log.TransactionID != nil {
					if err := u.ledger.RevertTransaction(txCtx, *log.TransactionID); err != nil {
						return err
					}
				}
				return u.blockRepo.FinalizeLog(txCtx, log.ID, entities.BlockchainLog{}, false)
			}); err != nil {
				return err
			}
		}
	}
	return nil
}
