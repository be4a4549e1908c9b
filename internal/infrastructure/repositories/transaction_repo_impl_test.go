package repositories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"winmore.backend/internal/domain/entities"
	domainerrors "winmore.backend/internal/domain/errors"
	domainRepos "winmore.backend/internal/domain/repositories"
)

func seedTrx(t *testing.T, repo *TransactionRepository, src, dst uuid.UUID, amount string, status entities.TransactionStatus, trxType entities.TransactionType) *entities.Transaction {
	t.Helper()
	trx := &entities.Transaction{
		SourceID:      src,
		DestinationID: dst,
		Amount:        decimal.RequireFromString(amount),
		Token:         entities.TokenUSDT,
		ChainID:       1,
		Status:        status,
		Type:          trxType,
	}
	require.NoError(t, repo.Create(context.Background(), trx))
	return trx
}

func TestTransactionRepository_SumBalance(t *testing.T) {
	db := newTestDB(t)
	createTransactionTable(t, db)
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	wallet := uuid.New()
	other := uuid.New()

	// credits: 10 + 5; debit: 3; non-SUCCESSFUL rows must not count
	seedTrx(t, repo, other, wallet, "10", entities.TransactionStatusSuccessful, entities.TransactionTypeDeposit)
	seedTrx(t, repo, other, wallet, "5", entities.TransactionStatusSuccessful, entities.TransactionTypeInGame)
	seedTrx(t, repo, wallet, other, "3", entities.TransactionStatusSuccessful, entities.TransactionTypeInGame)
	seedTrx(t, repo, other, wallet, "100", entities.TransactionStatusPending, entities.TransactionTypeDeposit)
	seedTrx(t, repo, other, wallet, "100", entities.TransactionStatusFailed, entities.TransactionTypeInGame)
	seedTrx(t, repo, other, wallet, "100", entities.TransactionStatusReverted, entities.TransactionTypeDeposit)

	balance, err := repo.SumBalance(ctx, wallet, entities.TokenUSDT, 1)
	require.NoError(t, err)
	require.True(t, balance.Equal(decimal.RequireFromString("12")), "got %s", balance)

	// no rows at all: zero, not an error
	empty, err := repo.SumBalance(ctx, uuid.New(), entities.TokenUSDT, 1)
	require.NoError(t, err)
	require.True(t, empty.IsZero())

	// different chain: separate balance
	onOtherChain, err := repo.SumBalance(ctx, wallet, entities.TokenUSDT, 137)
	require.NoError(t, err)
	require.True(t, onOtherChain.IsZero())
}

func TestTransactionRepository_SumBalancesByOwner(t *testing.T) {
	db := newTestDB(t)
	createUserTable(t, db)
	createWalletTable(t, db)
	createTransactionTable(t, db)
	users := NewUserRepository(db)
	wallets := NewWalletRepository(db)
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	user := &entities.User{Name: "dave"}
	require.NoError(t, users.Create(ctx, user))
	w := &entities.Wallet{OwnerID: &user.ID, Address: "0xdave"}
	require.NoError(t, wallets.Create(ctx, w))

	other := uuid.New()
	seedTrx(t, repo, other, w.ID, "7", entities.TransactionStatusSuccessful, entities.TransactionTypeDeposit)
	seedTrx(t, repo, w.ID, other, "2", entities.TransactionStatusSuccessful, entities.TransactionTypeInGame)

	balances, err := repo.SumBalancesByOwner(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, balances, 1)
	require.Equal(t, entities.TokenUSDT, balances[0].Token)
	require.EqualValues(t, 1, balances[0].ChainID)
	require.True(t, balances[0].Balance.Equal(decimal.RequireFromString("5")), "got %s", balances[0].Balance)
}

func TestTransactionRepository_UpdateStatusAndRemarks(t *testing.T) {
	db := newTestDB(t)
	createTransactionTable(t, db)
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	trx := seedTrx(t, repo, uuid.New(), uuid.New(), "1", entities.TransactionStatusPending, entities.TransactionTypeInGame)

	require.NoError(t, repo.UpdateStatus(ctx, trx.ID, entities.TransactionStatusSuccessful))
	got, err := repo.GetByID(ctx, trx.ID)
	require.NoError(t, err)
	require.Equal(t, entities.TransactionStatusSuccessful, got.Status)

	gameID := uuid.New()
	remarks := got.Remarks
	remarks.Bet = &entities.BetRemarks{GameKind: "dream_mine", GameID: &gameID}
	require.NoError(t, repo.UpdateRemarks(ctx, trx.ID, remarks))

	got, err = repo.GetByID(ctx, trx.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Remarks.Bet)
	require.Equal(t, gameID, *got.Remarks.Bet.GameID)

	require.ErrorIs(t, repo.UpdateStatus(ctx, uuid.New(), entities.TransactionStatusFailed), domainerrors.ErrNotFound)
	_, err = repo.GetByID(ctx, uuid.New())
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestTransactionRepository_GetHistoryByOwner(t *testing.T) {
	db := newTestDB(t)
	createUserTable(t, db)
	createWalletTable(t, db)
	createTransactionTable(t, db)
	users := NewUserRepository(db)
	wallets := NewWalletRepository(db)
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	user := &entities.User{Name: "erin"}
	require.NoError(t, users.Create(ctx, user))
	mine := &entities.Wallet{OwnerID: &user.ID, Address: "0xerin"}
	require.NoError(t, wallets.Create(ctx, mine))

	stranger := &entities.User{Name: "frank"}
	require.NoError(t, users.Create(ctx, stranger))
	theirs := &entities.Wallet{OwnerID: &stranger.ID, Address: "0xfrank"}
	require.NoError(t, wallets.Create(ctx, theirs))

	seedTrx(t, repo, theirs.ID, mine.ID, "10", entities.TransactionStatusSuccessful, entities.TransactionTypeDeposit)
	seedTrx(t, repo, mine.ID, theirs.ID, "4", entities.TransactionStatusSuccessful, entities.TransactionTypeInGame)
	seedTrx(t, repo, mine.ID, theirs.ID, "2", entities.TransactionStatusPending, entities.TransactionTypeWithdrawal)

	all, err := repo.GetHistoryByOwner(ctx, user.ID, domainRepos.TransactionFilterAll, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)

	chain, err := repo.GetHistoryByOwner(ctx, user.ID, domainRepos.TransactionFilterBlockchain, 0, 0)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	for _, trx := range chain {
		require.NotEqual(t, entities.TransactionTypeInGame, trx.Type)
	}

	deposits, err := repo.GetHistoryByOwner(ctx, user.ID, domainRepos.TransactionFilterDeposit, 0, 0)
	require.NoError(t, err)
	require.Len(t, deposits, 1)

	limited, err := repo.GetHistoryByOwner(ctx, user.ID, domainRepos.TransactionFilterAll, 2, 0)
	require.NoError(t, err)
	require.Len(t, limited, 2)
}
