package usecases

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"winmore.backend/internal/domain/entities"
	domainerrors "winmore.backend/internal/domain/errors"
)

func TestLedgerTransactAndBalance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.fund(t, decimal.NewFromInt(100), entities.TokenUSDT, 137)

	require.True(t, env.balance(t, env.userWallet.ID, entities.TokenUSDT, 137).Equal(decimal.NewFromInt(100)))
	// balance is scoped per (token, chain)
	require.True(t, env.balance(t, env.userWallet.ID, entities.TokenUSDC, 137).IsZero())
	require.True(t, env.balance(t, env.userWallet.ID, entities.TokenUSDT, 1).IsZero())

	trx, err := env.ledger.Transact(ctx, env.userWallet.ID, env.businessWallet.ID, decimal.NewFromInt(30), entities.TokenUSDT, 137, TransactOptions{})
	require.NoError(t, err)
	require.Equal(t, entities.TransactionStatusSuccessful, trx.Status)
	require.Equal(t, entities.TransactionTypeInGame, trx.Type)
	require.True(t, env.balance(t, env.userWallet.ID, entities.TokenUSDT, 137).Equal(decimal.NewFromInt(70)))
}

func TestLedgerConservation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.fund(t, decimal.NewFromInt(200), entities.TokenUSDT, 137)
	businessBefore := env.balance(t, env.businessWallet.ID, entities.TokenUSDT, 137)
	userBefore := env.balance(t, env.userWallet.ID, entities.TokenUSDT, 137)

	_, err := env.ledger.PlaceBet(ctx, env.userID, decimal.NewFromInt(80), entities.TokenUSDT, 137, entities.TransactionRemarks{})
	require.NoError(t, err)
	_, err = env.ledger.RewardTheWinner(ctx, env.userID, decimal.NewFromInt(25), entities.TokenUSDT, 137, entities.TransactionRemarks{})
	require.NoError(t, err)

	businessAfter := env.balance(t, env.businessWallet.ID, entities.TokenUSDT, 137)
	userAfter := env.balance(t, env.userWallet.ID, entities.TokenUSDT, 137)

	// every movement is double-entry: the pool total never changes
	require.True(t, businessBefore.Add(userBefore).Equal(businessAfter.Add(userAfter)))
	require.True(t, userAfter.Equal(decimal.NewFromInt(145)))
}

func TestLedgerInsufficientFunds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.fund(t, decimal.NewFromInt(10), entities.TokenUSDT, 137)

	trx, err := env.ledger.Transact(ctx, env.userWallet.ID, env.businessWallet.ID, decimal.NewFromInt(50), entities.TokenUSDT, 137, TransactOptions{})
	require.ErrorIs(t, err, domainerrors.ErrInsufficientFunds)
	require.NotNil(t, trx)

	// the FAILED row is committed as an audit trail
	stored, err := env.trxRepo.GetByID(ctx, trx.ID)
	require.NoError(t, err)
	require.Equal(t, entities.TransactionStatusFailed, stored.Status)

	// and the balance is untouched
	require.True(t, env.balance(t, env.userWallet.ID, entities.TokenUSDT, 137).Equal(decimal.NewFromInt(10)))
}

func TestLedgerBusinessWalletExemptFromBalanceCheck(t *testing.T) {
	env := newTestEnv(t)

	// the float account starts at zero and may still pay out
	require.True(t, env.balance(t, env.businessWallet.ID, entities.TokenUSDT, 137).LessThanOrEqual(decimal.Zero))
	env.fund(t, decimal.NewFromInt(1000), entities.TokenUSDT, 137)
	require.True(t, env.balance(t, env.userWallet.ID, entities.TokenUSDT, 137).Equal(decimal.NewFromInt(1000)))
}

func TestLedgerTransactValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.ledger.Transact(ctx, env.userWallet.ID, env.businessWallet.ID, decimal.Zero, entities.TokenUSDT, 137, TransactOptions{})
	require.ErrorIs(t, err, domainerrors.ErrInvalidInput)

	_, err = env.ledger.Transact(ctx, env.userWallet.ID, env.businessWallet.ID, decimal.NewFromInt(-5), entities.TokenUSDT, 137, TransactOptions{})
	require.ErrorIs(t, err, domainerrors.ErrInvalidInput)

	_, err = env.ledger.Transact(ctx, env.userWallet.ID, env.userWallet.ID, decimal.NewFromInt(5), entities.TokenUSDT, 137, TransactOptions{})
	require.ErrorIs(t, err, domainerrors.ErrInvalidInput)
}

func TestLedgerStatusTransitions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.fund(t, decimal.NewFromInt(100), entities.TokenUSDT, 137)

	hold, err := env.ledger.Transact(ctx, env.userWallet.ID, env.businessWallet.ID, decimal.NewFromInt(40), entities.TokenUSDT, 137, TransactOptions{
		Type:        entities.TransactionTypeWithdrawal,
		HoldPending: true,
	})
	require.NoError(t, err)
	require.Equal(t, entities.TransactionStatusPending, hold.Status)

	// PENDING rows do not count against the balance yet
	require.True(t, env.balance(t, env.userWallet.ID, entities.TokenUSDT, 137).Equal(decimal.NewFromInt(100)))

	require.NoError(t, env.ledger.SubmitTransaction(ctx, hold.ID))
	require.True(t, env.balance(t, env.userWallet.ID, entities.TokenUSDT, 137).Equal(decimal.NewFromInt(60)))

	// SUCCESSFUL -> REVERTED is legal, and restores the balance
	require.NoError(t, env.ledger.RevertTransaction(ctx, hold.ID))
	require.True(t, env.balance(t, env.userWallet.ID, entities.TokenUSDT, 137).Equal(decimal.NewFromInt(100)))

	// REVERTED is terminal
	err = env.ledger.SubmitTransaction(ctx, hold.ID)
	require.ErrorIs(t, err, domainerrors.ErrIllegalTransition)
	err = env.ledger.FailTransaction(ctx, hold.ID)
	require.ErrorIs(t, err, domainerrors.ErrIllegalTransition)
}

func TestLedgerFailedIsTerminal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.fund(t, decimal.NewFromInt(100), entities.TokenUSDT, 137)
	hold, err := env.ledger.Transact(ctx, env.userWallet.ID, env.businessWallet.ID, decimal.NewFromInt(10), entities.TokenUSDT, 137, TransactOptions{HoldPending: true})
	require.NoError(t, err)

	require.NoError(t, env.ledger.FailTransaction(ctx, hold.ID))
	require.ErrorIs(t, env.ledger.SubmitTransaction(ctx, hold.ID), domainerrors.ErrIllegalTransition)
	require.ErrorIs(t, env.ledger.RevertTransaction(ctx, hold.ID), domainerrors.ErrIllegalTransition)
}

func TestLedgerAddRemarks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.fund(t, decimal.NewFromInt(100), entities.TokenUSDT, 137)
	trx, err := env.ledger.PlaceBet(ctx, env.userID, decimal.NewFromInt(5), entities.TokenUSDT, 137, entities.TransactionRemarks{
		Bet: &entities.BetRemarks{GameKind: "dream_mine"},
	})
	require.NoError(t, err)

	require.NoError(t, env.ledger.AddRemarks(ctx, trx.ID, map[string]interface{}{"gameId": "g-1"}))
	// existing keys win over later merges
	require.NoError(t, env.ledger.AddRemarks(ctx, trx.ID, map[string]interface{}{"gameId": "g-2", "note": "x"}))

	stored, err := env.trxRepo.GetByID(ctx, trx.ID)
	require.NoError(t, err)
	require.Equal(t, "dream_mine", stored.Remarks.Bet.GameKind)
	require.Equal(t, "g-1", stored.Remarks.Extra["gameId"])
	require.Equal(t, "x", stored.Remarks.Extra["note"])
}

func TestLedgerBusinessWalletNotLoaded(t *testing.T) {
	env := newTestEnv(t)

	bare := NewLedgerUsecase(env.trxRepo, env.walletRepo, env.userRepo, env.uow)
	_, err := bare.Transact(context.Background(), env.userWallet.ID, env.businessWallet.ID, decimal.NewFromInt(1), entities.TokenUSDT, 137, TransactOptions{})
	require.ErrorIs(t, err, domainerrors.ErrBusinessWalletNotSet)
}

func TestLedgerUserWalletView(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.fund(t, decimal.NewFromInt(30), entities.TokenUSDT, 137)
	env.fund(t, decimal.NewFromInt(20), entities.TokenUSDC, 1)

	view, err := env.ledger.GetUserWallet(ctx, env.userID)
	require.NoError(t, err)
	require.Equal(t, env.userWallet.ID, view.Wallet.ID)
	require.Len(t, view.Balances, 2)

	byKey := map[string]decimal.Decimal{}
	for _, b := range view.Balances {
		byKey[string(b.Token)] = b.Balance
	}
	require.True(t, byKey["USDT"].Equal(decimal.NewFromInt(30)))
	require.True(t, byKey["USDC"].Equal(decimal.NewFromInt(20)))
}
