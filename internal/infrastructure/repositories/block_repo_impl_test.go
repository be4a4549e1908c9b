package repositories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
	"winmore.backend/internal/domain/entities"
	domainerrors "winmore.backend/internal/domain/errors"
)

func TestBlockRepository_GetOrCreateBlock(t *testing.T) {
	db := newTestDB(t)
	createBlockTables(t, db)
	repo := NewBlockRepository(db)
	ctx := context.Background()

	first, err := repo.GetOrCreateBlock(ctx, &entities.Block{
		ChainID: 1, Number: 100, Hash: "0xaaa", Status: entities.BlockStatusLatest,
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, first.ID)

	// same (chain, number) returns the existing row
	again, err := repo.GetOrCreateBlock(ctx, &entities.Block{
		ChainID: 1, Number: 100, Hash: "0xaaa", Status: entities.BlockStatusLatest,
	})
	require.NoError(t, err)
	require.Equal(t, first.ID, again.ID)

	// same number on another chain is a distinct block
	other, err := repo.GetOrCreateBlock(ctx, &entities.Block{
		ChainID: 137, Number: 100, Hash: "0xbbb", Status: entities.BlockStatusFinalized,
	})
	require.NoError(t, err)
	require.NotEqual(t, first.ID, other.ID)
}

func TestBlockRepository_UnfinalizedAndMarkFinalized(t *testing.T) {
	db := newTestDB(t)
	createBlockTables(t, db)
	repo := NewBlockRepository(db)
	ctx := context.Background()

	latest, err := repo.GetOrCreateBlock(ctx, &entities.Block{
		ChainID: 1, Number: 5, Hash: "0x5", Status: entities.BlockStatusLatest,
	})
	require.NoError(t, err)
	_, err = repo.GetOrCreateBlock(ctx, &entities.Block{
		ChainID: 1, Number: 6, Hash: "0x6", Status: entities.BlockStatusFinalized,
	})
	require.NoError(t, err)

	open, err := repo.GetUnfinalizedBlocks(ctx, 1)
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.Equal(t, latest.ID, open[0].ID)

	require.NoError(t, repo.MarkBlockFinalized(ctx, latest.ID))
	open, err = repo.GetUnfinalizedBlocks(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, open)
}

func TestBlockRepository_CreateLog_DedupGate(t *testing.T) {
	db := newTestDB(t)
	createBlockTables(t, db)
	repo := NewBlockRepository(db)
	ctx := context.Background()

	block, err := repo.GetOrCreateBlock(ctx, &entities.Block{
		ChainID: 1, Number: 10, Hash: "0x10", Status: entities.BlockStatusFinalized,
	})
	require.NoError(t, err)

	log := &entities.BlockchainLog{
		From:     "0xsender",
		To:       "0xhouse",
		Token:    entities.TokenUSDT,
		Amount:   decimal.RequireFromString("25"),
		ChainID:  1,
		TrxHash:  "0xdeadbeef",
		TrxIndex: 3,
		BlockID:  &block.ID,
	}
	require.NoError(t, repo.CreateLog(ctx, log))

	// replaying the same transfer hits the unique index
	dup := *log
	dup.ID = uuid.Nil
	require.ErrorIs(t, repo.CreateLog(ctx, &dup), domainerrors.ErrAlreadyExists)

	exists, err := repo.LogExists(ctx, 1, "0xdeadbeef", 3)
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = repo.LogExists(ctx, 1, "0xdeadbeef", 4)
	require.NoError(t, err)
	require.False(t, exists)

	logs, err := repo.GetLogsByBlock(ctx, block.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.True(t, logs[0].Amount.Equal(log.Amount))
}

func TestBlockRepository_FinalizeLog(t *testing.T) {
	db := newTestDB(t)
	createBlockTables(t, db)
	repo := NewBlockRepository(db)
	ctx := context.Background()

	log := &entities.BlockchainLog{
		From:    "0xhouse",
		To:      "0xuser",
		Token:   entities.TokenUSDC,
		Amount:  decimal.RequireFromString("9"),
		ChainID: 1,
		TrxHash: "0xpending",
		Nonce:   null.Uint64From(7),
	}
	require.NoError(t, repo.CreateLog(ctx, log))

	block, err := repo.GetOrCreateBlock(ctx, &entities.Block{
		ChainID: 1, Number: 20, Hash: "0x20", Status: entities.BlockStatusFinalized,
	})
	require.NoError(t, err)

	require.NoError(t, repo.FinalizeLog(ctx, log.ID, entities.BlockchainLog{
		BlockID:  &block.ID,
		TrxIndex: 2,
		GasUsed:  null.Uint64From(21000),
	}, true))

	logs, err := repo.GetLogsByBlock(ctx, block.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.True(t, logs[0].Successful)
	require.EqualValues(t, 21000, logs[0].GasUsed.Uint64)

	require.ErrorIs(t, repo.FinalizeLog(ctx, uuid.New(), entities.BlockchainLog{}, false), domainerrors.ErrNotFound)
}

func TestBlockRepository_MaxNonce(t *testing.T) {
	db := newTestDB(t)
	createBlockTables(t, db)
	repo := NewBlockRepository(db)
	ctx := context.Background()

	_, found, err := repo.MaxNonce(ctx, 1, "0xhouse")
	require.NoError(t, err)
	require.False(t, found)

	for i, nonce := range []uint64{3, 7, 5} {
		require.NoError(t, repo.CreateLog(ctx, &entities.BlockchainLog{
			From:     "0xhouse",
			To:       "0xuser",
			Token:    entities.TokenUSDT,
			Amount:   decimal.New(1, 0),
			ChainID:  1,
			TrxHash:  "0xw",
			TrxIndex: uint(i),
			Nonce:    null.Uint64From(nonce),
		}))
	}
	// other sender and other chain must not leak in
	require.NoError(t, repo.CreateLog(ctx, &entities.BlockchainLog{
		From: "0xother", To: "0xuser", Token: entities.TokenUSDT,
		Amount: decimal.New(1, 0), ChainID: 1, TrxHash: "0xo", TrxIndex: 0,
		Nonce: null.Uint64From(99),
	}))
	require.NoError(t, repo.CreateLog(ctx, &entities.BlockchainLog{
		From: "0xhouse", To: "0xuser", Token: entities.TokenUSDT,
		Amount: decimal.New(1, 0), ChainID: 137, TrxHash: "0xc", TrxIndex: 0,
		Nonce: null.Uint64From(42),
	}))

	max, found, err := repo.MaxNonce(ctx, 1, "0xhouse")
	require.NoError(t, err)
	require.True(t, found)
	require.EqualValues(t, 7, max)
}
