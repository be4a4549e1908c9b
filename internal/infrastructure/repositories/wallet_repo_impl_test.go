package repositories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"winmore.backend/internal/domain/entities"
	domainerrors "winmore.backend/internal/domain/errors"
)

func TestWalletRepository_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	createUserTable(t, db)
	createWalletTable(t, db)
	users := NewUserRepository(db)
	repo := NewWalletRepository(db)
	ctx := context.Background()

	user := &entities.User{Name: "alice"}
	require.NoError(t, users.Create(ctx, user))

	w := &entities.Wallet{OwnerID: &user.ID, Address: "0xabc"}
	require.NoError(t, repo.Create(ctx, w))
	require.NotEqual(t, uuid.Nil, w.ID)

	byID, err := repo.Get(ctx, entities.ByWalletID(w.ID))
	require.NoError(t, err)
	require.Equal(t, w.ID, byID.ID)

	byOwner, err := repo.Get(ctx, entities.ByOwnerID(user.ID))
	require.NoError(t, err)
	require.Equal(t, w.ID, byOwner.ID)
	require.NotNil(t, byOwner.Owner)
	require.Equal(t, "alice", byOwner.Owner.Name)

	byAddr, err := repo.Get(ctx, entities.ByAddress("0xabc"))
	require.NoError(t, err)
	require.Equal(t, w.ID, byAddr.ID)

	_, err = repo.Get(ctx, entities.WalletIdentifier{})
	require.Error(t, err)
}

func TestWalletRepository_DuplicateAddress(t *testing.T) {
	db := newTestDB(t)
	createUserTable(t, db)
	createWalletTable(t, db)
	repo := NewWalletRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &entities.Wallet{Address: "0xsame"}))
	err := repo.Create(ctx, &entities.Wallet{Address: "0xsame"})
	require.Error(t, err)
}

func TestWalletRepository_GetBusinessWallet(t *testing.T) {
	db := newTestDB(t)
	createUserTable(t, db)
	createWalletTable(t, db)
	users := NewUserRepository(db)
	repo := NewWalletRepository(db)
	ctx := context.Background()

	_, err := repo.GetBusinessWallet(ctx)
	require.ErrorIs(t, err, domainerrors.ErrNotFound)

	regular := &entities.User{Name: "bob"}
	require.NoError(t, users.Create(ctx, regular))
	require.NoError(t, repo.Create(ctx, &entities.Wallet{OwnerID: &regular.ID, Address: "0xbob"}))

	admin := &entities.User{Name: "house", Admin: true}
	require.NoError(t, users.Create(ctx, admin))
	business := &entities.Wallet{OwnerID: &admin.ID, Address: "0xhouse"}
	require.NoError(t, repo.Create(ctx, business))

	got, err := repo.GetBusinessWallet(ctx)
	require.NoError(t, err)
	require.Equal(t, business.ID, got.ID)
	require.Equal(t, "0xhouse", got.Address)
}

func TestUserRepository_GetByWalletAddress(t *testing.T) {
	db := newTestDB(t)
	createUserTable(t, db)
	createWalletTable(t, db)
	users := NewUserRepository(db)
	wallets := NewWalletRepository(db)
	ctx := context.Background()

	user := &entities.User{Name: "carol"}
	require.NoError(t, users.Create(ctx, user))
	require.NoError(t, wallets.Create(ctx, &entities.Wallet{OwnerID: &user.ID, Address: "0xcarol"}))

	got, err := users.GetByWalletAddress(ctx, "0xcarol")
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)

	_, err = users.GetByWalletAddress(ctx, "0xnobody")
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}
