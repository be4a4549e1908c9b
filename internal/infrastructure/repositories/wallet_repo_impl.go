package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"winmore.backend/internal/domain/entities"
	domainerrors "winmore.backend/internal/domain/errors"
	"winmore.backend/internal/infrastructure/models"
	"winmore.backend/pkg/utils"
)

// WalletRepository implements wallet data operations
type WalletRepository struct {
	db *gorm.DB
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// Create creates a new wallet
func (r *WalletRepository) Create(ctx context.Context, wallet *entities.Wallet) error {
	if wallet.ID == uuid.Nil {
		wallet.ID = utils.GenerateUUIDv7()
	}
	wallet.CreatedAt = time.Now()
	wallet.UpdatedAt = wallet.CreatedAt

	m := &models.Wallet{
		ID:        wallet.ID,
		OwnerID:   wallet.OwnerID,
		Address:   wallet.Address,
		CreatedAt: wallet.CreatedAt,
		UpdatedAt: wallet.UpdatedAt,
	}

	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domainerrors.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Get resolves a wallet (owner preloaded) by exactly one identifier.
func (r *WalletRepository) Get(ctx context.Context, ident entities.WalletIdentifier) (*entities.Wallet, error) {
	db := GetDB(ctx, r.db).WithContext(ctx).Preload("Owner")

	switch {
	case ident.ID != nil:
		db = db.Where("id = ?", *ident.ID)
	case ident.OwnerID != nil:
		db = db.Where("owner_id = ?", *ident.OwnerID)
	case ident.Address != "":
		db = db.Where("address = ?", ident.Address)
	default:
		return nil, domainerrors.BadRequest("specify at least one identifier to find a wallet")
	}

	var m models.Wallet
	if err := db.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

// GetBusinessWallet returns the wallet owned by the admin user.
func (r *WalletRepository) GetBusinessWallet(ctx context.Context) (*entities.Wallet, error) {
	var m models.Wallet
	err := GetDB(ctx, r.db).WithContext(ctx).
		Preload("Owner").
		Joins("JOIN users ON users.id = wallets.owner_id").
		Where("users.admin = ?", true).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

func (r *WalletRepository) toEntity(m *models.Wallet) *entities.Wallet {
	w := &entities.Wallet{
		ID:        m.ID,
		OwnerID:   m.OwnerID,
		Address:   m.Address,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.Owner != nil {
		w.Owner = &entities.User{
			ID:    m.Owner.ID,
			Name:  m.Owner.Name,
			Admin: m.Owner.Admin,
		}
	}
	return w
}
