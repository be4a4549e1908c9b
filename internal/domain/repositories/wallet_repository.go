package repositories

import (
	"context"

	"winmore.backend/internal/domain/entities"
)

// WalletRepository defines wallet data operations
type WalletRepository interface {
	Create(ctx context.Context, wallet *entities.Wallet) error
	// Get resolves a wallet (owner preloaded) by exactly one identifier.
	Get(ctx context.Context, ident entities.WalletIdentifier) (*entities.Wallet, error)
	// GetBusinessWallet returns the wallet owned by the admin user.
	GetBusinessWallet(ctx context.Context) (*entities.Wallet, error)
}
