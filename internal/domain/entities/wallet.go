package entities

import (
	"time"

	"github.com/google/uuid"
)

// Wallet is a user's custodial wallet. Exactly one wallet exists whose
// owner is the admin user; that is the business wallet all bets, deposits
// and withdrawals settle against. The address is immutable after creation.
type Wallet struct {
	ID        uuid.UUID  `json:"id"`
	OwnerID   *uuid.UUID `json:"ownerId,omitempty"`
	Address   string     `json:"address"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`

	Owner *User `json:"owner,omitempty"`
}

// BusinessWallet is the custodial wallet plus its decrypted signing key.
// It is resolved once at startup and injected; ledger operations must not
// run before it is loaded.
type BusinessWallet struct {
	Wallet
	PrivateKey string `json:"-"`
}

// WalletIdentifier selects a wallet by exactly one of its unique keys.
type WalletIdentifier struct {
	ID      *uuid.UUID
	OwnerID *uuid.UUID
	Address string
}

// ByWalletID builds an identifier from a wallet id.
func ByWalletID(id uuid.UUID) WalletIdentifier { return WalletIdentifier{ID: &id} }

// ByOwnerID builds an identifier from an owner user id.
func ByOwnerID(ownerID uuid.UUID) WalletIdentifier { return WalletIdentifier{OwnerID: &ownerID} }

// ByAddress builds an identifier from an on-chain address.
func ByAddress(address string) WalletIdentifier { return WalletIdentifier{Address: address} }
