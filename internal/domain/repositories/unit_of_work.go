package repositories

import (
	"context"
)

// UnitOfWork defines the interface for atomic operations
type UnitOfWork interface {
	// Do executes the given function within a transaction scope
	Do(ctx context.Context, fn func(ctx context.Context) error) error
	// DoSerializable executes fn inside a SERIALIZABLE transaction. The
	// ledger's read-balance-compare-write sequence runs under this so two
	// concurrent bets cannot both pass a stale balance check.
	DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
}
