package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"
	domainRepos "winmore.backend/internal/domain/repositories"
)

type contextKey string

const (
	txKey contextKey = "tx_db"
)

// UnitOfWorkImpl implements UnitOfWork using GORM
type UnitOfWorkImpl struct {
	db *gorm.DB
}

// NewUnitOfWork creates a new UnitOfWork
func NewUnitOfWork(db *gorm.DB) domainRepos.UnitOfWork {
	return &UnitOfWorkImpl{db: db}
}

// Do executes the given function within a transaction scope
func (u *UnitOfWorkImpl) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return u.run(ctx, nil, fn)
}

// DoSerializable executes fn inside a SERIALIZABLE transaction. The ledger
// runs its balance-check-and-flip sequence under this level so concurrent
// transactions against the same wallet serialize instead of both passing a
// stale balance read.
func (u *UnitOfWorkImpl) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	return u.run(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable}, fn)
}

func (u *UnitOfWorkImpl) run(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context) error) error {
	// Nested Do calls reuse the surrounding transaction.
	if _, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return fn(ctx)
	}

	var tx *gorm.DB
	if opts != nil {
		tx = u.db.WithContext(ctx).Begin(opts)
	} else {
		tx = u.db.WithContext(ctx).Begin()
	}
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	txCtx := context.WithValue(ctx, txKey, tx)

	if err := fn(txCtx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetDB extracts the transaction DB from context if present, otherwise
// returns the fallback. Repositories in this package call it on every query
// so they transparently join an open unit of work.
func GetDB(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return tx
	}
	return fallback
}
