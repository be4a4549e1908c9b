package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Block struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ChainID   int64     `gorm:"not null;index:idx_blocks_chain_number,unique"`
	Number    uint64    `gorm:"not null;index:idx_blocks_chain_number,unique"`
	Hash      string    `gorm:"type:varchar(66);not null"`
	Status    string    `gorm:"type:varchar(16);not null"`
	CreatedAt time.Time
}

func (Block) TableName() string { return "blocks" }

// BlockchainLog dedupes deposits on (chain_id, trx_hash, trx_index): a
// replayed transfer log hits the unique index instead of a second credit.
type BlockchainLog struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	From          string          `gorm:"column:from_address;type:varchar(64);not null;index"`
	To            string          `gorm:"column:to_address;type:varchar(64);not null"`
	Token         string          `gorm:"type:varchar(16);not null"`
	Amount        decimal.Decimal `gorm:"type:decimal(38,18);not null"`
	ChainID       int64           `gorm:"not null;index:idx_logs_chain_trx,unique"`
	TrxHash       string          `gorm:"type:varchar(66);not null;index:idx_logs_chain_trx,unique"`
	TrxIndex      uint            `gorm:"not null;index:idx_logs_chain_trx,unique"`
	BlockID       *uuid.UUID      `gorm:"type:uuid;index"`
	Nonce         *uint64         `gorm:""`
	GasPrice      *string         `gorm:"type:varchar(100)"`
	GasUsed       *uint64         `gorm:""`
	Successful    bool            `gorm:"not null;default:true"`
	TransactionID *uuid.UUID      `gorm:"type:uuid;index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Block       *Block       `gorm:"foreignKey:BlockID"`
	Transaction *Transaction `gorm:"foreignKey:TransactionID"`
}

func (BlockchainLog) TableName() string { return "blockchain_logs" }
