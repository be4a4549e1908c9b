package models

import (
	"time"

	"github.com/google/uuid"
)

type Chain struct {
	ID                 int64   `gorm:"primaryKey;autoIncrement:false"` // network chain id
	Name               string  `gorm:"type:varchar(100);not null"`
	ProviderURL        string  `gorm:"type:varchar(255);not null"`
	BlockProcessRange  uint64  `gorm:"not null;default:100"`
	MaxProcessRange    uint64  `gorm:"not null;default:1000"`
	AcceptedBlockState string  `gorm:"type:varchar(16);not null;default:'finalized'"`
	LastProcessedBlock *uint64 `gorm:""`
	CreatedAt          time.Time
	UpdatedAt          time.Time

	Contracts []Contract `gorm:"foreignKey:ChainID"`
}

func (Chain) TableName() string { return "chains" }

type Contract struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ChainID   int64     `gorm:"not null;index:idx_contracts_chain_token,unique"`
	Token     string    `gorm:"type:varchar(16);not null;index:idx_contracts_chain_token,unique"`
	Address   string    `gorm:"type:varchar(64);not null"`
	Decimals  *int      `gorm:""` // null until fetched from chain
	CreatedAt time.Time
}

func (Contract) TableName() string { return "contracts" }
