package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Transaction struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SourceID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	DestinationID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount        decimal.Decimal `gorm:"type:decimal(38,18);not null"`
	Token         string          `gorm:"type:varchar(16);not null;index"`
	ChainID       int64           `gorm:"not null;index"`
	Status        string          `gorm:"type:varchar(16);not null;index"`
	Type          string          `gorm:"type:varchar(16);not null;index"`
	Remarks       string          `gorm:"type:jsonb;default:'{}'"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Source      *Wallet `gorm:"foreignKey:SourceID"`
	Destination *Wallet `gorm:"foreignKey:DestinationID"`
}

func (Transaction) TableName() string { return "transactions" }
