package models

import (
	"time"

	"github.com/google/uuid"
)

type Wallet struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	OwnerID   *uuid.UUID `gorm:"type:uuid;uniqueIndex"` // null for no one; unique: one wallet per user
	Address   string     `gorm:"type:varchar(64);not null;uniqueIndex"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Owner *User `gorm:"foreignKey:OwnerID"`
}

func (Wallet) TableName() string { return "wallets" }
