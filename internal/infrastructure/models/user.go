package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name         string    `gorm:"type:varchar(100);not null"`
	Email        *string   `gorm:"type:varchar(255);uniqueIndex"`
	Admin        bool      `gorm:"not null;default:false"`
	ReferralCode *string   `gorm:"type:varchar(32);uniqueIndex"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

func (User) TableName() string { return "users" }
