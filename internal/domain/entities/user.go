package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// User represents a platform user. The single admin user owns the
// business (custodial) wallet.
type User struct {
	ID           uuid.UUID   `json:"id"`
	Name         string      `json:"name"`
	Email        null.String `json:"email,omitempty"`
	Admin        bool        `json:"admin"`
	ReferralCode null.String `json:"referralCode,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`

	Wallet *Wallet `json:"wallet,omitempty"`
}
