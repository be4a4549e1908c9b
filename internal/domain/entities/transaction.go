package entities

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Token is a supported stablecoin.
type Token string

const (
	TokenUSDT Token = "USDT"
	TokenUSDC Token = "USDC"
)

// TransactionStatus is the ledger entry state machine:
// PENDING -> SUCCESSFUL -> REVERTED, or PENDING -> FAILED.
// REVERTED and FAILED are terminal; nothing transitions back to PENDING.
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "PENDING"
	TransactionStatusSuccessful TransactionStatus = "SUCCESSFUL"
	TransactionStatusFailed     TransactionStatus = "FAILED"
	TransactionStatusReverted   TransactionStatus = "REVERTED"
)

// CanTransitionTo encodes the legal forward edges. Everything not listed
// here is illegal, including any move back to PENDING.
func (s TransactionStatus) CanTransitionTo(to TransactionStatus) bool {
	switch s {
	case TransactionStatusPending:
		return to == TransactionStatusSuccessful || to == TransactionStatusFailed
	case TransactionStatusSuccessful:
		return to == TransactionStatusReverted
	}
	return false
}

// TransactionType classifies what moved the value.
type TransactionType string

const (
	TransactionTypeInGame     TransactionType = "INGAME"
	TransactionTypeDeposit    TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
)

// Transaction is an append-only double-entry ledger row. A wallet's balance
// for (token, chain) is the sum of SUCCESSFUL amounts where it is the
// destination minus those where it is the source. Rows are never deleted;
// only the status moves, and only forward.
type Transaction struct {
	ID            uuid.UUID          `json:"id"`
	SourceID      uuid.UUID          `json:"sourceId"`
	DestinationID uuid.UUID          `json:"destinationId"`
	Amount        decimal.Decimal    `json:"amount"`
	Token         Token              `json:"token"`
	ChainID       int64              `json:"chainId"`
	Status        TransactionStatus  `json:"status"`
	Type          TransactionType    `json:"type"`
	Remarks       TransactionRemarks `json:"remarks"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`

	Source      *Wallet        `json:"source,omitempty"`
	Destination *Wallet        `json:"destination,omitempty"`
	Log         *BlockchainLog `json:"log,omitempty"`
}

// TransactionRemarks is the typed replacement for the free-form remarks
// blob: one struct per transaction kind, with an Extra bag so callers can
// merge fields after creation (e.g. attaching a game id to a bet).
type TransactionRemarks struct {
	Description string                 `json:"description,omitempty"`
	FromUser    *uuid.UUID             `json:"fromUser,omitempty"`
	ToUser      *uuid.UUID             `json:"toUser,omitempty"`
	Bet         *BetRemarks            `json:"bet,omitempty"`
	Reward      *RewardRemarks         `json:"reward,omitempty"`
	Deposit     *DepositRemarks        `json:"deposit,omitempty"`
	Withdrawal  *WithdrawalRemarks     `json:"withdrawal,omitempty"`
	Extra       map[string]interface{} `json:"extra,omitempty"`
}

// BetRemarks annotates a bet-placement transaction.
type BetRemarks struct {
	GameKind string     `json:"gameKind,omitempty"`
	GameID   *uuid.UUID `json:"gameId,omitempty"`
}

// RewardRemarks annotates a winner-payout transaction.
type RewardRemarks struct {
	GameKind   string    `json:"gameKind"`
	GameID     uuid.UUID `json:"gameId"`
	WinnerID   uuid.UUID `json:"winnerId"`
	WinnerName string    `json:"winnerName,omitempty"`
}

// DepositRemarks annotates an on-chain deposit transaction.
type DepositRemarks struct {
	WalletAddress string `json:"walletAddress"`
	TrxHash       string `json:"trxHash"`
	TrxIndex      uint   `json:"trxIndex"`
}

// WithdrawalRemarks annotates an on-chain withdrawal transaction.
type WithdrawalRemarks struct {
	WalletAddress string `json:"walletAddress"`
	TrxHash       string `json:"trxHash,omitempty"`
}

// Merge folds additional fields into the Extra bag, keeping already-present
// keys intact (mirrors addRemarks semantics: existing remarks win).
func (r *TransactionRemarks) Merge(extra map[string]interface{}) {
	if len(extra) == 0 {
		return
	}
	if r.Extra == nil {
		r.Extra = make(map[string]interface{}, len(extra))
	}
	for k, v := range extra {
		if _, ok := r.Extra[k]; !ok {
			r.Extra[k] = v
		}
	}
}

// Value serializes remarks for storage.
func (r TransactionRemarks) MarshalBinary() ([]byte, error) {
	return json.Marshal(r)
}
