package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
)

// Block is a deduped (chainId, number) record of an observed block.
type Block struct {
	ID        uuid.UUID   `json:"id"`
	ChainID   int64       `json:"chainId"`
	Number    uint64      `json:"number"`
	Hash      string      `json:"hash"`
	Status    BlockStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
}

// BlockchainLog records a decoded on-chain token transfer — a detected
// deposit or a submitted withdrawal. Rows are created once and only touched
// again to attach the finalization outcome.
type BlockchainLog struct {
	ID            uuid.UUID       `json:"id"`
	From          string          `json:"from"`
	To            string          `json:"to"`
	Token         Token           `json:"token"`
	Amount        decimal.Decimal `json:"amount"`
	ChainID       int64           `json:"chainId"`
	BlockID       *uuid.UUID      `json:"blockId,omitempty"`
	TrxHash       string          `json:"trxHash"`
	TrxIndex      uint            `json:"trxIndex"`
	Nonce         null.Uint64     `json:"nonce,omitempty"`
	GasPrice      null.String     `json:"gasPrice,omitempty"`
	GasUsed       null.Uint64     `json:"gasUsed,omitempty"`
	Successful    bool            `json:"successful"`
	TransactionID *uuid.UUID      `json:"transactionId,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`

	Block *Block `json:"block,omitempty"`
}

// TransferEvent is a decoded ERC20 Transfer log as read off the wire,
// before any persistence.
type TransferEvent struct {
	From        string
	To          string
	Amount      decimal.Decimal
	Token       Token
	ChainID     int64
	BlockNumber uint64
	BlockHash   string
	TrxHash     string
	TrxIndex    uint
	Removed     bool
}
