package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// BlockStatus is the finality tag a chain is scanned at. Chains configured
// with BlockStatusLatest are subject to reorgs and get a reversal sweep;
// safe/finalized chains are credited once only.
type BlockStatus string

const (
	BlockStatusLatest    BlockStatus = "latest"
	BlockStatusSafe      BlockStatus = "safe"
	BlockStatusFinalized BlockStatus = "finalized"
)

// Chain is a supported EVM network plus the scanner's persisted cursor.
// ID is the network chain id (1, 137, ...), not a surrogate key.
type Chain struct {
	ID                 int64       `json:"id"`
	Name               string      `json:"name"`
	ProviderURL        string      `json:"providerUrl"`
	BlockProcessRange  uint64      `json:"blockProcessRange"`
	MaxProcessRange    uint64      `json:"maxProcessRange"`
	AcceptedBlockState BlockStatus `json:"acceptedBlockStatus"`
	LastProcessedBlock null.Uint64 `json:"lastProcessedBlock"`
	CreatedAt          time.Time   `json:"createdAt"`
	UpdatedAt          time.Time   `json:"updatedAt"`

	Contracts []*Contract `json:"contracts,omitempty"`
}

// Contract is a token contract tracked on a chain. Decimals start null and
// are fetched from the chain once, then cached.
type Contract struct {
	ID        uuid.UUID `json:"id"`
	ChainID   int64     `json:"chainId"`
	Token     Token     `json:"token"`
	Address   string    `json:"address"`
	Decimals  null.Int  `json:"decimals"`
	CreatedAt time.Time `json:"createdAt"`
}
