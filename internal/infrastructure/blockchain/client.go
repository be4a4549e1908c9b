package blockchain

import (
	"context"
	"math/big"

	"winmore.backend/internal/domain/entities"
)

// TransferRequest describes one outgoing ERC20 transfer from the custodial
// wallet. Amount is in base token units (already scaled by decimals).
type TransferRequest struct {
	Contract   string
	PrivateKey string
	To         string
	Amount     *big.Int
	Nonce      uint64
}

// SubmittedTransfer is what the node accepted: the hash to poll and the gas
// price the transaction was signed with.
type SubmittedTransfer struct {
	TrxHash  string
	GasPrice string
	Nonce    uint64
}

// TransferOutcome is a mined transfer's receipt, Found=false while the
// transaction is still in the mempool.
type TransferOutcome struct {
	Found       bool
	Successful  bool
	BlockNumber uint64
	BlockHash   string
	TrxIndex    uint
	GasUsed     uint64
}

// Client is the chain-facing surface the deposit scanner and the withdrawal
// submitter depend on.
type Client interface {
	ChainID() *big.Int
	IsConnected(ctx context.Context) bool

	// BlockByTag resolves a finality tag to a concrete (number, hash).
	BlockByTag(ctx context.Context, tag entities.BlockStatus) (uint64, string, error)
	BlockHash(ctx context.Context, number uint64) (string, error)

	// FilterTransfers returns decoded ERC20 Transfer events of the contract
	// within [fromBlock, toBlock], restricted to the given recipient.
	FilterTransfers(ctx context.Context, contract string, token entities.Token, decimals int32, fromBlock, toBlock uint64, recipient string) ([]entities.TransferEvent, error)

	TokenDecimals(ctx context.Context, contract string) (uint8, error)
	PendingNonce(ctx context.Context, address string) (uint64, error)

	SendTokenTransfer(ctx context.Context, req TransferRequest) (*SubmittedTransfer, error)
	TransferReceipt(ctx context.Context, trxHash string) (*TransferOutcome, error)

	Close()
}
