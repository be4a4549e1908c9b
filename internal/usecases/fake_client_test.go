package usecases

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"winmore.backend/internal/domain/entities"
	"winmore.backend/internal/infrastructure/blockchain"
)

// fakeChainClient is a scriptable blockchain.Client. Every behavior has a
// sane default so tests override only what they exercise.
type fakeChainClient struct {
	mu sync.Mutex

	chainID   int64
	connected bool

	head          uint64
	finalizedHead uint64
	hashFn        func(number uint64) string
	filterFn      func(fromBlock, toBlock uint64) ([]entities.TransferEvent, error)
	decimals      uint8
	pendingNonce  uint64
	sendFn        func(req blockchain.TransferRequest) (*blockchain.SubmittedTransfer, error)
	receiptFn     func(trxHash string) (*blockchain.TransferOutcome, error)

	sent []blockchain.TransferRequest
}

func newFakeChainClient(chainID int64) *fakeChainClient {
	return &fakeChainClient{
		chainID:   chainID,
		connected: true,
		decimals:  6,
		hashFn:    func(number uint64) string { return fmt.Sprintf("0xhash%d", number) },
	}
}

func (c *fakeChainClient) ChainID() *big.Int { return big.NewInt(c.chainID) }

func (c *fakeChainClient) IsConnected(ctx context.Context) bool { return c.connected }

func (c *fakeChainClient) BlockByTag(ctx context.Context, tag entities.BlockStatus) (uint64, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	number := c.head
	if tag == entities.BlockStatusFinalized {
		number = c.finalizedHead
	}
	return number, c.hashFn(number), nil
}

func (c *fakeChainClient) BlockHash(ctx context.Context, number uint64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hashFn(number), nil
}

func (c *fakeChainClient) FilterTransfers(ctx context.Context, contract string, token entities.Token, decimals int32, fromBlock, toBlock uint64, recipient string) ([]entities.TransferEvent, error) {
	c.mu.Lock()
	filter := c.filterFn
	c.mu.Unlock()
	if filter == nil {
		return nil, nil
	}
	return filter(fromBlock, toBlock)
}

func (c *fakeChainClient) TokenDecimals(ctx context.Context, contract string) (uint8, error) {
	return c.decimals, nil
}

func (c *fakeChainClient) PendingNonce(ctx context.Context, address string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingNonce, nil
}

func (c *fakeChainClient) SendTokenTransfer(ctx context.Context, req blockchain.TransferRequest) (*blockchain.SubmittedTransfer, error) {
	c.mu.Lock()
	send := c.sendFn
	c.sent = append(c.sent, req)
	c.mu.Unlock()
	if send != nil {
		return send(req)
	}
	return &blockchain.SubmittedTransfer{
		TrxHash:  fmt.Sprintf("0xsent%d", req.Nonce),
		GasPrice: "1000000000",
		Nonce:    req.Nonce,
	}, nil
}

func (c *fakeChainClient) TransferReceipt(ctx context.Context, trxHash string) (*blockchain.TransferOutcome, error) {
	c.mu.Lock()
	receipt := c.receiptFn
	c.mu.Unlock()
	if receipt != nil {
		return receipt(trxHash)
	}
	return &blockchain.TransferOutcome{
		Found:       true,
		Successful:  true,
		BlockNumber: 500,
		BlockHash:   "0xhash500",
		TrxIndex:    1,
		GasUsed:     52000,
	}, nil
}

func (c *fakeChainClient) Close() {}

func (c *fakeChainClient) sentRequests() []blockchain.TransferRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]blockchain.TransferRequest, len(c.sent))
	copy(out, c.sent)
	return out
}
