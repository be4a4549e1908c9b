package blockchain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/shopspring/decimal"
	"winmore.backend/internal/domain/entities"
)

var (
	dialEVMClient    = ethclient.Dial
	getClientChainID = func(client *ethclient.Client, ctx context.Context) (*big.Int, error) {
		return client.ChainID(ctx)
	}

	// Transfer(address,address,uint256)
	transferEventTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

	// transfer(address,uint256) and decimals() selectors
	transferSelector = common.Hex2Bytes("a9059cbb")
	decimalsSelector = common.Hex2Bytes("313ce567")
)

// EVMClient provides EVM blockchain interaction
type EVMClient struct {
	client  *ethclient.Client
	chainID *big.Int
	rpcURL  string
	// testCallView allows deterministic unit tests without network sockets.
	testCallView func(ctx context.Context, to string, data []byte) ([]byte, error)
}

// NewEVMClient creates a new EVM client
func NewEVMClient(rpcURL string) (*EVMClient, error) {
	client, err := dialEVMClient(rpcURL)
	if err != nil {
		return nil, err
	}

	chainID, err := getClientChainID(client, context.Background())
	if err != nil {
		return nil, err
	}

	return &EVMClient{
		client:  client,
		chainID: chainID,
		rpcURL:  rpcURL,
	}, nil
}

// NewEVMClientWithCallView creates an EVM client that uses an injected CallView
// implementation. This is intended for unit tests where RPC sockets are
// unavailable.
func NewEVMClientWithCallView(chainID *big.Int, callViewFn func(ctx context.Context, to string, data []byte) ([]byte, error)) *EVMClient {
	if chainID == nil {
		chainID = big.NewInt(1)
	}
	return &EVMClient{
		chainID:      chainID,
		testCallView: callViewFn,
	}
}

// ChainID returns the chain ID
func (c *EVMClient) ChainID() *big.Int {
	return c.chainID
}

// IsConnected reports whether the node answers a chain id request
func (c *EVMClient) IsConnected(ctx context.Context) bool {
	if c.client == nil {
		return c.testCallView != nil
	}
	_, err := c.client.ChainID(ctx)
	return err == nil
}

// BlockByTag resolves a finality tag to the node's current (number, hash)
// for that tag.
func (c *EVMClient) BlockByTag(ctx context.Context, tag entities.BlockStatus) (uint64, string, error) {
	var number *big.Int
	switch tag {
	case entities.BlockStatusSafe:
		number = big.NewInt(int64(rpc.SafeBlockNumber))
	case entities.BlockStatusFinalized:
		number = big.NewInt(int64(rpc.FinalizedBlockNumber))
	case entities.BlockStatusLatest:
		number = big.NewInt(int64(rpc.LatestBlockNumber))
	default:
		return 0, "", fmt.Errorf("unknown block tag %q", tag)
	}

	header, err := c.client.HeaderByNumber(ctx, number)
	if err != nil {
		return 0, "", err
	}
	return header.Number.Uint64(), header.Hash().Hex(), nil
}

// BlockHash returns the hash of a block by number
func (c *EVMClient) BlockHash(ctx context.Context, number uint64) (string, error) {
	header, err := c.client.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return "", err
	}
	return header.Hash().Hex(), nil
}

// FilterTransfers returns the contract's Transfer events to the recipient
// within [fromBlock, toBlock], amounts already scaled to token units.
func (c *EVMClient) FilterTransfers(ctx context.Context, contract string, token entities.Token, decimals int32, fromBlock, toBlock uint64, recipient string) ([]entities.TransferEvent, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{common.HexToAddress(contract)},
		Topics: [][]common.Hash{
			{transferEventTopic},
			nil,
			{addressTopic(common.HexToAddress(recipient))},
		},
	}

	logs, err := c.client.FilterLogs(ctx, query)
	if err != nil {
		return nil, err
	}

	events := make([]entities.TransferEvent, 0, len(logs))
	for i := range logs {
		event, err := decodeTransferLog(&logs[i], token, decimals, c.chainID.Int64())
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

// TokenDecimals reads the contract's decimals() value
func (c *EVMClient) TokenDecimals(ctx context.Context, contract string) (uint8, error) {
	result, err := c.CallView(ctx, contract, decimalsSelector)
	if err != nil {
		return 0, err
	}
	if len(result) == 0 {
		return 0, fmt.Errorf("empty decimals() response from %s", contract)
	}
	return uint8(new(big.Int).SetBytes(result).Uint64()), nil
}

// PendingNonce returns the node's pending nonce for an address
func (c *EVMClient) PendingNonce(ctx context.Context, address string) (uint64, error) {
	return c.client.PendingNonceAt(ctx, common.HexToAddress(address))
}

// SendTokenTransfer signs and broadcasts an ERC20 transfer from the key's
// address. The caller owns nonce assignment; the node is only asked for gas.
func (c *EVMClient) SendTokenTransfer(ctx context.Context, req TransferRequest) (*SubmittedTransfer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(req.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid signing key: %w", err)
	}
	from := crypto.PubkeyToAddress(key.PublicKey)
	contract := common.HexToAddress(req.Contract)
	data := encodeTransferCall(req.To, req.Amount)

	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas price: %w", err)
	}

	gasLimit, err := c.client.EstimateGas(ctx, ethereum.CallMsg{
		From: from,
		To:   &contract,
		Data: data,
	})
	if err != nil {
		return nil, fmt.Errorf("estimate gas: %w", err)
	}

	tx := types.NewTransaction(req.Nonce, contract, big.NewInt(0), gasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), key)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}

	if err := c.client.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("broadcast transaction: %w", err)
	}

	return &SubmittedTransfer{
		TrxHash:  signed.Hash().Hex(),
		GasPrice: gasPrice.String(),
		Nonce:    req.Nonce,
	}, nil
}

// TransferReceipt polls the receipt of a broadcast transfer. Not-yet-mined
// is not an error; it comes back with Found=false.
func (c *EVMClient) TransferReceipt(ctx context.Context, trxHash string) (*TransferOutcome, error) {
	receipt, err := c.client.TransactionReceipt(ctx, common.HexToHash(trxHash))
	if err != nil {
		if err == ethereum.NotFound {
			return &TransferOutcome{}, nil
		}
		return nil, err
	}
	return &TransferOutcome{
		Found:       true,
		Successful:  receipt.Status == types.ReceiptStatusSuccessful,
		BlockNumber: receipt.BlockNumber.Uint64(),
		BlockHash:   receipt.BlockHash.Hex(),
		TrxIndex:    receipt.TransactionIndex,
		GasUsed:     receipt.GasUsed,
	}, nil
}

// CallView executes a read-only contract call
func (c *EVMClient) CallView(ctx context.Context, to string, data []byte) ([]byte, error) {
	if c.testCallView != nil {
		return c.testCallView(ctx, to, data)
	}
	addr := common.HexToAddress(to)
	msg := ethereum.CallMsg{
		To:   &addr,
		Data: data,
	}
	return c.client.CallContract(ctx, msg, nil)
}

// Close closes the client connection
func (c *EVMClient) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// encodeTransferCall builds transfer(to, amount) calldata
func encodeTransferCall(to string, amount *big.Int) []byte {
	data := make([]byte, 0, 4+32+32)
	data = append(data, transferSelector...)
	data = append(data, common.LeftPadBytes(common.HexToAddress(to).Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(amount.Bytes(), 32)...)
	return data
}

// addressTopic left-pads an address to the 32-byte topic form indexed
// address parameters are stored in.
func addressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(common.LeftPadBytes(addr.Bytes(), 32))
}

// decodeTransferLog turns a raw Transfer log into a TransferEvent, scaling
// the uint256 amount down by the token's decimals.
func decodeTransferLog(l *types.Log, token entities.Token, decimals int32, chainID int64) (entities.TransferEvent, error) {
	if len(l.Topics) != 3 || l.Topics[0] != transferEventTopic {
		return entities.TransferEvent{}, fmt.Errorf("log %s:%d is not an ERC20 Transfer", l.TxHash.Hex(), l.Index)
	}
	raw := new(big.Int).SetBytes(l.Data)
	return entities.TransferEvent{
		From:        common.BytesToAddress(l.Topics[1].Bytes()).Hex(),
		To:          common.BytesToAddress(l.Topics[2].Bytes()).Hex(),
		Amount:      decimal.NewFromBigInt(raw, -decimals),
		Token:       token,
		ChainID:     chainID,
		BlockNumber: l.BlockNumber,
		BlockHash:   l.BlockHash.Hex(),
		TrxHash:     l.TxHash.Hex(),
		TrxIndex:    l.Index,
		Removed:     l.Removed,
	}, nil
}
