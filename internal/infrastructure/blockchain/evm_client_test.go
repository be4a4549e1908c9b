package blockchain

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"winmore.backend/internal/domain/entities"
)

func TestTokenDecimals_WithCallView(t *testing.T) {
	client := NewEVMClientWithCallView(big.NewInt(137), func(ctx context.Context, to string, data []byte) ([]byte, error) {
		require.Equal(t, decimalsSelector, data)
		return common.LeftPadBytes([]byte{6}, 32), nil
	})

	decimals, err := client.TokenDecimals(context.Background(), "0xusdt")
	require.NoError(t, err)
	require.EqualValues(t, 6, decimals)
}

func TestTokenDecimals_EmptyResponse(t *testing.T) {
	client := NewEVMClientWithCallView(nil, func(ctx context.Context, to string, data []byte) ([]byte, error) {
		return nil, nil
	})

	_, err := client.TokenDecimals(context.Background(), "0xusdt")
	require.Error(t, err)
}

func TestEncodeTransferCall(t *testing.T) {
	to := "0x000000000000000000000000000000000000dEaD"
	data := encodeTransferCall(to, big.NewInt(1_000_000))

	require.Len(t, data, 68)
	require.Equal(t, transferSelector, data[:4])
	require.Equal(t, common.LeftPadBytes(common.HexToAddress(to).Bytes(), 32), data[4:36])
	require.Equal(t, big.NewInt(1_000_000), new(big.Int).SetBytes(data[36:]))
}

func TestDecodeTransferLog(t *testing.T) {
	from := common.HexToAddress("0x1111111111111111111111111111111111111111")
	to := common.HexToAddress("0x2222222222222222222222222222222222222222")
	amount := big.NewInt(2_500_000) // 2.5 USDT at 6 decimals

	log := &types.Log{
		Topics:      []common.Hash{transferEventTopic, addressTopic(from), addressTopic(to)},
		Data:        common.LeftPadBytes(amount.Bytes(), 32),
		BlockNumber: 123,
		BlockHash:   common.HexToHash("0xb10c"),
		TxHash:      common.HexToHash("0xdead"),
		Index:       4,
	}

	event, err := decodeTransferLog(log, entities.TokenUSDT, 6, 137)
	require.NoError(t, err)
	require.Equal(t, from.Hex(), event.From)
	require.Equal(t, to.Hex(), event.To)
	require.True(t, event.Amount.Equal(decimal.RequireFromString("2.5")), "got %s", event.Amount)
	require.Equal(t, entities.TokenUSDT, event.Token)
	require.EqualValues(t, 137, event.ChainID)
	require.EqualValues(t, 123, event.BlockNumber)
	require.EqualValues(t, 4, event.TrxIndex)
	require.False(t, event.Removed)
}

func TestDecodeTransferLog_NotATransfer(t *testing.T) {
	log := &types.Log{
		Topics: []common.Hash{common.HexToHash("0xabcd")},
	}
	_, err := decodeTransferLog(log, entities.TokenUSDC, 6, 1)
	require.Error(t, err)
}

func TestEVMClient_IsConnected_NilClient(t *testing.T) {
	withView := NewEVMClientWithCallView(nil, func(ctx context.Context, to string, data []byte) ([]byte, error) {
		return nil, nil
	})
	require.True(t, withView.IsConnected(context.Background()))

	bare := &EVMClient{}
	require.False(t, bare.IsConnected(context.Background()))
}
