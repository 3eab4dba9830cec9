package poller

import (
	"context"
	"math/big"
	"testing"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/cobuilders/cachemanager-indexer/internal/contracts"
	"github.com/cobuilders/cachemanager-indexer/internal/store/storetest"
)

// fakeCaller answers CacheManager view calls by packing canned return
// values for whichever method the 4-byte selector in call.Data names. It
// only implements the bind.ContractBackend surface Bound.Call exercises.
type fakeCaller struct {
	getEntries   error
	entriesCalls int
}

func (f *fakeCaller) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	return []byte{0x1}, nil
}

func (f *fakeCaller) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	a := contracts.ABIFor(contracts.KindCacheManager)
	method, err := a.MethodById(call.Data[:4])
	if err != nil {
		return nil, err
	}
	switch method.Name {
	case "getMinBid":
		return method.Outputs.Pack(big.NewInt(42))
	case "getEntries":
		f.entriesCalls++
		if f.getEntries != nil {
			return nil, f.getEntries
		}
		type tuple struct {
			Code [32]byte
			Size uint64
			Bid  *big.Int
		}
		return method.Outputs.Pack([]tuple{{Size: 100, Bid: big.NewInt(7)}})
	case "decay":
		return method.Outputs.Pack(uint64(3))
	case "cacheSize":
		return method.Outputs.Pack(uint64(1000))
	case "queueSize":
		return method.Outputs.Pack(uint64(5))
	case "isPaused":
		return method.Outputs.Pack(false)
	}
	return nil, nil
}

func (f *fakeCaller) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return &types.Header{Time: 1700000000}, nil
}
func (f *fakeCaller) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return nil, nil
}
func (f *fakeCaller) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return 0, nil
}
func (f *fakeCaller) SuggestGasPrice(ctx context.Context) (*big.Int, error) { return big.NewInt(0), nil }
func (f *fakeCaller) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return big.NewInt(0), nil
}
func (f *fakeCaller) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	return 0, nil
}
func (f *fakeCaller) SendTransaction(ctx context.Context, tx *types.Transaction) error { return nil }
func (f *fakeCaller) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	return nil, nil
}
func (f *fakeCaller) SubscribeFilterLogs(ctx context.Context, query ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	return nil, nil
}

var _ bind.ContractBackend = (*fakeCaller)(nil)

func TestNewStoresSizeTiers(t *testing.T) {
	st := storetest.New()
	p := New(st, 1, 2, 3)
	require.Equal(t, uint64(1), p.smallSize)
	require.Equal(t, uint64(2), p.midSize)
	require.Equal(t, uint64(3), p.largeSize)
}

func TestGetEntriesWithRetryFallsBackToNilOnRepeatedError(t *testing.T) {
	backend := &fakeCaller{getEntries: context.DeadlineExceeded}
	cacheManager := contracts.NewBound(contracts.KindCacheManager, common.HexToAddress("0x1"), backend)

	start := time.Now()
	entries := getEntriesWithRetry(context.Background(), cacheManager, "test-chain")
	require.Nil(t, entries)
	require.Equal(t, 2, backend.entriesCalls)
	require.GreaterOrEqual(t, time.Since(start), time.Second)
}

func TestGetEntriesWithRetrySucceedsOnFirstAttempt(t *testing.T) {
	backend := &fakeCaller{}
	cacheManager := contracts.NewBound(contracts.KindCacheManager, common.HexToAddress("0x1"), backend)

	entries := getEntriesWithRetry(context.Background(), cacheManager, "test-chain")
	require.Len(t, entries, 1)
	require.Equal(t, uint64(100), entries[0].Size)
	require.Equal(t, 1, backend.entriesCalls)
}
