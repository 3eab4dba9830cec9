package processor

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/cobuilders/cachemanager-indexer/internal/domain"
	"github.com/cobuilders/cachemanager-indexer/internal/indexererr"
	"github.com/cobuilders/cachemanager-indexer/internal/notify"
	"github.com/cobuilders/cachemanager-indexer/internal/store/storetest"
)

var (
	testHash    = "0x" + strings.Repeat("ab", 32)
	testAddress = "0x" + strings.Repeat("01", 20)
)

func newEvent(chainID uuid.UUID, name string, block uint64, logIndex uint, ts int64, realtime bool, args ...string) *domain.BlockchainEvent {
	data := make(domain.EventArgs, len(args))
	for i, v := range args {
		data[i] = domain.Arg{Name: "", Value: v}
	}
	return &domain.BlockchainEvent{
		ID:              uuid.New(),
		ChainID:         chainID,
		ContractName:    domain.CacheManager,
		ContractAddress: common.HexToAddress(testAddress),
		EventName:       name,
		BlockNumber:     block,
		BlockTimestamp:  time.Unix(ts, 0).UTC(),
		TransactionHash: common.HexToHash("0x01"),
		LogIndex:        logIndex,
		IsRealTime:      realtime,
		EventData:       data,
	}
}

// TestInsertBidThenDeleteBid mirrors spec scenario S1: InsertBid then
// DeleteBid for the same hash with decayRate=0.
func TestInsertBidThenDeleteBid(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	chainID := uuid.New()
	require.NoError(t, fake.Insert(ctx, &domain.Chain{ID: chainID, Name: "test"}))

	insert := newEvent(chainID, "InsertBid", 100, 0, 1700000000, false,
		testHash, testAddress, "1000000000000000000", "1024")
	del := newEvent(chainID, "DeleteBid", 200, 0, 1700000100, false,
		testHash, "500000000000000000", "1024")

	_, err := fake.StoreEvents(ctx, []*domain.BlockchainEvent{insert, del})
	require.NoError(t, err)

	eng := New(fake, notify.New(), chainID)
	require.NoError(t, eng.drain(ctx))

	hash, ok := parseHash32(testHash)
	require.True(t, ok)
	bc, found, err := fake.GetBytecode(ctx, chainID, hash)
	require.NoError(t, err)
	require.True(t, found)

	require.False(t, bc.IsCached)
	require.Equal(t, "1000000000000000000", bc.LastBid.String())
	require.Equal(t, "1000000000000000000", bc.BidPlusDecay.String())
	require.Equal(t, "1000000000000000000", bc.TotalBidInvestment.String())
	require.Equal(t, "500000000000000000", bc.LastEvictionBid.String())
	require.Equal(t, uint64(1024), bc.Size)
}

// TestInsertBidColdStart mirrors spec scenario S6: a fresh store, one
// InsertBid, decayRate=0.
func TestInsertBidColdStart(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	chainID := uuid.New()
	require.NoError(t, fake.Insert(ctx, &domain.Chain{ID: chainID, Name: "test"}))

	insert := newEvent(chainID, "InsertBid", 10, 0, 1700000000, false,
		testHash, testAddress, "42", "99")
	_, err := fake.StoreEvents(ctx, []*domain.BlockchainEvent{insert})
	require.NoError(t, err)

	eng := New(fake, notify.New(), chainID)
	require.NoError(t, eng.drain(ctx))

	hash, _ := parseHash32(testHash)
	bc, found, err := fake.GetBytecode(ctx, chainID, hash)
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, bc.IsCached)
	require.Equal(t, "42", bc.LastBid.String())

	addr, _ := parseAddress20(testAddress)
	c, found, err := fake.GetContract(ctx, chainID, addr)
	require.NoError(t, err)
	require.True(t, found)
	require.False(t, c.IsAutomated)

	lastProcessed, err := fake.GetLastProcessedBlock(ctx, chainID)
	require.NoError(t, err)
	require.Equal(t, uint64(10), lastProcessed)
}

// TestDeleteBidWithoutPriorInsertIsIntegrityViolation exercises the
// required-row guard of spec §4.7b: the violation halts drain and the
// cursor is left pointing before the offending event, not past it.
func TestDeleteBidWithoutPriorInsertIsIntegrityViolation(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	chainID := uuid.New()
	require.NoError(t, fake.Insert(ctx, &domain.Chain{ID: chainID, Name: "test"}))

	del := newEvent(chainID, "DeleteBid", 5, 0, 1700000000, false,
		testHash, "1", "1")
	_, err := fake.StoreEvents(ctx, []*domain.BlockchainEvent{del})
	require.NoError(t, err)

	eng := New(fake, notify.New(), chainID)
	err = eng.drain(ctx)
	require.Error(t, err)
	require.Equal(t, indexererr.IntegrityViolation, indexererr.CodeOf(err))

	lastProcessed, err := fake.GetLastProcessedBlock(ctx, chainID)
	require.NoError(t, err)
	require.Equal(t, uint64(0), lastProcessed, "cursor must not advance past the unresolved event")
}

// TestInvalidEventDataIsSkippedNotFatal covers the shape-guard behavior of
// spec §4.7: malformed eventData is logged and skipped, not fatal.
func TestInvalidEventDataIsSkippedNotFatal(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	chainID := uuid.New()
	require.NoError(t, fake.Insert(ctx, &domain.Chain{ID: chainID, Name: "test"}))

	bad := newEvent(chainID, "InsertBid", 1, 0, 1700000000, false, "not-a-hash")
	good := newEvent(chainID, "InsertBid", 2, 0, 1700000000, false,
		testHash, testAddress, "10", "10")
	_, err := fake.StoreEvents(ctx, []*domain.BlockchainEvent{bad, good})
	require.NoError(t, err)

	eng := New(fake, notify.New(), chainID)
	require.NoError(t, eng.drain(ctx))

	hash, _ := parseHash32(testHash)
	bc, found, err := fake.GetBytecode(ctx, chainID, hash)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "10", bc.LastBid.String())
}
