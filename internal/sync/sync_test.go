package sync

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBatchRangesSplitsOnBoundary(t *testing.T) {
	ranges := batchRanges(101, 10100, 5000)
	require.Equal(t, []blockRange{
		{start: 101, end: 5100},
		{start: 5101, end: 10100},
	}, ranges)
}

func TestBatchRangesSingleWindowWhenUnderBatchSize(t *testing.T) {
	ranges := batchRanges(1, 10, 5000)
	require.Equal(t, []blockRange{{start: 1, end: 10}}, ranges)
}

func TestBatchRangesEmptyWhenStartAfterEnd(t *testing.T) {
	ranges := batchRanges(101, 100, 5000)
	require.Empty(t, ranges)
}

func TestBatchRangesStartsFromZero(t *testing.T) {
	ranges := batchRanges(0, 10, 5000)
	require.Equal(t, []blockRange{{start: 0, end: 10}}, ranges)
}

func TestNewDefaultsBatchSize(t *testing.T) {
	s := New(nil, nil, 0)
	require.Equal(t, uint64(5000), s.batchSize)
}

func TestNewBuildsAllowlist(t *testing.T) {
	s := New(nil, []string{"InsertBid", "DeleteBid"}, 100)
	_, ok := s.allowlist["InsertBid"]
	require.True(t, ok)
	_, ok = s.allowlist["ContractAdded"]
	require.False(t, ok)
}
