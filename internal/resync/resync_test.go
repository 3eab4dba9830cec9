package resync

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLookbackStartSubtracts(t *testing.T) {
	require.Equal(t, uint64(900), lookbackStart(1000, 100))
}

func TestLookbackStartFloorsAtZero(t *testing.T) {
	require.Equal(t, uint64(0), lookbackStart(50, 100))
	require.Equal(t, uint64(0), lookbackStart(100, 100))
}

func TestNewDefaultsBlocksBack(t *testing.T) {
	r := New(nil, nil, 0)
	require.Equal(t, uint64(100), r.blocksBack)
}
