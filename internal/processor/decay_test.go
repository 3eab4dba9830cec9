package processor

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestActualBidDecaySubtraction(t *testing.T) {
	// spec §8 S2: bidValue=2e18, T=1000, decayRate=1e12 -> decayAmount=1e15
	bidValue, _ := new(big.Int).SetString("2000000000000000000", 10)
	decayRate, _ := new(big.Int).SetString("1000000000000", 10)

	amount := applicableDecayAmount(1000, decayRate)
	require.Equal(t, "1000000000000000", amount.String())

	got := actualBid(bidValue, amount)
	require.Equal(t, "1999000000000000000", got.String())
}

func TestActualBidSaturatesAtZero(t *testing.T) {
	// spec §8 S3: decayAmount (3e18) exceeds bidValue (2e18) -> actualBid=0
	bidValue, _ := new(big.Int).SetString("2000000000000000000", 10)
	decayRate, _ := new(big.Int).SetString("3000000000000000", 10)

	amount := applicableDecayAmount(1000, decayRate)
	got := actualBid(bidValue, amount)
	require.Equal(t, big.NewInt(0), got)
}

func TestActualBidZeroDecayRate(t *testing.T) {
	// spec §8 S1: decayRate=0 means actualBid == bidValue exactly.
	bidValue, _ := new(big.Int).SetString("1000000000000000000", 10)
	amount := applicableDecayAmount(1700000000, big.NewInt(0))
	require.Equal(t, big.NewInt(0), amount)
	require.Equal(t, bidValue, actualBid(bidValue, amount))
}
