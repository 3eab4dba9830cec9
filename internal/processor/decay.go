package processor

import "math/big"

// applicableDecayAmount computes decayAmount = T * decayRate, the
// wei-per-second accrual since a bid was placed (spec §4.7a step 2).
func applicableDecayAmount(timestampUnix int64, decayRate *big.Int) *big.Int {
	t := big.NewInt(timestampUnix)
	return new(big.Int).Mul(t, decayRate)
}

// actualBid computes max(0, bidValue - decayAmount). Saturation at zero is
// mandatory: the contract's raw bid minus accrued decay must never go
// negative in stored state (spec §4.7a step 2, property test 5).
func actualBid(bidValue, decayAmount *big.Int) *big.Int {
	diff := new(big.Int).Sub(bidValue, decayAmount)
	if diff.Sign() < 0 {
		return big.NewInt(0)
	}
	return diff
}
