package domain

import (
	"math/big"
	"time"

	"github.com/google/uuid"
)

// BlockchainState is a periodic on-chain parameter snapshot (component C6).
// The latest row per chain is the authoritative current parameter set.
type BlockchainState struct {
	ID      uuid.UUID
	ChainID uuid.UUID

	BlockNumber    uint64
	BlockTimestamp time.Time

	CacheSize *big.Int
	QueueSize *big.Int
	DecayRate *big.Int
	IsPaused  bool

	MinBidSmall *big.Int
	MinBidMid   *big.Int
	MinBidLarge *big.Int

	TotalContractsCached uint64
}
