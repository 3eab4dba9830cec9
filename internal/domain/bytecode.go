package domain

import (
	"math/big"
	"time"

	"github.com/google/uuid"
)

// Bytecode is the per-chain derived cache entry, keyed by bytecodeHash.
// Created on the first InsertBid; never deleted (spec §3).
type Bytecode struct {
	ChainID      uuid.UUID
	BytecodeHash [32]byte

	Size uint64

	IsCached bool

	// LastBid is the decay-adjusted ("actual") bid in wei.
	LastBid *big.Int
	// BidPlusDecay is the raw bid as emitted, in wei.
	BidPlusDecay *big.Int
	// LastEvictionBid is the bid value recorded at the most recent
	// DeleteBid, or nil if the entry has never been evicted.
	LastEvictionBid *big.Int
	// TotalBidInvestment is the monotonic sum of actual bids across every
	// InsertBid ever applied to this hash.
	TotalBidInvestment *big.Int

	BidBlockNumber    uint64
	BidBlockTimestamp time.Time
}

// Contract is the per-chain derived view keyed by contract address,
// referencing exactly one Bytecode. Created lazily by InsertBid or by an
// automation event.
type Contract struct {
	ChainID uuid.UUID
	Address [20]byte

	BytecodeHash [32]byte

	Size                uint64
	IsCached            bool
	LastBid             *big.Int
	BidPlusDecay        *big.Int
	LastEvictionBid     *big.Int
	TotalBidInvestment  *big.Int
	BidBlockNumber      uint64
	BidBlockTimestamp   time.Time

	// MaxBid is the automation-configured ceiling bid, set by
	// ContractAdded/ContractUpdated.
	MaxBid *big.Int
	// IsAutomated is set true by ContractAdded and never reset to false
	// by ContractUpdated (spec §4.7d).
	IsAutomated bool
}
