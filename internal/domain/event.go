package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Arg is one positional, decoded event argument. Value is always a string:
// addresses and hashes are hex, large integers are decimal strings so the
// processor can round-trip them through *big.Int without precision loss.
type Arg struct {
	Name  string
	Value string
}

// EventArgs is the ordered decoded argument sequence for one log, per spec
// §4.2 ("decoded arguments are stored as an ordered sequence").
type EventArgs []Arg

// Get returns the value of the i-th positional argument, or "" if out of
// range. Handlers validate shape before indexing (see internal/processor).
func (a EventArgs) Get(i int) string {
	if i < 0 || i >= len(a) {
		return ""
	}
	return a[i].Value
}

// BlockchainEvent is one canonical, stored occurrence of a CacheManager or
// CacheManagerAutomation event.
type BlockchainEvent struct {
	ID uuid.UUID

	ChainID uuid.UUID

	ContractName    ContractKind
	ContractAddress common.Address
	EventName       string

	BlockNumber     uint64
	BlockTimestamp  time.Time
	TransactionHash common.Hash
	LogIndex        uint

	// IsRealTime is true once any realtime delivery of this event has been
	// observed. It is monotone: historical ingestion must never reset it
	// to false (spec §8 property 2).
	IsRealTime bool

	EventData EventArgs
}

// Key is the idempotency key of spec §3: uniqueness on
// (chain, transactionHash, logIndex, eventName).
type Key struct {
	ChainID         uuid.UUID
	TransactionHash common.Hash
	LogIndex        uint
	EventName       string
}

func (e *BlockchainEvent) Key() Key {
	return Key{
		ChainID:         e.ChainID,
		TransactionHash: e.TransactionHash,
		LogIndex:        e.LogIndex,
		EventName:       e.EventName,
	}
}
