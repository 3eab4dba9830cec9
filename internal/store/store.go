// Package store defines the persistence contract of Event Storage
// (component C2) and the read-side repositories the (external) API layer
// would consume. internal/store/pg implements it over pgx/v5; tests use
// internal/store/storetest's in-memory fake.
package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/cobuilders/cachemanager-indexer/internal/domain"
)

// StoreResult is the outcome of a storeEvents batch (spec §4.2).
type StoreResult struct {
	SuccessCount int
	ErrorCount   int
	TotalEvents  int
}

// Chains is the read/write surface over the Chain table.
type Chains interface {
	// Get returns the chain row, or (nil, false) if none matches.
	Get(ctx context.Context, id uuid.UUID) (*domain.Chain, bool, error)
	// FindByChainIDAndRPCURL supports the bootstrap upsert key of spec §4.9.
	FindByChainIDAndRPCURL(ctx context.Context, chainID uint64, rpcURL string) (*domain.Chain, bool, error)
	// Insert creates a new chain row; bootstrap never updates an existing one.
	Insert(ctx context.Context, c *domain.Chain) error
	// List returns every configured chain, enabled or not.
	List(ctx context.Context) ([]*domain.Chain, error)

	// GetLastSyncedBlock returns the ingestion cursor (0 if never synced).
	GetLastSyncedBlock(ctx context.Context, chainID uuid.UUID) (uint64, error)
	// UpdateLastSyncedBlock advances the ingestion cursor. A non-monotonic
	// call is a soft warning, not an error (spec §4.2).
	UpdateLastSyncedBlock(ctx context.Context, chainID uuid.UUID, n uint64) error

	// GetLastProcessedBlock returns the derivation cursor.
	GetLastProcessedBlock(ctx context.Context, chainID uuid.UUID) (uint64, error)
	// UpdateLastProcessedBlock advances the derivation cursor.
	UpdateLastProcessedBlock(ctx context.Context, chainID uuid.UUID, n uint64) error
}

// Events is the Event Storage surface of spec §4.2.
type Events interface {
	// StoreEvents persists records with per-record isolation: each record
	// gets its own transaction, a unique-violation is resolved per the
	// realtime-flag monotonicity rule, and any other error only rolls back
	// that one record.
	StoreEvents(ctx context.Context, records []*domain.BlockchainEvent) (StoreResult, error)

	// StreamAfter returns events for chainID strictly after
	// (afterBlock, afterLogIndex) in (blockNumber, logIndex) order, the
	// feed the Event Processor consumes.
	StreamAfter(ctx context.Context, chainID uuid.UUID, afterBlock uint64, afterLogIndex uint, limit int) ([]*domain.BlockchainEvent, error)

	// ExistsByKey reports whether an event with this idempotency key is
	// already stored, used by the Real-Time Listener's DB-level dedup.
	ExistsByKey(ctx context.Context, key domain.Key) (bool, error)

	// DecayRateBefore returns the decayRate from the most recent
	// SetDecayRate event at (blockNumber, logIndex) <= the given position,
	// or ("", false) if none exists (spec §3 decay-rate change log).
	DecayRateBefore(ctx context.Context, chainID uuid.UUID, blockNumber uint64, logIndex uint) (string, bool, error)
}

// State is the BlockchainState snapshot surface of component C6.
type State interface {
	InsertSnapshot(ctx context.Context, s *domain.BlockchainState) error
	Latest(ctx context.Context, chainID uuid.UUID) (*domain.BlockchainState, bool, error)
}

// Derived is the Bytecode/Contract read-write surface the Event Processor
// (component C7) uses. Each method is its own statement; there is no
// transaction spanning the several calls one event's handler makes.
type Derived interface {
	// UpsertBytecodeForInsertBid applies §4.7a's bytecode-row effects and
	// returns the row after the update.
	UpsertBytecodeForInsertBid(ctx context.Context, chainID uuid.UUID, hash [32]byte, size uint64, actualBid, rawBid string, blockNumber uint64, blockTimestampUnix int64) (*domain.Bytecode, error)

	// UpsertContractForInsertBid applies the same math to the per-contract
	// row, linking it to bytecodeHash.
	UpsertContractForInsertBid(ctx context.Context, chainID uuid.UUID, address [20]byte, bytecodeHash [32]byte, size uint64, actualBid, rawBid string, blockNumber uint64, blockTimestampUnix int64) (*domain.Contract, error)

	// ApplyDeleteBid applies §4.7b; returns (nil, indexererr.IntegrityViolation)
	// if no prior Bytecode row exists.
	ApplyDeleteBid(ctx context.Context, chainID uuid.UUID, hash [32]byte, evictionBid string) (*domain.Bytecode, error)

	// ApplyContractAdded applies §4.7c; fails with IntegrityViolation if
	// the Contract row does not exist.
	ApplyContractAdded(ctx context.Context, chainID uuid.UUID, address [20]byte, maxBid string, blockNumber uint64, blockTimestampUnix int64) (*domain.Contract, error)

	// ApplyContractUpdated applies §4.7d.
	ApplyContractUpdated(ctx context.Context, chainID uuid.UUID, address [20]byte, maxBid string, blockNumber uint64, blockTimestampUnix int64) (*domain.Contract, error)

	GetBytecode(ctx context.Context, chainID uuid.UUID, hash [32]byte) (*domain.Bytecode, bool, error)
	GetContract(ctx context.Context, chainID uuid.UUID, address [20]byte) (*domain.Contract, bool, error)
}

// Store bundles every repository the core needs. A single pgxpool.Pool
// backs all of them in internal/store/pg; tests may compose narrower
// fakes per interface.
type Store interface {
	Chains
	Events
	State
	Derived
}
