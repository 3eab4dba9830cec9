// Package domain holds the entities of the CacheManager indexer's data
// model (spec §3): Chain, BlockchainEvent, BlockchainState, Bytecode and
// Contract. These are plain structs; persistence lives in internal/store.
package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// ContractKind names the two CacheManager-family contracts whose events
// this indexer decodes. ArbWasmCache/ArbWasm are read-only call targets,
// not event sources, so they are not ContractKind values.
type ContractKind string

const (
	CacheManager            ContractKind = "CacheManager"
	CacheManagerAutomation  ContractKind = "CacheManagerAutomation"
	UnknownContract         ContractKind = "Unknown"
)

// Chain is a configured EVM-compatible chain under indexing.
type Chain struct {
	ID      uuid.UUID
	Name    string
	ChainID uint64

	RPCURL         string
	FastSyncRPCURL string // empty means "use RPCURL"
	WSURL          string
	WSBackupURL    string // empty means "no backup configured"

	CacheManagerAddress           common.Address
	ArbWasmCacheAddress           common.Address
	ArbWasmAddress                common.Address
	CacheManagerAutomationAddress *common.Address

	// OriginBlock is where ingestion starts if there is no prior progress.
	OriginBlock uint64

	// LastSyncedBlock is the ingestion cursor: the highest block number
	// whose events have been fetched from the chain and stored (or
	// attempted). Monotonic, never regresses.
	LastSyncedBlock uint64

	// LastProcessedBlockNumber is the derivation cursor: the highest block
	// number whose events have been folded into Bytecode/Contract state.
	// Invariant: LastProcessedBlockNumber <= LastSyncedBlock.
	LastProcessedBlockNumber uint64

	Enabled bool
}

// EffectiveFastSyncRPCURL returns the URL historical sync should issue
// queryFilter batches against.
func (c *Chain) EffectiveFastSyncRPCURL() string {
	if c.FastSyncRPCURL == "" {
		return c.RPCURL
	}
	return c.FastSyncRPCURL
}

// ContractKindFor infers the contract name for a log address, per spec
// §4.2's "contract-name inference" rule.
func (c *Chain) ContractKindFor(addr common.Address) ContractKind {
	switch {
	case addr == c.CacheManagerAddress:
		return CacheManager
	case c.CacheManagerAutomationAddress != nil && addr == *c.CacheManagerAutomationAddress:
		return CacheManagerAutomation
	default:
		return UnknownContract
	}
}
