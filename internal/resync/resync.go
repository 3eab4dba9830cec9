// Package resync implements Periodic Resync (component C5): an hourly
// healing pass over a short lookback window that relies on Event
// Storage's idempotency to absorb anything the Real-Time Listener missed
// during a transient WebSocket gap (spec §4.5).
package resync

import (
	"context"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/cobuilders/cachemanager-indexer/internal/contracts"
	"github.com/cobuilders/cachemanager-indexer/internal/domain"
	"github.com/cobuilders/cachemanager-indexer/internal/store"
	"github.com/cobuilders/cachemanager-indexer/internal/sync"
)

// Resyncer re-runs the historical fetch protocol over a short trailing
// window on a schedule owned by internal/scheduler.
type Resyncer struct {
	syncer     *sync.Syncer
	store      store.Store
	blocksBack uint64
}

// New builds a Resyncer. blocksBack is RESYNC_BLOCKS_BACK (default 100).
func New(syncer *sync.Syncer, st store.Store, blocksBack uint64) *Resyncer {
	if blocksBack == 0 {
		blocksBack = 100
	}
	return &Resyncer{syncer: syncer, store: st, blocksBack: blocksBack}
}

// Run performs one resync pass for chain: start = max(0, lastSyncedBlock -
// blocksBack), using the same fast-sync bound contracts Historical Sync
// uses, over the same configured event types; reader (the chain's primary
// HTTP client, as chainrunner passes it) resolves head and block times.
func (r *Resyncer) Run(ctx context.Context, chain *domain.Chain, reader *ethclient.Client, bounds []*contracts.Bound) error {
	lastSynced, err := r.store.GetLastSyncedBlock(ctx, chain.ID)
	if err != nil {
		return err
	}
	return r.syncer.Resync(ctx, chain, reader, bounds, lookbackStart(lastSynced, r.blocksBack))
}

// lookbackStart computes max(0, lastSynced-blocksBack) without underflowing
// the unsigned subtraction.
func lookbackStart(lastSynced, blocksBack uint64) uint64 {
	if lastSynced > blocksBack {
		return lastSynced - blocksBack
	}
	return 0
}
