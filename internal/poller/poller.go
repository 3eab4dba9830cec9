// Package poller implements the On-chain Poller (component C6): every 5
// minutes, a concurrent read of CacheManager's current parameters into a
// BlockchainState snapshot row (spec §4.6).
package poller

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/cobuilders/cachemanager-indexer/internal/contracts"
	"github.com/cobuilders/cachemanager-indexer/internal/domain"
	"github.com/cobuilders/cachemanager-indexer/internal/store"
)

// Poller reads CacheManager's view methods for one chain and writes a
// BlockchainState row per pass.
type Poller struct {
	store store.Store

	smallSize uint64
	midSize   uint64
	largeSize uint64
}

// New builds a Poller with the configured small/mid/large size tiers used
// against getMinBid.
func New(st store.Store, smallSize, midSize, largeSize uint64) *Poller {
	return &Poller{store: st, smallSize: smallSize, midSize: midSize, largeSize: largeSize}
}

// Snapshot performs one read pass for chain and persists the result.
// Every view call runs concurrently; getEntries alone retries (2 attempts,
// 1s apart) and falls back to an empty slice, so a flaky getEntries call
// degrades to a partial snapshot rather than failing the whole pass (spec
// §4.6).
func (p *Poller) Snapshot(ctx context.Context, chain *domain.Chain, reader *ethclient.Client, cacheManager *contracts.Bound) error {
	var (
		minSmall, minMid, minLarge      *big.Int
		decayRate, cacheSize, queueSize *big.Int
		entries                         []contracts.Entry
		isPaused                        bool
		latestBlock                     uint64
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		minSmall, err = cacheManager.GetMinBid(gctx, p.smallSize)
		return err
	})
	g.Go(func() (err error) {
		minMid, err = cacheManager.GetMinBid(gctx, p.midSize)
		return err
	})
	g.Go(func() (err error) {
		minLarge, err = cacheManager.GetMinBid(gctx, p.largeSize)
		return err
	})
	g.Go(func() error {
		entries = getEntriesWithRetry(gctx, cacheManager, chain.Name)
		return nil
	})
	g.Go(func() (err error) {
		decayRate, err = cacheManager.Decay(gctx)
		return err
	})
	g.Go(func() (err error) {
		cacheSize, err = cacheManager.CacheSize(gctx)
		return err
	})
	g.Go(func() (err error) {
		queueSize, err = cacheManager.QueueSize(gctx)
		return err
	})
	g.Go(func() (err error) {
		isPaused, err = cacheManager.IsPaused(gctx)
		return err
	})
	g.Go(func() (err error) {
		latestBlock, err = reader.BlockNumber(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}

	blockTimestamp := time.Now().UTC()
	if header, err := reader.HeaderByNumber(ctx, nil); err == nil && header != nil {
		blockTimestamp = time.Unix(int64(header.Time), 0).UTC()
	}

	snapshot := &domain.BlockchainState{
		ID:                   uuid.New(),
		ChainID:              chain.ID,
		BlockNumber:          latestBlock,
		BlockTimestamp:       blockTimestamp,
		CacheSize:            cacheSize,
		QueueSize:            queueSize,
		DecayRate:            decayRate,
		IsPaused:             isPaused,
		MinBidSmall:          minSmall,
		MinBidMid:            minMid,
		MinBidLarge:          minLarge,
		TotalContractsCached: uint64(len(entries)),
	}
	return p.store.InsertSnapshot(ctx, snapshot)
}

func getEntriesWithRetry(ctx context.Context, cacheManager *contracts.Bound, chainName string) []contracts.Entry {
	const attempts = 2
	for i := 0; i < attempts; i++ {
		entries, err := cacheManager.GetEntries(ctx)
		if err == nil {
			return entries
		}
		log.Warn("poller: getEntries failed", "chain", chainName, "attempt", i+1, "err", err)
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
		}
	}
	return nil
}
