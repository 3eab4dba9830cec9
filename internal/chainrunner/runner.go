// Package chainrunner wires the components (Provider Manager, Historical
// Sync, Real-Time Listener, Periodic Resync, On-chain Poller, Event
// Processor) into the sibling goroutine group each configured chain runs
// under. Every component except the Event Processor is a single instance
// shared by all chains (see Deps); each chain gets its own Engine, bound
// contracts and goroutines.
package chainrunner

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"

	"github.com/cobuilders/cachemanager-indexer/internal/contracts"
	"github.com/cobuilders/cachemanager-indexer/internal/domain"
	"github.com/cobuilders/cachemanager-indexer/internal/listener"
	"github.com/cobuilders/cachemanager-indexer/internal/notify"
	"github.com/cobuilders/cachemanager-indexer/internal/poller"
	"github.com/cobuilders/cachemanager-indexer/internal/processor"
	"github.com/cobuilders/cachemanager-indexer/internal/providers"
	"github.com/cobuilders/cachemanager-indexer/internal/resync"
	"github.com/cobuilders/cachemanager-indexer/internal/scheduler"
	"github.com/cobuilders/cachemanager-indexer/internal/store"
	"github.com/cobuilders/cachemanager-indexer/internal/sync"
)

// Deps bundles the shared components every chain's runner is built from.
// One of each is constructed once in cmd/indexer and passed in here; only
// the per-chain bound-contract wiring and goroutine lifetimes are
// per-chain.
type Deps struct {
	Providers *providers.Manager
	Listener  *listener.Listener
	Syncer    *sync.Syncer
	Resyncer  *resync.Resyncer
	Poller    *poller.Poller
	Bus       *notify.Bus
	Store     store.Store
}

// Supervisor runs every configured chain's components concurrently and
// reports the first fatal error across all of them. Chain failures are
// not isolated: the first error from any chain's runner cancels every
// other chain and is returned from Run.
type Supervisor struct {
	deps Deps
}

// New builds a Supervisor over deps.
func New(deps Deps) *Supervisor {
	return &Supervisor{deps: deps}
}

// Run starts one runner per chain and blocks until ctx is canceled or a
// component returns a fatal error.
func (s *Supervisor) Run(ctx context.Context, chains []*domain.Chain) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, chain := range chains {
		if !chain.Enabled {
			log.Info("chainrunner: chain disabled, skipping", "chain", chain.Name)
			continue
		}
		chain := chain
		g.Go(func() error {
			return s.runChain(gctx, chain)
		})
	}
	return g.Wait()
}

// runChain starts the Historical Sync backfill, Real-Time Listener,
// Periodic Resync, On-chain Poller and Event Processor for one chain and
// waits for all of them, per spec §4's component list.
func (s *Supervisor) runChain(ctx context.Context, chain *domain.Chain) error {
	if err := s.deps.Providers.Connect(ctx, chain); err != nil {
		return fmt.Errorf("chainrunner: connect %s: %w", chain.Name, err)
	}

	fastSyncBounds, err := s.boundsFor(chain, true)
	if err != nil {
		return fmt.Errorf("chainrunner: bind fast-sync contracts for %s: %w", chain.Name, err)
	}
	cacheManager, err := s.deps.Providers.Contract(chain.ID.String(), contracts.KindCacheManager, chain.CacheManagerAddress)
	if err != nil {
		return fmt.Errorf("chainrunner: bind cache manager for %s: %w", chain.Name, err)
	}

	reader, ok := s.deps.Providers.HTTP(chain.ID.String())
	if !ok {
		return fmt.Errorf("chainrunner: no http client for %s", chain.Name)
	}
	fastSyncReader, ok := s.deps.Providers.FastSync(chain.ID.String())
	if !ok {
		fastSyncReader = reader
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.deps.Syncer.Backfill(gctx, chain, fastSyncReader, fastSyncBounds); err != nil {
			return fmt.Errorf("chainrunner: backfill %s: %w", chain.Name, err)
		}
		return nil
	})

	g.Go(func() error {
		if err := s.deps.Listener.Setup(gctx, chain); err != nil {
			return fmt.Errorf("chainrunner: listener setup %s: %w", chain.Name, err)
		}
		<-gctx.Done()
		return nil
	})

	g.Go(func() error {
		return scheduler.RunEvery(gctx, scheduler.ResyncInterval, func() {
			if err := s.deps.Resyncer.Run(gctx, chain, reader, fastSyncBounds); err != nil {
				log.Error("chainrunner: resync failed", "chain", chain.Name, "err", err)
			}
		})
	})

	g.Go(func() error {
		return scheduler.RunEvery(gctx, scheduler.PollInterval, func() {
			if err := s.deps.Poller.Snapshot(gctx, chain, reader, cacheManager); err != nil {
				log.Error("chainrunner: poller snapshot failed", "chain", chain.Name, "err", err)
			}
		})
	})

	g.Go(func() error {
		engine := processor.New(s.deps.Store, s.deps.Bus, chain.ID)
		if err := engine.Run(gctx); err != nil {
			return fmt.Errorf("chainrunner: processor %s: %w", chain.Name, err)
		}
		return nil
	})

	return g.Wait()
}

// boundsFor builds the CacheManager (+ optional CacheManagerAutomation)
// bound contract set for chain, against the fast-sync HTTP client when
// fastSync is true.
func (s *Supervisor) boundsFor(chain *domain.Chain, fastSync bool) ([]*contracts.Bound, error) {
	reader, ok := s.deps.Providers.FastSync(chain.ID.String())
	if !fastSync || !ok {
		var httpOK bool
		reader, httpOK = s.deps.Providers.HTTP(chain.ID.String())
		if !httpOK {
			return nil, fmt.Errorf("no http backend for chain %s", chain.Name)
		}
	}

	bounds := []*contracts.Bound{contracts.NewBound(contracts.KindCacheManager, chain.CacheManagerAddress, reader)}
	if chain.CacheManagerAutomationAddress != nil {
		bounds = append(bounds, contracts.NewBound(contracts.KindCacheManagerAutomation, *chain.CacheManagerAutomationAddress, reader))
	}
	return bounds, nil
}
