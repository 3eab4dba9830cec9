// Package scheduler owns the two wall-clock tickers the indexer runs on
// a fixed period: Periodic Resync (component C5, hourly) and the
// On-chain Poller (component C6, every five minutes). Both periods are
// small, fixed intervals rather than cron-style schedules, so a plain
// time.Ticker is the idiomatic choice here; a cron expression parser
// would be solving a problem this indexer doesn't have.
package scheduler

import (
	"context"
	"time"
)

// ResyncInterval is how often Periodic Resync re-scans the recent tail
// of the chain (spec §4.5).
const ResyncInterval = time.Hour

// PollInterval is how often the On-chain Poller reads CacheManager's
// current parameters (spec §4.6).
const PollInterval = 5 * time.Minute

// RunEvery calls fn immediately, then again every interval, until ctx is
// canceled. A single long-running fn call is never interrupted mid-run;
// the next tick simply waits for it to return before firing again, so a
// slow pass skips ticks rather than overlapping with itself.
func RunEvery(ctx context.Context, interval time.Duration, fn func()) error {
	fn()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fn()
		}
	}
}
