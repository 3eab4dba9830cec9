package providers

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

// probeLoop runs the 15s/10s liveness probe for one chain until ctx is
// done, implementing the failure/backup/reconnect policy of spec §4.1.
func (m *Manager) probeLoop(ctx context.Context, chainKey string) {
	ticker := time.NewTicker(m.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.probeOnce(ctx, chainKey)
		}
	}
}

// probeOnce races the liveness check (a block-number fetch plus a raw
// socket ping) against a hard timeout, per spec §9's design note: "an
// explicit race between the probe call and a timer; the loser is
// cancelled; both paths release the socket cleanly."
func (m *Manager) probeOnce(ctx context.Context, chainKey string) {
	ce, ok := m.get(chainKey)
	if !ok || ce.ws == nil {
		return
	}

	probeCtx, cancel := context.WithTimeout(ctx, m.cfg.PingTimeout)
	defer cancel()

	result := make(chan bool, 1)
	go func() {
		if !ce.ws.isOpen(m.cfg.PingTimeout) {
			result <- false
			return
		}
		_, err := ce.ws.client.BlockNumber(probeCtx)
		result <- err == nil
	}()

	var healthy bool
	select {
	case healthy = <-result:
	case <-probeCtx.Done():
		healthy = false
	}

	if healthy {
		return
	}
	m.onProbeFailure(ctx, chainKey, ce)
}

// onProbeFailure implements the failure-count policy: at 2 failures,
// switch to the backup WS URL if configured; on every failure destroy the
// socket, clear listener state (via a reconnect callback after the new
// socket is up), and schedule reconnection with exponential backoff.
func (m *Manager) onProbeFailure(ctx context.Context, chainKey string, ce *chainEndpoints) {
	m.mu.Lock()
	ce.failures++
	failures := ce.failures
	m.mu.Unlock()

	log.Warn("provider manager: ws probe failed", "chain", ce.chain.Name, "failures", failures)

	ce.ws.close()

	targetURL := ce.chain.WSURL
	if failures >= 2 && ce.chain.WSBackupURL != "" {
		m.mu.Lock()
		ce.usingBack = true
		m.mu.Unlock()
		targetURL = ce.chain.WSBackupURL
		log.Warn("provider manager: failing over to backup ws", "chain", ce.chain.Name)
	} else if ce.usingBack {
		targetURL = ce.chain.WSBackupURL
	}

	m.scheduleReconnect(ctx, chainKey, ce, targetURL)
}

// scheduleReconnect retries dialing targetURL with exponential backoff:
// base 5s doubled per attempt, capped at 5m. A successful reconnect resets
// the per-chain attempt counter and invokes registered callbacks.
func (m *Manager) scheduleReconnect(ctx context.Context, chainKey string, ce *chainEndpoints, targetURL string) {
	m.mu.Lock()
	attempt := ce.attempts
	delay := backoffDelay(m.cfg.BackoffBase, m.cfg.BackoffMax, attempt)
	m.mu.Unlock()

	ce.backoff = time.AfterFunc(delay, func() {
		dialCtx, cancel := context.WithTimeout(ctx, m.cfg.PingTimeout)
		defer cancel()

		ws, err := dialWS(dialCtx, targetURL)
		if err != nil {
			log.Warn("provider manager: reconnect failed", "chain", ce.chain.Name, "attempt", attempt+1, "err", err)
			m.mu.Lock()
			ce.attempts++
			m.mu.Unlock()
			m.scheduleReconnect(ctx, chainKey, ce, targetURL)
			return
		}

		m.mu.Lock()
		ce.ws = ws
		ce.attempts = 0
		ce.failures = 0
		callbacks := append([]ReconnectFunc(nil), m.onReconn...)
		m.mu.Unlock()

		log.Info("provider manager: reconnected", "chain", ce.chain.Name)
		for _, cb := range callbacks {
			cb(ctx, chainKey)
		}
	})
}

// backoffDelay computes min(base*2^attempt, max), the sequence spec §8
// property 7 requires.
func backoffDelay(base, max time.Duration, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 20 { // guard against overflow; far beyond the cap anyway
		return max
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}
