// Package providers implements the Provider Manager (component C1):
// lifecycle of the HTTP, fast-sync-HTTP and WebSocket endpoints per chain,
// liveness probing, and reconnection with primary->backup failover.
package providers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"

	"github.com/cobuilders/cachemanager-indexer/internal/contracts"
	"github.com/cobuilders/cachemanager-indexer/internal/domain"
)

// ReconnectFunc is invoked after a chain's WebSocket connection has been
// replaced; the Real-Time Listener registers one of these to re-install
// its subscriptions (spec §4.1 "Reconnection invokes registered
// callbacks").
type ReconnectFunc func(ctx context.Context, chainID string)

// Manager owns one endpoint set per chain and the reconnection state
// machine of spec §4.1.
type Manager struct {
	cfg Config

	mu       sync.Mutex
	chains   map[string]*chainEndpoints
	onReconn []ReconnectFunc
}

// Config holds the WS liveness/backoff tunables of spec §6.
type Config struct {
	PingInterval time.Duration
	PingTimeout  time.Duration
	BackoffBase  time.Duration
	BackoffMax   time.Duration
}

// chainEndpoints is the live state for one chain: the two HTTP clients,
// the active WS connection, its reconnect bookkeeping, and memoized
// contract bindings.
type chainEndpoints struct {
	chain *domain.Chain

	http     *ethclient.Client
	fastSync *ethclient.Client
	ws       *wsConn

	failures   int
	attempts   int
	usingBack  bool
	backoff    *time.Timer
	contractMu sync.Mutex
	contracts  map[contracts.Kind]*contracts.Bound
}

// New builds a Manager with the given liveness/backoff configuration.
func New(cfg Config) *Manager {
	return &Manager{cfg: cfg, chains: make(map[string]*chainEndpoints)}
}

// OnReconnect registers a callback invoked after any chain's WebSocket is
// replaced. Multiple listeners may register (C4 and cmd/indexer's
// reconnect-metrics callback both do).
func (m *Manager) OnReconnect(fn ReconnectFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReconn = append(m.onReconn, fn)
}

// Connect dials the HTTP, fast-sync HTTP and WebSocket endpoints for
// chain and starts its liveness probe loop. ctx governs the probe loop's
// lifetime, not the individual calls made through the returned clients.
func (m *Manager) Connect(ctx context.Context, chain *domain.Chain) error {
	httpClient, err := ethclient.DialContext(ctx, chain.RPCURL)
	if err != nil {
		return fmt.Errorf("providers: dial primary rpc for %s: %w", chain.Name, err)
	}

	fastSync := httpClient
	if chain.EffectiveFastSyncRPCURL() != chain.RPCURL {
		fastSync, err = ethclient.DialContext(ctx, chain.EffectiveFastSyncRPCURL())
		if err != nil {
			return fmt.Errorf("providers: dial fast-sync rpc for %s: %w", chain.Name, err)
		}
	}

	ws, err := dialWS(ctx, chain.WSURL)
	if err != nil {
		return fmt.Errorf("providers: dial ws for %s: %w", chain.Name, err)
	}

	ce := &chainEndpoints{
		chain:     chain,
		http:      httpClient,
		fastSync:  fastSync,
		ws:        ws,
		contracts: make(map[contracts.Kind]*contracts.Bound),
	}

	m.mu.Lock()
	m.chains[chain.ID.String()] = ce
	m.mu.Unlock()

	go m.probeLoop(ctx, chain.ID.String())
	return nil
}

// HTTP returns the primary HTTP client for chainID.
func (m *Manager) HTTP(chainID string) (*ethclient.Client, bool) {
	ce, ok := m.get(chainID)
	if !ok {
		return nil, false
	}
	return ce.http, true
}

// FastSync returns the fast-sync HTTP client for chainID.
func (m *Manager) FastSync(chainID string) (*ethclient.Client, bool) {
	ce, ok := m.get(chainID)
	if !ok {
		return nil, false
	}
	return ce.fastSync, true
}

// WS returns the current WebSocket-backed contract backend for chainID,
// or false if the chain is unknown. The underlying connection may be
// silently replaced by a reconnect; callers should not cache the
// bind.ContractBackend across reconnects, they should re-fetch it.
func (m *Manager) WS(chainID string) (bind.ContractBackend, bool) {
	ce, ok := m.get(chainID)
	if !ok || ce.ws == nil {
		return nil, false
	}
	return ce.ws.client, true
}

// Contract returns the memoized bound contract instance for
// (chainID, kind), dialing/binding it on first use against the HTTP
// client (used for calls) — historical log queries bind against
// fast-sync, done separately in internal/sync.
func (m *Manager) Contract(chainID string, kind contracts.Kind, address [20]byte) (*contracts.Bound, error) {
	ce, ok := m.get(chainID)
	if !ok {
		return nil, fmt.Errorf("providers: unknown chain %s", chainID)
	}
	ce.contractMu.Lock()
	defer ce.contractMu.Unlock()
	if b, ok := ce.contracts[kind]; ok {
		return b, nil
	}
	b := contracts.NewBound(kind, address, ce.http)
	ce.contracts[kind] = b
	return b, nil
}

// OnReconnectCallbacks returns the currently registered reconnect
// callbacks, primarily for tests asserting that a component registered.
func (m *Manager) OnReconnectCallbacks() []ReconnectFunc {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ReconnectFunc, len(m.onReconn))
	copy(out, m.onReconn)
	return out
}

func (m *Manager) get(chainID string) (*chainEndpoints, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ce, ok := m.chains[chainID]
	return ce, ok
}

// Shutdown destroys every WebSocket provider, cancels pending back-off
// timers, and clears all contract and reconnection state (spec §4.1).
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, ce := range m.chains {
		if ce.ws != nil {
			ce.ws.close()
		}
		if ce.backoff != nil {
			ce.backoff.Stop()
		}
		ce.contractMu.Lock()
		ce.contracts = nil
		ce.contractMu.Unlock()
		log.Info("provider manager: shutdown chain", "chain", id)
	}
	m.chains = make(map[string]*chainEndpoints)
	m.onReconn = nil
}
