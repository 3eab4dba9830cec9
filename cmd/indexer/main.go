// Command indexer runs the CacheManager bytecode-cache-auction event
// indexer: it loads the configured chain list, reconciles it against the
// Chain table, connects the Provider Manager for every enabled chain, and
// runs each chain's Historical Sync, Real-Time Listener, Periodic
// Resync, On-chain Poller and Event Processor until interrupted.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cobuilders/cachemanager-indexer/internal/bootstrap"
	"github.com/cobuilders/cachemanager-indexer/internal/chainrunner"
	"github.com/cobuilders/cachemanager-indexer/internal/config"
	"github.com/cobuilders/cachemanager-indexer/internal/listener"
	"github.com/cobuilders/cachemanager-indexer/internal/notify"
	"github.com/cobuilders/cachemanager-indexer/internal/obsmetrics"
	"github.com/cobuilders/cachemanager-indexer/internal/poller"
	"github.com/cobuilders/cachemanager-indexer/internal/providers"
	"github.com/cobuilders/cachemanager-indexer/internal/resync"
	"github.com/cobuilders/cachemanager-indexer/internal/store/pg"
	"github.com/cobuilders/cachemanager-indexer/internal/sync"
)

func main() {
	configPath := flag.String("config", "", "path to the TOML configuration file")
	metricsAddr := flag.String("metrics-addr", ":9090", "address to serve /metrics on")
	flag.Parse()

	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, log.LevelInfo, true)))

	if err := run(*configPath, *metricsAddr); err != nil {
		log.Crit("indexer: fatal error", "err", err)
	}
}

func run(configPath, metricsAddr string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := pg.Migrate(cfg.DatabaseURL); err != nil {
		return err
	}
	st, err := pg.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer st.Close()

	metrics := obsmetrics.New(prometheus.DefaultRegisterer)
	serveMetrics(metricsAddr)

	chains, err := bootstrap.Reconcile(ctx, st, cfg.Blockchains)
	if err != nil {
		return err
	}

	mgr := providers.New(providers.Config{
		PingInterval: cfg.WSPingInterval,
		PingTimeout:  cfg.WSPingTimeout,
		BackoffBase:  cfg.WSBackoffBase,
		BackoffMax:   cfg.WSBackoffMax,
	})
	defer mgr.Shutdown()

	bus := notify.New()
	l := listener.New(mgr, st, bus, cfg.EventTypes)
	syncer := sync.New(st, cfg.EventTypes, cfg.EventsFilterBatchSize)
	resyncer := resync.New(syncer, st, cfg.ResyncBlocksBack)
	p := poller.New(st, cfg.ContractSmallSize, cfg.ContractMidSize, cfg.ContractLargeSize)

	mgr.OnReconnect(func(ctx context.Context, chainID string) {
		metrics.Reconnects.WithLabelValues(chainID).Inc()
	})

	supervisor := chainrunner.New(chainrunner.Deps{
		Providers: mgr,
		Listener:  l,
		Syncer:    syncer,
		Resyncer:  resyncer,
		Poller:    p,
		Bus:       bus,
		Store:     st,
	})

	log.Info("indexer: starting", "chains", len(chains))
	return supervisor.Run(ctx, chains)
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			log.Error("indexer: metrics server failed", "err", err)
		}
	}()
}
