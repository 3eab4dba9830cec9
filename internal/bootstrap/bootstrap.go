// Package bootstrap reconciles the configured chain list (spec §6's
// BLOCKCHAINS entries) against the Chain table at startup (component C9,
// spec §4.9): each configured chain is inserted if missing, by the
// (chainId, rpcUrl) key, and never updated if it already exists so a
// config edit can never silently reset a running cursor.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	"github.com/cobuilders/cachemanager-indexer/internal/config"
	"github.com/cobuilders/cachemanager-indexer/internal/domain"
	"github.com/cobuilders/cachemanager-indexer/internal/store"
)

// Reconcile ensures every entry in configs has a Chain row, returning the
// full current set (pre-existing and newly inserted) in configuration
// order.
func Reconcile(ctx context.Context, st store.Chains, configs []config.ChainConfig) ([]*domain.Chain, error) {
	chains := make([]*domain.Chain, 0, len(configs))
	for _, c := range configs {
		chain, err := reconcileOne(ctx, st, c)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: reconcile %s: %w", c.Name, err)
		}
		chains = append(chains, chain)
	}
	return chains, nil
}

func reconcileOne(ctx context.Context, st store.Chains, c config.ChainConfig) (*domain.Chain, error) {
	existing, ok, err := st.FindByChainIDAndRPCURL(ctx, c.ChainID, c.RPCURL)
	if err != nil {
		return nil, err
	}
	if ok {
		log.Debug("bootstrap: chain already registered", "chain", c.Name, "chainId", c.ChainID)
		return existing, nil
	}

	chain := &domain.Chain{
		ID:                  uuid.New(),
		Name:                c.Name,
		ChainID:             c.ChainID,
		RPCURL:              c.RPCURL,
		FastSyncRPCURL:      c.FastSyncRPCURL,
		WSURL:               c.RPCWssURL,
		WSBackupURL:         c.RPCWssURLBackup,
		CacheManagerAddress: common.HexToAddress(c.CacheManagerAddress),
		ArbWasmCacheAddress: common.HexToAddress(c.ArbWasmCacheAddress),
		ArbWasmAddress:      common.HexToAddress(c.ArbWasmAddress),
		OriginBlock:         c.OriginBlock,
		// A freshly registered chain has no progress yet: seed both
		// cursors at OriginBlock so Historical Sync and the Event
		// Processor start from the configured deployment block instead
		// of replaying from block zero.
		LastSyncedBlock:          c.OriginBlock,
		LastProcessedBlockNumber: c.OriginBlock,
		Enabled:                  c.Enabled,
	}
	if c.CacheManagerAutomationAddress != "" {
		addr := common.HexToAddress(c.CacheManagerAutomationAddress)
		chain.CacheManagerAutomationAddress = &addr
	}

	if err := st.Insert(ctx, chain); err != nil {
		return nil, err
	}
	log.Info("bootstrap: registered new chain", "chain", c.Name, "chainId", c.ChainID, "originBlock", c.OriginBlock)
	return chain, nil
}
