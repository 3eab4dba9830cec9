package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cobuilders/cachemanager-indexer/internal/config"
	"github.com/cobuilders/cachemanager-indexer/internal/store/storetest"
)

func TestReconcileInsertsMissingChain(t *testing.T) {
	st := storetest.New()
	configs := []config.ChainConfig{{
		Name:                "arbitrum-one",
		ChainID:             42161,
		RPCURL:              "https://arb1.example/rpc",
		CacheManagerAddress: "0x0000000000000000000000000000000000000a",
		ArbWasmCacheAddress: "0x0000000000000000000000000000000000000b",
		ArbWasmAddress:      "0x0000000000000000000000000000000000000c",
		OriginBlock:         100,
		Enabled:             true,
	}}

	chains, err := Reconcile(context.Background(), st, configs)
	require.NoError(t, err)
	require.Len(t, chains, 1)
	require.Equal(t, uint64(42161), chains[0].ChainID)
	require.Equal(t, uint64(100), chains[0].OriginBlock)
	require.Equal(t, uint64(100), chains[0].LastSyncedBlock, "a new chain's ingestion cursor starts at originBlock")
	require.Equal(t, uint64(100), chains[0].LastProcessedBlockNumber, "a new chain's derivation cursor starts at originBlock")

	found, ok, err := st.FindByChainIDAndRPCURL(context.Background(), 42161, "https://arb1.example/rpc")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, chains[0].ID, found.ID)
}

func TestReconcileNeverUpdatesExistingChain(t *testing.T) {
	st := storetest.New()
	configs := []config.ChainConfig{{
		Name:    "arbitrum-one",
		ChainID: 42161,
		RPCURL:  "https://arb1.example/rpc",
	}}

	first, err := Reconcile(context.Background(), st, configs)
	require.NoError(t, err)

	require.NoError(t, st.UpdateLastSyncedBlock(context.Background(), first[0].ID, 500))

	configs[0].OriginBlock = 999
	second, err := Reconcile(context.Background(), st, configs)
	require.NoError(t, err)
	require.Equal(t, first[0].ID, second[0].ID)

	cursor, err := st.GetLastSyncedBlock(context.Background(), second[0].ID)
	require.NoError(t, err)
	require.Equal(t, uint64(500), cursor, "reconcile must not disturb an existing chain's cursor")
}

func TestReconcileParsesCacheManagerAutomationAddressWhenPresent(t *testing.T) {
	st := storetest.New()
	configs := []config.ChainConfig{{
		Name:                          "arbitrum-one",
		ChainID:                       42161,
		RPCURL:                        "https://arb1.example/rpc",
		CacheManagerAutomationAddress: "0x0000000000000000000000000000000000000d",
	}}

	chains, err := Reconcile(context.Background(), st, configs)
	require.NoError(t, err)
	require.NotNil(t, chains[0].CacheManagerAutomationAddress)
}
