package listener

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cobuilders/cachemanager-indexer/internal/providers"
)

func TestNewBuildsAllowlist(t *testing.T) {
	mgr := providers.New(providers.Config{})
	l := New(mgr, nil, nil, []string{"InsertBid", "DeleteBid"})

	_, ok := l.allowlist["InsertBid"]
	require.True(t, ok)
	_, ok = l.allowlist["ContractAdded"]
	require.False(t, ok)
}

func TestNewRegistersReconnectCallback(t *testing.T) {
	mgr := providers.New(providers.Config{})
	_ = New(mgr, nil, nil, nil)
	require.Len(t, mgr.OnReconnectCallbacks(), 1)
}
