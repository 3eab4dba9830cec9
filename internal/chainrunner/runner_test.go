package chainrunner

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/cobuilders/cachemanager-indexer/internal/domain"
	"github.com/cobuilders/cachemanager-indexer/internal/providers"
)

func TestRunSkipsDisabledChainsWithoutConnecting(t *testing.T) {
	mgr := providers.New(providers.Config{})
	s := New(Deps{Providers: mgr})

	chain := &domain.Chain{ID: uuid.New(), Name: "disabled-chain", Enabled: false}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := s.Run(ctx, []*domain.Chain{chain})
	require.NoError(t, err)
}
