package indexererr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ChainUnavailable, "dial primary rpc", cause, map[string]any{"chain": "arbitrum-one"})

	require.True(t, errors.Is(err, cause))
	require.Equal(t, ChainUnavailable, CodeOf(err))
	require.True(t, Is(err, ChainUnavailable))
	require.False(t, Is(err, InvalidEventData))
}

func TestCodeOfPlainError(t *testing.T) {
	require.Equal(t, Code(""), CodeOf(errors.New("boom")))
}
