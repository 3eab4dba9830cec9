package providers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackoffDelaySequence(t *testing.T) {
	base := 5 * time.Second
	max := 300 * time.Second

	want := []time.Duration{5, 10, 20, 40, 80, 160, 300, 300}
	for attempt, w := range want {
		got := backoffDelay(base, max, attempt)
		require.Equal(t, w*time.Second, got, "attempt %d", attempt)
	}
}

func TestBackoffDelayNeverExceedsCap(t *testing.T) {
	base := 5 * time.Second
	max := 300 * time.Second
	for attempt := 0; attempt < 30; attempt++ {
		require.LessOrEqual(t, backoffDelay(base, max, attempt), max)
	}
}
