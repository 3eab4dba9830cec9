package obsmetrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestObserveLagComputesNonNegativeGap(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveLag("arbitrum-one", 1000, 900)

	var out dto.Metric
	require.NoError(t, m.ProcessorLag.WithLabelValues("arbitrum-one").Write(&out))
	require.Equal(t, float64(100), out.GetGauge().GetValue())
}

func TestObserveLagFloorsAtZeroWhenCaughtUp(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveLag("arbitrum-one", 500, 500)

	var out dto.Metric
	require.NoError(t, m.ProcessorLag.WithLabelValues("arbitrum-one").Write(&out))
	require.Equal(t, float64(0), out.GetGauge().GetValue())
}

func TestEventsStoredIncrements(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.EventsStored.WithLabelValues("arbitrum-one", "InsertBid").Inc()
	m.EventsStored.WithLabelValues("arbitrum-one", "InsertBid").Inc()

	var out dto.Metric
	require.NoError(t, m.EventsStored.WithLabelValues("arbitrum-one", "InsertBid").Write(&out))
	require.Equal(t, float64(2), out.GetCounter().GetValue())
}
