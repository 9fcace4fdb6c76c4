package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"school_inventory_tool/config"
)

func collectSums(t *testing.T, r *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, r.Collect(context.Background(), &rm))
	out := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				out[m.Name] += dp.Value
			}
		}
	}
	return out
}

func TestMetrics_CountersReachProvider(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m := NewMetrics(mp)
	ctx := context.Background()
	m.Claim(ctx, "pending", "", 2)
	m.Claim(ctx, "approved", "equipment", 3)
	m.Claim(ctx, "rejected", "supplies", 1)
	m.Return(ctx, "requested")
	m.Return(ctx, "merged")

	sums := collectSums(t, reader)
	assert.Equal(t, int64(3), sums["inventory.claims"])
	assert.Equal(t, int64(3), sums["inventory.units.checked_out"])
	assert.Equal(t, int64(2), sums["inventory.returns"])
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Claim(context.Background(), "approved", "equipment", 1)
		m.Return(context.Background(), "merged")
	})
}

func TestSetupMetrics_NoEndpoint(t *testing.T) {
	shutdown, err := SetupMetrics(context.Background(), config.TelemetryConfig{ServiceName: "test"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
