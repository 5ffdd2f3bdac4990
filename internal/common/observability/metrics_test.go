package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestObservability_RecordsQueries(t *testing.T) {
	reader := metric.NewManualReader()
	obs := newWithReader("test", reader)
	defer obs.Shutdown()

	ctx := context.Background()
	obs.RecordQueryProcessed(ctx, "budget_optimization", "ok")
	obs.RecordQueryProcessed(ctx, "budget_optimization", "ok")
	obs.RecordQueryDuration(ctx, 120*time.Millisecond, "budget_optimization")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	names := map[string]metricdata.Metrics{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		names[m.Name] = m
	}

	counter, ok := names["queries.processed"]
	require.True(t, ok)
	sum, ok := counter.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(2), sum.DataPoints[0].Value)

	_, ok = names["queries.duration"]
	assert.True(t, ok)
}

func TestObservability_ZeroValueIsSafe(t *testing.T) {
	obs := &Observability{}
	obs.RecordQueryProcessed(context.Background(), "general", "ok")
	obs.RecordQueryDuration(context.Background(), time.Second, "general")
	obs.Shutdown()
}
