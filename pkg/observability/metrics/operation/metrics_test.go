package operationmetrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheus(reg, "counting").(*prometheusMetrics)
	ctx := context.Background()

	m.RecordOperationAttempt(ctx, "Submit", "CountingService")
	m.RecordOperationAttempt(ctx, "Submit", "CountingService")
	m.RecordOperationSuccess(ctx, "Submit", "CountingService")
	m.RecordOperationFailure(ctx, "Submit", "CountingService")
	m.RecordOperationDuration(ctx, "Submit", "CountingService", 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.attempts.WithLabelValues("Submit", "CountingService")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.successes.WithLabelValues("Submit", "CountingService")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("Submit", "CountingService")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 4)
}

func TestNoop(t *testing.T) {
	m := NewNoop()
	assert.NotPanics(t, func() {
		m.RecordOperationAttempt(context.Background(), "op", "svc")
		m.RecordOperationDuration(context.Background(), "op", "svc", time.Second)
	})
}
