package countingmetrics

import (
	"context"

	operationmetrics "github.com/Black-And-White-Club/counting-bot/pkg/observability/metrics/operation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CountingMetrics adds submission-level counters to the operation metrics.
type CountingMetrics interface {
	operationmetrics.Metrics
	RecordSubmission(ctx context.Context, outcome string)
	RecordMilestone(ctx context.Context)
	RecordLaneCount(count int)
}

type prometheusMetrics struct {
	operationmetrics.Metrics
	submissions *prometheus.CounterVec
	milestones  prometheus.Counter
	lanes       prometheus.Gauge
}

// NewPrometheus registers counting metrics on reg.
func NewPrometheus(reg prometheus.Registerer) CountingMetrics {
	factory := promauto.With(reg)
	return &prometheusMetrics{
		Metrics: operationmetrics.NewPrometheus(reg, "counting"),
		submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "counting",
			Name:      "submissions_total",
			Help:      "Counting submissions by outcome.",
		}, []string{"outcome"}),
		milestones: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "counting",
			Name:      "milestones_total",
			Help:      "Milestones reached.",
		}),
		lanes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "counting",
			Name:      "active_lanes",
			Help:      "Channels with a live submission lane.",
		}),
	}
}

func (m *prometheusMetrics) RecordSubmission(_ context.Context, outcome string) {
	m.submissions.WithLabelValues(outcome).Inc()
}

func (m *prometheusMetrics) RecordMilestone(context.Context) { m.milestones.Inc() }

func (m *prometheusMetrics) RecordLaneCount(count int) { m.lanes.Set(float64(count)) }

type noop struct{ operationmetrics.Noop }

// NewNoop returns a CountingMetrics that records nothing.
func NewNoop() CountingMetrics { return noop{} }

func (noop) RecordSubmission(context.Context, string) {}
func (noop) RecordMilestone(context.Context)          {}
func (noop) RecordLaneCount(int)                      {}
