package moderationmetrics

import (
	"context"

	operationmetrics "github.com/Black-And-White-Club/counting-bot/pkg/observability/metrics/operation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ModerationMetrics adds violation and punishment counters.
type ModerationMetrics interface {
	operationmetrics.Metrics
	RecordViolation(ctx context.Context, kind string)
	RecordPunishment(ctx context.Context, action string)
}

type prometheusMetrics struct {
	operationmetrics.Metrics
	violations  *prometheus.CounterVec
	punishments *prometheus.CounterVec
}

// NewPrometheus registers moderation metrics on reg.
func NewPrometheus(reg prometheus.Registerer) ModerationMetrics {
	factory := promauto.With(reg)
	return &prometheusMetrics{
		Metrics: operationmetrics.NewPrometheus(reg, "moderation"),
		violations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "moderation",
			Name:      "violations_total",
			Help:      "Violations tracked by kind.",
		}, []string{"kind"}),
		punishments: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "moderation",
			Name:      "punishments_total",
			Help:      "Punishments applied by action.",
		}, []string{"action"}),
	}
}

func (m *prometheusMetrics) RecordViolation(_ context.Context, kind string) {
	m.violations.WithLabelValues(kind).Inc()
}

func (m *prometheusMetrics) RecordPunishment(_ context.Context, action string) {
	m.punishments.WithLabelValues(action).Inc()
}

type noop struct{ operationmetrics.Noop }

// NewNoop returns a ModerationMetrics that records nothing.
func NewNoop() ModerationMetrics { return noop{} }

func (noop) RecordViolation(context.Context, string)  {}
func (noop) RecordPunishment(context.Context, string) {}
