// Package metrics provides Prometheus instrumentation for governor components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metric instances for governor components.
type Registry struct {
	// Admission Metrics
	AdmissionChecks     *prometheus.CounterVec
	AdmissionAllowed    *prometheus.CounterVec
	AdmissionDenied     *prometheus.CounterVec
	AdmissionRetryAfter *prometheus.HistogramVec
	TokensRemaining     *prometheus.GaugeVec
	TokensAdjusted      *prometheus.CounterVec

	// Circuit Breaker Metrics
	BreakerOpen        *prometheus.GaugeVec
	BreakerFailures    *prometheus.CounterVec
	BreakerRejections  *prometheus.CounterVec
	BreakerTransitions *prometheus.CounterVec

	// Governor Metrics
	Executions      *prometheus.CounterVec
	ExecuteAttempts *prometheus.HistogramVec
	FallbackDepth   *prometheus.HistogramVec
	CallRetries     *prometheus.CounterVec
	CallDuration    *prometheus.HistogramVec
}

// DefaultRegistry is the default metrics registry used by governor components.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		// Admission Metrics
		AdmissionChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "governor",
				Subsystem: "admission",
				Name:      "checks_total",
				Help:      "Total number of admission checks",
			},
			[]string{"identity"},
		),

		AdmissionAllowed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "governor",
				Subsystem: "admission",
				Name:      "allowed_total",
				Help:      "Total number of admitted requests",
			},
			[]string{"identity"},
		),

		AdmissionDenied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "governor",
				Subsystem: "admission",
				Name:      "denied_total",
				Help:      "Total number of denied requests by limit axis",
			},
			[]string{"identity", "axis"},
		),

		AdmissionRetryAfter: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "governor",
				Subsystem: "admission",
				Name:      "retry_after_seconds",
				Help:      "Retry-after hints attached to denied requests",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"identity", "axis"},
		),

		TokensRemaining: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "governor",
				Subsystem: "admission",
				Name:      "tokens_remaining",
				Help:      "Remaining capacity per identity and limit axis",
			},
			[]string{"identity", "axis"},
		),

		TokensAdjusted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "governor",
				Subsystem: "admission",
				Name:      "tokens_adjusted_total",
				Help:      "Post-call token adjustments by direction",
			},
			[]string{"identity", "direction"},
		),

		// Circuit Breaker Metrics
		BreakerOpen: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "governor",
				Subsystem: "breaker",
				Name:      "open",
				Help:      "Whether the circuit is open (1) or closed (0)",
			},
			[]string{"endpoint"},
		),

		BreakerFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "governor",
				Subsystem: "breaker",
				Name:      "failures_total",
				Help:      "Total number of recorded upstream failures",
			},
			[]string{"endpoint"},
		),

		BreakerRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "governor",
				Subsystem: "breaker",
				Name:      "rejections_total",
				Help:      "Total number of calls rejected while open",
			},
			[]string{"endpoint"},
		),

		BreakerTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "governor",
				Subsystem: "breaker",
				Name:      "transitions_total",
				Help:      "Total number of state transitions by target state",
			},
			[]string{"endpoint", "state"},
		),

		// Governor Metrics
		Executions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "governor",
				Subsystem: "execute",
				Name:      "executions_total",
				Help:      "Total number of governed executions by outcome",
			},
			[]string{"primary", "outcome"},
		),

		ExecuteAttempts: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "governor",
				Subsystem: "execute",
				Name:      "attempts",
				Help:      "Number of upstream attempts per execution",
				Buckets:   prometheus.LinearBuckets(1, 1, 8),
			},
			[]string{"primary"},
		),

		FallbackDepth: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "governor",
				Subsystem: "execute",
				Name:      "fallback_depth",
				Help:      "Routes abandoned before the one that answered",
				Buckets:   prometheus.LinearBuckets(0, 1, 5),
			},
			[]string{"primary"},
		),

		CallRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "governor",
				Subsystem: "execute",
				Name:      "retries_total",
				Help:      "Total number of in-place retries after transient errors",
			},
			[]string{"identity"},
		),

		CallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "governor",
				Subsystem: "execute",
				Name:      "call_duration_seconds",
				Help:      "Time spent in upstream calls",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"identity"},
		),
	}
}
