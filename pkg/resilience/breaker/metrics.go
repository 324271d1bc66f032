package breaker

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dbadmin-ai/governor/pkg/metrics"
)

// MetricsBreaker wraps a Breaker with Prometheus metrics collection.
type MetricsBreaker struct {
	breaker  Breaker
	registry *metrics.Registry
	enabled  bool
}

// NewWithMetrics creates a circuit breaker with metrics enabled.
func NewWithMetrics(config Config) Breaker {
	// Use a separate registry for each metrics-enabled component to avoid conflicts
	registry := prometheus.NewRegistry()
	metricsConfig := metrics.Config{
		Enabled:  true,
		Registry: registry,
	}

	return NewWithConfigAndMetrics(config, metricsConfig)
}

// NewWithConfigAndMetrics creates a circuit breaker with custom config and metrics.
func NewWithConfigAndMetrics(config Config, metricsConfig metrics.Config) Breaker {
	baseBreaker := NewWithConfig(config)

	if !metricsConfig.Enabled {
		return baseBreaker
	}

	registry := metrics.DefaultRegistry
	if metricsConfig.Registry != nil {
		// Create custom registry if provided
		registry = metrics.NewRegistry(metricsConfig.Registry)
	}

	return &MetricsBreaker{
		breaker:  baseBreaker,
		registry: registry,
		enabled:  true,
	}
}

// Check admits or rejects a call to key, recording the decision.
func (mb *MetricsBreaker) Check(key string) error {
	err := mb.breaker.Check(key)

	if mb.enabled {
		if err != nil {
			mb.registry.BreakerRejections.WithLabelValues(key).Inc()
			mb.registry.BreakerOpen.WithLabelValues(key).Set(1)
		} else {
			mb.registry.BreakerOpen.WithLabelValues(key).Set(0)
		}
	}

	return err
}

// RecordFailure counts one failure against key.
func (mb *MetricsBreaker) RecordFailure(key string) {
	var before State
	if mb.enabled {
		before, _, _ = mb.breaker.Snapshot(key)
	}

	mb.breaker.RecordFailure(key)

	if mb.enabled {
		mb.registry.BreakerFailures.WithLabelValues(key).Inc()

		after, _, _ := mb.breaker.Snapshot(key)
		if after == StateOpen {
			mb.registry.BreakerOpen.WithLabelValues(key).Set(1)
			if before != StateOpen {
				mb.registry.BreakerTransitions.WithLabelValues(key, StateOpen.String()).Inc()
			}
		}
	}
}

// RecordSuccess clears all failure state for key.
func (mb *MetricsBreaker) RecordSuccess(key string) {
	var before State
	if mb.enabled {
		before, _, _ = mb.breaker.Snapshot(key)
	}

	mb.breaker.RecordSuccess(key)

	if mb.enabled {
		mb.registry.BreakerOpen.WithLabelValues(key).Set(0)
		if before == StateOpen {
			mb.registry.BreakerTransitions.WithLabelValues(key, StateClosed.String()).Inc()
		}
	}
}

// Snapshot reports the current view of key.
func (mb *MetricsBreaker) Snapshot(key string) (State, int, time.Duration) {
	state, failures, retryAfter := mb.breaker.Snapshot(key)

	if mb.enabled {
		if state == StateOpen {
			mb.registry.BreakerOpen.WithLabelValues(key).Set(1)
		} else {
			mb.registry.BreakerOpen.WithLabelValues(key).Set(0)
		}
	}

	return state, failures, retryAfter
}

// Keys returns every tracked endpoint key, sorted.
func (mb *MetricsBreaker) Keys() []string {
	return mb.breaker.Keys()
}

// EnableMetrics enables metrics collection.
func (mb *MetricsBreaker) EnableMetrics(config metrics.Config) error {
	mb.enabled = config.Enabled

	if config.Registry != nil {
		mb.registry = metrics.NewRegistry(config.Registry)
	}

	return nil
}

// DisableMetrics disables metrics collection.
func (mb *MetricsBreaker) DisableMetrics() {
	mb.enabled = false
}

// MetricsEnabled returns true if metrics are currently enabled.
func (mb *MetricsBreaker) MetricsEnabled() bool {
	return mb.enabled
}
