package quota

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dbadmin-ai/governor/pkg/metrics"
)

// MetricsLimiter wraps a Limiter with Prometheus metrics collection.
type MetricsLimiter struct {
	limiter  Limiter
	registry *metrics.Registry
	enabled  bool
}

// NewWithMetrics creates a rate limiter with metrics enabled.
func NewWithMetrics(config Config) Limiter {
	// Use a separate registry for each metrics-enabled component to avoid conflicts
	registry := prometheus.NewRegistry()
	metricsConfig := metrics.Config{
		Enabled:  true,
		Registry: registry,
	}

	return NewWithConfigAndMetrics(config, metricsConfig)
}

// NewWithConfigAndMetrics creates a rate limiter with custom config and metrics.
func NewWithConfigAndMetrics(config Config, metricsConfig metrics.Config) Limiter {
	baseLimiter := NewWithConfig(config)

	if !metricsConfig.Enabled {
		return baseLimiter
	}

	registry := metrics.DefaultRegistry
	if metricsConfig.Registry != nil {
		// Create custom registry if provided
		registry = metrics.NewRegistry(metricsConfig.Registry)
	}

	return &MetricsLimiter{
		limiter:  baseLimiter,
		registry: registry,
		enabled:  true,
	}
}

// Check admits or rejects one call, recording the decision.
func (ml *MetricsLimiter) Check(identity string, estimatedTokens float64) error {
	if ml.enabled {
		ml.registry.AdmissionChecks.WithLabelValues(identity).Inc()
	}

	err := ml.limiter.Check(identity, estimatedTokens)

	if ml.enabled {
		if err == nil {
			ml.registry.AdmissionAllowed.WithLabelValues(identity).Inc()
		} else {
			var limitErr *LimitError
			if errors.As(err, &limitErr) {
				axis := string(limitErr.Axis)
				ml.registry.AdmissionDenied.WithLabelValues(identity, axis).Inc()
				ml.registry.AdmissionRetryAfter.WithLabelValues(identity, axis).Observe(limitErr.RetryAfter.Seconds())
			}
		}

		// Update remaining capacity gauges
		ml.updateRemaining(identity)
	}

	return err
}

// RecordUsage reconciles estimated against actual usage, recording the
// direction and magnitude of the correction.
func (ml *MetricsLimiter) RecordUsage(identity string, actualTokens, estimatedTokens float64) {
	ml.limiter.RecordUsage(identity, actualTokens, estimatedTokens)

	if ml.enabled {
		diff := actualTokens - estimatedTokens
		switch {
		case diff > 0:
			ml.registry.TokensAdjusted.WithLabelValues(identity, "debit").Add(diff)
		case diff < 0:
			ml.registry.TokensAdjusted.WithLabelValues(identity, "credit").Add(-diff)
		}

		ml.updateRemaining(identity)
	}
}

// UsageStats returns the accumulated admitted traffic for identity.
func (ml *MetricsLimiter) UsageStats(identity string) Stats {
	return ml.limiter.UsageStats(identity)
}

// Remaining returns the capacity currently available to identity.
func (ml *MetricsLimiter) Remaining(identity string) (requests, tokens float64) {
	requests, tokens = ml.limiter.Remaining(identity)

	if ml.enabled {
		ml.registry.TokensRemaining.WithLabelValues(identity, string(AxisRequests)).Set(requests)
		ml.registry.TokensRemaining.WithLabelValues(identity, string(AxisTokens)).Set(tokens)
	}

	return requests, tokens
}

// Identities returns every identity seen so far, sorted.
func (ml *MetricsLimiter) Identities() []string {
	return ml.limiter.Identities()
}

func (ml *MetricsLimiter) updateRemaining(identity string) {
	requests, tokens := ml.limiter.Remaining(identity)
	ml.registry.TokensRemaining.WithLabelValues(identity, string(AxisRequests)).Set(requests)
	ml.registry.TokensRemaining.WithLabelValues(identity, string(AxisTokens)).Set(tokens)
}

// EnableMetrics enables metrics collection.
func (ml *MetricsLimiter) EnableMetrics(config metrics.Config) error {
	ml.enabled = config.Enabled

	if config.Registry != nil {
		ml.registry = metrics.NewRegistry(config.Registry)
	}

	return nil
}

// DisableMetrics disables metrics collection.
func (ml *MetricsLimiter) DisableMetrics() {
	ml.enabled = false
}

// MetricsEnabled returns true if metrics are currently enabled.
func (ml *MetricsLimiter) MetricsEnabled() bool {
	return ml.enabled
}
