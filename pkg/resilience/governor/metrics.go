package governor

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	gverrors "github.com/dbadmin-ai/governor/pkg/common/errors"
	"github.com/dbadmin-ai/governor/pkg/metrics"
)

// MetricsGovernor wraps a Governor with Prometheus metrics collection.
type MetricsGovernor struct {
	governor Governor
	registry *metrics.Registry
	enabled  bool
}

// NewWithMetrics creates a governor around call with metrics enabled.
func NewWithMetrics(call CallFunc) Governor {
	// Use a separate registry for each metrics-enabled component to avoid conflicts
	registry := prometheus.NewRegistry()
	metricsConfig := metrics.Config{
		Enabled:  true,
		Registry: registry,
	}

	return NewWithConfigAndMetrics(DefaultConfig(call), metricsConfig)
}

// NewWithConfigAndMetrics creates a governor with custom config and metrics.
func NewWithConfigAndMetrics(config Config, metricsConfig metrics.Config) Governor {
	if !metricsConfig.Enabled {
		return NewWithConfig(config)
	}

	registry := metrics.DefaultRegistry
	if metricsConfig.Registry != nil {
		// Create custom registry if provided
		registry = metrics.NewRegistry(metricsConfig.Registry)
	}

	mg := &MetricsGovernor{
		registry: registry,
		enabled:  true,
	}

	// Instrument the upstream call so per-route durations are observed.
	inner := config
	if config.Call != nil {
		inner.Call = mg.instrument(config.Call)
	}
	mg.governor = NewWithConfig(inner)

	return mg
}

// Execute runs one request, recording the outcome and attempt counts.
func (mg *MetricsGovernor) Execute(ctx context.Context, primary Route, req Request) (*Result, error) {
	result, err := mg.governor.Execute(ctx, primary, req)

	if mg.enabled {
		outcome := "failed"
		var history []Attempt
		if err == nil {
			history = result.Attempts
			if result.UsedFallback {
				outcome = "fallback"
			} else {
				outcome = "success"
			}
		} else {
			var allFailed *AllFailedError
			if errors.As(err, &allFailed) {
				history = allFailed.Attempts
			}
		}

		mg.registry.Executions.WithLabelValues(primary.Identity, outcome).Inc()
		mg.observeHistory(primary, history)
		if err == nil {
			mg.registry.FallbackDepth.WithLabelValues(primary.Identity).Observe(fallbackDepth(result))
		}
	}

	return result, err
}

// fallbackDepth counts the distinct routes tried or skipped before the
// one that answered. A primary success is depth zero.
func fallbackDepth(result *Result) float64 {
	abandoned := make(map[Route]bool)
	for _, attempt := range result.Attempts {
		if attempt.Route != result.Route {
			abandoned[attempt.Route] = true
		}
	}
	return float64(len(abandoned))
}

// ChainFor returns the configured fallback chain for identity.
func (mg *MetricsGovernor) ChainFor(identity string) []Route {
	return mg.governor.ChainFor(identity)
}

// observeHistory derives upstream call and retry counts from the
// attempt history. Entries rejected before any call (unavailable,
// rate limited, circuit open) are not counted as calls.
func (mg *MetricsGovernor) observeHistory(primary Route, history []Attempt) {
	calls := 0
	var lastRoute Route
	inRun := false

	for _, attempt := range history {
		if attempt.Err != nil && skippedBeforeCall(attempt.Err) {
			inRun = false
			continue
		}

		calls++
		if inRun && attempt.Route == lastRoute {
			mg.registry.CallRetries.WithLabelValues(attempt.Route.Identity).Inc()
		} else {
			lastRoute = attempt.Route
			inRun = true
		}
	}

	mg.registry.ExecuteAttempts.WithLabelValues(primary.Identity).Observe(float64(calls))
}

// skippedBeforeCall reports whether err rejected the route before any
// upstream call was made.
func skippedBeforeCall(err error) bool {
	return errors.Is(err, gverrors.ErrUnavailable) ||
		errors.Is(err, gverrors.ErrRateLimited) ||
		errors.Is(err, gverrors.ErrCircuitOpen)
}

// instrument wraps call so each upstream invocation observes its
// duration under the route's identity.
func (mg *MetricsGovernor) instrument(call CallFunc) CallFunc {
	return func(ctx context.Context, route Route, req Request) (*Response, error) {
		start := time.Now()
		resp, err := call(ctx, route, req)

		if mg.enabled {
			mg.registry.CallDuration.WithLabelValues(route.Identity).Observe(time.Since(start).Seconds())
		}

		return resp, err
	}
}

// EnableMetrics enables metrics collection.
func (mg *MetricsGovernor) EnableMetrics(config metrics.Config) error {
	mg.enabled = config.Enabled

	if config.Registry != nil {
		mg.registry = metrics.NewRegistry(config.Registry)
	}

	return nil
}

// DisableMetrics disables metrics collection.
func (mg *MetricsGovernor) DisableMetrics() {
	mg.enabled = false
}

// MetricsEnabled returns true if metrics are currently enabled.
func (mg *MetricsGovernor) MetricsEnabled() bool {
	return mg.enabled
}
