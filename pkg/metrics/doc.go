// Package metrics provides Prometheus instrumentation for governor components.
//
// This package enables monitoring and observability for the governor's
// admission control, circuit breaking, and fallback execution through
// Prometheus metrics.
//
// # Overview
//
// The metrics package provides automatic instrumentation for:
//   - Admission control (checks, allows, denies, retry-after hints, token adjustments)
//   - Circuit breakers (open state, failures, rejections, transitions)
//   - Governed execution (outcomes, attempt counts, retries, call durations)
//
// # Quick Start
//
// Enable metrics by using the metrics-enabled constructors:
//
//	// Rate limiter with metrics
//	limiter := quota.NewWithMetrics(quota.DefaultConfig())
//
//	// Circuit breaker with metrics
//	brk := breaker.NewWithMetrics(breaker.DefaultConfig())
//
// Then expose metrics via HTTP:
//
//	http.Handle("/metrics", promhttp.Handler())
//	log.Fatal(http.ListenAndServe(":8080", nil))
//
// # Custom Registry
//
// Use a custom Prometheus registry for isolation:
//
//	registry := prometheus.NewRegistry()
//	config := metrics.Config{
//		Enabled:  true,
//		Registry: registry,
//	}
//
//	limiter := quota.NewWithConfigAndMetrics(quota.DefaultConfig(), config)
//
// # Available Metrics
//
// ## Admission Metrics
//
//   - governor_admission_checks_total: Total number of admission checks
//   - governor_admission_allowed_total: Total number of admitted requests
//   - governor_admission_denied_total: Total number of denied requests by limit axis
//   - governor_admission_retry_after_seconds: Retry-after hints attached to denials
//   - governor_admission_tokens_remaining: Remaining capacity per identity and axis
//   - governor_admission_tokens_adjusted_total: Post-call token adjustments by direction
//
// ## Circuit Breaker Metrics
//
//   - governor_breaker_open: Whether the circuit is open (1) or closed (0)
//   - governor_breaker_failures_total: Total number of recorded upstream failures
//   - governor_breaker_rejections_total: Total number of calls rejected while open
//   - governor_breaker_transitions_total: State transitions by target state
//
// ## Execution Metrics
//
//   - governor_execute_executions_total: Governed executions by outcome
//   - governor_execute_attempts: Upstream attempts per execution
//   - governor_execute_fallback_depth: Routes abandoned before the one that answered
//   - governor_execute_retries_total: In-place retries after transient errors
//   - governor_execute_call_duration_seconds: Time spent in upstream calls
//
// # Labels
//
//   - identity: Rate-limit identity (provider name) of the upstream
//   - axis: Limit axis that produced the observation ("requests" or "tokens")
//   - endpoint: Circuit breaker key (base URL or connection string)
//   - state: Breaker state after a transition ("open" or "closed")
//   - primary: Identity the execution was originally routed to
//   - outcome: Execution result ("success", "fallback", "failed")
//   - direction: Token adjustment direction ("debit" or "credit")
//
// # Runtime Control
//
// Components implementing the Instrumentable interface support runtime control:
//
//	limiter := quota.NewWithMetrics(quota.DefaultConfig()).(*quota.MetricsLimiter)
//	limiter.DisableMetrics()
//	limiter.EnableMetrics(config)
//	enabled := limiter.MetricsEnabled()
//
// # Performance
//
// Metrics collection is designed for minimal overhead:
//   - Metrics are updated only when operations occur
//   - No background goroutines or timers
//   - Conditional metrics updates based on enabled state
package metrics
