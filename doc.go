/*
Package governor provides admission control and failure resilience for
calls to rate-limited, unreliable upstreams.

Rate Limiting (pkg/ratelimit):
  - bucket: Token bucket with continuous-time refill
  - quota: Per-identity request and token budgets with usage reconciliation

Resilience (pkg/resilience):
  - breaker: Keyed circuit breaker with cooldown recovery
  - governor: Error classification, bounded retry, and ordered fallback
    around upstream calls

Supporting packages:
  - config: YAML configuration loading with builtin defaults
  - metrics: Prometheus instrumentation for every layer
  - observability: leveled logging facade and cron-driven usage snapshots
  - upstream/redisguard: Redis client adapter run through the governor

Example usage:

	import (
		"github.com/dbadmin-ai/governor/pkg/resilience/governor"
	)

	g := governor.New(callUpstream)

	route := governor.Route{Identity: "openai", Endpoint: "https://api.openai.com/v1"}
	result, err := g.Execute(ctx, route, governor.Request{Payload: body})
	if err == nil && result.UsedFallback {
		// A fallback provider answered
	}
*/
package governor
