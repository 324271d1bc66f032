/*
Package resilience provides failure handling for governed upstream calls.

This package offers two layers:

  - breaker: Per-endpoint circuit breaker that stops calling upstreams
    which keep failing
  - governor: Fallback orchestrator that walks an ordered provider chain,
    retrying transient errors and skipping endpoints the breaker or rate
    limiter rejects

The breaker layer counts consecutive failures per endpoint and opens the
circuit once a threshold is crossed; while open, calls are rejected
immediately with a retry-after hint:

	brk := breaker.New()
	if err := brk.Check(endpoint); err != nil {
		// Circuit open; skip this endpoint for now
	}

The governor layer composes the breaker with the quota limiter and a
configured fallback chain, so a single Execute call encapsulates the whole
admission, retry, and failover policy:

	result, err := governor.New(call).Execute(ctx, primary, req)

All types are safe for concurrent use.
*/
package resilience
