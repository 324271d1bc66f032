/*
Package governor orchestrates rate-limited, breaker-guarded calls across
an ordered chain of fallback providers.

A single Execute call encapsulates the whole resilience policy for one
logical request: admission control on two axes, circuit breaking per
endpoint, bounded in-place retry with exponential backoff for transient
failures, and ordered failover to alternate providers. The caller gets
either the first successful response or one aggregate error holding the
full attempt history.

Basic usage:

	g := governor.New(func(ctx context.Context, route governor.Route, req governor.Request) (*governor.Response, error) {
		// Invoke the provider at route.Endpoint with req.Payload
		return doCall(ctx, route, req)
	})

	result, err := g.Execute(ctx, governor.Route{
		Identity: "groq",
		Endpoint: "https://api.groq.com/openai/v1",
	}, governor.Request{Payload: body})
	if err != nil {
		// Every route failed; err is an *AllFailedError
		return err
	}
	if result.UsedFallback {
		// A chained provider answered instead of the primary
	}

Execution Order:

For each route, in order (the primary, then its configured chain):

 1. Availability: routes without usable credentials are skipped.
 2. Admission: the rate limiter and then the circuit breaker must both
    admit; a rejection advances to the next route immediately, since
    retrying an exhausted identity cannot help.
 3. The upstream call, retried in place up to MaxAttempts times with
    exponential backoff while failures classify as transient. Admission
    is re-checked before every retry. Permanent failures and context
    cancellation advance to the next route without further tries.

Every failure is recorded with the breaker; every success clears it and
reconciles actual token usage with the rate limiter.

Error Classification:

Connectivity-level failures (timeouts, connection resets, refused
connections, truncated reads) are retried in place; anything else moves
on to the next route. Call implementations can override the automatic
rules by wrapping errors:

	return nil, governor.Transient(fmt.Errorf("status 503"))
	return nil, governor.Permanent(fmt.Errorf("status 401"))

Providers and Chains:

The builtin registry describes the supported providers (base URLs, API
key environment variables, default models) and three tier chains: "mini",
"smart", and "reasoning". By default a primary's chain is looked up by
its identity; any chain table can be injected via Config.Chains.

	routes := governor.BuiltinChains()["smart"]
	result, err := g.Execute(ctx, routes[0], req)

Configuration:

	g := governor.NewWithConfig(governor.Config{
		Call:        callFn,
		MaxAttempts: 5,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    8 * time.Second,
	})

Nil sub-components are filled with defaults that share the config's
Clock, which keeps clock-driven tests coherent across the limiter, the
breaker, and the governor.

Metrics Integration:

	g := governor.NewWithMetrics(callFn)

The metrics-enabled governor records execution outcomes, attempt counts,
fallback depth, in-place retries, and upstream call durations. See the
metrics package for the instrument list.

Thread Safety:

Execute is safe for concurrent use; all mutable state lives in the rate
limiter and the breaker.
*/
package governor
