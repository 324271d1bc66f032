/*
Package breaker provides a per-endpoint circuit breaker for unreliable
upstreams.

Each endpoint key (typically a base URL or connection string) carries its
own failure count. When the count reaches the configured threshold the
circuit opens, and every call to that endpoint is rejected immediately
until a fixed cooldown elapses. A success at any point wipes the slate
clean.

Basic usage:

	brk := breaker.New()

	if err := brk.Check(endpoint); err != nil {
		// Circuit open; err carries the remaining cooldown
		return err
	}

	if callErr := callUpstream(endpoint); callErr != nil {
		brk.RecordFailure(endpoint)
		return callErr
	}
	brk.RecordSuccess(endpoint)

State Model:

A circuit is closed until RecordFailure has been called threshold times
without an intervening RecordSuccess. It then opens for the cooldown
period, during which Check returns an *OpenError carrying the remaining
wait. Once the cooldown elapses, the next Check closes the circuit,
resets the failure count to zero, and admits the caller. There is no
single-probe half-open phase: after the cooldown, callers proceed
normally and the circuit re-opens only if failures accumulate to the
threshold again.

Failures recorded while the circuit is already open extend the cooldown
from the time of the failure. This covers calls that were in flight when
the circuit opened.

Configuration:

	brk := breaker.NewWithConfig(breaker.Config{
		Threshold: 3,
		Cooldown:  30 * time.Second,
	})

Error Handling:

	err := brk.Check(endpoint)
	var openErr *breaker.OpenError
	if errors.As(err, &openErr) {
		// openErr.RetryAfter is the remaining cooldown
	}

Rejections unwrap to errors.ErrCircuitOpen for sentinel checks.

Metrics Integration:

	brk := breaker.NewWithMetrics(breaker.DefaultConfig())

The metrics-enabled breaker records failures, rejections, state
transitions, and an open/closed gauge per endpoint key. See the metrics
package for the instrument list.

Observability:

	for _, key := range brk.Keys() {
		state, failures, retryAfter := brk.Snapshot(key)
		// ... report ...
	}

Thread Safety:

All operations are safe for concurrent use.
*/
package breaker
