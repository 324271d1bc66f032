/*
Package ratelimit provides admission-control primitives for unreliable,
rate-limited upstreams.

This package offers two layers:

  - bucket: Token bucket with continuous-time refill, the atomic unit of
    admission control
  - quota: Per-identity dual-bucket rate limiter tracking request count and
    token volume independently

The bucket layer grants or denies units against a refilling balance:

	b := bucket.New(5, 10) // capacity 5, refills 10 units/sec
	if b.Consume(1) {
		// Admitted
	}

The quota layer keys bucket pairs by upstream identity and adds usage
accounting. A request is admitted only when both the request-count and the
token-volume axis have budget, and the pre-call estimate is reconciled
against actual cost after the call:

	limiter := quota.New()
	if err := limiter.Check("openai", 500); err != nil {
		// Denied; err carries the axis and a retry-after hint
	}
	// ... call the upstream ...
	limiter.RecordUsage("openai", actualTokens, 500)

All limiters are safe for concurrent use. Rejections are immediate and
carry retry-after hints; nothing in this package blocks or sleeps.
*/
package ratelimit
