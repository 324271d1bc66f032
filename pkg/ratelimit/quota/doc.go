/*
Package quota provides per-identity, dual-axis admission control for
metered upstreams such as LLM provider APIs.

Each identity (typically a provider name) is governed by two budgets at
once: a request-count budget and a token-volume budget, both expressed
per minute and both enforced by continuously refilling token buckets.
A call is admitted only when both budgets have room.

Basic usage:

	limiter := quota.New()

	if err := limiter.Check("openai", 500); err != nil {
		var limitErr *quota.LimitError
		if errors.As(err, &limitErr) {
			// Back off for limitErr.RetryAfter before retrying
		}
		return err
	}

	// ... call the upstream ...

	limiter.RecordUsage("openai", actualTokens, 500)

Dual-Axis Admission:

Check consumes one request slot and the estimated token cost together.
If the request budget is exhausted, the call is rejected on the requests
axis. If the request budget admits but the token budget rejects, the
request slot is refunded and the call is rejected on the tokens axis.
Either way a rejected check leaves both budgets exactly as it found
them, and the returned *LimitError carries the axis and a retry-after
hint derived from the refill rate.

Usage Reconciliation:

Estimates are made before a call, but upstreams report the real token
count afterwards. RecordUsage settles the difference: an underestimate
debits the extra tokens, an overestimate credits them back. Debits may
push the token balance below zero; the identity is then locked out on
the token axis until continuous refill repays the debt. This keeps
sustained throughput tied to actual usage rather than to the quality of
the estimator.

Configuration:

	config := quota.Config{
		Enabled:  true,
		Defaults: quota.Limits{RequestsPerMinute: 20, TokensPerMinute: 100000},
		Overrides: map[string]quota.Limits{
			"openai": {RequestsPerMinute: 60, TokensPerMinute: 150000},
		},
	}
	limiter := quota.NewWithConfig(config)

Identities not present in Overrides fall back to Defaults. Setting
Enabled to false turns the limiter into a pass-through: every check
admits and reconciliation is skipped, which is useful in tests and in
environments where the upstream enforces its own limits.

Metrics Integration:

	limiter := quota.NewWithMetrics(quota.DefaultConfig())

The metrics-enabled limiter records admission decisions, per-axis
rejections with retry-after distributions, reconciliation corrections,
and remaining-capacity gauges. See the metrics package for the full
instrument list.

Observability:

	for _, identity := range limiter.Identities() {
		stats := limiter.UsageStats(identity)
		requests, tokens := limiter.Remaining(identity)
		// ... report ...
	}

Thread Safety:

All operations are safe for concurrent use. Budget state is sharded per
identity, so admission checks for different identities do not contend.
*/
package quota
