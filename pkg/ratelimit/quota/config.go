package quota

import (
	"github.com/dbadmin-ai/governor/pkg/ratelimit/bucket"
)

// Limits defines the per-minute admission budget for one identity.
type Limits struct {
	// RequestsPerMinute caps how many calls may be admitted per minute.
	RequestsPerMinute float64

	// TokensPerMinute caps the estimated token volume admitted per minute.
	TokensPerMinute float64
}

// Config holds rate limiter configuration.
type Config struct {
	// Enabled turns admission checks on. When false, Check always admits
	// and RecordUsage is a no-op.
	Enabled bool

	// Defaults applies to any identity without an entry in Overrides.
	Defaults Limits

	// Overrides maps identity names to their specific budgets.
	Overrides map[string]Limits

	// Clock is the time source for bucket refill. If nil, the system
	// clock is used.
	Clock bucket.Clock
}

// DefaultConfig returns the stock configuration: admission enabled, a
// conservative default budget, and per-provider overrides sized for the
// free and entry tiers of the supported upstreams.
func DefaultConfig() Config {
	return Config{
		Enabled: true,
		Defaults: Limits{
			RequestsPerMinute: 20,
			TokensPerMinute:   100000,
		},
		Overrides: map[string]Limits{
			"openai":     {RequestsPerMinute: 60, TokensPerMinute: 150000},
			"groq":       {RequestsPerMinute: 30, TokensPerMinute: 100000},
			"openrouter": {RequestsPerMinute: 100, TokensPerMinute: 200000},
			"anthropic":  {RequestsPerMinute: 50, TokensPerMinute: 100000},
			"ollama":     {RequestsPerMinute: 1000, TokensPerMinute: 10000000},
		},
		Clock: bucket.SystemClock{},
	}
}
