package quota

import (
	"fmt"
	"sort"
	"sync"
	"time"

	gverrors "github.com/dbadmin-ai/governor/pkg/common/errors"
	"github.com/dbadmin-ai/governor/pkg/common/validation"
	"github.com/dbadmin-ai/governor/pkg/ratelimit/bucket"
)

// Axis identifies which budget produced an admission decision.
type Axis string

const (
	// AxisRequests is the per-minute request count budget.
	AxisRequests Axis = "requests"

	// AxisTokens is the per-minute token volume budget.
	AxisTokens Axis = "tokens"
)

// LimitError reports a denied admission along with the axis that was
// exhausted and how long the caller should wait before retrying.
type LimitError struct {
	Identity   string
	Axis       Axis
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *LimitError) Error() string {
	return fmt.Sprintf("quota: %s limit exceeded for %s, retry in %.1fs",
		e.Axis, e.Identity, e.RetryAfter.Seconds())
}

// Unwrap supports errors.Is(err, errors.ErrRateLimited) checks.
func (e *LimitError) Unwrap() error {
	return gverrors.ErrRateLimited
}

// Stats accumulates admitted traffic for one identity.
type Stats struct {
	// Requests is the number of admitted calls.
	Requests int64

	// Tokens is the total estimated token volume admitted.
	Tokens float64
}

// Limiter is the admission-control interface for per-identity dual-axis
// rate limiting.
type Limiter interface {
	// Check admits or rejects one call for identity carrying an estimated
	// token cost. A nil return admits the call; otherwise the error is a
	// *LimitError naming the exhausted axis.
	Check(identity string, estimatedTokens float64) error

	// RecordUsage reconciles the estimate consumed by an earlier Check
	// against the actual token usage reported by the upstream.
	RecordUsage(identity string, actualTokens, estimatedTokens float64)

	// UsageStats returns the accumulated admitted traffic for identity.
	UsageStats(identity string) Stats

	// Remaining returns the request and token capacity currently
	// available to identity.
	Remaining(identity string) (requests, tokens float64)

	// Identities returns every identity seen so far, sorted.
	Identities() []string
}

// entry pairs the two budget buckets for one identity.
type entry struct {
	requests *bucket.Bucket
	tokens   *bucket.Bucket

	mu    sync.Mutex
	stats Stats
}

type rateLimiter struct {
	config Config

	mu      sync.Mutex
	entries map[string]*entry
}

// New creates a rate limiter with the default configuration.
func New() Limiter {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a rate limiter with custom configuration.
// It panics if the configuration is invalid.
func NewWithConfig(config Config) Limiter {
	limiter, err := NewWithConfigSafe(config)
	if err != nil {
		panic(err)
	}
	return limiter
}

// NewWithConfigSafe creates a rate limiter with custom configuration,
// returning an error if the configuration is invalid.
func NewWithConfigSafe(config Config) (Limiter, error) {
	if err := validateLimits("defaults", config.Defaults); err != nil {
		return nil, err
	}
	for identity, limits := range config.Overrides {
		if err := validateLimits("overrides["+identity+"]", limits); err != nil {
			return nil, err
		}
	}

	if config.Clock == nil {
		config.Clock = bucket.SystemClock{}
	}

	return &rateLimiter{
		config:  config,
		entries: make(map[string]*entry),
	}, nil
}

func validateLimits(field string, limits Limits) error {
	if err := validation.ValidatePositiveFloat("quota", field+".requestsPerMinute", limits.RequestsPerMinute); err != nil {
		return err
	}
	return validation.ValidatePositiveFloat("quota", field+".tokensPerMinute", limits.TokensPerMinute)
}

// limitsFor resolves the budget for identity: an override when one is
// configured, the defaults otherwise.
func (l *rateLimiter) limitsFor(identity string) Limits {
	if limits, ok := l.config.Overrides[identity]; ok {
		return limits
	}
	return l.config.Defaults
}

// entryFor returns the bucket pair for identity, creating it on first use.
// Both buckets start full and refill continuously at their per-minute rate.
func (l *rateLimiter) entryFor(identity string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.entries[identity]; ok {
		return e
	}

	limits := l.limitsFor(identity)
	e := &entry{
		requests: bucket.NewWithConfig(bucket.Config{
			Capacity:      limits.RequestsPerMinute,
			RefillRate:    limits.RequestsPerMinute / 60,
			Clock:         l.config.Clock,
			InitialTokens: -1,
		}),
		tokens: bucket.NewWithConfig(bucket.Config{
			Capacity:      limits.TokensPerMinute,
			RefillRate:    limits.TokensPerMinute / 60,
			Clock:         l.config.Clock,
			InitialTokens: -1,
		}),
	}
	l.entries[identity] = e
	return e
}

// Check admits or rejects one call for identity.
//
// Both axes must admit. A request slot is consumed first, then the
// estimated token volume; if the token axis rejects, the request slot is
// refunded so a failed check leaves no residue.
func (l *rateLimiter) Check(identity string, estimatedTokens float64) error {
	if !l.config.Enabled {
		return nil
	}

	e := l.entryFor(identity)

	if !e.requests.Consume(1) {
		return &LimitError{
			Identity:   identity,
			Axis:       AxisRequests,
			RetryAfter: e.requests.TimeUntilAvailable(1),
		}
	}

	if !e.tokens.Consume(estimatedTokens) {
		e.requests.Adjust(1) // refund the request slot
		return &LimitError{
			Identity:   identity,
			Axis:       AxisTokens,
			RetryAfter: e.tokens.TimeUntilAvailable(estimatedTokens),
		}
	}

	e.mu.Lock()
	e.stats.Requests++
	if estimatedTokens > 0 {
		e.stats.Tokens += estimatedTokens
	}
	e.mu.Unlock()

	return nil
}

// RecordUsage reconciles the estimate consumed by an earlier Check against
// the actual usage reported by the upstream. Underestimates debit the
// difference, which may push the token balance negative until refill
// repays the debt; overestimates credit the difference back. Identities
// that were never checked are ignored.
func (l *rateLimiter) RecordUsage(identity string, actualTokens, estimatedTokens float64) {
	if !l.config.Enabled {
		return
	}

	l.mu.Lock()
	e, ok := l.entries[identity]
	l.mu.Unlock()
	if !ok {
		return
	}

	e.tokens.Adjust(estimatedTokens - actualTokens)
}

// UsageStats returns the accumulated admitted traffic for identity. An
// identity that has never been checked reports zero.
func (l *rateLimiter) UsageStats(identity string) Stats {
	l.mu.Lock()
	e, ok := l.entries[identity]
	l.mu.Unlock()
	if !ok {
		return Stats{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Remaining returns the request and token capacity currently available to
// identity. Balances pushed negative by usage reconciliation report as
// zero. An unknown identity reports the full budget it would start with.
func (l *rateLimiter) Remaining(identity string) (requests, tokens float64) {
	e := l.entryFor(identity)

	requests = e.requests.Tokens()
	if requests < 0 {
		requests = 0
	}
	tokens = e.tokens.Tokens()
	if tokens < 0 {
		tokens = 0
	}
	return requests, tokens
}

// Identities returns every identity seen so far in sorted order.
func (l *rateLimiter) Identities() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := make([]string, 0, len(l.entries))
	for identity := range l.entries {
		ids = append(ids, identity)
	}
	sort.Strings(ids)
	return ids
}
