package breaker

import (
	"fmt"
	"sort"
	"sync"
	"time"

	gverrors "github.com/dbadmin-ai/governor/pkg/common/errors"
	"github.com/dbadmin-ai/governor/pkg/common/validation"
	"github.com/dbadmin-ai/governor/pkg/observability/logging"
)

// Clock abstracts time for testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the system time.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// State describes the admission posture of one circuit.
type State int

const (
	// StateClosed permits calls while failures are tracked.
	StateClosed State = iota

	// StateOpen rejects all calls until the cooldown elapses.
	StateOpen
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// OpenError reports a call rejected by an open circuit, carrying the
// remaining cooldown.
type OpenError struct {
	Key        string
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *OpenError) Error() string {
	return fmt.Sprintf("breaker: circuit open for %s, retry in %.1fs", e.Key, e.RetryAfter.Seconds())
}

// Unwrap supports errors.Is(err, errors.ErrCircuitOpen) checks.
func (e *OpenError) Unwrap() error {
	return gverrors.ErrCircuitOpen
}

// Config holds circuit breaker configuration.
type Config struct {
	// Threshold is the failure count at which a circuit opens.
	Threshold int

	// Cooldown is how long an open circuit rejects calls before the next
	// attempt is permitted.
	Cooldown time.Duration

	// Clock is the time source. If nil, the system clock is used.
	Clock Clock
}

// DefaultConfig returns the stock configuration: open after 5 failures,
// stay open for one minute.
func DefaultConfig() Config {
	return Config{
		Threshold: 5,
		Cooldown:  60 * time.Second,
		Clock:     SystemClock{},
	}
}

// Breaker tracks upstream failures per endpoint key and rejects calls to
// endpoints whose circuit is open.
type Breaker interface {
	// Check admits or rejects a call to the endpoint key. A nil return
	// admits; otherwise the error is an *OpenError carrying the remaining
	// cooldown. When the cooldown has elapsed, Check closes the circuit,
	// resets its failure count, and admits.
	Check(key string) error

	// RecordFailure counts one failure against key, opening the circuit
	// when the threshold is reached.
	RecordFailure(key string)

	// RecordSuccess clears all failure state for key.
	RecordSuccess(key string)

	// Snapshot reports the current state, failure count, and remaining
	// cooldown for key without changing anything.
	Snapshot(key string) (State, int, time.Duration)

	// Keys returns every tracked endpoint key, sorted.
	Keys() []string
}

// circuit is the tracked state for one endpoint key. A zero openUntil
// means the circuit is closed.
type circuit struct {
	failures  int
	openUntil time.Time
}

type circuitBreaker struct {
	config Config

	mu       sync.Mutex
	circuits map[string]*circuit
}

// New creates a circuit breaker with the default configuration.
func New() Breaker {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a circuit breaker with custom configuration.
// It panics if the configuration is invalid.
func NewWithConfig(config Config) Breaker {
	b, err := NewWithConfigSafe(config)
	if err != nil {
		panic(err)
	}
	return b
}

// NewWithConfigSafe creates a circuit breaker with custom configuration,
// returning an error if the configuration is invalid.
func NewWithConfigSafe(config Config) (Breaker, error) {
	if err := validation.ValidatePositive("breaker", "threshold", config.Threshold); err != nil {
		return nil, err
	}
	if config.Cooldown <= 0 {
		return nil, gverrors.NewValidationError("breaker", "cooldown", config.Cooldown, "must be positive").
			WithHint("cooldown is how long a tripped circuit rejects calls")
	}

	if config.Clock == nil {
		config.Clock = SystemClock{}
	}

	return &circuitBreaker{
		config:   config,
		circuits: make(map[string]*circuit),
	}, nil
}

// Check admits or rejects a call to key.
func (b *circuitBreaker) Check(key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.circuits[key]
	if !ok || c.openUntil.IsZero() {
		return nil
	}

	now := b.config.Clock.Now()
	if now.Before(c.openUntil) {
		return &OpenError{Key: key, RetryAfter: c.openUntil.Sub(now)}
	}

	// Cooldown elapsed: close the circuit with a clean slate and let this
	// caller retry optimistically.
	delete(b.circuits, key)
	logging.Debugf("breaker: circuit closed for %s after cooldown", key)
	return nil
}

// RecordFailure counts one failure against key.
func (b *circuitBreaker) RecordFailure(key string) {
	b.mu.Lock()

	c, ok := b.circuits[key]
	if !ok {
		c = &circuit{}
		b.circuits[key] = c
	}

	now := b.config.Clock.Now()
	if !c.openUntil.IsZero() && !now.Before(c.openUntil) {
		// Cooldown elapsed before anyone checked; start a fresh count.
		c.failures = 0
		c.openUntil = time.Time{}
	}

	c.failures++
	opened := false
	if c.failures >= b.config.Threshold {
		c.openUntil = now.Add(b.config.Cooldown)
		opened = c.failures == b.config.Threshold
	}
	failures := c.failures

	b.mu.Unlock()

	if opened {
		logging.Warnf("breaker: circuit opened for %s after %d failures", key, failures)
	}
}

// RecordSuccess clears all failure state for key.
func (b *circuitBreaker) RecordSuccess(key string) {
	b.mu.Lock()
	c, ok := b.circuits[key]
	wasOpen := ok && !c.openUntil.IsZero() && b.config.Clock.Now().Before(c.openUntil)
	delete(b.circuits, key)
	b.mu.Unlock()

	if wasOpen {
		logging.Debugf("breaker: circuit closed for %s after success", key)
	}
}

// Snapshot reports the current view of key without changing anything.
// A circuit whose cooldown has elapsed reports as closed; its stale
// failure count is cleared by the next Check or RecordFailure.
func (b *circuitBreaker) Snapshot(key string) (State, int, time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.circuits[key]
	if !ok {
		return StateClosed, 0, 0
	}

	if !c.openUntil.IsZero() {
		now := b.config.Clock.Now()
		if now.Before(c.openUntil) {
			return StateOpen, c.failures, c.openUntil.Sub(now)
		}
	}
	return StateClosed, c.failures, 0
}

// Keys returns every tracked endpoint key in sorted order.
func (b *circuitBreaker) Keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	keys := make([]string, 0, len(b.circuits))
	for key := range b.circuits {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
