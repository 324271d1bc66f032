package governor

import (
	"context"
	"fmt"
	"time"

	gverrors "github.com/dbadmin-ai/governor/pkg/common/errors"
	"github.com/dbadmin-ai/governor/pkg/observability/logging"
	"github.com/dbadmin-ai/governor/pkg/ratelimit/quota"
	"github.com/dbadmin-ai/governor/pkg/resilience/breaker"
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

// Route names one upstream target: Identity is the rate-limit key,
// Endpoint the circuit breaker key (typically a base URL).
type Route struct {
	Identity string
	Endpoint string
}

// Request is one logical request to execute.
type Request struct {
	// Payload is the request body handed to the Call function.
	Payload []byte

	// EstimatedTokens overrides the size-based estimate when positive.
	EstimatedTokens float64
}

// Response is a successful upstream result.
type Response struct {
	// Payload is the response body.
	Payload []byte

	// TokensUsed is the actual token cost reported by the upstream; zero
	// when the upstream reports none.
	TokensUsed float64
}

// CallFunc invokes the upstream for one route. Implementations should
// honor ctx and may wrap errors with Transient or Permanent to steer
// retry handling.
type CallFunc func(ctx context.Context, route Route, req Request) (*Response, error)

// AvailabilityFunc reports whether a route is currently usable, for
// example whether its credentials are present.
type AvailabilityFunc func(route Route) bool

// SleepFunc waits between retries. It returns early with the context
// error when ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Attempt records the outcome of one try against one route. A nil Err
// marks the success entry.
type Attempt struct {
	Route Route
	Err   error
}

// Result is the outcome of a successful execution.
type Result struct {
	// Response is the upstream response.
	Response *Response

	// Route is the route that produced the response.
	Route Route

	// UsedFallback is true when Route differs from the requested primary.
	UsedFallback bool

	// Attempts is the full ordered history, ending with the success entry.
	Attempts []Attempt
}

// Config holds governor configuration.
type Config struct {
	// Call invokes the upstream for one route. Required.
	Call CallFunc

	// Quota is the admission rate limiter. If nil, a default limiter is
	// built with this config's Clock.
	Quota quota.Limiter

	// Breaker is the per-endpoint circuit breaker. If nil, a default
	// breaker is built with this config's Clock.
	Breaker breaker.Breaker

	// Chains maps a primary identity to its ordered fallback routes. The
	// primary itself may appear in its own chain; duplicates are tried
	// once. If nil, DefaultChains() is used.
	Chains map[string][]Route

	// Availability gates each route before admission. If nil, it is built
	// from the builtin provider registry's environment keys.
	Availability AvailabilityFunc

	// MaxAttempts bounds tries per route, including the first call.
	// Zero means the default of 3.
	MaxAttempts int

	// BaseDelay is the backoff before the first retry; it doubles per
	// retry. Zero means the default of 1s.
	BaseDelay time.Duration

	// MaxDelay caps the backoff. Zero means the default of 10s.
	MaxDelay time.Duration

	// Clock is the time source. If nil, the system clock is used.
	Clock Clock

	// Sleep waits out retry backoff; a test seam. If nil, a context-aware
	// sleep is used.
	Sleep SleepFunc
}

// DefaultConfig returns the stock configuration around the given call:
// builtin chains and availability, three attempts per route, backoff
// doubling from 1s capped at 10s.
func DefaultConfig(call CallFunc) Config {
	return Config{
		Call:         call,
		Chains:       DefaultChains(),
		Availability: EnvAvailability(BuiltinProviders()),
		MaxAttempts:  3,
		BaseDelay:    time.Second,
		MaxDelay:     10 * time.Second,
		Clock:        SystemClock{},
	}
}

// Governor executes requests with admission control, bounded retry, and
// ordered fallback across provider routes.
type Governor interface {
	// Execute runs one request against the primary route and then its
	// fallback chain. It returns the first successful result, or an
	// *AllFailedError aggregating every attempt in order.
	Execute(ctx context.Context, primary Route, req Request) (*Result, error)

	// ChainFor returns the configured fallback chain for identity.
	ChainFor(identity string) []Route
}

type resilienceGovernor struct {
	config Config
}

// New creates a governor around call with the default configuration.
func New(call CallFunc) Governor {
	return NewWithConfig(DefaultConfig(call))
}

// NewWithConfig creates a governor with custom configuration.
// It panics if the configuration is invalid.
func NewWithConfig(config Config) Governor {
	g, err := NewWithConfigSafe(config)
	if err != nil {
		panic(err)
	}
	return g
}

// NewWithConfigSafe creates a governor with custom configuration,
// returning an error if the configuration is invalid. Zero-valued
// optional fields are filled with defaults.
func NewWithConfigSafe(config Config) (Governor, error) {
	if config.Call == nil {
		return nil, gverrors.NewValidationError("governor", "call", nil, "must not be nil").
			WithHint("provide the function that invokes the upstream")
	}
	if config.MaxAttempts < 0 {
		return nil, gverrors.NewValidationError("governor", "maxAttempts", config.MaxAttempts, "cannot be negative")
	}
	if config.BaseDelay < 0 {
		return nil, gverrors.NewValidationError("governor", "baseDelay", config.BaseDelay, "cannot be negative")
	}
	if config.MaxDelay < 0 {
		return nil, gverrors.NewValidationError("governor", "maxDelay", config.MaxDelay, "cannot be negative")
	}

	if config.MaxAttempts == 0 {
		config.MaxAttempts = 3
	}
	if config.BaseDelay == 0 {
		config.BaseDelay = time.Second
	}
	if config.MaxDelay == 0 {
		config.MaxDelay = 10 * time.Second
	}
	if config.BaseDelay > config.MaxDelay {
		return nil, gverrors.NewValidationError("governor", "baseDelay", config.BaseDelay, "cannot exceed maxDelay")
	}

	if config.Clock == nil {
		config.Clock = SystemClock{}
	}
	if config.Quota == nil {
		quotaConfig := quota.DefaultConfig()
		quotaConfig.Clock = config.Clock
		config.Quota = quota.NewWithConfig(quotaConfig)
	}
	if config.Breaker == nil {
		breakerConfig := breaker.DefaultConfig()
		breakerConfig.Clock = config.Clock
		config.Breaker = breaker.NewWithConfig(breakerConfig)
	}
	if config.Chains == nil {
		config.Chains = DefaultChains()
	}
	if config.Availability == nil {
		config.Availability = EnvAvailability(BuiltinProviders())
	}
	if config.Sleep == nil {
		config.Sleep = defaultSleep
	}

	return &resilienceGovernor{config: config}, nil
}

// Execute runs one request against the primary route and its chain.
func (g *resilienceGovernor) Execute(ctx context.Context, primary Route, req Request) (*Result, error) {
	estimate := req.EstimatedTokens
	if estimate <= 0 {
		estimate = EstimateTokens(req.Payload)
	}

	var attempts []Attempt
	for _, route := range g.routesFor(primary) {
		if !g.config.Availability(route) {
			logging.Debugf("governor: skipping %s, unavailable", route.Identity)
			attempts = append(attempts, Attempt{
				Route: route,
				Err:   fmt.Errorf("%s: %w", route.Identity, gverrors.ErrUnavailable),
			})
			continue
		}

		resp, routeAttempts := g.tryRoute(ctx, route, req, estimate)
		attempts = append(attempts, routeAttempts...)
		if resp != nil {
			if route != primary {
				logging.Infof("governor: %s answered as fallback for %s", route.Identity, primary.Identity)
			}
			return &Result{
				Response:     resp,
				Route:        route,
				UsedFallback: route != primary,
				Attempts:     append(attempts, Attempt{Route: route}),
			}, nil
		}

		// A dead context makes every remaining route pointless.
		if ctx.Err() != nil {
			break
		}
	}

	err := &AllFailedError{Attempts: attempts}
	logging.Errorf("governor: %v", err)
	return nil, err
}

// ChainFor returns a copy of the configured fallback chain for identity.
func (g *resilienceGovernor) ChainFor(identity string) []Route {
	chain := g.config.Chains[identity]
	routes := make([]Route, len(chain))
	copy(routes, chain)
	return routes
}

// routesFor builds the ordered route list: the primary, then its chain
// with duplicates removed.
func (g *resilienceGovernor) routesFor(primary Route) []Route {
	routes := []Route{primary}
	seen := map[Route]bool{primary: true}
	for _, route := range g.config.Chains[primary.Identity] {
		if seen[route] {
			continue
		}
		seen[route] = true
		routes = append(routes, route)
	}
	return routes
}

// admit runs both admission gates for one try. The quota check consumes
// budget that is not refunded if the breaker then rejects; the estimate
// is pessimistic and reconciled after the call.
func (g *resilienceGovernor) admit(route Route, estimate float64) error {
	if err := g.config.Quota.Check(route.Identity, estimate); err != nil {
		logging.Debugf("governor: %s rate limited: %v", route.Identity, err)
		return err
	}
	if err := g.config.Breaker.Check(route.Endpoint); err != nil {
		logging.Debugf("governor: %s rejected by breaker: %v", route.Identity, err)
		return err
	}
	return nil
}

// tryRoute runs admission and the bounded retry loop for one route. On
// success it returns the response; every failed or rejected try is
// recorded in the returned attempts.
func (g *resilienceGovernor) tryRoute(ctx context.Context, route Route, req Request, estimate float64) (*Response, []Attempt) {
	var attempts []Attempt

	if err := g.admit(route, estimate); err != nil {
		return nil, append(attempts, Attempt{Route: route, Err: err})
	}

	for attempt := 1; ; attempt++ {
		resp, err := g.config.Call(ctx, route, req)
		if err == nil {
			if resp != nil && resp.TokensUsed > 0 {
				g.config.Quota.RecordUsage(route.Identity, resp.TokensUsed, estimate)
			}
			g.config.Breaker.RecordSuccess(route.Endpoint)
			return resp, attempts
		}

		g.config.Breaker.RecordFailure(route.Endpoint)
		attempts = append(attempts, Attempt{Route: route, Err: err})

		if ctx.Err() != nil || Classify(err) == ClassPermanent {
			logging.Debugf("governor: %s failed permanently: %v", route.Identity, err)
			return nil, attempts
		}
		if attempt >= g.config.MaxAttempts {
			logging.Debugf("governor: %s exhausted %d attempts", route.Identity, g.config.MaxAttempts)
			return nil, attempts
		}

		delay := g.backoff(attempt)
		logging.Debugf("governor: retrying %s in %v (attempt %d/%d)", route.Identity, delay, attempt+1, g.config.MaxAttempts)
		if sleepErr := g.config.Sleep(ctx, delay); sleepErr != nil {
			return nil, append(attempts, Attempt{Route: route, Err: sleepErr})
		}

		// The wait may have drained budgets or opened the circuit.
		if admitErr := g.admit(route, estimate); admitErr != nil {
			return nil, append(attempts, Attempt{Route: route, Err: admitErr})
		}
	}
}

// backoff returns the delay before the retry following the given attempt
// number: BaseDelay doubled per retry, capped at MaxDelay.
func (g *resilienceGovernor) backoff(attempt int) time.Duration {
	delay := g.config.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= g.config.MaxDelay {
			return g.config.MaxDelay
		}
	}
	if delay > g.config.MaxDelay {
		return g.config.MaxDelay
	}
	return delay
}

// defaultSleep waits for d or until ctx is done, whichever comes first.
func defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
