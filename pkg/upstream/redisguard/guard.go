// Package redisguard routes Redis operations through the governor.
//
// A Guard owns (or wraps) a go-redis client and executes every operation
// through a dedicated governor route: identity "redis", with the server
// address as the circuit key. Network failures count against the circuit
// and retry with backoff; a missing key (redis.Nil) is a definitive
// answer and does neither. Rate limiting is off by default for guarded
// clients; supply a limiter through Config.Governor to impose one.
package redisguard

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	gverrors "github.com/dbadmin-ai/governor/pkg/common/errors"
	"github.com/dbadmin-ai/governor/pkg/ratelimit/quota"
	"github.com/dbadmin-ai/governor/pkg/resilience/governor"
)

// Identity is the rate-limit identity used for guarded Redis calls.
const Identity = "redis"

// OpFunc is one Redis operation run under the guard.
type OpFunc func(ctx context.Context, client redis.UniversalClient) error

// Config holds guarded client configuration.
type Config struct {
	// Client is an existing Redis client to guard. When set, the
	// connection fields below are ignored and Close leaves the client
	// open.
	Client redis.UniversalClient

	// Addr is the host:port of the Redis server.
	Addr string

	// Password authenticates the connection; empty means none.
	Password string

	// DB selects the logical database.
	DB int

	// PoolSize bounds the connection pool. Zero means the client default.
	PoolSize int

	// DialTimeout, ReadTimeout, and WriteTimeout bound the transport.
	// Zero means the client defaults.
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Governor customizes admission and retry for guarded calls. The
	// Call, Chains, and Availability fields are owned by the guard and
	// ignored here.
	Governor governor.Config
}

// DefaultConfig returns a guard configuration for a local Redis server.
func DefaultConfig() Config {
	return Config{Addr: "localhost:6379"}
}

// Guard executes Redis operations with circuit breaking and retry.
type Guard struct {
	client     redis.UniversalClient
	ownsClient bool
	governor   governor.Governor
	route      governor.Route
}

// New creates a guard that connects to addr with default settings.
// It panics if the configuration is invalid.
func New(addr string) *Guard {
	config := DefaultConfig()
	config.Addr = addr
	return NewWithConfig(config)
}

// NewWithConfig creates a guard with custom configuration.
// It panics if the configuration is invalid.
func NewWithConfig(config Config) *Guard {
	g, err := NewWithConfigSafe(config)
	if err != nil {
		panic(err)
	}
	return g
}

// NewWithConfigSafe creates a guard with custom configuration, returning
// an error if the configuration is invalid. Connecting is lazy; the
// first operation dials.
func NewWithConfigSafe(config Config) (*Guard, error) {
	if config.Client == nil && config.Addr == "" {
		return nil, gverrors.NewValidationError("redisguard", "addr", "", "cannot be empty").
			WithHint("set Addr or pass an existing Client")
	}

	client := config.Client
	owns := false
	if client == nil {
		client = redis.NewClient(&redis.Options{
			Addr:         config.Addr,
			Password:     config.Password,
			DB:           config.DB,
			PoolSize:     config.PoolSize,
			DialTimeout:  config.DialTimeout,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
		})
		owns = true
	}

	endpoint := config.Addr
	if endpoint == "" {
		endpoint = Identity
	}

	g := &Guard{
		client:     client,
		ownsClient: owns,
		route:      governor.Route{Identity: Identity, Endpoint: endpoint},
	}

	gcfg := config.Governor
	gcfg.Call = g.call
	gcfg.Chains = map[string][]governor.Route{}
	gcfg.Availability = func(governor.Route) bool { return true }
	if gcfg.Quota == nil {
		// Redis throughput is not budgeted by default; the breaker alone
		// guards the connection.
		quotaConfig := quota.DefaultConfig()
		quotaConfig.Enabled = false
		quotaConfig.Clock = gcfg.Clock
		gcfg.Quota = quota.NewWithConfig(quotaConfig)
	}

	gov, err := governor.NewWithConfigSafe(gcfg)
	if err != nil {
		if owns {
			_ = client.Close()
		}
		return nil, err
	}
	g.governor = gov

	return g, nil
}

type opKey struct{}

// operation carries one op through the governor along with a definitive
// miss. The governor only distinguishes success from failure; a missing
// key is a success whose answer happens to be redis.Nil.
type operation struct {
	fn   OpFunc
	miss error
}

// call dispatches the operation attached to ctx against the guarded
// client.
func (g *Guard) call(ctx context.Context, _ governor.Route, _ governor.Request) (*governor.Response, error) {
	op, ok := ctx.Value(opKey{}).(*operation)
	if !ok {
		return nil, gverrors.NewOperationError("redisguard", "call", errors.New("no operation attached to context"))
	}

	if err := op.fn(ctx, g.client); err != nil {
		if errors.Is(err, redis.Nil) {
			// The server answered; only the key was absent.
			op.miss = err
			return &governor.Response{}, nil
		}
		return nil, err
	}
	return &governor.Response{}, nil
}

// Do runs fn through admission, circuit accounting, and retry. It
// returns the final attempt's error, so rejections surface as
// ErrRateLimited or ErrCircuitOpen and operation failures surface
// unchanged. A redis.Nil from fn comes back as-is without counting
// against the circuit.
func (g *Guard) Do(ctx context.Context, fn OpFunc) error {
	op := &operation{fn: fn}
	ctx = context.WithValue(ctx, opKey{}, op)
	if _, err := g.governor.Execute(ctx, g.route, governor.Request{EstimatedTokens: 1}); err != nil {
		return unwrapAttempt(err)
	}
	return op.miss
}

// Ping checks connectivity through the guard.
func (g *Guard) Ping(ctx context.Context) error {
	return g.Do(ctx, func(ctx context.Context, client redis.UniversalClient) error {
		return client.Ping(ctx).Err()
	})
}

// Get fetches key. A missing key returns redis.Nil without counting as a
// circuit failure; the round trip itself succeeded.
func (g *Guard) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := g.Do(ctx, func(ctx context.Context, client redis.UniversalClient) error {
		v, err := client.Get(ctx, key).Result()
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	if err != nil {
		return "", err
	}
	return value, nil
}

// Set stores value under key. A zero expiration means no expiry.
func (g *Guard) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return g.Do(ctx, func(ctx context.Context, client redis.UniversalClient) error {
		return client.Set(ctx, key, value, expiration).Err()
	})
}

// Close releases the underlying client when the guard owns it. Injected
// clients stay open.
func (g *Guard) Close() error {
	if !g.ownsClient {
		return nil
	}
	return g.client.Close()
}

// unwrapAttempt unwraps the guard's single-route aggregate so callers
// see the underlying cause.
func unwrapAttempt(err error) error {
	var allFailed *governor.AllFailedError
	if errors.As(err, &allFailed) && len(allFailed.Attempts) > 0 {
		return allFailed.Attempts[len(allFailed.Attempts)-1].Err
	}
	return err
}
