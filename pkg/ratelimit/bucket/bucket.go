package bucket

import (
	"sync"
	"time"

	"github.com/dbadmin-ai/governor/pkg/common/errors"
)

// Clock provides the current time. It can be mocked for testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the system time.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Config holds configuration options for creating a new Bucket.
type Config struct {
	// Capacity is the maximum number of units the bucket can hold.
	Capacity float64

	// RefillRate is the number of units added per second. A zero rate
	// creates a pure quota bucket that never refills.
	RefillRate float64

	// Clock provides the current time. If nil, SystemClock is used.
	Clock Clock

	// InitialTokens is the number of units to start with.
	// If negative, starts at full capacity.
	InitialTokens float64
}

// Bucket is a token bucket with continuous-time refill. Units are granted
// while the balance covers them and accrue from elapsed time up to the
// capacity. The balance can only go below zero through Adjust, which exists
// for post-call reconciliation of estimated against actual cost.
type Bucket struct {
	mu         sync.Mutex
	capacity   float64
	refillRate float64
	tokens     float64
	lastRefill time.Time
	clock      Clock
}

// New creates a bucket with the given capacity and refill rate, starting
// full. It panics on invalid parameters; use NewSafe for error returns.
func New(capacity, refillRate float64) *Bucket {
	b, err := NewSafe(capacity, refillRate)
	if err != nil {
		panic(err)
	}
	return b
}

// NewSafe creates a bucket with validation that returns an error instead of
// panicking. This is the recommended way to create buckets for production use.
func NewSafe(capacity, refillRate float64) (*Bucket, error) {
	return NewWithConfigSafe(Config{
		Capacity:      capacity,
		RefillRate:    refillRate,
		Clock:         SystemClock{},
		InitialTokens: -1, // Start with full capacity
	})
}

// NewWithConfig creates a bucket from config. It panics on invalid
// parameters; use NewWithConfigSafe for error returns.
func NewWithConfig(config Config) *Bucket {
	b, err := NewWithConfigSafe(config)
	if err != nil {
		panic(err)
	}
	return b
}

// NewWithConfigSafe creates a bucket from config with validation that
// returns an error instead of panicking.
func NewWithConfigSafe(config Config) (*Bucket, error) {
	if config.Capacity <= 0 {
		return nil, errors.NewValidationError("bucket", "capacity", config.Capacity, "must be positive").
			WithHint("capacity determines how many units can be consumed instantly")
	}
	if config.RefillRate < 0 {
		return nil, errors.NewValidationError("bucket", "refillRate", config.RefillRate, "cannot be negative").
			WithHint("use 0 for a bucket that never refills")
	}
	if config.InitialTokens > config.Capacity {
		return nil, errors.NewValidationError("bucket", "initialTokens", config.InitialTokens, "cannot exceed capacity")
	}
	if config.Clock == nil {
		config.Clock = SystemClock{}
	}

	initialTokens := config.InitialTokens
	if initialTokens < 0 {
		initialTokens = config.Capacity
	}

	return &Bucket{
		capacity:   config.Capacity,
		refillRate: config.RefillRate,
		tokens:     initialTokens,
		lastRefill: config.Clock.Now(),
		clock:      config.Clock,
	}, nil
}
