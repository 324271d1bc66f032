package bucket

import (
	"math"
	"time"
)

// Consume refills the bucket from elapsed time, then removes n units if the
// balance covers them. It reports whether the units were granted; a failed
// attempt leaves the balance unchanged. n <= 0 is granted without consuming.
func (b *Bucket) Consume(n float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n <= 0 {
		return true
	}

	b.refill(b.clock.Now())

	if b.tokens >= n {
		b.tokens -= n
		return true
	}
	return false
}

// TimeUntilAvailable reports how long until n units could be granted at the
// current refill rate. Zero means they are available now. A zero-rate bucket
// that cannot satisfy n reports the maximum representable duration.
func (b *Bucket) TimeUntilAvailable(n float64) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n <= 0 {
		return 0
	}

	b.refill(b.clock.Now())

	if b.tokens >= n {
		return 0
	}
	if b.refillRate == 0 {
		return time.Duration(math.MaxInt64)
	}

	needed := n - b.tokens
	return time.Duration(needed / b.refillRate * float64(time.Second))
}

// Adjust adds delta units directly to the balance after a refill, capping at
// capacity but not at zero. This is the only path to a negative balance and
// exists for reconciling an admission estimate against actual cost: an
// under-estimated call borrows against future refill instead of failing
// retroactively.
func (b *Bucket) Adjust(delta float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill(b.clock.Now())
	b.tokens = math.Min(b.tokens+delta, b.capacity)
}

// Tokens returns the current unit balance after refilling. The balance is
// negative while the bucket is repaying borrowed units.
func (b *Bucket) Tokens() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill(b.clock.Now())
	return b.tokens
}

// Capacity returns the maximum number of units the bucket can hold.
func (b *Bucket) Capacity() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.capacity
}

// RefillRate returns the number of units added per second.
func (b *Bucket) RefillRate() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refillRate
}

// refill adds units for the time elapsed since the last refill.
// Caller must hold mu.
func (b *Bucket) refill(now time.Time) {
	elapsed := now.Sub(b.lastRefill)
	if elapsed <= 0 {
		return
	}

	if b.refillRate > 0 {
		b.tokens = math.Min(b.tokens+elapsed.Seconds()*b.refillRate, b.capacity)
	}
	b.lastRefill = now
}
