package bucket_test

import (
	"fmt"
	"time"

	"github.com/dbadmin-ai/governor/pkg/ratelimit/bucket"
)

// Example demonstrates basic usage of the token bucket
func Example() {
	// Create a bucket holding 5 units that refills at 10 units per second
	b, err := bucket.NewSafe(5, 10)
	if err != nil {
		panic(fmt.Sprintf("Failed to create bucket: %v", err))
	}

	// Check if a request is admitted (non-blocking)
	if b.Consume(1) {
		fmt.Println("Request admitted")
	} else {
		fmt.Println("Request denied")
	}

	// Output: Request admitted
}

// Example_exhaustion demonstrates rejection without side effects
func Example_exhaustion() {
	b := bucket.New(5, 0) // Pure quota, no refill

	fmt.Println(b.Consume(3)) // 2 left
	fmt.Println(b.Consume(3)) // Insufficient, balance untouched
	fmt.Println(b.Consume(2)) // Still 2 left

	// Output:
	// true
	// false
	// true
}

// Example_retryAfter demonstrates availability estimates for denied requests
func Example_retryAfter() {
	b := bucket.New(10, 2) // 2 units per second

	// Drain the bucket
	b.Consume(10)

	// How long until 5 units are available?
	wait := b.TimeUntilAvailable(5)
	fmt.Printf("Retry after %v\n", wait.Round(100*time.Millisecond))

	// Output: Retry after 2.5s
}

// Example_adjust demonstrates post-call reconciliation
func Example_adjust() {
	b := bucket.New(1000, 0)

	// Admit a call estimated at 500 units
	b.Consume(500)

	// The call actually used 200 units; credit back the difference
	b.Adjust(300)
	fmt.Printf("Balance after credit: %.0f\n", b.Tokens())

	// A later call used 400 more than estimated; the balance borrows
	b.Adjust(-900)
	fmt.Printf("Balance after debit: %.0f\n", b.Tokens())

	// Output:
	// Balance after credit: 800
	// Balance after debit: -100
}

// Example_configuration demonstrates advanced configuration
func Example_configuration() {
	// Create with specific configuration
	config := bucket.Config{
		Capacity:      5,
		RefillRate:    10,
		InitialTokens: 2, // Start with 2 units instead of full capacity
	}

	b, err := bucket.NewWithConfigSafe(config)
	if err != nil {
		panic(fmt.Sprintf("Failed to create bucket: %v", err))
	}

	fmt.Printf("Initial balance: %.0f\n", b.Tokens())
	fmt.Printf("Refill rate: %.1f/sec\n", b.RefillRate())
	fmt.Printf("Capacity: %.0f\n", b.Capacity())

	// Output:
	// Initial balance: 2
	// Refill rate: 10.0/sec
	// Capacity: 5
}
