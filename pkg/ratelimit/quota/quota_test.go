package quota

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dbadmin-ai/governor/internal/testutil"
	gverrors "github.com/dbadmin-ai/governor/pkg/common/errors"
	"github.com/dbadmin-ai/governor/pkg/metrics"
)

func testConfig(clock *testutil.MockClock, defaults Limits) Config {
	return Config{
		Enabled:  true,
		Defaults: defaults,
		Clock:    clock,
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if !config.Enabled {
		t.Error("expected default config to be enabled")
	}
	testutil.AssertEqual(t, config.Defaults.RequestsPerMinute, 20.0)
	testutil.AssertEqual(t, config.Defaults.TokensPerMinute, 100000.0)

	openai, ok := config.Overrides["openai"]
	if !ok {
		t.Fatal("expected an override for openai")
	}
	testutil.AssertEqual(t, openai.RequestsPerMinute, 60.0)
	testutil.AssertEqual(t, openai.TokensPerMinute, 150000.0)

	ollama, ok := config.Overrides["ollama"]
	if !ok {
		t.Fatal("expected an override for ollama")
	}
	testutil.AssertEqual(t, ollama.RequestsPerMinute, 1000.0)
	testutil.AssertEqual(t, ollama.TokensPerMinute, 10000000.0)
}

func TestNewWithConfigSafeValidation(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{
			"zero default requests",
			Config{Enabled: true, Defaults: Limits{RequestsPerMinute: 0, TokensPerMinute: 1000}},
		},
		{
			"negative default tokens",
			Config{Enabled: true, Defaults: Limits{RequestsPerMinute: 10, TokensPerMinute: -1}},
		},
		{
			"invalid override",
			Config{
				Enabled:   true,
				Defaults:  Limits{RequestsPerMinute: 10, TokensPerMinute: 1000},
				Overrides: map[string]Limits{"bad": {RequestsPerMinute: -5, TokensPerMinute: 1000}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter, err := NewWithConfigSafe(tt.config)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if limiter != nil {
				t.Error("expected nil limiter on error")
			}
			if !gverrors.IsValidationError(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCheckAdmitsWithinBudget(t *testing.T) {
	clock := testutil.NewMockClock(time.Now())
	limiter := NewWithConfig(testConfig(clock, Limits{RequestsPerMinute: 30, TokensPerMinute: 100000}))

	for i := 0; i < 30; i++ {
		testutil.AssertNoError(t, limiter.Check("groq", 10))
	}

	err := limiter.Check("groq", 10)
	if err == nil {
		t.Fatal("expected rejection after exhausting the request budget")
	}

	var limitErr *LimitError
	if !errors.As(err, &limitErr) {
		t.Fatalf("expected *LimitError, got %T", err)
	}
	testutil.AssertEqual(t, limitErr.Identity, "groq")
	testutil.AssertEqual(t, limitErr.Axis, AxisRequests)
	// 30 rpm refills at 0.5 req/s, so one slot is 2s away.
	testutil.AssertEqual(t, limitErr.RetryAfter, 2*time.Second)

	if !errors.Is(err, gverrors.ErrRateLimited) {
		t.Error("expected LimitError to unwrap to ErrRateLimited")
	}
}

func TestCheckRejectsOnTokenAxis(t *testing.T) {
	clock := testutil.NewMockClock(time.Now())
	limiter := NewWithConfig(testConfig(clock, Limits{RequestsPerMinute: 10, TokensPerMinute: 1000}))

	testutil.AssertNoError(t, limiter.Check("local", 600))

	err := limiter.Check("local", 600)
	var limitErr *LimitError
	if !errors.As(err, &limitErr) {
		t.Fatalf("expected *LimitError, got %v", err)
	}
	testutil.AssertEqual(t, limitErr.Axis, AxisTokens)
	if limitErr.RetryAfter < 11*time.Second || limitErr.RetryAfter > 13*time.Second {
		t.Errorf("expected retry-after near 12s, got %v", limitErr.RetryAfter)
	}

	// The rejected check must refund its request slot: one admitted call
	// leaves 9 of 10 request slots, not 8.
	requests, tokens := limiter.Remaining("local")
	testutil.AssertEqual(t, requests, 9.0)
	testutil.AssertEqual(t, tokens, 400.0)
}

func TestCheckDisabled(t *testing.T) {
	limiter := NewWithConfig(Config{
		Enabled:  false,
		Defaults: Limits{RequestsPerMinute: 1, TokensPerMinute: 1},
	})

	for i := 0; i < 100; i++ {
		testutil.AssertNoError(t, limiter.Check("anything", 1e9))
	}

	// A disabled limiter tracks nothing.
	testutil.AssertEqual(t, len(limiter.Identities()), 0)
	testutil.AssertEqual(t, limiter.UsageStats("anything").Requests, int64(0))
}

func TestPerIdentityIsolation(t *testing.T) {
	clock := testutil.NewMockClock(time.Now())
	limiter := NewWithConfig(testConfig(clock, Limits{RequestsPerMinute: 2, TokensPerMinute: 10000}))

	testutil.AssertNoError(t, limiter.Check("first", 10))
	testutil.AssertNoError(t, limiter.Check("first", 10))
	if limiter.Check("first", 10) == nil {
		t.Fatal("expected first identity to be exhausted")
	}

	// Exhausting one identity must not affect another.
	testutil.AssertNoError(t, limiter.Check("second", 10))
}

func TestOverridesTakePrecedence(t *testing.T) {
	clock := testutil.NewMockClock(time.Now())
	config := testConfig(clock, Limits{RequestsPerMinute: 1, TokensPerMinute: 100})
	config.Overrides = map[string]Limits{
		"roomy": {RequestsPerMinute: 100, TokensPerMinute: 100000},
	}
	limiter := NewWithConfig(config)

	testutil.AssertNoError(t, limiter.Check("cramped", 10))
	if limiter.Check("cramped", 10) == nil {
		t.Fatal("expected default budget to reject the second call")
	}

	for i := 0; i < 50; i++ {
		testutil.AssertNoError(t, limiter.Check("roomy", 10))
	}
}

func TestRecordUsageCreditsOverestimate(t *testing.T) {
	clock := testutil.NewMockClock(time.Now())
	limiter := NewWithConfig(testConfig(clock, Limits{RequestsPerMinute: 100, TokensPerMinute: 1000}))

	testutil.AssertNoError(t, limiter.Check("fast", 500))
	limiter.RecordUsage("fast", 200, 500)

	// 300 over-reserved tokens come back.
	_, tokens := limiter.Remaining("fast")
	testutil.AssertEqual(t, tokens, 800.0)
}

func TestRecordUsageDebitsUnderestimate(t *testing.T) {
	clock := testutil.NewMockClock(time.Now())
	limiter := NewWithConfig(testConfig(clock, Limits{RequestsPerMinute: 100, TokensPerMinute: 1000}))

	testutil.AssertNoError(t, limiter.Check("hungry", 100))
	limiter.RecordUsage("hungry", 600, 100)

	_, tokens := limiter.Remaining("hungry")
	testutil.AssertEqual(t, tokens, 400.0)

	if limiter.Check("hungry", 500) == nil {
		t.Fatal("expected the debited balance to reject a 500-token call")
	}
}

func TestRecordUsageBorrowLocksOutUntilRefill(t *testing.T) {
	clock := testutil.NewMockClock(time.Now())
	limiter := NewWithConfig(testConfig(clock, Limits{RequestsPerMinute: 100, TokensPerMinute: 1000}))

	testutil.AssertNoError(t, limiter.Check("deep", 100))
	limiter.RecordUsage("deep", 1500, 100)

	// The balance is now -500; Remaining clamps the report to zero.
	_, tokens := limiter.Remaining("deep")
	testutil.AssertEqual(t, tokens, 0.0)
	if limiter.Check("deep", 1) == nil {
		t.Fatal("expected a borrowed-out identity to reject")
	}

	// One minute of refill repays the 500-token debt and restores 500 more.
	clock.Advance(time.Minute)
	testutil.AssertNoError(t, limiter.Check("deep", 1))
	_, tokens = limiter.Remaining("deep")
	if tokens < 498.9 || tokens > 499.1 {
		t.Errorf("expected roughly 499 tokens after refill, got %f", tokens)
	}
}

func TestRecordUsageUnknownIdentity(t *testing.T) {
	limiter := New()

	// Must not create state for an identity that was never checked.
	limiter.RecordUsage("ghost", 100, 50)
	testutil.AssertEqual(t, len(limiter.Identities()), 0)
}

func TestUsageStats(t *testing.T) {
	clock := testutil.NewMockClock(time.Now())
	limiter := NewWithConfig(testConfig(clock, Limits{RequestsPerMinute: 100, TokensPerMinute: 100000}))

	for i := 0; i < 3; i++ {
		testutil.AssertNoError(t, limiter.Check("busy", 100))
	}

	stats := limiter.UsageStats("busy")
	testutil.AssertEqual(t, stats.Requests, int64(3))
	testutil.AssertEqual(t, stats.Tokens, 300.0)

	// Rejected checks do not count.
	limiter.RecordUsage("busy", 50, 100)
	stats = limiter.UsageStats("busy")
	testutil.AssertEqual(t, stats.Requests, int64(3))

	testutil.AssertEqual(t, limiter.UsageStats("ghost"), Stats{})
}

func TestRemainingUnknownIdentity(t *testing.T) {
	limiter := New()

	// An unseen identity reports the full budget it would start with.
	requests, tokens := limiter.Remaining("openai")
	testutil.AssertEqual(t, requests, 60.0)
	testutil.AssertEqual(t, tokens, 150000.0)

	requests, tokens = limiter.Remaining("unconfigured")
	testutil.AssertEqual(t, requests, 20.0)
	testutil.AssertEqual(t, tokens, 100000.0)
}

func TestIdentitiesSorted(t *testing.T) {
	clock := testutil.NewMockClock(time.Now())
	limiter := NewWithConfig(testConfig(clock, Limits{RequestsPerMinute: 10, TokensPerMinute: 1000}))

	for _, identity := range []string{"zeta", "alpha", "mike"} {
		testutil.AssertNoError(t, limiter.Check(identity, 1))
	}

	ids := limiter.Identities()
	testutil.AssertEqual(t, len(ids), 3)
	testutil.AssertEqual(t, ids[0], "alpha")
	testutil.AssertEqual(t, ids[1], "mike")
	testutil.AssertEqual(t, ids[2], "zeta")
}

func TestLimitErrorMessage(t *testing.T) {
	err := &LimitError{Identity: "openai", Axis: AxisTokens, RetryAfter: 2500 * time.Millisecond}
	testutil.AssertEqual(t, err.Error(), "quota: tokens limit exceeded for openai, retry in 2.5s")
}

func TestConcurrentAccess(t *testing.T) {
	clock := testutil.NewMockClock(time.Now())
	limiter := NewWithConfig(testConfig(clock, Limits{RequestsPerMinute: 1000000, TokensPerMinute: 1000000000}))

	const goroutines = 10
	const perGoroutine = 100

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			identity := fmt.Sprintf("worker-%d", n%2)
			for j := 0; j < perGoroutine; j++ {
				if err := limiter.Check(identity, 10); err == nil {
					limiter.RecordUsage(identity, 8, 10)
				}
			}
		}(i)
	}
	wg.Wait()

	total := limiter.UsageStats("worker-0").Requests + limiter.UsageStats("worker-1").Requests
	testutil.AssertEqual(t, total, int64(goroutines*perGoroutine))
}

func TestMetricsLimiter(t *testing.T) {
	clock := testutil.NewMockClock(time.Now())
	limiter := NewWithMetrics(testConfig(clock, Limits{RequestsPerMinute: 2, TokensPerMinute: 1000}))

	ml, ok := limiter.(*MetricsLimiter)
	if !ok {
		t.Fatalf("expected *MetricsLimiter, got %T", limiter)
	}
	if !ml.MetricsEnabled() {
		t.Error("expected metrics to be enabled")
	}

	testutil.AssertNoError(t, limiter.Check("metered", 100))
	testutil.AssertNoError(t, limiter.Check("metered", 100))
	if limiter.Check("metered", 100) == nil {
		t.Fatal("expected rejection through the metrics wrapper")
	}
	limiter.RecordUsage("metered", 150, 100)

	testutil.AssertEqual(t, limiter.UsageStats("metered").Requests, int64(2))

	ml.DisableMetrics()
	if ml.MetricsEnabled() {
		t.Error("expected metrics to be disabled")
	}
	testutil.AssertNoError(t, limiter.Check("other", 1))
}

func TestNewWithConfigAndMetricsDisabled(t *testing.T) {
	limiter := NewWithConfigAndMetrics(DefaultConfig(), metrics.Config{Enabled: false})

	if _, ok := limiter.(*MetricsLimiter); ok {
		t.Error("expected the base limiter when metrics are disabled")
	}
	testutil.AssertNoError(t, limiter.Check("openai", 1))
}
