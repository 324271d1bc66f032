package reporter

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dbadmin-ai/governor/internal/testutil"
	gverrors "github.com/dbadmin-ai/governor/pkg/common/errors"
	"github.com/dbadmin-ai/governor/pkg/metrics"
	"github.com/dbadmin-ai/governor/pkg/observability/logging"
	"github.com/dbadmin-ai/governor/pkg/ratelimit/quota"
	"github.com/dbadmin-ai/governor/pkg/resilience/breaker"
)

const testEndpoint = "https://api.openai.com/v1"

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()

	core, observed := observer.New(zap.DebugLevel)
	logging.SetLogger(zap.New(core))
	t.Cleanup(func() { logging.SetLogger(nil) })
	return observed
}

func testCollaborators(t *testing.T) (quota.Limiter, breaker.Breaker) {
	t.Helper()

	clock := testutil.NewMockClock(time.Now())
	q := quota.NewWithConfig(quota.Config{
		Enabled:  true,
		Defaults: quota.Limits{RequestsPerMinute: 10, TokensPerMinute: 1000},
		Clock:    clock,
	})
	b := breaker.NewWithConfig(breaker.Config{
		Threshold: 2,
		Cooldown:  time.Minute,
		Clock:     clock,
	})
	return q, b
}

func messages(observed *observer.ObservedLogs) string {
	var lines []string
	for _, entry := range observed.All() {
		lines = append(lines, entry.Message)
	}
	return strings.Join(lines, "\n")
}

func TestRunOnceReportsUsage(t *testing.T) {
	q, b := testCollaborators(t)
	testutil.AssertNoError(t, q.Check("openai", 100))
	b.RecordFailure(testEndpoint)

	observed := observe(t)
	New(q, b).RunOnce()

	logged := messages(observed)
	if !strings.Contains(logged, "openai: 1 requests, 100 tokens used") {
		t.Errorf("expected a usage line for openai, got:\n%s", logged)
	}
	if !strings.Contains(logged, "900 tokens remaining") {
		t.Errorf("expected remaining capacity in the snapshot, got:\n%s", logged)
	}
	if !strings.Contains(logged, "recent failure") {
		t.Errorf("expected the closed circuit's failure count, got:\n%s", logged)
	}
}

func TestRunOnceWarnsOnOpenCircuit(t *testing.T) {
	q, b := testCollaborators(t)
	b.RecordFailure(testEndpoint)
	b.RecordFailure(testEndpoint)

	observed := observe(t)
	New(q, b).RunOnce()

	warns := observed.FilterLevelExact(zap.WarnLevel).All()
	testutil.AssertEqual(t, len(warns), 1)
	if !strings.Contains(warns[0].Message, "open") {
		t.Errorf("expected an open-circuit warning, got %q", warns[0].Message)
	}
}

func TestRunOnceEmptyState(t *testing.T) {
	q, b := testCollaborators(t)

	observed := observe(t)
	New(q, b).RunOnce()

	if !strings.Contains(messages(observed), "no usage to report") {
		t.Errorf("expected the idle line, got:\n%s", messages(observed))
	}
}

func TestRunOnceRefreshesGauges(t *testing.T) {
	q, b := testCollaborators(t)
	b.RecordFailure(testEndpoint)
	b.RecordFailure(testEndpoint)

	registry := metrics.NewRegistry(prometheus.NewRegistry())
	r := NewWithConfig(Config{Quota: q, Breaker: b, Registry: registry})

	// Both the open and, after a success, the closed value pass through.
	r.RunOnce()
	b.RecordSuccess(testEndpoint)
	r.RunOnce()
}

func TestNewWithConfigSafeValidation(t *testing.T) {
	q, b := testCollaborators(t)

	tests := []struct {
		name   string
		config Config
	}{
		{"nil quota", Config{Breaker: b}},
		{"nil breaker", Config{Quota: q}},
		{"bad schedule", Config{Quota: q, Breaker: b, Schedule: "every minute or so"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewWithConfigSafe(tt.config)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if r != nil {
				t.Error("expected nil reporter on error")
			}
			if !gverrors.IsValidationError(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestDefaultScheduleApplied(t *testing.T) {
	q, b := testCollaborators(t)

	r := New(q, b)
	testutil.AssertEqual(t, r.schedule, DefaultSchedule)
}

func TestStartStop(t *testing.T) {
	q, b := testCollaborators(t)
	r := NewWithConfig(Config{Quota: q, Breaker: b, Schedule: "@every 1h"})

	r.Start()
	r.Start()
	r.Stop()
}

func TestStartEmitsSnapshotsOnSchedule(t *testing.T) {
	q, b := testCollaborators(t)
	testutil.AssertNoError(t, q.Check("openai", 50))

	observed := observe(t)
	r := NewWithConfig(Config{Quota: q, Breaker: b, Schedule: "@every 1s"})
	r.Start()
	defer r.Stop()

	testutil.Eventually(t, func() bool {
		return strings.Contains(messages(observed), "openai: 1 requests, 50 tokens used")
	}, 3*time.Second, 20*time.Millisecond)
}
