// Package reporter logs periodic usage and circuit snapshots.
//
// A Reporter walks the limiter's tracked identities and the breaker's
// keyed circuits on a cron schedule, writes a summary through the
// logging facade, and refreshes the breaker-state gauges when a metrics
// registry is attached. It observes only; nothing it does affects
// admission decisions.
package reporter

import (
	"github.com/robfig/cron/v3"

	gverrors "github.com/dbadmin-ai/governor/pkg/common/errors"
	"github.com/dbadmin-ai/governor/pkg/metrics"
	"github.com/dbadmin-ai/governor/pkg/observability/logging"
	"github.com/dbadmin-ai/governor/pkg/ratelimit/quota"
	"github.com/dbadmin-ai/governor/pkg/resilience/breaker"
)

// DefaultSchedule emits one snapshot per minute.
const DefaultSchedule = "@every 1m"

// Config holds reporter configuration.
type Config struct {
	// Quota is the limiter whose usage is reported. Required.
	Quota quota.Limiter

	// Breaker is the breaker whose circuits are reported. Required.
	Breaker breaker.Breaker

	// Schedule is the cron spec driving snapshots. Empty means
	// DefaultSchedule.
	Schedule string

	// Registry receives breaker-state gauge refreshes. Nil skips the
	// gauges; snapshots still log.
	Registry *metrics.Registry
}

// Reporter takes usage and circuit snapshots on a schedule.
type Reporter struct {
	quota    quota.Limiter
	breaker  breaker.Breaker
	schedule string
	registry *metrics.Registry
	cron     *cron.Cron
}

// New creates a reporter over q and b on the default schedule.
func New(q quota.Limiter, b breaker.Breaker) *Reporter {
	return NewWithConfig(Config{Quota: q, Breaker: b})
}

// NewWithConfig creates a reporter with custom configuration.
// It panics if the configuration is invalid.
func NewWithConfig(config Config) *Reporter {
	r, err := NewWithConfigSafe(config)
	if err != nil {
		panic(err)
	}
	return r
}

// NewWithConfigSafe creates a reporter with custom configuration,
// returning an error if the configuration is invalid.
func NewWithConfigSafe(config Config) (*Reporter, error) {
	if config.Quota == nil {
		return nil, gverrors.NewValidationError("reporter", "quota", nil, "cannot be nil").
			WithHint("pass the limiter whose usage should be reported")
	}
	if config.Breaker == nil {
		return nil, gverrors.NewValidationError("reporter", "breaker", nil, "cannot be nil").
			WithHint("pass the breaker whose circuits should be reported")
	}

	schedule := config.Schedule
	if schedule == "" {
		schedule = DefaultSchedule
	}

	r := &Reporter{
		quota:    config.Quota,
		breaker:  config.Breaker,
		schedule: schedule,
		registry: config.Registry,
		cron:     cron.New(),
	}
	if _, err := r.cron.AddFunc(schedule, r.RunOnce); err != nil {
		return nil, gverrors.NewValidationError("reporter", "schedule", schedule, "not a valid cron expression").
			WithHint(`use a spec like "@every 1m" or "*/5 * * * *"`)
	}
	return r, nil
}

// Start begins scheduled snapshots. Calling Start on a started reporter
// has no effect.
func (r *Reporter) Start() {
	r.cron.Start()
	logging.Infof("reporter: started, schedule %q", r.schedule)
}

// Stop halts scheduled snapshots. A snapshot already in flight finishes.
func (r *Reporter) Stop() {
	r.cron.Stop()
	logging.Infof("reporter: stopped")
}

// RunOnce takes one snapshot immediately. It is what the schedule fires,
// exposed for manual triggering and tests.
func (r *Reporter) RunOnce() {
	identities := r.quota.Identities()
	if len(identities) == 0 {
		logging.Debugf("reporter: no usage to report")
	}
	for _, identity := range identities {
		stats := r.quota.UsageStats(identity)
		requests, tokens := r.quota.Remaining(identity)
		logging.Infof("reporter: %s: %d requests, %.0f tokens used; %.0f requests, %.0f tokens remaining",
			identity, stats.Requests, stats.Tokens, requests, tokens)
	}

	for _, key := range r.breaker.Keys() {
		state, failures, retryAfter := r.breaker.Snapshot(key)
		switch {
		case state == breaker.StateOpen:
			logging.Warnf("reporter: circuit %s open, %d failures, retry in %v", key, failures, retryAfter)
		case failures > 0:
			logging.Infof("reporter: circuit %s closed, %d recent failures", key, failures)
		}

		if r.registry != nil {
			open := 0.0
			if state == breaker.StateOpen {
				open = 1
			}
			r.registry.BreakerOpen.WithLabelValues(key).Set(open)
		}
	}
}
