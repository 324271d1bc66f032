// Package config loads the library's YAML configuration file and turns
// it into the package-level Configs. Configuration is read once at
// construction time; there is no reload.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	gverrors "github.com/dbadmin-ai/governor/pkg/common/errors"
	"github.com/dbadmin-ai/governor/pkg/common/validation"
	"github.com/dbadmin-ai/governor/pkg/ratelimit/quota"
	"github.com/dbadmin-ai/governor/pkg/resilience/breaker"
	"github.com/dbadmin-ai/governor/pkg/resilience/governor"
)

// Limits holds one identity's per-minute budgets.
type Limits struct {
	RequestsPerMinute float64 `yaml:"requests_per_minute"`
	TokensPerMinute   float64 `yaml:"tokens_per_minute"`
}

// RateLimit is the admission limiter section.
type RateLimit struct {
	Enabled   bool              `yaml:"enabled"`
	Defaults  Limits            `yaml:"defaults"`
	Overrides map[string]Limits `yaml:"overrides,omitempty"`
}

// Breaker is the circuit breaker section.
type Breaker struct {
	FailureThreshold int `yaml:"failure_threshold"`
	CooldownSeconds  int `yaml:"cooldown_seconds"`
}

// Retry is the in-place retry section.
type Retry struct {
	MaxAttempts      int `yaml:"max_attempts"`
	BaseDelaySeconds int `yaml:"base_delay_seconds"`
	MaxDelaySeconds  int `yaml:"max_delay_seconds"`
}

// RouteRef names one fallback target in a chain.
type RouteRef struct {
	Identity string `yaml:"identity"`
	Endpoint string `yaml:"endpoint"`
}

// File is the on-disk configuration.
type File struct {
	RateLimit RateLimit             `yaml:"rate_limit"`
	Breaker   Breaker               `yaml:"breaker"`
	Retry     Retry                 `yaml:"retry"`
	Chains    map[string][]RouteRef `yaml:"chains,omitempty"`
}

// Default returns the builtin configuration: the stock limiter budgets
// and overrides, a 5-failure/60s breaker, three attempts with backoff
// from 1s to 10s, and the builtin fallback chains.
func Default() File {
	quotaDefaults := quota.DefaultConfig()
	breakerDefaults := breaker.DefaultConfig()

	overrides := make(map[string]Limits, len(quotaDefaults.Overrides))
	for identity, limits := range quotaDefaults.Overrides {
		overrides[identity] = Limits{
			RequestsPerMinute: limits.RequestsPerMinute,
			TokensPerMinute:   limits.TokensPerMinute,
		}
	}

	chains := make(map[string][]RouteRef)
	for identity, routes := range governor.DefaultChains() {
		refs := make([]RouteRef, len(routes))
		for i, route := range routes {
			refs[i] = RouteRef{Identity: route.Identity, Endpoint: route.Endpoint}
		}
		chains[identity] = refs
	}

	return File{
		RateLimit: RateLimit{
			Enabled: quotaDefaults.Enabled,
			Defaults: Limits{
				RequestsPerMinute: quotaDefaults.Defaults.RequestsPerMinute,
				TokensPerMinute:   quotaDefaults.Defaults.TokensPerMinute,
			},
			Overrides: overrides,
		},
		Breaker: Breaker{
			FailureThreshold: breakerDefaults.Threshold,
			CooldownSeconds:  int(breakerDefaults.Cooldown / time.Second),
		},
		Retry: Retry{
			MaxAttempts:      3,
			BaseDelaySeconds: 1,
			MaxDelaySeconds:  10,
		},
		Chains: chains,
	}
}

// Load reads and parses the YAML file at path.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read config %s: %w", path, err)
	}

	file, err := Parse(data)
	if err != nil {
		return File{}, fmt.Errorf("config %s: %w", path, err)
	}
	return file, nil
}

// Parse decodes YAML over the defaults: absent fields keep their default
// values, and override and chain tables merge key-wise over the builtin
// entries.
func Parse(data []byte) (File, error) {
	file := Default()
	if err := yaml.Unmarshal(data, &file); err != nil {
		return File{}, fmt.Errorf("parse config: %w", err)
	}
	return file, nil
}

// Validate checks every section's ranges. It mirrors what the package
// constructors enforce, so a validated file builds without panicking.
func (f File) Validate() error {
	if err := validateLimits("rate_limit.defaults", f.RateLimit.Defaults); err != nil {
		return err
	}
	for identity, limits := range f.RateLimit.Overrides {
		if err := validateLimits("rate_limit.overrides."+identity, limits); err != nil {
			return err
		}
	}

	if err := validation.ValidatePositive("config", "breaker.failure_threshold", f.Breaker.FailureThreshold); err != nil {
		return err
	}
	if err := validation.ValidatePositive("config", "breaker.cooldown_seconds", f.Breaker.CooldownSeconds); err != nil {
		return err
	}

	if err := validation.ValidatePositive("config", "retry.max_attempts", f.Retry.MaxAttempts); err != nil {
		return err
	}
	if err := validation.ValidatePositive("config", "retry.base_delay_seconds", f.Retry.BaseDelaySeconds); err != nil {
		return err
	}
	if err := validation.ValidatePositive("config", "retry.max_delay_seconds", f.Retry.MaxDelaySeconds); err != nil {
		return err
	}
	if f.Retry.BaseDelaySeconds > f.Retry.MaxDelaySeconds {
		return gverrors.NewValidationError("config", "retry.base_delay_seconds", f.Retry.BaseDelaySeconds,
			"cannot exceed retry.max_delay_seconds")
	}

	for identity, refs := range f.Chains {
		for i, ref := range refs {
			field := fmt.Sprintf("chains.%s[%d]", identity, i)
			if err := validation.ValidateNotEmpty("config", field+".identity", ref.Identity); err != nil {
				return err
			}
			if err := validation.ValidateNotEmpty("config", field+".endpoint", ref.Endpoint); err != nil {
				return err
			}
		}
	}

	return nil
}

func validateLimits(field string, limits Limits) error {
	if err := validation.ValidatePositiveFloat("config", field+".requests_per_minute", limits.RequestsPerMinute); err != nil {
		return err
	}
	return validation.ValidatePositiveFloat("config", field+".tokens_per_minute", limits.TokensPerMinute)
}

// QuotaConfig converts the rate-limit section into a quota.Config.
func (f File) QuotaConfig() quota.Config {
	overrides := make(map[string]quota.Limits, len(f.RateLimit.Overrides))
	for identity, limits := range f.RateLimit.Overrides {
		overrides[identity] = quota.Limits{
			RequestsPerMinute: limits.RequestsPerMinute,
			TokensPerMinute:   limits.TokensPerMinute,
		}
	}

	return quota.Config{
		Enabled: f.RateLimit.Enabled,
		Defaults: quota.Limits{
			RequestsPerMinute: f.RateLimit.Defaults.RequestsPerMinute,
			TokensPerMinute:   f.RateLimit.Defaults.TokensPerMinute,
		},
		Overrides: overrides,
	}
}

// BreakerConfig converts the breaker section into a breaker.Config.
func (f File) BreakerConfig() breaker.Config {
	return breaker.Config{
		Threshold: f.Breaker.FailureThreshold,
		Cooldown:  time.Duration(f.Breaker.CooldownSeconds) * time.Second,
	}
}

// GovernorConfig builds a governor.Config around call from the file's
// retry and chain sections, with the limiter and breaker constructed
// from their sections. Validate the file first: the section constructors
// panic on invalid values.
func (f File) GovernorConfig(call governor.CallFunc) governor.Config {
	chains := make(map[string][]governor.Route, len(f.Chains))
	for identity, refs := range f.Chains {
		routes := make([]governor.Route, len(refs))
		for i, ref := range refs {
			routes[i] = governor.Route{Identity: ref.Identity, Endpoint: ref.Endpoint}
		}
		chains[identity] = routes
	}

	return governor.Config{
		Call:        call,
		Quota:       quota.NewWithConfig(f.QuotaConfig()),
		Breaker:     breaker.NewWithConfig(f.BreakerConfig()),
		Chains:      chains,
		MaxAttempts: f.Retry.MaxAttempts,
		BaseDelay:   time.Duration(f.Retry.BaseDelaySeconds) * time.Second,
		MaxDelay:    time.Duration(f.Retry.MaxDelaySeconds) * time.Second,
	}
}
