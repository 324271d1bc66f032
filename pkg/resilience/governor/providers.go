package governor

import (
	"os"
	"sort"
)

// Provider describes one known upstream and how to reach it.
type Provider struct {
	// Name is the rate-limit identity.
	Name string

	// BaseURL is the API root, used as the circuit breaker key.
	BaseURL string

	// EnvKey names the environment variable holding the API key. Empty
	// for local providers that need none.
	EnvKey string

	// DefaultModel is the model requested when the caller names none.
	DefaultModel string
}

// BuiltinProviders returns the stock provider registry.
func BuiltinProviders() map[string]Provider {
	return map[string]Provider{
		"openrouter": {
			Name:         "openrouter",
			BaseURL:      "https://openrouter.ai/api/v1",
			EnvKey:       "OPENROUTER_API_KEY",
			DefaultModel: "meta-llama/llama-3.1-8b-instruct:free",
		},
		"groq": {
			Name:         "groq",
			BaseURL:      "https://api.groq.com/openai/v1",
			EnvKey:       "GROQ_API_KEY",
			DefaultModel: "llama-3.1-70b-versatile",
		},
		"ollama": {
			Name:         "ollama",
			BaseURL:      "http://localhost:11434/v1",
			DefaultModel: "llama3.1",
		},
		"openai": {
			Name:         "openai",
			BaseURL:      "https://api.openai.com/v1",
			EnvKey:       "OPENAI_API_KEY",
			DefaultModel: "gpt-4o",
		},
		"anthropic": {
			Name:         "anthropic",
			BaseURL:      "https://api.anthropic.com/v1",
			EnvKey:       "ANTHROPIC_API_KEY",
			DefaultModel: "claude-3-5-sonnet-20241022",
		},
		"together": {
			Name:         "together",
			BaseURL:      "https://api.together.xyz/v1",
			EnvKey:       "TOGETHER_API_KEY",
			DefaultModel: "meta-llama/Meta-Llama-3.1-70B-Instruct-Turbo",
		},
		"deepseek": {
			Name:         "deepseek",
			BaseURL:      "https://api.deepseek.com/v1",
			EnvKey:       "DEEPSEEK_API_KEY",
			DefaultModel: "deepseek-chat",
		},
	}
}

// Route returns the route for one provider: identity is the provider
// name, endpoint its base URL.
func (p Provider) Route() Route {
	return Route{Identity: p.Name, Endpoint: p.BaseURL}
}

// EnvAvailability builds an AvailabilityFunc over a provider registry: a
// route is usable when its provider needs no API key or the key's
// environment variable is set. Identities not in the registry are
// considered available, leaving them to the caller's own gating.
func EnvAvailability(providers map[string]Provider) AvailabilityFunc {
	return func(route Route) bool {
		provider, ok := providers[route.Identity]
		if !ok {
			return true
		}
		if provider.EnvKey == "" {
			return true
		}
		return os.Getenv(provider.EnvKey) != ""
	}
}

// Available returns the names of the providers currently usable under
// EnvAvailability, sorted.
func Available(providers map[string]Provider) []string {
	usable := EnvAvailability(providers)

	names := make([]string, 0, len(providers))
	for name, provider := range providers {
		if usable(provider.Route()) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
