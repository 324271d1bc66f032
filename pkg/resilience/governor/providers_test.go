package governor

import (
	"testing"

	"github.com/dbadmin-ai/governor/internal/testutil"
)

// clearProviderKeys blanks every builtin API key variable so tests see a
// deterministic environment.
func clearProviderKeys(t *testing.T) {
	t.Helper()
	for _, provider := range BuiltinProviders() {
		if provider.EnvKey != "" {
			t.Setenv(provider.EnvKey, "")
		}
	}
}

func TestBuiltinProviders(t *testing.T) {
	providers := BuiltinProviders()
	testutil.AssertEqual(t, len(providers), 7)

	openai := providers["openai"]
	testutil.AssertEqual(t, openai.BaseURL, "https://api.openai.com/v1")
	testutil.AssertEqual(t, openai.EnvKey, "OPENAI_API_KEY")
	testutil.AssertEqual(t, openai.DefaultModel, "gpt-4o")

	ollama := providers["ollama"]
	testutil.AssertEqual(t, ollama.BaseURL, "http://localhost:11434/v1")
	testutil.AssertEqual(t, ollama.EnvKey, "")
}

func TestProviderRoute(t *testing.T) {
	route := BuiltinProviders()["groq"].Route()
	testutil.AssertEqual(t, route, Route{
		Identity: "groq",
		Endpoint: "https://api.groq.com/openai/v1",
	})
}

func TestEnvAvailability(t *testing.T) {
	clearProviderKeys(t)
	t.Setenv("GROQ_API_KEY", "gsk-test")

	providers := BuiltinProviders()
	usable := EnvAvailability(providers)

	if !usable(providers["groq"].Route()) {
		t.Error("expected groq to be available with its key set")
	}
	if usable(providers["openai"].Route()) {
		t.Error("expected openai to be unavailable without a key")
	}
	if !usable(providers["ollama"].Route()) {
		t.Error("expected keyless ollama to always be available")
	}
	if !usable(Route{Identity: "custom", Endpoint: "https://custom.example"}) {
		t.Error("expected unknown identities to be available")
	}
}

func TestAvailable(t *testing.T) {
	clearProviderKeys(t)
	t.Setenv("GROQ_API_KEY", "gsk-test")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	names := Available(BuiltinProviders())
	testutil.AssertEqual(t, len(names), 3)
	testutil.AssertEqual(t, names[0], "groq")
	testutil.AssertEqual(t, names[1], "ollama")
	testutil.AssertEqual(t, names[2], "openai")
}
