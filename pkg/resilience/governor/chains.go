package governor

// BuiltinChains returns the stock tier catalog. Each named chain is a
// full ordered route list whose first entry is the tier's primary:
//
//   - "mini": cheap and fast, local model as the last resort
//   - "smart": balanced quality across hosted providers
//   - "reasoning": strongest models first
func BuiltinChains() map[string][]Route {
	providers := BuiltinProviders()
	route := func(name string) Route {
		return providers[name].Route()
	}

	return map[string][]Route{
		"mini":      {route("groq"), route("openrouter"), route("openai"), route("ollama")},
		"smart":     {route("openrouter"), route("openai"), route("groq"), route("anthropic")},
		"reasoning": {route("openai"), route("openrouter"), route("deepseek")},
	}
}

// DefaultChains re-keys the builtin catalog by each chain's primary
// identity, the form Config.Chains consumes: executing against a chain's
// first route walks the whole tier in order.
func DefaultChains() map[string][]Route {
	chains := make(map[string][]Route)
	for _, routes := range BuiltinChains() {
		if len(routes) == 0 {
			continue
		}
		chains[routes[0].Identity] = routes
	}
	return chains
}
