package governor

// DefaultEstimate is the token cost assumed when a request carries no
// payload and no explicit estimate.
const DefaultEstimate = 1000

// charsPerToken is the coarse length heuristic applied before a call;
// the real cost is reconciled afterwards via RecordUsage.
const charsPerToken = 4

// EstimateTokens estimates the token cost of a payload: one token per
// four bytes, rounded up, never less than one. An empty payload falls
// back to DefaultEstimate.
func EstimateTokens(payload []byte) float64 {
	if len(payload) == 0 {
		return DefaultEstimate
	}

	tokens := (len(payload) + charsPerToken - 1) / charsPerToken
	if tokens < 1 {
		tokens = 1
	}
	return float64(tokens)
}
