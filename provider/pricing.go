package provider

// Pricing is a linear output-token cost policy. Prices are in USD per 1000
// tokens, which is how the vendors publish them.
type Pricing struct {
	OutputPerKiloTokens float64
}

// Cost returns the monetary amount for tokensUsed output tokens.
func (p Pricing) Cost(tokensUsed int) float64 {
	return float64(tokensUsed) / 1000 * p.OutputPerKiloTokens
}

// EstimateTokens approximates the token count of text as ceil(len/4).
// One token per four bytes is the usual rule of thumb for English text and
// is good enough for cost estimation.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
