package llm

import "strings"

// modelPricing holds per-model pricing in USD per 1M tokens.
type modelPricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// priceTable maps model name prefixes to their pricing. Versioned or
// provider-qualified names resolve to the longest matching prefix.
var priceTable = map[string]modelPricing{
	// Anthropic models
	"claude-sonnet-4-5": {InputPerMillion: 3.00, OutputPerMillion: 15.00},
	"claude-haiku-4-5":  {InputPerMillion: 0.80, OutputPerMillion: 4.00},
	"claude-opus-4":     {InputPerMillion: 15.00, OutputPerMillion: 75.00},

	// OpenAI models
	"gpt-4o":      {InputPerMillion: 2.50, OutputPerMillion: 10.00},
	"gpt-4o-mini": {InputPerMillion: 0.15, OutputPerMillion: 0.60},

	// OpenRouter and MiniMax hosted models
	"qwen/qwen3-32b": {InputPerMillion: 0.10, OutputPerMillion: 0.30},
	"MiniMax-M2":     {InputPerMillion: 0.30, OutputPerMillion: 1.20},
}

// EstimateCost returns the estimated cost in USD for the given model and token counts.
// Returns 0 for unknown and locally served models.
func EstimateCost(model string, inputTokens, outputTokens int) float64 {
	pricing, ok := lookupPricing(model)
	if !ok {
		return 0
	}

	inputCost := float64(inputTokens) / 1_000_000.0 * pricing.InputPerMillion
	outputCost := float64(outputTokens) / 1_000_000.0 * pricing.OutputPerMillion
	return inputCost + outputCost
}

func lookupPricing(model string) (modelPricing, bool) {
	if p, ok := priceTable[model]; ok {
		return p, true
	}
	var best string
	for prefix := range priceTable {
		if strings.HasPrefix(model, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return modelPricing{}, false
	}
	return priceTable[best], true
}

// EstimateTokens provides a rough token count estimation for the given text.
// Uses the approximation of 1 token per 4 characters.
func EstimateTokens(text string) int {
	n := len(text) / 4
	if n == 0 && len(text) > 0 {
		return 1
	}
	return n
}
