package llm

import "strings"

// modelCost holds per-million-token pricing in USD.
type modelCost struct {
	inputPerMillion  float64
	outputPerMillion float64
}

// costTable maps a model name substring to its pricing. Entries are
// checked in order, so more specific substrings must precede shorter,
// more general ones that could also match.
var costTable = []struct {
	substr string
	cost   modelCost
}{
	{"claude-3-5-haiku", modelCost{0.80, 4.00}},
	{"claude-3-5-sonnet", modelCost{3.00, 15.00}},
	{"claude-3-opus", modelCost{15.00, 75.00}},
	{"claude", modelCost{3.00, 15.00}},
	{"gpt-4o-mini", modelCost{0.15, 0.60}},
	{"gpt-4o", modelCost{2.50, 10.00}},
	{"gpt-4-turbo", modelCost{10.00, 30.00}},
	{"gpt-3.5", modelCost{0.50, 1.50}},
	{"o1-mini", modelCost{1.10, 4.40}},
	{"o1", modelCost{15.00, 60.00}},
	{"o3-mini", modelCost{1.10, 4.40}},
	{"o3", modelCost{10.00, 40.00}},
}

// defaultCost applies to locally-hosted models, which have no per-token
// billing.
var defaultCost = modelCost{0, 0}

func lookupCost(model string) modelCost {
	lower := strings.ToLower(model)
	for _, entry := range costTable {
		if strings.Contains(lower, entry.substr) {
			return entry.cost
		}
	}
	return defaultCost
}

// EstimateCostUSD computes the cost of one generation call from its
// input/output token counts and the model's per-million-token pricing.
func EstimateCostUSD(model string, inputTokens, outputTokens int) float64 {
	cost := lookupCost(model)
	return float64(inputTokens)/1_000_000*cost.inputPerMillion +
		float64(outputTokens)/1_000_000*cost.outputPerMillion
}
