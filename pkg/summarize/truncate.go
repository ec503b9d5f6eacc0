package summarize

// DefaultInputBudget approximates the prompt capacity, in runes, of the
// small summarization models the callers target.
const DefaultInputBudget = 24000

// DefaultOutputReserve is the headroom, in runes, left for the model's reply.
const DefaultOutputReserve = 500

// ReduceSize truncates text to fit a provider's input budget, keeping a
// prefix and reserving room for the expected output. Budgets are in runes;
// callers pass 0 to use the defaults.
func ReduceSize(text string, budget, outputReserve int) string {
	if budget <= 0 {
		budget = DefaultInputBudget
	}
	if outputReserve <= 0 {
		outputReserve = DefaultOutputReserve
	}

	keep := budget - outputReserve
	if keep < 0 {
		keep = 0
	}

	runes := []rune(text)
	if len(runes) <= keep {
		return text
	}
	return string(runes[:keep])
}
