package common

import "github.com/rs/zerolog"

// CostCalculator prices a model call from its token usage.
type CostCalculator interface {
	CalculateCost(provider, model string, inputTokens, outputTokens int) float64
}

// CostObserver receives the price of each model call.
type CostObserver interface {
	ObserveCost(lister, model string, usd float64)
}

// Accounting prices lister calls and reports them. The zero value only logs.
type Accounting struct {
	Costs    CostCalculator
	Observer CostObserver
	Logger   zerolog.Logger
}

// Record prices one call and returns its cost in USD.
func (a Accounting) Record(lister, model string, inputTokens, outputTokens int64) float64 {
	var cost float64
	if a.Costs != nil {
		cost = a.Costs.CalculateCost(lister, model, int(inputTokens), int(outputTokens))
	}
	if a.Observer != nil {
		a.Observer.ObserveCost(lister, model, cost)
	}
	a.Logger.Debug().
		Str("lister", lister).
		Str("model", model).
		Int64("input_tokens", inputTokens).
		Int64("output_tokens", outputTokens).
		Float64("cost_usd", cost).
		Msg("[BrandLister] model call completed")
	return cost
}
