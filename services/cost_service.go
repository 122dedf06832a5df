// services/cost_service.go
package services

import "strings"

type costService struct{}

func NewCostService() CostService {
	return &costService{}
}

// Cost per 1M tokens
var costPerToken = map[string]struct{ input, output float64 }{
	"gpt-4.1":                  {input: 3.00, output: 12.00},
	"gpt-4.1-mini":             {input: 0.80, output: 3.20},
	"gpt-4.1-nano":             {input: 0.20, output: 0.80},
	"gpt-4o-mini":              {input: 0.15, output: 0.60},
	"gpt-5-mini":               {input: 0.25, output: 2.00},
	"claude-3-5-haiku-latest":  {input: 0.80, output: 4.00},
	"claude-sonnet-4-20250514": {input: 3.00, output: 15.00},
	"gemini-2.0-flash":         {input: 0.10, output: 0.40},
	"gemini-2.5-flash":         {input: 0.30, output: 2.50},
}

// Fallback model per lister when the configured model has no price
var defaultModel = map[string]string{
	"openai":    "gpt-4.1-mini",
	"anthropic": "claude-3-5-haiku-latest",
	"gemini":    "gemini-2.0-flash",
}

func (s *costService) CalculateCost(provider string, model string, inputTokens int, outputTokens int) float64 {
	modelCosts, exists := costPerToken[strings.ToLower(model)]
	if !exists {
		modelCosts = costPerToken[defaultModel[s.getProviderKey(provider)]]
	}

	inputCost := (float64(inputTokens) / 1_000_000.0) * modelCosts.input
	outputCost := (float64(outputTokens) / 1_000_000.0) * modelCosts.output
	return inputCost + outputCost
}

func (s *costService) getProviderKey(provider string) string {
	provider = strings.ToLower(provider)
	if strings.Contains(provider, "anthropic") || strings.Contains(provider, "claude") {
		return "anthropic"
	}
	if strings.Contains(provider, "gemini") || strings.Contains(provider, "google") {
		return "gemini"
	}
	return "openai" // openai, azure and anything unknown
}
