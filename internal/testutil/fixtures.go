package testutil

import (
	"github.com/AI-Template-SDK/aeo-insights/internal/config"
	"github.com/AI-Template-SDK/aeo-insights/internal/models"
)

// SampleConfig returns a test configuration
func SampleConfig() *config.Config {
	return &config.Config{
		Port:            "8000",
		Environment:     "test",
		LogLevel:        "debug",
		OpenAIAPIKey:    "test-openai-key",
		AnthropicAPIKey: "test-anthropic-key",
		GeminiAPIKey:    "test-gemini-key",
		Detector: config.DetectorConfig{
			Provider:         "openai",
			Model:            "gpt-4.1-mini",
			TimeoutSeconds:   5,
			MaxResponseChars: 12000,
			BreakerFailures:  3,
			BreakerCooldown:  1,
		},
		Analysis: config.AnalysisConfig{
			Concurrency:    2,
			RequestsPerSec: 100,
		},
	}
}

// SampleBrand returns the tracked brand used across tests
func SampleBrand() models.BrandContext {
	return models.BrandContext{
		Name:        "Acme",
		Website:     "https://www.acme.com",
		Competitors: []string{"Beta", "Gamma"},
	}
}

// SampleAnswer is a ranked list answer with citations
const SampleAnswer = `Here are the best project tools:

1. Acme - trusted by thousands of teams, see [Acme pricing](https://acme.com/pricing).
2. Beta - great for small teams.
3. Gamma - has some limitations.

Sources: https://www.g2.com/categories/project-management and https://acme.com/pricing.`

// SampleRecords returns KPI records for aggregation tests
func SampleRecords() []models.KPIMetrics {
	one, three := 1, 3
	return []models.KPIMetrics{
		{
			MentionPresent: true, OurBrandMentioned: true, OurBrandPosition: &one,
			CitationsCount: 2, Sentiment: 0.4, Prominence: 0.2, Alignment: 1.0,
			BrandAnalysis: models.BrandAnalysis{
				OurBrandMentioned: true, OurBrandPosition: &one, TotalBrandsMentioned: 2, RelevancyScore: 100,
				BrandsDetected: []models.BrandMention{
					{BrandName: "Acme", Position: 1, IsOurBrand: true},
					{BrandName: "Beta", Position: 2},
				},
			},
			Citations: []models.Citation{
				{URL: "https://acme.com/pricing", Domain: "acme.com", Position: 1},
				{URL: "https://www.g2.com/x", Domain: "g2.com", Position: 2},
			},
		},
		{
			OurBrandMentioned: true, OurBrandPosition: &three,
			Sentiment: -0.2, Prominence: 0.6, Alignment: 0.5,
			BrandAnalysis: models.BrandAnalysis{
				OurBrandMentioned: true, OurBrandPosition: &three, TotalBrandsMentioned: 3, RelevancyScore: 100,
				BrandsDetected: []models.BrandMention{
					{BrandName: "beta", Position: 1},
					{BrandName: "Gamma", Position: 2},
					{BrandName: "Acme", Position: 3, IsOurBrand: true},
				},
			},
		},
		{
			CitationsCount: 1, Sentiment: 0, Prominence: 1, Alignment: 0.3,
			BrandAnalysis: models.BrandAnalysis{
				TotalBrandsMentioned: 1, RelevancyScore: 50,
				BrandsDetected:       []models.BrandMention{{BrandName: "Gamma", Position: 1}},
			},
			Citations: []models.Citation{
				{URL: "https://blog.acme.com/post", Domain: "blog.acme.com", Position: 1},
			},
		},
		{
			MentionPresent: true, Sentiment: 0.4, Prominence: 0.4, Alignment: 0.2,
			BrandAnalysis: models.EmptyBrandAnalysis(),
		},
	}
}
