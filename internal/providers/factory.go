package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/AI-Template-SDK/aeo-insights/internal/analysis"
	"github.com/AI-Template-SDK/aeo-insights/internal/config"
	"github.com/AI-Template-SDK/aeo-insights/internal/providers/claude"
	"github.com/AI-Template-SDK/aeo-insights/internal/providers/common"
	"github.com/AI-Template-SDK/aeo-insights/internal/providers/gemini"
	"github.com/AI-Template-SDK/aeo-insights/internal/providers/gpt"
)

// NewBrandLister creates the model client used by dynamic brand detection, selected by
// cfg.Detector.Provider. It returns a nil lister and no error when detection is disabled.
func NewBrandLister(ctx context.Context, cfg *config.Config, accounting common.Accounting) (analysis.BrandLister, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	logger := accounting.Logger

	var lister analysis.BrandLister
	switch strings.ToLower(cfg.Detector.Provider) {
	case "", "none":
		logger.Info().Msg("[ProviderFactory] dynamic brand detection disabled, using static detection")
		return nil, nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is empty in config")
		}
		lister = gpt.New(cfg, accounting)
	case "azure":
		if cfg.AzureOpenAIEndpoint == "" || cfg.AzureOpenAIKey == "" {
			return nil, fmt.Errorf("Azure OpenAI endpoint and key are required")
		}
		lister = gpt.NewAzure(cfg, accounting)
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key is empty in config")
		}
		lister = claude.New(cfg, accounting)
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("Gemini API key is empty in config")
		}
		l, err := gemini.New(ctx, cfg, accounting, "")
		if err != nil {
			return nil, err
		}
		lister = l
	default:
		return nil, fmt.Errorf("unsupported detector provider: %s", cfg.Detector.Provider)
	}

	logger.Info().Str("lister", lister.Name()).Msg("[ProviderFactory] selected brand lister")

	if cfg.Detector.BreakerFailures > 0 {
		cooldown := time.Duration(cfg.Detector.BreakerCooldown) * time.Second
		lister = common.NewBreakerLister(lister, uint32(cfg.Detector.BreakerFailures), cooldown, logger)
	}
	return lister, nil
}

// NewAnalyzerRegistry builds the per-provider analyzers, with dynamic detection when a
// brand lister is configured.
func NewAnalyzerRegistry(ctx context.Context, cfg *config.Config, accounting common.Accounting, observer analysis.DetectionObserver) (*analysis.Registry, error) {
	lister, err := NewBrandLister(ctx, cfg, accounting)
	if err != nil {
		return nil, err
	}

	opts := analysis.AnalyzerOptions{Logger: accounting.Logger}
	if lister != nil {
		opts.Detector = analysis.NewDynamicDetector(lister, analysis.DetectorConfig{
			Timeout:          cfg.Detector.Timeout(),
			MaxResponseChars: cfg.Detector.MaxResponseChars,
			Observer:         observer,
		}, accounting.Logger)
	}
	return analysis.NewRegistry(opts), nil
}
