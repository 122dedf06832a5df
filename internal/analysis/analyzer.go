package analysis

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/AI-Template-SDK/aeo-insights/internal/models"
)

// BrandDetector is satisfied by *DynamicDetector.
type BrandDetector interface {
	Detect(ctx context.Context, responseText, ourBrandName string) models.BrandAnalysis
}

// ResponseAnalyzer turns one LLM answer into a KPIMetrics record.
type ResponseAnalyzer interface {
	Provider() models.Provider
	// Analyze prefers dynamic brand detection when a brand name and a detector are available.
	Analyze(ctx context.Context, resp models.RawResponse, brand models.BrandContext) models.KPIMetrics
	// AnalyzeStatic uses the brand's competitor list only and performs no network I/O.
	AnalyzeStatic(resp models.RawResponse, brand models.BrandContext) models.KPIMetrics
}

// AnalyzerOptions configures every analyzer built by NewAnalyzer.
type AnalyzerOptions struct {
	Detector BrandDetector // nil disables dynamic detection
	Logger   zerolog.Logger
}

var (
	chatGPTTrackingLead    = regexp.MustCompile(`\?utm_source=(?:chatgpt\.com|openai)&`)
	chatGPTTrackingPattern = regexp.MustCompile(`[?&]utm_source=(?:chatgpt\.com|openai)`)
	footnoteMarkerPattern  = regexp.MustCompile(`\[\d+\]`)
)

// providerProfile holds the per-provider text preparation.
type providerProfile struct {
	// citationText prepares the text citations are extracted from.
	citationText func(string) string
	// scoringText prepares the text brands and scores are computed on.
	scoringText func(string) string
}

func identity(s string) string { return s }

// stripChatGPTTracking removes the utm_source parameter ChatGPT appends to cited links.
func stripChatGPTTracking(s string) string {
	s = chatGPTTrackingLead.ReplaceAllString(s, "?")
	return chatGPTTrackingPattern.ReplaceAllString(s, "")
}

var profiles = map[models.Provider]providerProfile{
	models.ProviderOpenAI: {
		citationText: stripChatGPTTracking,
		scoringText:  identity,
	},
	models.ProviderPerplexity: {
		citationText: identity,
		scoringText:  func(s string) string { return footnoteMarkerPattern.ReplaceAllString(s, "") },
	},
	models.ProviderAnthropic: {citationText: identity, scoringText: identity},
	models.ProviderGemini:    {citationText: identity, scoringText: identity},
	models.ProviderGeneric:   {citationText: identity, scoringText: identity},
}

type responseAnalyzer struct {
	provider models.Provider
	profile  providerProfile
	detector BrandDetector
	logger   zerolog.Logger
}

// NewAnalyzer returns the analyzer for provider.
func NewAnalyzer(provider models.Provider, opts AnalyzerOptions) (ResponseAnalyzer, error) {
	profile, ok := profiles[provider]
	if !ok {
		return nil, fmt.Errorf("no response analyzer for llm provider %q", provider)
	}
	return &responseAnalyzer{
		provider: provider,
		profile:  profile,
		detector: opts.Detector,
		logger:   opts.Logger.With().Str("llm_provider", string(provider)).Logger(),
	}, nil
}

func (a *responseAnalyzer) Provider() models.Provider { return a.provider }

func (a *responseAnalyzer) Analyze(ctx context.Context, resp models.RawResponse, brand models.BrandContext) models.KPIMetrics {
	return a.analyze(ctx, resp, brand, a.detector != nil && strings.TrimSpace(brand.Name) != "")
}

func (a *responseAnalyzer) AnalyzeStatic(resp models.RawResponse, brand models.BrandContext) models.KPIMetrics {
	return a.analyze(context.Background(), resp, brand, false)
}

func (a *responseAnalyzer) analyze(ctx context.Context, resp models.RawResponse, brand models.BrandContext, dynamic bool) models.KPIMetrics {
	citationText := a.profile.citationText(resp.Text)
	citations := AppendSourceCitations(ExtractCitations(citationText), resp.SourceURLs, len(citationText))

	text := a.profile.scoringText(resp.Text)

	var brands models.BrandAnalysis
	strategy := models.StrategyStatic
	if dynamic {
		strategy = models.StrategyDynamic
		brands = a.detector.Detect(ctx, text, brand.Name)
	} else {
		brands = DetectBrands(text, brand.Name, brand.Competitors)
	}

	metrics := models.KPIMetrics{
		MentionPresent: MentionPresent(text, brand),
		CitationsCount: len(citations),
		Sentiment:      Sentiment(text),
		Prominence:     Prominence(text, brand.Name),
		Alignment:      Alignment(text),
		RawAnswer:      resp.Text,

		ResponseText:      resp.Text,
		BrandAnalysis:     brands,
		Citations:         citations,
		OurBrandMentioned: brands.OurBrandMentioned,
		OurBrandPosition:  brands.OurBrandPosition,
		RelevancyScore:    brands.RelevancyScore,

		Provider:          a.provider,
		DetectionStrategy: strategy,
	}

	a.logger.Debug().
		Str("strategy", string(strategy)).
		Int("citations", metrics.CitationsCount).
		Int("brands", brands.TotalBrandsMentioned).
		Bool("mentioned", metrics.Mentioned()).
		Msg("[ResponseAnalyzer] analyzed response")

	return metrics
}

// Registry holds one analyzer per supported provider.
type Registry struct {
	analyzers map[models.Provider]ResponseAnalyzer
}

func NewRegistry(opts AnalyzerOptions) *Registry {
	r := &Registry{analyzers: make(map[models.Provider]ResponseAnalyzer, len(profiles))}
	for _, p := range models.Providers {
		// every entry of models.Providers has a profile
		a, _ := NewAnalyzer(p, opts)
		r.analyzers[p] = a
	}
	return r
}

func (r *Registry) For(provider models.Provider) (ResponseAnalyzer, error) {
	a, ok := r.analyzers[provider]
	if !ok {
		return nil, fmt.Errorf("no response analyzer for llm provider %q", provider)
	}
	return a, nil
}
