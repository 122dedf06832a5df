// internal/models/models.go
package models

import (
	"fmt"
	"strings"
	"time"
)

// Provider identifies the LLM that produced an answer.
type Provider string

const (
	ProviderOpenAI     Provider = "openai"
	ProviderAnthropic  Provider = "anthropic"
	ProviderPerplexity Provider = "perplexity"
	ProviderGemini     Provider = "gemini"
	ProviderGeneric    Provider = "generic"
)

// Providers lists every supported provider in a stable order.
var Providers = []Provider{ProviderOpenAI, ProviderAnthropic, ProviderPerplexity, ProviderGemini, ProviderGeneric}

// ParseProvider maps a provider name or a model name ("gpt-4.1", "claude-sonnet-4") onto a Provider.
func ParseProvider(name string) (Provider, error) {
	lower := strings.ToLower(strings.TrimSpace(name))
	switch {
	case lower == "":
		return "", fmt.Errorf("llm provider is empty")
	case lower == string(ProviderGeneric):
		return ProviderGeneric, nil
	case strings.Contains(lower, "perplexity") || strings.Contains(lower, "sonar"):
		return ProviderPerplexity, nil
	case strings.Contains(lower, "gemini") || strings.Contains(lower, "google"):
		return ProviderGemini, nil
	case strings.Contains(lower, "claude") || strings.Contains(lower, "anthropic"):
		return ProviderAnthropic, nil
	case strings.Contains(lower, "openai") || strings.Contains(lower, "gpt") || strings.Contains(lower, "chatgpt"):
		return ProviderOpenAI, nil
	}
	return "", fmt.Errorf("unsupported llm provider: %s", name)
}

// DetectionStrategy records which brand detector produced a BrandAnalysis.
type DetectionStrategy string

const (
	StrategyDynamic DetectionStrategy = "dynamic"
	StrategyStatic  DetectionStrategy = "static"
)

// RawResponse is an answer returned by an LLM for a tracked prompt.
type RawResponse struct {
	Text       string   `json:"response_text"`
	Provider   Provider `json:"llm_provider"`
	SourceURLs []string `json:"source_urls,omitempty"` // citations returned out of band by web-search APIs
}

// BrandContext describes the tracked brand.
type BrandContext struct {
	Name        string   `json:"name"`
	Website     string   `json:"website,omitempty"`
	Competitors []string `json:"competitors,omitempty"`
}

// Citation is a source URL referenced by an answer.
type Citation struct {
	URL             string  `json:"url"`
	Domain          string  `json:"domain"`
	Title           *string `json:"title"`
	FaviconURL      *string `json:"favicon_url"`
	Position        int     `json:"position"`         // 1-based, dense
	FirstOccurrence int     `json:"first_occurrence"` // character offset in the answer
}

// BrandMention is a brand found in an answer.
type BrandMention struct {
	BrandName       string `json:"brand_name"`
	Position        int    `json:"position"` // 1-based rank by first occurrence
	FirstOccurrence int    `json:"first_occurrence"`
	IsOurBrand      bool   `json:"is_our_brand"`
}

type BrandAnalysis struct {
	OurBrandMentioned    bool           `json:"our_brand_mentioned"`
	OurBrandPosition     *int           `json:"our_brand_position"`
	BrandsDetected       []BrandMention `json:"brands_detected"`
	TotalBrandsMentioned int            `json:"total_brands_mentioned"`
	RelevancyScore       int            `json:"relevancy_score"` // 100, 50 or 0
}

// EmptyBrandAnalysis is the result when no brand could be detected.
func EmptyBrandAnalysis() BrandAnalysis {
	return BrandAnalysis{BrandsDetected: []BrandMention{}}
}

// KPIMetrics is the per-response analysis record.
type KPIMetrics struct {
	// legacy fields
	MentionPresent bool    `json:"mention_present"`
	CitationsCount int     `json:"citations_count"`
	Sentiment      float64 `json:"sentiment"`  // [-1, 1]
	Prominence     float64 `json:"prominence"` // [0, 1], lower is more prominent
	Alignment      float64 `json:"alignment"`  // [0, 1]
	RawAnswer      string  `json:"raw_answer"`

	// enhanced fields
	ResponseText      string        `json:"response_text"`
	BrandAnalysis     BrandAnalysis `json:"brand_analysis"`
	Citations         []Citation    `json:"citations"`
	OurBrandMentioned bool          `json:"our_brand_mentioned"`
	OurBrandPosition  *int          `json:"our_brand_position"`
	RelevancyScore    int           `json:"relevancy_score"`

	Provider          Provider          `json:"llm_provider,omitempty"`
	DetectionStrategy DetectionStrategy `json:"detection_strategy,omitempty"`
}

// Mentioned reports whether the record counts as a brand mention under either mention signal.
func (m KPIMetrics) Mentioned() bool {
	return m.MentionPresent || m.OurBrandMentioned
}

// Snapshot is the aggregate over a set of KPIMetrics.
type Snapshot struct {
	TotalMeasurements int      `json:"total_measurements"`
	MentionCount      int      `json:"mention_count"`
	CitationCount     int      `json:"citation_count"`
	MentionRate       float64  `json:"mention_rate"`
	CitationRate      float64  `json:"citation_rate"`
	AvgSentiment      float64  `json:"avg_sentiment"`
	AvgProminence     float64  `json:"avg_prominence"`
	AvgAlignment      float64  `json:"avg_alignment"`
	AvgBrandPosition  *float64 `json:"avg_brand_position"`
	AvgPosition       float64  `json:"avg_position"`
	VisibilityScore   float64  `json:"visibility_score"` // [0, 1]
}

type CompetitorCount struct {
	BrandName string `json:"brand_name"`
	Mentions  int    `json:"mentions"`
}

type DomainCount struct {
	Domain    string `json:"domain"`
	Citations int    `json:"citations"`
}

// TopicSnapshot aggregates every prompt of a topic.
type TopicSnapshot struct {
	Snapshot
	CompetitorMentions []CompetitorCount `json:"competitor_mentions"`
	CitedDomains       []DomainCount     `json:"cited_domains"`
	OwnedCitations     int               `json:"owned_citations"`
}

// SnapshotKey identifies a persisted per-prompt snapshot.
type SnapshotKey struct {
	PromptID string    `json:"prompt_id"`
	Provider Provider  `json:"llm_provider"`
	Date     time.Time `json:"date"`
}

func (k SnapshotKey) Day() time.Time { return Day(k.Date) }

// AnalysisRecord is a persisted, analyzed response.
type AnalysisRecord struct {
	ID         string       `json:"id"`
	PromptID   string       `json:"prompt_id"`
	TopicID    string       `json:"topic_id,omitempty"`
	Provider   Provider     `json:"llm_provider"`
	MeasuredAt time.Time    `json:"measured_at"`
	Brand      BrandContext `json:"brand"`
	Metrics    KPIMetrics   `json:"metrics"`
}

// TopicKey identifies a persisted per-topic snapshot.
type TopicKey struct {
	TopicID string    `json:"topic_id"`
	Date    time.Time `json:"date"`
}

func (k TopicKey) Day() time.Time { return Day(k.Date) }

// Day truncates a timestamp to its UTC calendar day.
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
