// services/interfaces.go
package services

import (
	"context"
	"time"

	"github.com/invopop/jsonschema"

	"github.com/AI-Template-SDK/aeo-insights/internal/models"
)

// ResultStore persists analyzed responses and the snapshots computed from them.
type ResultStore interface {
	SaveResult(ctx context.Context, rec *models.AnalysisRecord) error
	ListPromptResults(ctx context.Context, key models.SnapshotKey) ([]models.KPIMetrics, error)
	ListTopicResults(ctx context.Context, key models.TopicKey) ([]models.KPIMetrics, error)
	ListPromptKeys(ctx context.Context, day time.Time) ([]models.SnapshotKey, error)
	ListTopicKeys(ctx context.Context, day time.Time) ([]models.TopicKey, error)
	GetTopicBrand(ctx context.Context, key models.TopicKey) (models.BrandContext, error)
	SavePromptSnapshot(ctx context.Context, key models.SnapshotKey, snap models.Snapshot, force bool) (bool, error)
	SaveTopicSnapshot(ctx context.Context, key models.TopicKey, snap models.TopicSnapshot, force bool) (bool, error)
	GetPromptSnapshot(ctx context.Context, key models.SnapshotKey) (*models.Snapshot, error)
}

// KPIObserver receives pipeline counters. *metrics.Metrics satisfies it.
type KPIObserver interface {
	ObserveAnalysis(provider models.Provider, strategy models.DetectionStrategy)
	ObserveSnapshot(result string)
}

// CostService prices generative model calls
type CostService interface {
	CalculateCost(provider string, model string, inputTokens int, outputTokens int) float64
}

// KPIService analyzes responses and maintains KPI snapshots
type KPIService interface {
	Analyze(ctx context.Context, req AnalysisRequest) (models.KPIMetrics, error)
	AnalyzeAndStore(ctx context.Context, req AnalysisRequest) (*models.AnalysisRecord, error)
	RecomputePromptSnapshot(ctx context.Context, key models.SnapshotKey, force bool) (*SnapshotResult, error)
	RecomputeTopicSnapshot(ctx context.Context, key models.TopicKey, force bool) (*TopicSnapshotResult, error)
	RecomputeDay(ctx context.Context, day time.Time, force bool) (*DayResult, error)
	GetPromptSnapshot(ctx context.Context, key models.SnapshotKey) (*models.Snapshot, error)
}

// BatchAnalyzer analyzes many responses with bounded concurrency
type BatchAnalyzer interface {
	AnalyzeBatch(ctx context.Context, reqs []AnalysisRequest) ([]models.KPIMetrics, error)
}

// AnalysisRequest is one response to analyze, with the identifiers it is stored under.
type AnalysisRequest struct {
	PromptID   string
	TopicID    string
	Response   models.RawResponse
	Brand      models.BrandContext
	MeasuredAt time.Time
	Static     bool // skip dynamic brand detection
}

// Snapshot recomputation results
const (
	SnapshotWritten = "written"
	SnapshotSkipped = "skipped"
	SnapshotEmpty   = "empty"
)

type SnapshotResult struct {
	Key      models.SnapshotKey `json:"key"`
	Snapshot models.Snapshot    `json:"snapshot"`
	Result   string             `json:"result"`
}

type TopicSnapshotResult struct {
	Key      models.TopicKey      `json:"key"`
	Snapshot models.TopicSnapshot `json:"snapshot"`
	Result   string               `json:"result"`
}

// DayResult summarizes a full-day recomputation
type DayResult struct {
	Day     time.Time `json:"day"`
	Prompts int       `json:"prompts"`
	Topics  int       `json:"topics"`
	Written int       `json:"written"`
	Skipped int       `json:"skipped"`
	Failed  int       `json:"failed"`
}

// GenerateSchema generates a JSON schema for structured outputs
func GenerateSchema[T any]() interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	var zero T
	schema := reflector.Reflect(zero)

	// Convert to the format expected by OpenAI
	result := map[string]interface{}{
		"type":       "object",
		"properties": schema.Properties,
		"required":   schema.Required,
	}

	if schema.AdditionalProperties != nil {
		result["additionalProperties"] = false
	}

	return result
}
