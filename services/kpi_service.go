// services/kpi_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/AI-Template-SDK/aeo-insights/internal/analysis"
	"github.com/AI-Template-SDK/aeo-insights/internal/models"
)

type kpiService struct {
	registry *analysis.Registry
	store    ResultStore
	opts     analysis.AggregateOptions
	observer KPIObserver
	logger   zerolog.Logger
}

// NewKPIService wires the analyzers to persistence. store may be nil for callers that
// only analyze; observer may be nil.
func NewKPIService(registry *analysis.Registry, store ResultStore, opts analysis.AggregateOptions, observer KPIObserver, logger zerolog.Logger) KPIService {
	return &kpiService{
		registry: registry,
		store:    store,
		opts:     opts,
		observer: observer,
		logger:   logger,
	}
}

func (s *kpiService) Analyze(ctx context.Context, req AnalysisRequest) (models.KPIMetrics, error) {
	analyzer, err := s.registry.For(req.Response.Provider)
	if err != nil {
		return models.KPIMetrics{}, err
	}

	var metrics models.KPIMetrics
	if req.Static {
		metrics = analyzer.AnalyzeStatic(req.Response, req.Brand)
	} else {
		metrics = analyzer.Analyze(ctx, req.Response, req.Brand)
	}

	if s.observer != nil {
		s.observer.ObserveAnalysis(metrics.Provider, metrics.DetectionStrategy)
	}
	return metrics, nil
}

func (s *kpiService) AnalyzeAndStore(ctx context.Context, req AnalysisRequest) (*models.AnalysisRecord, error) {
	if req.PromptID == "" {
		return nil, fmt.Errorf("prompt id is required")
	}
	if s.store == nil {
		return nil, fmt.Errorf("no result store configured")
	}

	metrics, err := s.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}

	measuredAt := req.MeasuredAt
	if measuredAt.IsZero() {
		measuredAt = time.Now().UTC()
	}
	rec := &models.AnalysisRecord{
		ID:         uuid.NewString(),
		PromptID:   req.PromptID,
		TopicID:    req.TopicID,
		Provider:   req.Response.Provider,
		MeasuredAt: measuredAt,
		Brand:      req.Brand,
		Metrics:    metrics,
	}
	if err := s.store.SaveResult(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to store analysis for prompt %s: %w", req.PromptID, err)
	}

	s.logger.Info().
		Str("prompt_id", rec.PromptID).
		Str("llm_provider", string(rec.Provider)).
		Str("strategy", string(metrics.DetectionStrategy)).
		Bool("mentioned", metrics.Mentioned()).
		Int("citations", metrics.CitationsCount).
		Msg("[AnalyzeAndStore] stored analysis")
	return rec, nil
}

// RecomputePromptSnapshot aggregates the stored results of one prompt, provider and day.
// An existing snapshot is kept unless force is set; a day with no results writes nothing.
func (s *kpiService) RecomputePromptSnapshot(ctx context.Context, key models.SnapshotKey, force bool) (*SnapshotResult, error) {
	if s.store == nil {
		return nil, fmt.Errorf("no result store configured")
	}
	key.Date = key.Day()

	records, err := s.store.ListPromptResults(ctx, key)
	if err != nil {
		return nil, err
	}
	result := &SnapshotResult{Key: key, Result: SnapshotEmpty}
	if len(records) == 0 {
		s.observeSnapshot(SnapshotEmpty)
		return result, nil
	}

	result.Snapshot = analysis.Aggregate(records, s.opts)
	written, err := s.store.SavePromptSnapshot(ctx, key, result.Snapshot, force)
	if err != nil {
		return nil, err
	}
	result.Result = snapshotOutcome(written)
	s.observeSnapshot(result.Result)

	s.logger.Info().
		Str("prompt_id", key.PromptID).
		Str("llm_provider", string(key.Provider)).
		Time("date", key.Date).
		Int("measurements", result.Snapshot.TotalMeasurements).
		Float64("visibility", result.Snapshot.VisibilityScore).
		Str("result", result.Result).
		Msg("[RecomputePromptSnapshot] snapshot computed")
	return result, nil
}

// RecomputeTopicSnapshot aggregates every prompt of a topic for one day.
func (s *kpiService) RecomputeTopicSnapshot(ctx context.Context, key models.TopicKey, force bool) (*TopicSnapshotResult, error) {
	if s.store == nil {
		return nil, fmt.Errorf("no result store configured")
	}
	key.Date = key.Day()

	records, err := s.store.ListTopicResults(ctx, key)
	if err != nil {
		return nil, err
	}
	result := &TopicSnapshotResult{Key: key, Result: SnapshotEmpty}
	if len(records) == 0 {
		s.observeSnapshot(SnapshotEmpty)
		return result, nil
	}

	brand, err := s.store.GetTopicBrand(ctx, key)
	if err != nil {
		return nil, err
	}
	result.Snapshot = analysis.AggregateTopic(records, brand, s.opts)
	written, err := s.store.SaveTopicSnapshot(ctx, key, result.Snapshot, force)
	if err != nil {
		return nil, err
	}
	result.Result = snapshotOutcome(written)
	s.observeSnapshot(result.Result)

	s.logger.Info().
		Str("topic_id", key.TopicID).
		Time("date", key.Date).
		Int("measurements", result.Snapshot.TotalMeasurements).
		Int("competitors", len(result.Snapshot.CompetitorMentions)).
		Int("owned_citations", result.Snapshot.OwnedCitations).
		Str("result", result.Result).
		Msg("[RecomputeTopicSnapshot] snapshot computed")
	return result, nil
}

// RecomputeDay recomputes every prompt and topic snapshot with results on day. A failing
// key does not stop the others; all failures are returned joined.
func (s *kpiService) RecomputeDay(ctx context.Context, day time.Time, force bool) (*DayResult, error) {
	if s.store == nil {
		return nil, fmt.Errorf("no result store configured")
	}
	day = models.Day(day)
	summary := &DayResult{Day: day}

	promptKeys, err := s.store.ListPromptKeys(ctx, day)
	if err != nil {
		return nil, err
	}
	topicKeys, err := s.store.ListTopicKeys(ctx, day)
	if err != nil {
		return nil, err
	}
	summary.Prompts = len(promptKeys)
	summary.Topics = len(topicKeys)

	var errs []error
	for _, key := range promptKeys {
		res, err := s.RecomputePromptSnapshot(ctx, key, force)
		if err != nil {
			summary.Failed++
			errs = append(errs, fmt.Errorf("prompt %s/%s: %w", key.PromptID, key.Provider, err))
			continue
		}
		summary.tally(res.Result)
	}
	for _, key := range topicKeys {
		res, err := s.RecomputeTopicSnapshot(ctx, key, force)
		if err != nil {
			summary.Failed++
			errs = append(errs, fmt.Errorf("topic %s: %w", key.TopicID, err))
			continue
		}
		summary.tally(res.Result)
	}

	s.logger.Info().
		Time("day", day).
		Int("prompts", summary.Prompts).
		Int("topics", summary.Topics).
		Int("written", summary.Written).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Msg("[RecomputeDay] recomputation finished")

	return summary, errors.Join(errs...)
}

func (s *kpiService) GetPromptSnapshot(ctx context.Context, key models.SnapshotKey) (*models.Snapshot, error) {
	if s.store == nil {
		return nil, fmt.Errorf("no result store configured")
	}
	return s.store.GetPromptSnapshot(ctx, key)
}

func (s *kpiService) observeSnapshot(result string) {
	if s.observer != nil {
		s.observer.ObserveSnapshot(result)
	}
}

func (d *DayResult) tally(result string) {
	switch result {
	case SnapshotWritten:
		d.Written++
	case SnapshotSkipped:
		d.Skipped++
	}
}

func snapshotOutcome(written bool) string {
	if written {
		return SnapshotWritten
	}
	return SnapshotSkipped
}
