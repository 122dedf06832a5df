// workflows/response_processor.go
package workflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/inngest/inngestgo"
	"github.com/inngest/inngestgo/step"
	"github.com/rs/zerolog"

	"github.com/AI-Template-SDK/aeo-insights/internal/models"
	"github.com/AI-Template-SDK/aeo-insights/services"
)

type ResponseProcessor struct {
	kpiService services.KPIService
	alerts     *SlackNotifier
	client     inngestgo.Client
	logger     zerolog.Logger
}

func NewResponseProcessor(kpiService services.KPIService, alerts *SlackNotifier, logger zerolog.Logger) *ResponseProcessor {
	return &ResponseProcessor{
		kpiService: kpiService,
		alerts:     alerts,
		logger:     logger,
	}
}

func (p *ResponseProcessor) SetClient(client inngestgo.Client) {
	p.client = client
}

// ResponseOutcome is the summary returned by the response workflow.
type ResponseOutcome struct {
	ResultID          string    `json:"result_id"`
	PromptID          string    `json:"prompt_id"`
	TopicID           string    `json:"topic_id,omitempty"`
	LLMProvider       string    `json:"llm_provider"`
	MeasuredAt        time.Time `json:"measured_at"`
	DetectionStrategy string    `json:"detection_strategy"`
	Mentioned         bool      `json:"mentioned"`
	CitationsCount    int       `json:"citations_count"`
	PromptSnapshot    string    `json:"prompt_snapshot,omitempty"`
	TopicSnapshot     string    `json:"topic_snapshot,omitempty"`
	VisibilityScore   float64   `json:"visibility_score"`
}

func (p *ResponseProcessor) ProcessResponse() inngestgo.ServableFunction {
	fn, err := inngestgo.CreateFunction(
		p.client,
		inngestgo.FunctionOpts{
			ID:      "process-aeo-response",
			Name:    "Analyze LLM response for brand visibility",
			Retries: inngestgo.IntPtr(3),
		},
		inngestgo.EventTrigger(EventResponseReceived, nil),
		func(ctx context.Context, input inngestgo.Input[ResponseReceivedEvent]) (any, error) {
			evt := input.Event.Data
			p.logger.Info().Str("prompt_id", evt.PromptID).Str("llm_provider", evt.LLMProvider).
				Msg("[ProcessResponse] starting")

			outcome, err := step.Run(ctx, "analyze-and-store", func(ctx context.Context) (*ResponseOutcome, error) {
				return p.AnalyzeAndStore(ctx, evt)
			})
			if err != nil {
				p.reportFailure(ctx, "analyze-and-store", evt.PromptID, err)
				return nil, err
			}

			promptResult, err := step.Run(ctx, "recompute-prompt-snapshot", func(ctx context.Context) (*services.SnapshotResult, error) {
				return p.RefreshPromptSnapshot(ctx, outcome)
			})
			if err != nil {
				p.reportFailure(ctx, "recompute-prompt-snapshot", evt.PromptID, err)
				return nil, err
			}
			outcome.PromptSnapshot = promptResult.Result
			outcome.VisibilityScore = promptResult.Snapshot.VisibilityScore

			if outcome.TopicID != "" {
				topicResult, err := step.Run(ctx, "recompute-topic-snapshot", func(ctx context.Context) (*services.TopicSnapshotResult, error) {
					return p.RefreshTopicSnapshot(ctx, outcome)
				})
				if err != nil {
					p.reportFailure(ctx, "recompute-topic-snapshot", outcome.TopicID, err)
					return nil, err
				}
				outcome.TopicSnapshot = topicResult.Result
			}

			p.logger.Info().Str("prompt_id", outcome.PromptID).Str("result_id", outcome.ResultID).
				Msg("[ProcessResponse] completed")
			return outcome, nil
		},
	)
	if err != nil {
		p.logger.Error().Err(err).Msg("[ProcessResponse] failed to create function")
	}
	return fn
}

// AnalyzeAndStore analyzes the event's response and persists the result.
func (p *ResponseProcessor) AnalyzeAndStore(ctx context.Context, evt ResponseReceivedEvent) (*ResponseOutcome, error) {
	req, err := evt.Request()
	if err != nil {
		return nil, fmt.Errorf("invalid %s event: %w", EventResponseReceived, err)
	}
	rec, err := p.kpiService.AnalyzeAndStore(ctx, req)
	if err != nil {
		return nil, err
	}
	return &ResponseOutcome{
		ResultID:          rec.ID,
		PromptID:          rec.PromptID,
		TopicID:           rec.TopicID,
		LLMProvider:       string(rec.Provider),
		MeasuredAt:        rec.MeasuredAt,
		DetectionStrategy: string(rec.Metrics.DetectionStrategy),
		Mentioned:         rec.Metrics.Mentioned(),
		CitationsCount:    rec.Metrics.CitationsCount,
	}, nil
}

// RefreshPromptSnapshot rebuilds the snapshot of the day the result was measured. The snapshot is
// forced so a new response always shows up in the day's numbers.
func (p *ResponseProcessor) RefreshPromptSnapshot(ctx context.Context, outcome *ResponseOutcome) (*services.SnapshotResult, error) {
	provider, err := models.ParseProvider(outcome.LLMProvider)
	if err != nil {
		return nil, err
	}
	key := models.SnapshotKey{PromptID: outcome.PromptID, Provider: provider, Date: models.Day(outcome.MeasuredAt)}
	return p.kpiService.RecomputePromptSnapshot(ctx, key, true)
}

func (p *ResponseProcessor) RefreshTopicSnapshot(ctx context.Context, outcome *ResponseOutcome) (*services.TopicSnapshotResult, error) {
	key := models.TopicKey{TopicID: outcome.TopicID, Date: models.Day(outcome.MeasuredAt)}
	return p.kpiService.RecomputeTopicSnapshot(ctx, key, true)
}

func (p *ResponseProcessor) reportFailure(ctx context.Context, stage, subject string, err error) {
	if alertErr := p.alerts.ReportWorkflowFailure(ctx, "process-aeo-response", subject, stage, err); alertErr != nil && !errors.Is(alertErr, ErrSlackDisabled) {
		p.logger.Warn().Err(alertErr).Msg("[ProcessResponse] failed to send Slack alert")
	}
}
