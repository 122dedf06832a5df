// workflows/snapshot_processor.go
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

type SnapshotProcessor struct {
	kpiService services.KPIService
	alerts     *SlackNotifier
	client     inngestgo.Client
	logger     zerolog.Logger
	now        func() time.Time
}

func NewSnapshotProcessor(kpiService services.KPIService, alerts *SlackNotifier, logger zerolog.Logger) *SnapshotProcessor {
	return &SnapshotProcessor{
		kpiService: kpiService,
		alerts:     alerts,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (p *SnapshotProcessor) SetClient(client inngestgo.Client) {
	p.client = client
}

// SetClock overrides the processor's notion of now.
func (p *SnapshotProcessor) SetClock(now func() time.Time) {
	p.now = now
}

// DailySnapshotRecompute fills in yesterday's snapshots once the day is complete.
// Snapshots already written during the day are left alone.
func (p *SnapshotProcessor) DailySnapshotRecompute() inngestgo.ServableFunction {
	fn, err := inngestgo.CreateFunction(
		p.client,
		inngestgo.FunctionOpts{
			ID:      "daily-snapshot-recompute",
			Name:    "Daily KPI Snapshot Recompute",
			Retries: inngestgo.IntPtr(2),
		},
		inngestgo.CronTrigger("0 3 * * *"),
		func(ctx context.Context, input inngestgo.Input[any]) (any, error) {
			p.logger.Info().Msg("[DailySnapshotRecompute] starting daily recompute")

			summary, err := step.Run(ctx, "recompute-yesterday", func(ctx context.Context) (*services.DayResult, error) {
				return p.Recompute(ctx, SnapshotRecomputeEvent{})
			})
			if err != nil {
				p.reportFailure(ctx, "daily-snapshot-recompute", "yesterday", err)
				return nil, err
			}
			return summary, nil
		},
	)
	if err != nil {
		p.logger.Error().Err(err).Msg("[DailySnapshotRecompute] failed to create function")
	}
	return fn
}

// RecomputeSnapshots rebuilds snapshots on demand.
func (p *SnapshotProcessor) RecomputeSnapshots() inngestgo.ServableFunction {
	fn, err := inngestgo.CreateFunction(
		p.client,
		inngestgo.FunctionOpts{
			ID:      "recompute-kpi-snapshots",
			Name:    "Recompute KPI Snapshots",
			Retries: inngestgo.IntPtr(3),
		},
		inngestgo.EventTrigger(EventSnapshotRecompute, nil),
		func(ctx context.Context, input inngestgo.Input[SnapshotRecomputeEvent]) (any, error) {
			evt := input.Event.Data
			p.logger.Info().
				Str("prompt_id", evt.PromptID).
				Str("topic_id", evt.TopicID).
				Str("date", evt.Date).
				Bool("force", evt.Force).
				Msg("[RecomputeSnapshots] starting")

			summary, err := step.Run(ctx, "recompute", func(ctx context.Context) (*services.DayResult, error) {
				return p.Recompute(ctx, evt)
			})
			if err != nil {
				p.reportFailure(ctx, "recompute-kpi-snapshots", subjectOf(evt), err)
				return nil, err
			}
			return summary, nil
		},
	)
	if err != nil {
		p.logger.Error().Err(err).Msg("[RecomputeSnapshots] failed to create function")
	}
	return fn
}

// Recompute handles one recompute request. Single prompt and topic requests are reported
// as a one-key day summary.
func (p *SnapshotProcessor) Recompute(ctx context.Context, evt SnapshotRecomputeEvent) (*services.DayResult, error) {
	day, err := evt.Day(p.now())
	if err != nil {
		return nil, err
	}

	switch {
	case evt.PromptID != "":
		provider, err := models.ParseProvider(evt.LLMProvider)
		if err != nil {
			return nil, err
		}
		res, err := p.kpiService.RecomputePromptSnapshot(ctx, models.SnapshotKey{PromptID: evt.PromptID, Provider: provider, Date: day}, evt.Force)
		if err != nil {
			return nil, fmt.Errorf("prompt %s/%s: %w", evt.PromptID, provider, err)
		}
		summary := &services.DayResult{Day: day, Prompts: 1}
		countResult(summary, res.Result)
		return summary, nil

	case evt.TopicID != "":
		res, err := p.kpiService.RecomputeTopicSnapshot(ctx, models.TopicKey{TopicID: evt.TopicID, Date: day}, evt.Force)
		if err != nil {
			return nil, fmt.Errorf("topic %s: %w", evt.TopicID, err)
		}
		summary := &services.DayResult{Day: day, Topics: 1}
		countResult(summary, res.Result)
		return summary, nil
	}

	return p.kpiService.RecomputeDay(ctx, day, evt.Force)
}

func countResult(summary *services.DayResult, result string) {
	switch result {
	case services.SnapshotWritten:
		summary.Written++
	case services.SnapshotSkipped:
		summary.Skipped++
	}
}

func subjectOf(evt SnapshotRecomputeEvent) string {
	switch {
	case evt.PromptID != "":
		return "prompt " + evt.PromptID
	case evt.TopicID != "":
		return "topic " + evt.TopicID
	case evt.Date != "":
		return "day " + evt.Date
	}
	return "yesterday"
}

func (p *SnapshotProcessor) reportFailure(ctx context.Context, workflow, subject string, err error) {
	if alertErr := p.alerts.ReportWorkflowFailure(ctx, workflow, subject, "recompute", err); alertErr != nil && !errors.Is(alertErr, ErrSlackDisabled) {
		p.logger.Warn().Err(alertErr).Msg("[SnapshotProcessor] failed to send Slack alert")
	}
}
