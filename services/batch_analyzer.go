// services/batch_analyzer.go
package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/AI-Template-SDK/aeo-insights/internal/models"
)

const defaultBatchConcurrency = 4

type batchAnalyzer struct {
	kpi         KPIService
	concurrency int
	limiter     *rate.Limiter
	logger      zerolog.Logger
}

// NewBatchAnalyzer runs at most concurrency analyses at once and starts at most
// requestsPerSec dynamic detections per second. requestsPerSec <= 0 disables pacing.
func NewBatchAnalyzer(kpi KPIService, concurrency int, requestsPerSec float64, logger zerolog.Logger) BatchAnalyzer {
	if concurrency <= 0 {
		concurrency = defaultBatchConcurrency
	}
	var limiter *rate.Limiter
	if requestsPerSec > 0 {
		burst := int(requestsPerSec)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(requestsPerSec), burst)
	}
	return &batchAnalyzer{kpi: kpi, concurrency: concurrency, limiter: limiter, logger: logger}
}

// AnalyzeBatch returns one KPIMetrics per request, in request order. The first failure
// cancels the remaining work.
func (b *batchAnalyzer) AnalyzeBatch(ctx context.Context, reqs []AnalysisRequest) ([]models.KPIMetrics, error) {
	results := make([]models.KPIMetrics, len(reqs))
	if len(reqs) == 0 {
		return results, nil
	}

	b.logger.Info().Int("responses", len(reqs)).Int("concurrency", b.concurrency).
		Msg("[AnalyzeBatch] analyzing batch")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, req := range reqs {
		g.Go(func() error {
			if !req.Static && b.limiter != nil {
				if err := b.limiter.Wait(gctx); err != nil {
					return fmt.Errorf("response %d: %w", i, err)
				}
			}
			metrics, err := b.kpi.Analyze(gctx, req)
			if err != nil {
				return fmt.Errorf("response %d: %w", i, err)
			}
			results[i] = metrics
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
