package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/AI-Template-SDK/aeo-insights/internal/analysis"
	"github.com/AI-Template-SDK/aeo-insights/internal/metrics"
	"github.com/AI-Template-SDK/aeo-insights/internal/models"
)

func TestMetricsRecordOutcomes(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	m.ObserveDetection("openai", analysis.OutcomeOK, 200*time.Millisecond)
	m.ObserveDetection("openai", analysis.OutcomeOK, 300*time.Millisecond)
	m.ObserveDetection("openai", analysis.OutcomeTimeout, 30*time.Second)
	m.ObserveAnalysis(models.ProviderPerplexity, models.StrategyDynamic)
	m.ObserveCost("openai", "gpt-4.1-mini", 0.002)
	m.ObserveCost("openai", "gpt-4.1-mini", 0)
	m.ObserveSnapshot("written")

	if got := testutil.ToFloat64(m.DetectionsTotal.WithLabelValues("openai", "ok")); got != 2 {
		t.Errorf("ok detections = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.DetectionsTotal.WithLabelValues("openai", "timeout")); got != 1 {
		t.Errorf("timeout detections = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("perplexity", "dynamic")); got != 1 {
		t.Errorf("analyses = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.DetectionCostUSD.WithLabelValues("openai", "gpt-4.1-mini")); got != 0.002 {
		t.Errorf("cost = %v, want 0.002", got)
	}
	if got := testutil.ToFloat64(m.SnapshotsTotal.WithLabelValues("written")); got != 1 {
		t.Errorf("snapshots = %v, want 1", got)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *metrics.Metrics
	m.ObserveDetection("openai", analysis.OutcomeError, time.Second)
	m.ObserveAnalysis(models.ProviderOpenAI, models.StrategyStatic)
	m.ObserveCost("openai", "gpt", 1)
	m.ObserveSnapshot("skipped")
}
