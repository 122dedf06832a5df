// Package metrics exposes Prometheus instruments for the analysis pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AI-Template-SDK/aeo-insights/internal/analysis"
	"github.com/AI-Template-SDK/aeo-insights/internal/models"
)

const namespace = "aeo"

// Metrics methods are safe to call on a nil receiver.
type Metrics struct {
	AnalysesTotal     *prometheus.CounterVec
	DetectionsTotal   *prometheus.CounterVec
	DetectionDuration *prometheus.HistogramVec
	DetectionCostUSD  *prometheus.CounterVec
	SnapshotsTotal    *prometheus.CounterVec
}

// New creates the instruments and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AnalysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Responses analyzed, by answering LLM provider and brand detection strategy.",
		}, []string{"llm_provider", "strategy"}),
		DetectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "brand_detections_total",
			Help:      "Dynamic brand detections, by model client and outcome.",
		}, []string{"lister", "outcome"}),
		DetectionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "brand_detection_duration_seconds",
			Help:      "Latency of dynamic brand detection calls.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"lister"}),
		DetectionCostUSD: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "brand_detection_cost_usd_total",
			Help:      "Estimated spend on brand detection calls.",
		}, []string{"lister", "model"}),
		SnapshotsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_total",
			Help:      "Prompt KPI snapshot recomputations, by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.AnalysesTotal, m.DetectionsTotal, m.DetectionDuration, m.DetectionCostUSD, m.SnapshotsTotal)
	return m
}

func (m *Metrics) ObserveDetection(lister string, outcome analysis.DetectionOutcome, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.DetectionsTotal.WithLabelValues(lister, string(outcome)).Inc()
	m.DetectionDuration.WithLabelValues(lister).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveAnalysis(provider models.Provider, strategy models.DetectionStrategy) {
	if m == nil {
		return
	}
	m.AnalysesTotal.WithLabelValues(string(provider), string(strategy)).Inc()
}

func (m *Metrics) ObserveCost(lister, model string, usd float64) {
	if m == nil || usd <= 0 {
		return
	}
	m.DetectionCostUSD.WithLabelValues(lister, model).Add(usd)
}

// ObserveSnapshot records "written", "skipped" or "empty".
func (m *Metrics) ObserveSnapshot(result string) {
	if m == nil {
		return
	}
	m.SnapshotsTotal.WithLabelValues(result).Inc()
}

var _ analysis.DetectionObserver = (*Metrics)(nil)
