package analysis_test

import (
	"math"
	"reflect"
	"testing"

	"github.com/AI-Template-SDK/aeo-insights/internal/analysis"
	"github.com/AI-Template-SDK/aeo-insights/internal/models"
	"github.com/AI-Template-SDK/aeo-insights/internal/testutil"
)

func TestAggregateEmpty(t *testing.T) {
	for _, legacy := range []bool{false, true} {
		snap := analysis.Aggregate(nil, analysis.AggregateOptions{LegacyProminence: legacy})

		if snap.TotalMeasurements != 0 || snap.MentionRate != 0 || snap.CitationRate != 0 {
			t.Errorf("Aggregate(nil) = %+v, want zero counts and rates", snap)
		}
		if snap.AvgBrandPosition != nil {
			t.Errorf("AvgBrandPosition = %v, want nil", *snap.AvgBrandPosition)
		}
		if snap.VisibilityScore != 0 {
			t.Errorf("VisibilityScore = %v, want 0 (legacy=%v)", snap.VisibilityScore, legacy)
		}
		for name, v := range map[string]float64{
			"AvgSentiment": snap.AvgSentiment, "AvgProminence": snap.AvgProminence,
			"AvgAlignment": snap.AvgAlignment, "AvgPosition": snap.AvgPosition,
		} {
			if math.IsNaN(v) || v != 0 {
				t.Errorf("%s = %v, want 0", name, v)
			}
		}
	}
}

func TestAggregate(t *testing.T) {
	snap := analysis.Aggregate(testutil.SampleRecords(), analysis.AggregateOptions{})

	if snap.TotalMeasurements != 4 {
		t.Errorf("TotalMeasurements = %d, want 4", snap.TotalMeasurements)
	}
	// record 2 only has the enhanced signal, record 4 only the legacy one
	if snap.MentionCount != 3 {
		t.Errorf("MentionCount = %d, want 3", snap.MentionCount)
	}
	if snap.CitationCount != 2 {
		t.Errorf("CitationCount = %d, want 2", snap.CitationCount)
	}

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"MentionRate", snap.MentionRate, 0.75},
		{"CitationRate", snap.CitationRate, 0.5},
		{"AvgSentiment", snap.AvgSentiment, 0.15},
		{"AvgProminence", snap.AvgProminence, 0.55},
		{"AvgAlignment", snap.AvgAlignment, 0.5},
		{"AvgPosition", snap.AvgPosition, 2},
		{"VisibilityScore", snap.VisibilityScore, 0.4*0.75 + 0.25*(1-0.55) + 0.2*0.5 + 0.15*0.5},
	}
	for _, c := range checks {
		if !almostEqual(c.got, c.want) {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}

	// records without a position are excluded, not counted as zero
	if snap.AvgBrandPosition == nil || !almostEqual(*snap.AvgBrandPosition, 2) {
		t.Errorf("AvgBrandPosition = %v, want 2", snap.AvgBrandPosition)
	}
}

func TestAggregateLegacyProminence(t *testing.T) {
	snap := analysis.Aggregate(testutil.SampleRecords(), analysis.AggregateOptions{LegacyProminence: true})

	want := 0.4*0.75 + 0.25*0.55 + 0.2*0.5 + 0.15*0.5
	if !almostEqual(snap.VisibilityScore, want) {
		t.Errorf("VisibilityScore = %v, want %v", snap.VisibilityScore, want)
	}
}

func TestVisibilityRewardsProminentMentions(t *testing.T) {
	record := func(prominence float64) models.KPIMetrics {
		return models.KPIMetrics{MentionPresent: true, CitationsCount: 1, Prominence: prominence, Alignment: 0.5}
	}
	prominent := []models.KPIMetrics{record(0), record(0.1)}
	buried := []models.KPIMetrics{record(0.9), record(1)}

	t.Run("default convention", func(t *testing.T) {
		opts := analysis.AggregateOptions{}
		p := analysis.Aggregate(prominent, opts).VisibilityScore
		b := analysis.Aggregate(buried, opts).VisibilityScore
		if p <= b {
			t.Errorf("prominent visibility %v should exceed buried %v", p, b)
		}
	})

	t.Run("legacy convention keeps historical ordering", func(t *testing.T) {
		opts := analysis.AggregateOptions{LegacyProminence: true}
		p := analysis.Aggregate(prominent, opts).VisibilityScore
		b := analysis.Aggregate(buried, opts).VisibilityScore
		if p >= b {
			t.Errorf("legacy prominent visibility %v should be below buried %v", p, b)
		}
	})
}

func TestAggregatePositionFallsBackToProminence(t *testing.T) {
	records := []models.KPIMetrics{
		{MentionPresent: true, Prominence: 0.3},
		{Prominence: 0.5},
	}

	snap := analysis.Aggregate(records, analysis.AggregateOptions{})

	if snap.AvgBrandPosition != nil {
		t.Errorf("AvgBrandPosition = %v, want nil", *snap.AvgBrandPosition)
	}
	if !almostEqual(snap.AvgPosition, snap.AvgProminence) || !almostEqual(snap.AvgPosition, 0.4) {
		t.Errorf("AvgPosition = %v, want AvgProminence 0.4", snap.AvgPosition)
	}
}

func TestTallyCompetitors(t *testing.T) {
	records := testutil.SampleRecords()
	records = append(records, models.KPIMetrics{BrandAnalysis: models.BrandAnalysis{
		BrandsDetected: []models.BrandMention{
			{BrandName: "Delta", Position: 1},
			{BrandName: "DELTA", Position: 2},
		},
	}})

	got := analysis.TallyCompetitors(records)

	want := []models.CompetitorCount{
		{BrandName: "Beta", Mentions: 2},
		{BrandName: "Gamma", Mentions: 2},
		{BrandName: "Delta", Mentions: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TallyCompetitors() = %+v, want %+v", got, want)
	}
}

func TestAggregateTopic(t *testing.T) {
	topic := analysis.AggregateTopic(testutil.SampleRecords(), testutil.SampleBrand(), analysis.AggregateOptions{})

	if topic.TotalMeasurements != 4 {
		t.Errorf("TotalMeasurements = %d, want 4", topic.TotalMeasurements)
	}
	// acme.com/pricing and blog.acme.com/post
	if topic.OwnedCitations != 2 {
		t.Errorf("OwnedCitations = %d, want 2", topic.OwnedCitations)
	}
	wantDomains := []models.DomainCount{
		{Domain: "acme.com", Citations: 2},
		{Domain: "g2.com", Citations: 1},
	}
	if !reflect.DeepEqual(topic.CitedDomains, wantDomains) {
		t.Errorf("CitedDomains = %+v, want %+v", topic.CitedDomains, wantDomains)
	}
	if len(topic.CompetitorMentions) != 2 {
		t.Errorf("CompetitorMentions = %+v, want Beta and Gamma", topic.CompetitorMentions)
	}
}
