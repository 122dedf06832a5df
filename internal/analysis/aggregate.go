package analysis

import (
	"sort"
	"strings"

	"github.com/AI-Template-SDK/aeo-insights/internal/models"
)

const (
	mentionWeight    = 0.4
	prominenceWeight = 0.25
	citationWeight   = 0.2
	alignmentWeight  = 0.15
)

type AggregateOptions struct {
	// LegacyProminence adds avgProminence to the visibility score as-is, which rewards
	// less prominent mentions. By default the score uses 1 - avgProminence.
	LegacyProminence bool
}

// Aggregate reduces per-response records for one prompt (or one topic) into a snapshot.
func Aggregate(records []models.KPIMetrics, opts AggregateOptions) models.Snapshot {
	snap := models.Snapshot{TotalMeasurements: len(records)}
	if len(records) == 0 {
		return snap
	}

	var sentiment, prominence, alignment, positionSum float64
	positioned := 0
	for _, r := range records {
		if r.Mentioned() {
			snap.MentionCount++
		}
		if r.CitationsCount > 0 {
			snap.CitationCount++
		}
		sentiment += r.Sentiment
		prominence += r.Prominence
		alignment += r.Alignment
		if r.OurBrandPosition != nil {
			positionSum += float64(*r.OurBrandPosition)
			positioned++
		}
	}

	n := float64(len(records))
	snap.MentionRate = float64(snap.MentionCount) / n
	snap.CitationRate = float64(snap.CitationCount) / n
	snap.AvgSentiment = sentiment / n
	snap.AvgProminence = prominence / n
	snap.AvgAlignment = alignment / n

	snap.AvgPosition = snap.AvgProminence
	if positioned > 0 {
		avg := positionSum / float64(positioned)
		snap.AvgBrandPosition = &avg
		snap.AvgPosition = avg
	}

	snap.VisibilityScore = VisibilityScore(snap, opts)
	return snap
}

// VisibilityScore is the weighted [0, 1] visibility of a snapshot.
func VisibilityScore(snap models.Snapshot, opts AggregateOptions) float64 {
	if snap.TotalMeasurements == 0 {
		return 0
	}
	prominence := 1 - snap.AvgProminence
	if opts.LegacyProminence {
		prominence = snap.AvgProminence
	}
	score := mentionWeight*snap.MentionRate +
		prominenceWeight*prominence +
		citationWeight*snap.CitationRate +
		alignmentWeight*snap.AvgAlignment
	return clamp(score, 0, 1)
}

// TallyCompetitors counts, per non-tracked brand, how many records mention it.
// Names are grouped case-insensitively under their first-seen spelling; the result is
// ordered by count, then name.
func TallyCompetitors(records []models.KPIMetrics) []models.CompetitorCount {
	counts := make(map[string]*models.CompetitorCount)
	for _, r := range records {
		inRecord := make(map[string]bool)
		for _, b := range r.BrandAnalysis.BrandsDetected {
			if b.IsOurBrand {
				continue
			}
			key := strings.ToLower(strings.TrimSpace(b.BrandName))
			if key == "" || inRecord[key] {
				continue
			}
			inRecord[key] = true
			if c, ok := counts[key]; ok {
				c.Mentions++
			} else {
				counts[key] = &models.CompetitorCount{BrandName: b.BrandName, Mentions: 1}
			}
		}
	}

	out := make([]models.CompetitorCount, 0, len(counts))
	for _, c := range counts {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Mentions != out[j].Mentions {
			return out[i].Mentions > out[j].Mentions
		}
		return strings.ToLower(out[i].BrandName) < strings.ToLower(out[j].BrandName)
	})
	return out
}

// TallyCitedDomains counts citations per registrable domain across records.
func TallyCitedDomains(records []models.KPIMetrics) []models.DomainCount {
	counts := make(map[string]int)
	for _, r := range records {
		for _, c := range r.Citations {
			counts[RegistrableDomain(c.Domain)]++
		}
	}
	out := make([]models.DomainCount, 0, len(counts))
	for d, n := range counts {
		out = append(out, models.DomainCount{Domain: d, Citations: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Citations != out[j].Citations {
			return out[i].Citations > out[j].Citations
		}
		return out[i].Domain < out[j].Domain
	})
	return out
}

// AggregateTopic aggregates every record of a topic and adds the competitor and domain tallies.
func AggregateTopic(records []models.KPIMetrics, brand models.BrandContext, opts AggregateOptions) models.TopicSnapshot {
	owned := 0
	for _, r := range records {
		for _, c := range r.Citations {
			if IsOwnedCitation(c, brand.Website) {
				owned++
			}
		}
	}
	return models.TopicSnapshot{
		Snapshot:           Aggregate(records, opts),
		CompetitorMentions: TallyCompetitors(records),
		CitedDomains:       TallyCitedDomains(records),
		OwnedCitations:     owned,
	}
}
