package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/AI-Template-SDK/aeo-insights/internal/models"
)

const insertPromptSnapshotQuery = `
	INSERT INTO prompt_kpi_snapshots (
		prompt_id, llm_provider, snapshot_date, total_measurements, mention_count, citation_count,
		mention_rate, citation_rate, avg_sentiment, avg_prominence, avg_alignment,
		avg_brand_position, avg_position, visibility_score
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	ON CONFLICT (prompt_id, llm_provider, snapshot_date) `

const overwritePromptSnapshot = `DO UPDATE SET
		total_measurements = EXCLUDED.total_measurements,
		mention_count = EXCLUDED.mention_count,
		citation_count = EXCLUDED.citation_count,
		mention_rate = EXCLUDED.mention_rate,
		citation_rate = EXCLUDED.citation_rate,
		avg_sentiment = EXCLUDED.avg_sentiment,
		avg_prominence = EXCLUDED.avg_prominence,
		avg_alignment = EXCLUDED.avg_alignment,
		avg_brand_position = EXCLUDED.avg_brand_position,
		avg_position = EXCLUDED.avg_position,
		visibility_score = EXCLUDED.visibility_score,
		updated_at = now()`

const insertTopicSnapshotQuery = `
	INSERT INTO topic_kpi_snapshots (
		topic_id, snapshot_date, total_measurements, mention_count, citation_count,
		mention_rate, citation_rate, avg_sentiment, avg_prominence, avg_alignment,
		avg_brand_position, avg_position, visibility_score, owned_citations,
		competitor_mentions, cited_domains
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	ON CONFLICT (topic_id, snapshot_date) `

const overwriteTopicSnapshot = `DO UPDATE SET
		total_measurements = EXCLUDED.total_measurements,
		mention_count = EXCLUDED.mention_count,
		citation_count = EXCLUDED.citation_count,
		mention_rate = EXCLUDED.mention_rate,
		citation_rate = EXCLUDED.citation_rate,
		avg_sentiment = EXCLUDED.avg_sentiment,
		avg_prominence = EXCLUDED.avg_prominence,
		avg_alignment = EXCLUDED.avg_alignment,
		avg_brand_position = EXCLUDED.avg_brand_position,
		avg_position = EXCLUDED.avg_position,
		visibility_score = EXCLUDED.visibility_score,
		owned_citations = EXCLUDED.owned_citations,
		competitor_mentions = EXCLUDED.competitor_mentions,
		cited_domains = EXCLUDED.cited_domains,
		updated_at = now()`

const doNothing = `DO NOTHING`

// SavePromptSnapshot stores a per-prompt snapshot. An existing row for the key is
// kept unless force is set. The returned bool reports whether a row was written.
func (s *Store) SavePromptSnapshot(ctx context.Context, key models.SnapshotKey, snap models.Snapshot, force bool) (bool, error) {
	conflict := doNothing
	if force {
		conflict = overwritePromptSnapshot
	}
	res, err := s.db.ExecContext(ctx, insertPromptSnapshotQuery+conflict,
		key.PromptID, string(key.Provider), key.Day(),
		snap.TotalMeasurements, snap.MentionCount, snap.CitationCount,
		snap.MentionRate, snap.CitationRate, snap.AvgSentiment, snap.AvgProminence, snap.AvgAlignment,
		snap.AvgBrandPosition, snap.AvgPosition, VisibilityPercent(snap.VisibilityScore),
	)
	if err != nil {
		return false, fmt.Errorf("failed to save snapshot for prompt %s: %w", key.PromptID, err)
	}
	return written(res)
}

// SaveTopicSnapshot stores a per-topic snapshot with the same skip/force semantics as SavePromptSnapshot.
func (s *Store) SaveTopicSnapshot(ctx context.Context, key models.TopicKey, snap models.TopicSnapshot, force bool) (bool, error) {
	competitors, err := json.Marshal(snap.CompetitorMentions)
	if err != nil {
		return false, fmt.Errorf("failed to marshal competitor mentions: %w", err)
	}
	domains, err := json.Marshal(snap.CitedDomains)
	if err != nil {
		return false, fmt.Errorf("failed to marshal cited domains: %w", err)
	}

	conflict := doNothing
	if force {
		conflict = overwriteTopicSnapshot
	}
	res, err := s.db.ExecContext(ctx, insertTopicSnapshotQuery+conflict,
		key.TopicID, key.Day(),
		snap.TotalMeasurements, snap.MentionCount, snap.CitationCount,
		snap.MentionRate, snap.CitationRate, snap.AvgSentiment, snap.AvgProminence, snap.AvgAlignment,
		snap.AvgBrandPosition, snap.AvgPosition, VisibilityPercent(snap.VisibilityScore), snap.OwnedCitations,
		string(competitors), string(domains),
	)
	if err != nil {
		return false, fmt.Errorf("failed to save snapshot for topic %s: %w", key.TopicID, err)
	}
	return written(res)
}

type promptSnapshotRow struct {
	TotalMeasurements int             `db:"total_measurements"`
	MentionCount      int             `db:"mention_count"`
	CitationCount     int             `db:"citation_count"`
	MentionRate       float64         `db:"mention_rate"`
	CitationRate      float64         `db:"citation_rate"`
	AvgSentiment      float64         `db:"avg_sentiment"`
	AvgProminence     float64         `db:"avg_prominence"`
	AvgAlignment      float64         `db:"avg_alignment"`
	AvgBrandPosition  sql.NullFloat64 `db:"avg_brand_position"`
	AvgPosition       float64         `db:"avg_position"`
	VisibilityScore   int             `db:"visibility_score"`
}

// GetPromptSnapshot loads a stored per-prompt snapshot. It returns nil, nil when none exists.
func (s *Store) GetPromptSnapshot(ctx context.Context, key models.SnapshotKey) (*models.Snapshot, error) {
	var row promptSnapshotRow
	err := s.db.GetContext(ctx, &row, `SELECT total_measurements, mention_count, citation_count,
		mention_rate, citation_rate, avg_sentiment, avg_prominence, avg_alignment,
		avg_brand_position, avg_position, visibility_score
		FROM prompt_kpi_snapshots WHERE prompt_id = $1 AND llm_provider = $2 AND snapshot_date = $3`,
		key.PromptID, string(key.Provider), key.Day())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot for prompt %s: %w", key.PromptID, err)
	}

	snap := &models.Snapshot{
		TotalMeasurements: row.TotalMeasurements,
		MentionCount:      row.MentionCount,
		CitationCount:     row.CitationCount,
		MentionRate:       row.MentionRate,
		CitationRate:      row.CitationRate,
		AvgSentiment:      row.AvgSentiment,
		AvgProminence:     row.AvgProminence,
		AvgAlignment:      row.AvgAlignment,
		AvgPosition:       row.AvgPosition,
		VisibilityScore:   float64(row.VisibilityScore) / 100,
	}
	if row.AvgBrandPosition.Valid {
		v := row.AvgBrandPosition.Float64
		snap.AvgBrandPosition = &v
	}
	return snap, nil
}

func written(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}
