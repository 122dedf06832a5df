package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/AI-Template-SDK/aeo-insights/internal/models"
)

const insertResultQuery = `
	INSERT INTO analysis_results (
		id, prompt_id, topic_id, llm_provider, measured_at, brand_name, brand_website, competitors,
		mention_present, our_brand_mentioned, our_brand_position, citations_count,
		sentiment, prominence, alignment, relevancy_score, detection_strategy,
		response_text, brand_analysis
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

const insertCitationQuery = `
	INSERT INTO analysis_citations (
		id, result_id, url, domain, title, favicon_url, position, first_occurrence
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

const resultColumns = `id, llm_provider, mention_present, our_brand_mentioned, our_brand_position,
	citations_count, sentiment, prominence, alignment, relevancy_score, detection_strategy,
	response_text, brand_analysis`

type resultRow struct {
	ID                string        `db:"id"`
	Provider          string        `db:"llm_provider"`
	MentionPresent    bool          `db:"mention_present"`
	OurBrandMentioned bool          `db:"our_brand_mentioned"`
	OurBrandPosition  sql.NullInt64 `db:"our_brand_position"`
	CitationsCount    int           `db:"citations_count"`
	Sentiment         float64       `db:"sentiment"`
	Prominence        float64       `db:"prominence"`
	Alignment         float64       `db:"alignment"`
	RelevancyScore    int           `db:"relevancy_score"`
	DetectionStrategy string        `db:"detection_strategy"`
	ResponseText      string        `db:"response_text"`
	BrandAnalysis     []byte        `db:"brand_analysis"`
}

type citationRow struct {
	ResultID        string         `db:"result_id"`
	URL             string         `db:"url"`
	Domain          string         `db:"domain"`
	Title           sql.NullString `db:"title"`
	FaviconURL      sql.NullString `db:"favicon_url"`
	Position        int            `db:"position"`
	FirstOccurrence int            `db:"first_occurrence"`
}

// SaveResult writes an analyzed response and its citations in one transaction.
// An empty rec.ID is filled with a new UUID.
func (s *Store) SaveResult(ctx context.Context, rec *models.AnalysisRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	m := rec.Metrics

	brandJSON, err := json.Marshal(m.BrandAnalysis)
	if err != nil {
		return fmt.Errorf("failed to marshal brand analysis: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	competitors := rec.Brand.Competitors
	if competitors == nil {
		competitors = []string{}
	}
	topicID := sql.NullString{String: rec.TopicID, Valid: rec.TopicID != ""}

	if _, err := tx.ExecContext(ctx, insertResultQuery,
		rec.ID, rec.PromptID, topicID, string(rec.Provider), rec.MeasuredAt.UTC(),
		rec.Brand.Name, rec.Brand.Website, pq.Array(competitors),
		m.MentionPresent, m.OurBrandMentioned, m.OurBrandPosition, m.CitationsCount,
		m.Sentiment, m.Prominence, m.Alignment, m.RelevancyScore, string(m.DetectionStrategy),
		m.ResponseText, string(brandJSON),
	); err != nil {
		return fmt.Errorf("failed to insert analysis result: %w", err)
	}

	for _, c := range m.Citations {
		if _, err := tx.ExecContext(ctx, insertCitationQuery,
			uuid.NewString(), rec.ID, c.URL, c.Domain, c.Title, c.FaviconURL, c.Position, c.FirstOccurrence,
		); err != nil {
			return fmt.Errorf("failed to insert citation %s: %w", c.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit analysis result: %w", err)
	}
	return nil
}

// ListPromptResults returns the metrics stored for one prompt and provider on the key's day.
func (s *Store) ListPromptResults(ctx context.Context, key models.SnapshotKey) ([]models.KPIMetrics, error) {
	from, to := dayRange(key.Day())
	var rows []resultRow
	query := `SELECT ` + resultColumns + ` FROM analysis_results
		WHERE prompt_id = $1 AND llm_provider = $2 AND measured_at >= $3 AND measured_at < $4
		ORDER BY measured_at`
	if err := s.db.SelectContext(ctx, &rows, query, key.PromptID, string(key.Provider), from, to); err != nil {
		return nil, fmt.Errorf("failed to list results for prompt %s: %w", key.PromptID, err)
	}
	return s.hydrate(ctx, rows)
}

// ListTopicResults returns the metrics stored for every prompt of a topic on the key's day.
func (s *Store) ListTopicResults(ctx context.Context, key models.TopicKey) ([]models.KPIMetrics, error) {
	from, to := dayRange(key.Day())
	var rows []resultRow
	query := `SELECT ` + resultColumns + ` FROM analysis_results
		WHERE topic_id = $1 AND measured_at >= $2 AND measured_at < $3
		ORDER BY measured_at`
	if err := s.db.SelectContext(ctx, &rows, query, key.TopicID, from, to); err != nil {
		return nil, fmt.Errorf("failed to list results for topic %s: %w", key.TopicID, err)
	}
	return s.hydrate(ctx, rows)
}

func (s *Store) hydrate(ctx context.Context, rows []resultRow) ([]models.KPIMetrics, error) {
	if len(rows) == 0 {
		return []models.KPIMetrics{}, nil
	}

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	query, args, err := sqlx.In(`SELECT result_id, url, domain, title, favicon_url, position, first_occurrence
		FROM analysis_citations WHERE result_id IN (?) ORDER BY result_id, position`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build citation query: %w", err)
	}
	var cites []citationRow
	if err := s.db.SelectContext(ctx, &cites, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to load citations: %w", err)
	}

	byResult := make(map[string][]models.Citation, len(rows))
	for _, c := range cites {
		byResult[c.ResultID] = append(byResult[c.ResultID], models.Citation{
			URL:             c.URL,
			Domain:          c.Domain,
			Title:           nullStringPtr(c.Title),
			FaviconURL:      nullStringPtr(c.FaviconURL),
			Position:        c.Position,
			FirstOccurrence: c.FirstOccurrence,
		})
	}

	out := make([]models.KPIMetrics, 0, len(rows))
	for _, r := range rows {
		brand := models.EmptyBrandAnalysis()
		if len(r.BrandAnalysis) > 0 {
			if err := json.Unmarshal(r.BrandAnalysis, &brand); err != nil {
				s.logger.Warn().Err(err).Str("result_id", r.ID).Msg("[Store] unreadable brand analysis, using empty")
				brand = models.EmptyBrandAnalysis()
			}
		}
		citations := byResult[r.ID]
		if citations == nil {
			citations = []models.Citation{}
		}

		var position *int
		if r.OurBrandPosition.Valid {
			p := int(r.OurBrandPosition.Int64)
			position = &p
		}

		out = append(out, models.KPIMetrics{
			MentionPresent:    r.MentionPresent,
			CitationsCount:    r.CitationsCount,
			Sentiment:         r.Sentiment,
			Prominence:        r.Prominence,
			Alignment:         r.Alignment,
			RawAnswer:         r.ResponseText,
			ResponseText:      r.ResponseText,
			BrandAnalysis:     brand,
			Citations:         citations,
			OurBrandMentioned: r.OurBrandMentioned,
			OurBrandPosition:  position,
			RelevancyScore:    r.RelevancyScore,
			Provider:          models.Provider(r.Provider),
			DetectionStrategy: models.DetectionStrategy(r.DetectionStrategy),
		})
	}
	return out, nil
}

// ListPromptKeys returns every prompt/provider pair with results on the given day.
func (s *Store) ListPromptKeys(ctx context.Context, day time.Time) ([]models.SnapshotKey, error) {
	from, to := dayRange(models.Day(day))
	var rows []struct {
		PromptID string `db:"prompt_id"`
		Provider string `db:"llm_provider"`
	}
	query := `SELECT DISTINCT prompt_id, llm_provider FROM analysis_results
		WHERE measured_at >= $1 AND measured_at < $2 ORDER BY prompt_id, llm_provider`
	if err := s.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, fmt.Errorf("failed to list prompt keys: %w", err)
	}
	keys := make([]models.SnapshotKey, len(rows))
	for i, r := range rows {
		keys[i] = models.SnapshotKey{PromptID: r.PromptID, Provider: models.Provider(r.Provider), Date: from}
	}
	return keys, nil
}

// ListTopicKeys returns every topic with results on the given day.
func (s *Store) ListTopicKeys(ctx context.Context, day time.Time) ([]models.TopicKey, error) {
	from, to := dayRange(models.Day(day))
	var ids []string
	query := `SELECT DISTINCT topic_id FROM analysis_results
		WHERE topic_id IS NOT NULL AND measured_at >= $1 AND measured_at < $2 ORDER BY topic_id`
	if err := s.db.SelectContext(ctx, &ids, query, from, to); err != nil {
		return nil, fmt.Errorf("failed to list topic keys: %w", err)
	}
	keys := make([]models.TopicKey, len(ids))
	for i, id := range ids {
		keys[i] = models.TopicKey{TopicID: id, Date: from}
	}
	return keys, nil
}

// GetTopicBrand returns the brand context of the latest result stored for a topic on the key's day.
func (s *Store) GetTopicBrand(ctx context.Context, key models.TopicKey) (models.BrandContext, error) {
	from, to := dayRange(key.Day())
	var row struct {
		Name        string         `db:"brand_name"`
		Website     string         `db:"brand_website"`
		Competitors pq.StringArray `db:"competitors"`
	}
	err := s.db.GetContext(ctx, &row, `SELECT brand_name, brand_website, competitors FROM analysis_results
		WHERE topic_id = $1 AND measured_at >= $2 AND measured_at < $3
		ORDER BY measured_at DESC LIMIT 1`, key.TopicID, from, to)
	if err != nil {
		return models.BrandContext{}, fmt.Errorf("failed to load brand for topic %s: %w", key.TopicID, err)
	}
	return models.BrandContext{Name: row.Name, Website: row.Website, Competitors: []string(row.Competitors)}, nil
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
