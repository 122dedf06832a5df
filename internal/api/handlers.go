package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AI-Template-SDK/aeo-insights/internal/analysis"
	"github.com/AI-Template-SDK/aeo-insights/internal/models"
	"github.com/AI-Template-SDK/aeo-insights/services"
)

const dateLayout = "2006-01-02"

// AnalyzeRequest is one LLM answer to score. With Store set the result is persisted
// under PromptID.
type AnalyzeRequest struct {
	PromptID     string              `json:"prompt_id"`
	TopicID      string              `json:"topic_id"`
	LLMProvider  string              `json:"llm_provider" binding:"required"`
	ResponseText string              `json:"response_text"`
	SourceURLs   []string            `json:"source_urls"`
	Brand        models.BrandContext `json:"brand"`
	MeasuredAt   *time.Time          `json:"measured_at"`
	Static       bool                `json:"static"`
	Store        bool                `json:"store"`
}

func (r AnalyzeRequest) toService() (services.AnalysisRequest, error) {
	provider, err := models.ParseProvider(r.LLMProvider)
	if err != nil {
		return services.AnalysisRequest{}, err
	}
	req := services.AnalysisRequest{
		PromptID: r.PromptID,
		TopicID:  r.TopicID,
		Response: models.RawResponse{Text: r.ResponseText, Provider: provider, SourceURLs: r.SourceURLs},
		Brand:    r.Brand,
		Static:   r.Static,
	}
	if r.MeasuredAt != nil {
		req.MeasuredAt = r.MeasuredAt.UTC()
	}
	return req, nil
}

func (srv *Server) analyze(c *gin.Context) {
	var body AnalyzeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	req, err := body.toService()
	if err != nil {
		badRequest(c, err)
		return
	}

	if body.Store {
		if body.PromptID == "" {
			badRequest(c, fmt.Errorf("prompt_id is required to store a result"))
			return
		}
		rec, err := srv.kpi.AnalyzeAndStore(c.Request.Context(), req)
		if err != nil {
			srv.logger.Error().Err(err).Str("prompt_id", body.PromptID).Msg("[Analyze] failed to store analysis")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, rec)
		return
	}

	metrics, err := srv.kpi.Analyze(c.Request.Context(), req)
	if err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, metrics)
}

type batchRequest struct {
	Responses []AnalyzeRequest `json:"responses" binding:"required"`
}

func (srv *Server) analyzeBatch(c *gin.Context) {
	var body batchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	if len(body.Responses) > srv.maxBatch {
		badRequest(c, fmt.Errorf("batch of %d responses exceeds the limit of %d", len(body.Responses), srv.maxBatch))
		return
	}

	reqs := make([]services.AnalysisRequest, len(body.Responses))
	for i, r := range body.Responses {
		req, err := r.toService()
		if err != nil {
			badRequest(c, fmt.Errorf("response %d: %w", i, err))
			return
		}
		reqs[i] = req
	}

	results, err := srv.batch.AnalyzeBatch(c.Request.Context(), reqs)
	if err != nil {
		srv.logger.Error().Err(err).Int("responses", len(reqs)).Msg("[AnalyzeBatch] batch failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// AggregateRequest reduces caller-supplied records. With a brand name the topic
// breakdown (competitors, cited domains, owned citations) is included.
type AggregateRequest struct {
	Records          []models.KPIMetrics  `json:"records"`
	Brand            *models.BrandContext `json:"brand"`
	LegacyProminence *bool                `json:"legacy_prominence"`
}

func (srv *Server) aggregateRecords(c *gin.Context) {
	var body AggregateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}

	opts := srv.aggregate
	if body.LegacyProminence != nil {
		opts = analysis.AggregateOptions{LegacyProminence: *body.LegacyProminence}
	}

	if body.Brand != nil && body.Brand.Name != "" {
		c.JSON(http.StatusOK, analysis.AggregateTopic(body.Records, *body.Brand, opts))
		return
	}
	c.JSON(http.StatusOK, analysis.Aggregate(body.Records, opts))
}

func (srv *Server) getSnapshot(c *gin.Context) {
	provider, err := models.ParseProvider(c.Query("llm_provider"))
	if err != nil {
		badRequest(c, err)
		return
	}
	day, err := parseDay(c.Query("date"))
	if err != nil {
		badRequest(c, err)
		return
	}

	key := models.SnapshotKey{PromptID: c.Param("prompt_id"), Provider: provider, Date: day}
	snap, err := srv.kpi.GetPromptSnapshot(c.Request.Context(), key)
	if err != nil {
		srv.logger.Error().Err(err).Str("prompt_id", key.PromptID).Msg("[GetSnapshot] lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if snap == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "snapshot not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "snapshot": snap})
}

type recomputeRequest struct {
	Date  string `json:"date"`
	Force bool   `json:"force"`
}

// recomputeSnapshots rebuilds one day synchronously. Scheduled recomputes go through
// the workflow instead.
func (srv *Server) recomputeSnapshots(c *gin.Context) {
	var body recomputeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	day, err := parseDay(body.Date)
	if err != nil {
		badRequest(c, err)
		return
	}

	summary, err := srv.kpi.RecomputeDay(c.Request.Context(), day, body.Force)
	if err != nil {
		srv.logger.Error().Err(err).Time("day", day).Msg("[RecomputeSnapshots] recompute had failures")
		c.JSON(http.StatusInternalServerError, gin.H{"summary": summary, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// parseDay reads YYYY-MM-DD and defaults to today.
func parseDay(s string) (time.Time, error) {
	if s == "" {
		return models.Day(time.Now()), nil
	}
	day, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return day, nil
}
