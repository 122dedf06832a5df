// workflows/events.go
package workflows

import (
	"fmt"
	"strings"
	"time"

	"github.com/AI-Template-SDK/aeo-insights/internal/models"
	"github.com/AI-Template-SDK/aeo-insights/services"
)

const (
	EventResponseReceived  = "aeo/response.received"
	EventSnapshotRecompute = "aeo/snapshot.recompute"

	dateLayout = "2006-01-02"
)

// ResponseReceivedEvent carries one LLM answer for a tracked prompt.
type ResponseReceivedEvent struct {
	PromptID     string              `json:"prompt_id"`
	TopicID      string              `json:"topic_id,omitempty"`
	LLMProvider  string              `json:"llm_provider"`
	ResponseText string              `json:"response_text"`
	SourceURLs   []string            `json:"source_urls,omitempty"`
	Brand        models.BrandContext `json:"brand"`
	MeasuredAt   *time.Time          `json:"measured_at,omitempty"`
	Static       bool                `json:"static,omitempty"`
}

// Request validates the event and converts it to an analysis request.
func (e ResponseReceivedEvent) Request() (services.AnalysisRequest, error) {
	if strings.TrimSpace(e.PromptID) == "" {
		return services.AnalysisRequest{}, fmt.Errorf("prompt_id is required")
	}
	provider, err := models.ParseProvider(e.LLMProvider)
	if err != nil {
		return services.AnalysisRequest{}, err
	}

	req := services.AnalysisRequest{
		PromptID: e.PromptID,
		TopicID:  e.TopicID,
		Response: models.RawResponse{Text: e.ResponseText, Provider: provider, SourceURLs: e.SourceURLs},
		Brand:    e.Brand,
		Static:   e.Static,
	}
	if e.MeasuredAt != nil {
		req.MeasuredAt = e.MeasuredAt.UTC()
	}
	return req, nil
}

// SnapshotRecomputeEvent asks for snapshots to be recomputed. With a prompt id only that
// prompt's snapshot is rebuilt, with a topic id only that topic's, otherwise the whole day.
type SnapshotRecomputeEvent struct {
	PromptID    string `json:"prompt_id,omitempty"`
	LLMProvider string `json:"llm_provider,omitempty"`
	TopicID     string `json:"topic_id,omitempty"`
	Date        string `json:"date,omitempty"` // YYYY-MM-DD, defaults to yesterday
	Force       bool   `json:"force"`
}

// Day resolves the event date against now.
func (e SnapshotRecomputeEvent) Day(now time.Time) (time.Time, error) {
	if e.Date == "" {
		return models.Day(now).AddDate(0, 0, -1), nil
	}
	day, err := time.Parse(dateLayout, e.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD: %w", e.Date, err)
	}
	return day, nil
}
