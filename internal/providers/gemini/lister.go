package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/AI-Template-SDK/aeo-insights/internal/config"
	"github.com/AI-Template-SDK/aeo-insights/internal/providers/common"
)

const DefaultModel = "gemini-2.0-flash"

// Lister asks Gemini for the brands in a response, requesting a JSON reply.
type Lister struct {
	client     *genai.Client
	model      string
	accounting common.Accounting
}

// New creates the Gemini client. baseURL overrides the API endpoint when non-empty.
func New(ctx context.Context, cfg *config.Config, accounting common.Accounting, baseURL string) (*Lister, error) {
	model := cfg.Detector.Model
	if model == "" {
		model = DefaultModel
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	accounting.Logger.Info().Str("model", model).Msg("[NewGeminiLister] using Gemini")

	return &Lister{client: client, model: model, accounting: accounting}, nil
}

func (l *Lister) Name() string { return "gemini" }

func (l *Lister) ListBrands(ctx context.Context, responseText string) (string, error) {
	content := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: common.BrandListPrompt(responseText)}},
		},
	}
	generationConfig := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: common.BrandListInstructions}}},
		ResponseMIMEType:  "application/json",
		Temperature:       float32Ptr(0),
	}

	result, err := l.client.Models.GenerateContent(ctx, l.model, content, generationConfig)
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	var parts []string
	if len(result.Candidates) > 0 && result.Candidates[0].Content != nil {
		for _, part := range result.Candidates[0].Content.Parts {
			parts = append(parts, part.Text)
		}
	}

	if result.UsageMetadata != nil {
		l.accounting.Record(l.Name(), l.model,
			int64(result.UsageMetadata.PromptTokenCount), int64(result.UsageMetadata.CandidatesTokenCount))
	}
	return strings.Join(parts, ""), nil
}

func float32Ptr(f float32) *float32 {
	return &f
}
