package claude

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/AI-Template-SDK/aeo-insights/internal/config"
	"github.com/AI-Template-SDK/aeo-insights/internal/providers/common"
)

const DefaultModel = "claude-3-5-haiku-latest"

// Lister asks Claude for the brands in a response.
type Lister struct {
	client     anthropic.Client
	model      string
	accounting common.Accounting
}

func New(cfg *config.Config, accounting common.Accounting, opts ...option.RequestOption) *Lister {
	model := cfg.Detector.Model
	if model == "" {
		model = DefaultModel
	}
	accounting.Logger.Info().Str("model", model).Msg("[NewAnthropicLister] using Anthropic")

	return &Lister{
		client:     anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(cfg.AnthropicAPIKey)}, opts...)...),
		model:      model,
		accounting: accounting,
	}
}

func (l *Lister) Name() string { return "anthropic" }

func (l *Lister) ListBrands(ctx context.Context, responseText string) (string, error) {
	messages := []anthropic.MessageParam{{
		Content: []anthropic.ContentBlockParamUnion{{
			OfText: &anthropic.TextBlockParam{Text: common.BrandListPrompt(responseText)},
		}},
		Role: anthropic.MessageParamRoleUser,
	}}

	response, err := l.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(l.model),
		MaxTokens:   1000,
		System:      []anthropic.TextBlockParam{{Text: common.BrandListInstructions}},
		Messages:    messages,
		Temperature: anthropic.Float(0),
	})
	if err != nil {
		return "", fmt.Errorf("message request failed: %w", err)
	}

	l.accounting.Record(l.Name(), l.model, response.Usage.InputTokens, response.Usage.OutputTokens)
	return extractText(*response), nil
}

func extractText(response anthropic.Message) string {
	var parts []string
	for _, block := range response.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			parts = append(parts, variant.Text)
		}
	}
	return strings.Join(parts, "")
}
