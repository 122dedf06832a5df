// Package gpt lists brands with OpenAI chat completions, directly or through Azure OpenAI.
package gpt

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"

	"github.com/AI-Template-SDK/aeo-insights/internal/config"
	"github.com/AI-Template-SDK/aeo-insights/internal/providers/common"
	"github.com/AI-Template-SDK/aeo-insights/services"
)

const DefaultModel = "gpt-4.1-mini"

var brandListSchema = services.GenerateSchema[common.BrandList]()

type Lister struct {
	client     openai.Client
	model      string
	name       string
	accounting common.Accounting
}

// New builds an OpenAI lister. Extra request options are appended after the key, so a
// test can point the client at a local server.
func New(cfg *config.Config, accounting common.Accounting, opts ...option.RequestOption) *Lister {
	model := cfg.Detector.Model
	if model == "" {
		model = DefaultModel
	}
	base := []option.RequestOption{option.WithAPIKey(cfg.OpenAIAPIKey)}
	accounting.Logger.Info().Str("model", model).Msg("[NewOpenAILister] using OpenAI")

	return &Lister{
		client:     openai.NewClient(append(base, opts...)...),
		model:      model,
		name:       "openai",
		accounting: accounting,
	}
}

// NewAzure builds a lister against an Azure OpenAI deployment. The configured model is the deployment name.
func NewAzure(cfg *config.Config, accounting common.Accounting, opts ...option.RequestOption) *Lister {
	model := cfg.Detector.Model
	if model == "" {
		model = DefaultModel
	}
	base := []option.RequestOption{
		azure.WithEndpoint(cfg.AzureOpenAIEndpoint, cfg.AzureAPIVersion),
		azure.WithAPIKey(cfg.AzureOpenAIKey),
	}
	accounting.Logger.Info().
		Str("endpoint", cfg.AzureOpenAIEndpoint).
		Str("deployment", model).
		Msg("[NewOpenAILister] using Azure OpenAI")

	return &Lister{
		client:     openai.NewClient(append(base, opts...)...),
		model:      model,
		name:       "azure",
		accounting: accounting,
	}
}

func (l *Lister) Name() string { return l.name }

// ListBrands asks the model for the brands in responseText and returns its raw JSON reply.
func (l *Lister) ListBrands(ctx context.Context, responseText string) (string, error) {
	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "brand_list",
		Description: openai.String("Brands mentioned in the text"),
		Schema:      brandListSchema,
		Strict:      openai.Bool(true),
	}

	response, err := l.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(common.BrandListInstructions),
			openai.UserMessage(common.BrandListPrompt(responseText)),
		},
		Model: openai.ChatModel(l.model),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: schemaParam},
		},
		Temperature: openai.Float(0),
		MaxTokens:   openai.Int(1000),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response choices returned")
	}

	l.accounting.Record(l.name, l.model, response.Usage.PromptTokens, response.Usage.CompletionTokens)
	return response.Choices[0].Message.Content, nil
}
