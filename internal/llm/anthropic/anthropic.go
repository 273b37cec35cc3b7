// Package anthropic provides a layout-proposal provider backed by the
// Anthropic messages API.
package anthropic

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/globalise-huygens/document-feature-extraction/internal/llm"
)

const (
	// DefaultModel is the default vision-capable Claude model.
	DefaultModel = "claude-sonnet-4-20250514"
	// DefaultMaxTokens bounds the response when the request leaves it unset.
	DefaultMaxTokens = 4096
	// ProviderName is the provider identifier.
	ProviderName = "anthropic"
)

// Config holds the configuration for the Anthropic provider.
type Config struct {
	APIKey string
	Model  string
}

// Provider implements llm.Provider using the Anthropic messages API.
type Provider struct {
	apiKey string
	model  string
	client sdk.Client
}

// New creates a new Anthropic provider.
func New(cfg Config) (*Provider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("Anthropic API key not configured (set ANTHROPIC_API_KEY or provide via config)")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Provider{
		apiKey: apiKey,
		model:  model,
		client: sdk.NewClient(option.WithAPIKey(apiKey)),
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return ProviderName
}

// Validate checks if the provider is properly configured.
func (p *Provider) Validate() error {
	if p.apiKey == "" {
		return errors.New("Anthropic API key is empty")
	}
	return nil
}

// Propose sends the few-shot request and returns the raw model output.
func (p *Provider) Propose(ctx context.Context, req llm.Request) (string, error) {
	messages := make([]sdk.MessageParam, 0, len(req.Turns))
	for _, turn := range req.Turns {
		messages = append(messages, toMessage(turn))
	}

	model := req.Model
	if model == "" {
		model = p.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature > 0 {
		params.Temperature = sdk.Float(req.Temperature)
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", classify(err)
	}

	var out strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", errors.New("Anthropic returned no text")
	}
	return out.String(), nil
}

func toMessage(turn llm.Turn) sdk.MessageParam {
	blocks := []sdk.ContentBlockParamUnion{sdk.NewTextBlock(turn.Text)}
	if len(turn.ImageData) > 0 {
		encoded := base64.StdEncoding.EncodeToString(turn.ImageData)
		blocks = append(blocks, sdk.NewImageBlockBase64(turn.ImageMIME, encoded))
	}

	if turn.Role == llm.RoleModel {
		return sdk.NewAssistantMessage(blocks...)
	}
	return sdk.NewUserMessage(blocks...)
}

// classify marks rate limits and server errors as transient so the
// retry loop backs off instead of giving up.
func classify(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 429 || apiErr.StatusCode >= 500 {
			return llm.Transient(fmt.Errorf("Anthropic API error: %w", err))
		}
		return fmt.Errorf("Anthropic API error: %w", err)
	}
	return llm.Transient(fmt.Errorf("Anthropic request failed: %w", err))
}
