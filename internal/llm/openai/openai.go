// Package openai provides a layout-proposal provider backed by the
// OpenAI chat completions API.
package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/globalise-huygens/document-feature-extraction/internal/llm"
)

const (
	// DefaultModel is the default vision-capable chat model.
	DefaultModel = "gpt-4o"
	// ProviderName is the provider identifier.
	ProviderName = "openai"
)

// Config holds the configuration for the OpenAI provider.
type Config struct {
	APIKey string
	Model  string
}

// Provider implements llm.Provider using the OpenAI chat API.
type Provider struct {
	apiKey string
	model  string
	client *goopenai.Client
}

// New creates a new OpenAI provider.
func New(cfg Config) (*Provider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("OpenAI API key not configured (set OPENAI_API_KEY or provide via config)")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Provider{
		apiKey: apiKey,
		model:  model,
		client: goopenai.NewClient(apiKey),
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return ProviderName
}

// Validate checks if the provider is properly configured.
func (p *Provider) Validate() error {
	if p.apiKey == "" {
		return errors.New("OpenAI API key is empty")
	}
	return nil
}

// Propose sends the few-shot request and returns the raw model output.
func (p *Provider) Propose(ctx context.Context, req llm.Request) (string, error) {
	messages := make([]goopenai.ChatCompletionMessage, 0, len(req.Turns)+1)
	if req.System != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, turn := range req.Turns {
		messages = append(messages, toMessage(turn))
	}

	model := req.Model
	if model == "" {
		model = p.model
	}

	resp, err := p.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	})
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("OpenAI returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func toMessage(turn llm.Turn) goopenai.ChatCompletionMessage {
	role := goopenai.ChatMessageRoleUser
	if turn.Role == llm.RoleModel {
		role = goopenai.ChatMessageRoleAssistant
	}

	if len(turn.ImageData) == 0 {
		return goopenai.ChatCompletionMessage{Role: role, Content: turn.Text}
	}

	uri := fmt.Sprintf("data:%s;base64,%s", turn.ImageMIME, base64.StdEncoding.EncodeToString(turn.ImageData))
	return goopenai.ChatCompletionMessage{
		Role: role,
		MultiContent: []goopenai.ChatMessagePart{
			{Type: goopenai.ChatMessagePartTypeText, Text: turn.Text},
			{
				Type: goopenai.ChatMessagePartTypeImageURL,
				ImageURL: &goopenai.ChatMessageImageURL{
					URL:    uri,
					Detail: goopenai.ImageURLDetailHigh,
				},
			},
		},
	}
}

// classify marks rate limits and server errors as transient so the
// retry loop backs off instead of giving up.
func classify(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500 {
			return llm.Transient(fmt.Errorf("OpenAI API error: %w", err))
		}
		return fmt.Errorf("OpenAI API error: %w", err)
	}
	return llm.Transient(fmt.Errorf("OpenAI request failed: %w", err))
}
