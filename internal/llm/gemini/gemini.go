// Package gemini provides a layout-proposal provider backed by the
// Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"os"

	"google.golang.org/genai"

	"github.com/globalise-huygens/document-feature-extraction/internal/llm"
)

const (
	// DefaultModel is the default vision-capable Gemini model.
	DefaultModel = "gemini-2.0-flash"
	// ProviderName is the provider identifier.
	ProviderName = "gemini"
)

// Config holds the configuration for the Gemini provider.
type Config struct {
	APIKey string
	Model  string
}

// Provider implements llm.Provider using the Gemini API.
type Provider struct {
	apiKey string
	model  string
}

// New creates a new Gemini provider.
func New(cfg Config) (*Provider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("Gemini API key not configured (set GEMINI_API_KEY or provide via config)")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Provider{apiKey: apiKey, model: model}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return ProviderName
}

// Validate checks if the provider is properly configured.
func (p *Provider) Validate() error {
	if p.apiKey == "" {
		return errors.New("Gemini API key is empty")
	}
	return nil
}

// Propose sends the few-shot request and returns the raw model output.
func (p *Provider) Propose(ctx context.Context, req llm.Request) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create Gemini client: %w", err)
	}

	contents := make([]*genai.Content, 0, len(req.Turns))
	for _, turn := range req.Turns {
		contents = append(contents, toContent(turn))
	}

	model := req.Model
	if model == "" {
		model = p.model
	}

	config := &genai.GenerateContentConfig{}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	config.Temperature = genai.Ptr(float32(req.Temperature))

	resp, err := client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return "", classify(err)
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("Gemini returned no text")
	}
	return text, nil
}

func toContent(turn llm.Turn) *genai.Content {
	role := genai.Role(genai.RoleUser)
	if turn.Role == llm.RoleModel {
		role = genai.RoleModel
	}

	parts := []*genai.Part{genai.NewPartFromText(turn.Text)}
	if len(turn.ImageData) > 0 {
		parts = append(parts, genai.NewPartFromBytes(turn.ImageData, turn.ImageMIME))
	}
	return genai.NewContentFromParts(parts, role)
}

// classify marks rate limits and server errors as transient so the
// retry loop backs off instead of giving up.
func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 || apiErr.Code >= 500 {
			return llm.Transient(fmt.Errorf("Gemini API error: %w", err))
		}
		return fmt.Errorf("Gemini API error: %w", err)
	}
	return llm.Transient(fmt.Errorf("Gemini request failed: %w", err))
}
