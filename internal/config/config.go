// Package config manages application configuration.
package config

// Config represents the application configuration.
type Config struct {
	DefaultProvider string              `yaml:"default_provider"`
	Providers       map[string]Provider `yaml:"providers"`
	Extract         ExtractConfig       `yaml:"extract"`
	Overlay         OverlayConfig       `yaml:"overlay"`
	Detect          DetectConfig        `yaml:"detect"`
}

// Provider represents a vision-model provider configuration.
type Provider struct {
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

// ExtractConfig contains region-extraction options.
type ExtractConfig struct {
	InputDir       string   `yaml:"input_dir,omitempty"`
	OutputDir      string   `yaml:"output_dir,omitempty"`
	Tolerance      float64  `yaml:"tolerance"`
	Kinds          []string `yaml:"kinds,omitempty"`
	TypeFallback   string   `yaml:"type_fallback"`
	Rounding       string   `yaml:"rounding"`
	MarginaliaLast bool     `yaml:"marginalia_last"`
	Workers        int      `yaml:"workers"`
}

// OverlayConfig contains overlay-rendering options.
type OverlayConfig struct {
	Colors    map[string]string `yaml:"colors,omitempty"`
	LabelSize float64           `yaml:"label_size"`
}

// DetectConfig contains few-shot layout-detection options.
type DetectConfig struct {
	NumExamples int      `yaml:"num_examples"`
	MaxRetries  int      `yaml:"max_retries"`
	Temperature float64  `yaml:"temperature"`
	Types       []string `yaml:"types,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DefaultProvider: "openai",
		Providers: map[string]Provider{
			"openai": {
				APIKey:    "${OPENAI_API_KEY}",
				Model:     "gpt-4o",
				MaxTokens: 4096,
			},
			"anthropic": {
				APIKey:    "${ANTHROPIC_API_KEY}",
				Model:     "claude-sonnet-4-20250514",
				MaxTokens: 4096,
			},
			"gemini": {
				APIKey:    "${GEMINI_API_KEY}",
				Model:     "gemini-2.0-flash",
				MaxTokens: 4096,
			},
		},
		Extract: ExtractConfig{
			Tolerance:      200,
			TypeFallback:   "kind",
			Rounding:       "float",
			MarginaliaLast: true,
			Workers:        4,
		},
		Overlay: OverlayConfig{
			LabelSize: 100,
		},
		Detect: DetectConfig{
			NumExamples: 1,
			MaxRetries:  3,
			Temperature: 1.0,
			Types: []string{
				"paragraph",
				"marginalia",
				"catch-word",
				"page-number",
				"signature-mark",
			},
		},
	}
}

// GetProvider returns the provider configuration by name.
func (c *Config) GetProvider(name string) (*Provider, bool) {
	p, ok := c.Providers[name]
	if !ok {
		return nil, false
	}
	return &p, true
}

// GetDefaultProvider returns the default provider configuration.
func (c *Config) GetDefaultProvider() (*Provider, bool) {
	return c.GetProvider(c.DefaultProvider)
}
