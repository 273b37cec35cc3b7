package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/globalise-huygens/document-feature-extraction/internal/config"
	"github.com/globalise-huygens/document-feature-extraction/internal/detect"
	"github.com/globalise-huygens/document-feature-extraction/internal/llm"
	"github.com/globalise-huygens/document-feature-extraction/internal/llm/anthropic"
	"github.com/globalise-huygens/document-feature-extraction/internal/llm/gemini"
	"github.com/globalise-huygens/document-feature-extraction/internal/llm/openai"
)

var (
	detectImages         string
	detectRegions        string
	detectOutput         string
	detectExampleScans   string
	detectExampleRegions string
	detectExampleCoords  string
	detectNumExamples    int
	detectProvider       string
	detectModel          string
	detectMaxRetries     int
	detectTypes          []string
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Propose layout coordinates with a few-shot vision model",
	Long: `Detect sends each target scan together with its region JSON (types and
transcribed text, no coordinates) to a vision model, preceded by aligned
few-shot examples, and writes the proposed coordinate JSON per page.

The three example directories must share basenames: a page scan, its
region JSON, and the ground-truth coordinate JSON.

Example:
  docfex detect --images ./scans --regions ./regions --output ./proposals \
    --example-scans ./examples/scans --example-regions ./examples/regions \
    --example-coords ./examples/coords --provider openai`,
	RunE: runDetect,
}

func init() {
	detectCmd.Flags().StringVar(&detectImages, "images", "", "directory of target scans (required)")
	detectCmd.Flags().StringVar(&detectRegions, "regions", "", "directory of target region JSON (required)")
	detectCmd.Flags().StringVarP(&detectOutput, "output", "o", "", "output directory for coordinate JSON (required)")
	detectCmd.Flags().StringVar(&detectExampleScans, "example-scans", "", "directory of example scans (required)")
	detectCmd.Flags().StringVar(&detectExampleRegions, "example-regions", "", "directory of example region JSON (required)")
	detectCmd.Flags().StringVar(&detectExampleCoords, "example-coords", "", "directory of example coordinate JSON (required)")
	detectCmd.Flags().IntVar(&detectNumExamples, "num-examples", 0, "few-shot examples per request")
	detectCmd.Flags().StringVar(&detectProvider, "provider", "", "vision-model provider (openai, anthropic, gemini)")
	detectCmd.Flags().StringVar(&detectModel, "model", "", "model name override")
	detectCmd.Flags().IntVar(&detectMaxRetries, "max-retries", 0, "attempts per page on transient API errors")
	detectCmd.Flags().StringSliceVar(&detectTypes, "types", nil, "region type whitelist for proposals")
	_ = detectCmd.MarkFlagRequired("images")
	_ = detectCmd.MarkFlagRequired("regions")
	_ = detectCmd.MarkFlagRequired("output")
	_ = detectCmd.MarkFlagRequired("example-scans")
	_ = detectCmd.MarkFlagRequired("example-regions")
	_ = detectCmd.MarkFlagRequired("example-coords")

	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	name := detectProvider
	if name == "" {
		name = cfg.DefaultProvider
	}
	provider, err := buildProvider(name, cfg)
	if err != nil {
		return err
	}
	if err := provider.Validate(); err != nil {
		return fmt.Errorf("provider %s is not usable: %w", name, err)
	}

	opts := detectOptions(cfg)
	log := newLogger()
	runner := detect.NewRunner(provider, opts, log)

	summary, err := runner.Run(cmd.Context(), detect.Dirs{
		Images:         detectImages,
		Regions:        detectRegions,
		Output:         detectOutput,
		ExampleScans:   detectExampleScans,
		ExampleRegions: detectExampleRegions,
		ExampleCoords:  detectExampleCoords,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "done: %s\n", summary)
	return nil
}

// buildProvider constructs the named provider from its configuration
// section. Credentials come from the config file, with ${ENV_VAR}
// values expanded at load time.
func buildProvider(name string, cfg *config.Config) (llm.Provider, error) {
	if llm.DefaultRegistry.Has(name) {
		return llm.Get(name)
	}

	pcfg, _ := cfg.GetProvider(name)
	apiKey, model := "", ""
	if pcfg != nil {
		apiKey, model = pcfg.APIKey, pcfg.Model
	}

	var (
		provider llm.Provider
		err      error
	)
	switch name {
	case openai.ProviderName:
		provider, err = openai.New(openai.Config{APIKey: apiKey, Model: model})
	case anthropic.ProviderName:
		provider, err = anthropic.New(anthropic.Config{APIKey: apiKey, Model: model})
	case gemini.ProviderName:
		provider, err = gemini.New(gemini.Config{APIKey: apiKey, Model: model})
	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: openai, anthropic, gemini)", name)
	}
	if err != nil {
		return nil, err
	}
	if err := llm.Register(provider); err != nil {
		return nil, err
	}
	return provider, nil
}

func detectOptions(cfg *config.Config) detect.Options {
	opts := detect.DefaultOptions()
	if cfg.Detect.NumExamples > 0 {
		opts.NumExamples = cfg.Detect.NumExamples
	}
	if cfg.Detect.MaxRetries > 0 {
		opts.MaxRetries = cfg.Detect.MaxRetries
	}
	opts.Temperature = cfg.Detect.Temperature
	opts.AllowedTypes = cfg.Detect.Types

	if detectNumExamples > 0 {
		opts.NumExamples = detectNumExamples
	}
	if detectMaxRetries > 0 {
		opts.MaxRetries = detectMaxRetries
	}
	if len(detectTypes) > 0 {
		opts.AllowedTypes = detectTypes
	}
	opts.Model = detectModel
	if pcfg, ok := cfg.GetProvider(detectProviderName(cfg)); ok {
		if opts.Model == "" {
			opts.Model = pcfg.Model
		}
		opts.MaxTokens = pcfg.MaxTokens
	}
	return opts
}

func detectProviderName(cfg *config.Config) string {
	if detectProvider != "" {
		return detectProvider
	}
	return cfg.DefaultProvider
}
