package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/globalise-huygens/document-feature-extraction/internal/config"
	"github.com/globalise-huygens/document-feature-extraction/internal/extract"
	"github.com/globalise-huygens/document-feature-extraction/internal/geometry"
)

var (
	extractInput        string
	extractOutput       string
	extractTolerance    float64
	extractKinds        []string
	extractRounding     string
	extractTypeFallback string
	extractMarginalia   bool
	extractWorkers      int
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract simplified region JSON from PAGE-XML annotations",
	Long: `Extract reads every PAGE-XML file in the input directory and writes
one JSON file per document: region type, transcribed text, and a
Douglas-Peucker simplified polygon per region.

Examples:
  docfex extract --input ./pagexml --output ./regions
  docfex extract --input ./pagexml --output ./regions --tolerance 100 --rounding int`,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&extractInput, "input", "i", "", "directory of PAGE-XML files")
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "output directory for region JSON")
	extractCmd.Flags().Float64Var(&extractTolerance, "tolerance", 0, "polygon simplification tolerance in pixels")
	extractCmd.Flags().StringSliceVar(&extractKinds, "kinds", nil, "PAGE-XML region kinds to extract (default: all known kinds)")
	extractCmd.Flags().StringVar(&extractRounding, "rounding", "", "coordinate rounding: float or int")
	extractCmd.Flags().StringVar(&extractTypeFallback, "type-fallback", "", "type for regions without one: kind or unknown")
	extractCmd.Flags().BoolVar(&extractMarginalia, "marginalia-last", true, "move marginalia regions to the end of each file")
	extractCmd.Flags().IntVar(&extractWorkers, "workers", 0, "concurrent documents (0 uses the configured default)")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Flags win over the configured directories.
	input, output := extractInput, extractOutput
	if input == "" {
		input = cfg.Extract.InputDir
	}
	if output == "" {
		output = cfg.Extract.OutputDir
	}
	if input == "" || output == "" {
		return fmt.Errorf("input and output directories are required (flags or config)")
	}

	opts := extractOptions(cfg, cmd.Flags())
	if opts.Rounding != geometry.PolicyFloat && opts.Rounding != geometry.PolicyInt {
		return fmt.Errorf("invalid rounding policy: %s (supported: float, int)", opts.Rounding)
	}
	if opts.TypeFallback != extract.FallbackKind && opts.TypeFallback != extract.FallbackUnknown {
		return fmt.Errorf("invalid type fallback: %s (supported: kind, unknown)", opts.TypeFallback)
	}

	log := newLogger()
	runner := &extract.Runner{
		Extractor: extract.New(opts, log),
		Log:       log,
		Workers:   workers(cfg, cmd.Flags()),
	}

	summary, err := runner.Run(cmd.Context(), input, output)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "done: %s\n", summary)
	return nil
}

// extractOptions merges the configuration file with explicitly set flags;
// a flag given on the command line always wins.
func extractOptions(cfg *config.Config, flags *pflag.FlagSet) extract.Options {
	opts := extract.DefaultOptions()
	if cfg.Extract.Tolerance > 0 {
		opts.Tolerance = cfg.Extract.Tolerance
	}
	if len(cfg.Extract.Kinds) > 0 {
		opts.Kinds = cfg.Extract.Kinds
	}
	if cfg.Extract.Rounding != "" {
		opts.Rounding = geometry.RoundingPolicy(cfg.Extract.Rounding)
	}
	if cfg.Extract.TypeFallback != "" {
		opts.TypeFallback = extract.TypeFallback(cfg.Extract.TypeFallback)
	}
	opts.MarginaliaLast = cfg.Extract.MarginaliaLast

	if flags.Changed("tolerance") {
		opts.Tolerance = extractTolerance
	}
	if flags.Changed("kinds") {
		opts.Kinds = extractKinds
	}
	if flags.Changed("rounding") {
		opts.Rounding = geometry.RoundingPolicy(extractRounding)
	}
	if flags.Changed("type-fallback") {
		opts.TypeFallback = extract.TypeFallback(extractTypeFallback)
	}
	if flags.Changed("marginalia-last") {
		opts.MarginaliaLast = extractMarginalia
	}
	return opts
}

func workers(cfg *config.Config, flags *pflag.FlagSet) int {
	if flags.Changed("workers") {
		return extractWorkers
	}
	return cfg.Extract.Workers
}
