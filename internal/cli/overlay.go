package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/globalise-huygens/document-feature-extraction/internal/overlay"
)

var (
	overlayImages    string
	overlayXML       string
	overlayJSON      string
	overlayOutput    string
	overlayLabelSize float64
)

var overlayCmd = &cobra.Command{
	Use:   "overlay",
	Short: "Render side-by-side overlay sheets for visual inspection",
	Long: `Overlay renders one comparison sheet per scan: the PAGE-XML regions
drawn on the left half and the extracted JSON regions on the right,
each region filled semi-transparently in its type colour and labeled.

Example:
  docfex overlay --images ./scans --xml ./pagexml --json ./regions --output ./overlays`,
	RunE: runOverlay,
}

func init() {
	overlayCmd.Flags().StringVar(&overlayImages, "images", "", "directory of scan images (required)")
	overlayCmd.Flags().StringVar(&overlayXML, "xml", "", "directory of PAGE-XML files (required)")
	overlayCmd.Flags().StringVar(&overlayJSON, "json", "", "directory of region JSON files (required)")
	overlayCmd.Flags().StringVarP(&overlayOutput, "output", "o", "", "output directory for comparison sheets (required)")
	overlayCmd.Flags().Float64Var(&overlayLabelSize, "label-size", 0, "label text size in points")
	_ = overlayCmd.MarkFlagRequired("images")
	_ = overlayCmd.MarkFlagRequired("xml")
	_ = overlayCmd.MarkFlagRequired("json")
	_ = overlayCmd.MarkFlagRequired("output")

	rootCmd.AddCommand(overlayCmd)
}

func runOverlay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	colors := overlay.DefaultColors()
	if len(cfg.Overlay.Colors) > 0 {
		colors, err = overlay.ParseColorTable(cfg.Overlay.Colors, 0)
		if err != nil {
			return fmt.Errorf("invalid overlay colors in config: %w", err)
		}
	}

	labelSize := overlayLabelSize
	if !cmd.Flags().Changed("label-size") && cfg.Overlay.LabelSize > 0 {
		labelSize = cfg.Overlay.LabelSize
	}

	renderer, err := overlay.NewRenderer(colors, labelSize)
	if err != nil {
		return err
	}

	processor := &overlay.Processor{
		Renderer:  renderer,
		Log:       newLogger(),
		ImageDir:  overlayImages,
		XMLDir:    overlayXML,
		JSONDir:   overlayJSON,
		OutputDir: overlayOutput,
	}

	summary, err := processor.Run()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "done: %d sheets, %d skipped\n", summary.Processed, summary.Skipped)
	return nil
}
