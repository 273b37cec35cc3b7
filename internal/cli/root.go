// Package cli implements the docfex command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	rootVerbose    bool
	rootQuiet      bool
	rootConfigPath string
)

var rootCmd = &cobra.Command{
	Use:   "docfex",
	Short: "Document feature extraction for historical manuscript scans",
	Long: `docfex turns PAGE-XML layout annotations of historical manuscripts
into simplified region JSON, renders colour-coded overlay images for
visual inspection, and proposes layout coordinates for new scans with
few-shot vision models.

Examples:
  docfex extract --input ./pagexml --output ./regions
  docfex overlay --images ./scans --xml ./pagexml --json ./regions --output ./overlays
  docfex detect --images ./scans --regions ./regions --output ./proposals --provider openai`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the docfex version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "docfex %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&rootQuiet, "quiet", "q", false, "only log errors")
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config", "", "config file (default ~/.docfex/config.yaml)")

	rootCmd.AddCommand(versionCmd)
}

// SetVersion sets the version string shown by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// newLogger builds the run logger honouring the --verbose/--quiet flags.
func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	switch {
	case rootQuiet:
		log.SetLevel(logrus.ErrorLevel)
	case rootVerbose:
		log.SetLevel(logrus.DebugLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}
	return log
}
