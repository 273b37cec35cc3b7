package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/globalise-huygens/document-feature-extraction/internal/llm/anthropic"
	"github.com/globalise-huygens/document-feature-extraction/internal/llm/gemini"
	"github.com/globalise-huygens/document-feature-extraction/internal/llm/openai"
)

type providerInfo struct {
	Name         string
	DefaultModel string
	EnvKey       string
	Description  string
}

var providerTable = []providerInfo{
	{
		Name:         openai.ProviderName,
		DefaultModel: openai.DefaultModel,
		EnvKey:       "OPENAI_API_KEY",
		Description:  "OpenAI GPT vision API",
	},
	{
		Name:         anthropic.ProviderName,
		DefaultModel: anthropic.DefaultModel,
		EnvKey:       "ANTHROPIC_API_KEY",
		Description:  "Anthropic Claude API",
	},
	{
		Name:         gemini.ProviderName,
		DefaultModel: gemini.DefaultModel,
		EnvKey:       "GEMINI_API_KEY",
		Description:  "Google Gemini API",
	},
}

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List available vision-model providers",
	Long: `List the vision-model providers available to the detect command.

A provider is usable once its API key is set in the named environment
variable or in the configuration file.

Examples:
  docfex detect ... --provider openai
  docfex detect ... --provider gemini --model gemini-2.5-pro`,
	Run: runProviders,
}

func init() {
	rootCmd.AddCommand(providersCmd)
}

func runProviders(cmd *cobra.Command, args []string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "PROVIDER\tDEFAULT MODEL\tENV KEY\tSTATUS\tDESCRIPTION")
	fmt.Fprintln(w, "--------\t-------------\t-------\t------\t-----------")

	for _, p := range providerTable {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			p.Name, p.DefaultModel, p.EnvKey, checkProviderStatus(p), p.Description)
	}
}

func checkProviderStatus(p providerInfo) string {
	if os.Getenv(p.EnvKey) != "" {
		return "configured"
	}
	return "not configured"
}
