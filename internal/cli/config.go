package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/globalise-huygens/document-feature-extraction/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage docfex configuration",
	Long: `Manage the docfex configuration.

Configuration file location: ~/.docfex/config.yaml

Subcommands:
  show    display the current configuration
  init    create a default configuration file
  set     change a configuration value
  path    print the configuration file path`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the current configuration",
	Long: `Display the configuration as it will be used, without expanding
API keys. When no configuration file exists the defaults are shown.`,
	RunE: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default configuration file",
	Long: `Create a default configuration file at ~/.docfex/config.yaml.

Fails if a configuration file already exists; use --force to overwrite.`,
	RunE: runConfigInit,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a configuration value",
	Long: `Change a configuration value.

Supported keys:
  default_provider     default vision-model provider (openai, anthropic, gemini)
  extract.tolerance    polygon simplification tolerance in pixels
  extract.rounding     coordinate rounding (float, int)
  detect.num_examples  few-shot examples per request

Examples:
  docfex config set default_provider gemini
  docfex config set extract.tolerance 150`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Run: func(cmd *cobra.Command, args []string) {
		loader, err := newConfigLoader()
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
			return
		}
		fmt.Println(loader.ConfigPath())
	},
}

var configForce bool

func init() {
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "overwrite an existing configuration file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)

	rootCmd.AddCommand(configCmd)
}

// newConfigLoader builds the loader for the --config flag, falling
// back to the default ~/.docfex location when the flag is unset.
func newConfigLoader() (*config.Loader, error) {
	if rootConfigPath != "" {
		return config.NewLoaderWithPath(rootConfigPath), nil
	}
	return config.NewLoader()
}

// loadConfig reads the user configuration with environment variables
// expanded, falling back to defaults when no file exists.
func loadConfig() (*config.Config, error) {
	loader, err := newConfigLoader()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize config loader: %w", err)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	loader, err := newConfigLoader()
	if err != nil {
		return fmt.Errorf("failed to initialize config loader: %w", err)
	}

	cfg, err := loader.LoadRaw()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if loader.Exists() {
		fmt.Fprintf(cmd.OutOrStdout(), "config file: %s\n\n", loader.ConfigPath())
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "config file: (using defaults)\n\n")
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))

	fmt.Fprintln(cmd.OutOrStdout(), "environment:")
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	for _, p := range providerTable {
		status := "(not set)"
		if v := maskAPIKey(os.Getenv(p.EnvKey)); v != "" {
			status = v
		}
		fmt.Fprintf(w, "  %s\t%s\n", p.EnvKey, status)
	}
	w.Flush()

	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	loader, err := newConfigLoader()
	if err != nil {
		return fmt.Errorf("failed to initialize config loader: %w", err)
	}

	if loader.Exists() && !configForce {
		return fmt.Errorf("config file already exists: %s (use --force to overwrite)", loader.ConfigPath())
	}

	if err := loader.Save(config.DefaultConfig()); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "config file created: %s\n", loader.ConfigPath())
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	loader, err := newConfigLoader()
	if err != nil {
		return fmt.Errorf("failed to initialize config loader: %w", err)
	}

	cfg, err := loader.LoadRaw()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	switch key {
	case "default_provider":
		valid := []string{"openai", "anthropic", "gemini"}
		if !contains(valid, value) {
			return fmt.Errorf("invalid provider: %s (supported: %s)", value, strings.Join(valid, ", "))
		}
		cfg.DefaultProvider = value

	case "extract.tolerance":
		tolerance, err := strconv.ParseFloat(value, 64)
		if err != nil || tolerance < 0 {
			return fmt.Errorf("invalid tolerance: %s", value)
		}
		cfg.Extract.Tolerance = tolerance

	case "extract.rounding":
		valid := []string{"float", "int"}
		if !contains(valid, value) {
			return fmt.Errorf("invalid rounding policy: %s (supported: %s)", value, strings.Join(valid, ", "))
		}
		cfg.Extract.Rounding = value

	case "detect.num_examples":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("invalid example count: %s", value)
		}
		cfg.Detect.NumExamples = n

	default:
		return fmt.Errorf("unknown config key: %s (supported: default_provider, extract.tolerance, extract.rounding, detect.num_examples)", key)
	}

	if err := loader.Save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "config updated: %s = %s\n", key, value)
	return nil
}

func maskAPIKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
