package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file without applying it",
	Long: "Loads the configuration, compiles every command profile, alias,\n" +
		"permission rule, and pattern, and reports the first problem found.\n" +
		"Exits non-zero when the file would be rejected at startup.",
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	if flagConfig == "" {
		return fmt.Errorf("--config is required for validate")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	registry, err := cfg.BuildRegistry()
	if err != nil {
		return err
	}
	profiles := registry.Profiles()

	_, overrides, err := cfg.RateLimits()
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(),
		"configuration ok: %d command profiles, %d aliases, %d rate limit overrides\n",
		len(profiles), len(cfg.Aliases), len(overrides))
	return nil
}
