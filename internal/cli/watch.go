package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/meridianapp/ipcguard/internal/config"
)

func init() {
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a configuration file and revalidate on every change",
	Long: "Validates the configuration, then blocks watching the file.\n" +
		"Each saved change is reloaded and revalidated; rejected changes are\n" +
		"reported and the previous state stays in effect. Stop with Ctrl-C.",
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	if flagConfig == "" {
		return fmt.Errorf("--config is required for watch")
	}
	logger, cleanup, err := setupLogging()
	if err != nil {
		return err
	}
	defer cleanup()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	registry, err := cfg.BuildRegistry()
	if err != nil {
		return err
	}
	logger.Info("configuration valid, watching for changes",
		"path", flagConfig,
		"commands", len(registry.Profiles()))

	watcher, err := config.NewWatcher(flagConfig, func(next *config.Config) error {
		if err := next.ApplyToRegistry(registry); err != nil {
			return err
		}
		logger.Info("profiles swapped",
			"commands", len(registry.Profiles()))
		return nil
	}, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return watcher.Run(ctx)
}
