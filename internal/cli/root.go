// Package cli implements the ipcguard command line: configuration
// validation, one-shot authorization checks, and profile inspection. The
// commands exist for operators and CI; the production surface is the
// in-process gateway API.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/meridianapp/ipcguard/internal/audit"
	"github.com/meridianapp/ipcguard/internal/config"
	"github.com/meridianapp/ipcguard/internal/gateway"
	"github.com/meridianapp/ipcguard/internal/logging"
	"github.com/meridianapp/ipcguard/internal/ratelimit"
	"github.com/meridianapp/ipcguard/internal/session"
)

var (
	flagConfig   string
	flagLogDir   string
	flagLogLevel string
	flagQuiet    bool
)

var rootCmd = &cobra.Command{
	Use:   "ipcguard",
	Short: "Authorization gateway for privileged IPC commands",
	Long: "ipcguard validates privileged IPC commands before they execute:\n" +
		"input sanitization, command whitelisting with a permission hierarchy,\n" +
		"per-session rate limiting, and a tamper-evident audit trail.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Path to TOML configuration (optional)")
	rootCmd.PersistentFlags().StringVar(&flagLogDir, "log-dir", "", "Directory for per-run JSON logs (optional)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress terminal log output")
}

// Execute runs the CLI and returns its exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// setupLogging builds the process logger from the persistent flags.
func setupLogging() (*slog.Logger, func(), error) {
	level, err := logging.ParseLevel(flagLogLevel)
	if err != nil {
		return nil, nil, err
	}
	logger, _, cleanup, err := logging.Setup(logging.Options{
		Level:  level,
		LogDir: flagLogDir,
		Quiet:  flagQuiet,
	})
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)
	return logger, cleanup, nil
}

// loadConfig reads the configured file, or returns an empty config whose
// sections all fall back to built-in defaults.
func loadConfig() (*config.Config, error) {
	if flagConfig == "" {
		return &config.Config{}, nil
	}
	return config.Load(flagConfig)
}

// buildGateway assembles a gateway from a loaded configuration. The session
// registry is returned separately so commands can drive MFA state directly.
func buildGateway(cfg *config.Config, logger *slog.Logger) (*gateway.Gateway, *session.Registry, func() error, error) {
	sanitizer, err := cfg.BuildSanitizer()
	if err != nil {
		return nil, nil, nil, err
	}
	registry, err := cfg.BuildRegistry()
	if err != nil {
		return nil, nil, nil, err
	}
	rlDefaults, rlOverrides, err := cfg.RateLimits()
	if err != nil {
		return nil, nil, nil, err
	}
	auditCfg, err := cfg.AuditSettings()
	if err != nil {
		return nil, nil, nil, err
	}

	var writer audit.Writer = audit.DiscardWriter{}
	if cfg.Audit.Path != "" {
		fw, err := audit.NewFileWriter(cfg.Audit.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		writer = fw
	}
	auditor := audit.NewLogger(writer, auditCfg, audit.WithSlog(logger))
	sessions := session.NewRegistry(cfg.SessionSettings())

	gw, err := gateway.New(
		gateway.WithSanitizer(sanitizer),
		gateway.WithValidator(registry),
		gateway.WithRateLimiter(ratelimit.New(rlDefaults, rlOverrides)),
		gateway.WithSessionStore(sessions),
		gateway.WithAuditSink(auditor),
		gateway.WithLogger(logger),
	)
	if err != nil {
		return nil, nil, nil, err
	}
	return gw, sessions, auditor.Close, nil
}
