package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meridianapp/ipcguard/internal/gateway"
	"github.com/meridianapp/ipcguard/internal/session"
)

var (
	checkArgs        string
	checkPermissions string
	checkMFA         bool
	checkFormat      string
)

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVar(&checkArgs, "args", "", "Command arguments as JSON (optional)")
	checkCmd.Flags().StringVar(&checkPermissions, "permissions", "", "Comma-separated permission set for the simulated session")
	checkCmd.Flags().BoolVar(&checkMFA, "mfa", false, "Treat the simulated session as MFA-verified")
	checkCmd.Flags().StringVarP(&checkFormat, "format", "f", "text", "Output format (text|json)")
}

var checkCmd = &cobra.Command{
	Use:   "check <command>",
	Short: "Run one authorization decision and print the result",
	Long: "Builds the full pipeline from the configuration, issues a synthetic\n" +
		"session with the given permissions, and validates a single command.\n" +
		"Exits non-zero unless the decision is allowed.",
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger, cleanup, err := setupLogging()
	if err != nil {
		return err
	}
	defer cleanup()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	gw, sessions, closeAudit, err := buildGateway(cfg, logger)
	if err != nil {
		return err
	}
	defer closeAudit()

	var parsedArgs any
	if checkArgs != "" {
		if err := json.Unmarshal([]byte(checkArgs), &parsedArgs); err != nil {
			return fmt.Errorf("failed to parse --args: %w", err)
		}
	}

	var perms []string
	for _, p := range strings.Split(checkPermissions, ",") {
		if p = strings.TrimSpace(p); p != "" {
			perms = append(perms, p)
		}
	}

	sessionID := gw.CreateSession("cli-check", session.CreateOptions{Permissions: perms})
	if checkMFA {
		// The simulated session skips actual factor verification.
		if err := sessions.EnableMFA(sessionID); err != nil {
			return err
		}
		if err := sessions.VerifyMFA(sessionID); err != nil {
			return err
		}
	}

	result := gw.ValidateCommand(args[0], parsedArgs, sessionID)

	switch checkFormat {
	case "json":
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
	default:
		printResult(cmd, result)
	}

	if !result.Allowed() && result.Decision != gateway.DecisionConditionallyAllowed {
		return fmt.Errorf("decision: %s", result.Decision)
	}
	return nil
}

func printResult(cmd *cobra.Command, result gateway.ValidationResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "decision:  %s\n", result.Decision)
	if result.Command != "" {
		fmt.Fprintf(out, "command:   %s\n", result.Command)
	}
	fmt.Fprintf(out, "risk:      %d\n", result.RiskScore)
	if result.Violation != "" {
		fmt.Fprintf(out, "violation: %s\n", result.Violation)
	}
	if result.Reason != "" {
		fmt.Fprintf(out, "reason:    %s\n", result.Reason)
	}
	if len(result.RequiredPermissions) > 0 {
		fmt.Fprintf(out, "requires:  %s\n", strings.Join(result.RequiredPermissions, ", "))
	}
	if len(result.Conditions) > 0 {
		fmt.Fprintf(out, "conditions: %s\n", strings.Join(result.Conditions, ", "))
	}
}
