package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var profilesFormat string

func init() {
	rootCmd.AddCommand(profilesCmd)
	profilesCmd.Flags().StringVarP(&profilesFormat, "format", "f", "text", "Output format (text|json)")
}

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List the effective command profiles",
	Long: "Shows every command profile the gateway would enforce with the\n" +
		"current configuration, including classification, required\n" +
		"permissions, and risk score.",
	RunE: runProfiles,
}

func runProfiles(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	registry, err := cfg.BuildRegistry()
	if err != nil {
		return err
	}

	profiles := registry.Profiles()
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Name < profiles[j].Name })

	if profilesFormat == "json" {
		out, err := json.MarshalIndent(profiles, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	}

	w := cmd.OutOrStdout()
	for _, p := range profiles {
		mfa := ""
		if p.RequiresMFA {
			mfa = " mfa"
		}
		fmt.Fprintf(w, "%-20s %-14s risk=%-3d%s", p.Name, p.Classification, p.RiskScore, mfa)
		if len(p.RequiredPermissions) > 0 {
			fmt.Fprintf(w, " requires=%s", strings.Join(p.RequiredPermissions, ","))
		}
		fmt.Fprintln(w)
	}
	return nil
}
