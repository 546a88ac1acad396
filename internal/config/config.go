// Package config loads the gateway's TOML configuration: sanitizer limits,
// rate limits with per-endpoint overrides, session lifecycle thresholds,
// audit settings, the command profile table, aliases, and the permission
// hierarchy. Every section is optional; omitted sections fall back to the
// built-in defaults. Validation happens at load time so a bad file can
// never reach the request path.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/meridianapp/ipcguard/internal/audit"
	"github.com/meridianapp/ipcguard/internal/ratelimit"
	"github.com/meridianapp/ipcguard/internal/sanitize"
	"github.com/meridianapp/ipcguard/internal/session"
	"github.com/meridianapp/ipcguard/internal/whitelist"
)

// Error definitions
var (
	// ErrNoCommands is returned when a config declares a command table with
	// no usable entries.
	ErrNoCommands = errors.New("command table is empty")
)

// SanitizerSection bounds the input sanitizer.
type SanitizerSection struct {
	MaxStringLength   int      `toml:"max_string_length"`
	MaxDepth          int      `toml:"max_depth"`
	MaxProperties     int      `toml:"max_properties"`
	MaxArrayLength    int      `toml:"max_array_length"`
	AllowedURLSchemes []string `toml:"allowed_url_schemes"`
	AllowedPathBases  []string `toml:"allowed_path_bases"`
	BlockedExtensions []string `toml:"blocked_extensions"`
}

// EndpointLimit overrides the global limits for one endpoint. Zero fields
// inherit the global values.
type EndpointLimit struct {
	RequestsPerSecond int     `toml:"requests_per_second"`
	RequestsPerMinute int     `toml:"requests_per_minute"`
	BurstLimit        int     `toml:"burst_limit"`
	Strategy          string  `toml:"strategy"`
	PenaltyMultiplier float64 `toml:"penalty_multiplier"`
	CooldownSeconds   int     `toml:"cooldown_seconds"`
}

// LimitsSection holds the global rate limits plus per-endpoint overrides.
type LimitsSection struct {
	EndpointLimit
	Endpoint map[string]EndpointLimit `toml:"endpoint"`
}

// SessionSection holds the session registry thresholds, in seconds.
type SessionSection struct {
	TTLSeconds             int `toml:"ttl_seconds"`
	IdleTimeoutSeconds     int `toml:"idle_timeout_seconds"`
	SuspendThreshold       int `toml:"suspend_threshold"`
	SuspendDurationSeconds int `toml:"suspend_duration_seconds"`
}

// AuditSection configures the audit trail.
type AuditSection struct {
	// Path is the JSONL audit trail location. Empty disables persistence.
	Path          string `toml:"path"`
	BufferSize    int    `toml:"buffer_size"`
	AlertSeverity string `toml:"alert_severity"`
	SyncSeverity  string `toml:"sync_severity"`
}

// CommandSection declares one command profile.
type CommandSection struct {
	Name                string   `toml:"name"`
	Classification      string   `toml:"classification"`
	RequiredPermissions []string `toml:"required_permissions"`
	AllowedArgPatterns  []string `toml:"allowed_arg_patterns"`
	BlockedArgPatterns  []string `toml:"blocked_arg_patterns"`
	RiskScore           int      `toml:"risk_score"`
	MaxPerMinute        int      `toml:"max_per_minute"`
	RequiresMFA         bool     `toml:"requires_mfa"`
	Conditions          []string `toml:"conditions"`
	Description         string   `toml:"description"`
}

// Config is the full configuration file.
type Config struct {
	Version               int                 `toml:"version"`
	Sanitizer             SanitizerSection    `toml:"sanitizer"`
	Limits                LimitsSection       `toml:"limits"`
	Session               SessionSection      `toml:"session"`
	Audit                 AuditSection        `toml:"audit"`
	Permissions           map[string][]string `toml:"permissions"`
	Aliases               map[string]string   `toml:"aliases"`
	GlobalBlockedPatterns []string            `toml:"global_blocked_patterns"`
	Commands              []CommandSection    `toml:"command"`
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate builds every derived component once so that malformed patterns,
// classifications, severities, and strategies are rejected before the
// configuration is applied.
func (c *Config) Validate() error {
	if _, err := c.BuildSanitizer(); err != nil {
		return fmt.Errorf("sanitizer section: %w", err)
	}
	if _, err := c.BuildRegistry(); err != nil {
		return fmt.Errorf("command section: %w", err)
	}
	if _, err := ratelimit.ParseStrategy(c.Limits.Strategy); err != nil {
		return fmt.Errorf("limits section: %w", err)
	}
	for name, ep := range c.Limits.Endpoint {
		if _, err := ratelimit.ParseStrategy(ep.Strategy); err != nil {
			return fmt.Errorf("limits.endpoint.%s: %w", name, err)
		}
	}
	if _, err := audit.ParseSeverity(c.Audit.AlertSeverity); err != nil {
		return fmt.Errorf("audit section: %w", err)
	}
	if _, err := audit.ParseSeverity(c.Audit.SyncSeverity); err != nil {
		return fmt.Errorf("audit section: %w", err)
	}
	return nil
}

// BuildSanitizer converts the sanitizer section into a ready Sanitizer.
// Zero fields inherit the package defaults.
func (c *Config) BuildSanitizer() (*sanitize.Sanitizer, error) {
	sc := sanitize.DefaultConfig()
	s := c.Sanitizer
	if s.MaxStringLength > 0 {
		sc.MaxStringLength = s.MaxStringLength
	}
	if s.MaxDepth > 0 {
		sc.MaxDepth = s.MaxDepth
	}
	if s.MaxProperties > 0 {
		sc.MaxProperties = s.MaxProperties
	}
	if s.MaxArrayLength > 0 {
		sc.MaxArrayLength = s.MaxArrayLength
	}
	if len(s.AllowedURLSchemes) > 0 {
		sc.AllowedURLSchemes = s.AllowedURLSchemes
	}
	if len(s.AllowedPathBases) > 0 {
		sc.AllowedPathBases = s.AllowedPathBases
	}
	if len(s.BlockedExtensions) > 0 {
		sc.BlockedExtensions = s.BlockedExtensions
	}
	return sanitize.New(sc)
}

// BuildRegistry converts the command, alias, permission, and global pattern
// sections into a compiled whitelist registry. A file with no command table
// gets the built-in profile set.
func (c *Config) BuildRegistry() (*whitelist.Registry, error) {
	profiles, aliases, hierarchy, patterns, err := c.registryParts()
	if err != nil {
		return nil, err
	}
	return whitelist.NewRegistry(profiles, aliases, hierarchy, patterns)
}

// ApplyToRegistry hot-swaps an existing registry's contents.
func (c *Config) ApplyToRegistry(reg *whitelist.Registry) error {
	profiles, aliases, hierarchy, patterns, err := c.registryParts()
	if err != nil {
		return err
	}
	return reg.Replace(profiles, aliases, hierarchy, patterns)
}

func (c *Config) registryParts() ([]whitelist.Profile, map[string]string, map[string][]string, []string, error) {
	profiles := whitelist.DefaultProfiles()
	if len(c.Commands) > 0 {
		profiles = make([]whitelist.Profile, 0, len(c.Commands))
		for _, cs := range c.Commands {
			class, err := whitelist.ParseClassification(cs.Classification)
			if err != nil {
				return nil, nil, nil, nil, fmt.Errorf("command %q: %w", cs.Name, err)
			}
			profiles = append(profiles, whitelist.Profile{
				Name:                cs.Name,
				Classification:      class,
				RequiredPermissions: cs.RequiredPermissions,
				AllowedArgPatterns:  cs.AllowedArgPatterns,
				BlockedArgPatterns:  cs.BlockedArgPatterns,
				RiskScore:           cs.RiskScore,
				MaxPerMinute:        cs.MaxPerMinute,
				RequiresMFA:         cs.RequiresMFA,
				Conditions:          cs.Conditions,
				Description:         cs.Description,
			})
		}
		if len(profiles) == 0 {
			return nil, nil, nil, nil, ErrNoCommands
		}
	}

	aliases := c.Aliases
	if aliases == nil {
		aliases = whitelist.DefaultAliases()
	}
	hierarchy := c.Permissions
	if hierarchy == nil {
		hierarchy = whitelist.DefaultHierarchy()
	}
	patterns := c.GlobalBlockedPatterns
	if patterns == nil {
		patterns = whitelist.DefaultGlobalBlockedPatterns()
	}
	return profiles, aliases, hierarchy, patterns, nil
}

func (e EndpointLimit) toRateLimit() (ratelimit.Config, error) {
	strategy, err := ratelimit.ParseStrategy(e.Strategy)
	if err != nil {
		return ratelimit.Config{}, err
	}
	return ratelimit.Config{
		RequestsPerSecond: e.RequestsPerSecond,
		RequestsPerMinute: e.RequestsPerMinute,
		BurstLimit:        e.BurstLimit,
		Strategy:          strategy,
		PenaltyMultiplier: e.PenaltyMultiplier,
		CooldownPeriod:    time.Duration(e.CooldownSeconds) * time.Second,
	}, nil
}

// RateLimits converts the limits section into the limiter's defaults and
// per-endpoint overrides. Profiles declaring max_per_minute contribute an
// override unless the endpoint section sets one explicitly.
func (c *Config) RateLimits() (ratelimit.Config, map[string]ratelimit.Config, error) {
	defaults, err := c.Limits.EndpointLimit.toRateLimit()
	if err != nil {
		return ratelimit.Config{}, nil, err
	}

	overrides := make(map[string]ratelimit.Config)
	profiles := whitelist.DefaultProfiles()
	if len(c.Commands) > 0 {
		profiles = nil
		for _, cs := range c.Commands {
			profiles = append(profiles, whitelist.Profile{Name: cs.Name, MaxPerMinute: cs.MaxPerMinute})
		}
	}
	for _, p := range profiles {
		if p.MaxPerMinute > 0 {
			overrides[p.Name] = ratelimit.Config{RequestsPerMinute: p.MaxPerMinute}
		}
	}
	for name, ep := range c.Limits.Endpoint {
		rl, err := ep.toRateLimit()
		if err != nil {
			return ratelimit.Config{}, nil, fmt.Errorf("limits.endpoint.%s: %w", name, err)
		}
		overrides[name] = rl
	}
	return defaults, overrides, nil
}

// SessionSettings converts the session section. Zero fields inherit the
// registry defaults.
func (c *Config) SessionSettings() session.Config {
	return session.Config{
		TTL:              time.Duration(c.Session.TTLSeconds) * time.Second,
		IdleTimeout:      time.Duration(c.Session.IdleTimeoutSeconds) * time.Second,
		SuspendThreshold: c.Session.SuspendThreshold,
		SuspendDuration:  time.Duration(c.Session.SuspendDurationSeconds) * time.Second,
	}
}

// AuditSettings converts the audit section into logger thresholds.
func (c *Config) AuditSettings() (audit.Config, error) {
	alert, err := audit.ParseSeverity(c.Audit.AlertSeverity)
	if err != nil {
		return audit.Config{}, err
	}
	syncSev, err := audit.ParseSeverity(c.Audit.SyncSeverity)
	if err != nil {
		return audit.Config{}, err
	}
	return audit.Config{
		BufferSize:    c.Audit.BufferSize,
		AlertSeverity: alert,
		SyncSeverity:  syncSev,
	}, nil
}
