package config_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianapp/ipcguard/internal/audit"
	"github.com/meridianapp/ipcguard/internal/config"
	"github.com/meridianapp/ipcguard/internal/ratelimit"
	"github.com/meridianapp/ipcguard/internal/whitelist"
)

const sampleConfig = `
version = 1
global_blocked_patterns = ['(?i)<\s*script']

[sanitizer]
max_string_length = 500
allowed_url_schemes = ["https"]

[limits]
requests_per_second = 5
requests_per_minute = 40
burst_limit = 10
strategy = "token_bucket"
penalty_multiplier = 3.0
cooldown_seconds = 120

[limits.endpoint.factory_reset]
requests_per_minute = 1

[session]
ttl_seconds = 1800
idle_timeout_seconds = 900
suspend_threshold = 3
suspend_duration_seconds = 600

[audit]
path = "/var/log/ipcguard/audit.jsonl"
buffer_size = 50
alert_severity = "error"
sync_severity = "critical"

[permissions]
admin = ["user", "system.execute"]
user = ["settings.read", "settings.write"]

[aliases]
"settings.save" = "save_settings"

[[command]]
name = "save_settings"
classification = "authenticated"
required_permissions = ["settings.write"]
risk_score = 30
max_per_minute = 25

[[command]]
name = "run_command"
classification = "administrative"
required_permissions = ["system.execute"]
blocked_arg_patterns = ['(?i)sudo']
risk_score = 80
requires_mfa = true
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ipcguard.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, 500, cfg.Sanitizer.MaxStringLength)
	assert.Equal(t, "token_bucket", cfg.Limits.Strategy)
	assert.Equal(t, 50, cfg.Audit.BufferSize)
	assert.Len(t, cfg.Commands, 2)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "malformed toml",
			content: "[limits\nrequests_per_second = 5",
		},
		{
			name: "unknown classification",
			content: `
[[command]]
name = "x"
classification = "superuser"
`,
		},
		{
			name: "bad profile pattern",
			content: `
[[command]]
name = "x"
classification = "public"
blocked_arg_patterns = ['[unterminated']
`,
		},
		{
			name: "bad global pattern",
			content: `global_blocked_patterns = ['[unterminated']`,
		},
		{
			name:    "unknown strategy",
			content: "[limits]\nstrategy = \"leaky_bucket\"",
		},
		{
			name:    "unknown severity",
			content: "[audit]\nalert_severity = \"fatal\"",
		},
		{
			name: "dangling alias",
			content: `
[aliases]
"old.name" = "missing_command"
[[command]]
name = "x"
classification = "public"
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestConfig_Defaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, "version = 1\n"))
	require.NoError(t, err)

	reg, err := cfg.BuildRegistry()
	require.NoError(t, err)
	_, ok := reg.Resolve("save_settings")
	assert.True(t, ok, "empty config falls back to built-in profiles")

	sc := cfg.SessionSettings()
	assert.Zero(t, sc.TTL, "zero values defer to registry defaults")
}

func TestConfig_BuildRegistry(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	reg, err := cfg.BuildRegistry()
	require.NoError(t, err)

	canonical, ok := reg.Resolve("settings.save")
	require.True(t, ok)
	assert.Equal(t, "save_settings", canonical)

	// Only the configured commands exist.
	_, ok = reg.Resolve("factory_reset")
	assert.False(t, ok)

	dec := reg.Validate("run_command", map[string]any{"command": "sudo ls"},
		[]string{"admin"}, true)
	assert.Equal(t, whitelist.DecisionDenied, dec.Kind)
}

func TestConfig_RateLimits(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	defaults, overrides, err := cfg.RateLimits()
	require.NoError(t, err)

	assert.Equal(t, 5, defaults.RequestsPerSecond)
	assert.Equal(t, ratelimit.StrategyTokenBucket, defaults.Strategy)
	assert.Equal(t, 2*time.Minute, defaults.CooldownPeriod)

	// Explicit endpoint override.
	assert.Equal(t, 1, overrides["factory_reset"].RequestsPerMinute)
	// Profile max_per_minute contributes an override too.
	assert.Equal(t, 25, overrides["save_settings"].RequestsPerMinute)
}

func TestConfig_SessionSettings(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	sc := cfg.SessionSettings()
	assert.Equal(t, 30*time.Minute, sc.TTL)
	assert.Equal(t, 15*time.Minute, sc.IdleTimeout)
	assert.Equal(t, 3, sc.SuspendThreshold)
	assert.Equal(t, 10*time.Minute, sc.SuspendDuration)
}

func TestConfig_AuditSettings(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	ac, err := cfg.AuditSettings()
	require.NoError(t, err)
	assert.Equal(t, 50, ac.BufferSize)
	assert.Equal(t, audit.SeverityError, ac.AlertSeverity)
	assert.Equal(t, audit.SeverityCritical, ac.SyncSeverity)
}

func TestConfig_BuildSanitizer(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	s, err := cfg.BuildSanitizer()
	require.NoError(t, err)

	res := s.ValidateURL("http://example.com")
	assert.False(t, res.OK(), "http is not in the configured scheme list")
	res = s.ValidateURL("https://example.com")
	assert.True(t, res.OK())
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, sampleConfig)

	var mu sync.Mutex
	var applied []*config.Config
	w, err := config.NewWatcher(path, func(cfg *config.Config) error {
		mu.Lock()
		applied = append(applied, cfg)
		mu.Unlock()
		return nil
	}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()

	updated := sampleConfig + "\n# touched\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(applied) >= 1
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	<-done
}

func TestWatcher_KeepsOldConfigOnBadWrite(t *testing.T) {
	path := writeConfig(t, sampleConfig)

	var mu sync.Mutex
	appliedCount := 0
	w, err := config.NewWatcher(path, func(*config.Config) error {
		mu.Lock()
		appliedCount++
		mu.Unlock()
		return nil
	}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	require.NoError(t, os.WriteFile(path, []byte("[limits\nbroken"), 0o600))

	// The bad write must never reach the apply callback.
	time.Sleep(debounceSettle)
	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, appliedCount)
}

// debounceSettle gives the watcher's debounce window time to elapse.
const debounceSettle = time.Second
