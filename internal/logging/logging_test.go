package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianapp/ipcguard/internal/logging"
)

// failingHandler always errors on Handle.
type failingHandler struct{}

func (failingHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("sink down") }
func (h failingHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h failingHandler) WithGroup(string) slog.Handler           { return h }

func TestFanoutHandler_DispatchesToAll(t *testing.T) {
	var a, b bytes.Buffer
	fanout := logging.NewFanoutHandler(
		slog.NewTextHandler(&a, nil),
		slog.NewJSONHandler(&b, nil),
	)
	logger := slog.New(fanout)

	logger.Info("authorization decision", "command", "save_settings")

	assert.Contains(t, a.String(), "authorization decision")
	assert.Contains(t, b.String(), `"command":"save_settings"`)
}

func TestFanoutHandler_LevelFiltering(t *testing.T) {
	var debugSink, errorSink bytes.Buffer
	fanout := logging.NewFanoutHandler(
		slog.NewTextHandler(&debugSink, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&errorSink, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	logger := slog.New(fanout)

	logger.Debug("noise")
	logger.Error("failure")

	assert.Contains(t, debugSink.String(), "noise")
	assert.NotContains(t, errorSink.String(), "noise")
	assert.Contains(t, errorSink.String(), "failure")
}

func TestFanoutHandler_SinkFailureDoesNotHideOthers(t *testing.T) {
	var ok bytes.Buffer
	fanout := logging.NewFanoutHandler(
		failingHandler{},
		slog.NewTextHandler(&ok, nil),
	)

	rec := slog.NewRecord(time.Now(), slog.LevelInfo, "still delivered", 0)
	err := fanout.Handle(context.Background(), rec)

	assert.Error(t, err)
	assert.Contains(t, ok.String(), "still delivered")
}

func TestRedactingHandler(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		redacted bool
	}{
		{name: "password", key: "password", value: "hunter2", redacted: true},
		{name: "api key", key: "api_key", value: "sk-xyz", redacted: true},
		{name: "raw arguments", key: "args", value: `{"theme":"<script>"}`, redacted: true},
		{name: "session token", key: "session_token", value: "abc", redacted: true},
		{name: "command name", key: "command", value: "save_settings", redacted: false},
		{name: "risk score", key: "risk", value: "30", redacted: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			handler := logging.NewRedactingHandler(slog.NewJSONHandler(&buf, nil), nil)
			logger := slog.New(handler)

			logger.Info("event", tt.key, tt.value)

			out := buf.String()
			if tt.redacted {
				assert.NotContains(t, out, tt.value)
				assert.Contains(t, out, "[REDACTED]")
			} else {
				assert.Contains(t, out, tt.value)
			}
		})
	}
}

func TestRedactingHandler_Groups(t *testing.T) {
	var buf bytes.Buffer
	handler := logging.NewRedactingHandler(slog.NewJSONHandler(&buf, nil), nil)
	logger := slog.New(handler)

	logger.Info("event", slog.Group("request",
		slog.String("command", "run_command"),
		slog.String("password", "hunter2"),
	))

	out := buf.String()
	assert.Contains(t, out, "run_command")
	assert.NotContains(t, out, "hunter2")
}

func TestGenerateRunID(t *testing.T) {
	a := logging.GenerateRunID()
	b := logging.GenerateRunID()

	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{input: "debug", want: slog.LevelDebug},
		{input: "", want: slog.LevelInfo},
		{input: "warn", want: slog.LevelWarn},
		{input: "warning", want: slog.LevelWarn},
		{input: "error", want: slog.LevelError},
		{input: "verbose", wantErr: true},
	}
	for _, tt := range tests {
		got, err := logging.ParseLevel(tt.input)
		if tt.wantErr {
			assert.ErrorIs(t, err, logging.ErrUnknownLevel)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestSetup_WritesRunLog(t *testing.T) {
	dir := t.TempDir()

	logger, runID, cleanup, err := logging.Setup(logging.Options{
		Level:  slog.LevelInfo,
		LogDir: dir,
		Quiet:  true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	logger.Info("pipeline ready", "commands", 21)
	cleanup()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.Contains(entries[0].Name(), runID))

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.Split(data, []byte("\n"))[0], &rec))
	assert.Equal(t, "pipeline ready", rec["msg"])
	assert.Equal(t, runID, rec["run_id"])
}
