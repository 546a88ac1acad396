package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/term"
)

// Error definitions
var (
	// ErrUnknownLevel is returned when a configuration string does not name
	// a known log level.
	ErrUnknownLevel = errors.New("unknown log level")
)

const (
	logDirPerm  os.FileMode = 0o750
	logFilePerm os.FileMode = 0o600
)

// GenerateRunID returns a fresh UUIDv4 identifying one process run. Every
// log record and the per-run log file name carry it, so a support bundle
// can be correlated across sinks.
func GenerateRunID() string {
	return uuid.New().String()
}

// ParseLevel converts a configuration string to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
	}
}

// Options configures Setup.
type Options struct {
	// Level is the minimum level for the terminal stream.
	Level slog.Level
	// LogDir, when non-empty, enables a per-run JSON log file beneath it.
	LogDir string
	// RunID stamps every record. Empty generates one.
	RunID string
	// Quiet suppresses the terminal stream entirely.
	Quiet bool
}

// Setup builds the process logger: a terminal handler on stderr (text when
// stderr is a terminal, JSON when output is piped), an optional JSON file
// handler capturing debug and above, and a redacting decorator in front of
// both. It returns the logger, the run ID, and a cleanup function closing
// the log file.
func Setup(opts Options) (*slog.Logger, string, func(), error) {
	runID := opts.RunID
	if runID == "" {
		runID = GenerateRunID()
	}

	var handlers []slog.Handler
	cleanup := func() {}

	if !opts.Quiet {
		handlers = append(handlers, terminalHandler(os.Stderr, opts.Level, IsInteractive()))
	}

	if opts.LogDir != "" {
		if err := os.MkdirAll(opts.LogDir, logDirPerm); err != nil {
			return nil, "", nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		name := fmt.Sprintf("ipcguard-%s-%s.jsonl",
			time.Now().UTC().Format("20060102T150405Z"), runID)
		path := filepath.Join(opts.LogDir, name)
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePerm)
		if err != nil {
			return nil, "", nil, fmt.Errorf("failed to open run log: %w", err)
		}
		cleanup = func() { file.Close() }
		handlers = append(handlers, slog.NewJSONHandler(file, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}

	if len(handlers) == 0 {
		// Quiet without a log directory still surfaces errors on stderr.
		handlers = append(handlers, terminalHandler(os.Stderr, slog.LevelError, IsInteractive()))
	}

	var root slog.Handler = NewFanoutHandler(handlers...)
	root = NewRedactingHandler(root, nil)
	logger := slog.New(root).With("run_id", runID)
	return logger, runID, cleanup, nil
}

// terminalHandler builds the handler for the terminal stream: human-oriented
// text when the stream is attached to a terminal, line-delimited JSON when
// output is piped or redirected.
func terminalHandler(w io.Writer, level slog.Level, interactive bool) slog.Handler {
	handlerOpts := &slog.HandlerOptions{Level: level}
	if interactive {
		return slog.NewTextHandler(w, handlerOpts)
	}
	return slog.NewJSONHandler(w, handlerOpts)
}

// IsInteractive reports whether stderr is attached to a terminal. Setup uses
// it to decide between human-oriented and machine-oriented output on the
// terminal stream.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}
