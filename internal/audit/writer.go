package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Writer persists batches of events. Implementations must tolerate empty
// batches and must not reorder events within a batch.
type Writer interface {
	WriteEvents(events []Event) error
	Close() error
}

// FileWriter appends events to a JSON Lines file, one event per line. The
// file is opened append-only with owner-only permissions so concurrent
// processes cannot interleave partial records or read the trail.
type FileWriter struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
}

// NewFileWriter opens (or creates) the audit trail at path.
func NewFileWriter(path string) (*FileWriter, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit trail: %w", err)
	}
	return &FileWriter{
		file: file,
		buf:  bufio.NewWriter(file),
	}, nil
}

// WriteEvents appends the batch and syncs it to storage.
func (w *FileWriter) WriteEvents(events []Event) error {
	if len(events) == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	enc := json.NewEncoder(w.buf)
	for i := range events {
		if err := enc.Encode(&events[i]); err != nil {
			return fmt.Errorf("failed to encode audit event: %w", err)
		}
	}
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush audit trail: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync audit trail: %w", err)
	}
	return nil
}

// Close flushes buffered bytes and closes the underlying file.
func (w *FileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush audit trail: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close audit trail: %w", err)
	}
	return nil
}

// DiscardWriter drops every event. Useful when auditing is disabled in
// development configurations.
type DiscardWriter struct{}

// WriteEvents implements Writer.
func (DiscardWriter) WriteEvents([]Event) error { return nil }

// Close implements Writer.
func (DiscardWriter) Close() error { return nil }
