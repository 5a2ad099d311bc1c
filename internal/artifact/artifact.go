// Package artifact persists the aggregated stylesheet to disk and provides
// the mtime toucher used for invalidation hints.
package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nmarshall23/vuetify-loader/internal/ctxlog"
	"github.com/nmarshall23/vuetify-loader/internal/styles"
)

// Writer writes the aggregated stylesheet to a fixed path. Writes are
// idempotent: the same fragment list always produces the same bytes.
type Writer struct {
	path string
}

// NewWriter creates a writer targeting path.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Path returns the artifact location.
func (w *Writer) Path() string {
	return w.path
}

// Write renders one @use directive per fragment and replaces the artifact
// atomically, so a dev server watching the file never reads a half-written
// stylesheet.
func (w *Writer) Write(ctx context.Context, fragments []string) error {
	logger := ctxlog.FromContext(ctx)

	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	tmp := w.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(styles.AggregateDocument(fragments)), 0o644); err != nil {
		return fmt.Errorf("failed to stage aggregated stylesheet: %w", err)
	}
	if err := os.Rename(tmp, w.path); err != nil {
		return fmt.Errorf("failed to replace aggregated stylesheet: %w", err)
	}

	logger.Debug("aggregated stylesheet flushed", "path", w.path, "fragments", len(fragments))
	return nil
}

// Toucher updates file modification times via the local filesystem.
type Toucher struct{}

// Touch sets both access and modification time to t.
func (Toucher) Touch(path string, t time.Time) error {
	return os.Chtimes(path, t, t)
}
