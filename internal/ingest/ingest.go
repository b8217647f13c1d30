// Package ingest discovers source files on disk and hands them to the
// extraction queue.
package ingest

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/receipts-reconciler/internal/entity"
)

// Enqueuer is the part of the queue ingest depends on.
type Enqueuer interface {
	Enqueue(ctx context.Context, path string) (entity.Job, error)
}

// Result is the per-file ingest outcome.
type Result struct {
	Path  string    `json:"path"`
	JobID uuid.UUID `json:"job_id,omitempty"`
	Err   string    `json:"error,omitempty"`
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned   uint32 `json:"scanned"`
	Matched   uint32 `json:"matched"`
	Succeeded uint32 `json:"succeeded"`
	Failed    uint32 `json:"failed"`
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
