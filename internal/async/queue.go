// Package async runs pipeline extractions on a bounded worker pool and
// tracks each submission as a job.
package async

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/receipts-reconciler/internal/entity"
)

var ErrQueueClosed = errors.New("queue is shutting down")

// Processor is the pipeline entry point a queue worker drives.
type Processor interface {
	Process(ctx context.Context, path string) (entity.Document, error)
}

type Queue interface {
	Enqueue(ctx context.Context, path string) (entity.Job, error)
	Job(id uuid.UUID) (entity.Job, bool)
	Shutdown(ctx context.Context)
}
