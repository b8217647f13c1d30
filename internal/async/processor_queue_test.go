package async

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/receipts-reconciler/constants"
	"github.com/joseph-ayodele/receipts-reconciler/internal/common"
	"github.com/joseph-ayodele/receipts-reconciler/internal/entity"
)

type stubProcessor struct {
	mu    sync.Mutex
	paths []string
}

func (s *stubProcessor) Process(ctx context.Context, path string) (entity.Document, error) {
	s.mu.Lock()
	s.paths = append(s.paths, path)
	s.mu.Unlock()
	if strings.Contains(path, "limited") {
		return entity.Document{}, common.RateLimitError("429")
	}
	if strings.Contains(path, "slow") {
		<-ctx.Done()
		return entity.Document{}, common.TimeoutError("ocr timed out", ctx.Err())
	}
	return entity.Document{ID: "doc-" + path}, nil
}

func waitFor(t *testing.T, q *ProcessorQueue, id uuid.UUID) entity.Job {
	t.Helper()
	var job entity.Job
	require.Eventually(t, func() bool {
		var ok bool
		job, ok = q.Job(id)
		return ok && (job.Status == constants.JobStatusDone || job.Status == constants.JobStatusFailed)
	}, 2*time.Second, 5*time.Millisecond)
	return job
}

func TestProcessorQueue_FailuresAreIsolated(t *testing.T) {
	proc := &stubProcessor{}
	q := NewProcessorQueue(proc, nil, WithWorkers(2))
	defer q.Shutdown(context.Background())

	ok1, err := q.Enqueue(context.Background(), "a.png")
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusQueued, ok1.Status)
	bad, err := q.Enqueue(context.Background(), "limited.pdf")
	require.NoError(t, err)
	ok2, err := q.Enqueue(context.Background(), "b.jpg")
	require.NoError(t, err)

	j := waitFor(t, q, ok1.ID)
	assert.Equal(t, constants.JobStatusDone, j.Status)
	assert.Equal(t, "doc-a.png", j.DocumentID)
	assert.NotNil(t, j.FinishedAt)

	j = waitFor(t, q, bad.ID)
	assert.Equal(t, constants.JobStatusFailed, j.Status)
	assert.Equal(t, common.CodeRateLimited, j.ErrorCode)
	assert.Equal(t, "Rate Limit Exceeded", j.ErrorTitle)
	assert.True(t, j.Retryable)

	j = waitFor(t, q, ok2.ID)
	assert.Equal(t, constants.JobStatusDone, j.Status)

	jobs := q.Jobs()
	require.Len(t, jobs, 3)
	assert.Equal(t, []string{"a.png", "limited.pdf", "b.jpg"},
		[]string{jobs[0].SourcePath, jobs[1].SourcePath, jobs[2].SourcePath})
}

func TestProcessorQueue_Timeout(t *testing.T) {
	q := NewProcessorQueue(&stubProcessor{}, nil, WithWorkers(1), WithProcessTimeout(20*time.Millisecond))
	defer q.Shutdown(context.Background())

	job, err := q.Enqueue(context.Background(), "slow.png")
	require.NoError(t, err)
	j := waitFor(t, q, job.ID)
	assert.Equal(t, constants.JobStatusFailed, j.Status)
	assert.Equal(t, common.CodeTimeout, j.ErrorCode)
	assert.True(t, j.Retryable)
}

func TestProcessorQueue_EnqueueAfterShutdown(t *testing.T) {
	proc := &stubProcessor{}
	q := NewProcessorQueue(proc, nil, WithWorkers(1), WithQueueSize(4))

	job, err := q.Enqueue(context.Background(), "a.png")
	require.NoError(t, err)

	q.Shutdown(context.Background())
	q.Shutdown(context.Background())

	got, ok := q.Job(job.ID)
	require.True(t, ok)
	assert.Equal(t, constants.JobStatusDone, got.Status, "queued work drains on shutdown")

	_, err = q.Enqueue(context.Background(), "b.png")
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestProcessorQueue_UnknownJob(t *testing.T) {
	q := NewProcessorQueue(&stubProcessor{}, nil)
	defer q.Shutdown(context.Background())
	_, ok := q.Job(uuid.New())
	assert.False(t, ok)
}
