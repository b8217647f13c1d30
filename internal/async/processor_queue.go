package async

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/receipts-reconciler/constants"
	"github.com/joseph-ayodele/receipts-reconciler/internal/common"
	"github.com/joseph-ayodele/receipts-reconciler/internal/entity"
)

type ProcessorQueue struct {
	proc    Processor
	logger  *slog.Logger
	workers int
	timeout time.Duration
	now     func() time.Time

	ch   chan uuid.UUID
	wg   sync.WaitGroup
	once sync.Once

	// sendMu guards closed and every send on ch; mu guards the job table.
	sendMu sync.RWMutex
	closed bool

	mu    sync.Mutex
	jobs  map[uuid.UUID]*entity.Job
	order []uuid.UUID
}

var _ Queue = (*ProcessorQueue)(nil)

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan uuid.UUID, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewProcessorQueue(proc Processor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		now:     time.Now,
		ch:      make(chan uuid.UUID, 256),
		jobs:    make(map[uuid.UUID]*entity.Job),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("queue.worker.started", "worker_id", workerID)
				for id := range q.ch {
					q.handle(workerID, id)
				}
				q.logger.Debug("queue.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

// handle runs one job. A failure is recorded on the job only; other jobs
// keep going.
func (q *ProcessorQueue) handle(workerID int, id uuid.UUID) {
	path, ok := q.transition(id, constants.JobStatusRunning)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	ctx = common.WithRequestID(ctx, id.String())
	doc, err := q.proc.Process(ctx, path)
	cancel()

	q.mu.Lock()
	job := q.jobs[id]
	finished := q.now().UTC()
	job.FinishedAt = &finished
	if err != nil {
		job.Status = constants.JobStatusFailed
		job.Error = err.Error()
		job.ErrorCode = common.Kind(err)
		job.ErrorTitle = common.Title(err)
		job.Retryable = common.IsRetryable(err)
	} else {
		job.Status = constants.JobStatusDone
		job.DocumentID = doc.ID
	}
	q.mu.Unlock()

	if err != nil {
		q.logger.Error("queue.job.failed", "worker_id", workerID, "job_id", id, "path", path, "error", err)
		return
	}
	q.logger.Info("queue.job.done", "worker_id", workerID, "job_id", id, "doc_id", doc.ID)
}

func (q *ProcessorQueue) transition(id uuid.UUID, status constants.JobStatus) (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	if !ok {
		return "", false
	}
	job.Status = status
	return job.SourcePath, true
}

// Enqueue registers a job and hands it to the workers. It blocks while the
// buffer is full and fails once Shutdown has begun.
func (q *ProcessorQueue) Enqueue(ctx context.Context, path string) (entity.Job, error) {
	q.sendMu.RLock()
	defer q.sendMu.RUnlock()
	if q.closed {
		q.logger.Warn("queue.enqueue.rejected", "path", path)
		return entity.Job{}, ErrQueueClosed
	}

	job := &entity.Job{
		ID:          uuid.New(),
		SourcePath:  path,
		Status:      constants.JobStatusQueued,
		SubmittedAt: q.now().UTC(),
	}
	q.mu.Lock()
	q.jobs[job.ID] = job
	q.order = append(q.order, job.ID)
	snapshot := *job
	q.mu.Unlock()

	select {
	case q.ch <- job.ID:
	default:
		q.logger.Warn("queue.full", "job_id", job.ID)
		select {
		case q.ch <- job.ID:
		case <-ctx.Done():
			q.forget(job.ID)
			return entity.Job{}, fmt.Errorf("enqueue %s: %w", path, ctx.Err())
		}
	}

	q.logger.Info("queue.enqueued", "job_id", job.ID, "path", path)
	return snapshot, nil
}

func (q *ProcessorQueue) forget(id uuid.UUID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.jobs, id)
	for i, o := range q.order {
		if o == id {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
}

// Job returns a snapshot of the job.
func (q *ProcessorQueue) Job(id uuid.UUID) (entity.Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	if !ok {
		return entity.Job{}, false
	}
	return *job, true
}

// Jobs returns snapshots of every job in submission order.
func (q *ProcessorQueue) Jobs() []entity.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]entity.Job, 0, len(q.order))
	for _, id := range q.order {
		out = append(out, *q.jobs[id])
	}
	return out
}

func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.sendMu.Lock()
	if q.closed {
		q.sendMu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.sendMu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted")
	case <-done:
		q.logger.Info("queue.shutdown.drained")
	}
}
