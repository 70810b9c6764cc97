package workers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yoockh/yoodesk/internal/metrics"
	"github.com/yoockh/yoodesk/internal/models"
)

var ErrQueueFull = errors.New("job queue is full")

// Pool is a bounded in-process queue drained by a fixed set of workers.
// Enqueue never blocks: when the buffer is full the job is dropped and the
// next natural trigger (poll, message, claim attempt) enqueues it again.
type Pool struct {
	dispatcher *Dispatcher
	numWorkers int
	jobs       chan models.Job
	wg         sync.WaitGroup
	once       sync.Once
}

func NewPool(d *Dispatcher, numWorkers, queueSize int) *Pool {
	if numWorkers <= 0 {
		numWorkers = 4
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Pool{
		dispatcher: d,
		numWorkers: numWorkers,
		jobs:       make(chan models.Job, queueSize),
	}
}

func (p *Pool) Enqueue(_ context.Context, job models.Job) error {
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}
	select {
	case p.jobs <- job:
		return nil
	default:
		metrics.Jobs.WithLabelValues(job.Kind, "dropped").Inc()
		return ErrQueueFull
	}
}

// Start launches the workers. They stop when ctx is cancelled; jobs still in
// the buffer at that point are abandoned.
func (p *Pool) Start(ctx context.Context) error {
	p.once.Do(func() {
		for i := 0; i < p.numWorkers; i++ {
			p.wg.Add(1)
			go p.run(ctx)
		}
	})
	return nil
}

func (p *Pool) run(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-p.jobs:
			p.dispatcher.Run(ctx, job)
		}
	}
}

// Wait blocks until every worker has exited.
func (p *Pool) Wait() {
	p.wg.Wait()
}
