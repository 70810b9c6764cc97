package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoodesk/internal/metrics"
	"github.com/yoockh/yoodesk/internal/models"
)

type Handler func(ctx context.Context, job models.Job) error

// JobRecorder persists job outcomes. The Mongo job run repository satisfies it.
type JobRecorder interface {
	Insert(ctx context.Context, run *models.JobRun) error
}

// Dispatcher runs one job: it routes by kind, bounds the run time, recovers
// panics, and logs/records the outcome. Errors never leave the dispatcher.
type Dispatcher struct {
	Handlers   map[string]Handler
	Logger     *logrus.Logger
	Runs       JobRecorder // optional
	JobTimeout time.Duration
}

func (d *Dispatcher) Run(ctx context.Context, job models.Job) {
	log := d.Logger.WithFields(logrus.Fields{
		"job_kind":        job.Kind,
		"conversation_id": job.ConversationID,
		"message_id":      job.MessageID,
	})

	h, ok := d.Handlers[job.Kind]
	if !ok {
		log.Warn("no handler for job kind")
		metrics.Jobs.WithLabelValues(job.Kind, "failed").Inc()
		return
	}

	timeout := d.JobTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := safeCall(runCtx, h, job)
	dur := time.Since(start)

	run := &models.JobRun{
		Kind:           job.Kind,
		ConversationID: job.ConversationID,
		MessageID:      job.MessageID,
		Status:         "done",
		DurationMS:     dur.Milliseconds(),
		StartedAt:      start.UTC(),
	}
	if err != nil {
		run.Status = "failed"
		run.Error = err.Error()
		log.WithError(err).WithField("duration_ms", run.DurationMS).Error("job failed")
	} else {
		log.WithField("duration_ms", run.DurationMS).Debug("job done")
	}
	metrics.Jobs.WithLabelValues(job.Kind, run.Status).Inc()

	if d.Runs != nil {
		// the job context may already be spent; recording gets its own budget
		recCtx, cancelRec := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelRec()
		if err := d.Runs.Insert(recCtx, run); err != nil {
			log.WithError(err).Warn("record job run failed")
		}
	}
}

func safeCall(ctx context.Context, h Handler, job models.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h(ctx, job)
}
