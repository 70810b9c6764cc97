package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoodesk/internal/models"
)

// JobQueue accepts background work. Implementations must not block the caller
// for long; workers.Pool and workers.StreamPool both satisfy it.
type JobQueue interface {
	Enqueue(ctx context.Context, job models.Job) error
}

// enqueue hands a job to the queue after the triggering write has committed.
// A rejected job is only logged: the next poll, message or claim attempt
// triggers it again.
func enqueue(ctx context.Context, q JobQueue, log *logrus.Logger, job models.Job) error {
	if q == nil {
		return nil
	}
	job.EnqueuedAt = time.Now().UTC()
	if err := q.Enqueue(ctx, job); err != nil {
		log.WithError(err).WithFields(logrus.Fields{
			"job_kind":        job.Kind,
			"conversation_id": job.ConversationID,
			"message_id":      job.MessageID,
		}).Warn("enqueue job failed")
		return err
	}
	return nil
}

// llmContext bounds one language model call. A zero timeout falls back to 30s.
func llmContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}
