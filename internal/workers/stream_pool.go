package workers

import (
	"context"
	"errors"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoodesk/internal/models"
)

// StreamOptions configures a StreamPool. Zero values take defaults.
type StreamOptions struct {
	Stream         string
	Group          string
	ConsumerPrefix string
	NumWorkers     int
	MaxLen         int64
}

// StreamPool shares the job queue between processes through a Redis Stream
// consumer group. Each job is delivered to one consumer and acked after its
// handler returns, whatever the outcome; failed jobs are not retried.
// Configuration is fixed at construction, so Enqueue is safe for concurrent use.
type StreamPool struct {
	redis      *redis.Client
	dispatcher *Dispatcher
	logger     *logrus.Logger

	stream         string
	group          string
	consumerPrefix string
	numWorkers     int
	maxLen         int64

	wg sync.WaitGroup
}

func NewStreamPool(rdb *redis.Client, d *Dispatcher, opts StreamOptions, logger *logrus.Logger) *StreamPool {
	p := &StreamPool{
		redis:          rdb,
		dispatcher:     d,
		logger:         logger,
		stream:         opts.Stream,
		group:          opts.Group,
		consumerPrefix: opts.ConsumerPrefix,
		numWorkers:     opts.NumWorkers,
		maxLen:         opts.MaxLen,
	}
	if p.stream == "" {
		p.stream = "jobs:stream"
	}
	if p.group == "" {
		p.group = "yoodesk-workers"
	}
	if p.consumerPrefix == "" {
		p.consumerPrefix = defaultConsumerPrefix()
	}
	if p.numWorkers <= 0 {
		p.numWorkers = 4
	}
	if p.maxLen <= 0 {
		p.maxLen = 10000
	}
	if p.logger == nil {
		p.logger = logrus.New()
	}
	return p
}

// defaultConsumerPrefix keeps consumer names distinct across replicas sharing a group.
func defaultConsumerPrefix() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return host + "-" + uuid.NewString()[:8]
}

func (p *StreamPool) Enqueue(ctx context.Context, job models.Job) error {
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}
	return p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: encodeJob(job),
	}).Err()
}

func (p *StreamPool) Start(ctx context.Context) error {
	if p.redis == nil || p.dispatcher == nil {
		return errors.New("StreamPool missing dependency: Redis/Dispatcher must be set")
	}

	_ = p.redis.XGroupCreateMkStream(ctx, p.stream, p.group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.numWorkers; i++ {
		consumer := p.consumerPrefix + "-" + strconv.Itoa(i+1)
		p.wg.Add(1)
		go p.runConsumer(ctx, consumer)
	}
	return nil
}

func (p *StreamPool) Wait() {
	p.wg.Wait()
}

func (p *StreamPool) runConsumer(ctx context.Context, consumer string) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.group,
			Consumer: consumer,
			Streams:  []string{p.stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			p.logger.WithError(err).WithField("consumer", consumer).Warn("xreadgroup failed")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				job, ok := decodeJob(msg)
				if ok {
					p.dispatcher.Run(ctx, job)
				} else {
					p.logger.WithField("redis_id", msg.ID).Warn("dropping malformed job")
				}
				_ = p.redis.XAck(ctx, p.stream, p.group, msg.ID).Err()
			}
		}
	}
}

func encodeJob(job models.Job) map[string]any {
	return map[string]any{
		"kind":            job.Kind,
		"conversation_id": job.ConversationID,
		"message_id":      job.MessageID,
		"enqueued_at":     job.EnqueuedAt.Format(time.RFC3339Nano),
	}
}

func decodeJob(msg redis.XMessage) (models.Job, bool) {
	getStr := func(k string) string {
		s, _ := msg.Values[k].(string)
		return s
	}
	job := models.Job{
		Kind:           getStr("kind"),
		ConversationID: getStr("conversation_id"),
		MessageID:      getStr("message_id"),
	}
	if job.Kind == "" {
		return models.Job{}, false
	}
	if ts, err := time.Parse(time.RFC3339Nano, getStr("enqueued_at")); err == nil {
		job.EnqueuedAt = ts
	}
	return job, true
}
