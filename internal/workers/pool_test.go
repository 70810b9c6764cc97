package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/yoodesk/internal/logger"
	"github.com/yoockh/yoodesk/internal/models"
)

type memRecorder struct {
	mu   sync.Mutex
	runs []models.JobRun
}

func (r *memRecorder) Insert(_ context.Context, run *models.JobRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, *run)
	return nil
}

func (r *memRecorder) snapshot() []models.JobRun {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.JobRun(nil), r.runs...)
}

func TestDispatcherRecordsOutcomes(t *testing.T) {
	rec := &memRecorder{}
	d := &Dispatcher{
		Logger: logger.Discard(),
		Runs:   rec,
		Handlers: map[string]Handler{
			"ok":    func(context.Context, models.Job) error { return nil },
			"fail":  func(context.Context, models.Job) error { return errors.New("nope") },
			"panic": func(context.Context, models.Job) error { panic("kaboom") },
		},
	}

	ctx := context.Background()
	d.Run(ctx, models.Job{Kind: "ok", ConversationID: "c1"})
	d.Run(ctx, models.Job{Kind: "fail"})
	d.Run(ctx, models.Job{Kind: "panic"})
	d.Run(ctx, models.Job{Kind: "unknown"})

	runs := rec.snapshot()
	require.Len(t, runs, 3)
	assert.Equal(t, "done", runs[0].Status)
	assert.Equal(t, "c1", runs[0].ConversationID)
	assert.Equal(t, "failed", runs[1].Status)
	assert.Equal(t, "nope", runs[1].Error)
	assert.Equal(t, "failed", runs[2].Status)
	assert.Contains(t, runs[2].Error, "kaboom")
}

func TestDispatcherBoundsJobTime(t *testing.T) {
	rec := &memRecorder{}
	d := &Dispatcher{
		Logger:     logger.Discard(),
		Runs:       rec,
		JobTimeout: 10 * time.Millisecond,
		Handlers: map[string]Handler{
			"slow": func(ctx context.Context, _ models.Job) error {
				<-ctx.Done()
				return ctx.Err()
			},
		},
	}
	d.Run(context.Background(), models.Job{Kind: "slow"})

	runs := rec.snapshot()
	require.Len(t, runs, 1)
	assert.Equal(t, "failed", runs[0].Status)
	assert.Contains(t, runs[0].Error, "deadline")
}

func TestPoolRunsJobs(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
		wg   sync.WaitGroup
	)
	d := &Dispatcher{
		Logger: logger.Discard(),
		Handlers: map[string]Handler{
			models.JobAutoAssign: func(_ context.Context, j models.Job) error {
				defer wg.Done()
				mu.Lock()
				seen = append(seen, j.ConversationID)
				mu.Unlock()
				return nil
			},
		},
	}
	p := NewPool(d, 3, 16)

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		p.Wait()
	}()
	require.NoError(t, p.Start(ctx))

	wg.Add(5)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, p.Enqueue(ctx, models.Job{Kind: models.JobAutoAssign, ConversationID: id}))
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"a", "b", "c", "d", "e"}, seen)
}

func TestPoolDropsWhenFull(t *testing.T) {
	d := &Dispatcher{Logger: logger.Discard(), Handlers: map[string]Handler{}}
	p := NewPool(d, 1, 2)

	// not started, so nothing drains the buffer
	ctx := context.Background()
	require.NoError(t, p.Enqueue(ctx, models.Job{Kind: "x"}))
	require.NoError(t, p.Enqueue(ctx, models.Job{Kind: "x"}))
	assert.ErrorIs(t, p.Enqueue(ctx, models.Job{Kind: "x"}), ErrQueueFull)
}

func TestStreamPoolDeliversJobs(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	got := make(chan models.Job, 4)
	d := &Dispatcher{
		Logger: logger.Discard(),
		Handlers: map[string]Handler{
			models.JobSummaryRegenerate: func(_ context.Context, j models.Job) error {
				got <- j
				return nil
			},
		},
	}
	p := NewStreamPool(rdb, d, StreamOptions{NumWorkers: 2}, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		p.Wait()
	}()
	require.NoError(t, p.Start(ctx))
	require.NoError(t, p.Enqueue(ctx, models.Job{Kind: models.JobSummaryRegenerate, ConversationID: "c9"}))

	select {
	case j := <-got:
		assert.Equal(t, "c9", j.ConversationID)
		assert.False(t, j.EnqueuedAt.IsZero())
	case <-time.After(5 * time.Second):
		t.Fatal("job was not delivered")
	}
}

func TestStreamPoolConcurrentEnqueue(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	p := NewStreamPool(rdb, &Dispatcher{Logger: logger.Discard()}, StreamOptions{Stream: "s", Group: "g"}, logger.Discard())

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, p.Enqueue(ctx, models.Job{Kind: models.JobAutoAssign, ConversationID: "c1"}))
		}()
	}
	wg.Wait()

	n, err := rdb.XLen(ctx, "s").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(8), n)
}

func TestStreamPoolConsumerPrefixIsUnique(t *testing.T) {
	a := NewStreamPool(nil, nil, StreamOptions{}, logger.Discard())
	b := NewStreamPool(nil, nil, StreamOptions{}, logger.Discard())
	assert.NotEqual(t, a.consumerPrefix, b.consumerPrefix)
	assert.Equal(t, "fixed", NewStreamPool(nil, nil, StreamOptions{ConsumerPrefix: "fixed"}, logger.Discard()).consumerPrefix)
}

func TestDecodeJobRejectsMissingKind(t *testing.T) {
	_, ok := decodeJob(redis.XMessage{ID: "1-0", Values: map[string]any{"conversation_id": "c1"}})
	assert.False(t, ok)

	j, ok := decodeJob(redis.XMessage{ID: "1-0", Values: encodeJob(models.Job{Kind: "k", MessageID: "m1"})})
	assert.True(t, ok)
	assert.Equal(t, "m1", j.MessageID)
}
