package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xenn00/warehouse-jobs/internal/dtos/job_dto"
	app_error "github.com/xenn00/warehouse-jobs/internal/errors"
	"github.com/xenn00/warehouse-jobs/internal/queue"
	worker_handler "github.com/xenn00/warehouse-jobs/internal/worker/worker-handler"
	"go.uber.org/atomic"
)

func newTestQueue(t *testing.T) queue.Store {
	t.Helper()
	mockRedis := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mockRedis.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return queue.NewRedisStore(rdb, "warehouse-jobs")
}

func fastConfig() PoolConfig {
	cfg := DefaultPoolConfig()
	cfg.RateMax = 1000
	cfg.PollInterval = 10 * time.Millisecond
	return cfg
}

func enqueueBatch(t *testing.T, store queue.Store, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := store.Add(context.Background(), queue.Envelope{
			ID:       fmt.Sprintf("batch-%02d", i),
			Category: queue.CategoryBatchStockUpdate,
			Payload: queue.MustMarshal(job_dto.BatchStockUpdatePayload{
				TenantID: "t", UserID: "u",
				Updates: []job_dto.StockUpdate{{ProductItemID: "i", StoreID: "s"}},
			}),
			Priority:    queue.CategoryBatchStockUpdate.DefaultPriority(),
			RetryPolicy: queue.DefaultRetryPolicy,
			Retention:   queue.DefaultRetention,
		})
		require.NoError(t, err)
	}
}

func waitCompleted(t *testing.T, store queue.Store, n int64) {
	t.Helper()
	require.Eventually(t, func() bool {
		m, err := store.Metrics(context.Background())
		return err == nil && m.Completed == n
	}, 10*time.Second, 10*time.Millisecond)
}

func TestWorkerPool_NeverExceedsConcurrency(t *testing.T) {
	store := newTestQueue(t)
	enqueueBatch(t, store, 15)

	running := atomic.NewInt32(0)
	peak := atomic.NewInt32(0)
	wh := &worker_handler.WorkerHandler{
		ApplyStockUpdate: func(context.Context, string, string, *string, job_dto.StockUpdate) error {
			now := running.Inc()
			for {
				old := peak.Load()
				if now <= old || peak.CompareAndSwap(old, now) {
					break
				}
			}
			time.Sleep(50 * time.Millisecond)
			running.Dec()
			return nil
		},
	}

	pool := NewWorkerPool(store, NewRouter(wh), fastConfig())
	require.NoError(t, pool.Start(context.Background()))
	defer pool.Stop()

	waitCompleted(t, store, 15)
	assert.LessOrEqual(t, peak.Load(), int32(5))
	assert.GreaterOrEqual(t, peak.Load(), int32(1))
}

func TestWorkerPool_RateLimitsJobStarts(t *testing.T) {
	store := newTestQueue(t)
	enqueueBatch(t, store, 30)

	var (
		mu       sync.Mutex
		admitted []time.Time
		handled  []time.Time
	)
	wh := &worker_handler.WorkerHandler{
		ApplyStockUpdate: func(context.Context, string, string, *string, job_dto.StockUpdate) error {
			mu.Lock()
			handled = append(handled, time.Now())
			mu.Unlock()
			return nil
		},
	}
	cfg := fastConfig()
	cfg.RateMax = 10
	cfg.RateDuration = time.Second

	pool := NewWorkerPool(store, NewRouter(wh), cfg)
	pool.onStart = func(_ string, at time.Time) {
		mu.Lock()
		admitted = append(admitted, at)
		mu.Unlock()
	}
	require.NoError(t, pool.Start(context.Background()))
	defer pool.Stop()

	waitCompleted(t, store, 30)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, admitted, 30)
	require.Len(t, handled, 30)
	assert.Equal(t, 10, maxInWindow(admitted, time.Second))
	// 30 starts at 10 per rolling second span at least two full windows
	first, last := handled[0], handled[0]
	for _, at := range handled {
		if at.Before(first) {
			first = at
		}
		if at.After(last) {
			last = at
		}
	}
	assert.GreaterOrEqual(t, last.Sub(first), 1900*time.Millisecond)
}

func TestWorkerPool_HandlerFailureCompletesWithoutRetry(t *testing.T) {
	store := newTestQueue(t)
	enqueueBatch(t, store, 1)

	wh := &worker_handler.WorkerHandler{
		ApplyStockUpdate: func(context.Context, string, string, *string, job_dto.StockUpdate) error {
			return errors.New("deadlock detected")
		},
	}
	pool := NewWorkerPool(store, NewRouter(wh), fastConfig())
	require.NoError(t, pool.Start(context.Background()))
	defer pool.Stop()

	waitCompleted(t, store, 1)
	rec, err := store.Get(context.Background(), "batch-00")
	require.NoError(t, err)
	assert.Equal(t, queue.StateCompleted, rec.State)
	assert.Equal(t, 1, rec.Attempts)
	assert.Equal(t, 100, rec.Progress)
	require.NotNil(t, rec.Result)
	assert.False(t, rec.Result.Success)
	assert.Equal(t, 1, rec.Result.Result.FailedCount)
}

type failingStore struct {
	queue.Store
	completeErr error
	mu          sync.Mutex
	retried     []error
}

func (f *failingStore) Complete(context.Context, *queue.ActiveJob, queue.Result) error {
	return f.completeErr
}

func (f *failingStore) Retry(ctx context.Context, job *queue.ActiveJob, cause error) (bool, error) {
	f.mu.Lock()
	f.retried = append(f.retried, cause)
	f.mu.Unlock()
	return f.Store.Retry(ctx, job, cause)
}

func TestWorkerPool_InfraFailureUsesBrokerRetry(t *testing.T) {
	inner := newTestQueue(t)
	_, err := inner.Add(context.Background(), queue.Envelope{
		ID:       "flaky-1",
		Category: queue.CategoryBatchStockUpdate,
		Payload: queue.MustMarshal(job_dto.BatchStockUpdatePayload{TenantID: "t", UserID: "u",
			Updates: []job_dto.StockUpdate{{ProductItemID: "i", StoreID: "s"}}}),
		Priority:    queue.CategoryBatchStockUpdate.DefaultPriority(),
		RetryPolicy: queue.RetryPolicy{MaxAttempts: 2, Backoff: "exponential", InitialDelayMs: 10},
		Retention:   queue.DefaultRetention,
	})
	require.NoError(t, err)

	store := &failingStore{Store: inner, completeErr: errors.New("broker connection reset")}
	wh := &worker_handler.WorkerHandler{
		ApplyStockUpdate: func(context.Context, string, string, *string, job_dto.StockUpdate) error { return nil },
	}
	pool := NewWorkerPool(store, NewRouter(wh), fastConfig())
	require.NoError(t, pool.Start(context.Background()))
	defer pool.Stop()

	require.Eventually(t, func() bool {
		m, err := inner.Metrics(context.Background())
		return err == nil && m.Failed == 1
	}, 10*time.Second, 10*time.Millisecond)

	rec, err := inner.Get(context.Background(), "flaky-1")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Attempts)

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.retried, 2)
	assert.True(t, app_error.IsInfra(store.retried[0]))
}

func TestWorkerPool_RecoversStalledJobsOnStart(t *testing.T) {
	store := newTestQueue(t)
	enqueueBatch(t, store, 1)
	_, err := store.Dequeue(context.Background())
	require.NoError(t, err)

	wh := &worker_handler.WorkerHandler{
		ApplyStockUpdate: func(context.Context, string, string, *string, job_dto.StockUpdate) error { return nil },
	}
	pool := NewWorkerPool(store, NewRouter(wh), fastConfig())
	require.NoError(t, pool.Start(context.Background()))
	defer pool.Stop()

	waitCompleted(t, store, 1)
}

func TestWorkerPool_StartWithoutBroker(t *testing.T) {
	pool := NewWorkerPool(nil, NewRouter(&worker_handler.WorkerHandler{}), DefaultPoolConfig())
	assert.ErrorIs(t, pool.Start(context.Background()), app_error.ErrNotConfigured)
	pool.Stop()
}

func TestProgressTracker_ClampsAndNeverDecreases(t *testing.T) {
	store := newTestQueue(t)
	enqueueBatch(t, store, 1)

	var seen []int
	tracker := newProgressTracker(context.Background(), store, "batch-00")
	for _, v := range []int{-5, 20, 10, 150, 90} {
		tracker.Report(v)
		rec, err := store.Get(context.Background(), "batch-00")
		require.NoError(t, err)
		seen = append(seen, rec.Progress)
	}
	assert.Equal(t, []int{0, 20, 20, 100, 100}, seen)
}
