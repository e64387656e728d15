package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xenn00/warehouse-jobs/internal/entity"
	app_error "github.com/xenn00/warehouse-jobs/internal/errors"
	"github.com/xenn00/warehouse-jobs/internal/queue"
)

type memoryArchive struct {
	mu        sync.Mutex
	docs      []entity.DLQJob
	inserts   int
	insertErr error
}

func (m *memoryArchive) Insert(_ context.Context, doc entity.DLQJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserts++
	if m.insertErr != nil {
		return m.insertErr
	}
	m.docs = append(m.docs, doc)
	return nil
}

func (m *memoryArchive) Stats(context.Context) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := map[string]int64{}
	for _, d := range m.docs {
		stats[d.Type]++
	}
	return stats, nil
}

func deadLetter(id string) queue.DeadLetter {
	return queue.DeadLetter{
		Envelope: queue.Envelope{ID: id, Category: queue.CategoryExpirationAlert, Priority: 2, Payload: []byte(`{"tenantId":"t"}`)},
		Attempts: 3,
		ErrorMsg: "broker gone",
		FailedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC).UnixMilli(),
	}
}

func testDLQConfig() DLQConfig {
	cfg := DefaultDLQConfig("warehouse")
	cfg.PopTimeout = 100 * time.Millisecond
	cfg.RetryBackoff = 50 * time.Millisecond
	cfg.MaxBackoff = 200 * time.Millisecond
	return cfg
}

func TestDLQWorker_ArchivesDeadLetters(t *testing.T) {
	store := newTestQueue(t)
	archive := &memoryArchive{}
	w := NewDLQWorker(store, archive, testDLQConfig())
	ctx := context.Background()

	require.NoError(t, store.PushDeadLetter(ctx, deadLetter("job-1")))
	assert.True(t, w.drainOne(ctx))

	require.Len(t, archive.docs, 1)
	doc := archive.docs[0]
	assert.Equal(t, "job-1", doc.JobID)
	assert.Equal(t, "warehouse-jobs", doc.Queue)
	assert.Equal(t, "expiration-alert", doc.Type)
	assert.Equal(t, 3, doc.Attempts)
	assert.Equal(t, "pending", doc.Status)
	assert.Equal(t, 7*24*time.Hour, doc.ExpireAt.Sub(doc.CreatedAt))

	stats, err := w.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"expiration-alert": 1}, stats)
}

func TestDLQWorker_RequeuesWhenArchiveFails(t *testing.T) {
	store := newTestQueue(t)
	archive := &memoryArchive{insertErr: errors.New("mongo unavailable")}
	w := NewDLQWorker(store, archive, testDLQConfig())
	ctx := context.Background()

	require.NoError(t, store.PushDeadLetter(ctx, deadLetter("job-2")))
	assert.False(t, w.drainOne(ctx))

	dl, err := store.PopDeadLetter(ctx, 100*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, dl)
	assert.Equal(t, "job-2", dl.Envelope.ID)
}

func TestDLQWorker_WithoutArchiveOnlyLogs(t *testing.T) {
	store := newTestQueue(t)
	w := NewDLQWorker(store, nil, testDLQConfig())
	ctx := context.Background()

	require.NoError(t, store.PushDeadLetter(ctx, deadLetter("job-3")))
	assert.True(t, w.drainOne(ctx))

	_, err := w.Stats(ctx)
	assert.ErrorIs(t, err, app_error.ErrArchiveDisabled)
}

func TestDLQWorker_StartStops(t *testing.T) {
	store := newTestQueue(t)
	archive := &memoryArchive{}
	w := NewDLQWorker(store, archive, testDLQConfig())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	require.NoError(t, store.PushDeadLetter(context.Background(), deadLetter("job-4")))

	require.Eventually(t, func() bool {
		stats, _ := w.Stats(context.Background())
		return stats["expiration-alert"] == 1
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	w.Wait()
}

func TestDLQWorker_BacksOffWhileArchiveIsDown(t *testing.T) {
	store := newTestQueue(t)
	archive := &memoryArchive{insertErr: errors.New("mongo unavailable")}
	w := NewDLQWorker(store, archive, testDLQConfig())
	require.NoError(t, store.PushDeadLetter(context.Background(), deadLetter("job-5")))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	time.Sleep(500 * time.Millisecond)
	cancel()
	w.Wait()

	archive.mu.Lock()
	attempts := archive.inserts
	archive.mu.Unlock()
	// 50ms, 100ms, 200ms, 200ms... leaves room for about five attempts
	assert.GreaterOrEqual(t, attempts, 2)
	assert.LessOrEqual(t, attempts, 6)

	dl, err := store.PopDeadLetter(context.Background(), 100*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, dl, "the dead letter stays queued")
	assert.Equal(t, "job-5", dl.Envelope.ID)
}

func TestDLQWorker_BackoffGrowsAndResets(t *testing.T) {
	store := newTestQueue(t)
	archive := &memoryArchive{insertErr: errors.New("mongo unavailable")}
	w := NewDLQWorker(store, archive, testDLQConfig())
	ctx := context.Background()

	var delays []time.Duration
	for i := 0; i < 4; i++ {
		require.NoError(t, store.PushDeadLetter(ctx, deadLetter("job-6")))
		assert.False(t, w.drainOne(ctx))
		delays = append(delays, w.backoff())
		_, err := store.PopDeadLetter(ctx, 100*time.Millisecond)
		require.NoError(t, err)
	}
	assert.Equal(t, []time.Duration{
		50 * time.Millisecond, 100 * time.Millisecond, 200 * time.Millisecond, 200 * time.Millisecond,
	}, delays)

	archive.mu.Lock()
	archive.insertErr = nil
	archive.mu.Unlock()
	require.NoError(t, store.PushDeadLetter(ctx, deadLetter("job-6")))
	assert.True(t, w.drainOne(ctx))
	assert.Equal(t, 0, w.failures)
}
