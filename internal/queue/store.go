package queue

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is the broker contract used by submission, the worker pool and admin.
type Store interface {
	Name() string

	Add(ctx context.Context, env Envelope) (*Handle, error)
	Dequeue(ctx context.Context) (*ActiveJob, error)
	UpdateProgress(ctx context.Context, jobID string, percent int) error
	Complete(ctx context.Context, job *ActiveJob, result Result) error
	// Retry records a failed attempt. It reports whether another attempt was
	// scheduled; false means the job moved to the failed set.
	Retry(ctx context.Context, job *ActiveJob, cause error) (bool, error)
	RecoverStalled(ctx context.Context) (int, error)

	Get(ctx context.Context, jobID string) (*Record, error)
	Metrics(ctx context.Context) (Metrics, error)
	Clean(ctx context.Context, grace time.Duration, limit int) (CleanReport, error)

	PopDeadLetter(ctx context.Context, timeout time.Duration) (*DeadLetter, error)
	PushDeadLetter(ctx context.Context, dl DeadLetter) error
}

type State string

const (
	StateWaiting   State = "waiting"
	StateActive    State = "active"
	StateDelayed   State = "delayed"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Handle is returned to submitters and wraps the computed job id.
type Handle struct {
	ID         string    `json:"id"`
	Queue      string    `json:"queue"`
	Category   Category  `json:"category"`
	Priority   int       `json:"priority"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

type ActiveJob struct {
	Envelope  Envelope
	Attempt   int
	StartedAt time.Time
}

type Record struct {
	ID           string     `json:"id"`
	Queue        string     `json:"queue"`
	Category     Category   `json:"category"`
	Priority     int        `json:"priority"`
	State        State      `json:"state"`
	Attempts     int        `json:"attempts"`
	Progress     int        `json:"progress"`
	Result       *Result    `json:"result,omitempty"`
	FailedReason string     `json:"failed_reason,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	Envelope     Envelope   `json:"envelope"`
}

type Metrics struct {
	QueueName string `json:"queueName"`
	Waiting   int64  `json:"waiting"`
	Active    int64  `json:"active"`
	Completed int64  `json:"completed"`
	Failed    int64  `json:"failed"`
	Delayed   int64  `json:"delayed"`
	Total     int64  `json:"total"`
}

type CleanReport struct {
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// DeadLetter is pushed once a job exhausts its attempts.
type DeadLetter struct {
	Envelope Envelope `json:"envelope"`
	Attempts int      `json:"attempts"`
	ErrorMsg string   `json:"error_msg"`
	FailedAt int64    `json:"failed_at"`
}

const (
	waitingSet   = "waiting"
	delayedSet   = "delayed"
	activeSet    = "active"
	completedSet = "completed"
	failedSet    = "failed"
	deadLetters  = "dlq"
	sequenceKey  = "seq"

	// priority dominates the waiting score; the enqueue sequence breaks ties.
	// MaxPriority*priorityWeight stays far below 2^53 so the sequence is exact.
	priorityWeight = 1e12
	promoteBatch   = 100
)

type RedisStore struct {
	Redis *redis.Client
	name  string
	now   func() time.Time
}

type StoreOption func(*RedisStore)

// WithClock overrides the clock used for scores and timestamps.
func WithClock(clock func() time.Time) StoreOption {
	return func(s *RedisStore) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewRedisStore returns a store bound to one queue. A nil client yields a nil
// Store so callers surface ErrNotConfigured on first use.
func NewRedisStore(rdb *redis.Client, name string, opts ...StoreOption) Store {
	if rdb == nil {
		return nil
	}
	s := &RedisStore{Redis: rdb, name: name, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) Name() string {
	return s.name
}

func (s *RedisStore) key(part string) string {
	return s.name + ":" + part
}

func (s *RedisStore) jobPrefix() string {
	return s.name + ":job:"
}

func (s *RedisStore) jobKey(id string) string {
	return s.jobPrefix() + id
}
