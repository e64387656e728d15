package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xenn00/warehouse-jobs/config"
	app_error "github.com/xenn00/warehouse-jobs/internal/errors"
	"github.com/xenn00/warehouse-jobs/internal/queue"
	"go.uber.org/atomic"
)

type PoolConfig struct {
	Concurrency     int
	RateMax         int
	RateDuration    time.Duration
	PollInterval    time.Duration
	CleanupInterval time.Duration
	CleanupGrace    time.Duration
}

func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Concurrency:     5,
		RateMax:         10,
		RateDuration:    time.Second,
		PollInterval:    500 * time.Millisecond,
		CleanupInterval: time.Hour,
		CleanupGrace:    24 * time.Hour,
	}
}

func PoolConfigFrom(cfg *config.AppConfig) PoolConfig {
	pc := DefaultPoolConfig()
	if cfg == nil {
		return pc
	}
	q := cfg.QUEUE
	if q.Concurrency > 0 {
		pc.Concurrency = q.Concurrency
	}
	if q.RateMax > 0 {
		pc.RateMax = q.RateMax
	}
	if q.RateDuration > 0 {
		pc.RateDuration = q.RateDuration
	}
	if q.PollInterval > 0 {
		pc.PollInterval = q.PollInterval
	}
	if q.CleanupInterval > 0 {
		pc.CleanupInterval = q.CleanupInterval
	}
	if q.CleanupGrace > 0 {
		pc.CleanupGrace = q.CleanupGrace
	}
	return pc
}

// WorkerPool runs Concurrency workers against one queue. At most RateMax jobs
// start in any rolling RateDuration.
type WorkerPool struct {
	Store  queue.Store
	Router *Router
	Config PoolConfig

	limiter *startWindow
	closing *atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// onStart observes every admitted job start.
	onStart func(jobID string, at time.Time)
}

func NewWorkerPool(store queue.Store, router *Router, cfg PoolConfig) *WorkerPool {
	return &WorkerPool{
		Store:   store,
		Router:  router,
		Config:  cfg,
		limiter: newStartWindow(cfg.RateMax, cfg.RateDuration),
		closing: atomic.NewBool(false),
	}
}

func (wp *WorkerPool) Start(ctx context.Context) error {
	if wp.Store == nil {
		return app_error.ErrNotConfigured
	}

	recovered, err := wp.Store.RecoverStalled(ctx)
	if err != nil {
		return app_error.Infra("recover stalled jobs", err)
	}
	if recovered > 0 {
		log.Warn().Str("queue", wp.Store.Name()).Int("jobs", recovered).Msg("stalled jobs returned to waiting")
	}

	ctx, wp.cancel = context.WithCancel(ctx)
	log.Info().Str("queue", wp.Store.Name()).Msgf("Starting worker pool with %d workers", wp.Config.Concurrency)

	for i := 0; i < wp.Config.Concurrency; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}

	wp.wg.Add(1)
	go wp.cleanupLoop(ctx)
	return nil
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()
	log.Info().Msgf("Worker %d started", id)

	for {
		if wp.closing.Load() || ctx.Err() != nil {
			log.Info().Msgf("Worker %d stopping", id)
			return
		}

		job, err := wp.Store.Dequeue(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Error().Err(err).Int("worker", id).Msg("Worker: failed to dequeue job")
			}
			wp.sleep(ctx)
			continue
		}
		if job == nil {
			wp.sleep(ctx)
			continue
		}

		// A claimed job always runs; shutdown does not skip its start slot.
		runCtx := context.WithoutCancel(ctx)
		startedAt, _ := wp.limiter.Wait(runCtx)
		if wp.onStart != nil {
			wp.onStart(job.Envelope.ID, startedAt)
		}
		wp.process(runCtx, id, job)
	}
}

func (wp *WorkerPool) process(ctx context.Context, workerID int, job *queue.ActiveJob) {
	id := job.Envelope.ID
	logger := log.With().Str("job_id", id).Str("type", string(job.Envelope.Category)).
		Int("attempt", job.Attempt).Int("worker", workerID).Logger()
	logger.Info().Msg("job started")

	tracker := newProgressTracker(ctx, wp.Store, id)
	result, err := wp.Router.Execute(ctx, job, tracker.Report)
	if err != nil {
		wp.retry(ctx, job, err)
		return
	}

	if err := wp.Store.Complete(ctx, job, result); err != nil {
		logger.Error().Err(err).Msg("failed to persist job result")
		wp.retry(ctx, job, app_error.Infra("complete job", err))
		return
	}

	logger.Info().Bool("success", result.Success).Int("processed", result.Result.ProcessedCount).
		Int("failed", result.Result.FailedCount).Int64("duration_ms", result.DurationMs).Msg("job completed")
}

func (wp *WorkerPool) retry(ctx context.Context, job *queue.ActiveJob, cause error) {
	scheduled, err := wp.Store.Retry(ctx, job, cause)
	if err != nil {
		log.Error().Err(err).Str("job_id", job.Envelope.ID).Msg("failed to record job failure")
		return
	}
	if !scheduled {
		log.Error().Str("job_id", job.Envelope.ID).Str("type", string(job.Envelope.Category)).
			Str("error", cause.Error()).Msg("job failed permanently, moved to dead letters")
	}
}

func (wp *WorkerPool) cleanupLoop(ctx context.Context) {
	defer wp.wg.Done()
	ticker := time.NewTicker(wp.Config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := wp.Store.Clean(ctx, wp.Config.CleanupGrace, queue.DefaultCleanLimit); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Str("queue", wp.Store.Name()).Msg("periodic clean failed")
			}
		}
	}
}

func (wp *WorkerPool) sleep(ctx context.Context) {
	t := time.NewTimer(wp.Config.PollInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Stop stops claiming new jobs and waits for running ones to finish.
func (wp *WorkerPool) Stop() {
	if !wp.closing.CompareAndSwap(false, true) {
		return
	}
	if wp.cancel != nil {
		wp.cancel()
	}
	wp.Wait()
}

func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
	log.Info().Msg("All workers have stopped")
}
