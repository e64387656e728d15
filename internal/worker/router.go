package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	app_error "github.com/xenn00/warehouse-jobs/internal/errors"
	"github.com/xenn00/warehouse-jobs/internal/queue"
	worker_handler "github.com/xenn00/warehouse-jobs/internal/worker/worker-handler"
)

type Handler func(ctx context.Context, raw json.RawMessage, progress worker_handler.ProgressFunc) (queue.Result, error)

type Router struct {
	wh *worker_handler.WorkerHandler
}

func NewRouter(wh *worker_handler.WorkerHandler) *Router {
	return &Router{wh: wh}
}

func (r *Router) Route(category queue.Category) (Handler, error) {
	switch category {
	case queue.CategoryBulkSerialImport:
		return r.wh.HandleBulkSerialImport, nil
	case queue.CategoryGenerateReport:
		return r.wh.HandleGenerateReport, nil
	case queue.CategoryBatchStockUpdate:
		return r.wh.HandleBatchStockUpdate, nil
	case queue.CategoryExpirationAlert:
		return r.wh.HandleExpirationAlert, nil
	default:
		return nil, fmt.Errorf("%w: %s", app_error.ErrUnknownCategory, category)
	}
}

// Execute runs one attempt of a job. Handler errors and panics become a
// failed Result; only infrastructure errors are returned so the broker can
// retry the attempt.
func (r *Router) Execute(ctx context.Context, job *queue.ActiveJob, progress worker_handler.ProgressFunc) (queue.Result, error) {
	handler, err := r.Route(job.Envelope.Category)
	if err != nil {
		return queue.FailedResult(job.Envelope.Category, "UNKNOWN_CATEGORY", err.Error(), false, 0), nil
	}
	return invoke(ctx, job, handler, progress)
}

func invoke(ctx context.Context, job *queue.ActiveJob, handler Handler, progress worker_handler.ProgressFunc) (res queue.Result, err error) {
	category := job.Envelope.Category
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			log.Error().Str("job_id", job.Envelope.ID).Str("type", string(category)).Interface("panic", p).Msg("handler panicked")
			res = queue.FailedResult(category, "HANDLER_PANIC", fmt.Sprint(p), true, time.Since(start))
			err = nil
		}
	}()

	res, err = handler(ctx, job.Envelope.Payload, progress)
	if err != nil {
		if app_error.IsInfra(err) {
			return queue.Result{}, err
		}
		return failedFrom(category, err, time.Since(start)), nil
	}

	res.JobType = string(category)
	res.DurationMs = time.Since(start).Milliseconds()
	return res, nil
}

func failedFrom(category queue.Category, err error, took time.Duration) queue.Result {
	var jobErr *app_error.JobError
	if errors.As(err, &jobErr) {
		return queue.FailedResult(category, jobErr.Code, jobErr.Error(), jobErr.Recoverable, took)
	}
	return queue.FailedResult(category, "HANDLER_ERROR", err.Error(), true, took)
}
