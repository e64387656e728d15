package job_service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/xenn00/warehouse-jobs/internal/dtos/job_dto"
	app_error "github.com/xenn00/warehouse-jobs/internal/errors"
	"github.com/xenn00/warehouse-jobs/internal/queue"
)

type submitOptions struct {
	priority *int
}

type SubmitOption func(*submitOptions)

// WithPriority overrides the category default. Lower values dequeue first.
func WithPriority(priority int) SubmitOption {
	return func(o *submitOptions) {
		o.priority = &priority
	}
}

type JobService struct {
	Store    queue.Store
	Validate *validator.Validate
	Now      func() time.Time
}

func NewJobService(store queue.Store) JobServiceContract {
	return &JobService{
		Store:    store,
		Validate: job_dto.NewValidator(),
		Now:      time.Now,
	}
}

func (s *JobService) SubmitBulkSerialImport(ctx context.Context, payload job_dto.BulkSerialImportPayload, opts ...SubmitOption) (*queue.Handle, error) {
	return s.submit(ctx, queue.CategoryBulkSerialImport, payload.TenantID, func(time.Time) string {
		return payload.ProductID
	}, payload, opts)
}

func (s *JobService) SubmitGenerateReport(ctx context.Context, payload job_dto.GenerateReportPayload, opts ...SubmitOption) (*queue.Handle, error) {
	return s.submit(ctx, queue.CategoryGenerateReport, payload.TenantID, func(now time.Time) string {
		return fmt.Sprintf("%s-%d", payload.ReportType, now.UnixMilli())
	}, payload, opts)
}

func (s *JobService) SubmitBatchStockUpdate(ctx context.Context, payload job_dto.BatchStockUpdatePayload, opts ...SubmitOption) (*queue.Handle, error) {
	return s.submit(ctx, queue.CategoryBatchStockUpdate, payload.TenantID, func(time.Time) string {
		return strconv.Itoa(len(payload.Updates))
	}, payload, opts)
}

func (s *JobService) SubmitExpirationAlert(ctx context.Context, payload job_dto.ExpirationAlertPayload, opts ...SubmitOption) (*queue.Handle, error) {
	return s.submit(ctx, queue.CategoryExpirationAlert, payload.TenantID, func(time.Time) string {
		return strconv.Itoa(payload.DaysThreshold)
	}, payload, opts)
}

// submit builds the envelope with the fixed retry and retention policy and
// hands it to the broker. Broker errors are returned unchanged.
func (s *JobService) submit(ctx context.Context, category queue.Category, tenantID string, uniquenessKey func(time.Time) string, payload any, opts []SubmitOption) (*queue.Handle, error) {
	if s.Store == nil {
		return nil, app_error.ErrNotConfigured
	}
	if err := s.Validate.Struct(payload); err != nil {
		return nil, fmt.Errorf("%w: %v", app_error.ErrInvalidPayload, err)
	}

	o := submitOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	priority := category.DefaultPriority()
	if o.priority != nil {
		priority = *o.priority
	}
	if priority < queue.MinPriority || priority > queue.MaxPriority {
		return nil, fmt.Errorf("%w: priority %d outside [%d, %d]", app_error.ErrInvalidPayload, priority, queue.MinPriority, queue.MaxPriority)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", app_error.ErrInvalidPayload, err)
	}

	now := s.Now()
	env := queue.Envelope{
		ID:          queue.JobID(tenantID, category, uniquenessKey(now), now),
		Category:    category,
		Payload:     raw,
		Priority:    priority,
		RetryPolicy: queue.DefaultRetryPolicy,
		Retention:   queue.DefaultRetention,
		CreatedAt:   now.UnixMilli(),
	}

	handle, err := s.Store.Add(ctx, env)
	if err != nil {
		return nil, err
	}

	log.Info().Str("job_id", handle.ID).Str("type", string(category)).Str("tenant_id", tenantID).
		Int("priority", priority).Msg("job submitted")
	return handle, nil
}
