package job_service

import (
	"context"
	"time"

	"github.com/xenn00/warehouse-jobs/internal/dtos/job_dto"
	"github.com/xenn00/warehouse-jobs/internal/queue"
)

type JobServiceContract interface {
	SubmitBulkSerialImport(ctx context.Context, payload job_dto.BulkSerialImportPayload, opts ...SubmitOption) (*queue.Handle, error)
	SubmitGenerateReport(ctx context.Context, payload job_dto.GenerateReportPayload, opts ...SubmitOption) (*queue.Handle, error)
	SubmitBatchStockUpdate(ctx context.Context, payload job_dto.BatchStockUpdatePayload, opts ...SubmitOption) (*queue.Handle, error)
	SubmitExpirationAlert(ctx context.Context, payload job_dto.ExpirationAlertPayload, opts ...SubmitOption) (*queue.Handle, error)
}

type AdminServiceContract interface {
	Metrics(ctx context.Context) (queue.Metrics, error)
	Clean(ctx context.Context, grace time.Duration, limit int) (queue.CleanReport, error)
	GetJob(ctx context.Context, jobID string) (*queue.Record, error)
	DLQStats(ctx context.Context) (map[string]int64, error)
}
