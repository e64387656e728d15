package worker_service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/xenn00/warehouse-jobs/internal/dtos/job_dto"
	inventory_repo "github.com/xenn00/warehouse-jobs/internal/repo/inventory"
	"github.com/xenn00/warehouse-jobs/internal/utils"
)

type Exporter interface {
	// Export stores the report and returns its download URL.
	Export(ctx context.Context, tenantID string, reportType job_dto.ReportType, format job_dto.ReportFormat, rows []inventory_repo.ReportRow) (string, error)
}

// ReportArtifact is what the exporter caches for the external renderer.
type ReportArtifact struct {
	ReportID   string                     `json:"reportId"`
	TenantID   string                     `json:"tenantId"`
	ReportType job_dto.ReportType         `json:"reportType"`
	Format     job_dto.ReportFormat       `json:"format"`
	Rows       []inventory_repo.ReportRow `json:"rows"`
	CreatedAt  time.Time                  `json:"createdAt"`
}

type RedisExporter struct {
	Redis *redis.Client
	TTL   time.Duration
	NewID func() string
	Now   func() time.Time
}

func NewRedisExporter(rdb *redis.Client, ttl time.Duration) *RedisExporter {
	return &RedisExporter{
		Redis: rdb,
		TTL:   ttl,
		NewID: func() string { return uuid.New().String() },
		Now:   time.Now,
	}
}

func ReportCacheKey(reportID string) string {
	return "report:" + reportID
}

// ReportURL is the download path handed back in job results. The HTTP router
// serves it from the same cache entry as /api/v1/reports/{reportId}.
func ReportURL(tenantID, reportID string, format job_dto.ReportFormat) string {
	return fmt.Sprintf("/reports/%s/%s.%s", tenantID, reportID, format)
}

func (e *RedisExporter) Export(ctx context.Context, tenantID string, reportType job_dto.ReportType, format job_dto.ReportFormat, rows []inventory_repo.ReportRow) (string, error) {
	if e.Redis == nil {
		return "", fmt.Errorf("report store is not configured")
	}

	artifact := ReportArtifact{
		ReportID:   e.NewID(),
		TenantID:   tenantID,
		ReportType: reportType,
		Format:     format,
		Rows:       rows,
		CreatedAt:  e.Now(),
	}
	if err := utils.SetCacheData(ctx, e.Redis, ReportCacheKey(artifact.ReportID), &artifact, e.TTL); err != nil {
		return "", fmt.Errorf("failed to store report %s: %w", artifact.ReportID, err)
	}
	return ReportURL(tenantID, artifact.ReportID, format), nil
}

// LoadReport returns a cached artifact, or nil when it expired or never existed.
func LoadReport(ctx context.Context, rdb *redis.Client, reportID string) (*ReportArtifact, error) {
	return utils.GetCacheData[ReportArtifact](ctx, rdb, ReportCacheKey(reportID))
}
