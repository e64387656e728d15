package inventory_repo

import (
	"context"
	"time"

	"github.com/xenn00/warehouse-jobs/internal/dtos/job_dto"
	"github.com/xenn00/warehouse-jobs/internal/entity"
)

type ReportRow map[string]any

type InventoryRepoContract interface {
	InsertSerial(ctx context.Context, tenantID, productID, userID string, rec job_dto.SerialRecord) error
	ApplyStockUpdate(ctx context.Context, tenantID, userID string, reason *string, update job_dto.StockUpdate) error
	FindExpiringItems(ctx context.Context, tenantID string, after, until time.Time, limit int) ([]entity.ProductItem, error)

	StockLevels(ctx context.Context, tenantID string, filter entity.InventoryFilter) ([]ReportRow, error)
	ExpirationDashboard(ctx context.Context, tenantID string, filter entity.InventoryFilter) ([]ReportRow, error)
	BatchKPIs(ctx context.Context, tenantID string, filter entity.InventoryFilter) ([]ReportRow, error)
	Movements(ctx context.Context, tenantID string, filter entity.InventoryFilter) ([]ReportRow, error)
}
