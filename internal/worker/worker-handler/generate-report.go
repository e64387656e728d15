package worker_handler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xenn00/warehouse-jobs/internal/dtos/job_dto"
	"github.com/xenn00/warehouse-jobs/internal/entity"
	app_error "github.com/xenn00/warehouse-jobs/internal/errors"
	"github.com/xenn00/warehouse-jobs/internal/queue"
	inventory_repo "github.com/xenn00/warehouse-jobs/internal/repo/inventory"
)

func (wh *WorkerHandler) HandleGenerateReport(ctx context.Context, raw json.RawMessage, progress ProgressFunc) (queue.Result, error) {
	payload, err := decodePayload[job_dto.GenerateReportPayload](raw)
	if err != nil {
		return queue.Result{}, err
	}
	if payload.TenantID == "" {
		return queue.Result{}, app_error.NonRecoverable("INVALID_PAYLOAD", "tenantId is required", nil)
	}
	progress(25)

	rows, err := wh.buildReport(ctx, payload)
	if err != nil {
		return queue.Result{}, err
	}
	progress(75)

	url, err := wh.Exporter.Export(ctx, payload.TenantID, payload.ReportType, payload.Format, rows)
	if err != nil {
		return queue.Result{}, app_error.Recoverable("EXPORT_FAILED", "report export failed", err)
	}
	progress(100)

	return queue.Result{
		Success: true,
		JobType: string(queue.CategoryGenerateReport),
		Result: queue.ResultData{
			ProcessedCount: len(rows),
			ReportURL:      url,
		},
	}, nil
}

func (wh *WorkerHandler) buildReport(ctx context.Context, payload *job_dto.GenerateReportPayload) ([]inventory_repo.ReportRow, error) {
	filter := entity.InventoryFilter{}
	if f := payload.Filters; f != nil {
		filter = entity.InventoryFilter{
			StoreID:    f.StoreID,
			ProductID:  f.ProductID,
			CategoryID: f.CategoryID,
			From:       f.From,
			To:         f.To,
		}
	}

	switch payload.ReportType {
	case job_dto.ReportStockLevels:
		return wh.Inventory.StockLevels(ctx, payload.TenantID, filter)
	case job_dto.ReportExpirationDashboard:
		return wh.Inventory.ExpirationDashboard(ctx, payload.TenantID, filter)
	case job_dto.ReportBatchKPIs:
		return wh.Inventory.BatchKPIs(ctx, payload.TenantID, filter)
	case job_dto.ReportMovements:
		return wh.Inventory.Movements(ctx, payload.TenantID, filter)
	default:
		return nil, app_error.NonRecoverable("UNKNOWN_REPORT_TYPE", fmt.Sprintf("unknown report type %q", payload.ReportType), nil)
	}
}
