package worker_handler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/xenn00/warehouse-jobs/internal/dtos/job_dto"
	app_error "github.com/xenn00/warehouse-jobs/internal/errors"
	inventory_repo "github.com/xenn00/warehouse-jobs/internal/repo/inventory"
	worker_service "github.com/xenn00/warehouse-jobs/internal/worker/worker-service"
)

// ProgressFunc publishes a 0-100 completion value for the running job.
type ProgressFunc func(percent int)

type AlertDispatcher interface {
	Dispatch(ctx context.Context, channel job_dto.AlertChannel, notice worker_service.ExpirationNotice) error
}

type WorkerHandler struct {
	Inventory  inventory_repo.InventoryRepoContract
	Exporter   worker_service.Exporter
	Dispatcher AlertDispatcher

	// Per item operations. They default to the inventory repository and can
	// be swapped independently.
	ImportSerial     func(ctx context.Context, tenantID, productID, userID string, rec job_dto.SerialRecord) error
	ApplyStockUpdate func(ctx context.Context, tenantID, userID string, reason *string, update job_dto.StockUpdate) error

	Now func() time.Time
}

func NewWorkerHandler(inventory inventory_repo.InventoryRepoContract, exporter worker_service.Exporter, dispatcher AlertDispatcher) *WorkerHandler {
	return &WorkerHandler{
		Inventory:        inventory,
		Exporter:         exporter,
		Dispatcher:       dispatcher,
		ImportSerial:     inventory.InsertSerial,
		ApplyStockUpdate: inventory.ApplyStockUpdate,
		Now:              time.Now,
	}
}

func decodePayload[T any](raw json.RawMessage) (*T, error) {
	var payload T
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, app_error.NonRecoverable("INVALID_PAYLOAD", "invalid job payload", err)
	}
	return &payload, nil
}

// itemProgress is floor((i+1)/n*100) for a zero based item index.
func itemProgress(i, n int) int {
	if n <= 0 {
		return 100
	}
	return (i + 1) * 100 / n
}
