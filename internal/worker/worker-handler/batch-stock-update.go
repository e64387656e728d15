package worker_handler

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"
	"github.com/xenn00/warehouse-jobs/internal/dtos/job_dto"
	"github.com/xenn00/warehouse-jobs/internal/queue"
)

// HandleBatchStockUpdate applies each update in its own transaction. A failed
// update never rolls back the ones before it.
func (wh *WorkerHandler) HandleBatchStockUpdate(ctx context.Context, raw json.RawMessage, progress ProgressFunc) (queue.Result, error) {
	payload, err := decodePayload[job_dto.BatchStockUpdatePayload](raw)
	if err != nil {
		return queue.Result{}, err
	}

	agg := queue.NewAggregator()
	total := len(payload.Updates)
	for i, update := range payload.Updates {
		if err := wh.ApplyStockUpdate(ctx, payload.TenantID, payload.UserID, payload.Reason, update); err != nil {
			agg.Failed(i, err.Error())
		} else {
			agg.Processed()
		}
		progress(itemProgress(i, total))
	}
	if total == 0 {
		progress(100)
	}

	res := agg.Result(queue.CategoryBatchStockUpdate)
	log.Info().Str("tenant_id", payload.TenantID).
		Int("processed", res.Result.ProcessedCount).Int("failed", res.Result.FailedCount).Msg("batch stock update finished")
	return res, nil
}
