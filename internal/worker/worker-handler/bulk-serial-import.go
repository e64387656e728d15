package worker_handler

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/xenn00/warehouse-jobs/internal/dtos/job_dto"
	app_error "github.com/xenn00/warehouse-jobs/internal/errors"
	"github.com/xenn00/warehouse-jobs/internal/queue"
)

func (wh *WorkerHandler) HandleBulkSerialImport(ctx context.Context, raw json.RawMessage, progress ProgressFunc) (queue.Result, error) {
	payload, err := decodePayload[job_dto.BulkSerialImportPayload](raw)
	if err != nil {
		return queue.Result{}, err
	}

	agg := queue.NewAggregator()
	total := len(payload.Serials)
	for i, rec := range payload.Serials {
		err := wh.ImportSerial(ctx, payload.TenantID, payload.ProductID, payload.UserID, rec)
		switch {
		case err == nil:
			agg.Processed()
		case errors.Is(err, app_error.ErrDuplicate):
			agg.Failed(i, "Duplicate serial: "+rec.SerialValue)
		default:
			agg.Failed(i, err.Error())
		}
		progress(itemProgress(i, total))
	}
	if total == 0 {
		progress(100)
	}

	res := agg.Result(queue.CategoryBulkSerialImport)
	log.Info().Str("tenant_id", payload.TenantID).Str("product_id", payload.ProductID).
		Int("processed", res.Result.ProcessedCount).Int("failed", res.Result.FailedCount).Msg("serial import finished")
	return res, nil
}
