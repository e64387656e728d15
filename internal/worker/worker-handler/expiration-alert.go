package worker_handler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xenn00/warehouse-jobs/internal/dtos/job_dto"
	app_error "github.com/xenn00/warehouse-jobs/internal/errors"
	"github.com/xenn00/warehouse-jobs/internal/queue"
	worker_service "github.com/xenn00/warehouse-jobs/internal/worker/worker-service"
)

const MaxExpiringItems = 1000

// HandleExpirationAlert finds items expiring in (today, today+days] and hands
// one notice to every requested channel. A channel failure is recorded with
// the channel's index and does not stop the remaining channels.
func (wh *WorkerHandler) HandleExpirationAlert(ctx context.Context, raw json.RawMessage, progress ProgressFunc) (queue.Result, error) {
	payload, err := decodePayload[job_dto.ExpirationAlertPayload](raw)
	if err != nil {
		return queue.Result{}, err
	}
	if payload.DaysThreshold < 1 {
		return queue.Result{}, app_error.NonRecoverable("INVALID_PAYLOAD", "daysThreshold must be at least 1", nil)
	}

	now := wh.Now()
	today := startOfDay(now)
	until := today.AddDate(0, 0, payload.DaysThreshold)

	items, err := wh.Inventory.FindExpiringItems(ctx, payload.TenantID, today, until, MaxExpiringItems)
	if err != nil {
		return queue.Result{}, app_error.Recoverable("QUERY_FAILED", "expiring items query failed", err)
	}
	if len(items) > MaxExpiringItems {
		items = items[:MaxExpiringItems]
	}
	progress(25)

	notice := worker_service.NewExpirationNotice(payload.TenantID, payload.DaysThreshold, items, now, payload.Metadata)
	channels := queue.NewAggregator()
	for i, ch := range payload.Channels {
		if err := wh.Dispatcher.Dispatch(ctx, ch, notice); err != nil {
			log.Warn().Err(err).Str("tenant_id", payload.TenantID).Str("channel", string(ch)).Msg("alert channel failed")
			channels.Failed(i, fmt.Sprintf("%s: %v", ch, err))
			continue
		}
		channels.Processed()
	}
	progress(100)

	res := channels.Result(queue.CategoryExpirationAlert)
	res.Result.ProcessedCount = len(items)
	return res, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
