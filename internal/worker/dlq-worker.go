package worker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xenn00/warehouse-jobs/internal/entity"
	app_error "github.com/xenn00/warehouse-jobs/internal/errors"
	"github.com/xenn00/warehouse-jobs/internal/queue"
)

// DLQWorker drains the broker's dead letter list into the archive. Without an
// archive dead letters are only logged.
type DLQWorker struct {
	Store   queue.Store
	Archive DLQArchive
	Config  DLQConfig

	now func() time.Time
	wg  sync.WaitGroup

	// consecutive pop or archive failures; owned by the draining goroutine
	failures int
}

func NewDLQWorker(store queue.Store, archive DLQArchive, cfg DLQConfig) *DLQWorker {
	return &DLQWorker{Store: store, Archive: archive, Config: cfg, now: time.Now}
}

func (w *DLQWorker) Start(ctx context.Context) error {
	if w.Store == nil {
		return app_error.ErrNotConfigured
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		log.Info().Msg("DLQ worker started")
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("DLQ worker stopping")
				return
			default:
				if !w.drainOne(ctx) && w.failures > 0 {
					w.sleep(ctx, w.backoff())
				}
			}
		}
	}()
	return nil
}

func (w *DLQWorker) drainOne(ctx context.Context) bool {
	dl, err := w.Store.PopDeadLetter(ctx, w.Config.PopTimeout)
	if err != nil {
		if ctx.Err() == nil {
			log.Error().Err(err).Msg("DLQWorker pop failed")
			w.failures++
		}
		return false
	}
	if dl == nil {
		w.failures = 0
		return false
	}

	log.Error().
		Str("job_id", dl.Envelope.ID).
		Str("type", string(dl.Envelope.Category)).
		Int("attempts", dl.Attempts).
		Str("error", dl.ErrorMsg).
		Msg("DLQ job detected")

	if w.Archive == nil {
		return true
	}

	now := w.now().UTC()
	doc := entity.DLQJob{
		JobID:     dl.Envelope.ID,
		Queue:     w.Store.Name(),
		Type:      string(dl.Envelope.Category),
		Priority:  dl.Envelope.Priority,
		Payload:   dl.Envelope.Payload,
		ErrorMsg:  dl.ErrorMsg,
		Status:    "pending",
		Attempts:  dl.Attempts,
		FailedAt:  time.UnixMilli(dl.FailedAt).UTC(),
		CreatedAt: now,
		ExpireAt:  now.Add(w.Config.Retention),
	}
	if err := w.Archive.Insert(ctx, doc); err != nil {
		w.failures++
		log.Error().Err(err).Str("job_id", dl.Envelope.ID).Int("failures", w.failures).Msg("Failed to persist DLQ job")

		// put it back so a later pass can archive it
		if perr := w.Store.PushDeadLetter(context.WithoutCancel(ctx), *dl); perr != nil {
			raw, _ := json.Marshal(dl)
			log.Error().Err(perr).RawJSON("dead_letter", raw).Msg("dead letter lost")
		}
		return false
	}

	w.failures = 0
	log.Info().Str("job_id", dl.Envelope.ID).Msg("DLQ job archived")
	return true
}

// backoff doubles from RetryBackoff per consecutive failure, capped at MaxBackoff.
func (w *DLQWorker) backoff() time.Duration {
	d := w.Config.RetryBackoff
	for i := 1; i < w.failures && d < w.Config.MaxBackoff; i++ {
		d *= 2
	}
	if d > w.Config.MaxBackoff {
		d = w.Config.MaxBackoff
	}
	return d
}

func (w *DLQWorker) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (w *DLQWorker) Stats(ctx context.Context) (map[string]int64, error) {
	if w.Archive == nil {
		return nil, app_error.ErrArchiveDisabled
	}
	return w.Archive.Stats(ctx)
}

func (w *DLQWorker) Wait() {
	w.wg.Wait()
}
