package worker

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/xenn00/warehouse-jobs/internal/queue"
)

// progressTracker clamps reported values to [0,100] and never lets them go
// backwards before writing them to the store.
type progressTracker struct {
	ctx   context.Context
	store queue.Store
	jobID string
	last  int
	seen  bool
}

func newProgressTracker(ctx context.Context, store queue.Store, jobID string) *progressTracker {
	return &progressTracker{ctx: ctx, store: store, jobID: jobID}
}

func (p *progressTracker) Report(percent int) {
	percent = min(max(percent, 0), 100)
	if percent < p.last {
		percent = p.last
	}
	if p.seen && percent == p.last {
		return
	}
	p.last, p.seen = percent, true

	if err := p.store.UpdateProgress(p.ctx, p.jobID, percent); err != nil {
		log.Warn().Err(err).Str("job_id", p.jobID).Int("progress", percent).Msg("failed to write progress")
	}
}
