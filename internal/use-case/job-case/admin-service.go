package job_service

import (
	"context"
	"time"

	app_error "github.com/xenn00/warehouse-jobs/internal/errors"
	"github.com/xenn00/warehouse-jobs/internal/queue"
)

const DefaultCleanGrace = 24 * time.Hour

type DeadLetterStats interface {
	Stats(ctx context.Context) (map[string]int64, error)
}

type AdminService struct {
	Store      queue.Store
	DeadLetter DeadLetterStats
}

func NewAdminService(store queue.Store, deadLetters DeadLetterStats) AdminServiceContract {
	return &AdminService{Store: store, DeadLetter: deadLetters}
}

func (s *AdminService) Metrics(ctx context.Context) (queue.Metrics, error) {
	if s.Store == nil {
		return queue.Metrics{}, app_error.ErrNotConfigured
	}
	return s.Store.Metrics(ctx)
}

// Clean removes terminal jobs older than grace, at most limit per outcome
// class. Non-positive values fall back to 24h and 1000.
func (s *AdminService) Clean(ctx context.Context, grace time.Duration, limit int) (queue.CleanReport, error) {
	if s.Store == nil {
		return queue.CleanReport{}, app_error.ErrNotConfigured
	}
	if grace <= 0 {
		grace = DefaultCleanGrace
	}
	if limit <= 0 {
		limit = queue.DefaultCleanLimit
	}
	return s.Store.Clean(ctx, grace, limit)
}

func (s *AdminService) GetJob(ctx context.Context, jobID string) (*queue.Record, error) {
	if s.Store == nil {
		return nil, app_error.ErrNotConfigured
	}
	return s.Store.Get(ctx, jobID)
}

func (s *AdminService) DLQStats(ctx context.Context) (map[string]int64, error) {
	if s.DeadLetter == nil {
		return nil, app_error.ErrArchiveDisabled
	}
	return s.DeadLetter.Stats(ctx)
}
