package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	app_error "github.com/xenn00/warehouse-jobs/internal/errors"
)

// DefaultCleanLimit bounds removals per outcome class in one Clean call.
const DefaultCleanLimit = 1000

func (s *RedisStore) Get(ctx context.Context, jobID string) (*Record, error) {
	fields, err := s.Redis.HGetAll(ctx, s.jobKey(jobID)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("job %s: %w", jobID, app_error.ErrNotFound)
	}

	rec := &Record{
		ID:           jobID,
		Queue:        s.name,
		Category:     Category(fields["category"]),
		State:        State(fields["state"]),
		FailedReason: fields["failed_reason"],
	}
	rec.Priority, _ = strconv.Atoi(fields["priority"])
	rec.Attempts, _ = strconv.Atoi(fields["attempts"])
	rec.Progress, _ = strconv.Atoi(fields["progress"])
	rec.CreatedAt = millis(fields["created_at"])
	if v, ok := fields["started_at"]; ok {
		t := millis(v)
		rec.StartedAt = &t
	}
	if v, ok := fields["finished_at"]; ok {
		t := millis(v)
		rec.FinishedAt = &t
	}
	if data, ok := fields["data"]; ok {
		if err := json.Unmarshal([]byte(data), &rec.Envelope); err != nil {
			return nil, fmt.Errorf("decode envelope %s: %w", jobID, err)
		}
	}
	if data, ok := fields["result"]; ok {
		var result Result
		if err := json.Unmarshal([]byte(data), &result); err != nil {
			return nil, fmt.Errorf("decode result %s: %w", jobID, err)
		}
		rec.Result = &result
	}
	return rec, nil
}

func (s *RedisStore) Metrics(ctx context.Context) (Metrics, error) {
	sets := []string{waitingSet, activeSet, completedSet, failedSet, delayedSet}
	cmds := make([]*redis.IntCmd, len(sets))
	_, err := s.Redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, set := range sets {
			cmds[i] = pipe.ZCard(ctx, s.key(set))
		}
		return nil
	})
	if err != nil {
		return Metrics{}, err
	}

	m := Metrics{
		QueueName: s.name,
		Waiting:   cmds[0].Val(),
		Active:    cmds[1].Val(),
		Completed: cmds[2].Val(),
		Failed:    cmds[3].Val(),
		Delayed:   cmds[4].Val(),
	}
	m.Total = m.Waiting + m.Active + m.Completed + m.Failed + m.Delayed
	return m, nil
}

// Clean removes completed and failed jobs that finished before now-grace,
// at most limit per class.
func (s *RedisStore) Clean(ctx context.Context, grace time.Duration, limit int) (CleanReport, error) {
	if limit <= 0 {
		limit = DefaultCleanLimit
	}
	cutoff := s.now().Add(-grace).UnixMilli()

	var report CleanReport
	var err error
	if report.Completed, err = s.cleanSet(ctx, completedSet, cutoff, limit); err != nil {
		return report, err
	}
	if report.Failed, err = s.cleanSet(ctx, failedSet, cutoff, limit); err != nil {
		return report, err
	}

	log.Info().Str("queue", s.name).Int("completed", report.Completed).Int("failed", report.Failed).Msg("queue cleaned")
	return report, nil
}

func (s *RedisStore) cleanSet(ctx context.Context, set string, cutoff int64, limit int) (int, error) {
	ids, err := s.Redis.ZRangeByScore(ctx, s.key(set), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(cutoff, 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return 0, err
	}
	return len(ids), s.remove(ctx, set, ids)
}

// trim keeps only the newest keep entries of a terminal set.
func (s *RedisStore) trim(ctx context.Context, set string, keep int) error {
	if keep < 0 {
		return nil
	}
	evicted, err := s.Redis.ZRange(ctx, s.key(set), 0, int64(-keep-1)).Result()
	if err != nil {
		return err
	}
	if len(evicted) > 0 {
		log.Debug().Str("queue", s.name).Str("set", set).Int("evicted", len(evicted)).Msg("retention trim")
	}
	return s.remove(ctx, set, evicted)
}

func (s *RedisStore) remove(ctx context.Context, set string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.Redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		members := make([]any, len(ids))
		keys := make([]string, len(ids))
		for i, id := range ids {
			members[i] = id
			keys[i] = s.jobKey(id)
		}
		pipe.ZRem(ctx, s.key(set), members...)
		pipe.Del(ctx, keys...)
		return nil
	})
	return err
}

func millis(v string) time.Time {
	ms, _ := strconv.ParseInt(v, 10, 64)
	return time.UnixMilli(ms)
}
