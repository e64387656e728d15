package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Dequeue claims the highest priority waiting job, after promoting delayed
// jobs whose backoff has elapsed. It returns nil when nothing is eligible.
func (s *RedisStore) Dequeue(ctx context.Context) (*ActiveJob, error) {
	now := s.now()
	res, err := dequeueScript.Run(ctx, s.Redis,
		[]string{s.key(waitingSet), s.key(delayedSet), s.key(activeSet)},
		now.UnixMilli(), promoteBatch, s.jobPrefix(),
	).Slice()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	id, _ := res[0].(string)
	if len(res) < 3 {
		log.Warn().Str("job_id", id).Msg("waiting job without data dropped")
		return nil, nil
	}
	attempts, _ := res[1].(int64)
	data, _ := res[2].(string)

	var env Envelope
	if err := json.Unmarshal([]byte(data), &env); err != nil {
		return nil, fmt.Errorf("decode envelope %s: %w", id, err)
	}

	return &ActiveJob{
		Envelope:  env,
		Attempt:   int(attempts),
		StartedAt: now,
	}, nil
}

func (s *RedisStore) UpdateProgress(ctx context.Context, jobID string, percent int) error {
	return s.Redis.HSet(ctx, s.jobKey(jobID), "progress", percent).Err()
}

// Complete persists the result as the job's terminal payload.
func (s *RedisStore) Complete(ctx context.Context, job *ActiveJob, result Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	id := job.Envelope.ID
	now := s.now().UnixMilli()
	_, err = s.Redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, s.key(activeSet), id)
		pipe.ZAdd(ctx, s.key(completedSet), redis.Z{Score: float64(now), Member: id})
		pipe.HSet(ctx, s.jobKey(id),
			"state", string(StateCompleted),
			"result", data,
			"finished_at", now,
		)
		return nil
	})
	if err != nil {
		return err
	}

	return s.trim(ctx, completedSet, job.Envelope.Retention.Completed)
}

func (s *RedisStore) Retry(ctx context.Context, job *ActiveJob, cause error) (bool, error) {
	id := job.Envelope.ID
	now := s.now()
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}

	policy := job.Envelope.RetryPolicy
	if job.Attempt < policy.MaxAttempts {
		readyAt := now.Add(policy.Delay(job.Attempt))
		_, err := s.Redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.ZRem(ctx, s.key(activeSet), id)
			pipe.ZAdd(ctx, s.key(delayedSet), redis.Z{Score: float64(readyAt.UnixMilli()), Member: id})
			pipe.HSet(ctx, s.jobKey(id), "state", string(StateDelayed), "failed_reason", reason)
			return nil
		})
		if err != nil {
			return false, err
		}
		log.Warn().Str("job_id", id).Int("attempt", job.Attempt).Int("max_attempts", policy.MaxAttempts).
			Time("retry_at", readyAt).Msg("job scheduled for retry")
		return true, nil
	}

	dl, err := json.Marshal(DeadLetter{
		Envelope: job.Envelope,
		Attempts: job.Attempt,
		ErrorMsg: reason,
		FailedAt: now.UnixMilli(),
	})
	if err != nil {
		return false, err
	}
	_, err = s.Redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, s.key(activeSet), id)
		pipe.ZAdd(ctx, s.key(failedSet), redis.Z{Score: float64(now.UnixMilli()), Member: id})
		pipe.HSet(ctx, s.jobKey(id),
			"state", string(StateFailed),
			"failed_reason", reason,
			"finished_at", now.UnixMilli(),
		)
		pipe.RPush(ctx, s.key(deadLetters), dl)
		return nil
	})
	if err != nil {
		return false, err
	}

	return false, s.trim(ctx, failedSet, job.Envelope.Retention.Failed)
}

// RecoverStalled returns jobs left active by a previous process to the waiting set.
func (s *RedisStore) RecoverStalled(ctx context.Context) (int, error) {
	return recoverScript.Run(ctx, s.Redis,
		[]string{s.key(activeSet), s.key(waitingSet)},
		s.jobPrefix(),
	).Int()
}

func (s *RedisStore) PopDeadLetter(ctx context.Context, timeout time.Duration) (*DeadLetter, error) {
	res, err := s.Redis.BLPop(ctx, timeout, s.key(deadLetters)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var dl DeadLetter
	if err := json.Unmarshal([]byte(res[1]), &dl); err != nil {
		return nil, fmt.Errorf("decode dead letter: %w", err)
	}
	return &dl, nil
}

func (s *RedisStore) PushDeadLetter(ctx context.Context, dl DeadLetter) error {
	data, err := json.Marshal(dl)
	if err != nil {
		return err
	}
	return s.Redis.RPush(ctx, s.key(deadLetters), data).Err()
}
