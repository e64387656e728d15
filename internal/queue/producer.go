package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Add stores the envelope and makes it visible in the waiting set. Adding an
// id that already exists returns the existing job's handle untouched.
func (s *RedisStore) Add(ctx context.Context, env Envelope) (*Handle, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}

	if env.Priority < MinPriority || env.Priority > MaxPriority {
		return nil, fmt.Errorf("priority %d outside [%d, %d]", env.Priority, MinPriority, MaxPriority)
	}

	now := s.now()
	created, err := addScript.Run(ctx, s.Redis,
		[]string{s.jobKey(env.ID), s.key(sequenceKey), s.key(waitingSet)},
		data, string(env.Category), env.Priority, int64(priorityWeight), now.UnixMilli(), env.ID,
	).Int()
	if err != nil {
		return nil, err
	}
	if created == 0 {
		return s.existingHandle(ctx, env)
	}

	log.Debug().Str("job_id", env.ID).Str("type", string(env.Category)).Int("priority", env.Priority).Msg("job enqueued")

	return &Handle{
		ID:         env.ID,
		Queue:      s.name,
		Category:   env.Category,
		Priority:   env.Priority,
		EnqueuedAt: now,
	}, nil
}

func (s *RedisStore) existingHandle(ctx context.Context, env Envelope) (*Handle, error) {
	createdAt, err := s.Redis.HGet(ctx, s.jobKey(env.ID), "created_at").Int64()
	if err != nil && err != redis.Nil {
		return nil, err
	}

	log.Warn().Str("job_id", env.ID).Msg("job id already present, keeping existing job")
	return &Handle{
		ID:         env.ID,
		Queue:      s.name,
		Category:   env.Category,
		Priority:   env.Priority,
		EnqueuedAt: time.UnixMilli(createdAt),
	}, nil
}
