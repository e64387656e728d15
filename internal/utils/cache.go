package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// GetCacheData decodes the value under key. A missing or expired key yields
// (nil, nil).
func GetCacheData[T any](ctx context.Context, rdb *redis.Client, key string) (*T, error) {
	raw, err := rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get %s: %w", key, err)
	}

	var data T
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return &data, nil
}

func SetCacheData[T any](ctx context.Context, rdb *redis.Client, key string, data *T, ttl time.Duration) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	return rdb.Set(ctx, key, raw, ttl).Err()
}
