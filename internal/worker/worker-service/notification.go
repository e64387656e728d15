package worker_service

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// NotificationChannel publishes in-app notifications on notifications:<tenantId>.
type NotificationChannel struct {
	Redis *redis.Client
}

func NewNotificationChannel(rdb *redis.Client) *NotificationChannel {
	if rdb == nil {
		return nil
	}
	return &NotificationChannel{Redis: rdb}
}

func NotificationTopic(tenantID string) string {
	return "notifications:" + tenantID
}

func (c *NotificationChannel) Send(ctx context.Context, notice ExpirationNotice) error {
	body, err := json.Marshal(map[string]any{
		"type":    "expiration-alert",
		"payload": notice,
	})
	if err != nil {
		return err
	}

	receivers, err := c.Redis.Publish(ctx, NotificationTopic(notice.TenantID), body).Result()
	if err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	log.Debug().Str("tenant_id", notice.TenantID).Int64("receivers", receivers).Msg("expiration notification published")
	return nil
}
