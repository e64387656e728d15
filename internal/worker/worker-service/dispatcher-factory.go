package worker_service

import (
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/xenn00/warehouse-jobs/config"
	"github.com/xenn00/warehouse-jobs/internal/dtos/job_dto"
)

// NewDefaultDispatcher registers every channel whose provider is configured.
func NewDefaultDispatcher(cfg *config.AppConfig, rdb *redis.Client) *Dispatcher {
	d := NewDispatcher()

	if email := NewMailTrapChannel(cfg); email != nil {
		d.Register(job_dto.ChannelEmail, email)
	} else {
		log.Warn().Msg("email alert channel disabled, MAILTRAP.SMTP_HOST is empty")
	}

	if notif := NewNotificationChannel(rdb); notif != nil {
		d.Register(job_dto.ChannelNotification, notif)
	}

	if hook := NewWebhookChannel(cfg); hook != nil {
		d.Register(job_dto.ChannelWebhook, hook)
	} else {
		log.Warn().Msg("webhook alert channel disabled, WEBHOOK.URL is empty")
	}

	return d
}
