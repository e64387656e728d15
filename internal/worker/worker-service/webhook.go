package worker_service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/xenn00/warehouse-jobs/config"
	"github.com/xenn00/warehouse-jobs/internal/utils"
)

const webhookEvent = "expiration-alert"

// WebhookChannel POSTs the notice as JSON with a short lived HS256 bearer token.
type WebhookChannel struct {
	URL    string
	Secret []byte
	Client *http.Client
	Now    func() time.Time
}

func NewWebhookChannel(cfg *config.AppConfig) *WebhookChannel {
	if cfg == nil || cfg.WEBHOOK.Url == "" {
		return nil
	}
	timeout := cfg.WEBHOOK.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookChannel{
		URL:    cfg.WEBHOOK.Url,
		Secret: []byte(cfg.WEBHOOK.Secret),
		Client: &http.Client{Timeout: timeout},
		Now:    time.Now,
	}
}

func (c *WebhookChannel) Send(ctx context.Context, notice ExpirationNotice) error {
	body, err := json.Marshal(notice)
	if err != nil {
		return err
	}

	deliveryID := uuid.New().String()
	token, err := utils.SignWebhook(c.Secret, notice.TenantID, webhookEvent, deliveryID, c.Now(), 5*time.Minute)
	if err != nil {
		return fmt.Errorf("failed to sign webhook: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Delivery-ID", deliveryID)

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook delivery failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded with status %d", resp.StatusCode)
	}
	return nil
}
