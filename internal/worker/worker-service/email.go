package worker_service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xenn00/warehouse-jobs/config"
	"gopkg.in/gomail.v2"
)

type EmailChannel struct {
	From string
	To   string
	// Deliver hands composed messages to SMTP. Dialer.DialAndSend in production.
	Deliver func(m ...*gomail.Message) error
}

// NewMailTrapChannel builds the email channel from MAILTRAP settings. It
// returns nil when no SMTP host is configured.
func NewMailTrapChannel(cfg *config.AppConfig) *EmailChannel {
	if cfg == nil || cfg.MAILTRAP.SMTPHost == "" {
		return nil
	}
	d := gomail.NewDialer(cfg.MAILTRAP.SMTPHost, cfg.MAILTRAP.SMTPPort, cfg.MAILTRAP.Username, cfg.MAILTRAP.Password)
	return &EmailChannel{
		From:    cfg.MAILTRAP.From,
		To:      cfg.MAILTRAP.TO,
		Deliver: d.DialAndSend,
	}
}

func (c *EmailChannel) Send(ctx context.Context, notice ExpirationNotice) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", c.From)
	m.SetHeader("To", c.To)
	m.SetHeader("Subject", fmt.Sprintf("[%s] %d items expiring within %d days", notice.TenantID, len(notice.Items), notice.DaysThreshold))
	m.SetBody("text/plain", renderNoticeText(notice))

	if err := c.Deliver(m); err != nil {
		return fmt.Errorf("failed to send expiration email: %w", err)
	}
	return nil
}

func renderNoticeText(notice ExpirationNotice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello,\n\nThe following items expire within %d days:\n\n", notice.DaysThreshold)
	for _, it := range notice.Items {
		fmt.Fprintf(&b, "- item %s (product %s, store %s): qty %d, expires %s\n",
			it.ProductItemID, it.ProductID, it.StoreID, it.Quantity, it.ExpirationDate.Format("2006-01-02"))
	}
	return b.String()
}
