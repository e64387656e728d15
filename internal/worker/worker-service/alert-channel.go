package worker_service

import (
	"context"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/xenn00/warehouse-jobs/internal/dtos/job_dto"
	"github.com/xenn00/warehouse-jobs/internal/entity"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type ExpiringItem struct {
	ProductItemID  string    `json:"productItemId"`
	ProductID      string    `json:"productId"`
	StoreID        string    `json:"storeId"`
	BatchID        *string   `json:"batchId,omitempty"`
	Quantity       int       `json:"quantity"`
	ExpirationDate time.Time `json:"expirationDate"`
}

// ExpirationNotice is the message every alert channel delivers.
type ExpirationNotice struct {
	TenantID      string         `json:"tenantId"`
	DaysThreshold int            `json:"daysThreshold"`
	Items         []ExpiringItem `json:"items"`
	GeneratedAt   time.Time      `json:"generatedAt"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

func NewExpirationNotice(tenantID string, days int, items []entity.ProductItem, at time.Time, metadata map[string]any) ExpirationNotice {
	notice := ExpirationNotice{
		TenantID:      tenantID,
		DaysThreshold: days,
		Items:         make([]ExpiringItem, 0, len(items)),
		GeneratedAt:   at,
		Metadata:      metadata,
	}
	for _, it := range items {
		item := ExpiringItem{
			ProductItemID: it.ID,
			ProductID:     it.ProductID,
			StoreID:       it.StoreID,
			BatchID:       it.BatchID,
			Quantity:      it.Quantity,
		}
		if it.ExpirationDate != nil {
			item.ExpirationDate = *it.ExpirationDate
		}
		notice.Items = append(notice.Items, item)
	}
	return notice
}

type Channel interface {
	Send(ctx context.Context, notice ExpirationNotice) error
}

// Dispatcher routes a notice to the provider registered for a channel name.
type Dispatcher struct {
	channels map[job_dto.AlertChannel]Channel
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{channels: make(map[job_dto.AlertChannel]Channel)}
}

// Register adds a provider. A nil provider leaves the channel unconfigured.
func (d *Dispatcher) Register(name job_dto.AlertChannel, ch Channel) *Dispatcher {
	if ch != nil {
		d.channels[name] = ch
	}
	return d
}

func (d *Dispatcher) Dispatch(ctx context.Context, name job_dto.AlertChannel, notice ExpirationNotice) error {
	ch, ok := d.channels[name]
	if !ok {
		return fmt.Errorf("alert channel %q is not configured", name)
	}
	return ch.Send(ctx, notice)
}
