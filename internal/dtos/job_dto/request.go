package job_dto

import (
	"time"

	"github.com/go-playground/validator/v10"
)

type ReportType string

const (
	ReportStockLevels         ReportType = "stock-levels"
	ReportExpirationDashboard ReportType = "expiration-dashboard"
	ReportBatchKPIs           ReportType = "batch-kpis"
	ReportMovements           ReportType = "movements"
)

type ReportFormat string

const (
	FormatPDF  ReportFormat = "pdf"
	FormatCSV  ReportFormat = "csv"
	FormatXLSX ReportFormat = "xlsx"
)

type AlertChannel string

const (
	ChannelEmail        AlertChannel = "email"
	ChannelNotification AlertChannel = "notification"
	ChannelWebhook      AlertChannel = "webhook"
)

type SerialRecord struct {
	SerialValue string  `json:"serialValue" validate:"required,max=255"`
	BatchID     *string `json:"batchId,omitempty"`
	StoreID     string  `json:"storeId" validate:"required"`
	LocationID  *string `json:"locationId,omitempty"`
}

type BulkSerialImportPayload struct {
	TenantID  string         `json:"tenantId" validate:"required"`
	UserID    string         `json:"userId" validate:"required"`
	ProductID string         `json:"productId" validate:"required"`
	Serials   []SerialRecord `json:"serials" validate:"required,min=1,dive"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type ReportFilters struct {
	StoreID    *string    `json:"storeId,omitempty"`
	ProductID  *string    `json:"productId,omitempty"`
	CategoryID *string    `json:"categoryId,omitempty"`
	From       *time.Time `json:"from,omitempty"`
	To         *time.Time `json:"to,omitempty"`
}

type GenerateReportPayload struct {
	TenantID   string         `json:"tenantId" validate:"required"`
	UserID     string         `json:"userId" validate:"required"`
	ReportType ReportType     `json:"reportType" validate:"required,oneof=stock-levels expiration-dashboard batch-kpis movements"`
	Format     ReportFormat   `json:"format" validate:"required,oneof=pdf csv xlsx"`
	Filters    *ReportFilters `json:"filters,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type StockUpdate struct {
	ProductItemID string  `json:"productItemId" validate:"required"`
	StoreID       string  `json:"storeId" validate:"required"`
	NewQuantity   *int    `json:"newQuantity,omitempty" validate:"omitempty,min=0"`
	NewStatus     *string `json:"newStatus,omitempty"`
	LocationID    *string `json:"locationId,omitempty"`
}

type BatchStockUpdatePayload struct {
	TenantID string         `json:"tenantId" validate:"required"`
	UserID   string         `json:"userId" validate:"required"`
	Updates  []StockUpdate  `json:"updates" validate:"required,min=1,dive"`
	Reason   *string        `json:"reason,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type ExpirationAlertPayload struct {
	TenantID      string         `json:"tenantId" validate:"required"`
	DaysThreshold int            `json:"daysThreshold" validate:"min=1,max=3650"`
	Channels      []AlertChannel `json:"channels" validate:"required,min=1,dive,oneof=email notification webhook"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

func NewValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}
