package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

type Category string

const (
	CategoryBulkSerialImport Category = "bulk-serial-import"
	CategoryGenerateReport   Category = "generate-report"
	CategoryBatchStockUpdate Category = "batch-stock-update"
	CategoryExpirationAlert  Category = "expiration-alert"
)

// Categories lists every job category the router must handle.
func Categories() []Category {
	return []Category{
		CategoryBulkSerialImport,
		CategoryGenerateReport,
		CategoryBatchStockUpdate,
		CategoryExpirationAlert,
	}
}

// DefaultPriority returns the priority used when a submission gives none.
// Lower values dequeue first.
func (c Category) DefaultPriority() int {
	switch c {
	case CategoryBulkSerialImport:
		return 5
	case CategoryGenerateReport:
		return 3
	case CategoryBatchStockUpdate:
		return 4
	case CategoryExpirationAlert:
		return 2
	default:
		return 10
	}
}

type RetryPolicy struct {
	MaxAttempts    int    `json:"maxAttempts"`
	Backoff        string `json:"backoff"`
	InitialDelayMs int64  `json:"initialDelayMs"`
}

// Delay is the wait before the attempt following the given failed attempt.
func (p RetryPolicy) Delay(failedAttempt int) time.Duration {
	if failedAttempt < 1 {
		failedAttempt = 1
	}
	base := time.Duration(p.InitialDelayMs) * time.Millisecond
	if p.Backoff != "exponential" {
		return base
	}
	return base * time.Duration(1<<(failedAttempt-1))
}

type Retention struct {
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

var (
	DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, Backoff: "exponential", InitialDelayMs: 2000}
	DefaultRetention   = Retention{Completed: 50, Failed: 200}
)

// Envelope is the unit stored in the broker. It is never mutated after Add.
type Envelope struct {
	ID          string          `json:"id"`
	Category    Category        `json:"category"`
	Payload     json.RawMessage `json:"payload"`
	Priority    int             `json:"priority"`
	RetryPolicy RetryPolicy     `json:"retryPolicy"`
	Retention   Retention       `json:"retention"`
	CreatedAt   int64           `json:"createdAt"`
}

// Lower values run first.
const (
	MinPriority = 1
	MaxPriority = 1000
)

// MustMarshal encodes payload and panics if it cannot be encoded.
func MustMarshal(payload any) json.RawMessage {
	b, err := json.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("queue: marshal payload: %v", err))
	}
	return b
}
