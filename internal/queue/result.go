package queue

import "time"

// MaxRecordedErrors bounds the errors array of a result. FailedCount keeps the true total.
const MaxRecordedErrors = 50

type ItemError struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

type ResultData struct {
	ProcessedCount int         `json:"processedCount"`
	FailedCount    int         `json:"failedCount"`
	ReportURL      string      `json:"reportUrl,omitempty"`
	Errors         []ItemError `json:"errors,omitempty"`
}

type Failure struct {
	Message     string `json:"message"`
	Code        string `json:"code"`
	Recoverable bool   `json:"recoverable"`
}

type Result struct {
	Success    bool       `json:"success"`
	JobType    string     `json:"jobType"`
	Result     ResultData `json:"result"`
	Error      *Failure   `json:"error,omitempty"`
	DurationMs int64      `json:"durationMs"`
}

// Aggregator accumulates per item outcomes of one handler invocation.
// It is not safe for concurrent use; items inside a job run sequentially.
type Aggregator struct {
	processed int
	failed    int
	errors    []ItemError
}

func NewAggregator() *Aggregator {
	return &Aggregator{}
}

func (a *Aggregator) Processed() {
	a.processed++
}

func (a *Aggregator) Failed(index int, msg string) {
	a.failed++
	if len(a.errors) < MaxRecordedErrors {
		a.errors = append(a.errors, ItemError{Index: index, Error: msg})
	}
}

func (a *Aggregator) Total() int {
	return a.processed + a.failed
}

func (a *Aggregator) Result(category Category) Result {
	return Result{
		Success: a.failed == 0,
		JobType: string(category),
		Result: ResultData{
			ProcessedCount: a.processed,
			FailedCount:    a.failed,
			Errors:         a.errors,
		},
	}
}

// FailedResult builds the result of a handler that raised before producing a partial result.
func FailedResult(category Category, code, msg string, recoverable bool, took time.Duration) Result {
	return Result{
		Success: false,
		JobType: string(category),
		Error: &Failure{
			Message:     msg,
			Code:        code,
			Recoverable: recoverable,
		},
		DurationMs: took.Milliseconds(),
	}
}
