package job_dto

import "time"

type SubmitResponse struct {
	ID         string    `json:"id"`
	Queue      string    `json:"queue"`
	Category   string    `json:"category"`
	Priority   int       `json:"priority"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

type CleanResponse struct {
	Queue     string `json:"queue"`
	Completed int    `json:"completed"`
	Failed    int    `json:"failed"`
}
