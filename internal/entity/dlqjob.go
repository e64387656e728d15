package entity

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type DLQJob struct {
	ID        bson.ObjectID   `bson:"_id,omitempty" json:"id,omitempty"`
	JobID     string          `bson:"job_id" json:"job_id"`
	Queue     string          `bson:"queue" json:"queue"`
	Type      string          `bson:"type" json:"type"`
	Priority  int             `bson:"priority" json:"priority"`
	Payload   json.RawMessage `bson:"payload" json:"payload"`
	ErrorMsg  string          `bson:"error_msg" json:"error_msg"`
	Status    string          `bson:"status" json:"status"`
	Attempts  int             `bson:"attempts" json:"attempts"`
	FailedAt  time.Time       `bson:"failed_at" json:"failed_at"`
	CreatedAt time.Time       `bson:"created_at" json:"created_at"`
	ExpireAt  time.Time       `bson:"expired_at" json:"expired_at"`
}
