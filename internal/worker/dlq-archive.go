package worker

import (
	"context"
	"time"

	"github.com/xenn00/warehouse-jobs/internal/entity"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type DLQConfig struct {
	DatabaseName   string
	CollectionName string
	Retention      time.Duration
	PopTimeout     time.Duration
	RetryBackoff   time.Duration
	MaxBackoff     time.Duration
}

func DefaultDLQConfig(database string) DLQConfig {
	return DLQConfig{
		DatabaseName:   database,
		CollectionName: "dlq_jobs",
		Retention:      7 * 24 * time.Hour,
		PopTimeout:     10 * time.Second,
		RetryBackoff:   time.Second,
		MaxBackoff:     time.Minute,
	}
}

// DLQArchive keeps jobs that exhausted every broker attempt.
type DLQArchive interface {
	Insert(ctx context.Context, doc entity.DLQJob) error
	Stats(ctx context.Context) (map[string]int64, error)
}

type MongoArchive struct {
	collection *mongo.Collection
}

func NewMongoArchive(client *mongo.Client, cfg DLQConfig) *MongoArchive {
	if client == nil {
		return nil
	}
	return &MongoArchive{collection: client.Database(cfg.DatabaseName).Collection(cfg.CollectionName)}
}

// EnsureIndexes lets Mongo expire archived jobs at their expired_at time.
func (a *MongoArchive) EnsureIndexes(ctx context.Context) error {
	_, err := a.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "expired_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		{Keys: bson.D{{Key: "job_id", Value: 1}}},
	})
	return err
}

func (a *MongoArchive) Insert(ctx context.Context, doc entity.DLQJob) error {
	_, err := a.collection.InsertOne(ctx, doc)
	return err
}

func (a *MongoArchive) Stats(ctx context.Context) (map[string]int64, error) {
	pipeline := bson.A{
		bson.M{"$group": bson.M{
			"_id":   "$type",
			"count": bson.M{"$sum": 1},
		}},
	}

	cursor, err := a.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	stats := make(map[string]int64)
	for cursor.Next(ctx) {
		var row struct {
			Type  string `bson:"_id"`
			Count int64  `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			continue
		}
		stats[row.Type] = row.Count
	}
	return stats, cursor.Err()
}
