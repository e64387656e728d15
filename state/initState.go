package state

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/xenn00/warehouse-jobs/config"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"gorm.io/gorm"
)

type AppState struct {
	Ctx    context.Context
	Cancel context.CancelFunc
	DB     *gorm.DB
	Redis  *redis.Client
	Mongo  *mongo.Client
}

// InitAppState opens every configured backend. Backends without a url stay
// nil; the components using them report that when first called.
func InitAppState(ctx context.Context, cancel context.CancelFunc) (*AppState, error) {
	s := &AppState{Ctx: ctx, Cancel: cancel}

	if dsn := config.Conf.DATABASE.Postgres.DSN; dsn != "" {
		db, _, err := InitPostgres(dsn)
		if err != nil {
			return nil, err
		}
		s.DB = db
	} else {
		log.Warn().Msg("postgres url is empty, inventory operations are disabled")
	}

	mongoClient, err := InitMongo(ctx, config.Conf.DATABASE.Mongo.Url)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Mongo = mongoClient

	rdb, err := InitRedis(config.Conf.DATABASE.Redis.Url)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Redis = rdb

	return s, nil
}

func (a *AppState) Close() {
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err == nil {
			log.Info().Msg("Closing PostgreSQL database connection...")
			sqlDB.Close()
		}
	}

	if a.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info().Msg("Closing MongoDB client...")
		if err := a.Mongo.Disconnect(ctx); err != nil {
			log.Error().Err(err).Msg("failed to disconnect MongoDB client")
		}
	}

	if a.Redis != nil {
		log.Info().Msg("Closing Redis client...")
		if err := a.Redis.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close Redis client")
		}
	}
}
