package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/xenn00/warehouse-jobs/config"
	job_handler "github.com/xenn00/warehouse-jobs/internal/handlers/job-handler"
	"github.com/xenn00/warehouse-jobs/internal/queue"
	inventory_repo "github.com/xenn00/warehouse-jobs/internal/repo/inventory"
	"github.com/xenn00/warehouse-jobs/internal/routers"
	job_service "github.com/xenn00/warehouse-jobs/internal/use-case/job-case"
	"github.com/xenn00/warehouse-jobs/internal/worker"
	worker_handler "github.com/xenn00/warehouse-jobs/internal/worker/worker-handler"
	worker_service "github.com/xenn00/warehouse-jobs/internal/worker/worker-service"
	"github.com/xenn00/warehouse-jobs/state"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if level, err := zerolog.ParseLevel(config.Conf.App.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	state, err := state.InitAppState(ctx, stop)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize application state")
	}
	defer state.Close()

	store := queue.NewRedisStore(state.Redis, config.Conf.QUEUE.Name)
	if store == nil {
		log.Warn().Msg("redis url is empty, job submission and processing are disabled")
	}

	// worker side
	inventory := inventory_repo.NewInventoryRepo(state)
	exporter := worker_service.NewRedisExporter(state.Redis, config.Conf.REPORTS.TTL)
	dispatcher := worker_service.NewDefaultDispatcher(config.Conf, state.Redis)
	handler := worker_handler.NewWorkerHandler(inventory, exporter, dispatcher)
	workerPool := worker.NewWorkerPool(store, worker.NewRouter(handler), worker.PoolConfigFrom(config.Conf))

	dlqConfig := worker.DefaultDLQConfig(config.Conf.DATABASE.Mongo.Database)
	var archive worker.DLQArchive
	if mongoArchive := worker.NewMongoArchive(state.Mongo, dlqConfig); mongoArchive != nil {
		if err := mongoArchive.EnsureIndexes(ctx); err != nil {
			log.Error().Err(err).Msg("failed to create DLQ indexes")
		}
		archive = mongoArchive
	} else {
		log.Warn().Msg("mongo url is empty, dead letters are logged but not archived")
	}
	dlqWorker := worker.NewDLQWorker(store, archive, dlqConfig)

	if store != nil {
		if err := workerPool.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to start worker pool")
		}
		if err := dlqWorker.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to start DLQ worker")
		}
	}

	// http side
	var reports job_handler.ReportLoader
	if state.Redis != nil {
		reports = func(ctx context.Context, reportID string) (*worker_service.ReportArtifact, error) {
			return worker_service.LoadReport(ctx, state.Redis, reportID)
		}
	}
	jobHandler := job_handler.NewJobHandler(
		job_service.NewJobService(store),
		job_service.NewAdminService(store, dlqWorker),
		reports,
	)
	r := routers.NewRouter(jobHandler)

	server := &http.Server{
		Addr:         config.Conf.App.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Msgf("Starting server on http://localhost%s", config.Conf.App.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			panic(fmt.Sprintf("ListenAndServe failed: %v", err))
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutdown initiated...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	} else {
		log.Info().Msg("Server exited gracefully.")
	}

	// in-flight jobs finish before the broker connection closes
	workerPool.Stop()
	dlqWorker.Wait()
}
