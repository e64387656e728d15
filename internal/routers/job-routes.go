package routers

import (
	"github.com/go-chi/chi/v5"
	"github.com/xenn00/warehouse-jobs/internal/handlers"
	job_handler "github.com/xenn00/warehouse-jobs/internal/handlers/job-handler"
)

func JobRouter(r chi.Router, h *job_handler.JobHandler) {
	r.Get("/reports/{tenantId}/{file}", handlers.WrapHandler(h.GetReportFile))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handlers.WrapHandler(h.Health))

		r.Post("/jobs/{category}", handlers.WrapHandler(h.Submit))
		r.Get("/jobs/{jobId}", handlers.WrapHandler(h.GetJob))

		r.Get("/queues/metrics", handlers.WrapHandler(h.Metrics))
		r.Post("/queues/clean", handlers.WrapHandler(h.Clean))

		r.Get("/dlq/stats", handlers.WrapHandler(h.DLQStats))
		r.Get("/reports/{reportId}", handlers.WrapHandler(h.GetReport))
	})
}
