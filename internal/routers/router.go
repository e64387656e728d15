package routers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	job_handler "github.com/xenn00/warehouse-jobs/internal/handlers/job-handler"
	"github.com/xenn00/warehouse-jobs/internal/middleware"
)

func NewRouter(jobs *job_handler.JobHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.WithRequestId)
	r.Use(middleware.RequestLogger)
	JobRouter(r, jobs)
	return r
}
