package job_handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/xenn00/warehouse-jobs/internal/dtos/job_dto"
	app_error "github.com/xenn00/warehouse-jobs/internal/errors"
	"github.com/xenn00/warehouse-jobs/internal/handlers"
	"github.com/xenn00/warehouse-jobs/internal/queue"
	job_service "github.com/xenn00/warehouse-jobs/internal/use-case/job-case"
	worker_service "github.com/xenn00/warehouse-jobs/internal/worker/worker-service"
)

// ReportLoader fetches a cached report artifact; nil means expired or unknown.
type ReportLoader func(ctx context.Context, reportID string) (*worker_service.ReportArtifact, error)

type JobHandler struct {
	Jobs    job_service.JobServiceContract
	Admin   job_service.AdminServiceContract
	Reports ReportLoader
}

func NewJobHandler(jobs job_service.JobServiceContract, admin job_service.AdminServiceContract, reports ReportLoader) *JobHandler {
	return &JobHandler{
		Jobs:    jobs,
		Admin:   admin,
		Reports: reports,
	}
}

func (h *JobHandler) Submit(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	var opts []job_service.SubmitOption
	if raw := r.URL.Query().Get("priority"); raw != "" {
		priority, err := strconv.Atoi(raw)
		if err != nil || priority < queue.MinPriority || priority > queue.MaxPriority {
			return app_error.NewAppError(http.StatusBadRequest,
				fmt.Sprintf("priority must be an integer between %d and %d", queue.MinPriority, queue.MaxPriority), "priority")
		}
		opts = append(opts, job_service.WithPriority(priority))
	}

	var (
		handle *queue.Handle
		err    error
	)
	switch queue.Category(chi.URLParam(r, "category")) {
	case queue.CategoryBulkSerialImport:
		var payload job_dto.BulkSerialImportPayload
		if appErr := handlers.DecodeJSON(r, &payload); appErr != nil {
			return appErr
		}
		handle, err = h.Jobs.SubmitBulkSerialImport(r.Context(), payload, opts...)
	case queue.CategoryGenerateReport:
		var payload job_dto.GenerateReportPayload
		if appErr := handlers.DecodeJSON(r, &payload); appErr != nil {
			return appErr
		}
		handle, err = h.Jobs.SubmitGenerateReport(r.Context(), payload, opts...)
	case queue.CategoryBatchStockUpdate:
		var payload job_dto.BatchStockUpdatePayload
		if appErr := handlers.DecodeJSON(r, &payload); appErr != nil {
			return appErr
		}
		handle, err = h.Jobs.SubmitBatchStockUpdate(r.Context(), payload, opts...)
	case queue.CategoryExpirationAlert:
		var payload job_dto.ExpirationAlertPayload
		if appErr := handlers.DecodeJSON(r, &payload); appErr != nil {
			return appErr
		}
		handle, err = h.Jobs.SubmitExpirationAlert(r.Context(), payload, opts...)
	default:
		return app_error.FromError(app_error.ErrUnknownCategory, "category")
	}
	if err != nil {
		return app_error.FromError(err, "job")
	}

	handlers.WriteJSON(w, http.StatusAccepted, handlers.CreateResponse("Job accepted", job_dto.SubmitResponse{
		ID:         handle.ID,
		Queue:      handle.Queue,
		Category:   string(handle.Category),
		Priority:   handle.Priority,
		EnqueuedAt: handle.EnqueuedAt,
	}, handlers.RequestID(r)))
	return nil
}

func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	rec, err := h.Admin.GetJob(r.Context(), chi.URLParam(r, "jobId"))
	if err != nil {
		return app_error.FromError(err, "jobId")
	}
	handlers.WriteJSON(w, http.StatusOK, handlers.CreateResponse("Job found", rec, handlers.RequestID(r)))
	return nil
}

func (h *JobHandler) Metrics(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	m, err := h.Admin.Metrics(r.Context())
	if err != nil {
		return app_error.FromError(err, "queue")
	}
	handlers.WriteJSON(w, http.StatusOK, handlers.CreateResponse("Queue metrics", m, handlers.RequestID(r)))
	return nil
}

// Clean accepts grace as a Go duration (e.g. 12h) and limit as an integer.
// Omitted values use the service defaults.
func (h *JobHandler) Clean(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	var (
		grace time.Duration
		limit int
		err   error
	)
	if raw := r.URL.Query().Get("grace"); raw != "" {
		if grace, err = time.ParseDuration(raw); err != nil {
			return app_error.NewAppError(http.StatusBadRequest, "grace must be a duration", "grace")
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			return app_error.NewAppError(http.StatusBadRequest, "limit must be an integer", "limit")
		}
	}

	report, err := h.Admin.Clean(r.Context(), grace, limit)
	if err != nil {
		return app_error.FromError(err, "queue")
	}

	var queueName string
	if m, err := h.Admin.Metrics(r.Context()); err == nil {
		queueName = m.QueueName
	}
	handlers.WriteJSON(w, http.StatusOK, handlers.CreateResponse("Queue cleaned", job_dto.CleanResponse{
		Queue:     queueName,
		Completed: report.Completed,
		Failed:    report.Failed,
	}, handlers.RequestID(r)))
	return nil
}

func (h *JobHandler) DLQStats(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	stats, err := h.Admin.DLQStats(r.Context())
	if err != nil {
		return app_error.FromError(err, "dlq")
	}
	handlers.WriteJSON(w, http.StatusOK, handlers.CreateResponse("Dead letter stats", stats, handlers.RequestID(r)))
	return nil
}

func (h *JobHandler) GetReport(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	if h.Reports == nil {
		return app_error.FromError(app_error.ErrNotConfigured, "reportId")
	}
	artifact, err := h.Reports(r.Context(), chi.URLParam(r, "reportId"))
	if err != nil {
		return app_error.FromError(err, "reportId")
	}
	if artifact == nil {
		return app_error.NewAppError(http.StatusNotFound, "report not found or expired", "reportId")
	}
	handlers.WriteJSON(w, http.StatusOK, handlers.CreateResponse("Report found", artifact, handlers.RequestID(r)))
	return nil
}

// GetReportFile serves /reports/{tenantId}/{reportId}.{format}, the URL a
// generate-report result carries.
func (h *JobHandler) GetReportFile(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	if h.Reports == nil {
		return app_error.FromError(app_error.ErrNotConfigured, "reportId")
	}
	file := chi.URLParam(r, "file")
	dot := strings.LastIndexByte(file, '.')
	if dot <= 0 {
		return app_error.NewAppError(http.StatusNotFound, "report not found or expired", "reportId")
	}
	reportID, format := file[:dot], file[dot+1:]

	artifact, err := h.Reports(r.Context(), reportID)
	if err != nil {
		return app_error.FromError(err, "reportId")
	}
	if artifact == nil || artifact.TenantID != chi.URLParam(r, "tenantId") || string(artifact.Format) != format {
		return app_error.NewAppError(http.StatusNotFound, "report not found or expired", "reportId")
	}
	handlers.WriteJSON(w, http.StatusOK, handlers.CreateResponse("Report found", artifact, handlers.RequestID(r)))
	return nil
}

func (h *JobHandler) Health(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	status := map[string]string{"status": "ok", "broker": "up"}
	if _, err := h.Admin.Metrics(r.Context()); err != nil {
		status["broker"] = "down"
	}
	handlers.WriteJSON(w, http.StatusOK, handlers.CreateResponse("Healthy", status, handlers.RequestID(r)))
	return nil
}
