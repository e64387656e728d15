package job_handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xenn00/warehouse-jobs/internal/dtos"
	job_handler "github.com/xenn00/warehouse-jobs/internal/handlers/job-handler"
	"github.com/xenn00/warehouse-jobs/internal/queue"
	"github.com/xenn00/warehouse-jobs/internal/routers"
	job_service "github.com/xenn00/warehouse-jobs/internal/use-case/job-case"
	worker_service "github.com/xenn00/warehouse-jobs/internal/worker/worker-service"
)

type envelope struct {
	Message   string              `json:"message"`
	Data      json.RawMessage     `json:"data"`
	RequestID string              `json:"request_id"`
	Errors    *dtos.ErrorResponse `json:"errors"`
}

const importBody = `{"tenantId":"t1","userId":"u1","productId":"p1","serials":[{"serialValue":"SN-1","storeId":"s1"}]}`

func newServer(t *testing.T, reports job_handler.ReportLoader) http.Handler {
	t.Helper()
	mockRedis := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mockRedis.Addr()})
	t.Cleanup(func() { rdb.Close() })

	store := queue.NewRedisStore(rdb, "warehouse-jobs")
	h := job_handler.NewJobHandler(job_service.NewJobService(store), job_service.NewAdminService(store, nil), reports)
	return routers.NewRouter(h)
}

func do(t *testing.T, srv http.Handler, method, path, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var out envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	assert.NotEmpty(t, out.RequestID)
	return rec.Code, out
}

func TestSubmit_AcceptsJobWithDefaultPriority(t *testing.T) {
	srv := newServer(t, nil)

	code, res := do(t, srv, http.MethodPost, "/api/v1/jobs/bulk-serial-import", importBody)
	require.Equal(t, http.StatusAccepted, code)

	var handle struct {
		ID       string `json:"id"`
		Queue    string `json:"queue"`
		Category string `json:"category"`
		Priority int    `json:"priority"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &handle))
	assert.Regexp(t, `^[0-9a-f]{16}$`, handle.ID)
	assert.Equal(t, "warehouse-jobs", handle.Queue)
	assert.Equal(t, "bulk-serial-import", handle.Category)
	assert.Equal(t, 5, handle.Priority)
}

func TestSubmit_PriorityOverride(t *testing.T) {
	srv := newServer(t, nil)

	code, res := do(t, srv, http.MethodPost, "/api/v1/jobs/expiration-alert?priority=1",
		`{"tenantId":"t1","daysThreshold":7,"channels":["email"]}`)
	require.Equal(t, http.StatusAccepted, code)

	var handle struct {
		Priority int `json:"priority"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &handle))
	assert.Equal(t, 1, handle.Priority)

	for _, bad := range []string{"high", "0", "1001"} {
		code, _ = do(t, srv, http.MethodPost, "/api/v1/jobs/expiration-alert?priority="+bad,
			`{"tenantId":"t1","daysThreshold":7,"channels":["email"]}`)
		assert.Equal(t, http.StatusBadRequest, code, "priority=%s", bad)
	}
}

func TestSubmit_RejectsBadInput(t *testing.T) {
	srv := newServer(t, nil)

	cases := []struct {
		name string
		path string
		body string
	}{
		{"unknown category", "/api/v1/jobs/reindex", `{}`},
		{"missing serials", "/api/v1/jobs/bulk-serial-import", `{"tenantId":"t1","userId":"u1","productId":"p1","serials":[]}`},
		{"unknown field", "/api/v1/jobs/generate-report", `{"tenantId":"t1","userId":"u1","reportType":"movements","format":"csv","extra":1}`},
		{"bad report format", "/api/v1/jobs/generate-report", `{"tenantId":"t1","userId":"u1","reportType":"movements","format":"docx"}`},
		{"malformed json", "/api/v1/jobs/batch-stock-update", `{"tenantId":`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, res := do(t, srv, http.MethodPost, tc.path, tc.body)
			assert.Equal(t, http.StatusBadRequest, code)
			require.NotNil(t, res.Errors)
			assert.Equal(t, http.StatusBadRequest, res.Errors.Code)
		})
	}
}

func TestGetJob_AndMetrics(t *testing.T) {
	srv := newServer(t, nil)

	_, res := do(t, srv, http.MethodPost, "/api/v1/jobs/bulk-serial-import", importBody)
	var handle struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &handle))

	code, res := do(t, srv, http.MethodGet, "/api/v1/jobs/"+handle.ID, "")
	require.Equal(t, http.StatusOK, code)
	var rec queue.Record
	require.NoError(t, json.Unmarshal(res.Data, &rec))
	assert.Equal(t, queue.StateWaiting, rec.State)
	assert.Equal(t, queue.CategoryBulkSerialImport, rec.Category)

	code, _ = do(t, srv, http.MethodGet, "/api/v1/jobs/does-not-exist", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, res = do(t, srv, http.MethodGet, "/api/v1/queues/metrics", "")
	require.Equal(t, http.StatusOK, code)
	var m queue.Metrics
	require.NoError(t, json.Unmarshal(res.Data, &m))
	assert.Equal(t, int64(1), m.Waiting)
	assert.Equal(t, int64(1), m.Total)
}

func TestClean_ValidatesQuery(t *testing.T) {
	srv := newServer(t, nil)

	code, res := do(t, srv, http.MethodPost, "/api/v1/queues/clean?grace=1h&limit=10", "")
	require.Equal(t, http.StatusOK, code)
	var report struct {
		Queue     string `json:"queue"`
		Completed int    `json:"completed"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &report))
	assert.Equal(t, "warehouse-jobs", report.Queue)
	assert.Equal(t, 0, report.Completed)

	code, _ = do(t, srv, http.MethodPost, "/api/v1/queues/clean?grace=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestDLQStats_WithoutArchive(t *testing.T) {
	srv := newServer(t, nil)

	code, res := do(t, srv, http.MethodGet, "/api/v1/dlq/stats", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	require.NotNil(t, res.Errors)
}

func TestGetReport(t *testing.T) {
	loader := func(_ context.Context, id string) (*worker_service.ReportArtifact, error) {
		if id != "r-1" {
			return nil, nil
		}
		return &worker_service.ReportArtifact{ReportID: "r-1", TenantID: "t1", Format: "csv"}, nil
	}
	srv := newServer(t, loader)

	code, res := do(t, srv, http.MethodGet, "/api/v1/reports/r-1", "")
	require.Equal(t, http.StatusOK, code)
	var artifact worker_service.ReportArtifact
	require.NoError(t, json.Unmarshal(res.Data, &artifact))
	assert.Equal(t, "t1", artifact.TenantID)

	code, _ = do(t, srv, http.MethodGet, "/api/v1/reports/r-2", "")
	assert.Equal(t, http.StatusNotFound, code)

	// the download URL stored in a report job result
	code, res = do(t, srv, http.MethodGet, worker_service.ReportURL("t1", "r-1", "csv"), "")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(res.Data, &artifact))
	assert.Equal(t, "r-1", artifact.ReportID)

	for _, path := range []string{
		"/reports/t2/r-1.csv",
		"/reports/t1/r-1.pdf",
		"/reports/t1/r-2.csv",
		"/reports/t1/r-1",
	} {
		code, _ = do(t, srv, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, code, path)
	}
}

func TestWithoutBroker(t *testing.T) {
	h := job_handler.NewJobHandler(job_service.NewJobService(nil), job_service.NewAdminService(nil, nil), nil)
	srv := routers.NewRouter(h)

	code, _ := do(t, srv, http.MethodPost, "/api/v1/jobs/bulk-serial-import", importBody)
	assert.Equal(t, http.StatusServiceUnavailable, code)

	code, res := do(t, srv, http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, code)
	var status map[string]string
	require.NoError(t, json.Unmarshal(res.Data, &status))
	assert.Equal(t, "down", status["broker"])
}
