package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gaexport/internal/domain"
	"gaexport/internal/infrastructure"
	"gaexport/internal/usecase"
	"gaexport/pkg/logger"
	"gaexport/pkg/metrics"
)

type staticClient struct {
	resp *domain.ReportsResponse
	err  error
}

func (c staticClient) BatchGet(ctx context.Context, body domain.ReportsBody) (*domain.ReportsResponse, error) {
	return c.resp, c.err
}

func onePage() *domain.ReportsResponse {
	return &domain.ReportsResponse{Reports: []domain.Report{{
		ColumnHeader: &domain.ColumnHeader{
			Dimensions:   []string{"ga:date"},
			MetricHeader: &domain.MetricHeader{MetricHeaderEntries: []domain.MetricHeaderEntry{{Name: "ga:sessions"}}},
		},
		Data: &domain.ReportData{Rows: []domain.ReportRow{
			{Dimensions: []string{"20230101"}, Metrics: []domain.DateRangeValues{{Values: []string{"7"}}}},
		}},
	}}}
}

func newTestRouter(t *testing.T, client domain.ReportAPIClient) (http.Handler, string) {
	t.Helper()
	return newTestRouterWithOutputs(t, client, domain.OutputPolicy{})
}

func newTestRouterWithOutputs(t *testing.T, client domain.ReportAPIClient, outputs domain.OutputPolicy) (http.Handler, string) {
	t.Helper()
	log := logger.Discard()
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegisterer(reg)

	output := filepath.Join(t.TempDir(), "report.csv")
	template := domain.ReportsBody{ReportRequests: []domain.ReportRequest{{
		ViewID:  "ga:1",
		Metrics: []domain.Metric{{Expression: "ga:sessions"}},
	}}}

	service := usecase.NewExportService(
		usecase.NewReportFetcher(client, 0, log, m),
		infrastructure.NewCSVEncoder(),
		infrastructure.NewSinkRouter().
			Register(domain.SchemeFile, infrastructure.NewFileSink(log)).
			Register(domain.SchemeHTTP, infrastructure.NewHTTPSink("secret", 5*time.Second, log, m)),
		infrastructure.NewRunRepository(log),
		template,
		usecase.RunRequest{Output: output},
		outputs,
		log,
		m,
	)

	router := NewHTTPRouter(NewHTTPHandlers(service, log), log, m, reg, time.Minute)
	return router.SetupRoutes(), output
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestHealthCheck(t *testing.T) {
	h, _ := newTestRouter(t, staticClient{resp: onePage()})

	rec, body := do(t, h, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, rec.Header().Get("X-Request-ID"), body["request_id"])
}

func TestGetAPIInfo(t *testing.T) {
	h, _ := newTestRouter(t, staticClient{resp: onePage()})

	rec, body := do(t, h, http.MethodGet, "/api/v1", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "v1", body["api_version"])
}

func TestRunExport(t *testing.T) {
	h, output := newTestRouter(t, staticClient{resp: onePage()})

	rec, body := do(t, h, http.MethodPost, "/api/v1/exports/run", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	run := body["run"].(map[string]any)
	assert.Equal(t, "succeeded", run["status"])
	assert.Equal(t, output, run["destination"])
	assert.EqualValues(t, 1, run["rows"])
	assert.FileExists(t, output)

	rec, body = do(t, h, http.MethodGet, "/api/v1/exports/"+run["id"].(string), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, run["id"], body["data"].(map[string]any)["id"])

	rec, body = do(t, h, http.MethodGet, "/api/v1/exports?status=succeeded", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["total"])
}

func TestRunExport_BodyOutputWithinAllowedDir(t *testing.T) {
	dir := t.TempDir()
	h, _ := newTestRouterWithOutputs(t, staticClient{resp: onePage()}, domain.NewOutputPolicy([]string{dir}))
	output := filepath.Join(dir, "daily", "override.csv")

	rec, _ := do(t, h, http.MethodPost, "/api/v1/exports/run", `{"output": "`+filepath.ToSlash(output)+`", "page_size": 50}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.FileExists(t, output)
}

func TestRunExport_RejectsBodyOutputOutsideAllowlist(t *testing.T) {
	var hits atomic.Int32
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer collector.Close()

	dir := t.TempDir()
	outside := filepath.Join(t.TempDir(), "x.csv")

	tests := map[string]domain.OutputPolicy{
		"/etc/x.csv":               {},
		collector.URL + "/collect": {},
		filepath.ToSlash(outside):  domain.NewOutputPolicy([]string{dir}),
		filepath.ToSlash(filepath.Join(dir, "..", "escape.csv")): domain.NewOutputPolicy([]string{dir}),
	}

	for output, policy := range tests {
		t.Run(output, func(t *testing.T) {
			h, defaultOutput := newTestRouterWithOutputs(t, staticClient{resp: onePage()}, policy)

			rec, body := do(t, h, http.MethodPost, "/api/v1/exports/run", `{"output": "`+output+`"}`)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "failed", body["run"].(map[string]any)["status"])
			assert.Contains(t, body["message"], "not an allowed output")
			assert.NoFileExists(t, defaultOutput)
		})
	}
	assert.NoFileExists(t, outside)
	assert.Zero(t, hits.Load())
}

func TestRunExport_BadRequest(t *testing.T) {
	h, _ := newTestRouter(t, staticClient{resp: onePage()})

	rec, _ := do(t, h, http.MethodPost, "/api/v1/exports/run", `{"page_size": "many"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body := do(t, h, http.MethodPost, "/api/v1/exports/run", `{"output": "ftp://host/x.csv"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "failed", body["run"].(map[string]any)["status"])
}

func TestRunExport_RemoteFailure(t *testing.T) {
	h, output := newTestRouter(t, staticClient{err: errors.New("quota exhausted")})

	rec, body := do(t, h, http.MethodPost, "/api/v1/exports/run", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, body["message"], "quota exhausted")
	assert.NoFileExists(t, output)
}

func TestGetExport_NotFound(t *testing.T) {
	h, _ := newTestRouter(t, staticClient{resp: onePage()})

	rec, _ := do(t, h, http.MethodGet, "/api/v1/exports/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListExports_InvalidParams(t *testing.T) {
	h, _ := newTestRouter(t, staticClient{resp: onePage()})

	for _, q := range []string{"status=bogus", "limit=-1", "offset=x"} {
		rec, _ := do(t, h, http.MethodGet, "/api/v1/exports?"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := newTestRouter(t, staticClient{resp: onePage()})
	do(t, h, http.MethodPost, "/api/v1/exports/run", "")

	rec, _ := do(t, h, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "export_runs_total")
}
