package usecase

import (
	"context"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"

	"gaexport/internal/domain"
	"gaexport/pkg/logger"
	"gaexport/pkg/metrics"
)

var nan = math.NaN()

type mockReportClient struct {
	mock.Mock
}

func (m *mockReportClient) BatchGet(ctx context.Context, body domain.ReportsBody) (*domain.ReportsResponse, error) {
	args := m.Called(ctx, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReportsResponse), args.Error(1)
}

func newTestMetrics() *metrics.Metrics {
	return metrics.NewWithRegisterer(prometheus.NewRegistry())
}

func testTemplate() domain.ReportsBody {
	return domain.ReportsBody{ReportRequests: []domain.ReportRequest{{
		DateRanges: []domain.DateRange{{StartDate: "2023-01-01", EndDate: "2023-02-28"}},
		Metrics:    []domain.Metric{{Expression: "ga:sessions"}, {Expression: "ga:users"}},
		Dimensions: []domain.Dimension{{Name: "ga:yearMonth"}},
	}}}
}

// summaryPage builds a page with one dimension and the given rows of metric values.
func summaryPage(dim string, metricNames []string, keys []string, values [][]string, next string) *domain.ReportsResponse {
	entries := make([]domain.MetricHeaderEntry, len(metricNames))
	for i, n := range metricNames {
		entries[i] = domain.MetricHeaderEntry{Name: n, Type: "INTEGER"}
	}
	rows := make([]domain.ReportRow, len(keys))
	for i, k := range keys {
		rows[i] = domain.ReportRow{
			Dimensions: []string{k},
			Metrics:    []domain.DateRangeValues{{Values: values[i]}},
		}
	}
	return &domain.ReportsResponse{Reports: []domain.Report{{
		ColumnHeader: &domain.ColumnHeader{
			Dimensions:   []string{dim},
			MetricHeader: &domain.MetricHeader{MetricHeaderEntries: entries},
		},
		Data:          &domain.ReportData{Rows: rows, RowCount: int64(len(rows))},
		NextPageToken: next,
	}}}
}

func assertTable(t *testing.T, want, got *domain.Table) {
	t.Helper()
	if diff := cmp.Diff(want, got, cmpopts.EquateNaNs(), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("table mismatch (-want +got):\n%s", diff)
	}
}

func discardLogger() *logger.Logger {
	return logger.Discard()
}
