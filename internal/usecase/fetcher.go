package usecase

import (
	"context"
	"fmt"

	"gaexport/internal/domain"
	"gaexport/pkg/logger"
	"gaexport/pkg/metrics"
)

const (
	// InitialPageToken is sent with the first request of a token chain.
	InitialPageToken = "0"

	DefaultPageSize = 10000
	DefaultMaxPages = 10000
)

type FetchRequest struct {
	Template domain.ReportsBody
	ViewID   string
	PageSize int64
}

// FetchResult is the concatenated report of one fetch plus per-page bookkeeping.
type FetchResult struct {
	Table       *domain.Table
	Pages       int
	PageRows    []int
	Diagnostics []PageDiagnostics
}

func (r *FetchResult) DecodeIssues() int {
	n := 0
	for _, d := range r.Diagnostics {
		n += len(d.Issues())
	}
	return n
}

// ReportFetcher follows the continuation token chain of one report request.
// Pages are fetched strictly one after another.
type ReportFetcher struct {
	client   domain.ReportAPIClient
	maxPages int
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewReportFetcher(client domain.ReportAPIClient, maxPages int, logger *logger.Logger, metrics *metrics.Metrics) *ReportFetcher {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &ReportFetcher{
		client:   client,
		maxPages: maxPages,
		logger:   logger,
		metrics:  metrics,
	}
}

// Fetch requests pages until a response carries no next page token and returns all
// merged pages concatenated in page order. Any remote failure aborts the fetch and
// nothing accumulated so far is returned.
func (f *ReportFetcher) Fetch(ctx context.Context, req FetchRequest) (*FetchResult, error) {
	log := f.logger.WithContext(ctx)

	if req.PageSize <= 0 {
		req.PageSize = DefaultPageSize
	}

	result := &FetchResult{}
	var pages []*domain.Table
	token := InitialPageToken

	for {
		if result.Pages >= f.maxPages {
			return nil, fmt.Errorf("%w: token chain still open after %d pages", domain.ErrPageLimitExceeded, f.maxPages)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		body, err := BuildRequestBody(req.Template, req.ViewID, req.PageSize, token)
		if err != nil {
			return nil, err
		}

		resp, err := f.client.BatchGet(ctx, body)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch page %d: %w", result.Pages+1, err)
		}

		report := resp.FirstReport()
		if report == nil {
			return nil, fmt.Errorf("page %d: %w", result.Pages+1, domain.ErrEmptyResponse)
		}

		result.Pages++
		f.metrics.RecordReportPage(req.ViewID)

		table, diag := FormatPage(resp)
		for _, issue := range diag.Issues() {
			f.metrics.RecordDecodeIssue(issue.Shape)
			log.WithError(issue).WithFields(map[string]any{
				"page":  result.Pages,
				"shape": issue.Shape,
			}).Warn("Page shape could not be decoded, treating it as empty")
		}

		pages = append(pages, table)
		result.PageRows = append(result.PageRows, table.NumRows())
		result.Diagnostics = append(result.Diagnostics, diag)

		log.WithFields(map[string]any{
			"page":       result.Pages,
			"rows":       table.NumRows(),
			"columns":    table.NumColumns(),
			"next_token": report.NextPageToken,
		}).Debug("Fetched report page")

		if report.NextPageToken == "" {
			break
		}
		token = report.NextPageToken
	}

	result.Table = domain.Concat(pages...)

	log.WithFields(map[string]any{
		"pages":   result.Pages,
		"rows":    result.Table.NumRows(),
		"columns": result.Table.NumColumns(),
	}).Info("Report fetch completed")

	return result, nil
}
