package usecase

import (
	"errors"

	"gaexport/internal/domain"
)

// PageDiagnostics keeps the decode outcome of both shapes of one page.
type PageDiagnostics struct {
	SummaryErr error
	PivotErr   error
}

// Issues returns the decode failures, leaving out shapes that simply had no data.
func (d PageDiagnostics) Issues() []*domain.DecodeError {
	var issues []*domain.DecodeError
	for _, err := range []error{d.SummaryErr, d.PivotErr} {
		var decodeErr *domain.DecodeError
		if errors.As(err, &decodeErr) {
			issues = append(issues, decodeErr)
		}
	}
	return issues
}

// MergePage joins a page's summary and pivot tables on the row index. When the pivot
// table has grouped columns the summary columns get empty outer labels first.
func MergePage(summary, pivot *domain.Table) *domain.Table {
	if summary == nil {
		summary = &domain.Table{}
	}
	if pivot.IsEmpty() {
		return summary
	}

	if depth := pivot.Depth(); depth > 1 {
		summary = summary.Promote(depth)
	}

	return domain.JoinColumns(summary, pivot)
}

// FormatPage decodes both shapes of a page and merges them. Shapes that fail to decode
// contribute an empty table; the reason is reported in the diagnostics.
func FormatPage(resp *domain.ReportsResponse) (*domain.Table, PageDiagnostics) {
	var diag PageDiagnostics

	summary, err := DecodeSummary(resp)
	if err != nil {
		diag.SummaryErr = err
		summary = &domain.Table{}
	}

	pivot, err := DecodePivot(resp)
	if err != nil {
		diag.PivotErr = err
		pivot = &domain.Table{}
	}

	return MergePage(summary, pivot), diag
}
