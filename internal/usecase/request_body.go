package usecase

import (
	"fmt"

	"gaexport/internal/domain"
)

// BuildRequestBody returns a copy of template with the view, page size and page token
// set on its report request. The template itself is left untouched.
func BuildRequestBody(template domain.ReportsBody, viewID string, pageSize int64, pageToken string) (domain.ReportsBody, error) {
	if n := len(template.ReportRequests); n != 1 {
		return domain.ReportsBody{}, fmt.Errorf("%w: expected exactly one report request, got %d", domain.ErrMalformedTemplate, n)
	}

	body := template.Clone()
	req := &body.ReportRequests[0]
	req.ViewID = viewID
	req.PageSize = pageSize
	req.PageToken = pageToken

	return body, nil
}
