package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gaexport/internal/domain"
)

func TestBuildRequestBody(t *testing.T) {
	template := testTemplate()

	body, err := BuildRequestBody(template, "ga:123", 500, "0")
	require.NoError(t, err)

	req := body.ReportRequests[0]
	assert.Equal(t, "ga:123", req.ViewID)
	assert.Equal(t, int64(500), req.PageSize)
	assert.Equal(t, "0", req.PageToken)
	assert.Equal(t, template.ReportRequests[0].Metrics, req.Metrics)
}

func TestBuildRequestBody_DoesNotMutateTemplate(t *testing.T) {
	template := testTemplate()

	first, err := BuildRequestBody(template, "ga:1", 10, "0")
	require.NoError(t, err)
	second, err := BuildRequestBody(template, "ga:2", 20, "10")
	require.NoError(t, err)

	first.ReportRequests[0].Metrics[0].Expression = "ga:changed"

	assert.Empty(t, template.ReportRequests[0].ViewID)
	assert.Empty(t, template.ReportRequests[0].PageToken)
	assert.Zero(t, template.ReportRequests[0].PageSize)
	assert.Equal(t, "ga:sessions", template.ReportRequests[0].Metrics[0].Expression)
	assert.Equal(t, "ga:sessions", second.ReportRequests[0].Metrics[0].Expression)
	assert.Equal(t, "ga:1", first.ReportRequests[0].ViewID)
	assert.Equal(t, "10", second.ReportRequests[0].PageToken)
}

func TestBuildRequestBody_MalformedTemplate(t *testing.T) {
	for name, template := range map[string]domain.ReportsBody{
		"empty": {},
		"batch": {ReportRequests: []domain.ReportRequest{{}, {}}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := BuildRequestBody(template, "ga:1", 10, "0")
			assert.ErrorIs(t, err, domain.ErrMalformedTemplate)
		})
	}
}
