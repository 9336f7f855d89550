package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
	analyticsreporting "google.golang.org/api/analyticsreporting/v4"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"gaexport/internal/domain"
	"gaexport/pkg/logger"
	"gaexport/pkg/metrics"
)

const analyticsAPI = "analyticsreporting"

type AnalyticsClientOptions struct {
	// CredentialsJSON is a service-account key. Empty means application default credentials.
	CredentialsJSON []byte
	// Endpoint overrides the API base URL.
	Endpoint string
	// HTTPClient replaces the authenticated transport entirely.
	HTTPClient         *http.Client
	RateLimitPerSecond int
	Timeout            time.Duration
}

// implements domain.ReportAPIClient on the Reporting API v4
type AnalyticsClient struct {
	service     *analyticsreporting.Service
	rateLimiter *rate.Limiter
	timeout     time.Duration
	logger      *logger.Logger
	metrics     *metrics.Metrics
}

func NewAnalyticsClient(ctx context.Context, opts AnalyticsClientOptions, logger *logger.Logger, metrics *metrics.Metrics) (*AnalyticsClient, error) {
	clientOpts := []option.ClientOption{
		option.WithScopes(analyticsreporting.AnalyticsReadonlyScope),
	}
	if len(opts.CredentialsJSON) > 0 {
		clientOpts = append(clientOpts, option.WithCredentialsJSON(opts.CredentialsJSON))
	}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}

	service, err := analyticsreporting.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create analytics reporting service: %w", err)
	}

	limit := opts.RateLimitPerSecond
	if limit <= 0 {
		limit = 10
	}

	return &AnalyticsClient{
		service:     service,
		rateLimiter: rate.NewLimiter(rate.Limit(limit), 1),
		timeout:     opts.Timeout,
		logger:      logger,
		metrics:     metrics,
	}, nil
}

// BatchGet issues one reports.batchGet call.
func (c *AnalyticsClient) BatchGet(ctx context.Context, body domain.ReportsBody) (*domain.ReportsResponse, error) {
	// Apply rate limiting
	if err := c.rateLimiter.Wait(ctx); err != nil {
		c.metrics.RecordExternalAPIFailure(analyticsAPI, "rate_limit")
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	var req analyticsreporting.GetReportsRequest
	if err := convertJSON(body, &req); err != nil {
		c.metrics.RecordExternalAPIFailure(analyticsAPI, "request_encoding")
		return nil, fmt.Errorf("failed to encode report request: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.service.Reports.BatchGet(&req).Context(ctx).Do()
	duration := time.Since(start)
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			c.metrics.RecordExternalAPICall(analyticsAPI, fmt.Sprintf("error_%d", apiErr.Code), duration)
		} else {
			c.metrics.RecordExternalAPIFailure(analyticsAPI, "network_error")
		}
		return nil, fmt.Errorf("reports.batchGet failed: %w", err)
	}

	var page domain.ReportsResponse
	if err := convertJSON(resp, &page); err != nil {
		c.metrics.RecordExternalAPIFailure(analyticsAPI, "json_parse")
		return nil, fmt.Errorf("failed to parse report response: %w", err)
	}

	c.metrics.RecordExternalAPICall(analyticsAPI, "success", duration)

	fields := map[string]any{
		"duration": duration,
		"reports":  len(page.Reports),
	}
	if report := page.FirstReport(); report != nil {
		fields["next_page_token"] = report.NextPageToken
	}
	c.logger.WithContext(ctx).WithFields(fields).Debug("Fetched report page from analytics API")

	return &page, nil
}

// convertJSON moves a value between the domain records and the generated API types,
// which share the same JSON form.
func convertJSON(from, to any) error {
	data, err := json.Marshal(from)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, to)
}
