package infrastructure

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"gaexport/internal/domain"
	"gaexport/pkg/logger"
	"gaexport/pkg/metrics"
)

// implements domain.ResultSink by POSTing the encoded result to an HTTP endpoint
type HTTPSink struct {
	client  *http.Client
	secret  string
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// creates a new HTTP sink; a non-empty secret signs each payload
func NewHTTPSink(secret string, timeout time.Duration, logger *logger.Logger, metrics *metrics.Metrics) *HTTPSink {
	return &HTTPSink{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		secret:  secret,
		logger:  logger,
		metrics: metrics,
	}
}

func (s *HTTPSink) Put(ctx context.Context, dest domain.Destination, data []byte, contentType string) error {
	if dest.Scheme != domain.SchemeHTTP || dest.URL == "" {
		return fmt.Errorf("%w: http sink cannot write to %s", domain.ErrUnsupportedDestination, dest)
	}

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, dest.URL, bytes.NewReader(data))
	if err != nil {
		s.metrics.RecordExternalAPIFailure("sink_http", "request_creation")
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)

	// Add HMAC signature if secret is provided
	if s.secret != "" {
		req.Header.Set("X-Signature", s.generateHMACSignature(data))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.metrics.RecordExternalAPIFailure("sink_http", "network_error")
		return fmt.Errorf("failed to post result: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.metrics.RecordExternalAPICall("sink_http", fmt.Sprintf("error_%d", resp.StatusCode), duration)
		return fmt.Errorf("sink endpoint returned status %d", resp.StatusCode)
	}

	s.metrics.RecordExternalAPICall("sink_http", "success", duration)

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"url":      dest.URL,
		"duration": duration,
		"bytes":    len(data),
	}).Info("Successfully posted result")

	return nil
}

// generates HMAC-SHA256 signature for the payload
func (s *HTTPSink) generateHMACSignature(payload []byte) string {
	h := hmac.New(sha256.New, []byte(s.secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
