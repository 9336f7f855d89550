package infrastructure

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"gaexport/internal/domain"
	"gaexport/pkg/logger"
	"gaexport/pkg/metrics"
)

// implements domain.ResultSink on Cloud Storage. The client is created on first use
// so runs that never target gs:// do not need storage credentials.
type GCSSink struct {
	opts    []option.ClientOption
	mu      sync.Mutex
	client  *storage.Client
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewGCSSink(credentialsJSON []byte, logger *logger.Logger, metrics *metrics.Metrics) *GCSSink {
	var opts []option.ClientOption
	if len(credentialsJSON) > 0 {
		opts = append(opts, option.WithCredentialsJSON(credentialsJSON))
	}
	return &GCSSink{opts: opts, logger: logger, metrics: metrics}
}

func (s *GCSSink) storageClient(ctx context.Context) (*storage.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}
	client, err := storage.NewClient(ctx, s.opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	s.client = client
	return client, nil
}

func (s *GCSSink) Put(ctx context.Context, dest domain.Destination, data []byte, contentType string) error {
	if dest.Scheme != domain.SchemeGCS {
		return fmt.Errorf("%w: gcs sink cannot write to %s", domain.ErrUnsupportedDestination, dest)
	}

	client, err := s.storageClient(ctx)
	if err != nil {
		s.metrics.RecordExternalAPIFailure("sink_gcs", "client_creation")
		return err
	}

	start := time.Now()
	w := client.Bucket(dest.Bucket).Object(dest.Path).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		w.Close()
		s.metrics.RecordExternalAPIFailure("sink_gcs", "write")
		return fmt.Errorf("failed to write gs://%s/%s: %w", dest.Bucket, dest.Path, err)
	}
	if err := w.Close(); err != nil {
		s.metrics.RecordExternalAPIFailure("sink_gcs", "close")
		return fmt.Errorf("failed to finalize gs://%s/%s: %w", dest.Bucket, dest.Path, err)
	}

	duration := time.Since(start)
	s.metrics.RecordExternalAPICall("sink_gcs", "success", duration)

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"bucket":   dest.Bucket,
		"object":   dest.Path,
		"bytes":    len(data),
		"duration": duration,
	}).Info("Uploaded result to Cloud Storage")
	return nil
}

// Close releases the storage client if one was created.
func (s *GCSSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}
