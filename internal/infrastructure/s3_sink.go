package infrastructure

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"gaexport/internal/domain"
	"gaexport/pkg/logger"
	"gaexport/pkg/metrics"
)

// the subset of the S3 client the sink uses
type S3PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// implements domain.ResultSink on S3
type S3Sink struct {
	region  string
	mu      sync.Mutex
	client  S3PutObjectAPI
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewS3Sink(region string, logger *logger.Logger, metrics *metrics.Metrics) *S3Sink {
	return &S3Sink{region: region, logger: logger, metrics: metrics}
}

// NewS3SinkWithClient uses an already configured client.
func NewS3SinkWithClient(client S3PutObjectAPI, logger *logger.Logger, metrics *metrics.Metrics) *S3Sink {
	return &S3Sink{client: client, logger: logger, metrics: metrics}
}

func (s *S3Sink) api(ctx context.Context) (S3PutObjectAPI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}

	var opts []func(*awsconfig.LoadOptions) error
	if s.region != "" {
		opts = append(opts, awsconfig.WithRegion(s.region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	s.client = s3.NewFromConfig(cfg)
	return s.client, nil
}

func (s *S3Sink) Put(ctx context.Context, dest domain.Destination, data []byte, contentType string) error {
	if dest.Scheme != domain.SchemeS3 {
		return fmt.Errorf("%w: s3 sink cannot write to %s", domain.ErrUnsupportedDestination, dest)
	}

	client, err := s.api(ctx)
	if err != nil {
		s.metrics.RecordExternalAPIFailure("sink_s3", "client_creation")
		return err
	}

	start := time.Now()
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(dest.Bucket),
		Key:         aws.String(dest.Path),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	duration := time.Since(start)
	if err != nil {
		s.metrics.RecordExternalAPIFailure("sink_s3", "put_object")
		return fmt.Errorf("failed to put s3://%s/%s: %w", dest.Bucket, dest.Path, err)
	}

	s.metrics.RecordExternalAPICall("sink_s3", "success", duration)

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"bucket":   dest.Bucket,
		"key":      dest.Path,
		"bytes":    len(data),
		"duration": duration,
	}).Info("Uploaded result to S3")
	return nil
}
