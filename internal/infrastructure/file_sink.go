package infrastructure

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gaexport/internal/domain"
	"gaexport/pkg/logger"
)

// implements domain.ResultSink on the local filesystem
type FileSink struct {
	logger *logger.Logger
}

func NewFileSink(logger *logger.Logger) *FileSink {
	return &FileSink{logger: logger}
}

func (s *FileSink) Put(ctx context.Context, dest domain.Destination, data []byte, contentType string) error {
	if dest.Scheme != domain.SchemeFile || dest.Path == "" {
		return fmt.Errorf("%w: file sink cannot write to %s", domain.ErrUnsupportedDestination, dest)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if dir := filepath.Dir(dest.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(dest.Path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dest.Path, err)
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"path":  dest.Path,
		"bytes": len(data),
	}).Info("Wrote result file")
	return nil
}
