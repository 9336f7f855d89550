package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gaexport/internal/domain"
	"gaexport/pkg/logger"
	"gaexport/pkg/metrics"
)

// RunRequest overrides the service defaults for one run. Zero values keep the defaults.
// An Output other than the configured one must be allowed by the service's OutputPolicy.
type RunRequest struct {
	ViewID   string `json:"view_id"`
	PageSize int64  `json:"page_size"`
	Output   string `json:"output"`
}

type ExportService struct {
	fetcher  *ReportFetcher
	encoder  domain.TableEncoder
	sink     domain.ResultSink
	runs     domain.RunRepository
	template domain.ReportsBody
	defaults RunRequest
	outputs  domain.OutputPolicy
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewExportService(
	fetcher *ReportFetcher,
	encoder domain.TableEncoder,
	sink domain.ResultSink,
	runs domain.RunRepository,
	template domain.ReportsBody,
	defaults RunRequest,
	outputs domain.OutputPolicy,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *ExportService {
	return &ExportService{
		fetcher:  fetcher,
		encoder:  encoder,
		sink:     sink,
		runs:     runs,
		template: template,
		defaults: defaults,
		outputs:  outputs,
		logger:   logger,
		metrics:  metrics,
	}
}

// Run fetches the whole report, encodes it and hands it to the sink exactly once.
// The returned run is populated even when err is non-nil so callers can report its id.
func (s *ExportService) Run(ctx context.Context, req RunRequest) (*domain.ExportRun, error) {
	start := time.Now()
	s.metrics.IncExportRunsInProgress()
	defer s.metrics.DecExportRunsInProgress()

	override := req.Output != "" && req.Output != s.defaults.Output
	req = s.resolve(req)
	run := domain.ExportRun{
		ID:        uuid.New().String(),
		ViewID:    req.ViewID,
		Status:    domain.RunStatusRunning,
		StartedAt: start.UTC(),
	}
	ctx = context.WithValue(ctx, logger.RunIDKey, run.ID)
	log := s.logger.WithContext(ctx)

	if req.ViewID == "" {
		return s.fail(ctx, run, "validate", fmt.Errorf("%w: view id is required", domain.ErrInvalidRunRequest))
	}

	dest, err := domain.ParseDestination(req.Output)
	if err != nil {
		return s.fail(ctx, run, "validate", err)
	}
	run.Destination = dest.String()
	if override && !s.outputs.Allows(dest) {
		return s.fail(ctx, run, "validate", fmt.Errorf("%w: %s is not an allowed output", domain.ErrUnsupportedDestination, run.Destination))
	}

	if err := s.runs.Store(ctx, run); err != nil {
		return s.fail(ctx, run, "store", fmt.Errorf("failed to record run: %w", err))
	}

	log.WithFields(map[string]any{
		"view_id":     req.ViewID,
		"page_size":   req.PageSize,
		"destination": run.Destination,
	}).Info("Starting report export")

	result, err := s.fetcher.Fetch(ctx, FetchRequest{
		Template: s.template,
		ViewID:   req.ViewID,
		PageSize: req.PageSize,
	})
	if err != nil {
		return s.fail(ctx, run, "fetch", fmt.Errorf("failed to fetch report: %w", err))
	}
	run.Pages = result.Pages
	run.Rows = result.Table.NumRows()
	run.Columns = result.Table.NumColumns()
	run.DecodeIssues = result.DecodeIssues()

	data, err := s.encoder.Encode(result.Table)
	if err != nil {
		return s.fail(ctx, run, "encode", fmt.Errorf("failed to encode report: %w", err))
	}

	if err := s.sink.Put(ctx, dest, data, s.encoder.ContentType()); err != nil {
		s.metrics.RecordSinkWrite(dest.Scheme, "failed", 0, 0)
		return s.fail(ctx, run, "sink", fmt.Errorf("failed to write report to %s: %w", run.Destination, err))
	}
	s.metrics.RecordSinkWrite(dest.Scheme, "success", len(data), run.Rows)

	finished := time.Now().UTC()
	run.Bytes = len(data)
	run.Status = domain.RunStatusSucceeded
	run.FinishedAt = &finished
	run.Duration = time.Since(start)

	if err := s.runs.Store(ctx, run); err != nil {
		log.WithError(err).Error("Failed to record finished run")
	}
	s.metrics.RecordExportRun("success", "complete", run.Duration)

	log.WithFields(map[string]any{
		"duration":      run.Duration,
		"pages":         run.Pages,
		"rows":          run.Rows,
		"columns":       run.Columns,
		"bytes":         run.Bytes,
		"decode_issues": run.DecodeIssues,
	}).Info("Report export completed successfully")

	return &run, nil
}

func (s *ExportService) ListRuns(ctx context.Context, filter domain.ExportRunFilter) (*domain.ExportRunList, error) {
	list, err := s.runs.GetByFilter(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list export runs: %w", err)
	}
	return list, nil
}

func (s *ExportService) GetRun(ctx context.Context, id string) (*domain.ExportRun, error) {
	run, err := s.runs.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get export run %s: %w", id, err)
	}
	return run, nil
}

// resolve fills unset request fields from the service defaults and the template.
func (s *ExportService) resolve(req RunRequest) RunRequest {
	if req.ViewID == "" {
		req.ViewID = s.defaults.ViewID
	}
	if req.ViewID == "" && len(s.template.ReportRequests) > 0 {
		req.ViewID = s.template.ReportRequests[0].ViewID
	}
	if req.PageSize <= 0 {
		req.PageSize = s.defaults.PageSize
	}
	if req.PageSize <= 0 {
		req.PageSize = DefaultPageSize
	}
	if req.Output == "" {
		req.Output = s.defaults.Output
	}
	return req
}

func (s *ExportService) fail(ctx context.Context, run domain.ExportRun, stage string, err error) (*domain.ExportRun, error) {
	finished := time.Now().UTC()
	run.Status = domain.RunStatusFailed
	run.Error = err.Error()
	run.FinishedAt = &finished
	run.Duration = finished.Sub(run.StartedAt)

	if storeErr := s.runs.Store(ctx, run); storeErr != nil {
		s.logger.WithContext(ctx).WithError(storeErr).Error("Failed to record failed run")
	}
	s.metrics.RecordExportRun("failed", stage, run.Duration)
	s.logger.WithContext(ctx).WithError(err).WithField("stage", stage).Error("Report export failed")

	return &run, err
}
