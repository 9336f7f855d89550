// Package app assembles the export pipeline from configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"gaexport/internal/domain"
	"gaexport/internal/infrastructure"
	"gaexport/internal/usecase"
	"gaexport/pkg/config"
	"gaexport/pkg/logger"
	"gaexport/pkg/metrics"
)

type App struct {
	Service    *usecase.ExportService
	Definition *config.ReportDefinition
	gcs        *infrastructure.GCSSink
}

// New loads the report definition and credentials and wires the client, sinks and service.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger, m *metrics.Metrics) (*App, error) {
	if cfg.Export.DefinitionPath == "" {
		return nil, errors.New("a report definition is required (REPORT_DEFINITION or --definition)")
	}
	def, err := config.LoadReportDefinition(cfg.Export.DefinitionPath)
	if err != nil {
		return nil, err
	}

	creds, err := infrastructure.LoadCredentials(ctx, infrastructure.NewCredentialSource(cfg.Credentials))
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	client, err := infrastructure.NewAnalyticsClient(ctx, infrastructure.AnalyticsClientOptions{
		CredentialsJSON:    creds,
		Endpoint:           cfg.Export.APIEndpoint,
		RateLimitPerSecond: cfg.Export.RateLimitPerSecond,
		Timeout:            cfg.Export.RequestTimeout,
	}, log, m)
	if err != nil {
		return nil, err
	}

	gcs := infrastructure.NewGCSSink(creds, log, m)
	router := infrastructure.NewSinkRouter().
		Register(domain.SchemeFile, infrastructure.NewFileSink(log)).
		Register(domain.SchemeGCS, gcs).
		Register(domain.SchemeS3, infrastructure.NewS3Sink(cfg.Sinks.AWSRegion, log, m)).
		Register(domain.SchemeHTTP, infrastructure.NewHTTPSink(cfg.Sinks.HTTPSecret, cfg.Sinks.HTTPTimeout, log, m))

	fetcher := usecase.NewReportFetcher(client, cfg.Export.MaxPages, log, m)
	service := usecase.NewExportService(
		fetcher,
		infrastructure.NewCSVEncoder(),
		router,
		infrastructure.NewRunRepository(log),
		def.Template(),
		usecase.RunRequest{
			ViewID:   cfg.Export.ViewID,
			PageSize: int64(cfg.Export.PageSize),
			Output:   cfg.Export.Output,
		},
		domain.NewOutputPolicy(cfg.Export.AllowedOutputs),
		log,
		m,
	)

	return &App{Service: service, Definition: def, gcs: gcs}, nil
}

func (a *App) Close() error {
	return a.gcs.Close()
}
