package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gaexport/internal/app"
	"gaexport/internal/usecase"
	"gaexport/pkg/config"
	"gaexport/pkg/logger"
	"gaexport/pkg/metrics"
)

type flags struct {
	definition        string
	viewID            string
	pageSize          int
	maxPages          int
	output            string
	credentialsFile   string
	credentialsSecret string
	logLevel          string
}

func main() {
	var f flags

	var rootCmd = &cobra.Command{
		Use:          "export",
		Short:        "Fetch every page of an Analytics report and write it as CSV",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExport(cmd, f)
		},
	}

	rootCmd.Flags().StringVarP(&f.definition, "definition", "d", "", "Path to the report definition (YAML or JSON)")
	rootCmd.Flags().StringVar(&f.viewID, "view-id", "", "View to query (defaults to the definition's view_id)")
	rootCmd.Flags().IntVar(&f.pageSize, "page-size", 0, "Rows per page (default 10000)")
	rootCmd.Flags().IntVar(&f.maxPages, "max-pages", 0, "Abort after this many pages (default 10000)")
	rootCmd.Flags().StringVarP(&f.output, "output", "o", "", "Local path, gs://, s3:// or http(s):// destination")
	rootCmd.Flags().StringVar(&f.credentialsFile, "credentials-file", "", "Service-account key file")
	rootCmd.Flags().StringVar(&f.credentialsSecret, "credentials-secret", "", "Secret Manager version holding the service-account key")
	rootCmd.Flags().StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runExport(cmd *cobra.Command, f flags) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applyFlags(cfg, f)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := logger.New(cfg.Logging.Level)
	m := metrics.New()

	ctx := cmd.Context()
	if cfg.Export.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Export.RunTimeout)
		defer cancel()
	}

	application, err := app.New(ctx, cfg, log, m)
	if err != nil {
		return err
	}
	defer application.Close()

	run, err := application.Service.Run(ctx, usecase.RunRequest{})
	if err != nil {
		return fmt.Errorf("export run %s failed: %w", run.ID, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows x %d columns from %d pages to %s\n",
		run.Rows, run.Columns, run.Pages, run.Destination)
	return nil
}

// applyFlags lets explicitly set flags win over environment settings.
func applyFlags(cfg *config.Config, f flags) {
	if f.definition != "" {
		cfg.Export.DefinitionPath = f.definition
	}
	if f.viewID != "" {
		cfg.Export.ViewID = f.viewID
	}
	if f.pageSize > 0 {
		cfg.Export.PageSize = f.pageSize
	}
	if f.maxPages > 0 {
		cfg.Export.MaxPages = f.maxPages
	}
	if f.output != "" {
		cfg.Export.Output = f.output
	}
	if f.credentialsFile != "" {
		cfg.Credentials = config.CredentialsConfig{File: f.credentialsFile}
	}
	if f.credentialsSecret != "" {
		cfg.Credentials = config.CredentialsConfig{Secret: f.credentialsSecret}
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
}
