package domain

import (
	"context"
)

// interface for the remote reporting API (one call per page)
type ReportAPIClient interface {
	BatchGet(ctx context.Context, body ReportsBody) (*ReportsResponse, error)
}

// interface for persisting an encoded result
type ResultSink interface {
	Put(ctx context.Context, dest Destination, data []byte, contentType string) error
}

// interface for export run bookkeeping
type RunRepository interface {
	Store(ctx context.Context, run ExportRun) error
	GetByID(ctx context.Context, id string) (*ExportRun, error)
	GetByFilter(ctx context.Context, filter ExportRunFilter) (*ExportRunList, error)
}

// interface for loading service-account key material
type CredentialSource interface {
	Credentials(ctx context.Context) ([]byte, error)
}

// interface for serializing a result table
type TableEncoder interface {
	Encode(table *Table) ([]byte, error)
	ContentType() string
}
