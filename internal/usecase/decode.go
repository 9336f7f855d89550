package usecase

import (
	"fmt"
	"slices"
	"strconv"

	"gaexport/internal/domain"
)

const (
	ShapeSummary = "summary"
	ShapePivot   = "pivot"
)

// DecodeSummary turns a page's summary rows into a flat table: one column per metric
// header entry, one row per data row, cells taken from the first metric value group.
// It returns domain.ErrNoData when the page has no rows and a *domain.DecodeError when
// the page does not have the expected shape. It never returns a partial table.
func DecodeSummary(resp *domain.ReportsResponse) (*domain.Table, error) {
	report := resp.FirstReport()
	if report == nil {
		return nil, decodeError(ShapeSummary, "reports", "missing")
	}
	if report.Data == nil || len(report.Data.Rows) == 0 {
		return nil, fmt.Errorf("%s: %w", ShapeSummary, domain.ErrNoData)
	}
	if report.ColumnHeader == nil || report.ColumnHeader.MetricHeader == nil {
		return nil, decodeError(ShapeSummary, "columnHeader.metricHeader", "missing")
	}

	entries := report.ColumnHeader.MetricHeader.MetricHeaderEntries
	if len(entries) == 0 {
		return nil, decodeError(ShapeSummary, "metricHeader.metricHeaderEntries", "missing")
	}

	columns := make([]domain.Column, len(entries))
	for j, e := range entries {
		columns[j] = domain.Column{Metric: e.Name}
	}

	rows := make([][]float64, len(report.Data.Rows))
	for i, row := range report.Data.Rows {
		if len(row.Metrics) == 0 {
			return nil, decodeError(ShapeSummary, fmt.Sprintf("rows[%d].metrics", i), "missing")
		}
		values, err := parseValues(row.Metrics[0].Values, len(columns))
		if err != nil {
			return nil, decodeError(ShapeSummary, fmt.Sprintf("rows[%d].metrics[0].values", i), err.Error())
		}
		rows[i] = values
	}

	names, index := rowIndex(report)
	return &domain.Table{IndexNames: names, Index: index, Columns: columns, Rows: rows}, nil
}

// DecodePivot turns a page's pivot regions into a table with grouped columns. Column j
// pairs pivot header entry j's dimension values (outer level) with its metric name
// (inner level). Only the first pivot and the first value group are read.
// A page without a pivot header yields domain.ErrNoData.
func DecodePivot(resp *domain.ReportsResponse) (*domain.Table, error) {
	report := resp.FirstReport()
	if report == nil {
		return nil, decodeError(ShapePivot, "reports", "missing")
	}
	if report.Data == nil || len(report.Data.Rows) == 0 {
		return nil, fmt.Errorf("%s: %w", ShapePivot, domain.ErrNoData)
	}
	if report.ColumnHeader == nil {
		return nil, decodeError(ShapePivot, "columnHeader", "missing")
	}

	header := report.ColumnHeader.MetricHeader
	if header == nil || len(header.PivotHeaders) == 0 || len(header.PivotHeaders[0].PivotHeaderEntries) == 0 {
		return nil, fmt.Errorf("%s: %w", ShapePivot, domain.ErrNoData)
	}

	entries := header.PivotHeaders[0].PivotHeaderEntries
	columns := make([]domain.Column, len(entries))
	for j, e := range entries {
		if e.Metric == nil {
			return nil, decodeError(ShapePivot, fmt.Sprintf("pivotHeaderEntries[%d].metric", j), "missing")
		}
		if len(e.DimensionValues) != len(entries[0].DimensionValues) {
			return nil, decodeError(ShapePivot, fmt.Sprintf("pivotHeaderEntries[%d].dimensionValues", j),
				fmt.Sprintf("has %d values, want %d", len(e.DimensionValues), len(entries[0].DimensionValues)))
		}
		columns[j] = domain.Column{Group: slices.Clone(e.DimensionValues), Metric: e.Metric.Name}
	}

	rows := make([][]float64, len(report.Data.Rows))
	for i, row := range report.Data.Rows {
		if len(row.Metrics) == 0 {
			return nil, decodeError(ShapePivot, fmt.Sprintf("rows[%d].metrics", i), "missing")
		}
		if len(row.Metrics[0].PivotValueRegions) == 0 {
			return nil, decodeError(ShapePivot, fmt.Sprintf("rows[%d].metrics[0].pivotValueRegions", i), "missing")
		}
		values, err := parseValues(row.Metrics[0].PivotValueRegions[0].Values, len(columns))
		if err != nil {
			return nil, decodeError(ShapePivot, fmt.Sprintf("rows[%d].metrics[0].pivotValueRegions[0].values", i), err.Error())
		}
		rows[i] = values
	}

	names, index := rowIndex(report)
	return &domain.Table{IndexNames: names, Index: index, Columns: columns, Rows: rows}, nil
}

// rowIndex labels rows by their dimension values when the header names them and every
// row carries one value per name; otherwise rows are numbered.
func rowIndex(report *domain.Report) ([]string, [][]string) {
	rows := report.Data.Rows

	if report.ColumnHeader != nil && len(report.ColumnHeader.Dimensions) > 0 {
		names := report.ColumnHeader.Dimensions
		index := make([][]string, len(rows))
		complete := true
		for i, row := range rows {
			if len(row.Dimensions) != len(names) {
				complete = false
				break
			}
			index[i] = slices.Clone(row.Dimensions)
		}
		if complete {
			return slices.Clone(names), index
		}
	}

	return nil, domain.PositionalIndex(len(rows))
}

func parseValues(raw []string, want int) ([]float64, error) {
	if len(raw) != want {
		return nil, fmt.Errorf("has %d values, want %d", len(raw), want)
	}
	values := make([]float64, len(raw))
	for i, s := range raw {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("value %d: %q is not numeric", i, s)
		}
		values[i] = v
	}
	return values, nil
}

func decodeError(shape, field, reason string) error {
	return &domain.DecodeError{Shape: shape, Field: field, Reason: reason}
}
