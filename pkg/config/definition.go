package config

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"

	"gaexport/internal/domain"
)

// relative dates ("today", "7daysAgo") are accepted by the reporting API as well
var datePattern = regexp.MustCompile(`^(today|yesterday|[0-9]+daysAgo|[0-9]{4}-[0-9]{2}-[0-9]{2})$`)

// ReportDefinition is the on-disk description of one report request.
type ReportDefinition struct {
	ViewID            string            `mapstructure:"view_id"`
	StartDate         string            `mapstructure:"start_date"`
	EndDate           string            `mapstructure:"end_date"`
	DateRanges        []DateRangeConfig `mapstructure:"date_ranges"`
	Metrics           []string          `mapstructure:"metrics"`
	Dimensions        []string          `mapstructure:"dimensions"`
	Pivots            []PivotConfig     `mapstructure:"pivots"`
	FiltersExpression string            `mapstructure:"filters_expression"`
	SamplingLevel     string            `mapstructure:"sampling_level"`
	IncludeEmptyRows  bool              `mapstructure:"include_empty_rows"`
	HideTotals        bool              `mapstructure:"hide_totals"`
}

type DateRangeConfig struct {
	StartDate string `mapstructure:"start_date"`
	EndDate   string `mapstructure:"end_date"`
}

type PivotConfig struct {
	Dimensions    []string `mapstructure:"dimensions"`
	Metrics       []string `mapstructure:"metrics"`
	StartGroup    int64    `mapstructure:"start_group"`
	MaxGroupCount int64    `mapstructure:"max_group_count"`
}

// LoadReportDefinition reads a YAML or JSON report definition.
func LoadReportDefinition(path string) (*ReportDefinition, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read report definition: %w", err)
	}

	var def ReportDefinition
	if err := v.Unmarshal(&def); err != nil {
		return nil, fmt.Errorf("failed to parse report definition: %w", err)
	}

	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report definition %s: %w", path, err)
	}

	return &def, nil
}

func (d *ReportDefinition) ranges() []DateRangeConfig {
	if len(d.DateRanges) > 0 {
		return d.DateRanges
	}
	if d.StartDate == "" && d.EndDate == "" {
		return nil
	}
	return []DateRangeConfig{{StartDate: d.StartDate, EndDate: d.EndDate}}
}

func (d *ReportDefinition) Validate() error {
	var result *multierror.Error

	if len(d.Metrics) == 0 {
		result = multierror.Append(result, errors.New("at least one metric is required"))
	}

	ranges := d.ranges()
	if len(ranges) == 0 {
		result = multierror.Append(result, errors.New("a date range is required"))
	}
	for i, r := range ranges {
		if !datePattern.MatchString(r.StartDate) {
			result = multierror.Append(result, fmt.Errorf("date range %d: invalid start date %q", i, r.StartDate))
		}
		if !datePattern.MatchString(r.EndDate) {
			result = multierror.Append(result, fmt.Errorf("date range %d: invalid end date %q", i, r.EndDate))
		}
	}

	for i, p := range d.Pivots {
		if len(p.Dimensions) == 0 || len(p.Metrics) == 0 {
			result = multierror.Append(result, fmt.Errorf("pivot %d: needs dimensions and metrics", i))
		}
	}

	return result.ErrorOrNil()
}

// Template builds the single-request body that the fetcher pages through.
func (d *ReportDefinition) Template() domain.ReportsBody {
	req := domain.ReportRequest{
		ViewID:            d.ViewID,
		FiltersExpression: d.FiltersExpression,
		SamplingLevel:     d.SamplingLevel,
		IncludeEmptyRows:  d.IncludeEmptyRows,
		HideTotals:        d.HideTotals,
		Metrics:           toMetrics(d.Metrics),
		Dimensions:        toDimensions(d.Dimensions),
	}

	for _, r := range d.ranges() {
		req.DateRanges = append(req.DateRanges, domain.DateRange{StartDate: r.StartDate, EndDate: r.EndDate})
	}

	for _, p := range d.Pivots {
		req.Pivots = append(req.Pivots, domain.Pivot{
			Dimensions:    toDimensions(p.Dimensions),
			Metrics:       toMetrics(p.Metrics),
			StartGroup:    p.StartGroup,
			MaxGroupCount: p.MaxGroupCount,
		})
	}

	return domain.ReportsBody{ReportRequests: []domain.ReportRequest{req}}
}

func toMetrics(expressions []string) []domain.Metric {
	var out []domain.Metric
	for _, e := range expressions {
		out = append(out, domain.Metric{Expression: e})
	}
	return out
}

func toDimensions(names []string) []domain.Dimension {
	var out []domain.Dimension
	for _, n := range names {
		out = append(out, domain.Dimension{Name: n})
	}
	return out
}
