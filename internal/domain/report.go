package domain

import "slices"

// ReportsBody is the batchGet request body. Only single-request bodies are supported.
type ReportsBody struct {
	ReportRequests []ReportRequest `json:"reportRequests"`
}

type ReportRequest struct {
	ViewID            string      `json:"viewId,omitempty"`
	DateRanges        []DateRange `json:"dateRanges,omitempty"`
	Metrics           []Metric    `json:"metrics,omitempty"`
	Dimensions        []Dimension `json:"dimensions,omitempty"`
	Pivots            []Pivot     `json:"pivots,omitempty"`
	OrderBys          []OrderBy   `json:"orderBys,omitempty"`
	FiltersExpression string      `json:"filtersExpression,omitempty"`
	SamplingLevel     string      `json:"samplingLevel,omitempty"`
	IncludeEmptyRows  bool        `json:"includeEmptyRows,omitempty"`
	HideTotals        bool        `json:"hideTotals,omitempty"`
	HideValueRanges   bool        `json:"hideValueRanges,omitempty"`
	PageSize          int64       `json:"pageSize,omitempty"`
	PageToken         string      `json:"pageToken,omitempty"`
}

type DateRange struct {
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

// Metric identifies a metric by expression (e.g. "ga:sessions").
type Metric struct {
	Expression     string `json:"expression,omitempty"`
	Alias          string `json:"alias,omitempty"`
	FormattingType string `json:"formattingType,omitempty"`
}

type Dimension struct {
	Name             string   `json:"name,omitempty"`
	HistogramBuckets []string `json:"histogramBuckets,omitempty"`
}

// Pivot adds a secondary grouping axis; its values become column groups.
type Pivot struct {
	Dimensions    []Dimension `json:"dimensions,omitempty"`
	Metrics       []Metric    `json:"metrics,omitempty"`
	StartGroup    int64       `json:"startGroup,omitempty"`
	MaxGroupCount int64       `json:"maxGroupCount,omitempty"`
}

type OrderBy struct {
	FieldName string `json:"fieldName,omitempty"`
	OrderType string `json:"orderType,omitempty"`
	SortOrder string `json:"sortOrder,omitempty"`
}

// Clone returns a deep copy sharing no slices with b.
func (b ReportsBody) Clone() ReportsBody {
	if b.ReportRequests == nil {
		return ReportsBody{}
	}
	out := ReportsBody{ReportRequests: make([]ReportRequest, len(b.ReportRequests))}
	for i, r := range b.ReportRequests {
		out.ReportRequests[i] = r.Clone()
	}
	return out
}

func (r ReportRequest) Clone() ReportRequest {
	out := r
	out.DateRanges = slices.Clone(r.DateRanges)
	out.Metrics = slices.Clone(r.Metrics)
	out.Dimensions = cloneDimensions(r.Dimensions)
	out.OrderBys = slices.Clone(r.OrderBys)
	if r.Pivots != nil {
		out.Pivots = make([]Pivot, len(r.Pivots))
		for i, p := range r.Pivots {
			p.Dimensions = cloneDimensions(p.Dimensions)
			p.Metrics = slices.Clone(p.Metrics)
			out.Pivots[i] = p
		}
	}
	return out
}

func cloneDimensions(dims []Dimension) []Dimension {
	if dims == nil {
		return nil
	}
	out := make([]Dimension, len(dims))
	for i, d := range dims {
		d.HistogramBuckets = slices.Clone(d.HistogramBuckets)
		out[i] = d
	}
	return out
}

// ReportsResponse is one page returned by batchGet.
type ReportsResponse struct {
	Reports []Report `json:"reports"`
}

type Report struct {
	ColumnHeader  *ColumnHeader `json:"columnHeader,omitempty"`
	Data          *ReportData   `json:"data,omitempty"`
	NextPageToken string        `json:"nextPageToken,omitempty"`
}

type ColumnHeader struct {
	Dimensions   []string      `json:"dimensions,omitempty"`
	MetricHeader *MetricHeader `json:"metricHeader,omitempty"`
}

type MetricHeader struct {
	MetricHeaderEntries []MetricHeaderEntry `json:"metricHeaderEntries,omitempty"`
	PivotHeaders        []PivotHeader       `json:"pivotHeaders,omitempty"`
}

type MetricHeaderEntry struct {
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
}

type PivotHeader struct {
	PivotHeaderEntries    []PivotHeaderEntry `json:"pivotHeaderEntries,omitempty"`
	TotalPivotGroupsCount int64              `json:"totalPivotGroupsCount,omitempty"`
}

type PivotHeaderEntry struct {
	DimensionNames  []string           `json:"dimensionNames,omitempty"`
	DimensionValues []string           `json:"dimensionValues,omitempty"`
	Metric          *MetricHeaderEntry `json:"metric,omitempty"`
}

type ReportData struct {
	Rows              []ReportRow       `json:"rows,omitempty"`
	Totals            []DateRangeValues `json:"totals,omitempty"`
	RowCount          int64             `json:"rowCount,omitempty"`
	IsDataGolden      bool              `json:"isDataGolden,omitempty"`
	DataLastRefreshed string            `json:"dataLastRefreshed,omitempty"`
}

type ReportRow struct {
	Dimensions []string          `json:"dimensions,omitempty"`
	Metrics    []DateRangeValues `json:"metrics,omitempty"`
}

type DateRangeValues struct {
	Values            []string           `json:"values,omitempty"`
	PivotValueRegions []PivotValueRegion `json:"pivotValueRegions,omitempty"`
}

type PivotValueRegion struct {
	Values []string `json:"values,omitempty"`
}

// FirstReport returns the first report entry, or nil when the page has none.
func (r *ReportsResponse) FirstReport() *Report {
	if r == nil || len(r.Reports) == 0 {
		return nil
	}
	return &r.Reports[0]
}
