package infrastructure

import (
	"bytes"
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"

	"gaexport/internal/domain"
)

// implements domain.TableEncoder
type CSVEncoder struct{}

func NewCSVEncoder() *CSVEncoder {
	return &CSVEncoder{}
}

func (e *CSVEncoder) ContentType() string {
	return "text/csv"
}

func (e *CSVEncoder) Encode(table *domain.Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, table); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteCSV writes index columns followed by data columns. Flat tables get a single
// header row. Grouped tables get one header row per column level and, when the index
// is labelled, a row with the index names. Missing cells are left blank.
func WriteCSV(w io.Writer, table *domain.Table) error {
	cw := csv.NewWriter(w)
	if table.IsEmpty() {
		cw.Flush()
		return cw.Error()
	}

	width := table.IndexWidth()
	depth := table.Depth()

	if depth == 1 {
		header := indexHeader(table.IndexNames, width)
		for _, c := range table.Columns {
			header = append(header, c.Metric)
		}
		if err := cw.Write(header); err != nil {
			return err
		}
	} else {
		for level := 0; level < depth-1; level++ {
			record := make([]string, width, width+len(table.Columns))
			for _, c := range table.Columns {
				record = append(record, groupLabel(c, level, depth))
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}

		record := make([]string, width, width+len(table.Columns))
		for _, c := range table.Columns {
			record = append(record, c.Metric)
		}
		if err := cw.Write(record); err != nil {
			return err
		}

		if table.IndexNames != nil {
			record := indexHeader(table.IndexNames, width)
			record = append(record, make([]string, len(table.Columns))...)
			if err := cw.Write(record); err != nil {
				return err
			}
		}
	}

	for i, values := range table.Rows {
		record := make([]string, width, width+len(values))
		copy(record, table.Index[i])
		for _, v := range values {
			record = append(record, formatCell(v))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func indexHeader(names []string, width int) []string {
	header := make([]string, width)
	copy(header, names)
	return header
}

// groupLabel returns the column's label at an outer level; shallow columns are
// padded on the outside.
func groupLabel(c domain.Column, level, depth int) string {
	offset := depth - 1 - len(c.Group)
	if level < offset {
		return ""
	}
	return c.Group[level-offset]
}

// formatCell writes metric values as floats with at least one decimal digit, so
// whole numbers come out as "10.0" rather than "10".
func formatCell(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !math.IsInf(v, 0) && !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
