package domain

import (
	"math"
	"slices"
	"strconv"
	"strings"
)

// Column is a table column. Summary columns have no Group; pivot columns carry the
// pivot dimension values as their outer level(s) and the metric name as the inner level.
type Column struct {
	Group  []string `json:"group,omitempty"`
	Metric string   `json:"metric"`
}

func (c Column) key() string {
	return strconv.Itoa(len(c.Group)) + "\x1f" + strings.Join(c.Group, "\x1f") + "\x1f" + c.Metric
}

// Table is a row-indexed table of float64 cells. Missing cells are NaN.
// Index holds one key tuple per row; IndexNames labels the tuple positions and is nil
// for a positional index.
type Table struct {
	IndexNames []string    `json:"index_names,omitempty"`
	Index      [][]string  `json:"index"`
	Columns    []Column    `json:"columns"`
	Rows       [][]float64 `json:"rows"`
}

func (t *Table) NumRows() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

func (t *Table) NumColumns() int {
	if t == nil {
		return 0
	}
	return len(t.Columns)
}

// IsEmpty reports whether the table has neither rows nor columns.
func (t *Table) IsEmpty() bool {
	return t.NumRows() == 0 && t.NumColumns() == 0
}

// Depth returns the number of column header levels.
func (t *Table) Depth() int {
	depth := 1
	if t == nil {
		return depth
	}
	for _, c := range t.Columns {
		depth = max(depth, len(c.Group)+1)
	}
	return depth
}

// IndexWidth is the number of index columns needed to print the table.
func (t *Table) IndexWidth() int {
	if t == nil {
		return 0
	}
	width := len(t.IndexNames)
	for _, k := range t.Index {
		width = max(width, len(k))
	}
	return width
}

func (t *Table) Clone() *Table {
	if t == nil {
		return &Table{}
	}
	out := &Table{
		IndexNames: slices.Clone(t.IndexNames),
		Index:      make([][]string, len(t.Index)),
		Columns:    make([]Column, len(t.Columns)),
		Rows:       make([][]float64, len(t.Rows)),
	}
	for i, k := range t.Index {
		out.Index[i] = slices.Clone(k)
	}
	for i, c := range t.Columns {
		out.Columns[i] = Column{Group: slices.Clone(c.Group), Metric: c.Metric}
	}
	for i, r := range t.Rows {
		out.Rows[i] = slices.Clone(r)
	}
	return out
}

// Promote returns a copy whose columns have the given depth. Missing outer levels
// are filled with empty labels.
func (t *Table) Promote(depth int) *Table {
	out := t.Clone()
	for i, c := range out.Columns {
		if pad := depth - 1 - len(c.Group); pad > 0 {
			out.Columns[i].Group = append(slices.Repeat([]string{""}, pad), c.Group...)
		}
	}
	return out
}

// PositionalIndex returns the default 0..n-1 row index.
func PositionalIndex(n int) [][]string {
	index := make([][]string, n)
	for i := range index {
		index[i] = []string{strconv.Itoa(i)}
	}
	return index
}

// JoinColumns concatenates two tables horizontally with outer-join semantics on the row
// index. Rows are matched in order; duplicate keys pair up first-come first-served.
// Rows only present on the right are appended after the left rows.
func JoinColumns(left, right *Table) *Table {
	if right.IsEmpty() {
		return left.Clone()
	}
	if left.IsEmpty() {
		return right.Clone()
	}

	depth := max(left.Depth(), right.Depth())
	l, r := left.Promote(depth), right.Promote(depth)

	out := &Table{
		Columns: append(l.Columns, r.Columns...),
	}
	if slices.Equal(l.IndexNames, r.IndexNames) {
		out.IndexNames = l.IndexNames
	}

	pending := make(map[string][]int, len(r.Index))
	for j, k := range r.Index {
		key := indexKey(k)
		pending[key] = append(pending[key], j)
	}
	matched := make([]bool, len(r.Index))

	for i, k := range l.Index {
		row := make([]float64, 0, len(out.Columns))
		row = append(row, l.Rows[i]...)

		key := indexKey(k)
		if js := pending[key]; len(js) > 0 {
			j := js[0]
			pending[key] = js[1:]
			matched[j] = true
			row = append(row, r.Rows[j]...)
		} else {
			row = append(row, nanRow(len(r.Columns))...)
		}

		out.Index = append(out.Index, k)
		out.Rows = append(out.Rows, row)
	}

	for j, k := range r.Index {
		if matched[j] {
			continue
		}
		row := append(nanRow(len(l.Columns)), r.Rows[j]...)
		out.Index = append(out.Index, k)
		out.Rows = append(out.Rows, row)
	}

	return out
}

// Concat appends tables row-wise in order. Columns are unioned in order of first
// appearance and cells a table does not have are NaN. Tables are promoted to the
// deepest column layout first. Index names are kept only if every non-empty table
// agrees on them.
func Concat(tables ...*Table) *Table {
	var parts []*Table
	depth := 1
	for _, t := range tables {
		if t.IsEmpty() {
			continue
		}
		parts = append(parts, t)
		depth = max(depth, t.Depth())
	}
	if len(parts) == 0 {
		return &Table{}
	}

	out := &Table{IndexNames: slices.Clone(parts[0].IndexNames)}
	positions := make(map[string][]int)
	mappings := make([][]int, len(parts))

	for p, part := range parts {
		part = part.Promote(depth)
		parts[p] = part

		if !slices.Equal(out.IndexNames, part.IndexNames) {
			out.IndexNames = nil
		}

		seen := make(map[string]int, len(part.Columns))
		mapping := make([]int, len(part.Columns))
		for j, c := range part.Columns {
			key := c.key()
			nth := seen[key]
			seen[key]++
			if nth < len(positions[key]) {
				mapping[j] = positions[key][nth]
				continue
			}
			mapping[j] = len(out.Columns)
			positions[key] = append(positions[key], len(out.Columns))
			out.Columns = append(out.Columns, c)
		}
		mappings[p] = mapping
	}

	for p, part := range parts {
		for i, values := range part.Rows {
			row := nanRow(len(out.Columns))
			for j, v := range values {
				row[mappings[p][j]] = v
			}
			out.Index = append(out.Index, part.Index[i])
			out.Rows = append(out.Rows, row)
		}
	}

	return out
}

func indexKey(k []string) string {
	return strconv.Itoa(len(k)) + "\x1f" + strings.Join(k, "\x1f")
}

func nanRow(n int) []float64 {
	row := make([]float64, n)
	for i := range row {
		row[i] = math.NaN()
	}
	return row
}
