// Package dataset holds the sample-indexed numeric tables the pipeline
// consumes (omics, clinical, phenotype) and the alignment step that matches
// them against the similarity network's node set.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
)

// Table is a sample × column numeric frame. Rows are keyed by sample
// identifier and columns keep their declared order.
type Table struct {
	samples []string
	columns []string
	colIdx  map[string]int
	data    [][]float64
}

// NewTable builds a Table from a sample index, column names and row-major
// data. Every row must have exactly len(columns) values.
func NewTable(samples, columns []string, data [][]float64) (*Table, error) {
	if len(data) != len(samples) {
		return nil, fmt.Errorf("dataset: %d rows for %d samples", len(data), len(samples))
	}
	colIdx := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := colIdx[c]; dup {
			return nil, fmt.Errorf("dataset: duplicate column %q", c)
		}
		colIdx[c] = i
	}
	for i, row := range data {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("dataset: row %d has %d values, want %d", i, len(row), len(columns))
		}
	}
	return &Table{
		samples: append([]string(nil), samples...),
		columns: append([]string(nil), columns...),
		colIdx:  colIdx,
		data:    data,
	}, nil
}

// Samples returns the row index in order.
func (t *Table) Samples() []string { return t.samples }

// Columns returns the column names in order.
func (t *Table) Columns() []string { return t.columns }

// NumRows returns the number of samples.
func (t *Table) NumRows() int { return len(t.samples) }

// NumCols returns the number of columns.
func (t *Table) NumCols() int { return len(t.columns) }

// IsEmpty reports whether the table has no rows or no columns.
func (t *Table) IsEmpty() bool {
	return t == nil || len(t.samples) == 0 || len(t.columns) == 0
}

// HasColumn reports whether name is a column of the table.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.colIdx[name]
	return ok
}

// Column returns a copy of the named column's values.
func (t *Table) Column(name string) ([]float64, bool) {
	j, ok := t.colIdx[name]
	if !ok {
		return nil, false
	}
	col := make([]float64, len(t.data))
	for i, row := range t.data {
		col[i] = row[j]
	}
	return col, true
}

// Value returns the cell at row i, column j.
func (t *Table) Value(i, j int) float64 { return t.data[i][j] }

// Select returns a new Table restricted to the given columns, in the given
// order, sharing the sample index.
func (t *Table) Select(columns []string) (*Table, error) {
	idx := make([]int, len(columns))
	for k, c := range columns {
		j, ok := t.colIdx[c]
		if !ok {
			return nil, fmt.Errorf("dataset: unknown column %q", c)
		}
		idx[k] = j
	}
	data := make([][]float64, len(t.data))
	for i, row := range t.data {
		out := make([]float64, len(idx))
		for k, j := range idx {
			out[k] = row[j]
		}
		data[i] = out
	}
	return NewTable(t.samples, columns, data)
}

// Drop returns a new Table without the named column.
func (t *Table) Drop(name string) (*Table, error) {
	if !t.HasColumn(name) {
		return nil, fmt.Errorf("dataset: unknown column %q", name)
	}
	kept := make([]string, 0, len(t.columns)-1)
	for _, c := range t.columns {
		if c != name {
			kept = append(kept, c)
		}
	}
	return t.Select(kept)
}

// RenameColumns returns a new Table whose column names have been passed
// through fn. Data is copied so the receiver stays untouched.
func (t *Table) RenameColumns(fn func(string) string) (*Table, error) {
	renamed := make([]string, len(t.columns))
	for i, c := range t.columns {
		renamed[i] = fn(c)
	}
	data := make([][]float64, len(t.data))
	for i, row := range t.data {
		data[i] = append([]float64(nil), row...)
	}
	return NewTable(t.samples, renamed, data)
}

// Reindex returns a new Table with rows reordered to match samples. Every
// requested sample must exist in the receiver.
func (t *Table) Reindex(samples []string) (*Table, error) {
	rowIdx := make(map[string]int, len(t.samples))
	for i, s := range t.samples {
		rowIdx[s] = i
	}
	data := make([][]float64, len(samples))
	for i, s := range samples {
		r, ok := rowIdx[s]
		if !ok {
			return nil, fmt.Errorf("dataset: sample %q not present", s)
		}
		data[i] = append([]float64(nil), t.data[r]...)
	}
	return NewTable(samples, t.columns, data)
}

// DropInvalidRows returns a copy of the table without rows containing NaN
// or infinite values, along with the identifiers of the dropped samples.
func (t *Table) DropInvalidRows() (*Table, []string) {
	var samples []string
	var dropped []string
	var data [][]float64
	for i, row := range t.data {
		valid := true
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				valid = false
				break
			}
		}
		if valid {
			samples = append(samples, t.samples[i])
			data = append(data, append([]float64(nil), row...))
		} else {
			dropped = append(dropped, t.samples[i])
		}
	}
	out, err := NewTable(samples, t.columns, data)
	if err != nil {
		// Unreachable: rows and columns come from a valid table.
		panic(err)
	}
	return out, dropped
}

// Matrix returns a deep copy of the table values as row-major float64 data.
func (t *Table) Matrix() [][]float64 {
	out := make([][]float64, len(t.data))
	for i, row := range t.data {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

// IntColumn returns the named column rounded to integers, as used for
// categorical phenotype labels.
func (t *Table) IntColumn(name string) ([]int, error) {
	col, ok := t.Column(name)
	if !ok {
		return nil, fmt.Errorf("dataset: unknown column %q", name)
	}
	out := make([]int, len(col))
	for i, v := range col {
		out[i] = int(math.Round(v))
	}
	return out, nil
}

// ReadCSV parses a Table from CSV. The first header cell names the sample
// index (its content is ignored) and the remaining header cells are column
// names; each subsequent row starts with the sample identifier.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("dataset: reading csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("dataset: empty csv input")
	}
	header := records[0]
	if len(header) < 2 {
		return nil, fmt.Errorf("dataset: csv header has no data columns")
	}
	columns := header[1:]
	samples := make([]string, 0, len(records)-1)
	data := make([][]float64, 0, len(records)-1)
	for lineNo, rec := range records[1:] {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("dataset: csv row %d has %d fields, want %d", lineNo+2, len(rec), len(header))
		}
		samples = append(samples, rec[0])
		row := make([]float64, len(columns))
		for j, cell := range rec[1:] {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("dataset: csv row %d column %q: %w", lineNo+2, columns[j], err)
			}
			row[j] = v
		}
		data = append(data, row)
	}
	return NewTable(samples, columns, data)
}

// ReadCSVFile parses a Table from the CSV file at path.
func ReadCSVFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// WriteCSV writes the table in the format accepted by ReadCSV.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"sample"}, t.columns...)); err != nil {
		return err
	}
	for i, row := range t.data {
		rec := make([]string, 0, len(row)+1)
		rec = append(rec, t.samples[i])
		for _, v := range row {
			rec = append(rec, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
