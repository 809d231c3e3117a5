package train

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
)

// Predictions is the per-sample prediction table for one repeat: the
// actual and predicted phenotype labels, row-aligned to the samples.
type Predictions struct {
	Actual    []int
	Predicted []int
}

// Len returns the number of samples in the table.
func (p *Predictions) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Actual)
}

// IsEmpty reports whether the table carries no rows, as returned by the
// tuning path.
func (p *Predictions) IsEmpty() bool { return p.Len() == 0 }

// WriteCSV writes the two-column Actual,Predicted table in sample order.
func (p *Predictions) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Actual", "Predicted"}); err != nil {
		return err
	}
	for i := range p.Actual {
		rec := []string{strconv.Itoa(p.Actual[i]), strconv.Itoa(p.Predicted[i])}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the table to the file at path.
func (p *Predictions) WriteCSVFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := p.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
