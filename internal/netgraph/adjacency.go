// Package netgraph turns the weighted similarity network and the aligned
// tables into the graph-structured data object the encoders consume.
package netgraph

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
)

// AdjacencyTable is the square, symmetric, non-negative weighted matrix
// produced by the network-generation collaborator. Row and column index
// sets are identical and define the node universe.
type AdjacencyTable struct {
	nodes []string
	index map[string]int
	w     [][]float64
}

// NewAdjacencyTable validates and wraps a node list with its weight
// matrix. Weights must form a square matrix over the node list with no
// negative entries.
func NewAdjacencyTable(nodes []string, weights [][]float64) (*AdjacencyTable, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("netgraph: adjacency table has no nodes")
	}
	if len(weights) != len(nodes) {
		return nil, fmt.Errorf("netgraph: %d weight rows for %d nodes", len(weights), len(nodes))
	}
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		if _, dup := index[n]; dup {
			return nil, fmt.Errorf("netgraph: duplicate node %q", n)
		}
		index[n] = i
	}
	for i, row := range weights {
		if len(row) != len(nodes) {
			return nil, fmt.Errorf("netgraph: weight row %d has %d entries, want %d", i, len(row), len(nodes))
		}
		for j, v := range row {
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("netgraph: invalid weight %v at (%s, %s)", v, nodes[i], nodes[j])
			}
		}
	}
	return &AdjacencyTable{nodes: nodes, index: index, w: weights}, nil
}

// Nodes returns the node identifiers in matrix order.
func (a *AdjacencyTable) Nodes() []string { return a.nodes }

// NumNodes returns the size of the node universe.
func (a *AdjacencyTable) NumNodes() int { return len(a.nodes) }

// Weight returns the edge weight between node indices i and j.
func (a *AdjacencyTable) Weight(i, j int) float64 { return a.w[i][j] }

// IsEmpty reports whether the table carries no nodes.
func (a *AdjacencyTable) IsEmpty() bool { return a == nil || len(a.nodes) == 0 }

// ReadAdjacencyCSV parses an AdjacencyTable from CSV: header names the
// columns, each row starts with its node identifier, and the row label set
// must equal the column label set in the same order.
func ReadAdjacencyCSV(r io.Reader) (*AdjacencyTable, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("netgraph: reading adjacency csv: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("netgraph: adjacency csv has no data rows")
	}
	cols := records[0][1:]
	if len(records)-1 != len(cols) {
		return nil, fmt.Errorf("netgraph: adjacency csv is not square: %d rows, %d columns", len(records)-1, len(cols))
	}
	nodes := make([]string, len(cols))
	weights := make([][]float64, len(cols))
	for i, rec := range records[1:] {
		if len(rec) != len(cols)+1 {
			return nil, fmt.Errorf("netgraph: adjacency csv row %d has %d fields, want %d", i+2, len(rec), len(cols)+1)
		}
		if rec[0] != cols[i] {
			return nil, fmt.Errorf("netgraph: adjacency row label %q does not match column label %q", rec[0], cols[i])
		}
		nodes[i] = rec[0]
		row := make([]float64, len(cols))
		for j, cell := range rec[1:] {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("netgraph: adjacency csv row %d: %w", i+2, err)
			}
			row[j] = v
		}
		weights[i] = row
	}
	return NewAdjacencyTable(nodes, weights)
}

// ReadAdjacencyCSVFile parses an AdjacencyTable from the file at path.
func ReadAdjacencyCSVFile(path string) (*AdjacencyTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	a, err := ReadAdjacencyCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return a, nil
}

// WriteCSV writes the adjacency table in the format accepted by
// ReadAdjacencyCSV.
func (a *AdjacencyTable) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{""}, a.nodes...)); err != nil {
		return err
	}
	for i, row := range a.w {
		rec := make([]string, 0, len(row)+1)
		rec = append(rec, a.nodes[i])
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
