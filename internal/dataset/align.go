package dataset

import (
	"context"
	"fmt"
	"sort"

	"github.com/phenonet/phenonet/internal/ctxlog"
)

// PhenotypeColumn is the well-known field under which the phenotype label
// must be provided. Its distinct values define the classifier's output
// dimensionality.
const PhenotypeColumn = "phenotype"

// Combine concatenates the omics tables column-wise and merges the
// phenotype label in by sample identifier when it is not already present.
// Omics tables whose row order differs from the first table are reindexed
// in place of failing; a genuine sample-set mismatch is an error.
func Combine(ctx context.Context, omics []*Table, phenotype *Table) (*Table, error) {
	logger := ctxlog.FromContext(ctx)
	if len(omics) == 0 {
		return nil, &ValidationError{Field: "omics", Reason: "at least one omics table is required"}
	}

	base := omics[0]
	samples := base.Samples()
	columns := append([]string(nil), base.Columns()...)
	data := base.Matrix()

	for _, t := range omics[1:] {
		aligned := t
		if !sameOrder(samples, t.Samples()) {
			logger.Warn("Omics sample order differs, reindexing.", "columns", t.NumCols())
			var err error
			aligned, err = t.Reindex(samples)
			if err != nil {
				return nil, &ValidationError{Field: "omics", Reason: err.Error()}
			}
		}
		columns = append(columns, aligned.Columns()...)
		for i, row := range aligned.Matrix() {
			data[i] = append(data[i], row...)
		}
	}

	combined, err := NewTable(samples, columns, data)
	if err != nil {
		return nil, err
	}

	if combined.HasColumn(PhenotypeColumn) {
		return combined, nil
	}

	labels, err := phenotype.Reindex(samples)
	if err != nil {
		return nil, &ValidationError{Field: PhenotypeColumn, Reason: err.Error()}
	}
	col, ok := labels.Column(PhenotypeColumn)
	if !ok {
		return nil, &ValidationError{Field: PhenotypeColumn, Reason: fmt.Sprintf("phenotype table has no %q column", PhenotypeColumn)}
	}
	for i := range data {
		data[i] = append(data[i], col[i])
	}
	return NewTable(samples, append(columns, PhenotypeColumn), data)
}

// Align normalizes the combined table's column names, verifies that every
// network node is present, and restricts the table to the node columns (in
// network order) plus the phenotype column. Extra omics columns are
// dropped. Missing nodes are a hard failure.
func Align(ctx context.Context, combined *Table, nodes []string) (*Table, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Aligning omics columns with network nodes.", "nodes", len(nodes))

	seen := make(map[string]string, combined.NumCols())
	for _, c := range combined.Columns() {
		name := normalizeKeepPhenotype(c)
		if prev, dup := seen[name]; dup {
			return nil, &ValidationError{
				Field:  name,
				Reason: fmt.Sprintf("omics columns %q and %q collapse to the same name after normalization", prev, c),
			}
		}
		seen[name] = c
	}
	normalized, err := combined.RenameColumns(normalizeKeepPhenotype)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, n := range nodes {
		if !normalized.HasColumn(n) {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		logger.Error("Network nodes missing from omics data.", "missing", missing)
		return nil, &MissingNodesError{Nodes: missing}
	}

	selected := append(append([]string(nil), nodes...), PhenotypeColumn)
	return normalized.Select(selected)
}

// normalizeKeepPhenotype applies NormalizeName to everything except the
// well-known phenotype field, which must keep its exact name.
func normalizeKeepPhenotype(name string) string {
	if name == PhenotypeColumn {
		return name
	}
	return NormalizeName(name)
}

func sameOrder(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
