package dataset_test

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenonet/phenonet/internal/dataset"
)

func mustTable(t *testing.T, samples, columns []string, data [][]float64) *dataset.Table {
	t.Helper()
	tbl, err := dataset.NewTable(samples, columns, data)
	require.NoError(t, err)
	return tbl
}

func TestNewTableRejectsBadShapes(t *testing.T) {
	t.Parallel()

	_, err := dataset.NewTable([]string{"s1"}, []string{"a"}, [][]float64{{1}, {2}})
	require.Error(t, err)

	_, err = dataset.NewTable([]string{"s1"}, []string{"a", "a"}, [][]float64{{1, 2}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate column")

	_, err = dataset.NewTable([]string{"s1"}, []string{"a", "b"}, [][]float64{{1}})
	require.Error(t, err)
}

func TestCSVRoundTrip(t *testing.T) {
	t.Parallel()

	tbl := mustTable(t,
		[]string{"s1", "s2"},
		[]string{"GeneA", "GeneB"},
		[][]float64{{1.5, -2}, {0.25, 3}},
	)

	var buf bytes.Buffer
	require.NoError(t, tbl.WriteCSV(&buf))

	got, err := dataset.ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, tbl.Samples(), got.Samples())
	assert.Equal(t, tbl.Columns(), got.Columns())
	assert.Equal(t, tbl.Matrix(), got.Matrix())
}

func TestReadCSVRejectsMalformedInput(t *testing.T) {
	t.Parallel()

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		_, err := dataset.ReadCSV(strings.NewReader(""))
		require.Error(t, err)
	})

	t.Run("no data columns", func(t *testing.T) {
		t.Parallel()
		_, err := dataset.ReadCSV(strings.NewReader("sample\ns1\n"))
		require.Error(t, err)
	})

	t.Run("non-numeric cell", func(t *testing.T) {
		t.Parallel()
		_, err := dataset.ReadCSV(strings.NewReader("sample,a\ns1,abc\n"))
		require.Error(t, err)
		require.Contains(t, err.Error(), "row 2")
	})
}

func TestSelectAndDrop(t *testing.T) {
	t.Parallel()

	tbl := mustTable(t,
		[]string{"s1", "s2"},
		[]string{"a", "b", "c"},
		[][]float64{{1, 2, 3}, {4, 5, 6}},
	)

	sel, err := tbl.Select([]string{"c", "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, sel.Columns())
	assert.Equal(t, [][]float64{{3, 1}, {6, 4}}, sel.Matrix())

	_, err = tbl.Select([]string{"missing"})
	require.Error(t, err)

	dropped, err := tbl.Drop("b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, dropped.Columns())
}

func TestReindex(t *testing.T) {
	t.Parallel()

	tbl := mustTable(t,
		[]string{"s1", "s2", "s3"},
		[]string{"a"},
		[][]float64{{1}, {2}, {3}},
	)

	re, err := tbl.Reindex([]string{"s3", "s1"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{3}, {1}}, re.Matrix())

	_, err = tbl.Reindex([]string{"s4"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "s4")
}

func TestDropInvalidRows(t *testing.T) {
	t.Parallel()

	tbl := mustTable(t,
		[]string{"s1", "s2", "s3", "s4"},
		[]string{"a", "b"},
		[][]float64{
			{1, 2},
			{math.NaN(), 2},
			{3, math.Inf(1)},
			{4, 5},
		},
	)

	clean, dropped := tbl.DropInvalidRows()
	assert.Equal(t, []string{"s2", "s3"}, dropped)
	assert.Equal(t, []string{"s1", "s4"}, clean.Samples())
	assert.Equal(t, [][]float64{{1, 2}, {4, 5}}, clean.Matrix())
}

func TestIntColumnRoundsValues(t *testing.T) {
	t.Parallel()

	tbl := mustTable(t,
		[]string{"s1", "s2", "s3"},
		[]string{"phenotype"},
		[][]float64{{0.0}, {1.0}, {2.2}},
	)

	labels, err := tbl.IntColumn("phenotype")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, labels)

	_, err = tbl.IntColumn("missing")
	require.Error(t, err)
}
