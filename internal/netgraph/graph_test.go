package netgraph_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenonet/phenonet/internal/dataset"
	"github.com/phenonet/phenonet/internal/netgraph"
)

func buildAdjacency(t *testing.T, n int) *netgraph.AdjacencyTable {
	t.Helper()
	nodes := make([]string, n)
	weights := make([][]float64, n)
	alphabet := "abcdefghijklmnopqrstuvwxyz"
	for i := range nodes {
		nodes[i] = "gene." + string(alphabet[i%26]) + string(alphabet[i/26])
		weights[i] = make([]float64, n)
	}
	// A simple chain keeps every node connected.
	for i := 0; i+1 < n; i++ {
		weights[i][i+1] = 0.5
		weights[i+1][i] = 0.5
	}
	adj, err := netgraph.NewAdjacencyTable(nodes, weights)
	require.NoError(t, err)
	return adj
}

func alignedTable(t *testing.T, adj *netgraph.AdjacencyTable, samples int) *dataset.Table {
	t.Helper()
	nodes := adj.Nodes()
	cols := append(append([]string(nil), nodes...), dataset.PhenotypeColumn)
	data := make([][]float64, samples)
	for i := range data {
		row := make([]float64, len(cols))
		for j := range nodes {
			row[j] = float64(i*len(nodes) + j)
		}
		row[len(cols)-1] = float64(i % 2)
		data[i] = row
	}
	ids := make([]string, samples)
	for i := range ids {
		ids[i] = "s" + string(rune('0'+i))
	}
	tbl, err := dataset.NewTable(ids, cols, data)
	require.NoError(t, err)
	return tbl
}

func TestBuildEmitsSymmetricEdges(t *testing.T) {
	t.Parallel()

	adj := buildAdjacency(t, 4)
	aligned := alignedTable(t, adj, 5)
	rng := rand.New(rand.NewSource(1))

	g, err := netgraph.Build(context.Background(), adj, aligned, nil, rng)
	require.NoError(t, err)

	type pair struct{ from, to int }
	seen := make(map[pair]float64)
	for _, e := range g.Edges {
		seen[pair{e.From, e.To}] = e.Weight
	}
	for p, w := range seen {
		if p.from == p.to {
			continue
		}
		back, ok := seen[pair{p.to, p.from}]
		require.True(t, ok, "edge %d->%d has no reverse", p.from, p.to)
		assert.Equal(t, w, back)
	}
	// Chain over 4 nodes: 3 undirected entries, 6 directed edges.
	assert.Len(t, g.Edges, 6)
}

func TestBuildRandomFeatureFallback(t *testing.T) {
	t.Parallel()

	adj := buildAdjacency(t, 3)
	aligned := alignedTable(t, adj, 4)
	rng := rand.New(rand.NewSource(2))

	g, err := netgraph.Build(context.Background(), adj, aligned, nil, rng)
	require.NoError(t, err)

	require.Len(t, g.Features, 3)
	assert.Equal(t, 10, g.FeatureWidth())
}

func TestBuildClinicalCorrelationFeatures(t *testing.T) {
	t.Parallel()

	adj := buildAdjacency(t, 3)
	aligned := alignedTable(t, adj, 4)
	clinical, err := dataset.NewTable(
		aligned.Samples(),
		[]string{"age", "bmi"},
		[][]float64{{50, 20}, {55, 22}, {60, 24}, {65, 26}},
	)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(3))

	g, err := netgraph.Build(context.Background(), adj, aligned, clinical, rng)
	require.NoError(t, err)

	require.Len(t, g.Features, 3)
	require.Equal(t, 2, g.FeatureWidth())
	for _, row := range g.Features {
		for _, v := range row {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0+1e-12)
		}
	}
}

func TestBuildMatchesClinicalBySample(t *testing.T) {
	t.Parallel()

	adj := buildAdjacency(t, 3)
	aligned := alignedTable(t, adj, 4) // samples s0..s3

	// Same per-sample values, rows in sample order vs shuffled. Features
	// must depend on sample identity only, never on row position.
	ordered, err := dataset.NewTable(
		[]string{"s0", "s1", "s2", "s3"},
		[]string{"age"},
		[][]float64{{3}, {1}, {4}, {2}},
	)
	require.NoError(t, err)
	shuffled, err := dataset.NewTable(
		[]string{"s2", "s0", "s3", "s1"},
		[]string{"age"},
		[][]float64{{4}, {3}, {2}, {1}},
	)
	require.NoError(t, err)

	g1, err := netgraph.Build(context.Background(), adj, aligned, ordered, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	g2, err := netgraph.Build(context.Background(), adj, aligned, shuffled, rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	assert.Equal(t, g1.Features, g2.Features)
}

func TestBuildRejectsClinicalSampleMismatch(t *testing.T) {
	t.Parallel()

	adj := buildAdjacency(t, 3)
	aligned := alignedTable(t, adj, 4)

	// One aligned sample has no clinical row: an error, not silent zeros.
	clinical, err := dataset.NewTable(
		[]string{"s0", "s1", "sX"},
		[]string{"age"},
		[][]float64{{50}, {55}, {60}},
	)
	require.NoError(t, err)

	_, err = netgraph.Build(context.Background(), adj, aligned, clinical, rand.New(rand.NewSource(8)))
	var verr *dataset.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "data.clinical", verr.Field)
}

func TestSplitSizesByRegime(t *testing.T) {
	t.Parallel()

	count := func(b []bool) int {
		var n int
		for _, v := range b {
			if v {
				n++
			}
		}
		return n
	}

	t.Run("small graph", func(t *testing.T) {
		t.Parallel()
		adj := buildAdjacency(t, 20)
		aligned := alignedTable(t, adj, 3)
		g, err := netgraph.Build(context.Background(), adj, aligned, nil, rand.New(rand.NewSource(4)))
		require.NoError(t, err)

		assert.Equal(t, 5, count(g.Split.Val))
		assert.Equal(t, 5, count(g.Split.Test))
		assert.Equal(t, 10, count(g.Split.Train))
	})

	t.Run("large graph", func(t *testing.T) {
		t.Parallel()
		adj := buildAdjacency(t, 40)
		aligned := alignedTable(t, adj, 3)
		g, err := netgraph.Build(context.Background(), adj, aligned, nil, rand.New(rand.NewSource(5)))
		require.NoError(t, err)

		assert.Equal(t, 10, count(g.Split.Val))
		assert.Equal(t, 12, count(g.Split.Test))
		assert.Equal(t, 18, count(g.Split.Train))
	})

	t.Run("every node in exactly one part", func(t *testing.T) {
		t.Parallel()
		adj := buildAdjacency(t, 15)
		aligned := alignedTable(t, adj, 3)
		g, err := netgraph.Build(context.Background(), adj, aligned, nil, rand.New(rand.NewSource(6)))
		require.NoError(t, err)

		for i := range g.Nodes {
			parts := 0
			for _, b := range [][]bool{g.Split.Train, g.Split.Val, g.Split.Test} {
				if b[i] {
					parts++
				}
			}
			assert.Equal(t, 1, parts, "node %d", i)
		}
	})
}
