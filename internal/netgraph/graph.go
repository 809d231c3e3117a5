package netgraph

import (
	"context"
	"math/rand"

	"github.com/phenonet/phenonet/internal/ctxlog"
	"github.com/phenonet/phenonet/internal/dataset"
)

// randomFeatureWidth is the width of the per-node random feature vectors
// used when no clinical data is available.
const randomFeatureWidth = 10

// Node-partition sizes. Graphs with at least splitThreshold nodes reserve
// the large validation/test sets, smaller graphs the reduced ones.
const (
	splitThreshold = 30
	largeValNodes  = 10
	largeTestNodes = 12
	smallValNodes  = 5
	smallTestNodes = 5
)

// Edge is one directed, weighted edge between node indices.
type Edge struct {
	From   int
	To     int
	Weight float64
}

// Split assigns every node to exactly one of train/validation/test.
//
// The partition is carried for interface compatibility with node-level
// objectives; the supervised training in this pipeline is sample-level and
// does not consume it.
type Split struct {
	Train []bool
	Val   []bool
	Test  []bool
}

// GraphData is the immutable graph representation built once per run:
// per-node feature vectors, a symmetric directed edge list and the node
// partition. It is never mutated after Build returns it.
type GraphData struct {
	Nodes    []string
	Features [][]float64
	Edges    []Edge
	Split    Split
}

// NumNodes returns the number of nodes in the graph.
func (g *GraphData) NumNodes() int { return len(g.Nodes) }

// FeatureWidth returns the width of the per-node feature vectors.
func (g *GraphData) FeatureWidth() int {
	if len(g.Features) == 0 {
		return 0
	}
	return len(g.Features[0])
}

// Build converts the adjacency table plus the aligned omics table (and the
// optional clinical table) into a GraphData instance.
//
// Node features are the absolute Pearson correlations between each node's
// omics column and every clinical variable. Without clinical data the
// features fall back to independently drawn random vectors of fixed width;
// that fallback is documented behavior, not an error.
func Build(ctx context.Context, adj *AdjacencyTable, aligned *dataset.Table, clinical *dataset.Table, rng *rand.Rand) (*GraphData, error) {
	logger := ctxlog.FromContext(ctx)
	nodes := adj.Nodes()
	n := len(nodes)
	logger.Debug("Building graph representation.", "nodes", n)

	var features [][]float64
	if !clinical.IsEmpty() {
		// Clinical rows are matched to omics rows by sample identifier, never
		// by position. A reordered table is corrected; a different sample set
		// is an input error.
		clin := clinical
		if !sameSampleOrder(clin.Samples(), aligned.Samples()) {
			logger.Warn("Clinical sample order differs from omics, reindexing.", "samples", aligned.NumRows())
			var err error
			clin, err = clinical.Reindex(aligned.Samples())
			if err != nil {
				return nil, &dataset.ValidationError{Field: "data.clinical", Reason: err.Error()}
			}
		}
		vars := clin.Columns()
		logger.Debug("Deriving node features from clinical correlations.", "clinical_vars", len(vars))
		features = make([][]float64, n)
		for i, node := range nodes {
			omicsCol, ok := aligned.Column(node)
			if !ok {
				return nil, &dataset.MissingNodesError{Nodes: []string{node}}
			}
			row := make([]float64, len(vars))
			for j, v := range vars {
				clinCol, _ := clin.Column(v)
				r := dataset.Pearson(omicsCol, clinCol)
				if r < 0 {
					r = -r
				}
				row[j] = r
			}
			features[i] = row
		}
	} else {
		logger.Info("No clinical data provided, using random node features.", "width", randomFeatureWidth)
		features = make([][]float64, n)
		for i := range features {
			row := make([]float64, randomFeatureWidth)
			for j := range row {
				row[j] = rng.NormFloat64()
			}
			features[i] = row
		}
	}

	// Each weighted entry of the (undirected) adjacency table is emitted as
	// a directed pair with equal weight, so the representation is symmetric
	// by construction even if the source matrix carried asymmetric noise.
	var edges []Edge
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			w := adj.Weight(i, j)
			if w == 0 {
				continue
			}
			edges = append(edges, Edge{From: i, To: j, Weight: w})
			if i != j {
				edges = append(edges, Edge{From: j, To: i, Weight: w})
			}
		}
	}
	logger.Debug("Edge list built.", "directed_edges", len(edges))

	return &GraphData{
		Nodes:    nodes,
		Features: features,
		Edges:    edges,
		Split:    randomSplit(n, rng),
	}, nil
}

func sameSampleOrder(a, b []string) bool {
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

// randomSplit reserves validation and test nodes by size regime and marks
// the remainder as training nodes.
func randomSplit(n int, rng *rand.Rand) Split {
	numVal, numTest := smallValNodes, smallTestNodes
	if n >= splitThreshold {
		numVal, numTest = largeValNodes, largeTestNodes
	}
	if numVal+numTest > n {
		numVal = n / 2
		numTest = n - numVal
	}

	s := Split{
		Train: make([]bool, n),
		Val:   make([]bool, n),
		Test:  make([]bool, n),
	}
	perm := rng.Perm(n)
	for k, idx := range perm {
		switch {
		case k < numVal:
			s.Val[idx] = true
		case k < numVal+numTest:
			s.Test[idx] = true
		default:
			s.Train[idx] = true
		}
	}
	return s
}
