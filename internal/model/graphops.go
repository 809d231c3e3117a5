package model

import (
	"math"

	"github.com/phenonet/phenonet/internal/netgraph"
	"github.com/phenonet/phenonet/internal/nn"
)

// graphOps holds the dense propagation matrices precomputed once per
// GraphData. The graphs here are small molecular networks, so dense
// message passing is cheaper than maintaining sparse structures.
type graphOps struct {
	// adj is the raw weighted adjacency A.
	adj *nn.Matrix
	// norm is D̃^-1/2·(A+I)·D̃^-1/2, the symmetric normalization with
	// self-loops used by spectral convolution.
	norm *nn.Matrix
	// rowNorm is D^-1·A, the mean-aggregation operator.
	rowNorm *nn.Matrix
	// mask marks neighborhoods (A+I ≠ 0) for attention softmax.
	mask *nn.Matrix
}

func newGraphOps(g *netgraph.GraphData) *graphOps {
	n := g.NumNodes()
	adj := nn.NewMatrix(n, n)
	for _, e := range g.Edges {
		adj.Set(e.From, e.To, e.Weight)
	}

	selfLoop := adj.Clone()
	for i := 0; i < n; i++ {
		selfLoop.Set(i, i, selfLoop.At(i, i)+1)
	}

	deg := make([]float64, n)
	degTilde := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			deg[i] += adj.At(i, j)
			degTilde[i] += selfLoop.At(i, j)
		}
	}

	norm := nn.NewMatrix(n, n)
	rowNorm := nn.NewMatrix(n, n)
	mask := nn.NewMatrix(n, n)
	for i := 0; i < n; i++ {
		invSqrtI := 0.0
		if degTilde[i] > 0 {
			invSqrtI = 1 / math.Sqrt(degTilde[i])
		}
		for j := 0; j < n; j++ {
			if v := selfLoop.At(i, j); v != 0 {
				invSqrtJ := 0.0
				if degTilde[j] > 0 {
					invSqrtJ = 1 / math.Sqrt(degTilde[j])
				}
				norm.Set(i, j, invSqrtI*v*invSqrtJ)
				mask.Set(i, j, 1)
			}
			if deg[i] > 0 {
				rowNorm.Set(i, j, adj.At(i, j)/deg[i])
			}
		}
	}

	return &graphOps{adj: adj, norm: norm, rowNorm: rowNorm, mask: mask}
}
