package model

import (
	"fmt"
	"math/rand"

	"github.com/phenonet/phenonet/internal/nn"
)

// ginLayer applies isomorphism-style aggregation followed by a two-layer
// MLP: h' = MLP((1+ε)·h + A·h). ε is held at 0.
type ginLayer struct {
	eps  float64
	mlp1 *nn.Linear
	mlp2 *nn.Linear
}

type ginEncoder struct {
	ops    *graphOps
	layers []*ginLayer
}

func newGIN(ops *graphOps, inDim, hiddenDim, layerNum int, rng *rand.Rand) *ginEncoder {
	e := &ginEncoder{ops: ops}
	dim := inDim
	for i := 0; i < layerNum; i++ {
		name := fmt.Sprintf("gnn.gin%d", i)
		e.layers = append(e.layers, &ginLayer{
			mlp1: nn.NewLinear(name+".mlp0", dim, hiddenDim, rng),
			mlp2: nn.NewLinear(name+".mlp1", hiddenDim, hiddenDim, rng),
		})
		dim = hiddenDim
	}
	return e
}

func (e *ginEncoder) Encode(t *nn.Tape, x *nn.Value) *nn.Value {
	adj := t.Const(e.ops.adj)
	h := x
	for i, l := range e.layers {
		agg := t.Add(t.Scale(h, 1+l.eps), t.MatMul(adj, h))
		h = l.mlp2.Apply(t, t.ReLU(l.mlp1.Apply(t, agg)))
		if i < len(e.layers)-1 {
			h = t.ReLU(h)
		}
	}
	return h
}

func (e *ginEncoder) Parameters() []*nn.Parameter {
	var out []*nn.Parameter
	for _, l := range e.layers {
		out = append(out, l.mlp1.Parameters()...)
		out = append(out, l.mlp2.Parameters()...)
	}
	return out
}
