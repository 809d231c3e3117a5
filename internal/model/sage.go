package model

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/phenonet/phenonet/internal/nn"
)

// sageLayer combines a node's own representation with the weighted mean of
// its neighborhood: h' = σ(h·W_self + (D^-1·A·h)·W_neigh + b).
type sageLayer struct {
	self  *nn.Parameter
	neigh *nn.Parameter
	bias  *nn.Parameter
}

type sageEncoder struct {
	ops    *graphOps
	layers []*sageLayer
}

func newSAGE(ops *graphOps, inDim, hiddenDim, layerNum int, rng *rand.Rand) *sageEncoder {
	e := &sageEncoder{ops: ops}
	dim := inDim
	for i := 0; i < layerNum; i++ {
		name := fmt.Sprintf("gnn.sage%d", i)
		l := &sageLayer{
			self:  nn.NewParameter(name+".self", dim, hiddenDim),
			neigh: nn.NewParameter(name+".neigh", dim, hiddenDim),
			bias:  nn.NewParameter(name+".bias", 1, hiddenDim),
		}
		bound := 1 / math.Sqrt(float64(dim))
		l.self.M.Uniform(rng, bound)
		l.neigh.M.Uniform(rng, bound)
		l.bias.M.Uniform(rng, bound)
		e.layers = append(e.layers, l)
		dim = hiddenDim
	}
	return e
}

func (e *sageEncoder) Encode(t *nn.Tape, x *nn.Value) *nn.Value {
	mean := t.Const(e.ops.rowNorm)
	h := x
	for i, l := range e.layers {
		own := t.MatMul(h, t.Param(l.self))
		agg := t.MatMul(t.MatMul(mean, h), t.Param(l.neigh))
		h = t.AddRowVec(t.Add(own, agg), t.Param(l.bias))
		if i < len(e.layers)-1 {
			h = t.ReLU(h)
		}
	}
	return h
}

func (e *sageEncoder) Parameters() []*nn.Parameter {
	var out []*nn.Parameter
	for _, l := range e.layers {
		out = append(out, l.self, l.neigh, l.bias)
	}
	return out
}
