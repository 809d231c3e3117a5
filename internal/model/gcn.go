package model

import (
	"fmt"
	"math/rand"

	"github.com/phenonet/phenonet/internal/nn"
)

// gcnEncoder stacks spectral graph convolutions: h' = σ(D̃^-1/2(A+I)D̃^-1/2·h·W).
type gcnEncoder struct {
	ops    *graphOps
	layers []*nn.Linear
}

func newGCN(ops *graphOps, inDim, hiddenDim, layerNum int, rng *rand.Rand) *gcnEncoder {
	e := &gcnEncoder{ops: ops}
	dim := inDim
	for i := 0; i < layerNum; i++ {
		e.layers = append(e.layers, nn.NewLinear(fmt.Sprintf("gnn.conv%d", i), dim, hiddenDim, rng))
		dim = hiddenDim
	}
	return e
}

func (e *gcnEncoder) Encode(t *nn.Tape, x *nn.Value) *nn.Value {
	prop := t.Const(e.ops.norm)
	h := x
	for i, l := range e.layers {
		h = l.Apply(t, t.MatMul(prop, h))
		if i < len(e.layers)-1 {
			h = t.ReLU(h)
		}
	}
	return h
}

func (e *gcnEncoder) Parameters() []*nn.Parameter {
	var out []*nn.Parameter
	for _, l := range e.layers {
		out = append(out, l.Parameters()...)
	}
	return out
}
