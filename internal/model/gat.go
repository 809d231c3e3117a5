package model

import (
	"fmt"
	"math/rand"

	"github.com/phenonet/phenonet/internal/nn"
)

const (
	gatLeakySlope = 0.2
	gatELUAlpha   = 1.0
)

// gatLayer is a single-head additive-attention convolution. Attention
// logits e_ij = LeakyReLU(a_src·z_i + a_dst·z_j) are softmax-normalized
// over each node's neighborhood (self-loops included).
type gatLayer struct {
	lin  *nn.Linear
	aSrc *nn.Parameter
	aDst *nn.Parameter
}

type gatEncoder struct {
	ops    *graphOps
	layers []*gatLayer
}

func newGAT(ops *graphOps, inDim, hiddenDim, layerNum int, rng *rand.Rand) *gatEncoder {
	e := &gatEncoder{ops: ops}
	dim := inDim
	for i := 0; i < layerNum; i++ {
		name := fmt.Sprintf("gnn.att%d", i)
		l := &gatLayer{
			lin:  nn.NewLinear(name, dim, hiddenDim, rng),
			aSrc: nn.NewParameter(name+".att_src", hiddenDim, 1),
			aDst: nn.NewParameter(name+".att_dst", hiddenDim, 1),
		}
		l.aSrc.M.Uniform(rng, 0.1)
		l.aDst.M.Uniform(rng, 0.1)
		e.layers = append(e.layers, l)
		dim = hiddenDim
	}
	return e
}

func (e *gatEncoder) Encode(t *nn.Tape, x *nn.Value) *nn.Value {
	h := x
	for i, l := range e.layers {
		z := l.lin.Apply(t, h)
		src := t.MatMul(z, t.Param(l.aSrc)) // N×1
		dst := t.MatMul(z, t.Param(l.aDst)) // N×1
		logits := t.LeakyReLU(t.AddOuter(src, dst), gatLeakySlope)
		alpha := t.MaskedRowSoftmax(logits, e.ops.mask)
		h = t.MatMul(alpha, z)
		if i < len(e.layers)-1 {
			h = t.ELU(h, gatELUAlpha)
		}
	}
	return h
}

func (e *gatEncoder) Parameters() []*nn.Parameter {
	var out []*nn.Parameter
	for _, l := range e.layers {
		out = append(out, l.lin.Parameters()...)
		out = append(out, l.aSrc, l.aDst)
	}
	return out
}
