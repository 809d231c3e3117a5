package nn_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenonet/phenonet/internal/nn"
)

// scalarize reduces an arbitrary value to 1×1 so Backward can seed it.
func scalarize(tp *nn.Tape, v *nn.Value) *nn.Value {
	rm := tp.RowMean(v)
	ones := nn.NewMatrix(1, rm.M.Rows)
	ones.Fill(1)
	return tp.MatMul(tp.Const(ones), rm)
}

// checkGrad compares the tape's gradient for p against central finite
// differences of the forward pass.
func checkGrad(t *testing.T, p *nn.Parameter, forward func(tp *nn.Tape) *nn.Value) {
	t.Helper()

	tp := nn.NewTape()
	loss := forward(tp)
	nn.ZeroGrad([]*nn.Parameter{p})
	tp.Backward(loss)
	analytic := p.Grad.Clone()

	const eps = 1e-6
	for i := range p.M.Data {
		orig := p.M.Data[i]
		p.M.Data[i] = orig + eps
		plus := forward(nn.NewTape()).M.Data[0]
		p.M.Data[i] = orig - eps
		minus := forward(nn.NewTape()).M.Data[0]
		p.M.Data[i] = orig

		numeric := (plus - minus) / (2 * eps)
		require.InDelta(t, numeric, analytic.Data[i], 1e-4, "entry %d", i)
	}
}

func TestLinearCrossEntropyGradient(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	lin := nn.NewLinear("fc", 3, 2, rng)
	x := nn.NewMatrix(4, 3)
	x.Uniform(rng, 1)
	labels := []int{0, 1, 0, 1}

	forward := func(tp *nn.Tape) *nn.Value {
		h := tp.ReLU(lin.Apply(tp, tp.Const(x)))
		return tp.CrossEntropyWithLogits(h, labels)
	}

	checkGrad(t, lin.W, forward)
	checkGrad(t, lin.B, forward)
}

func TestColScaleGradient(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(11))
	x := nn.NewMatrix(3, 4)
	x.Uniform(rng, 1)
	v := nn.NewParameter("scores", 4, 1)
	v.M.Uniform(rng, 1)

	checkGrad(t, v, func(tp *nn.Tape) *nn.Value {
		return scalarize(tp, tp.ColScale(tp.Const(x), tp.Param(v)))
	})
}

func TestMaskedRowSoftmaxGradient(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(13))
	a := nn.NewParameter("logits", 3, 3)
	a.M.Uniform(rng, 1)
	mask := nn.FromRows([][]float64{
		{1, 1, 0},
		{0, 1, 1},
		{1, 1, 1},
	})

	checkGrad(t, a, func(tp *nn.Tape) *nn.Value {
		return scalarize(tp, tp.MaskedRowSoftmax(tp.Param(a), mask))
	})
}

func TestMaskedRowSoftmaxRowsSumToOne(t *testing.T) {
	t.Parallel()

	tp := nn.NewTape()
	a := nn.FromRows([][]float64{
		{0.5, -1.2, 3.0},
		{2.0, 2.0, 2.0},
	})
	mask := nn.FromRows([][]float64{
		{1, 0, 1},
		{1, 1, 1},
	})
	out := tp.MaskedRowSoftmax(tp.Const(a), mask)

	for i := 0; i < out.M.Rows; i++ {
		var sum float64
		for j := 0; j < out.M.Cols; j++ {
			if mask.At(i, j) == 0 {
				assert.Zero(t, out.M.At(i, j))
				continue
			}
			sum += out.M.At(i, j)
		}
		assert.InDelta(t, 1.0, sum, 1e-12)
	}
}

func TestActivationGradients(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(17))
	a := nn.NewParameter("x", 3, 3)
	// Keep values away from the ReLU kink so finite differences are clean.
	for i := range a.M.Data {
		v := rng.Float64() + 0.1
		if i%2 == 0 {
			v = -v
		}
		a.M.Data[i] = v
	}

	checkGrad(t, a, func(tp *nn.Tape) *nn.Value {
		return scalarize(tp, tp.ELU(tp.LeakyReLU(tp.Param(a), 0.2), 1.0))
	})
}

func TestAttentionOuterGradient(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(19))
	s := nn.NewParameter("src", 3, 1)
	s.M.Uniform(rng, 1)
	d := nn.NewParameter("dst", 4, 1)
	d.M.Uniform(rng, 1)

	forward := func(tp *nn.Tape) *nn.Value {
		return scalarize(tp, tp.AddOuter(tp.Param(s), tp.Param(d)))
	}
	checkGrad(t, s, forward)
	checkGrad(t, d, forward)
}

func TestBatchNormTrainingGradient(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(23))
	lin := nn.NewLinear("fc", 3, 2, rng)
	bn := nn.NewBatchNorm("bn", 2)
	x := nn.NewMatrix(5, 3)
	x.Uniform(rng, 1)
	labels := []int{0, 1, 1, 0, 1}

	// Training-mode normalization uses batch statistics, so the loss is
	// independent of the running-stat updates between evaluations.
	forward := func(tp *nn.Tape) *nn.Value {
		h := bn.Apply(tp, lin.Apply(tp, tp.Const(x)), true)
		return tp.CrossEntropyWithLogits(h, labels)
	}

	checkGrad(t, bn.Gamma, forward)
	checkGrad(t, bn.Beta, forward)
	checkGrad(t, lin.W, forward)
}

func TestBatchNormEvalUsesRunningStats(t *testing.T) {
	t.Parallel()

	bn := nn.NewBatchNorm("bn", 2)
	x := nn.FromRows([][]float64{
		{1, 10},
		{3, 30},
	})

	tp := nn.NewTape()
	out := bn.Apply(tp, tp.Const(x), false)

	// Fresh running stats are mean 0, var 1: eval mode must pass the
	// input through (up to eps).
	for i, v := range x.Data {
		assert.InDelta(t, v, out.M.Data[i], 1e-2)
	}

	// One training pass moves the running statistics toward the batch.
	tp2 := nn.NewTape()
	bn.Apply(tp2, tp2.Const(x), true)
	assert.InDelta(t, 0.1*2, bn.RunningMean.Data[0], 1e-12)
	assert.Greater(t, bn.RunningVar.Data[0], 1.0)
}
