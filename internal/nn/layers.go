package nn

import (
	"math"
	"math/rand"
)

// Parameter is a named trainable matrix with its gradient accumulator.
type Parameter struct {
	Name string
	M    *Matrix
	Grad *Matrix
}

// NewParameter returns a zero-initialized parameter.
func NewParameter(name string, rows, cols int) *Parameter {
	return &Parameter{Name: name, M: NewMatrix(rows, cols), Grad: NewMatrix(rows, cols)}
}

// Module is anything exposing trainable parameters.
type Module interface {
	Parameters() []*Parameter
}

// ZeroGrad resets the gradient of every parameter.
func ZeroGrad(params []*Parameter) {
	for _, p := range params {
		p.Grad.Zero()
	}
}

// Linear is a fully-connected layer: y = x·W + b.
type Linear struct {
	W *Parameter
	B *Parameter
}

// NewLinear builds a Linear layer with weights drawn from
// U(−1/√in, 1/√in), the conventional fan-in initialization.
func NewLinear(name string, in, out int, rng *rand.Rand) *Linear {
	l := &Linear{
		W: NewParameter(name+".weight", in, out),
		B: NewParameter(name+".bias", 1, out),
	}
	bound := 1 / math.Sqrt(float64(in))
	l.W.M.Uniform(rng, bound)
	l.B.M.Uniform(rng, bound)
	return l
}

// Apply records the layer on the tape.
func (l *Linear) Apply(t *Tape, x *Value) *Value {
	return t.AddRowVec(t.MatMul(x, t.Param(l.W)), t.Param(l.B))
}

// Parameters implements Module.
func (l *Linear) Parameters() []*Parameter {
	return []*Parameter{l.W, l.B}
}

// BatchNorm normalizes each feature column over the batch, with learnable
// scale and shift and running statistics for evaluation mode.
type BatchNorm struct {
	Gamma *Parameter
	Beta  *Parameter

	RunningMean *Matrix
	RunningVar  *Matrix
	Momentum    float64
	Eps         float64
}

// NewBatchNorm returns a BatchNorm over dim features with gamma=1, beta=0.
func NewBatchNorm(name string, dim int) *BatchNorm {
	bn := &BatchNorm{
		Gamma:       NewParameter(name+".gamma", 1, dim),
		Beta:        NewParameter(name+".beta", 1, dim),
		RunningMean: NewMatrix(1, dim),
		RunningVar:  NewMatrix(1, dim),
		Momentum:    0.1,
		Eps:         1e-5,
	}
	bn.Gamma.M.Fill(1)
	bn.RunningVar.Fill(1)
	return bn
}

// Parameters implements Module.
func (bn *BatchNorm) Parameters() []*Parameter {
	return []*Parameter{bn.Gamma, bn.Beta}
}

// Apply records the layer on the tape. In training mode batch statistics
// are used and the running statistics are updated; in evaluation mode the
// running statistics normalize the input.
func (bn *BatchNorm) Apply(t *Tape, x *Value, training bool) *Value {
	if training {
		return bn.applyTrain(t, x)
	}
	return bn.applyEval(t, x)
}

func (bn *BatchNorm) applyTrain(t *Tape, x *Value) *Value {
	rows, cols := x.M.Rows, x.M.Cols
	n := float64(rows)

	mean := make([]float64, cols)
	variance := make([]float64, cols)
	for j := 0; j < cols; j++ {
		var sum float64
		for i := 0; i < rows; i++ {
			sum += x.M.At(i, j)
		}
		mean[j] = sum / n
		var sq float64
		for i := 0; i < rows; i++ {
			d := x.M.At(i, j) - mean[j]
			sq += d * d
		}
		variance[j] = sq / n
	}

	// Running stats track the unbiased variance, per convention.
	for j := 0; j < cols; j++ {
		unbiased := variance[j]
		if rows > 1 {
			unbiased = variance[j] * n / (n - 1)
		}
		bn.RunningMean.Data[j] = (1-bn.Momentum)*bn.RunningMean.Data[j] + bn.Momentum*mean[j]
		bn.RunningVar.Data[j] = (1-bn.Momentum)*bn.RunningVar.Data[j] + bn.Momentum*unbiased
	}

	invStd := make([]float64, cols)
	for j := 0; j < cols; j++ {
		invStd[j] = 1 / math.Sqrt(variance[j]+bn.Eps)
	}

	norm := NewMatrix(rows, cols)
	m := NewMatrix(rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			xn := (x.M.At(i, j) - mean[j]) * invStd[j]
			norm.Set(i, j, xn)
			m.Set(i, j, bn.Gamma.M.Data[j]*xn+bn.Beta.M.Data[j])
		}
	}

	gamma := t.Param(bn.Gamma)
	beta := t.Param(bn.Beta)
	out := t.record(m, nil)
	out.back = func() {
		for j := 0; j < cols; j++ {
			var sumG, sumGX float64
			for i := 0; i < rows; i++ {
				g := out.Grad.At(i, j)
				xn := norm.At(i, j)
				sumG += g
				sumGX += g * xn
			}
			gamma.Grad.Data[j] += sumGX
			beta.Grad.Data[j] += sumG
			// dL/dx through the batch statistics:
			// dx = γ/σ · (g − mean(g) − x̂·mean(g·x̂))
			scale := bn.Gamma.M.Data[j] * invStd[j]
			meanG := sumG / n
			meanGX := sumGX / n
			for i := 0; i < rows; i++ {
				g := out.Grad.At(i, j)
				xn := norm.At(i, j)
				x.Grad.Data[i*x.Grad.Cols+j] += scale * (g - meanG - xn*meanGX)
			}
		}
	}
	return out
}

func (bn *BatchNorm) applyEval(t *Tape, x *Value) *Value {
	rows, cols := x.M.Rows, x.M.Cols
	invStd := make([]float64, cols)
	for j := 0; j < cols; j++ {
		invStd[j] = 1 / math.Sqrt(bn.RunningVar.Data[j]+bn.Eps)
	}
	norm := NewMatrix(rows, cols)
	m := NewMatrix(rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			xn := (x.M.At(i, j) - bn.RunningMean.Data[j]) * invStd[j]
			norm.Set(i, j, xn)
			m.Set(i, j, bn.Gamma.M.Data[j]*xn+bn.Beta.M.Data[j])
		}
	}
	gamma := t.Param(bn.Gamma)
	beta := t.Param(bn.Beta)
	out := t.record(m, nil)
	out.back = func() {
		for j := 0; j < cols; j++ {
			scale := bn.Gamma.M.Data[j] * invStd[j]
			for i := 0; i < rows; i++ {
				g := out.Grad.At(i, j)
				gamma.Grad.Data[j] += g * norm.At(i, j)
				beta.Grad.Data[j] += g
				x.Grad.Data[i*x.Grad.Cols+j] += g * scale
			}
		}
	}
	return out
}
