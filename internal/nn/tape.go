package nn

import (
	"fmt"
	"math"
)

// Value is one node of the computation graph: a matrix result plus the
// gradient of the final loss with respect to it.
type Value struct {
	M    *Matrix
	Grad *Matrix
	back func()
}

// Tape records a forward computation so Backward can replay it in reverse.
// A fresh tape is built per training step; Values created in forward order
// are already topologically sorted.
type Tape struct {
	nodes []*Value
}

// NewTape returns an empty tape.
func NewTape() *Tape { return &Tape{} }

func (t *Tape) record(m *Matrix, back func()) *Value {
	v := &Value{M: m, Grad: NewMatrix(m.Rows, m.Cols), back: back}
	t.nodes = append(t.nodes, v)
	return v
}

// Const wraps a matrix that requires no gradient (input features,
// precomputed propagation matrices).
func (t *Tape) Const(m *Matrix) *Value {
	return t.record(m, nil)
}

// Param wraps a trainable parameter. Its gradient matrix is shared with
// the parameter, so Backward accumulates straight into p.Grad.
func (t *Tape) Param(p *Parameter) *Value {
	v := &Value{M: p.M, Grad: p.Grad}
	t.nodes = append(t.nodes, v)
	return v
}

// Backward seeds the gradient of loss (a 1×1 value) with 1 and propagates
// through the tape in reverse order.
func (t *Tape) Backward(loss *Value) {
	if loss.M.Rows != 1 || loss.M.Cols != 1 {
		panic(fmt.Sprintf("nn: backward needs a scalar loss, got %dx%d", loss.M.Rows, loss.M.Cols))
	}
	loss.Grad.Data[0] = 1
	for i := len(t.nodes) - 1; i >= 0; i-- {
		if t.nodes[i].back != nil {
			t.nodes[i].back()
		}
	}
}

// MatMul returns a·b.
func (t *Tape) MatMul(a, b *Value) *Value {
	out := t.record(matMul(a.M, b.M), nil)
	out.back = func() {
		addMatMulT2(a.Grad, out.Grad, b.M) // dA += G·Bᵀ
		addMatMulT1(b.Grad, a.M, out.Grad) // dB += Aᵀ·G
	}
	return out
}

// Add returns the elementwise sum of two same-shaped values.
func (t *Tape) Add(a, b *Value) *Value {
	checkSameShape("add", a.M, b.M)
	m := a.M.Clone()
	for i, v := range b.M.Data {
		m.Data[i] += v
	}
	out := t.record(m, nil)
	out.back = func() {
		for i, g := range out.Grad.Data {
			a.Grad.Data[i] += g
			b.Grad.Data[i] += g
		}
	}
	return out
}

// AddRowVec broadcasts a 1×C bias over the rows of a.
func (t *Tape) AddRowVec(a, bias *Value) *Value {
	if bias.M.Rows != 1 || bias.M.Cols != a.M.Cols {
		panic(fmt.Sprintf("nn: bias shape %dx%d for input %dx%d", bias.M.Rows, bias.M.Cols, a.M.Rows, a.M.Cols))
	}
	m := a.M.Clone()
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			m.Data[i*m.Cols+j] += bias.M.Data[j]
		}
	}
	out := t.record(m, nil)
	out.back = func() {
		for i := 0; i < out.Grad.Rows; i++ {
			for j := 0; j < out.Grad.Cols; j++ {
				g := out.Grad.At(i, j)
				a.Grad.Data[i*a.Grad.Cols+j] += g
				bias.Grad.Data[j] += g
			}
		}
	}
	return out
}

// AddOuter combines a column vector s (R×1) and a column vector d (C×1)
// into the R×C matrix out[i][j] = s[i] + d[j].
func (t *Tape) AddOuter(s, d *Value) *Value {
	rows, cols := s.M.Rows, d.M.Rows
	m := NewMatrix(rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			m.Set(i, j, s.M.Data[i]+d.M.Data[j])
		}
	}
	out := t.record(m, nil)
	out.back = func() {
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				g := out.Grad.At(i, j)
				s.Grad.Data[i] += g
				d.Grad.Data[j] += g
			}
		}
	}
	return out
}

// Mul returns the elementwise product of two same-shaped values.
func (t *Tape) Mul(a, b *Value) *Value {
	checkSameShape("mul", a.M, b.M)
	m := NewMatrix(a.M.Rows, a.M.Cols)
	for i := range m.Data {
		m.Data[i] = a.M.Data[i] * b.M.Data[i]
	}
	out := t.record(m, nil)
	out.back = func() {
		for i, g := range out.Grad.Data {
			a.Grad.Data[i] += g * b.M.Data[i]
			b.Grad.Data[i] += g * a.M.Data[i]
		}
	}
	return out
}

// ColScale multiplies every column j of a (R×C) by v[j], where v is C×1.
// This is the broadcast that reweights the sample×node feature matrix by
// the per-node importance scores.
func (t *Tape) ColScale(a, v *Value) *Value {
	if v.M.Cols != 1 || v.M.Rows != a.M.Cols {
		panic(fmt.Sprintf("nn: colscale vector %dx%d for input %dx%d", v.M.Rows, v.M.Cols, a.M.Rows, a.M.Cols))
	}
	m := NewMatrix(a.M.Rows, a.M.Cols)
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			m.Set(i, j, a.M.At(i, j)*v.M.Data[j])
		}
	}
	out := t.record(m, nil)
	out.back = func() {
		for i := 0; i < m.Rows; i++ {
			for j := 0; j < m.Cols; j++ {
				g := out.Grad.At(i, j)
				a.Grad.Data[i*a.Grad.Cols+j] += g * v.M.Data[j]
				v.Grad.Data[j] += g * a.M.At(i, j)
			}
		}
	}
	return out
}

// Scale multiplies every element by the constant s.
func (t *Tape) Scale(a *Value, s float64) *Value {
	m := NewMatrix(a.M.Rows, a.M.Cols)
	for i, v := range a.M.Data {
		m.Data[i] = v * s
	}
	out := t.record(m, nil)
	out.back = func() {
		for i, g := range out.Grad.Data {
			a.Grad.Data[i] += g * s
		}
	}
	return out
}

// ReLU applies max(0, x) elementwise.
func (t *Tape) ReLU(a *Value) *Value {
	m := NewMatrix(a.M.Rows, a.M.Cols)
	for i, v := range a.M.Data {
		if v > 0 {
			m.Data[i] = v
		}
	}
	out := t.record(m, nil)
	out.back = func() {
		for i, g := range out.Grad.Data {
			if a.M.Data[i] > 0 {
				a.Grad.Data[i] += g
			}
		}
	}
	return out
}

// LeakyReLU applies x for x>0 and slope·x otherwise.
func (t *Tape) LeakyReLU(a *Value, slope float64) *Value {
	m := NewMatrix(a.M.Rows, a.M.Cols)
	for i, v := range a.M.Data {
		if v > 0 {
			m.Data[i] = v
		} else {
			m.Data[i] = slope * v
		}
	}
	out := t.record(m, nil)
	out.back = func() {
		for i, g := range out.Grad.Data {
			if a.M.Data[i] > 0 {
				a.Grad.Data[i] += g
			} else {
				a.Grad.Data[i] += g * slope
			}
		}
	}
	return out
}

// ELU applies x for x>0 and alpha·(eˣ−1) otherwise.
func (t *Tape) ELU(a *Value, alpha float64) *Value {
	m := NewMatrix(a.M.Rows, a.M.Cols)
	for i, v := range a.M.Data {
		if v > 0 {
			m.Data[i] = v
		} else {
			m.Data[i] = alpha * (math.Exp(v) - 1)
		}
	}
	out := t.record(m, nil)
	out.back = func() {
		for i, g := range out.Grad.Data {
			if a.M.Data[i] > 0 {
				a.Grad.Data[i] += g
			} else {
				a.Grad.Data[i] += g * (m.Data[i] + alpha) // d/dx alpha(eˣ−1) = alpha·eˣ
			}
		}
	}
	return out
}

// RowMean collapses each row to its mean, producing an R×1 value.
func (t *Tape) RowMean(a *Value) *Value {
	m := NewMatrix(a.M.Rows, 1)
	for i := 0; i < a.M.Rows; i++ {
		var sum float64
		for j := 0; j < a.M.Cols; j++ {
			sum += a.M.At(i, j)
		}
		m.Data[i] = sum / float64(a.M.Cols)
	}
	out := t.record(m, nil)
	out.back = func() {
		inv := 1 / float64(a.M.Cols)
		for i := 0; i < a.M.Rows; i++ {
			g := out.Grad.Data[i] * inv
			for j := 0; j < a.M.Cols; j++ {
				a.Grad.Data[i*a.Grad.Cols+j] += g
			}
		}
	}
	return out
}

// Softmax applies a numerically stable row-wise softmax.
func (t *Tape) Softmax(a *Value) *Value {
	m := NewMatrix(a.M.Rows, a.M.Cols)
	for i := 0; i < a.M.Rows; i++ {
		softmaxRow(a.M.Data[i*a.M.Cols:(i+1)*a.M.Cols], m.Data[i*m.Cols:(i+1)*m.Cols], nil)
	}
	out := t.record(m, nil)
	out.back = func() {
		for i := 0; i < m.Rows; i++ {
			p := m.Data[i*m.Cols : (i+1)*m.Cols]
			g := out.Grad.Data[i*m.Cols : (i+1)*m.Cols]
			var dot float64
			for j := range p {
				dot += g[j] * p[j]
			}
			for j := range p {
				a.Grad.Data[i*a.Grad.Cols+j] += p[j] * (g[j] - dot)
			}
		}
	}
	return out
}

// MaskedRowSoftmax applies a row-wise softmax restricted to positions where
// mask is non-zero; masked-out positions yield 0. Used for attention
// coefficients over graph neighborhoods.
func (t *Tape) MaskedRowSoftmax(a *Value, mask *Matrix) *Value {
	checkSameShape("masked softmax", a.M, mask)
	m := NewMatrix(a.M.Rows, a.M.Cols)
	for i := 0; i < a.M.Rows; i++ {
		softmaxRow(
			a.M.Data[i*a.M.Cols:(i+1)*a.M.Cols],
			m.Data[i*m.Cols:(i+1)*m.Cols],
			mask.Data[i*mask.Cols:(i+1)*mask.Cols],
		)
	}
	out := t.record(m, nil)
	out.back = func() {
		for i := 0; i < m.Rows; i++ {
			p := m.Data[i*m.Cols : (i+1)*m.Cols]
			g := out.Grad.Data[i*m.Cols : (i+1)*m.Cols]
			var dot float64
			for j := range p {
				dot += g[j] * p[j]
			}
			for j := range p {
				if mask.Data[i*mask.Cols+j] != 0 {
					a.Grad.Data[i*a.Grad.Cols+j] += p[j] * (g[j] - dot)
				}
			}
		}
	}
	return out
}

// softmaxRow writes softmax(in) to out, restricted to mask≠0 positions when
// mask is non-nil. A fully masked row stays zero.
func softmaxRow(in, out, mask []float64) {
	maxV := math.Inf(-1)
	for j, v := range in {
		if (mask == nil || mask[j] != 0) && v > maxV {
			maxV = v
		}
	}
	if math.IsInf(maxV, -1) {
		return
	}
	var sum float64
	for j, v := range in {
		if mask == nil || mask[j] != 0 {
			e := math.Exp(v - maxV)
			out[j] = e
			sum += e
		}
	}
	for j := range out {
		out[j] /= sum
	}
}

func checkSameShape(op string, a, b *Matrix) {
	if a.Rows != b.Rows || a.Cols != b.Cols {
		panic(fmt.Sprintf("nn: %s shape mismatch %dx%d vs %dx%d", op, a.Rows, a.Cols, b.Rows, b.Cols))
	}
}
