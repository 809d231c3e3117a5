package nn

import "math"

// Adam implements the Adam optimizer with coupled L2 weight decay (decay
// is added to the raw gradient before the moment updates).
type Adam struct {
	LR          float64
	WeightDecay float64
	Beta1       float64
	Beta2       float64
	Eps         float64

	step  int
	state map[*Parameter]*adamState
}

type adamState struct {
	m *Matrix
	v *Matrix
}

// NewAdam returns an Adam optimizer with the standard moment coefficients.
func NewAdam(lr, weightDecay float64) *Adam {
	return &Adam{
		LR:          lr,
		WeightDecay: weightDecay,
		Beta1:       0.9,
		Beta2:       0.999,
		Eps:         1e-8,
		state:       make(map[*Parameter]*adamState),
	}
}

// Step applies one update to every parameter from its accumulated gradient.
func (o *Adam) Step(params []*Parameter) {
	o.step++
	bc1 := 1 - math.Pow(o.Beta1, float64(o.step))
	bc2 := 1 - math.Pow(o.Beta2, float64(o.step))

	for _, p := range params {
		st, ok := o.state[p]
		if !ok {
			st = &adamState{
				m: NewMatrix(p.M.Rows, p.M.Cols),
				v: NewMatrix(p.M.Rows, p.M.Cols),
			}
			o.state[p] = st
		}
		for i := range p.M.Data {
			g := p.Grad.Data[i] + o.WeightDecay*p.M.Data[i]
			st.m.Data[i] = o.Beta1*st.m.Data[i] + (1-o.Beta1)*g
			st.v.Data[i] = o.Beta2*st.v.Data[i] + (1-o.Beta2)*g*g
			mHat := st.m.Data[i] / bc1
			vHat := st.v.Data[i] / bc2
			p.M.Data[i] -= o.LR * mHat / (math.Sqrt(vHat) + o.Eps)
		}
	}
}
