package nn

import "fmt"

// TensorState is the serializable form of one parameter matrix.
type TensorState struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

// StateDict snapshots parameters into a name-keyed map of tensor states.
// The copy is deep, so a checkpoint taken at an epoch boundary cannot be
// corrupted by later training steps.
func StateDict(params []*Parameter) map[string]TensorState {
	out := make(map[string]TensorState, len(params))
	for _, p := range params {
		out[p.Name] = TensorState{
			Rows: p.M.Rows,
			Cols: p.M.Cols,
			Data: append([]float64(nil), p.M.Data...),
		}
	}
	return out
}

// LoadStateDict restores parameter values from a snapshot. Every parameter
// must be present with a matching shape.
func LoadStateDict(params []*Parameter, state map[string]TensorState) error {
	for _, p := range params {
		ts, ok := state[p.Name]
		if !ok {
			return fmt.Errorf("nn: checkpoint missing parameter %q", p.Name)
		}
		if ts.Rows != p.M.Rows || ts.Cols != p.M.Cols || len(ts.Data) != len(p.M.Data) {
			return fmt.Errorf("nn: checkpoint shape mismatch for %q: %dx%d vs %dx%d",
				p.Name, ts.Rows, ts.Cols, p.M.Rows, p.M.Cols)
		}
		copy(p.M.Data, ts.Data)
	}
	return nil
}
