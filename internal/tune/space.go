// Package tune searches the model/optimizer hyperparameter space with
// concurrently executed trials and an early-stopping scheduler.
package tune

import (
	"math"
	"math/rand"
)

// LogRange is a log-uniform sampling interval.
type LogRange struct {
	Low  float64
	High float64
}

// Sample draws log-uniformly from the interval.
func (r LogRange) Sample(rng *rand.Rand) float64 {
	lo, hi := math.Log(r.Low), math.Log(r.High)
	return math.Exp(lo + rng.Float64()*(hi-lo))
}

// Space is the discrete/log-uniform hyperparameter search space.
type Space struct {
	LayerNum    []int
	HiddenDim   []int
	LR          LogRange
	WeightDecay LogRange
	Hidden1     []int
	Hidden2     []int
	Epochs      []int
}

// DefaultSpace is the reduced search space used by default.
func DefaultSpace() Space {
	return Space{
		LayerNum:    []int{2, 4, 8},
		HiddenDim:   []int{4, 8, 16},
		LR:          LogRange{Low: 1e-4, High: 1e-1},
		WeightDecay: LogRange{Low: 1e-4, High: 1e-1},
		Hidden1:     []int{4, 8, 16},
		Hidden2:     []int{4, 8, 16},
		Epochs:      []int{2, 16, 64},
	}
}

// Params is one sampled trial configuration. Immutable per trial.
type Params struct {
	LayerNum    int     `json:"gnn_layer_num"`
	HiddenDim   int     `json:"gnn_hidden_dim"`
	LR          float64 `json:"lr"`
	WeightDecay float64 `json:"weight_decay"`
	Hidden1     int     `json:"nn_hidden_dim1"`
	Hidden2     int     `json:"nn_hidden_dim2"`
	Epochs      int     `json:"num_epochs"`
}

// Sample draws one configuration from the space.
func (s Space) Sample(rng *rand.Rand) Params {
	return Params{
		LayerNum:    choice(rng, s.LayerNum),
		HiddenDim:   choice(rng, s.HiddenDim),
		LR:          s.LR.Sample(rng),
		WeightDecay: s.WeightDecay.Sample(rng),
		Hidden1:     choice(rng, s.Hidden1),
		Hidden2:     choice(rng, s.Hidden2),
		Epochs:      choice(rng, s.Epochs),
	}
}

func choice(rng *rand.Rand, xs []int) int {
	return xs[rng.Intn(len(xs))]
}
