package model

import (
	"math/rand"

	"github.com/phenonet/phenonet/internal/netgraph"
	"github.com/phenonet/phenonet/internal/nn"
)

// Config fixes the architecture of one composed model. Immutable per trial.
type Config struct {
	Encoder      EncoderKind
	GNNHiddenDim int
	LayerNum     int
	HiddenDim1   int
	HiddenDim2   int
}

// Network composes encoder → fusion → classifier into the end-to-end
// phenotype predictor. The graph side (node features and propagation
// matrices) is fixed at construction; the sample feature matrix is
// supplied per forward pass.
type Network struct {
	Encoder    Encoder
	Fusion     *Fusion
	Classifier *Classifier

	nodeX  *nn.Matrix
	params []*nn.Parameter
}

// NewNetwork builds a fresh, independently initialized model for the given
// graph. sampleWidth is the width of the sample feature matrix (the node
// count) and numClasses the number of distinct phenotype labels. An
// unrecognized encoder kind fails here, before any training.
func NewNetwork(cfg Config, g *netgraph.GraphData, sampleWidth, numClasses int, rng *rand.Rand) (*Network, error) {
	ops := newGraphOps(g)
	enc, err := newEncoder(cfg.Encoder, ops, g.FeatureWidth(), cfg.GNNHiddenDim, cfg.LayerNum, rng)
	if err != nil {
		return nil, err
	}

	n := &Network{
		Encoder:    enc,
		Fusion:     NewFusion(cfg.GNNHiddenDim, 1, rng),
		Classifier: NewClassifier(sampleWidth, cfg.HiddenDim1, cfg.HiddenDim2, numClasses, rng),
		nodeX:      nn.FromRows(g.Features),
	}
	n.params = append(n.params, enc.Parameters()...)
	n.params = append(n.params, n.Fusion.Parameters()...)
	n.params = append(n.params, n.Classifier.Parameters()...)
	return n, nil
}

// Forward runs the composed model over the sample×node feature matrix and
// returns per-class probabilities plus the reweighted feature matrix.
func (n *Network) Forward(t *nn.Tape, features *nn.Matrix, training bool) (probs, reweighted *nn.Value) {
	emb := n.Encoder.Encode(t, t.Const(n.nodeX))
	scores := n.Fusion.Scores(t, emb)
	reweighted = t.ColScale(t.Const(features), scores)
	probs = n.Classifier.Apply(t, reweighted, training)
	return probs, reweighted
}

// Parameters returns every trainable parameter of the composed model.
func (n *Network) Parameters() []*nn.Parameter {
	return n.params
}
