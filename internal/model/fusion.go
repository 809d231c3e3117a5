package model

import (
	"math/rand"

	"github.com/phenonet/phenonet/internal/nn"
)

// Autoencoder bottleneck widths between the encoder's hidden dimension and
// the scalar per-node encoding.
const (
	aeMid1 = 8
	aeMid2 = 4
)

// Fusion compresses each node embedding to a scalar through a bottleneck
// autoencoder and averages across the embedding dimension, yielding one
// importance score per node. The decoder is constructed for
// representation-learning regularization; its reconstruction is not part
// of the prediction path.
type Fusion struct {
	enc1, enc2, enc3 *nn.Linear
	dec1, dec2, dec3 *nn.Linear
}

// NewFusion builds the autoencoder around embeddings of width hiddenDim,
// encoding down to encodingDim (the pipeline uses 1).
func NewFusion(hiddenDim, encodingDim int, rng *rand.Rand) *Fusion {
	return &Fusion{
		enc1: nn.NewLinear("ae.encoder0", hiddenDim, aeMid1, rng),
		enc2: nn.NewLinear("ae.encoder1", aeMid1, aeMid2, rng),
		enc3: nn.NewLinear("ae.encoder2", aeMid2, encodingDim, rng),
		dec1: nn.NewLinear("ae.decoder0", encodingDim, aeMid2, rng),
		dec2: nn.NewLinear("ae.decoder1", aeMid2, aeMid1, rng),
		dec3: nn.NewLinear("ae.decoder2", aeMid1, hiddenDim, rng),
	}
}

// Scores maps node embeddings (N×hidden) to one scalar per node (N×1):
// the bottleneck encoding averaged across the embedding dimension.
func (f *Fusion) Scores(t *nn.Tape, emb *nn.Value) *nn.Value {
	h := t.ReLU(f.enc1.Apply(t, emb))
	h = t.ReLU(f.enc2.Apply(t, h))
	h = f.enc3.Apply(t, h)
	return t.RowMean(h)
}

// Reconstruct runs the decoder over an encoding, recovering the embedding
// width. Available for reconstruction-loss experiments.
func (f *Fusion) Reconstruct(t *nn.Tape, encoded *nn.Value) *nn.Value {
	h := t.ReLU(f.dec1.Apply(t, encoded))
	h = t.ReLU(f.dec2.Apply(t, h))
	return f.dec3.Apply(t, h)
}

// Parameters implements nn.Module. Decoder weights are included so they
// are checkpointed alongside the rest of the model.
func (f *Fusion) Parameters() []*nn.Parameter {
	var out []*nn.Parameter
	for _, l := range []*nn.Linear{f.enc1, f.enc2, f.enc3, f.dec1, f.dec2, f.dec3} {
		out = append(out, l.Parameters()...)
	}
	return out
}
