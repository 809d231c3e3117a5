// Package model defines the phenotype-prediction architecture: a graph
// encoder over the similarity network, a fusion stage that turns node
// embeddings into per-node importance scores, and a fully-connected
// classifier over the reweighted sample features.
package model

import (
	"fmt"
	"math/rand"

	"github.com/phenonet/phenonet/internal/nn"
)

// EncoderKind is the closed set of supported graph encoder variants.
type EncoderKind int

const (
	GCN EncoderKind = iota
	GAT
	SAGE
	GIN
)

var kindNames = map[EncoderKind]string{
	GCN:  "GCN",
	GAT:  "GAT",
	SAGE: "SAGE",
	GIN:  "GIN",
}

func (k EncoderKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("EncoderKind(%d)", int(k))
}

// UnsupportedModelError reports an encoder tag outside the supported set.
// It surfaces at construction time, before any training starts.
type UnsupportedModelError struct {
	Kind string
}

func (e *UnsupportedModelError) Error() string {
	return fmt.Sprintf("unsupported GNN model type: %q (supported: GCN, GAT, SAGE, GIN)", e.Kind)
}

// ParseEncoderKind validates a configuration tag at the boundary.
func ParseEncoderKind(s string) (EncoderKind, error) {
	for k, name := range kindNames {
		if s == name {
			return k, nil
		}
	}
	return 0, &UnsupportedModelError{Kind: s}
}

// Encoder maps the node feature matrix to one embedding vector per node.
// All variants share the shape contract: input width = node feature width,
// output width = the configured hidden dimension. Downstream components
// are variant-agnostic.
type Encoder interface {
	nn.Module
	Encode(t *nn.Tape, x *nn.Value) *nn.Value
}

// newEncoder dispatches on the closed variant set.
func newEncoder(kind EncoderKind, ops *graphOps, inDim, hiddenDim, layerNum int, rng *rand.Rand) (Encoder, error) {
	switch kind {
	case GCN:
		return newGCN(ops, inDim, hiddenDim, layerNum, rng), nil
	case GAT:
		return newGAT(ops, inDim, hiddenDim, layerNum, rng), nil
	case SAGE:
		return newSAGE(ops, inDim, hiddenDim, layerNum, rng), nil
	case GIN:
		return newGIN(ops, inDim, hiddenDim, layerNum, rng), nil
	default:
		return nil, &UnsupportedModelError{Kind: kind.String()}
	}
}
