package model

import (
	"math/rand"

	"github.com/phenonet/phenonet/internal/nn"
)

// Classifier is the downstream fully-connected head: two Linear+BatchNorm+
// ReLU blocks followed by a Linear layer and a softmax over the phenotype
// classes. Input width is the node count (the reweighted feature matrix).
type Classifier struct {
	fc1 *nn.Linear
	bn1 *nn.BatchNorm
	fc2 *nn.Linear
	bn2 *nn.BatchNorm
	fc3 *nn.Linear
}

// NewClassifier builds the head for inputDim features and numClasses
// output classes.
func NewClassifier(inputDim, hidden1, hidden2, numClasses int, rng *rand.Rand) *Classifier {
	return &Classifier{
		fc1: nn.NewLinear("predictor.fc1", inputDim, hidden1, rng),
		bn1: nn.NewBatchNorm("predictor.bn1", hidden1),
		fc2: nn.NewLinear("predictor.fc2", hidden1, hidden2, rng),
		bn2: nn.NewBatchNorm("predictor.bn2", hidden2),
		fc3: nn.NewLinear("predictor.fc3", hidden2, numClasses, rng),
	}
}

// Apply records the head on the tape, producing per-class probabilities.
func (c *Classifier) Apply(t *nn.Tape, x *nn.Value, training bool) *nn.Value {
	h := t.ReLU(c.bn1.Apply(t, c.fc1.Apply(t, x), training))
	h = t.ReLU(c.bn2.Apply(t, c.fc2.Apply(t, h), training))
	return t.Softmax(c.fc3.Apply(t, h))
}

// Parameters implements nn.Module.
func (c *Classifier) Parameters() []*nn.Parameter {
	var out []*nn.Parameter
	out = append(out, c.fc1.Parameters()...)
	out = append(out, c.bn1.Parameters()...)
	out = append(out, c.fc2.Parameters()...)
	out = append(out, c.bn2.Parameters()...)
	out = append(out, c.fc3.Parameters()...)
	return out
}
