package nn

import (
	"fmt"
	"math"
)

// CrossEntropyWithLogits records the mean cross-entropy between the rows of
// logits and the integer class labels. It folds log-softmax and NLL into a
// single op so the gradient is the numerically stable (softmax − onehot)/N.
func (t *Tape) CrossEntropyWithLogits(logits *Value, labels []int) *Value {
	rows, cols := logits.M.Rows, logits.M.Cols
	if len(labels) != rows {
		panic(fmt.Sprintf("nn: %d labels for %d logit rows", len(labels), rows))
	}

	probs := NewMatrix(rows, cols)
	var total float64
	for i := 0; i < rows; i++ {
		row := logits.M.Data[i*cols : (i+1)*cols]
		out := probs.Data[i*cols : (i+1)*cols]
		softmaxRow(row, out, nil)
		y := labels[i]
		if y < 0 || y >= cols {
			panic(fmt.Sprintf("nn: label %d out of range [0,%d)", y, cols))
		}
		total += -math.Log(math.Max(out[y], 1e-300))
	}

	m := NewMatrix(1, 1)
	m.Data[0] = total / float64(rows)
	out := t.record(m, nil)
	out.back = func() {
		g := out.Grad.Data[0] / float64(rows)
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				p := probs.At(i, j)
				if j == labels[i] {
					p -= 1
				}
				logits.Grad.Data[i*logits.Grad.Cols+j] += g * p
			}
		}
	}
	return out
}

// Accuracy returns the exact-match rate between predictions and labels.
func Accuracy(predicted, labels []int) float64 {
	if len(predicted) == 0 {
		return 0
	}
	var correct int
	for i, p := range predicted {
		if p == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(predicted))
}
