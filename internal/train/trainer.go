// Package train runs the repeated supervised training protocol for one
// fixed model configuration: fresh model per repeat, full-batch gradient
// descent, per-repeat persistence, aggregate accuracy reporting.
package train

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/phenonet/phenonet/internal/ctxlog"
	"github.com/phenonet/phenonet/internal/device"
	"github.com/phenonet/phenonet/internal/model"
	"github.com/phenonet/phenonet/internal/netgraph"
	"github.com/phenonet/phenonet/internal/nn"
	"github.com/phenonet/phenonet/internal/resultstore"
)

// Options fixes one training run. Immutable once Run starts.
type Options struct {
	Model       model.Config
	Epochs      int
	Repeats     int
	LR          float64
	WeightDecay float64
	OutputDir   string
	Device      device.Device
	Seed        int64

	// RunID and Store are optional; when both are set every repeat is
	// recorded in the result store.
	RunID string
	Store *resultstore.Store
}

// Result aggregates a run: the last repeat's prediction table, every
// repeat's accuracy, and the persisted artifact paths keyed by repeat.
type Result struct {
	Predictions     *Predictions
	Accuracies      []float64
	CheckpointPaths []string
	PredictionPaths []string
}

// Run executes the repeated training protocol. Each repeat trains an
// independently initialized model; no weights are shared across repeats.
func Run(ctx context.Context, g *netgraph.GraphData, features *nn.Matrix, labels []int, opts Options) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("train: creating output dir: %w", err)
	}

	codec := NewLabelCodec(labels)
	encoded := codec.Encode(labels)
	result := &Result{Predictions: &Predictions{}}

	for repeat := 1; repeat <= opts.Repeats; repeat++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		logger.Info("Training repeat.", "repeat", repeat, "of", opts.Repeats, "device", opts.Device.String())

		rng := rand.New(rand.NewSource(opts.Seed + int64(repeat)))
		net, err := model.NewNetwork(opts.Model, g, features.Cols, codec.NumClasses(), rng)
		if err != nil {
			return nil, err
		}
		opt := nn.NewAdam(opts.LR, opts.WeightDecay)
		params := net.Parameters()

		for epoch := 1; epoch <= opts.Epochs; epoch++ {
			loss, _ := Step(net, opt, params, features, encoded)
			if epoch == 1 || epoch%10 == 0 {
				logger.Info("Epoch finished.", "repeat", repeat, "epoch", epoch, "epochs", opts.Epochs, "loss", loss)
			}
		}

		predicted, accuracy := Evaluate(net, features, encoded)
		result.Accuracies = append(result.Accuracies, accuracy)
		logger.Info("Repeat accuracy.", "repeat", repeat, "accuracy", accuracy)

		ckPath := filepath.Join(opts.OutputDir, fmt.Sprintf("model_repeat_%d.json", repeat))
		ck := &Checkpoint{
			Repeat:   repeat,
			Epoch:    opts.Epochs,
			Accuracy: accuracy,
			Params:   nn.StateDict(params),
		}
		if err := SaveCheckpoint(ckPath, ck); err != nil {
			return nil, err
		}
		result.CheckpointPaths = append(result.CheckpointPaths, ckPath)
		logger.Info("Model saved.", "path", ckPath)

		preds := &Predictions{
			Actual:    append([]int(nil), labels...),
			Predicted: codec.Decode(predicted),
		}
		predPath := filepath.Join(opts.OutputDir, fmt.Sprintf("predictions_repeat_%d.csv", repeat))
		if err := preds.WriteCSVFile(predPath); err != nil {
			return nil, fmt.Errorf("train: writing predictions: %w", err)
		}
		result.PredictionPaths = append(result.PredictionPaths, predPath)
		result.Predictions = preds
		logger.Info("Predictions saved.", "path", predPath)

		if opts.Store != nil && opts.RunID != "" {
			if err := opts.Store.RecordRepeat(opts.RunID, repeat, accuracy, ckPath, predPath); err != nil {
				return nil, fmt.Errorf("train: recording repeat: %w", err)
			}
		}
	}

	if len(result.Accuracies) > 0 {
		maxAcc, meanAcc, stdAcc := summarize(result.Accuracies)
		logger.Info("Best accuracy.", "accuracy", maxAcc)
		logger.Info("Average accuracy.", "accuracy", meanAcc)
		logger.Info("Accuracy standard deviation.", "stddev", stdAcc)
	}
	return result, nil
}

// Step performs one full-batch gradient step, returning the loss and the
// exact-match accuracy of the step's training-mode forward pass.
func Step(net *model.Network, opt *nn.Adam, params []*nn.Parameter, features *nn.Matrix, encoded []int) (loss, accuracy float64) {
	tape := nn.NewTape()
	probs, _ := net.Forward(tape, features, true)
	lossVal := tape.CrossEntropyWithLogits(probs, encoded)
	predicted := probs.M.ArgmaxRows()
	nn.ZeroGrad(params)
	tape.Backward(lossVal)
	opt.Step(params)
	return lossVal.M.Data[0], nn.Accuracy(predicted, encoded)
}

// Evaluate runs the model in evaluation mode and returns the predicted
// class indices with the exact-match accuracy.
func Evaluate(net *model.Network, features *nn.Matrix, encoded []int) ([]int, float64) {
	tape := nn.NewTape()
	probs, _ := net.Forward(tape, features, false)
	predicted := probs.M.ArgmaxRows()
	return predicted, nn.Accuracy(predicted, encoded)
}

// summarize returns max, mean and sample standard deviation.
func summarize(xs []float64) (maxV, mean, std float64) {
	maxV = xs[0]
	for _, x := range xs {
		if x > maxV {
			maxV = x
		}
		mean += x
	}
	mean /= float64(len(xs))
	if len(xs) > 1 {
		var sq float64
		for _, x := range xs {
			d := x - mean
			sq += d * d
		}
		std = math.Sqrt(sq / float64(len(xs)-1))
	}
	return maxV, mean, std
}
