package train_test

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenonet/phenonet/internal/device"
	"github.com/phenonet/phenonet/internal/model"
	"github.com/phenonet/phenonet/internal/netgraph"
	"github.com/phenonet/phenonet/internal/nn"
	"github.com/phenonet/phenonet/internal/train"
)

func smallGraph(t *testing.T) *netgraph.GraphData {
	t.Helper()
	adj, err := netgraph.NewAdjacencyTable(
		[]string{"n.a", "n.b", "n.c"},
		[][]float64{
			{0, 1, 0},
			{1, 0, 0.5},
			{0, 0.5, 0},
		},
	)
	require.NoError(t, err)
	g, err := netgraph.Build(context.Background(), adj, nil, nil, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	return g
}

func trainOptions(dir string) train.Options {
	return train.Options{
		Model: model.Config{
			Encoder:      model.GCN,
			GNNHiddenDim: 4,
			LayerNum:     2,
			HiddenDim1:   6,
			HiddenDim2:   4,
		},
		Epochs:      5,
		Repeats:     1,
		LR:          0.01,
		WeightDecay: 1e-4,
		OutputDir:   dir,
		Device:      device.Device{Kind: device.CPU},
		Seed:        42,
	}
}

func TestRunProducesArtifacts(t *testing.T) {
	t.Parallel()

	g := smallGraph(t)
	features := nn.NewMatrix(5, 3)
	features.Uniform(rand.New(rand.NewSource(2)), 1)
	labels := []int{0, 1, 0, 1, 1}
	dir := t.TempDir()

	result, err := train.Run(context.Background(), g, features, labels, trainOptions(dir))
	require.NoError(t, err)

	require.Len(t, result.Accuracies, 1)
	assert.GreaterOrEqual(t, result.Accuracies[0], 0.0)
	assert.LessOrEqual(t, result.Accuracies[0], 1.0)

	require.Len(t, result.CheckpointPaths, 1)
	assert.Equal(t, filepath.Join(dir, "model_repeat_1.json"), result.CheckpointPaths[0])
	ck, err := train.LoadCheckpoint(result.CheckpointPaths[0])
	require.NoError(t, err)
	assert.Equal(t, 1, ck.Repeat)
	assert.Equal(t, 5, ck.Epoch)
	assert.NotEmpty(t, ck.Params)

	require.Len(t, result.PredictionPaths, 1)
	data, err := os.ReadFile(result.PredictionPaths[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "Actual,Predicted")

	require.Equal(t, 5, result.Predictions.Len())
	assert.Equal(t, labels, result.Predictions.Actual)
}

func TestStepReportsLossAndAccuracy(t *testing.T) {
	t.Parallel()

	g := smallGraph(t)
	features := nn.NewMatrix(6, 3)
	features.Uniform(rand.New(rand.NewSource(6)), 1)
	encoded := []int{0, 1, 0, 1, 0, 1}

	rng := rand.New(rand.NewSource(7))
	net, err := model.NewNetwork(trainOptions("").Model, g, features.Cols, 2, rng)
	require.NoError(t, err)
	opt := nn.NewAdam(0.01, 1e-4)
	params := net.Parameters()

	loss, accuracy := train.Step(net, opt, params, features, encoded)
	assert.Greater(t, loss, 0.0)
	assert.GreaterOrEqual(t, accuracy, 0.0)
	assert.LessOrEqual(t, accuracy, 1.0)

	// Accuracy is a multiple of 1/samples by construction.
	assert.InDelta(t, accuracy*6, float64(int(accuracy*6+0.5)), 1e-9)
}

func TestRunRepeatsProduceIndependentArtifacts(t *testing.T) {
	t.Parallel()

	g := smallGraph(t)
	features := nn.NewMatrix(4, 3)
	features.Uniform(rand.New(rand.NewSource(3)), 1)
	labels := []int{0, 1, 1, 0}
	dir := t.TempDir()

	opts := trainOptions(dir)
	opts.Repeats = 3

	result, err := train.Run(context.Background(), g, features, labels, opts)
	require.NoError(t, err)

	require.Len(t, result.Accuracies, 3)
	require.Len(t, result.CheckpointPaths, 3)
	require.Len(t, result.PredictionPaths, 3)
	for repeat := 1; repeat <= 3; repeat++ {
		assert.FileExists(t, filepath.Join(dir, "model_repeat_"+string(rune('0'+repeat))+".json"))
		assert.FileExists(t, filepath.Join(dir, "predictions_repeat_"+string(rune('0'+repeat))+".csv"))
	}
}

func TestRunDecodesPredictionsToRawLabels(t *testing.T) {
	t.Parallel()

	g := smallGraph(t)
	features := nn.NewMatrix(4, 3)
	features.Uniform(rand.New(rand.NewSource(4)), 1)
	// Raw labels are not contiguous class indices.
	labels := []int{2, 5, 2, 5}
	dir := t.TempDir()

	result, err := train.Run(context.Background(), g, features, labels, trainOptions(dir))
	require.NoError(t, err)

	for _, p := range result.Predictions.Predicted {
		assert.Contains(t, []int{2, 5}, p)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	t.Parallel()

	g := smallGraph(t)
	features := nn.NewMatrix(4, 3)
	features.Uniform(rand.New(rand.NewSource(5)), 1)
	labels := []int{0, 1, 0, 1}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := train.Run(ctx, g, features, labels, trainOptions(t.TempDir()))
	require.ErrorIs(t, err, context.Canceled)
}
