package tune

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/phenonet/phenonet/internal/ctxlog"
	"github.com/phenonet/phenonet/internal/device"
	"github.com/phenonet/phenonet/internal/model"
	"github.com/phenonet/phenonet/internal/netgraph"
	"github.com/phenonet/phenonet/internal/nn"
	"github.com/phenonet/phenonet/internal/resultstore"
	"github.com/phenonet/phenonet/internal/train"
)

// Options fixes one hyperparameter search. Immutable once Run starts.
type Options struct {
	Encoder model.EncoderKind
	Space   Space

	// NumSamples is how many configurations to try (default 10).
	NumSamples int
	// CPUPerTrial is the CPU budget one trial reserves (default 2).
	CPUPerTrial int64
	// TotalCPU caps how much CPU all running trials may hold together
	// (default runtime.NumCPU()).
	TotalCPU int64

	// GracePeriod and ReductionFactor parameterize the early-stopping
	// scheduler (defaults 10 and 2).
	GracePeriod     int
	ReductionFactor int

	Device device.Device
	Seed   int64

	// SearchID identifies the search; generated when empty. Store is
	// optional; when set every trial is recorded.
	SearchID string
	Store    *resultstore.Store
}

// Trial is one completed (or early-stopped) trial.
type Trial struct {
	Index         int
	Params        Params
	FinalLoss     float64
	FinalAccuracy float64
	Reports       int
	Stopped       bool

	// Checkpoint is the parameter snapshot at the trial's last finished
	// epoch.
	Checkpoint map[string]nn.TensorState
}

// Result is the outcome of a search: the best trial by final loss and
// the full trial history. Predictions is always empty; the search
// reports configurations, not per-sample outputs.
type Result struct {
	SearchID    string
	Best        Trial
	Trials      []Trial
	Predictions *train.Predictions
}

// Run executes the search: NumSamples independently sampled
// configurations train concurrently under the CPU budget, each
// reporting its loss and accuracy once per epoch; the loss feeds a
// shared early-stopping scheduler. Trials stop at epoch boundaries only, so every checkpoint
// is fully formed.
func Run(ctx context.Context, g *netgraph.GraphData, features *nn.Matrix, labels []int, opts Options) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	opts = withDefaults(opts)

	codec := train.NewLabelCodec(labels)
	encoded := codec.Encode(labels)

	rng := rand.New(rand.NewSource(opts.Seed))
	trials := make([]Trial, opts.NumSamples)
	for i := range trials {
		trials[i] = Trial{Index: i, Params: opts.Space.Sample(rng)}
	}

	sched := NewASHA(opts.GracePeriod, opts.ReductionFactor)
	sem := semaphore.NewWeighted(opts.TotalCPU)
	grp, gctx := errgroup.WithContext(ctx)

	logger.Info("Hyperparameter search starting.",
		"search_id", opts.SearchID,
		"trials", opts.NumSamples,
		"cpu_per_trial", opts.CPUPerTrial,
		"total_cpu", opts.TotalCPU,
		"device", opts.Device.String(),
	)

	for i := range trials {
		trial := &trials[i]
		grp.Go(func() error {
			if err := sem.Acquire(gctx, opts.CPUPerTrial); err != nil {
				return err
			}
			defer sem.Release(opts.CPUPerTrial)
			return runTrial(gctx, g, features, encoded, codec.NumClasses(), opts, sched, trial)
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	result := &Result{
		SearchID:    opts.SearchID,
		Trials:      trials,
		Predictions: &train.Predictions{},
	}
	best := 0
	for i := 1; i < len(trials); i++ {
		if trials[i].FinalLoss < trials[best].FinalLoss {
			best = i
		}
	}
	result.Best = trials[best]

	logger.Info("Hyperparameter search finished.",
		"search_id", opts.SearchID,
		"best_trial", result.Best.Index,
		"best_loss", result.Best.FinalLoss,
		"best_accuracy", result.Best.FinalAccuracy,
	)

	if opts.Store != nil {
		for i := range trials {
			t := &trials[i]
			cfg, err := json.Marshal(t.Params)
			if err != nil {
				return nil, fmt.Errorf("tune: encoding trial config: %w", err)
			}
			status := "completed"
			if t.Stopped {
				status = "stopped"
			}
			if err := opts.Store.RecordTrial(opts.SearchID, t.Index, string(cfg), t.FinalLoss, t.FinalAccuracy, status); err != nil {
				return nil, fmt.Errorf("tune: recording trial: %w", err)
			}
		}
	}
	return result, nil
}

// runTrial trains one sampled configuration to completion or until the
// scheduler stops it.
func runTrial(ctx context.Context, g *netgraph.GraphData, features *nn.Matrix, encoded []int, numClasses int, opts Options, sched *ASHA, trial *Trial) error {
	logger := ctxlog.FromContext(ctx).With("trial", trial.Index)
	p := trial.Params
	logger.Info("Trial starting.",
		"gnn_layer_num", p.LayerNum,
		"gnn_hidden_dim", p.HiddenDim,
		"lr", p.LR,
		"weight_decay", p.WeightDecay,
		"nn_hidden_dim1", p.Hidden1,
		"nn_hidden_dim2", p.Hidden2,
		"num_epochs", p.Epochs,
	)

	cfg := model.Config{
		Encoder:      opts.Encoder,
		GNNHiddenDim: p.HiddenDim,
		LayerNum:     p.LayerNum,
		HiddenDim1:   p.Hidden1,
		HiddenDim2:   p.Hidden2,
	}
	rng := rand.New(rand.NewSource(opts.Seed + 1000 + int64(trial.Index)))
	net, err := model.NewNetwork(cfg, g, features.Cols, numClasses, rng)
	if err != nil {
		return err
	}
	opt := nn.NewAdam(p.LR, p.WeightDecay)
	params := net.Parameters()

	for epoch := 1; epoch <= p.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		loss, accuracy := train.Step(net, opt, params, features, encoded)
		trial.Reports = epoch
		trial.Checkpoint = nn.StateDict(params)
		logger.Debug("Epoch report.", "epoch", epoch, "loss", loss, "accuracy", accuracy)

		if sched.Decide(epoch, loss) == Stop {
			trial.Stopped = true
			logger.Info("Trial stopped early.", "epoch", epoch, "loss", loss)
			break
		}
	}

	trial.FinalLoss, trial.FinalAccuracy = evalMetrics(net, features, encoded)
	if math.IsNaN(trial.FinalLoss) {
		trial.FinalLoss = math.Inf(1)
	}
	if !trial.Stopped {
		logger.Info("Trial completed.", "epochs", trial.Reports, "loss", trial.FinalLoss, "accuracy", trial.FinalAccuracy)
	}
	return nil
}

// evalMetrics computes evaluation-mode loss and accuracy without a
// gradient pass.
func evalMetrics(net *model.Network, features *nn.Matrix, encoded []int) (loss, accuracy float64) {
	tape := nn.NewTape()
	probs, _ := net.Forward(tape, features, false)
	lv := tape.CrossEntropyWithLogits(probs, encoded)
	predicted := probs.M.ArgmaxRows()
	return lv.M.Data[0], nn.Accuracy(predicted, encoded)
}

func withDefaults(opts Options) Options {
	if opts.NumSamples <= 0 {
		opts.NumSamples = 10
	}
	if opts.CPUPerTrial <= 0 {
		opts.CPUPerTrial = 2
	}
	if opts.TotalCPU <= 0 {
		opts.TotalCPU = int64(runtime.NumCPU())
	}
	if opts.TotalCPU < opts.CPUPerTrial {
		opts.TotalCPU = opts.CPUPerTrial
	}
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = 10
	}
	if opts.ReductionFactor <= 0 {
		opts.ReductionFactor = 2
	}
	if opts.SearchID == "" {
		opts.SearchID = uuid.NewString()
	}
	return opts
}
