package app

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/phenonet/phenonet/internal/ctxlog"
	"github.com/phenonet/phenonet/internal/dataset"
	"github.com/phenonet/phenonet/internal/device"
	"github.com/phenonet/phenonet/internal/model"
	"github.com/phenonet/phenonet/internal/netgen"
	"github.com/phenonet/phenonet/internal/netgraph"
	"github.com/phenonet/phenonet/internal/nn"
	"github.com/phenonet/phenonet/internal/resultstore"
	"github.com/phenonet/phenonet/internal/train"
	"github.com/phenonet/phenonet/internal/tune"
)

// Run executes the pipeline: load and validate the inputs, align the
// omics columns with the network, build the graph, then either train
// with the configured hyperparameters or search for better ones.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	p := a.model.Pipeline

	kind, err := p.EncoderKind()
	if err != nil {
		return err
	}

	inputs, err := a.loadInputs(ctx)
	if err != nil {
		return err
	}

	combined, err := dataset.Combine(ctx, inputs.omics, inputs.phenotype)
	if err != nil {
		return err
	}
	aligned, err := dataset.Align(ctx, combined, inputs.adjacency.Nodes())
	if err != nil {
		return err
	}

	labels, err := aligned.IntColumn(dataset.PhenotypeColumn)
	if err != nil {
		return err
	}
	featureTable, err := aligned.Drop(dataset.PhenotypeColumn)
	if err != nil {
		return err
	}
	features := nn.FromRows(featureTable.Matrix())
	a.logger.Info("Inputs aligned.",
		"samples", featureTable.NumRows(),
		"nodes", featureTable.NumCols(),
	)

	rng := rand.New(rand.NewSource(a.appCfg.Seed))
	graph, err := netgraph.Build(ctx, inputs.adjacency, aligned, inputs.clinical, rng)
	if err != nil {
		return err
	}

	dev := device.Select(ctx, p.Accelerator.Enabled, p.Accelerator.Index)

	var store *resultstore.Store
	if p.ResultsDB != "" {
		store, err = resultstore.Open(p.ResultsDB)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	runID := uuid.NewString()
	if p.Tune {
		return a.runTuning(ctx, runID, kind, graph, features, labels, dev, store)
	}
	return a.runTraining(ctx, runID, kind, graph, features, labels, dev, store)
}

// inputs bundles the loaded data files of one run.
type inputs struct {
	adjacency *netgraph.AdjacencyTable
	omics     []*dataset.Table
	clinical  *dataset.Table
	phenotype *dataset.Table
}

func (a *App) loadInputs(ctx context.Context) (*inputs, error) {
	p := a.model.Pipeline

	var omics []*dataset.Table
	for _, path := range p.Data.Omics {
		t, err := dataset.ReadCSVFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading omics %s: %w", path, err)
		}
		if t.IsEmpty() {
			return nil, &dataset.ValidationError{Field: "data.omics", Reason: fmt.Sprintf("%s holds no data", path)}
		}
		omics = append(omics, t)
	}

	phenotype, err := dataset.ReadCSVFile(p.Data.Phenotype)
	if err != nil {
		return nil, fmt.Errorf("loading phenotype %s: %w", p.Data.Phenotype, err)
	}
	if phenotype.IsEmpty() {
		return nil, &dataset.ValidationError{Field: "data.phenotype", Reason: "phenotype table holds no data"}
	}

	var clinical *dataset.Table
	if p.Data.Clinical != "" {
		clinical, err = dataset.ReadCSVFile(p.Data.Clinical)
		if err != nil {
			return nil, fmt.Errorf("loading clinical %s: %w", p.Data.Clinical, err)
		}
	}

	// The network comes either from a finished adjacency CSV or from the
	// generation collaborator; a collaborator failure aborts before any
	// model work starts.
	var adjacency *netgraph.AdjacencyTable
	if gen := p.Data.Generate; gen != nil {
		adjacency, err = netgen.NewScriptGenerator(gen.Command, gen.Args...).Generate(ctx, omics, phenotype)
		if err != nil {
			return nil, err
		}
	} else {
		adjacency, err = netgraph.ReadAdjacencyCSVFile(p.Data.Adjacency)
		if err != nil {
			return nil, fmt.Errorf("loading adjacency %s: %w", p.Data.Adjacency, err)
		}
	}
	if adjacency.IsEmpty() {
		return nil, &dataset.ValidationError{Field: "data.adjacency", Reason: "network has no nodes"}
	}

	a.logger.Info("Inputs loaded.",
		"nodes", adjacency.NumNodes(),
		"omics_tables", len(omics),
		"clinical", clinical != nil,
	)
	return &inputs{adjacency: adjacency, omics: omics, clinical: clinical, phenotype: phenotype}, nil
}

func (a *App) runTraining(ctx context.Context, runID string, kind model.EncoderKind, graph *netgraph.GraphData, features *nn.Matrix, labels []int, dev device.Device, store *resultstore.Store) error {
	p := a.model.Pipeline
	if store != nil {
		if err := store.BeginRun(runID, "train", p.Encoder); err != nil {
			return fmt.Errorf("recording run: %w", err)
		}
	}

	result, err := train.Run(ctx, graph, features, labels, train.Options{
		Model: model.Config{
			Encoder:      kind,
			GNNHiddenDim: p.GNNHiddenDim,
			LayerNum:     p.LayerNum,
			HiddenDim1:   p.HiddenDim1,
			HiddenDim2:   p.HiddenDim2,
		},
		Epochs:      p.Epochs,
		Repeats:     p.Repeats,
		LR:          p.LearningRate,
		WeightDecay: p.WeightDecay,
		OutputDir:   p.OutputDir,
		Device:      dev,
		Seed:        a.appCfg.Seed,
		RunID:       runID,
		Store:       store,
	})
	if err != nil {
		return err
	}

	if store != nil {
		best := 0.0
		for _, acc := range result.Accuracies {
			if acc > best {
				best = acc
			}
		}
		if err := store.FinishRun(runID, best); err != nil {
			return fmt.Errorf("finishing run: %w", err)
		}
	}
	return nil
}

func (a *App) runTuning(ctx context.Context, runID string, kind model.EncoderKind, graph *netgraph.GraphData, features *nn.Matrix, labels []int, dev device.Device, store *resultstore.Store) error {
	p := a.model.Pipeline
	if store != nil {
		if err := store.BeginRun(runID, "tune", p.Encoder); err != nil {
			return fmt.Errorf("recording run: %w", err)
		}
	}

	result, err := tune.Run(ctx, graph, features, labels, tune.Options{
		Encoder:     kind,
		Space:       tune.DefaultSpace(),
		NumSamples:  p.Tuning.NumSamples,
		CPUPerTrial: int64(p.Tuning.CPUPerTrial),
		Device:      dev,
		Seed:        a.appCfg.Seed,
		SearchID:    runID,
		Store:       store,
	})
	if err != nil {
		return err
	}

	best := result.Best
	a.logger.Info("Best hyperparameters found.",
		"gnn_layer_num", best.Params.LayerNum,
		"gnn_hidden_dim", best.Params.HiddenDim,
		"lr", best.Params.LR,
		"weight_decay", best.Params.WeightDecay,
		"nn_hidden_dim1", best.Params.Hidden1,
		"nn_hidden_dim2", best.Params.Hidden2,
		"num_epochs", best.Params.Epochs,
	)

	if store != nil {
		if err := store.FinishRun(runID, best.FinalAccuracy); err != nil {
			return fmt.Errorf("finishing run: %w", err)
		}
	}
	return nil
}
