package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/phenonet/phenonet/internal/ctxlog"
	"github.com/phenonet/phenonet/internal/fsutil"
)

// fileRoot decodes the top-level blocks of any configuration file.
type fileRoot struct {
	Pipelines []*pipelineBlock `hcl:"pipeline,block"`
	Remain    hcl.Body         `hcl:",remain"`
}

type pipelineBlock struct {
	Name string `hcl:"name,label"`

	Encoder      *string  `hcl:"encoder,optional"`
	GNNHiddenDim *int     `hcl:"gnn_hidden_dim,optional"`
	LayerNum     *int     `hcl:"layer_num,optional"`
	HiddenDim1   *int     `hcl:"nn_hidden_dim1,optional"`
	HiddenDim2   *int     `hcl:"nn_hidden_dim2,optional"`
	Epochs       *int     `hcl:"epoch_num,optional"`
	Repeats      *int     `hcl:"repeat_num,optional"`
	LearningRate *float64 `hcl:"learning_rate,optional"`
	WeightDecay  *float64 `hcl:"weight_decay,optional"`
	Tune         *bool    `hcl:"tune,optional"`
	OutputDir    *string  `hcl:"output_dir,optional"`
	ResultsDB    *string  `hcl:"results_db,optional"`

	Accelerator *acceleratorBlock `hcl:"accelerator,block"`
	Data        *dataBlock        `hcl:"data,block"`
	Tuning      *tuningBlock      `hcl:"tuning,block"`
}

type acceleratorBlock struct {
	Enabled bool `hcl:"enabled"`
	Index   *int `hcl:"index,optional"`
}

type dataBlock struct {
	Adjacency *string        `hcl:"adjacency,optional"`
	Omics     []string       `hcl:"omics"`
	Clinical  *string        `hcl:"clinical,optional"`
	Phenotype string         `hcl:"phenotype"`
	Generate  *generateBlock `hcl:"generate,block"`
}

type generateBlock struct {
	Command string   `hcl:"command"`
	Args    []string `hcl:"args,optional"`
}

type tuningBlock struct {
	NumSamples  *int `hcl:"num_samples,optional"`
	CPUPerTrial *int `hcl:"cpu_per_trial,optional"`
}

// Load discovers every .hcl file under path (or path itself when it is a
// file), decodes them and returns the validated run configuration.
// Exactly one pipeline block must be present across all files.
func Load(ctx context.Context, path string) (*Model, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := fsutil.FindFilesByExtension(path, ".hcl")
	if err != nil {
		return nil, fmt.Errorf("config: discovering files under %s: %w", path, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("config: no .hcl files found under %s", path)
	}
	logger.Debug("Configuration files discovered.", "count", len(files))

	parser := hclparse.NewParser()
	var blocks []*pipelineBlock

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("config: parsing %s: %w", file, diags)
		}

		// Files may refer to workdir to keep data paths relative to the
		// configuration file itself.
		evalCtx := &hcl.EvalContext{
			Variables: map[string]cty.Value{
				"workdir": cty.StringVal(filepath.Dir(file)),
			},
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, evalCtx, &root); diags.HasErrors() {
			return nil, fmt.Errorf("config: decoding %s: %w", file, diags)
		}
		blocks = append(blocks, root.Pipelines...)
	}

	if len(blocks) == 0 {
		return nil, fmt.Errorf("config: no pipeline block found under %s", path)
	}
	if len(blocks) > 1 {
		return nil, fmt.Errorf("config: found %d pipeline blocks, expected exactly one", len(blocks))
	}

	pipeline := translate(blocks[0])
	if err := pipeline.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("Configuration loaded.", "pipeline", pipeline.Name, "encoder", pipeline.Encoder, "tune", pipeline.Tune)
	return &Model{Pipeline: pipeline}, nil
}

// translate fills defaults for every attribute the block omits.
func translate(b *pipelineBlock) *Pipeline {
	p := &Pipeline{
		Name:         b.Name,
		Encoder:      DefaultEncoder,
		GNNHiddenDim: DefaultGNNHiddenDim,
		LayerNum:     DefaultLayerNum,
		HiddenDim1:   DefaultHiddenDim1,
		HiddenDim2:   DefaultHiddenDim2,
		Epochs:       DefaultEpochs,
		Repeats:      DefaultRepeats,
		LearningRate: DefaultLearningRate,
		WeightDecay:  DefaultWeightDecay,
		OutputDir:    DefaultOutputDir,
		Tuning: Tuning{
			NumSamples:  DefaultNumSamples,
			CPUPerTrial: DefaultCPUPerTrial,
		},
	}

	if b.Encoder != nil {
		p.Encoder = *b.Encoder
	}
	if b.GNNHiddenDim != nil {
		p.GNNHiddenDim = *b.GNNHiddenDim
	}
	if b.LayerNum != nil {
		p.LayerNum = *b.LayerNum
	}
	if b.HiddenDim1 != nil {
		p.HiddenDim1 = *b.HiddenDim1
	}
	if b.HiddenDim2 != nil {
		p.HiddenDim2 = *b.HiddenDim2
	}
	if b.Epochs != nil {
		p.Epochs = *b.Epochs
	}
	if b.Repeats != nil {
		p.Repeats = *b.Repeats
	}
	if b.LearningRate != nil {
		p.LearningRate = *b.LearningRate
	}
	if b.WeightDecay != nil {
		p.WeightDecay = *b.WeightDecay
	}
	if b.Tune != nil {
		p.Tune = *b.Tune
	}
	if b.OutputDir != nil {
		p.OutputDir = *b.OutputDir
	}
	if b.ResultsDB != nil {
		p.ResultsDB = *b.ResultsDB
	}

	if b.Accelerator != nil {
		p.Accelerator.Enabled = b.Accelerator.Enabled
		if b.Accelerator.Index != nil {
			p.Accelerator.Index = *b.Accelerator.Index
		}
	}
	if b.Data != nil {
		if b.Data.Adjacency != nil {
			p.Data.Adjacency = *b.Data.Adjacency
		}
		p.Data.Omics = append([]string(nil), b.Data.Omics...)
		if b.Data.Clinical != nil {
			p.Data.Clinical = *b.Data.Clinical
		}
		p.Data.Phenotype = b.Data.Phenotype
		if b.Data.Generate != nil {
			p.Data.Generate = &Generate{
				Command: b.Data.Generate.Command,
				Args:    append([]string(nil), b.Data.Generate.Args...),
			}
		}
	}
	if b.Tuning != nil {
		if b.Tuning.NumSamples != nil {
			p.Tuning.NumSamples = *b.Tuning.NumSamples
		}
		if b.Tuning.CPUPerTrial != nil {
			p.Tuning.CPUPerTrial = *b.Tuning.CPUPerTrial
		}
	}
	return p
}
