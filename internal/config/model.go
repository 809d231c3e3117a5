// Package config holds the HCL run-configuration model and its loader.
// A run is described by one pipeline block; the loader merges all .hcl
// files found under the configured path.
package config

import (
	"fmt"

	"github.com/phenonet/phenonet/internal/dataset"
	"github.com/phenonet/phenonet/internal/model"
)

// Model is the decoded, validated run configuration.
type Model struct {
	Pipeline *Pipeline
}

// Pipeline describes one prediction run end to end.
type Pipeline struct {
	Name string

	Encoder      string
	GNNHiddenDim int
	LayerNum     int
	HiddenDim1   int
	HiddenDim2   int
	Epochs       int
	Repeats      int
	LearningRate float64
	WeightDecay  float64
	Tune         bool

	OutputDir string
	ResultsDB string

	Accelerator Accelerator
	Data        Data
	Tuning      Tuning
}

// Accelerator is the hardware preference; absence of the requested
// device downgrades to CPU at run time, never here.
type Accelerator struct {
	Enabled bool
	Index   int
}

// Data names the input files of a run. The network comes either from an
// adjacency CSV or from the generation collaborator, never both.
type Data struct {
	Adjacency string
	Omics     []string
	Clinical  string
	Phenotype string
	Generate  *Generate
}

// Generate configures the external network-generation command invoked
// when no adjacency CSV is given.
type Generate struct {
	Command string
	Args    []string
}

// Tuning parameterizes the hyperparameter search.
type Tuning struct {
	NumSamples  int
	CPUPerTrial int
}

// Defaults mirrored by the usage text in the CLI package.
const (
	DefaultEncoder      = "GCN"
	DefaultGNNHiddenDim = 16
	DefaultLayerNum     = 2
	DefaultHiddenDim1   = 16
	DefaultHiddenDim2   = 8
	DefaultEpochs       = 100
	DefaultRepeats      = 5
	DefaultLearningRate = 0.01
	DefaultWeightDecay  = 1e-4
	DefaultOutputDir    = "output"
	DefaultNumSamples   = 10
	DefaultCPUPerTrial  = 2
)

// EncoderKind parses the configured encoder tag.
func (p *Pipeline) EncoderKind() (model.EncoderKind, error) {
	return model.ParseEncoderKind(p.Encoder)
}

// Validate checks the pipeline for values no run could succeed with.
func (p *Pipeline) Validate() error {
	if _, err := p.EncoderKind(); err != nil {
		return err
	}
	if p.GNNHiddenDim < 1 || p.LayerNum < 1 || p.HiddenDim1 < 1 || p.HiddenDim2 < 1 {
		return &dataset.ValidationError{Field: "pipeline", Reason: "hidden dimensions and layer count must be positive"}
	}
	if p.Epochs < 1 {
		return &dataset.ValidationError{Field: "epoch_num", Reason: "must be positive"}
	}
	if p.Repeats < 1 {
		return &dataset.ValidationError{Field: "repeat_num", Reason: "must be positive"}
	}
	if p.LearningRate <= 0 {
		return &dataset.ValidationError{Field: "learning_rate", Reason: "must be positive"}
	}
	if p.WeightDecay < 0 {
		return &dataset.ValidationError{Field: "weight_decay", Reason: "must not be negative"}
	}
	if p.Data.Adjacency == "" && p.Data.Generate == nil {
		return &dataset.ValidationError{Field: "data", Reason: "either an adjacency CSV or a generate block is required"}
	}
	if p.Data.Adjacency != "" && p.Data.Generate != nil {
		return &dataset.ValidationError{Field: "data", Reason: "adjacency and generate are mutually exclusive"}
	}
	if p.Data.Generate != nil && p.Data.Generate.Command == "" {
		return &dataset.ValidationError{Field: "data.generate.command", Reason: "a command is required"}
	}
	if len(p.Data.Omics) == 0 {
		return &dataset.ValidationError{Field: "data.omics", Reason: "at least one omics CSV is required"}
	}
	for i, path := range p.Data.Omics {
		if path == "" {
			return &dataset.ValidationError{Field: fmt.Sprintf("data.omics[%d]", i), Reason: "path must not be empty"}
		}
	}
	if p.Data.Phenotype == "" {
		return &dataset.ValidationError{Field: "data.phenotype", Reason: "a phenotype CSV is required"}
	}
	if p.Tuning.NumSamples < 1 {
		return &dataset.ValidationError{Field: "tuning.num_samples", Reason: "must be positive"}
	}
	if p.Tuning.CPUPerTrial < 1 {
		return &dataset.ValidationError{Field: "tuning.cpu_per_trial", Reason: "must be positive"}
	}
	return nil
}
