package app

import "errors"

// Config holds all the process-level settings an App instance needs;
// pipeline semantics live in the HCL configuration.
type Config struct {
	ConfigPath string

	// OutputDir overrides the pipeline's output directory when non-empty.
	OutputDir string

	LogFormat string
	LogLevel  string

	// Seed is the base seed for model initialization and sampling.
	Seed int64

	// Tune overrides the pipeline's tune attribute when TuneSet is true.
	Tune    bool
	TuneSet bool
}

// NewConfig validates the process-level settings.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigPath == "" {
		return nil, errors.New("ConfigPath is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
