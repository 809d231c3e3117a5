// Package app wires configuration, logging and the pipeline stages into
// one runnable application.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/phenonet/phenonet/internal/config"
	"github.com/phenonet/phenonet/internal/ctxlog"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	appCfg *Config
	model  *config.Model
}

// NewApp constructs the application: it builds an isolated logger, loads
// the HCL pipeline configuration and applies the process-level overrides.
func NewApp(outW io.Writer, appCfg *Config) (*App, error) {
	logger := newLogger(appCfg.LogLevel, appCfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := config.Load(ctx, appCfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if appCfg.OutputDir != "" {
		model.Pipeline.OutputDir = appCfg.OutputDir
	}
	if appCfg.TuneSet {
		model.Pipeline.Tune = appCfg.Tune
	}
	logger.Debug("Configuration loaded.", "pipeline", model.Pipeline.Name)

	return &App{
		outW:   outW,
		logger: logger,
		appCfg: appCfg,
		model:  model,
	}, nil
}

// Pipeline returns the loaded pipeline configuration. This is primarily
// for testing.
func (a *App) Pipeline() *config.Pipeline {
	return a.model.Pipeline
}
