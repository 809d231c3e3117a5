// Package netgen is the boundary to the network-generation collaborator:
// an external statistical procedure that turns omics and phenotype tables
// into a weighted similarity network. The pipeline consumes only the
// finished adjacency table and never inspects how it was produced.
package netgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/phenonet/phenonet/internal/ctxlog"
	"github.com/phenonet/phenonet/internal/dataset"
	"github.com/phenonet/phenonet/internal/netgraph"
)

// Generator produces an adjacency table from omics and phenotype data.
type Generator interface {
	Generate(ctx context.Context, omics []*dataset.Table, phenotype *dataset.Table) (*netgraph.AdjacencyTable, error)
}

// ExternalProcessError reports a collaborator process that exited
// non-zero. The collaborator's diagnostic output is attached so the
// failure is never silently swallowed.
type ExternalProcessError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExternalProcessError) Error() string {
	msg := fmt.Sprintf("network generation command %q failed (exit %d)", e.Command, e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *ExternalProcessError) Unwrap() error { return e.Err }

// payload is the JSON document fed to the collaborator on stdin: every
// table serialized as CSV text.
type payload struct {
	Phenotype string   `json:"phenotype"`
	Omics     []string `json:"omics"`
}

// ScriptGenerator invokes an external script (for example an SmCCNet
// driver) as a subprocess. Contract: the script reads the JSON payload on
// stdin and writes the adjacency table as CSV on stdout.
type ScriptGenerator struct {
	Command string
	Args    []string
}

// NewScriptGenerator wraps the given command line as a Generator.
func NewScriptGenerator(command string, args ...string) *ScriptGenerator {
	return &ScriptGenerator{Command: command, Args: args}
}

// Generate screens the input tables for NaN/Inf rows, runs the
// collaborator and parses the resulting adjacency table.
func (g *ScriptGenerator) Generate(ctx context.Context, omics []*dataset.Table, phenotype *dataset.Table) (*netgraph.AdjacencyTable, error) {
	logger := ctxlog.FromContext(ctx)

	var p payload
	var buf bytes.Buffer
	if err := phenotype.WriteCSV(&buf); err != nil {
		return nil, fmt.Errorf("netgen: serializing phenotype: %w", err)
	}
	p.Phenotype = buf.String()

	for i, t := range omics {
		screened, dropped := t.DropInvalidRows()
		if len(dropped) > 0 {
			logger.Warn("Dropping samples with NaN/Inf values before network generation.",
				"table", i, "samples", dropped)
		}
		buf.Reset()
		if err := screened.WriteCSV(&buf); err != nil {
			return nil, fmt.Errorf("netgen: serializing omics table %d: %w", i, err)
		}
		p.Omics = append(p.Omics, buf.String())
	}

	stdin, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("netgen: encoding payload: %w", err)
	}

	logger.Info("Running network-generation collaborator.", "command", g.Command)
	cmd := exec.CommandContext(ctx, g.Command, g.Args...)
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return nil, &ExternalProcessError{
			Command:  g.Command,
			ExitCode: exitCode,
			Stderr:   stderr.String(),
			Err:      err,
		}
	}

	adj, err := netgraph.ReadAdjacencyCSV(&stdout)
	if err != nil {
		return nil, fmt.Errorf("netgen: parsing collaborator output: %w", err)
	}
	logger.Info("Network generated.", "nodes", adj.NumNodes())
	return adj, nil
}
