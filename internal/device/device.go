// Package device resolves the compute device for a run. Accelerator
// requests degrade to the CPU with a logged warning; an absent accelerator
// is never a hard failure.
package device

import (
	"context"
	"fmt"

	"github.com/phenonet/phenonet/internal/ctxlog"
)

// Kind identifies a compute device class.
type Kind int

const (
	CPU Kind = iota
	Accelerator
)

// Device is the resolved placement for a run. Resolved once, then treated
// as read-only.
type Device struct {
	Kind  Kind
	Index int
}

func (d Device) String() string {
	if d.Kind == Accelerator {
		return fmt.Sprintf("accelerator:%d", d.Index)
	}
	return "cpu"
}

// Select resolves the device for a run. When an accelerator is requested
// but none is usable, the run falls back to the CPU with a warning.
func Select(ctx context.Context, wantAccelerator bool, index int) Device {
	logger := ctxlog.FromContext(ctx)
	if !wantAccelerator {
		logger.Info("Using CPU.")
		return Device{Kind: CPU}
	}
	if !acceleratorAvailable(index) {
		logger.Warn("Accelerator requested but not available, using CPU.", "index", index)
		return Device{Kind: CPU}
	}
	logger.Info("Using accelerator.", "index", index)
	return Device{Kind: Accelerator, Index: index}
}

// acceleratorAvailable probes for a usable accelerator. The pure-Go build
// carries no accelerator backend, so the probe always fails; the fallback
// path above is the one exercised in production.
func acceleratorAvailable(int) bool {
	return false
}
