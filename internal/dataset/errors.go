package dataset

import (
	"fmt"
	"strings"
)

// ValidationError reports an input table that fails the pipeline's
// preconditions. It is fatal and raised before any model construction.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input %s: %s", e.Field, e.Reason)
}

// MissingNodesError reports network nodes absent from the omics columns
// after normalization. The offending identifiers are carried so callers can
// name them.
type MissingNodesError struct {
	Nodes []string
}

func (e *MissingNodesError) Error() string {
	return fmt.Sprintf("omics data is missing network nodes: %s", strings.Join(e.Nodes, ", "))
}
