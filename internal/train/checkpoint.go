package train

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/phenonet/phenonet/internal/nn"
)

// Checkpoint is one repeat's fully-formed trained state: the parameter
// snapshot plus enough metadata to identify it.
type Checkpoint struct {
	Repeat   int                       `json:"repeat"`
	Epoch    int                       `json:"epoch"`
	Accuracy float64                   `json:"accuracy"`
	Params   map[string]nn.TensorState `json:"params"`
}

// SaveCheckpoint writes the checkpoint as JSON to path.
func SaveCheckpoint(path string, ck *Checkpoint) error {
	data, err := json.Marshal(ck)
	if err != nil {
		return fmt.Errorf("train: encoding checkpoint: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("train: writing checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint reads a checkpoint back from path.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ck Checkpoint
	if err := json.Unmarshal(data, &ck); err != nil {
		return nil, fmt.Errorf("train: decoding checkpoint %s: %w", path, err)
	}
	return &ck, nil
}
