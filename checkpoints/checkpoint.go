// Package checkpoints persists trained models as versioned JSON envelopes.
// The envelope carries the backend kind, the data dimensionality, and the
// label alphabet next to the backend-specific payload, so loading can reject
// a file produced by a different backend or an incompatible version before
// touching the payload.
package checkpoints

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// FormatVersion identifies the envelope layout. Bump on incompatible
// changes; Open rejects versions it does not know.
const FormatVersion = 1

// Framework tags every checkpoint written by this harness.
const Framework = "mlcli"

// PersistenceError reports a failed model save or load.
type PersistenceError struct {
	Path string
	Op   string // "save" or "load"
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s model at %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Checkpoint is the serialized form of one trained model.
type Checkpoint struct {
	Version   int       `json:"version"`
	Framework string    `json:"framework"`
	CreatedAt time.Time `json:"created_at"`

	// Kind names the backend that produced the payload ("et", "mlp", "cnn").
	Kind string `json:"kind"`

	// Dim is the feature dimensionality the model was trained at.
	Dim int `json:"dim"`

	// Labels is the raw-label alphabet the model predicts over, in the
	// order the backend's class indices use.
	Labels []int `json:"labels"`

	// Payload is the backend-specific parameter blob.
	Payload json.RawMessage `json:"payload"`
}

// New builds an envelope around a backend payload.
func New(kind string, dim int, labels []int, payload interface{}) (*Checkpoint, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %v", kind, err)
	}
	return &Checkpoint{
		Version:   FormatVersion,
		Framework: Framework,
		CreatedAt: time.Now().UTC(),
		Kind:      kind,
		Dim:       dim,
		Labels:    append([]int(nil), labels...),
		Payload:   raw,
	}, nil
}

// Decode unmarshals the backend payload into out.
func (c *Checkpoint) Decode(out interface{}) error {
	if err := json.Unmarshal(c.Payload, out); err != nil {
		return fmt.Errorf("failed to decode %s payload: %v", c.Kind, err)
	}
	return nil
}

// Save writes the checkpoint to path.
func Save(path string, c *Checkpoint) error {
	file, err := os.Create(path)
	if err != nil {
		return &PersistenceError{Path: path, Op: "save", Err: err}
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(c); err != nil {
		return &PersistenceError{Path: path, Op: "save", Err: err}
	}
	return nil
}

// Open reads a checkpoint from path and verifies it was written by this
// framework, at a known version, for the wanted backend kind.
func Open(path string, wantKind string) (*Checkpoint, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &PersistenceError{Path: path, Op: "load", Err: err}
	}
	defer file.Close()

	var c Checkpoint
	if err := json.NewDecoder(file).Decode(&c); err != nil {
		return nil, &PersistenceError{Path: path, Op: "load", Err: err}
	}

	if c.Framework != Framework {
		return nil, &PersistenceError{Path: path, Op: "load",
			Err: fmt.Errorf("checkpoint was written by %q, not %q", c.Framework, Framework)}
	}
	if c.Version != FormatVersion {
		return nil, &PersistenceError{Path: path, Op: "load",
			Err: fmt.Errorf("unsupported checkpoint version %d", c.Version)}
	}
	if c.Kind != wantKind {
		return nil, &PersistenceError{Path: path, Op: "load",
			Err: fmt.Errorf("checkpoint holds a %q model, expected %q", c.Kind, wantKind)}
	}
	return &c, nil
}
