// Package model defines the uniform lifecycle contract shared by every
// classifier backend and the factory that dispatches over the closed set of
// backend kinds. The orchestration layer only ever sees the Model interface;
// which learning algorithm sits behind it is invisible there.
package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/crtc-jlab/mlcli/dataset"
	"github.com/crtc-jlab/mlcli/metrics"
	"github.com/crtc-jlab/mlcli/physics"
)

// Kind names one concrete classifier backend.
type Kind string

const (
	// TreeEnsemble is the extremely-randomized tree ensemble backend.
	TreeEnsemble Kind = "et"
	// FeedForward is the fully connected network backend.
	FeedForward Kind = "mlp"
	// Convolutional is the 1-D convolutional network backend.
	Convolutional Kind = "cnn"
)

// Kinds returns every supported backend kind.
func Kinds() []Kind {
	return []Kind{TreeEnsemble, FeedForward, Convolutional}
}

// Lifecycle errors shared by all backends.
var (
	// ErrNotBuilt is returned when Train is called before Build or Load.
	ErrNotBuilt = errors.New("model has not been built")
	// ErrNotTrained is returned when Test, Predict, or Save is called
	// before Train or Load.
	ErrNotTrained = errors.New("model has not been trained")
	// ErrAlreadyBuilt is returned when Build is called twice. Rebuilding is
	// rejected rather than silently reinitializing so a double build in the
	// orchestration layer is surfaced.
	ErrAlreadyBuilt = errors.New("model has already been built")
)

// UnsupportedTypeError reports a backend kind outside the closed set.
type UnsupportedTypeError struct {
	Kind Kind
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported model type %q (supported: et, mlp, cnn)", string(e.Kind))
}

// TrainingReport summarizes one Train call.
type TrainingReport struct {
	TrainingTime time.Duration
	Accuracy     float64
}

// TestingReport summarizes one Test call.
type TestingReport struct {
	TestingTime time.Duration
	Metrics     *metrics.Result
}

// Model is the uniform contract every backend satisfies. The lifecycle is
//
//	Unbuilt --Build--> Built --Train--> Trained
//	(any)   --Load---> Loaded
//
// Test, Predict, and Save require Trained or Loaded and never mutate the
// model; Train requires Built or Loaded; there is no way back to Unbuilt.
type Model interface {
	// Kind identifies the backend.
	Kind() Kind

	// Build initializes the backend's architecture from its configuration.
	// It must be called exactly once; a second call fails with
	// ErrAlreadyBuilt.
	Build() error

	// Train fits the model to ds and reports elapsed time and training-set
	// accuracy.
	Train(ds *dataset.Dataset, epochs, batchSize int) (*TrainingReport, error)

	// Test predicts every record of ds and evaluates against its labels.
	Test(ds *dataset.Dataset, batchSize int) (*TestingReport, error)

	// Predict returns one raw label per record, in input order.
	Predict(ds *dataset.Dataset, batchSize int) ([]int, error)

	// Save serializes the trained parameters to path.
	Save(path string) error

	// Load deserializes parameters from path, leaving the model in the
	// Loaded state.
	Load(path string) error
}

// New constructs an unbuilt model of the requested kind for data of the
// given dimensionality. The class mapping fixes the label alphabet the
// model predicts over. cfg must be the matching config type (or nil for
// defaults); the Convolutional kind has a hard construction-time dependency
// on dataset shape and therefore requires a ConvConfig with SampleCount set.
func New(kind Kind, dim int, m physics.Mapping, cfg Config) (Model, error) {
	switch kind {
	case TreeEnsemble:
		return newExtraTrees(dim, m, cfg)
	case FeedForward:
		return newMLP(dim, m, cfg)
	case Convolutional:
		return newConvNet(dim, m, cfg)
	default:
		return nil, &UnsupportedTypeError{Kind: kind}
	}
}

// state tracks where a model sits in its lifecycle.
type state int

const (
	stateUnbuilt state = iota
	stateBuilt
	stateTrained
	stateLoaded
)

// lifecycle is embedded by every backend to enforce the shared state
// machine.
type lifecycle struct {
	state state
}

func (l *lifecycle) build() error {
	if l.state != stateUnbuilt {
		return ErrAlreadyBuilt
	}
	l.state = stateBuilt
	return nil
}

func (l *lifecycle) requireTrainable() error {
	if l.state != stateBuilt && l.state != stateLoaded {
		return ErrNotBuilt
	}
	return nil
}

func (l *lifecycle) requireUsable() error {
	if l.state != stateTrained && l.state != stateLoaded {
		return ErrNotTrained
	}
	return nil
}

func (l *lifecycle) markTrained() {
	// A loaded model stays Loaded after further training; both states are
	// test/predict/save-capable.
	if l.state != stateLoaded {
		l.state = stateTrained
	}
}

func (l *lifecycle) markLoaded() {
	l.state = stateLoaded
}

// classIndex maps the raw-label alphabet of a mapping to dense class
// indices and back. Backends train over indices and translate at the edges
// so files, reports, and predictions all carry raw labels.
type classIndex struct {
	labels  []int
	indexOf map[int]int
}

func newClassIndex(m physics.Mapping) *classIndex {
	labels := m.Labels()
	ci := &classIndex{
		labels:  labels,
		indexOf: make(map[int]int, len(labels)),
	}
	for i, label := range labels {
		ci.indexOf[label] = i
	}
	return ci
}

// classIndexFromLabels rebuilds an index from a checkpoint's label list.
func classIndexFromLabels(labels []int) *classIndex {
	ci := &classIndex{
		labels:  append([]int(nil), labels...),
		indexOf: make(map[int]int, len(labels)),
	}
	for i, label := range labels {
		ci.indexOf[label] = i
	}
	return ci
}

func (ci *classIndex) size() int {
	return len(ci.labels)
}

// index resolves a raw label to its dense class index.
func (ci *classIndex) index(label int) (int, error) {
	idx, ok := ci.indexOf[label]
	if !ok {
		return 0, &dataset.UnknownClassLabelError{Label: label}
	}
	return idx, nil
}

// label resolves a dense class index back to its raw label.
func (ci *classIndex) label(idx int) int {
	return ci.labels[idx]
}

// indexLabels translates a whole label slice, failing on the first label
// outside the alphabet.
func (ci *classIndex) indexLabels(labels []int) ([]int, error) {
	out := make([]int, len(labels))
	for i, label := range labels {
		idx, err := ci.index(label)
		if err != nil {
			return nil, err
		}
		out[i] = idx
	}
	return out, nil
}

// evaluate runs the shared Test flow: predict everything, time it, and
// delegate to the metrics evaluator.
func evaluate(m Model, ds *dataset.Dataset, batchSize int, mapping physics.Mapping) (*TestingReport, error) {
	start := time.Now()
	predicted, err := m.Predict(ds, batchSize)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	result, err := metrics.Evaluate(predicted, ds.Labels(), mapping)
	if err != nil {
		return nil, err
	}
	return &TestingReport{TestingTime: elapsed, Metrics: result}, nil
}

// accuracyOn computes the fraction of ds the model currently predicts
// correctly; used for the training-set accuracy in TrainingReport.
func accuracyOn(m Model, ds *dataset.Dataset, batchSize int) (float64, error) {
	if ds.Len() == 0 {
		return 0, nil
	}
	predicted, err := m.Predict(ds, batchSize)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i, label := range ds.Labels() {
		if predicted[i] == label {
			correct++
		}
	}
	return float64(correct) / float64(ds.Len()), nil
}
