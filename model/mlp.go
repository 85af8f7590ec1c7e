package model

import (
	"fmt"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/crtc-jlab/mlcli/checkpoints"
	"github.com/crtc-jlab/mlcli/dataset"
	"github.com/crtc-jlab/mlcli/physics"
)

// mlpModel is the feed-forward network backend: a stack of dense layers
// with ReLU activations and a softmax cross-entropy head, trained with
// Adam on shuffled mini-batches.
type mlpModel struct {
	lifecycle
	dim     int
	mapping physics.Mapping
	classes *classIndex
	cfg     MLPConfig
	rng     *rand.Rand
	layers  []*denseLayer
}

func newMLP(dim int, m physics.Mapping, cfg Config) (*mlpModel, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("feature dimensionality must be positive, got %d", dim)
	}

	c := DefaultMLPConfig()
	if cfg != nil {
		typed, ok := cfg.(MLPConfig)
		if !ok {
			return nil, fmt.Errorf("mlp model requires an MLPConfig, got %T", cfg)
		}
		c = typed
	}
	if len(c.Hidden) == 0 {
		return nil, fmt.Errorf("mlp model requires at least one hidden layer")
	}
	if c.LearningRate <= 0 {
		return nil, fmt.Errorf("mlp learning rate must be positive, got %g", c.LearningRate)
	}

	return &mlpModel{
		dim:     dim,
		mapping: m,
		classes: newClassIndex(m),
		cfg:     c,
		rng:     rand.New(rand.NewSource(c.Seed)),
	}, nil
}

func (m *mlpModel) Kind() Kind { return FeedForward }

func (m *mlpModel) Build() error {
	if err := m.lifecycle.build(); err != nil {
		return err
	}

	widths := append([]int{m.dim}, m.cfg.Hidden...)
	widths = append(widths, m.classes.size())

	m.layers = make([]*denseLayer, 0, len(widths)-1)
	for i := 0; i < len(widths)-1; i++ {
		m.layers = append(m.layers, newDenseLayer(widths[i], widths[i+1], m.rng))
	}
	return nil
}

func (m *mlpModel) Train(ds *dataset.Dataset, epochs, batchSize int) (*TrainingReport, error) {
	if err := m.requireTrainable(); err != nil {
		return nil, err
	}
	if err := m.checkDim(ds); err != nil {
		return nil, err
	}
	if ds.Len() == 0 {
		return nil, fmt.Errorf("cannot train on an empty dataset")
	}

	targets, err := m.classes.indexLabels(ds.Labels())
	if err != nil {
		return nil, err
	}

	batches, err := dataset.NewBatches(ds, batchSize, true, m.rng)
	if err != nil {
		return nil, err
	}

	opt := newAdam(m.cfg.LearningRate, m.paramSlices())

	start := time.Now()
	for epoch := 0; epoch < epochs; epoch++ {
		epochStart := time.Now()
		epochLoss := 0.0
		batchCount := 0

		batches.Reset()
		for batches.HasNext() {
			batch := batches.Next()
			x := batchMatrix(batch, m.dim)
			batchTargets := make([]int, len(batch.Indices))
			for k, idx := range batch.Indices {
				batchTargets[k] = targets[idx]
			}

			acts := m.forward(x)
			loss, grad := softmaxCrossEntropy(acts[len(acts)-1], batchTargets)
			epochLoss += loss
			batchCount++

			if err := opt.Step(m.backward(acts, grad)); err != nil {
				return nil, err
			}
		}

		fmt.Printf("Epoch %d/%d - loss: %.4f (%.2fs)\n",
			epoch+1, epochs, epochLoss/float64(batchCount), time.Since(epochStart).Seconds())
	}
	elapsed := time.Since(start)

	m.markTrained()
	accuracy, err := accuracyOn(m, ds, batchSize)
	if err != nil {
		return nil, err
	}
	return &TrainingReport{TrainingTime: elapsed, Accuracy: accuracy}, nil
}

func (m *mlpModel) Test(ds *dataset.Dataset, batchSize int) (*TestingReport, error) {
	if err := m.requireUsable(); err != nil {
		return nil, err
	}
	return evaluate(m, ds, batchSize, m.mapping)
}

func (m *mlpModel) Predict(ds *dataset.Dataset, batchSize int) ([]int, error) {
	if err := m.requireUsable(); err != nil {
		return nil, err
	}
	if err := m.checkDim(ds); err != nil {
		return nil, err
	}

	batches, err := dataset.NewBatches(ds, batchSize, false, nil)
	if err != nil {
		return nil, err
	}

	out := make([]int, ds.Len())
	for batches.HasNext() {
		batch := batches.Next()
		acts := m.forward(batchMatrix(batch, m.dim))
		for k, classIdx := range argmaxRows(acts[len(acts)-1]) {
			out[batch.Indices[k]] = m.classes.label(classIdx)
		}
	}
	return out, nil
}

// forward runs the batch through every layer. acts[0] is the input; acts[i]
// for hidden layers holds post-ReLU activations; the final entry holds raw
// logits.
func (m *mlpModel) forward(x *mat.Dense) []*mat.Dense {
	acts := make([]*mat.Dense, 0, len(m.layers)+1)
	acts = append(acts, x)
	for i, layer := range m.layers {
		z := layer.forward(acts[i])
		if i < len(m.layers)-1 {
			z = reluForward(z)
		}
		acts = append(acts, z)
	}
	return acts
}

// backward propagates the logit gradient down the stack and returns the
// parameter gradients in paramSlices order.
func (m *mlpModel) backward(acts []*mat.Dense, dLogits *mat.Dense) [][]float64 {
	grads := make([][]float64, 2*len(m.layers))

	dz := dLogits
	for i := len(m.layers) - 1; i >= 0; i-- {
		dw, db, dx := m.layers[i].backward(acts[i], dz)
		grads[2*i] = dw.RawMatrix().Data
		grads[2*i+1] = db

		if i > 0 {
			reluBackward(dx, acts[i])
			dz = dx
		}
	}
	return grads
}

// paramSlices returns every parameter slice in the fixed order the
// optimizer and backward agree on: per layer, weight then bias.
func (m *mlpModel) paramSlices() [][]float64 {
	params := make([][]float64, 0, 2*len(m.layers))
	for _, layer := range m.layers {
		params = append(params, layer.params()...)
	}
	return params
}

func (m *mlpModel) checkDim(ds *dataset.Dataset) error {
	if ds.Dim() != m.dim {
		return &dataset.DimensionMismatchError{Want: m.dim, Got: ds.Dim()}
	}
	return nil
}

// mlpPayload is the checkpoint payload of the feed-forward backend.
type mlpPayload struct {
	Hidden []int               `json:"hidden"`
	Layers []denseLayerPayload `json:"layers"`
}

func (m *mlpModel) Save(path string) error {
	if err := m.requireUsable(); err != nil {
		return err
	}

	payload := mlpPayload{
		Hidden: m.cfg.Hidden,
		Layers: packDenseLayers(m.layers),
	}
	cp, err := checkpoints.New(string(FeedForward), m.dim, m.classes.labels, payload)
	if err != nil {
		return &checkpoints.PersistenceError{Path: path, Op: "save", Err: err}
	}
	return checkpoints.Save(path, cp)
}

func (m *mlpModel) Load(path string) error {
	cp, err := checkpoints.Open(path, string(FeedForward))
	if err != nil {
		return err
	}

	var payload mlpPayload
	if err := cp.Decode(&payload); err != nil {
		return &checkpoints.PersistenceError{Path: path, Op: "load", Err: err}
	}

	layers, err := unpackDenseLayers(payload.Layers)
	if err != nil {
		return &checkpoints.PersistenceError{Path: path, Op: "load", Err: err}
	}
	if err := checkDenseChain(layers, cp.Dim, len(cp.Labels)); err != nil {
		return &checkpoints.PersistenceError{Path: path, Op: "load", Err: err}
	}

	m.dim = cp.Dim
	m.classes = classIndexFromLabels(cp.Labels)
	m.cfg.Hidden = payload.Hidden
	m.layers = layers
	m.markLoaded()
	return nil
}
