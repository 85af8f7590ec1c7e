package model

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/crtc-jlab/mlcli/checkpoints"
	"github.com/crtc-jlab/mlcli/dataset"
	"github.com/crtc-jlab/mlcli/physics"
)

// convNet is the convolutional backend: a bank of 1-D kernels slid over the
// feature vector, ReLU, non-overlapping max-pooling, then a dense head.
// Because the conv/pool geometry is a function of the incoming data shape,
// the dataset dimensionality and sample count are construction-time inputs;
// newConvNet rejects a config without them.
type convNet struct {
	lifecycle
	dim     int
	mapping physics.Mapping
	classes *classIndex
	cfg     ConvConfig
	rng     *rand.Rand

	convLen   int // positions per filter after the valid convolution
	pooledLen int // positions per filter after pooling

	convWeight []float64 // Filters x KernelSize, row-major
	convBias   []float64 // Filters
	head       []*denseLayer
}

func newConvNet(dim int, m physics.Mapping, cfg Config) (*convNet, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("feature dimensionality must be positive, got %d", dim)
	}
	if cfg == nil {
		return nil, fmt.Errorf("cnn model requires a ConvConfig carrying the dataset shape")
	}
	c, ok := cfg.(ConvConfig)
	if !ok {
		return nil, fmt.Errorf("cnn model requires a ConvConfig, got %T", cfg)
	}
	if c.InputDim == 0 {
		c.InputDim = dim
	}
	if c.InputDim != dim {
		return nil, fmt.Errorf("cnn config declares input dimensionality %d, dataset has %d", c.InputDim, dim)
	}
	if c.SampleCount <= 0 {
		return nil, fmt.Errorf("cnn model requires the dataset sample count at construction, got %d", c.SampleCount)
	}
	if c.Filters <= 0 || c.KernelSize <= 0 || c.PoolSize <= 0 || c.Hidden <= 0 {
		return nil, fmt.Errorf("cnn architecture parameters must be positive")
	}
	if c.KernelSize > dim {
		return nil, fmt.Errorf("cnn kernel size %d exceeds feature dimensionality %d", c.KernelSize, dim)
	}
	convLen := dim - c.KernelSize + 1
	pooledLen := convLen / c.PoolSize
	if pooledLen < 1 {
		return nil, fmt.Errorf("pool size %d leaves no positions after the convolution (%d)", c.PoolSize, convLen)
	}
	if c.LearningRate <= 0 {
		return nil, fmt.Errorf("cnn learning rate must be positive, got %g", c.LearningRate)
	}

	return &convNet{
		dim:       dim,
		mapping:   m,
		classes:   newClassIndex(m),
		cfg:       c,
		rng:       rand.New(rand.NewSource(c.Seed)),
		convLen:   convLen,
		pooledLen: pooledLen,
	}, nil
}

func (m *convNet) Kind() Kind { return Convolutional }

func (m *convNet) Build() error {
	if err := m.lifecycle.build(); err != nil {
		return err
	}

	// Kernels get the same Xavier bound as a dense layer with fan sizes
	// (KernelSize, 1).
	bound := math.Sqrt(6.0 / float64(m.cfg.KernelSize+1))
	m.convWeight = make([]float64, m.cfg.Filters*m.cfg.KernelSize)
	for i := range m.convWeight {
		m.convWeight[i] = (m.rng.Float64()*2.0 - 1.0) * bound
	}
	m.convBias = make([]float64, m.cfg.Filters)

	flat := m.cfg.Filters * m.pooledLen
	m.head = []*denseLayer{
		newDenseLayer(flat, m.cfg.Hidden, m.rng),
		newDenseLayer(m.cfg.Hidden, m.classes.size(), m.rng),
	}
	return nil
}

// convForward runs conv+ReLU+pool for one batch. It returns the pooled,
// flattened features (n x Filters*pooledLen), the post-ReLU conv maps
// (n x Filters*convLen) needed for the ReLU mask, and the argmax position
// chosen by each pool window.
func (m *convNet) convForward(batch *dataset.Batch) (pooled *mat.Dense, convActs []*mat.Dense, argmax [][]int) {
	n := len(batch.Rows)
	F, K, P := m.cfg.Filters, m.cfg.KernelSize, m.cfg.PoolSize

	pooled = mat.NewDense(n, F*m.pooledLen, nil)
	convActs = make([]*mat.Dense, n)
	argmax = make([][]int, n)

	for s, row := range batch.Rows {
		act := mat.NewDense(F, m.convLen, nil)
		for f := 0; f < F; f++ {
			kernel := m.convWeight[f*K : (f+1)*K]
			dst := act.RawRowView(f)
			for t := 0; t < m.convLen; t++ {
				sum := m.convBias[f]
				for k := 0; k < K; k++ {
					sum += kernel[k] * row[t+k]
				}
				if sum < 0 {
					sum = 0
				}
				dst[t] = sum
			}
		}
		convActs[s] = act

		arg := make([]int, F*m.pooledLen)
		out := pooled.RawRowView(s)
		for f := 0; f < F; f++ {
			src := act.RawRowView(f)
			for p := 0; p < m.pooledLen; p++ {
				best := p * P
				for t := p*P + 1; t < (p+1)*P; t++ {
					if src[t] > src[best] {
						best = t
					}
				}
				arg[f*m.pooledLen+p] = best
				out[f*m.pooledLen+p] = src[best]
			}
		}
		argmax[s] = arg
	}
	return pooled, convActs, argmax
}

// convBackward pushes the pooled-feature gradient back through pooling and
// ReLU into kernel and bias gradients.
func (m *convNet) convBackward(batch *dataset.Batch, dPooled *mat.Dense, convActs []*mat.Dense, argmax [][]int) (dw, db []float64) {
	F, K := m.cfg.Filters, m.cfg.KernelSize
	dw = make([]float64, F*K)
	db = make([]float64, F)

	for s, row := range batch.Rows {
		grad := dPooled.RawRowView(s)
		act := convActs[s]
		for f := 0; f < F; f++ {
			actRow := act.RawRowView(f)
			for p := 0; p < m.pooledLen; p++ {
				g := grad[f*m.pooledLen+p]
				if g == 0 {
					continue
				}
				t := argmax[s][f*m.pooledLen+p]
				// ReLU mask: the pooled maximum was zero only if the
				// pre-activation was clamped.
				if actRow[t] <= 0 {
					continue
				}
				db[f] += g
				for k := 0; k < K; k++ {
					dw[f*K+k] += g * row[t+k]
				}
			}
		}
	}
	return dw, db
}

// headForward mirrors the MLP forward over the dense head.
func (m *convNet) headForward(pooled *mat.Dense) []*mat.Dense {
	acts := []*mat.Dense{pooled}
	for i, layer := range m.head {
		z := layer.forward(acts[i])
		if i < len(m.head)-1 {
			z = reluForward(z)
		}
		acts = append(acts, z)
	}
	return acts
}

func (m *convNet) Train(ds *dataset.Dataset, epochs, batchSize int) (*TrainingReport, error) {
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

	params := [][]float64{m.convWeight, m.convBias}
	for _, layer := range m.head {
		params = append(params, layer.params()...)
	}
	opt := newAdam(m.cfg.LearningRate, params)

	start := time.Now()
	for epoch := 0; epoch < epochs; epoch++ {
		epochStart := time.Now()
		epochLoss := 0.0
		batchCount := 0

		batches.Reset()
		for batches.HasNext() {
			batch := batches.Next()
			batchTargets := make([]int, len(batch.Indices))
			for k, idx := range batch.Indices {
				batchTargets[k] = targets[idx]
			}

			pooled, convActs, argmax := m.convForward(batch)
			acts := m.headForward(pooled)
			loss, grad := softmaxCrossEntropy(acts[len(acts)-1], batchTargets)
			epochLoss += loss
			batchCount++

			grads := make([][]float64, len(params))
			dz := grad
			for i := len(m.head) - 1; i >= 0; i-- {
				dw, db, dx := m.head[i].backward(acts[i], dz)
				grads[2+2*i] = dw.RawMatrix().Data
				grads[2+2*i+1] = db
				if i > 0 {
					reluBackward(dx, acts[i])
				}
				dz = dx
			}
			grads[0], grads[1] = m.convBackward(batch, dz, convActs, argmax)

			if err := opt.Step(grads); err != nil {
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

func (m *convNet) Test(ds *dataset.Dataset, batchSize int) (*TestingReport, error) {
	if err := m.requireUsable(); err != nil {
		return nil, err
	}
	return evaluate(m, ds, batchSize, m.mapping)
}

func (m *convNet) Predict(ds *dataset.Dataset, batchSize int) ([]int, error) {
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
		pooled, _, _ := m.convForward(batch)
		acts := m.headForward(pooled)
		for k, classIdx := range argmaxRows(acts[len(acts)-1]) {
			out[batch.Indices[k]] = m.classes.label(classIdx)
		}
	}
	return out, nil
}

func (m *convNet) checkDim(ds *dataset.Dataset) error {
	if ds.Dim() != m.dim {
		return &dataset.DimensionMismatchError{Want: m.dim, Got: ds.Dim()}
	}
	return nil
}

// convPayload is the checkpoint payload of the convolutional backend.
type convPayload struct {
	Filters    int                 `json:"filters"`
	KernelSize int                 `json:"kernel_size"`
	PoolSize   int                 `json:"pool_size"`
	Hidden     int                 `json:"hidden"`
	ConvWeight []float64           `json:"conv_weight"`
	ConvBias   []float64           `json:"conv_bias"`
	Head       []denseLayerPayload `json:"head"`
}

func (m *convNet) Save(path string) error {
	if err := m.requireUsable(); err != nil {
		return err
	}

	payload := convPayload{
		Filters:    m.cfg.Filters,
		KernelSize: m.cfg.KernelSize,
		PoolSize:   m.cfg.PoolSize,
		Hidden:     m.cfg.Hidden,
		ConvWeight: append([]float64(nil), m.convWeight...),
		ConvBias:   append([]float64(nil), m.convBias...),
		Head:       packDenseLayers(m.head),
	}
	cp, err := checkpoints.New(string(Convolutional), m.dim, m.classes.labels, payload)
	if err != nil {
		return &checkpoints.PersistenceError{Path: path, Op: "save", Err: err}
	}
	return checkpoints.Save(path, cp)
}

func (m *convNet) Load(path string) error {
	cp, err := checkpoints.Open(path, string(Convolutional))
	if err != nil {
		return err
	}

	var payload convPayload
	if err := cp.Decode(&payload); err != nil {
		return &checkpoints.PersistenceError{Path: path, Op: "load", Err: err}
	}

	// A file can pass the envelope checks and still carry a payload the
	// architecture cannot be rebuilt from; reject it instead of panicking
	// during reconstruction or the first forward pass.
	if payload.Filters <= 0 || payload.Hidden <= 0 {
		return &checkpoints.PersistenceError{Path: path, Op: "load",
			Err: fmt.Errorf("invalid conv architecture (filters=%d hidden=%d)", payload.Filters, payload.Hidden)}
	}
	if payload.KernelSize < 1 || payload.KernelSize > cp.Dim {
		return &checkpoints.PersistenceError{Path: path, Op: "load",
			Err: fmt.Errorf("kernel size %d outside [1, %d]", payload.KernelSize, cp.Dim)}
	}
	if payload.PoolSize < 1 {
		return &checkpoints.PersistenceError{Path: path, Op: "load",
			Err: fmt.Errorf("pool size %d must be at least 1", payload.PoolSize)}
	}
	convLen := cp.Dim - payload.KernelSize + 1
	pooledLen := convLen / payload.PoolSize
	if pooledLen < 1 {
		return &checkpoints.PersistenceError{Path: path, Op: "load",
			Err: fmt.Errorf("pool size %d leaves no positions after the convolution (%d)", payload.PoolSize, convLen)}
	}
	if len(payload.ConvWeight) != payload.Filters*payload.KernelSize {
		return &checkpoints.PersistenceError{Path: path, Op: "load",
			Err: fmt.Errorf("conv weight has %d elements, expected %d", len(payload.ConvWeight), payload.Filters*payload.KernelSize)}
	}
	if len(payload.ConvBias) != payload.Filters {
		return &checkpoints.PersistenceError{Path: path, Op: "load",
			Err: fmt.Errorf("conv bias has %d elements, expected %d", len(payload.ConvBias), payload.Filters)}
	}

	head, err := unpackDenseLayers(payload.Head)
	if err != nil {
		return &checkpoints.PersistenceError{Path: path, Op: "load", Err: err}
	}
	if err := checkDenseChain(head, payload.Filters*pooledLen, len(cp.Labels)); err != nil {
		return &checkpoints.PersistenceError{Path: path, Op: "load", Err: err}
	}

	m.dim = cp.Dim
	m.classes = classIndexFromLabels(cp.Labels)
	m.cfg.Filters = payload.Filters
	m.cfg.KernelSize = payload.KernelSize
	m.cfg.PoolSize = payload.PoolSize
	m.cfg.Hidden = payload.Hidden
	m.convLen = convLen
	m.pooledLen = pooledLen
	m.convWeight = append([]float64(nil), payload.ConvWeight...)
	m.convBias = append([]float64(nil), payload.ConvBias...)
	m.head = head
	m.markLoaded()
	return nil
}
