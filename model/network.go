package model

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Shared neural-network machinery for the feed-forward and convolutional
// backends: dense layers, ReLU, softmax cross-entropy, and Adam. All batch
// math runs through gonum dense matrices.

// denseLayer is a fully connected layer: y = xW + b.
type denseLayer struct {
	in, out int
	weight  *mat.Dense // in x out
	bias    []float64  // out
}

// newDenseLayer initializes a layer with Xavier/Glorot uniform weights:
// W ~ U(-sqrt(6/(fan_in+fan_out)), +sqrt(6/(fan_in+fan_out))).
func newDenseLayer(in, out int, rng *rand.Rand) *denseLayer {
	bound := math.Sqrt(6.0 / float64(in+out))
	data := make([]float64, in*out)
	for i := range data {
		data[i] = (rng.Float64()*2.0 - 1.0) * bound
	}
	return &denseLayer{
		in:     in,
		out:    out,
		weight: mat.NewDense(in, out, data),
		bias:   make([]float64, out),
	}
}

// forward computes xW + b for a batch x of shape (n x in).
func (l *denseLayer) forward(x *mat.Dense) *mat.Dense {
	n, _ := x.Dims()
	z := mat.NewDense(n, l.out, nil)
	z.Mul(x, l.weight)
	for i := 0; i < n; i++ {
		row := z.RawRowView(i)
		for j := range row {
			row[j] += l.bias[j]
		}
	}
	return z
}

// backward computes parameter gradients and the gradient w.r.t. the layer
// input, given the forward input x and the upstream gradient dz.
func (l *denseLayer) backward(x, dz *mat.Dense) (dw *mat.Dense, db []float64, dx *mat.Dense) {
	dw = mat.NewDense(l.in, l.out, nil)
	dw.Mul(x.T(), dz)

	n, _ := dz.Dims()
	db = make([]float64, l.out)
	for i := 0; i < n; i++ {
		row := dz.RawRowView(i)
		for j := range row {
			db[j] += row[j]
		}
	}

	dx = mat.NewDense(n, l.in, nil)
	dx.Mul(dz, l.weight.T())
	return dw, db, dx
}

// params returns the layer's parameter slices in a fixed order.
func (l *denseLayer) params() [][]float64 {
	return [][]float64{l.weight.RawMatrix().Data, l.bias}
}

// reluForward applies max(0, x) in place and returns x for chaining.
func reluForward(x *mat.Dense) *mat.Dense {
	raw := x.RawMatrix().Data
	for i, v := range raw {
		if v < 0 {
			raw[i] = 0
		}
	}
	return x
}

// reluBackward zeroes upstream gradients where the pre-activation z was not
// positive. z must be the values before reluForward ran; activated holds
// the post-activation values, which share the sign pattern.
func reluBackward(dz, activated *mat.Dense) {
	grad := dz.RawMatrix().Data
	act := activated.RawMatrix().Data
	for i := range grad {
		if act[i] <= 0 {
			grad[i] = 0
		}
	}
}

// softmaxCrossEntropy turns logits (n x classes) into the mean cross-entropy
// loss against the target class indices and the gradient w.r.t. the logits,
// already divided by the batch size.
func softmaxCrossEntropy(logits *mat.Dense, targets []int) (float64, *mat.Dense) {
	n, classes := logits.Dims()
	grad := mat.NewDense(n, classes, nil)
	loss := 0.0

	for i := 0; i < n; i++ {
		row := logits.RawRowView(i)

		max := row[0]
		for _, v := range row[1:] {
			if v > max {
				max = v
			}
		}

		sum := 0.0
		out := grad.RawRowView(i)
		for j, v := range row {
			e := math.Exp(v - max)
			out[j] = e
			sum += e
		}

		inv := 1.0 / sum
		for j := range out {
			out[j] *= inv
		}

		p := out[targets[i]]
		if p < 1e-12 {
			p = 1e-12
		}
		loss -= math.Log(p)

		out[targets[i]] -= 1.0
		for j := range out {
			out[j] /= float64(n)
		}
	}

	return loss / float64(n), grad
}

// argmaxRows returns the index of the largest value in each row, preferring
// the lowest index on ties so results are deterministic.
func argmaxRows(x *mat.Dense) []int {
	n, _ := x.Dims()
	out := make([]int, n)
	for i := 0; i < n; i++ {
		row := x.RawRowView(i)
		best := 0
		for j, v := range row {
			if v > row[best] {
				best = j
			}
		}
		out[i] = best
	}
	return out
}

// adam implements the Adam optimizer with bias-corrected first and second
// moment estimates. It updates the registered parameter slices in place.
type adam struct {
	lr      float64
	beta1   float64
	beta2   float64
	epsilon float64
	step    int

	params [][]float64
	m      [][]float64
	v      [][]float64
}

// newAdam registers the parameter slices the optimizer will update.
func newAdam(lr float64, params [][]float64) *adam {
	a := &adam{
		lr:      lr,
		beta1:   0.9,
		beta2:   0.999,
		epsilon: 1e-8,
		params:  params,
		m:       make([][]float64, len(params)),
		v:       make([][]float64, len(params)),
	}
	for i, p := range params {
		a.m[i] = make([]float64, len(p))
		a.v[i] = make([]float64, len(p))
	}
	return a
}

// Step applies one update. grads must align with the registered parameters.
func (a *adam) Step(grads [][]float64) error {
	if len(grads) != len(a.params) {
		return fmt.Errorf("adam: got %d gradient tensors, have %d parameter tensors", len(grads), len(a.params))
	}

	a.step++
	correction1 := 1.0 - math.Pow(a.beta1, float64(a.step))
	correction2 := 1.0 - math.Pow(a.beta2, float64(a.step))

	for i, p := range a.params {
		g := grads[i]
		if len(g) != len(p) {
			return fmt.Errorf("adam: gradient %d has %d elements, parameter has %d", i, len(g), len(p))
		}
		m := a.m[i]
		v := a.v[i]
		for j := range p {
			m[j] = a.beta1*m[j] + (1.0-a.beta1)*g[j]
			v[j] = a.beta2*v[j] + (1.0-a.beta2)*g[j]*g[j]

			mHat := m[j] / correction1
			vHat := v[j] / correction2
			p[j] -= a.lr * mHat / (math.Sqrt(vHat) + a.epsilon)
		}
	}
	return nil
}
