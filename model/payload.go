package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/crtc-jlab/mlcli/dataset"
)

// denseLayerPayload is the serialized form of one dense layer.
type denseLayerPayload struct {
	In     int       `json:"in"`
	Out    int       `json:"out"`
	Weight []float64 `json:"weight"`
	Bias   []float64 `json:"bias"`
}

func packDenseLayers(layers []*denseLayer) []denseLayerPayload {
	out := make([]denseLayerPayload, len(layers))
	for i, l := range layers {
		out[i] = denseLayerPayload{
			In:     l.in,
			Out:    l.out,
			Weight: append([]float64(nil), l.weight.RawMatrix().Data...),
			Bias:   append([]float64(nil), l.bias...),
		}
	}
	return out
}

func unpackDenseLayers(payloads []denseLayerPayload) ([]*denseLayer, error) {
	layers := make([]*denseLayer, len(payloads))
	for i, p := range payloads {
		if len(p.Weight) != p.In*p.Out {
			return nil, fmt.Errorf("layer %d: weight has %d elements, expected %d", i, len(p.Weight), p.In*p.Out)
		}
		if len(p.Bias) != p.Out {
			return nil, fmt.Errorf("layer %d: bias has %d elements, expected %d", i, len(p.Bias), p.Out)
		}
		layers[i] = &denseLayer{
			in:     p.In,
			out:    p.Out,
			weight: mat.NewDense(p.In, p.Out, append([]float64(nil), p.Weight...)),
			bias:   append([]float64(nil), p.Bias...),
		}
	}
	return layers, nil
}

// checkDenseChain verifies that a deserialized layer stack wires together:
// the first layer accepts in features, every layer feeds the next, and the
// last layer emits out values. A stack that fails this panics deep inside
// mat.Mul on the first forward pass, so it is rejected at load time instead.
func checkDenseChain(layers []*denseLayer, in, out int) error {
	if len(layers) == 0 {
		return fmt.Errorf("layer stack is empty")
	}
	if layers[0].in != in {
		return fmt.Errorf("first layer takes %d features, expected %d", layers[0].in, in)
	}
	for i := 1; i < len(layers); i++ {
		if layers[i].in != layers[i-1].out {
			return fmt.Errorf("layer %d takes %d features, layer %d emits %d",
				i, layers[i].in, i-1, layers[i-1].out)
		}
	}
	if last := layers[len(layers)-1]; last.out != out {
		return fmt.Errorf("last layer emits %d values, expected %d", last.out, out)
	}
	return nil
}

// batchMatrix copies a batch into a dense (n x dim) matrix for the network
// backends.
func batchMatrix(batch *dataset.Batch, dim int) *mat.Dense {
	x := mat.NewDense(len(batch.Rows), dim, nil)
	for i, row := range batch.Rows {
		x.SetRow(i, row)
	}
	return x
}
