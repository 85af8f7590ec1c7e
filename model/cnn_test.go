package model

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crtc-jlab/mlcli/checkpoints"
	"github.com/crtc-jlab/mlcli/physics"
)

func convConfig(dim, samples int) ConvConfig {
	cfg := DefaultConvConfig()
	cfg.Filters = 4
	cfg.Hidden = 16
	cfg.LearningRate = 0.05
	cfg.InputDim = dim
	cfg.SampleCount = samples
	return cfg
}

func TestConvNetRequiresShape(t *testing.T) {
	// The conv architecture depends on the incoming data shape, so the
	// shape is a construction-time requirement.
	_, err := New(Convolutional, 6, physics.DefaultMapping(), nil)
	require.Error(t, err)

	cfg := DefaultConvConfig()
	cfg.InputDim = 6
	cfg.SampleCount = 0
	_, err = New(Convolutional, 6, physics.DefaultMapping(), cfg)
	require.Error(t, err)
}

func TestConvNetRejectsBadGeometry(t *testing.T) {
	cfg := convConfig(6, 10)
	cfg.KernelSize = 7 // wider than the feature vector
	_, err := New(Convolutional, 6, physics.DefaultMapping(), cfg)
	require.Error(t, err)

	cfg = convConfig(6, 10)
	cfg.PoolSize = 10 // nothing left after pooling
	_, err = New(Convolutional, 6, physics.DefaultMapping(), cfg)
	require.Error(t, err)

	cfg = convConfig(6, 10)
	cfg.InputDim = 36 // disagrees with the dataset
	_, err = New(Convolutional, 6, physics.DefaultMapping(), cfg)
	require.Error(t, err)
}

func TestConvNetTrainPredict(t *testing.T) {
	ds := scaledClusterData(t, 6, 10)
	m, err := New(Convolutional, 6, physics.DefaultMapping(), convConfig(6, ds.Len()))
	require.NoError(t, err)
	require.NoError(t, m.Build())
	assert.ErrorIs(t, m.Build(), ErrAlreadyBuilt)

	report, err := m.Train(ds, 20, 8)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, report.Accuracy, 0.0)
	assert.LessOrEqual(t, report.Accuracy, 1.0)

	predicted, err := m.Predict(ds, 8)
	require.NoError(t, err)
	require.Len(t, predicted, ds.Len())
	for _, label := range predicted {
		_, ok := physics.DefaultMapping().Class(label)
		assert.True(t, ok, "prediction %d outside the label alphabet", label)
	}

	testReport, err := m.Test(ds, 8)
	require.NoError(t, err)
	assert.Equal(t, ds.Len(), testReport.Metrics.Total())
}

func TestConvNetSaveLoadRoundTrip(t *testing.T) {
	ds := scaledClusterData(t, 6, 8)
	m, err := New(Convolutional, 6, physics.DefaultMapping(), convConfig(6, ds.Len()))
	require.NoError(t, err)
	require.NoError(t, m.Build())
	_, err = m.Train(ds, 10, 8)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "cnn.json")
	require.NoError(t, m.Save(path))

	fresh, err := New(Convolutional, 6, physics.DefaultMapping(), convConfig(6, ds.Len()))
	require.NoError(t, err)
	require.NoError(t, fresh.Load(path))

	want, err := m.Predict(ds, 8)
	require.NoError(t, err)
	got, err := fresh.Predict(ds, 8)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestConvNetLoadRejectsCorruptPayload(t *testing.T) {
	// 2 filters, kernel 3, pool 2 over dim 6: convLen 4, pooledLen 2, flat 4.
	validHead := []denseLayerPayload{
		{In: 4, Out: 3, Weight: make([]float64, 12), Bias: make([]float64, 3)},
		{In: 3, Out: 4, Weight: make([]float64, 12), Bias: make([]float64, 4)},
	}

	tests := []struct {
		name    string
		payload convPayload
	}{
		{"zero pool size", convPayload{
			Filters: 2, KernelSize: 3, PoolSize: 0, Hidden: 3,
			ConvWeight: make([]float64, 6), ConvBias: make([]float64, 2), Head: validHead,
		}},
		{"kernel wider than input", convPayload{
			Filters: 2, KernelSize: 7, PoolSize: 2, Hidden: 3,
			ConvWeight: make([]float64, 14), ConvBias: make([]float64, 2), Head: validHead,
		}},
		{"pool swallows all positions", convPayload{
			Filters: 2, KernelSize: 3, PoolSize: 9, Hidden: 3,
			ConvWeight: make([]float64, 6), ConvBias: make([]float64, 2), Head: validHead,
		}},
		{"bias size mismatch", convPayload{
			Filters: 2, KernelSize: 3, PoolSize: 2, Hidden: 3,
			ConvWeight: make([]float64, 6), ConvBias: make([]float64, 5), Head: validHead,
		}},
		{"head does not chain", convPayload{
			Filters: 2, KernelSize: 3, PoolSize: 2, Hidden: 3,
			ConvWeight: make([]float64, 6), ConvBias: make([]float64, 2),
			Head: []denseLayerPayload{
				{In: 5, Out: 4, Weight: make([]float64, 20), Bias: make([]float64, 4)},
			},
		}},
		{"empty head", convPayload{
			Filters: 2, KernelSize: 3, PoolSize: 2, Hidden: 3,
			ConvWeight: make([]float64, 6), ConvBias: make([]float64, 2),
		}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path := writeCheckpoint(t, Convolutional, 6, test.payload)

			m, err := New(Convolutional, 6, physics.DefaultMapping(), convConfig(6, 4))
			require.NoError(t, err)

			err = m.Load(path)
			require.Error(t, err)
			var pe *checkpoints.PersistenceError
			assert.ErrorAs(t, err, &pe)
		})
	}
}

func TestConvNetPredictBeforeLoad(t *testing.T) {
	ds := scaledClusterData(t, 6, 2)
	m, err := New(Convolutional, 6, physics.DefaultMapping(), convConfig(6, ds.Len()))
	require.NoError(t, err)
	require.NoError(t, m.Build())

	_, err = m.Predict(ds, 4)
	assert.ErrorIs(t, err, ErrNotTrained)
}
