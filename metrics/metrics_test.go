package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crtc-jlab/mlcli/dataset"
	"github.com/crtc-jlab/mlcli/physics"
)

func repeat(label, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = label
	}
	return out
}

// Ten records: four of class A1 all predicted correctly, six of class Ac
// all predicted as Ah.
func TestEvaluateBreakdown(t *testing.T) {
	truth := append(repeat(1, 4), repeat(2, 6)...)
	predicted := append(repeat(1, 4), repeat(3, 6)...)

	result, err := Evaluate(predicted, truth, physics.DefaultMapping())
	require.NoError(t, err)

	assert.InDelta(t, 0.4, result.Accuracy, 1e-12)
	assert.Equal(t, 10, result.Total())
	assert.Equal(t, 4, result.Confusion[physics.ClassA1][physics.ClassA1])
	assert.Equal(t, 6, result.Confusion[physics.ClassAc][physics.ClassAh])

	a1 := result.PerClass[physics.ClassA1]
	require.True(t, a1.Defined)
	assert.Equal(t, 1.0, a1.Value)

	ac := result.PerClass[physics.ClassAc]
	require.True(t, ac.Defined)
	assert.Equal(t, 0.0, ac.Value)
	assert.Equal(t, 6, ac.Total)

	// No true Ah or Af records: accuracy undefined, not zero.
	assert.False(t, result.PerClass[physics.ClassAh].Defined)
	assert.False(t, result.PerClass[physics.ClassAf].Defined)
}

func TestEvaluateEmptyInput(t *testing.T) {
	result, err := Evaluate(nil, nil, physics.DefaultMapping())
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.Accuracy)
	assert.Equal(t, 0, result.Total())
	for _, ck := range physics.Classes() {
		assert.False(t, result.PerClass[ck].Defined)
	}
}

func TestEvaluateDiagonalMatchesDirectAccuracy(t *testing.T) {
	truth := []int{1, 2, 3, 4, 1, 2, 3, 4, 1}
	predicted := []int{1, 2, 3, 1, 1, 3, 3, 4, 2}

	result, err := Evaluate(predicted, truth, physics.DefaultMapping())
	require.NoError(t, err)

	correct := 0
	for i := range truth {
		if predicted[i] == truth[i] {
			correct++
		}
	}
	assert.Equal(t, correct, result.Correct())
	assert.InDelta(t, float64(correct)/float64(len(truth)), result.Accuracy, 1e-12)
	assert.Equal(t, len(truth), result.Total())
	assert.GreaterOrEqual(t, result.Accuracy, 0.0)
	assert.LessOrEqual(t, result.Accuracy, 1.0)
}

func TestEvaluatePerClassBounds(t *testing.T) {
	truth := []int{1, 1, 2, 3, 4, 4}
	predicted := []int{1, 2, 2, 3, 4, 1}

	result, err := Evaluate(predicted, truth, physics.DefaultMapping())
	require.NoError(t, err)

	for _, ck := range physics.Classes() {
		ca := result.PerClass[ck]
		if ca.Defined {
			assert.GreaterOrEqual(t, ca.Value, 0.0)
			assert.LessOrEqual(t, ca.Value, 1.0)
		} else {
			assert.Equal(t, 0, ca.Total)
		}
	}
}

func TestEvaluateLengthMismatch(t *testing.T) {
	_, err := Evaluate([]int{1}, []int{1, 2}, physics.DefaultMapping())
	require.Error(t, err)
}

func TestEvaluateUnknownLabel(t *testing.T) {
	var ucl *dataset.UnknownClassLabelError

	_, err := Evaluate([]int{1}, []int{9}, physics.DefaultMapping())
	require.ErrorAs(t, err, &ucl)
	assert.Equal(t, 9, ucl.Label)

	_, err = Evaluate([]int{9}, []int{1}, physics.DefaultMapping())
	require.ErrorAs(t, err, &ucl)
}
