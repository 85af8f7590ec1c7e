// Package metrics computes the classification report for a batch of
// predictions: confusion matrix, global accuracy, and the per-class accuracy
// breakdown over the four report classes.
package metrics

import (
	"fmt"

	"github.com/crtc-jlab/mlcli/dataset"
	"github.com/crtc-jlab/mlcli/physics"
)

// ClassAccuracy is the accuracy of one report class. A class with no true
// records in the evaluated set has no defined accuracy; Defined
// distinguishes that case from a genuine 0.
type ClassAccuracy struct {
	Correct int
	Total   int
	Value   float64
	Defined bool
}

// Result is the full evaluation of predictions against ground truth.
type Result struct {
	// Confusion[i][j] counts records of true class i predicted as class j,
	// both indexed in physics.Classes() order.
	Confusion [physics.NumClasses][physics.NumClasses]int

	// Accuracy is the fraction of records predicted correctly, 0 for an
	// empty input.
	Accuracy float64

	PerClass map[physics.ClassKey]ClassAccuracy
}

// Total returns the number of records evaluated (the sum of all confusion
// matrix cells).
func (r *Result) Total() int {
	total := 0
	for i := range r.Confusion {
		for j := range r.Confusion[i] {
			total += r.Confusion[i][j]
		}
	}
	return total
}

// Correct returns the confusion matrix diagonal sum.
func (r *Result) Correct() int {
	correct := 0
	for i := range r.Confusion {
		correct += r.Confusion[i][i]
	}
	return correct
}

// Evaluate compares predicted raw labels against ground truth. The two
// slices must be equal length and index-aligned. Labels on either side are
// resolved through the class mapping; an unmapped label aborts with an
// *dataset.UnknownClassLabelError.
func Evaluate(predicted, truth []int, m physics.Mapping) (*Result, error) {
	if len(predicted) != len(truth) {
		return nil, fmt.Errorf("prediction count %d does not match truth count %d", len(predicted), len(truth))
	}

	result := &Result{
		PerClass: make(map[physics.ClassKey]ClassAccuracy, physics.NumClasses),
	}

	for i := range truth {
		trueClass, ok := m.Class(truth[i])
		if !ok {
			return nil, &dataset.UnknownClassLabelError{Label: truth[i]}
		}
		predClass, ok := m.Class(predicted[i])
		if !ok {
			return nil, &dataset.UnknownClassLabelError{Label: predicted[i]}
		}
		result.Confusion[trueClass][predClass]++
	}

	if n := len(truth); n > 0 {
		result.Accuracy = float64(result.Correct()) / float64(n)
	}

	for _, ck := range physics.Classes() {
		total := 0
		for j := range result.Confusion[ck] {
			total += result.Confusion[ck][j]
		}
		ca := ClassAccuracy{
			Correct: result.Confusion[ck][ck],
			Total:   total,
		}
		if total > 0 {
			ca.Value = float64(ca.Correct) / float64(total)
			ca.Defined = true
		}
		result.PerClass[ck] = ca
	}

	return result, nil
}
