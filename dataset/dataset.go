package dataset

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Dataset is an in-memory features matrix plus an index-aligned label
// vector: record i's features are row i and its label is Label(i). Storage
// is row-major so a gonum matrix view costs nothing.
type Dataset struct {
	features []float64
	labels   []int
	dim      int
}

// New creates an empty dataset with the given fixed dimensionality.
func New(dim int) *Dataset {
	return &Dataset{dim: dim}
}

// Len returns the number of records.
func (ds *Dataset) Len() int {
	return len(ds.labels)
}

// Dim returns the feature-vector length shared by every record.
func (ds *Dataset) Dim() int {
	return ds.dim
}

// Append adds one record. The vector length must equal Dim.
func (ds *Dataset) Append(features []float64, label int) error {
	if len(features) != ds.dim {
		return &DimensionMismatchError{Want: ds.dim, Got: len(features)}
	}
	ds.features = append(ds.features, features...)
	ds.labels = append(ds.labels, label)
	return nil
}

// Row returns the feature vector of record i as a view into the underlying
// storage. Callers must not mutate it.
func (ds *Dataset) Row(i int) []float64 {
	return ds.features[i*ds.dim : (i+1)*ds.dim]
}

// Label returns the raw label of record i.
func (ds *Dataset) Label(i int) int {
	return ds.labels[i]
}

// Labels returns the label vector as a view. Callers must not mutate it.
func (ds *Dataset) Labels() []int {
	return ds.labels
}

// Matrix returns the features as a gonum dense matrix view (Len x Dim)
// sharing storage with the dataset.
func (ds *Dataset) Matrix() *mat.Dense {
	if ds.Len() == 0 {
		return nil
	}
	return mat.NewDense(ds.Len(), ds.dim, ds.features)
}

// String summarizes the dataset shape.
func (ds *Dataset) String() string {
	return fmt.Sprintf("Dataset(%d x %d)", ds.Len(), ds.dim)
}
