package dataset

import (
	"fmt"
	"math/rand"
)

// Batch is one contiguous slice of records handed to a model backend.
// Indices refer to records in the source dataset; Rows and Labels are
// index-aligned views over those records.
type Batch struct {
	Indices []int
	Rows    [][]float64
	Labels  []int
}

// Batches iterates a dataset in mini-batches. With shuffling disabled the
// iteration order is the dataset order, which is what Test and Predict rely
// on to keep outputs index-aligned with inputs; training loops enable
// shuffling with their own seeded source.
type Batches struct {
	ds        *Dataset
	batchSize int
	shuffle   bool
	rng       *rand.Rand
	indices   []int
	position  int
}

// NewBatches creates a batch iterator over ds. rng may be nil when shuffle
// is false.
func NewBatches(ds *Dataset, batchSize int, shuffle bool, rng *rand.Rand) (*Batches, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	if shuffle && rng == nil {
		return nil, fmt.Errorf("shuffling requires a random source")
	}

	indices := make([]int, ds.Len())
	for i := range indices {
		indices[i] = i
	}

	b := &Batches{
		ds:        ds,
		batchSize: batchSize,
		shuffle:   shuffle,
		rng:       rng,
		indices:   indices,
	}
	b.Reset()
	return b, nil
}

// Len returns the number of batches in one pass.
func (b *Batches) Len() int {
	return (b.ds.Len() + b.batchSize - 1) / b.batchSize
}

// Reset rewinds the iterator for a new pass, reshuffling when enabled.
func (b *Batches) Reset() {
	b.position = 0
	if b.shuffle {
		b.rng.Shuffle(len(b.indices), func(i, j int) {
			b.indices[i], b.indices[j] = b.indices[j], b.indices[i]
		})
	}
}

// HasNext reports whether the current pass has more batches.
func (b *Batches) HasNext() bool {
	return b.position < len(b.indices)
}

// Next returns the next batch, or nil when the pass is complete.
func (b *Batches) Next() *Batch {
	if !b.HasNext() {
		return nil
	}

	end := b.position + b.batchSize
	if end > len(b.indices) {
		end = len(b.indices)
	}
	indices := b.indices[b.position:end]
	b.position = end

	batch := &Batch{
		Indices: indices,
		Rows:    make([][]float64, len(indices)),
		Labels:  make([]int, len(indices)),
	}
	for k, idx := range indices {
		batch.Rows[k] = b.ds.Row(idx)
		batch.Labels[k] = b.ds.Label(idx)
	}
	return batch
}
