package dataset

import (
	"github.com/crtc-jlab/mlcli/physics"
)

// Segmented maps each report class to the subset of a dataset carrying that
// class. It exists for per-class breakdown metrics only; the segments
// together hold every record of the source exactly once.
type Segmented map[physics.ClassKey]*Dataset

// Segment partitions ds by class. Every class in the mapping gets a segment
// (possibly empty). A label outside the mapping aborts the whole
// segmentation with an *UnknownClassLabelError: dropping the record instead
// would silently skew every per-class accuracy computed from the result.
func Segment(ds *Dataset, m physics.Mapping) (Segmented, error) {
	seg := make(Segmented, physics.NumClasses)
	for _, ck := range physics.Classes() {
		seg[ck] = New(ds.Dim())
	}

	for i := 0; i < ds.Len(); i++ {
		label := ds.Label(i)
		ck, ok := m.Class(label)
		if !ok {
			return nil, &UnknownClassLabelError{Label: label}
		}
		if err := seg[ck].Append(ds.Row(i), label); err != nil {
			return nil, err
		}
	}
	return seg, nil
}

// Counts returns the per-class record counts in report order.
func (s Segmented) Counts() map[physics.ClassKey]int {
	counts := make(map[physics.ClassKey]int, len(s))
	for ck, ds := range s {
		counts[ck] = ds.Len()
	}
	return counts
}

// Total returns the summed size of all segments.
func (s Segmented) Total() int {
	total := 0
	for _, ds := range s {
		total += ds.Len()
	}
	return total
}
