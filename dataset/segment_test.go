package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crtc-jlab/mlcli/physics"
)

func buildDataset(t *testing.T, dim int, labels []int) *Dataset {
	t.Helper()
	ds := New(dim)
	for i, label := range labels {
		row := make([]float64, dim)
		row[0] = float64(i)
		require.NoError(t, ds.Append(row, label))
	}
	return ds
}

func TestSegmentPartitions(t *testing.T) {
	ds := buildDataset(t, 3, []int{1, 2, 1, 3, 4, 1, 2})
	seg, err := Segment(ds, physics.DefaultMapping())
	require.NoError(t, err)

	assert.Equal(t, 3, seg[physics.ClassA1].Len())
	assert.Equal(t, 2, seg[physics.ClassAc].Len())
	assert.Equal(t, 1, seg[physics.ClassAh].Len())
	assert.Equal(t, 1, seg[physics.ClassAf].Len())
	assert.Equal(t, ds.Len(), seg.Total())
}

func TestSegmentNoLossNoDuplication(t *testing.T) {
	ds := buildDataset(t, 2, []int{1, 1, 2, 3, 4, 2})
	seg, err := Segment(ds, physics.DefaultMapping())
	require.NoError(t, err)

	// Row(0) carries the original record index, so recovering it from the
	// segments proves every record landed in exactly one segment.
	seen := make(map[int]bool)
	for _, part := range seg {
		for i := 0; i < part.Len(); i++ {
			id := int(part.Row(i)[0])
			assert.False(t, seen[id], "record %d appears twice", id)
			seen[id] = true
		}
	}
	assert.Equal(t, ds.Len(), len(seen))
}

func TestSegmentEmptyClassesPresent(t *testing.T) {
	ds := buildDataset(t, 2, []int{1, 1})
	seg, err := Segment(ds, physics.DefaultMapping())
	require.NoError(t, err)

	for _, ck := range physics.Classes() {
		require.NotNil(t, seg[ck])
	}
	assert.Equal(t, 0, seg[physics.ClassAf].Len())
}

func TestSegmentUnknownLabelAborts(t *testing.T) {
	ds := buildDataset(t, 2, []int{1, 9})
	_, err := Segment(ds, physics.DefaultMapping())
	require.Error(t, err)
	var ucl *UnknownClassLabelError
	require.ErrorAs(t, err, &ucl)
	assert.Equal(t, 9, ucl.Label)
}
