package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDataFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadFilesConcatenates(t *testing.T) {
	dir := t.TempDir()
	f1 := writeDataFile(t, dir, "a.txt", "1 1:1.0\n2 2:2.0\n3 3:3.0\n")
	f2 := writeDataFile(t, dir, "b.txt", "4 4:4.0\n1 5:5.0\n2 6:6.0\n3 1:7.0\n4 2:8.0\n")

	ds, err := ReadFiles([]string{f1, f2}, 6)
	require.NoError(t, err)
	assert.Equal(t, 8, ds.Len())
	assert.Equal(t, 6, ds.Dim())

	rows, cols := ds.Matrix().Dims()
	assert.Equal(t, 8, rows)
	assert.Equal(t, 6, cols)

	// Append order: file order, then line order.
	assert.Equal(t, []int{1, 2, 3, 4, 1, 2, 3, 4}, ds.Labels())
	assert.Equal(t, []float64{1, 0, 0, 0, 0, 0}, ds.Row(0))
	assert.Equal(t, []float64{0, 0, 0, 4, 0, 0}, ds.Row(3))
}

func TestReadFilesOrderSwapPreservesContent(t *testing.T) {
	dir := t.TempDir()
	f1 := writeDataFile(t, dir, "a.txt", "1 1:1.0\n2 2:2.0\n")
	f2 := writeDataFile(t, dir, "b.txt", "3 3:3.0\n")

	forward, err := ReadFiles([]string{f1, f2}, 4)
	require.NoError(t, err)
	backward, err := ReadFiles([]string{f2, f1}, 4)
	require.NoError(t, err)

	assert.Equal(t, forward.Len(), backward.Len())
	assert.ElementsMatch(t, forward.Labels(), backward.Labels())
}

func TestReadFilesSkipsCommentsAndBlanks(t *testing.T) {
	dir := t.TempDir()
	f := writeDataFile(t, dir, "a.txt", "# header\n\n1 1:1.0\n   \n2 2:2.0\n")

	ds, err := ReadFiles([]string{f}, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
}

func TestReadFilesUnreadable(t *testing.T) {
	_, err := ReadFiles([]string{filepath.Join(t.TempDir(), "missing.txt")}, 6)
	require.Error(t, err)
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Contains(t, ioErr.Path, "missing.txt")
}

func TestReadFilesAnnotatesMalformedLine(t *testing.T) {
	dir := t.TempDir()
	f := writeDataFile(t, dir, "bad.txt", "1 1:1.0\n2 9:1.0\n")

	_, err := ReadFiles([]string{f}, 6)
	require.Error(t, err)
	var mre *MalformedRecordError
	require.ErrorAs(t, err, &mre)
	assert.Equal(t, f, mre.Path)
	assert.Equal(t, 2, mre.Line)
}

func TestDatasetAppendDimensionGuard(t *testing.T) {
	ds := New(3)
	err := ds.Append([]float64{1, 2}, 1)
	require.Error(t, err)
	var dme *DimensionMismatchError
	require.ErrorAs(t, err, &dme)
	assert.Equal(t, 3, dme.Want)
	assert.Equal(t, 2, dme.Got)
}

func TestEmptyDatasetMatrix(t *testing.T) {
	ds := New(6)
	assert.Nil(t, ds.Matrix())
	assert.Equal(t, 0, ds.Len())
}
