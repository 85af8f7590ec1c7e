package physics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassKeyString(t *testing.T) {
	tests := []struct {
		class    ClassKey
		expected string
	}{
		{ClassA1, "A1"},
		{ClassAc, "Ac"},
		{ClassAh, "Ah"},
		{ClassAf, "Af"},
		{ClassKey(99), "Unknown(99)"},
	}
	for _, test := range tests {
		assert.Equal(t, test.expected, test.class.String())
	}
}

func TestClassesOrdering(t *testing.T) {
	assert.Equal(t, []ClassKey{ClassA1, ClassAc, ClassAh, ClassAf}, Classes())
	assert.Equal(t, NumClasses, len(Classes()))
}

func TestDefaultMapping(t *testing.T) {
	m := DefaultMapping()
	assert.Equal(t, 4, m.Len())
	assert.Equal(t, []int{1, 2, 3, 4}, m.Labels())

	ck, ok := m.Class(2)
	require.True(t, ok)
	assert.Equal(t, ClassAc, ck)

	_, ok = m.Class(7)
	assert.False(t, ok)
}

func TestLabelFor(t *testing.T) {
	m := NewMapping(map[int]ClassKey{
		5: ClassA1,
		2: ClassA1,
		9: ClassAh,
	})

	label, ok := m.LabelFor(ClassA1)
	require.True(t, ok)
	assert.Equal(t, 2, label, "smallest label mapped to the class wins")

	_, ok = m.LabelFor(ClassAf)
	assert.False(t, ok)
}

func TestLoadMapping(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "classes.yaml")
	content := "classes:\n  10: A1\n  20: Ac\n  30: Ah\n  40: Af\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	m, err := LoadMapping(path)
	require.NoError(t, err)
	assert.Equal(t, []int{10, 20, 30, 40}, m.Labels())

	ck, ok := m.Class(30)
	require.True(t, ok)
	assert.Equal(t, ClassAh, ck)
}

func TestLoadMappingRejectsUnknownClass(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "classes.yaml")
	require.NoError(t, os.WriteFile(path, []byte("classes:\n  1: Zz\n"), 0o644))

	_, err := LoadMapping(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown class")
}

func TestLoadMappingMissingFile(t *testing.T) {
	_, err := LoadMapping(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadMappingEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "classes.yaml")
	require.NoError(t, os.WriteFile(path, []byte("classes: {}\n"), 0o644))

	_, err := LoadMapping(path)
	require.Error(t, err)
}
