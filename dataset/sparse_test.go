package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecord(t *testing.T) {
	features, label, err := ParseRecord("1 3:0.5 6:2.0", 6)
	require.NoError(t, err)
	assert.Equal(t, 1, label)
	assert.Equal(t, []float64{0, 0, 0.5, 0, 0, 2.0}, features)
}

func TestParseRecordLabelOnly(t *testing.T) {
	features, label, err := ParseRecord("4", 3)
	require.NoError(t, err)
	assert.Equal(t, 4, label)
	assert.Equal(t, []float64{0, 0, 0}, features)
}

func TestParseRecordFloatLabel(t *testing.T) {
	_, label, err := ParseRecord("2.0 1:1.5", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, label)
}

func TestParseRecordDeterministic(t *testing.T) {
	line := "3 1:0.25 4:-1.5 36:9"
	first, label1, err := ParseRecord(line, 36)
	require.NoError(t, err)
	second, label2, err := ParseRecord(line, 36)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, label1, label2)
}

func TestParseRecordMalformed(t *testing.T) {
	tests := []struct {
		name string
		line string
		dim  int
	}{
		{"empty line", "", 6},
		{"bad label", "abc 1:0.5", 6},
		{"fractional label", "1.5 1:0.5", 6},
		{"missing colon", "1 3", 6},
		{"bad index", "1 x:0.5", 6},
		{"bad value", "1 3:abc", 6},
		{"index zero", "1 0:0.5", 6},
		{"index beyond dim", "1 7:0.5", 6},
		{"negative index", "1 -2:0.5", 6},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, _, err := ParseRecord(test.line, test.dim)
			require.Error(t, err)
			var mre *MalformedRecordError
			assert.ErrorAs(t, err, &mre)
		})
	}
}

func TestIsSkippable(t *testing.T) {
	assert.True(t, IsSkippable(""))
	assert.True(t, IsSkippable("   "))
	assert.True(t, IsSkippable("# comment"))
	assert.True(t, IsSkippable("  # indented comment"))
	assert.False(t, IsSkippable("1 1:0.5"))
}
