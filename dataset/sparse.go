package dataset

import (
	"fmt"
	"strconv"
	"strings"
)

// The sparse record format is one sample per line:
//
//	<label> <idx>:<val> <idx>:<val> ...
//
// Indices are 1-based; any index not listed is implicitly 0.0.

// IsSkippable reports whether a line carries no record: blank lines and
// comment lines starting with '#' are skipped by the reader, they are not
// parse errors.
func IsSkippable(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed == "" || strings.HasPrefix(trimmed, "#")
}

// ParseRecord parses one sparse record line into a dense feature vector of
// length dim plus its raw label. It returns a *MalformedRecordError when the
// label, an index, or a value is not numeric, when an index:value pair is
// malformed, or when an index falls outside [1, dim].
func ParseRecord(line string, dim int) ([]float64, int, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, 0, &MalformedRecordError{Reason: "empty record"}
	}

	label, err := parseLabel(fields[0])
	if err != nil {
		return nil, 0, &MalformedRecordError{Reason: fmt.Sprintf("bad label %q", fields[0])}
	}

	features := make([]float64, dim)
	for _, field := range fields[1:] {
		sep := strings.IndexByte(field, ':')
		if sep < 0 {
			return nil, 0, &MalformedRecordError{Reason: fmt.Sprintf("feature %q is not in index:value form", field)}
		}

		idx, err := strconv.Atoi(field[:sep])
		if err != nil {
			return nil, 0, &MalformedRecordError{Reason: fmt.Sprintf("bad feature index %q", field[:sep])}
		}
		if idx < 1 || idx > dim {
			return nil, 0, &MalformedRecordError{Reason: fmt.Sprintf("feature index %d outside [1, %d]", idx, dim)}
		}

		val, err := strconv.ParseFloat(field[sep+1:], 64)
		if err != nil {
			return nil, 0, &MalformedRecordError{Reason: fmt.Sprintf("bad feature value %q", field[sep+1:])}
		}

		features[idx-1] = val
	}

	return features, label, nil
}

// parseLabel accepts both integer labels and the float spelling some
// exporters emit ("1.0" means label 1).
func parseLabel(s string) (int, error) {
	if label, err := strconv.Atoi(s); err == nil {
		return label, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	label := int(f)
	if float64(label) != f {
		return 0, fmt.Errorf("label %q is not integral", s)
	}
	return label, nil
}
