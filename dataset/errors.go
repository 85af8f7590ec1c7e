package dataset

import "fmt"

// MalformedRecordError reports a sparse record line that cannot be parsed.
type MalformedRecordError struct {
	Path   string // empty when the line did not come from a file
	Line   int    // 1-based, 0 when unknown
	Reason string
}

func (e *MalformedRecordError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("malformed record at %s:%d: %s", e.Path, e.Line, e.Reason)
	}
	return fmt.Sprintf("malformed record: %s", e.Reason)
}

// IOError reports a data file that could not be read.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to read dataset file %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// DimensionMismatchError reports a record whose effective feature count
// disagrees with the configured dimensionality.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("record has %d features, dataset dimensionality is %d", e.Got, e.Want)
}

// UnknownClassLabelError reports a raw label with no entry in the class
// mapping. Segmentation aborts on it rather than dropping records, since a
// silently dropped record would corrupt every per-class count downstream.
type UnknownClassLabelError struct {
	Label int
}

func (e *UnknownClassLabelError) Error() string {
	return fmt.Sprintf("label %d has no entry in the class mapping", e.Label)
}
