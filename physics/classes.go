package physics

import (
	"fmt"
	"sort"
)

// ClassKey identifies one of the four particle classes reported by the
// harness. The ordering of the constants fixes the row/column ordering of
// every confusion matrix and per-class breakdown.
type ClassKey int

const (
	ClassA1 ClassKey = iota
	ClassAc
	ClassAh
	ClassAf
)

func (ck ClassKey) String() string {
	switch ck {
	case ClassA1:
		return "A1"
	case ClassAc:
		return "Ac"
	case ClassAh:
		return "Ah"
	case ClassAf:
		return "Af"
	default:
		return fmt.Sprintf("Unknown(%d)", int(ck))
	}
}

// NumClasses is the size of the class alphabet.
const NumClasses = 4

// Classes returns every ClassKey in report order.
func Classes() []ClassKey {
	return []ClassKey{ClassA1, ClassAc, ClassAh, ClassAf}
}

// classByName maps the spelling used in mapping files back to a ClassKey.
var classByName = map[string]ClassKey{
	"A1": ClassA1,
	"Ac": ClassAc,
	"Ah": ClassAh,
	"Af": ClassAf,
}

// ClassByName resolves a class name as it appears in a mapping file.
func ClassByName(name string) (ClassKey, bool) {
	ck, ok := classByName[name]
	return ck, ok
}

// Mapping is the injected table translating raw numeric labels from the
// sparse data files into report classes. The table is configuration: it is
// supplied by the caller (or loaded from a mapping file), never inferred
// from the data.
type Mapping struct {
	classes map[int]ClassKey
}

// NewMapping builds a Mapping from an explicit label table.
func NewMapping(classes map[int]ClassKey) Mapping {
	m := Mapping{classes: make(map[int]ClassKey, len(classes))}
	for label, ck := range classes {
		m.classes[label] = ck
	}
	return m
}

// DefaultMapping returns the standard four-label table used by the CLAS12
// feature exports: labels 1..4 in class order.
func DefaultMapping() Mapping {
	return NewMapping(map[int]ClassKey{
		1: ClassA1,
		2: ClassAc,
		3: ClassAh,
		4: ClassAf,
	})
}

// Class resolves a raw label. The second return is false when the label is
// outside the table.
func (m Mapping) Class(label int) (ClassKey, bool) {
	ck, ok := m.classes[label]
	return ck, ok
}

// Labels returns the raw labels known to the table, sorted ascending so
// callers that enumerate the label alphabet are deterministic.
func (m Mapping) Labels() []int {
	labels := make([]int, 0, len(m.classes))
	for label := range m.classes {
		labels = append(labels, label)
	}
	sort.Ints(labels)
	return labels
}

// LabelFor returns the smallest raw label mapped to the given class. The
// second return is false when no label maps to it.
func (m Mapping) LabelFor(ck ClassKey) (int, bool) {
	found := false
	best := 0
	for _, label := range m.Labels() {
		if m.classes[label] == ck {
			if !found || label < best {
				best = label
				found = true
			}
		}
	}
	return best, found
}

// Len returns the number of raw labels in the table.
func (m Mapping) Len() int {
	return len(m.classes)
}

// Table returns a copy of the underlying label table.
func (m Mapping) Table() map[int]ClassKey {
	out := make(map[int]ClassKey, len(m.classes))
	for label, ck := range m.classes {
		out[label] = ck
	}
	return out
}
