package types

import "strings"

// Set is an immutable, unordered collection of Values deduplicated by
// structural equality.
type Set struct {
	elements []Value
}

// NewSet builds a Set from the given elements, dropping duplicates. The
// input slice is not retained.
func NewSet(elements ...Value) Set {
	deduped := make([]Value, 0, len(elements))
	for _, candidate := range elements {
		exists := false
		for _, have := range deduped {
			if have.Equal(candidate) {
				exists = true
				break
			}
		}
		if !exists {
			deduped = append(deduped, candidate)
		}
	}
	return Set{elements: deduped}
}

func (s Set) TypeName() string { return "set" }

// Len returns the number of distinct elements.
func (s Set) Len() int { return len(s.elements) }

// Contains reports whether v is an element of the set.
func (s Set) Contains(v Value) bool {
	for _, e := range s.elements {
		if e.Equal(v) {
			return true
		}
	}
	return false
}

// Slice returns a copy of the elements in insertion order. Callers may
// mutate the returned slice freely.
func (s Set) Slice() []Value {
	out := make([]Value, len(s.elements))
	copy(out, s.elements)
	return out
}

// Equal reports set equality: same cardinality and mutual containment,
// independent of insertion order.
func (s Set) Equal(other Value) bool {
	o, ok := other.(Set)
	if !ok || len(s.elements) != len(o.elements) {
		return false
	}
	for _, e := range s.elements {
		if !o.Contains(e) {
			return false
		}
	}
	return true
}

func (s Set) MarshalCedar() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, e := range s.elements {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(e.MarshalCedar())
	}
	b.WriteByte(']')
	return b.String()
}

func (s Set) isValue() {}
