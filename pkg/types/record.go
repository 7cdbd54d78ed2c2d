package types

import (
	"sort"
	"strings"

	"golang.org/x/exp/maps"
)

// Record is an immutable mapping of attribute names to Values.
type Record struct {
	attrs map[string]Value
}

// NewRecord builds a Record from the given attributes. The input map is
// copied, not retained.
func NewRecord(attrs map[string]Value) Record {
	copied := make(map[string]Value, len(attrs))
	for k, v := range attrs {
		copied[k] = v
	}
	return Record{attrs: copied}
}

// EmptyRecord returns a Record with no attributes.
func EmptyRecord() Record {
	return Record{attrs: map[string]Value{}}
}

func (r Record) TypeName() string { return "record" }

// Len returns the number of attributes.
func (r Record) Len() int { return len(r.attrs) }

// Get returns the named attribute and whether it exists.
func (r Record) Get(name string) (Value, bool) {
	v, ok := r.attrs[name]
	return v, ok
}

// Has reports whether the named attribute exists.
func (r Record) Has(name string) bool {
	_, ok := r.attrs[name]
	return ok
}

// Keys returns the attribute names in lexicographic order.
func (r Record) Keys() []string {
	keys := maps.Keys(r.attrs)
	sort.Strings(keys)
	return keys
}

// Equal reports record equality: same keys, structurally equal values.
func (r Record) Equal(other Value) bool {
	o, ok := other.(Record)
	if !ok || len(r.attrs) != len(o.attrs) {
		return false
	}
	for k, v := range r.attrs {
		ov, exists := o.attrs[k]
		if !exists || !v.Equal(ov) {
			return false
		}
	}
	return true
}

func (r Record) MarshalCedar() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range r.Keys() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(QuoteString(k))
		b.WriteString(": ")
		b.WriteString(r.attrs[k].MarshalCedar())
	}
	b.WriteByte('}')
	return b.String()
}

func (r Record) isValue() {}
