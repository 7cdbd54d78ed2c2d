// Package validator statically checks policies against a schema. It
// reports typed issues: errors for provable inconsistencies, warnings
// for policies that can never apply. It never reads live entity data.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/authz-engine/policy-core/internal/schema"
)

// ctype is the checker's type vocabulary. It is richer than the schema
// vocabulary: singleton booleans make short-circuit reasoning precise,
// never is the empty set's element type, and entity types carry the set
// of possible declared types.
type ctype interface {
	isCType()
}

type cNever struct{}
type cTrue struct{}
type cFalse struct{}
type cBool struct{}
type cLong struct{}
type cString struct{}

type cSet struct {
	element ctype
}

type cattr struct {
	typ      ctype
	required bool
}

type cRecord struct {
	attrs map[string]cattr
}

// cEntity is an entity whose declared type is one of names (sorted,
// unique).
type cEntity struct {
	names []string
}

type cExtension struct {
	name string
}

func (cNever) isCType()     {}
func (cTrue) isCType()      {}
func (cFalse) isCType()     {}
func (cBool) isCType()      {}
func (cLong) isCType()      {}
func (cString) isCType()    {}
func (cSet) isCType()       {}
func (cRecord) isCType()    {}
func (cEntity) isCType()    {}
func (cExtension) isCType() {}

func entityOf(names ...string) cEntity {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	out := sorted[:0]
	var prev string
	for i, n := range sorted {
		if i > 0 && n == prev {
			continue
		}
		out = append(out, n)
		prev = n
	}
	return cEntity{names: out}
}

func isBoolish(t ctype) bool {
	switch t.(type) {
	case cBool, cTrue, cFalse:
		return true
	}
	return false
}

func isEntity(t ctype) bool {
	_, ok := t.(cEntity)
	return ok
}

// typeName renders a ctype for issue messages.
func typeName(t ctype) string {
	switch v := t.(type) {
	case cNever:
		return "never"
	case cTrue, cFalse, cBool:
		return "bool"
	case cLong:
		return "long"
	case cString:
		return "string"
	case cSet:
		return "set of " + typeName(v.element)
	case cRecord:
		return "record"
	case cEntity:
		if len(v.names) == 0 {
			return "entity"
		}
		quoted := make([]string, len(v.names))
		for i, n := range v.names {
			quoted[i] = "`" + n + "`"
		}
		return "entity " + strings.Join(quoted, " or ")
	case cExtension:
		return v.name
	default:
		return fmt.Sprintf("%T", t)
	}
}

// fromSchemaType converts a declared schema type to a checker type.
func fromSchemaType(t schema.Type) ctype {
	switch v := t.(type) {
	case schema.BoolType:
		return cBool{}
	case schema.LongType:
		return cLong{}
	case schema.StringType:
		return cString{}
	case schema.SetType:
		return cSet{element: fromSchemaType(v.Element)}
	case schema.RecordType:
		return fromRecordType(v)
	case schema.EntityRefType:
		return entityOf(v.Name)
	case schema.ExtensionType:
		return cExtension{name: v.Name}
	default:
		return cNever{}
	}
}

func fromRecordType(rec schema.RecordType) cRecord {
	attrs := make(map[string]cattr, len(rec.Attributes))
	for name, attr := range rec.Attributes {
		attrs[name] = cattr{typ: fromSchemaType(attr.Type), required: attr.Required}
	}
	return cRecord{attrs: attrs}
}

// lub computes the least upper bound of two types, or reports that none
// exists. Entity bounds union their type sets; records union attributes,
// demoting one-sided attributes to optional.
func lub(a, b ctype) (ctype, bool) {
	if _, ok := a.(cNever); ok {
		return b, true
	}
	if _, ok := b.(cNever); ok {
		return a, true
	}
	switch av := a.(type) {
	case cTrue:
		switch b.(type) {
		case cTrue:
			return cTrue{}, true
		case cFalse, cBool:
			return cBool{}, true
		}
	case cFalse:
		switch b.(type) {
		case cFalse:
			return cFalse{}, true
		case cTrue, cBool:
			return cBool{}, true
		}
	case cBool:
		if isBoolish(b) {
			return cBool{}, true
		}
	case cLong:
		if _, ok := b.(cLong); ok {
			return cLong{}, true
		}
	case cString:
		if _, ok := b.(cString); ok {
			return cString{}, true
		}
	case cSet:
		if bv, ok := b.(cSet); ok {
			el, ok := lub(av.element, bv.element)
			if !ok {
				return nil, false
			}
			return cSet{element: el}, true
		}
	case cRecord:
		if bv, ok := b.(cRecord); ok {
			return lubRecord(av, bv)
		}
	case cEntity:
		if bv, ok := b.(cEntity); ok {
			return entityOf(append(append([]string(nil), av.names...), bv.names...)...), true
		}
	case cExtension:
		if bv, ok := b.(cExtension); ok && av.name == bv.name {
			return av, true
		}
	}
	return nil, false
}

func lubRecord(a, b cRecord) (ctype, bool) {
	attrs := make(map[string]cattr)
	for name, aAttr := range a.attrs {
		bAttr, ok := b.attrs[name]
		if !ok {
			attrs[name] = cattr{typ: aAttr.typ, required: false}
			continue
		}
		t, ok := lub(aAttr.typ, bAttr.typ)
		if !ok {
			return nil, false
		}
		attrs[name] = cattr{typ: t, required: aAttr.required && bAttr.required}
	}
	for name, bAttr := range b.attrs {
		if _, ok := a.attrs[name]; !ok {
			attrs[name] = cattr{typ: bAttr.typ, required: false}
		}
	}
	return cRecord{attrs: attrs}, true
}

// satisfies reports whether a value of type a can serve where b is
// expected, used for extension signatures.
func satisfies(a, b ctype) bool {
	if _, ok := a.(cNever); ok {
		return true
	}
	switch bv := b.(type) {
	case cBool:
		return isBoolish(a)
	case cLong:
		_, ok := a.(cLong)
		return ok
	case cString:
		_, ok := a.(cString)
		return ok
	case cSet:
		av, ok := a.(cSet)
		return ok && satisfies(av.element, bv.element)
	case cExtension:
		av, ok := a.(cExtension)
		return ok && av.name == bv.name
	default:
		_, ok := lub(a, b)
		return ok
	}
}
