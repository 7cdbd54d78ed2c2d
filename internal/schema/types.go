// Package schema models declared entity types, actions, and their
// attribute shapes. A Schema is consumed by the validator only; decisions
// never read it.
package schema

// Type is the declared type of an attribute or context value.
type Type interface {
	isType()
}

// BoolType is the boolean primitive.
type BoolType struct{}

// LongType is the 64-bit integer primitive.
type LongType struct{}

// StringType is the string primitive.
type StringType struct{}

// SetType is a homogeneous set.
type SetType struct {
	Element Type
}

// RecordType is a closed record of named attributes.
type RecordType struct {
	Attributes map[string]Attribute
}

// EntityRefType is a reference to a declared entity type, fully
// qualified.
type EntityRefType struct {
	Name string
}

// ExtensionType names an extension type such as ipaddr or decimal.
type ExtensionType struct {
	Name string
}

// Attribute is one attribute of a record shape. Attributes are required
// unless declared otherwise.
type Attribute struct {
	Type     Type
	Required bool
}

func (BoolType) isType()      {}
func (LongType) isType()      {}
func (StringType) isType()    {}
func (SetType) isType()       {}
func (RecordType) isType()    {}
func (EntityRefType) isType() {}
func (ExtensionType) isType() {}

// entityRefs collects every entity type name referenced by t, for
// declaration checking.
func entityRefs(t Type, out []string) []string {
	switch v := t.(type) {
	case EntityRefType:
		return append(out, v.Name)
	case SetType:
		return entityRefs(v.Element, out)
	case RecordType:
		for _, attr := range v.Attributes {
			out = entityRefs(attr.Type, out)
		}
		return out
	default:
		return out
	}
}
