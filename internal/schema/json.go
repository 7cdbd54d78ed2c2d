package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/authz-engine/policy-core/pkg/types"
)

// The JSON schema format: one object per namespace, each declaring
// commonTypes, entityTypes, and actions. Attribute objects are type
// objects plus an optional "required" flag (default true).

type jsonSchema map[string]jsonNamespace

type jsonNamespace struct {
	CommonTypes map[string]jsonType       `json:"commonTypes"`
	EntityTypes map[string]jsonEntityType `json:"entityTypes"`
	Actions     map[string]jsonAction     `json:"actions"`
}

type jsonType struct {
	Type       string                   `json:"type"`
	Element    *jsonType                `json:"element"`
	Attributes map[string]jsonAttribute `json:"attributes"`
	Name       string                   `json:"name"`
}

type jsonAttribute struct {
	jsonType
	Required *bool `json:"required"`
}

type jsonEntityType struct {
	MemberOfTypes []string  `json:"memberOfTypes"`
	Shape         *jsonType `json:"shape"`
}

type jsonAction struct {
	MemberOf  []jsonActionRef `json:"memberOf"`
	AppliesTo *jsonAppliesTo  `json:"appliesTo"`
}

type jsonActionRef struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type jsonAppliesTo struct {
	PrincipalTypes []string  `json:"principalTypes"`
	ResourceTypes  []string  `json:"resourceTypes"`
	Context        *jsonType `json:"context"`
}

// ParseJSON decodes and resolves a schema. Resolution expands common
// types, qualifies every name with its namespace, and checks that every
// referenced entity type and action is declared.
func ParseJSON(data []byte) (*Schema, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var raw jsonSchema
	if err := dec.Decode(&raw); err != nil {
		return nil, parseErr(data, err)
	}

	s := &Schema{
		EntityTypes: make(map[string]*EntityType),
		Actions:     make(map[types.EntityUID]*Action),
	}
	for nsName, ns := range raw {
		if err := resolveNamespace(s, nsName, ns); err != nil {
			return nil, err
		}
	}
	if err := checkReferences(s); err != nil {
		return nil, err
	}
	return s, nil
}

func parseErr(data []byte, err error) error {
	var syn *json.SyntaxError
	if errors.As(err, &syn) {
		line, col := lineAndColumn(data, syn.Offset)
		return fmt.Errorf("failed to parse schema: %s at line %d column %d", syn.Error(), line, col)
	}
	var typ *json.UnmarshalTypeError
	if errors.As(err, &typ) {
		line, col := lineAndColumn(data, typ.Offset)
		return fmt.Errorf("failed to parse schema: %s at line %d column %d", typ.Error(), line, col)
	}
	return fmt.Errorf("failed to parse schema: %w", err)
}

func lineAndColumn(data []byte, offset int64) (line, col int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	prefix := data[:offset]
	line = 1 + bytes.Count(prefix, []byte{'\n'})
	col = int(offset) - bytes.LastIndexByte(prefix, '\n')
	return line, col
}

func qualify(namespace, name string) string {
	if namespace == "" || strings.Contains(name, "::") {
		return name
	}
	return namespace + "::" + name
}

// nsResolver expands one namespace's common types with memoization and
// cycle detection.
type nsResolver struct {
	namespace string
	common    map[string]jsonType
	resolved  map[string]Type
	visiting  map[string]bool
}

func resolveNamespace(s *Schema, nsName string, ns jsonNamespace) error {
	r := &nsResolver{
		namespace: nsName,
		common:    ns.CommonTypes,
		resolved:  make(map[string]Type),
		visiting:  make(map[string]bool),
	}

	for name, et := range ns.EntityTypes {
		shape := RecordType{Attributes: map[string]Attribute{}}
		if et.Shape != nil {
			t, err := r.resolveType(et.Shape)
			if err != nil {
				return fmt.Errorf("entity type `%s`: %w", qualify(nsName, name), err)
			}
			rec, ok := t.(RecordType)
			if !ok {
				return fmt.Errorf("entity type `%s`: shape is not a record", qualify(nsName, name))
			}
			shape = rec
		}
		members := make([]string, len(et.MemberOfTypes))
		for i, m := range et.MemberOfTypes {
			members[i] = qualify(nsName, m)
		}
		qualified := qualify(nsName, name)
		s.EntityTypes[qualified] = &EntityType{
			Name:          qualified,
			MemberOfTypes: members,
			Shape:         shape,
		}
	}

	actionType := qualify(nsName, "Action")
	for name, a := range ns.Actions {
		action := &Action{UID: types.NewEntityUID(actionType, name)}
		for _, ref := range a.MemberOf {
			refType := ref.Type
			if refType == "" {
				refType = actionType
			}
			action.MemberOf = append(action.MemberOf, types.NewEntityUID(qualify(nsName, refType), ref.ID))
		}
		if a.AppliesTo != nil {
			for _, pt := range a.AppliesTo.PrincipalTypes {
				action.PrincipalTypes = append(action.PrincipalTypes, qualify(nsName, pt))
			}
			for _, rt := range a.AppliesTo.ResourceTypes {
				action.ResourceTypes = append(action.ResourceTypes, qualify(nsName, rt))
			}
			action.Context = RecordType{Attributes: map[string]Attribute{}}
			if a.AppliesTo.Context != nil {
				t, err := r.resolveType(a.AppliesTo.Context)
				if err != nil {
					return fmt.Errorf("action `%s`: %w", name, err)
				}
				rec, ok := t.(RecordType)
				if !ok {
					return fmt.Errorf("action `%s`: context is not a record", name)
				}
				action.Context = rec
			}
		} else {
			action.Context = RecordType{Attributes: map[string]Attribute{}}
		}
		s.Actions[action.UID] = action
	}
	return nil
}

func (r *nsResolver) resolveType(jt *jsonType) (Type, error) {
	switch jt.Type {
	case "Boolean", "Bool":
		return BoolType{}, nil
	case "Long":
		return LongType{}, nil
	case "String":
		return StringType{}, nil
	case "Set":
		if jt.Element == nil {
			return nil, fmt.Errorf("set type is missing `element`")
		}
		el, err := r.resolveType(jt.Element)
		if err != nil {
			return nil, err
		}
		return SetType{Element: el}, nil
	case "Record":
		attrs := make(map[string]Attribute, len(jt.Attributes))
		for name, attr := range jt.Attributes {
			t, err := r.resolveType(&attr.jsonType)
			if err != nil {
				return nil, fmt.Errorf("attribute `%s`: %w", name, err)
			}
			required := attr.Required == nil || *attr.Required
			attrs[name] = Attribute{Type: t, Required: required}
		}
		return RecordType{Attributes: attrs}, nil
	case "Entity":
		if jt.Name == "" {
			return nil, fmt.Errorf("entity type reference is missing `name`")
		}
		return EntityRefType{Name: qualify(r.namespace, jt.Name)}, nil
	case "Extension":
		if jt.Name == "" {
			return nil, fmt.Errorf("extension type reference is missing `name`")
		}
		return ExtensionType{Name: jt.Name}, nil
	case "":
		return nil, fmt.Errorf("type object is missing `type`")
	default:
		return r.commonType(jt.Type)
	}
}

func (r *nsResolver) commonType(name string) (Type, error) {
	if t, ok := r.resolved[name]; ok {
		return t, nil
	}
	if r.visiting[name] {
		return nil, fmt.Errorf("cycle in common type definitions involving `%s`", name)
	}
	raw, ok := r.common[name]
	if !ok {
		return nil, fmt.Errorf("undeclared common type `%s`", name)
	}
	r.visiting[name] = true
	t, err := r.resolveType(&raw)
	delete(r.visiting, name)
	if err != nil {
		return nil, err
	}
	r.resolved[name] = t
	return t, nil
}

// checkReferences verifies that every entity type and action named
// anywhere in the schema is declared.
func checkReferences(s *Schema) error {
	for name, et := range s.EntityTypes {
		for _, parent := range et.MemberOfTypes {
			if _, ok := s.EntityTypes[parent]; !ok {
				return fmt.Errorf("entity type `%s` is a member of undeclared entity type `%s`", name, parent)
			}
		}
		for _, ref := range entityRefs(et.Shape, nil) {
			if _, ok := s.EntityTypes[ref]; !ok {
				return fmt.Errorf("shape of entity type `%s` references undeclared entity type `%s`", name, ref)
			}
		}
	}
	for uid, action := range s.Actions {
		for _, parent := range action.MemberOf {
			if _, ok := s.Actions[parent]; !ok {
				return fmt.Errorf("action `%s` is a member of undeclared action `%s`", uid.ID, parent)
			}
		}
		for _, pt := range action.PrincipalTypes {
			if _, ok := s.EntityTypes[pt]; !ok {
				return fmt.Errorf("action `%s` applies to undeclared principal type `%s`", uid.ID, pt)
			}
		}
		for _, rt := range action.ResourceTypes {
			if _, ok := s.EntityTypes[rt]; !ok {
				return fmt.Errorf("action `%s` applies to undeclared resource type `%s`", uid.ID, rt)
			}
		}
		for _, ref := range entityRefs(action.Context, nil) {
			if _, ok := s.EntityTypes[ref]; !ok {
				return fmt.Errorf("context of action `%s` references undeclared entity type `%s`", uid.ID, ref)
			}
		}
	}
	return nil
}
