package schema

import (
	"github.com/authz-engine/policy-core/pkg/types"
)

// Schema is a resolved schema: all names fully qualified, all common
// types expanded. Immutable after construction.
type Schema struct {
	EntityTypes map[string]*EntityType
	Actions     map[types.EntityUID]*Action
}

// EntityType is one declared entity type.
type EntityType struct {
	Name          string
	MemberOfTypes []string
	Shape         RecordType
}

// Action is one declared action: the principal and resource types it
// applies to and the context shape requests must carry.
type Action struct {
	UID            types.EntityUID
	MemberOf       []types.EntityUID
	PrincipalTypes []string
	ResourceTypes  []string
	Context        RecordType
}

// EntityTypesIn returns every declared entity type whose members can sit
// below target in the hierarchy, including target itself. Computed as a
// fixed point over MemberOfTypes declarations.
func (s *Schema) EntityTypesIn(target string) []string {
	in := map[string]bool{target: true}
	out := []string{target}
	for changed := true; changed; {
		changed = false
		for name, et := range s.EntityTypes {
			if in[name] {
				continue
			}
			for _, parent := range et.MemberOfTypes {
				if in[parent] {
					in[name] = true
					out = append(out, name)
					changed = true
					break
				}
			}
		}
	}
	return out
}

// ActionInGroup reports whether uid is group or a transitive member of
// it, per the schema's memberOf declarations.
func (s *Schema) ActionInGroup(uid, group types.EntityUID) bool {
	if uid == group {
		return true
	}
	seen := map[types.EntityUID]bool{}
	stack := []types.EntityUID{uid}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		action, ok := s.Actions[cur]
		if !ok {
			continue
		}
		for _, parent := range action.MemberOf {
			if parent == group {
				return true
			}
			stack = append(stack, parent)
		}
	}
	return false
}
