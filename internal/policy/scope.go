package policy

import (
	"strings"

	"github.com/authz-engine/policy-core/pkg/types"
)

// Scope is one head constraint of a policy: the pattern the principal,
// action, or resource of a request must match before conditions run.
type Scope interface {
	isScope()
	marshalCedar(b *strings.Builder, variable string)
}

// ScopeAll matches any entity.
type ScopeAll struct{}

// ScopeEq matches exactly one entity by UID.
type ScopeEq struct {
	Entity types.EntityUID
}

// ScopeIn matches an entity equal to or a descendant of the given UID.
type ScopeIn struct {
	Entity types.EntityUID
}

// ScopeInSet matches an entity that is in any of the listed UIDs. Only the
// action head admits this form.
type ScopeInSet struct {
	Entities []types.EntityUID
}

// ScopeIs matches any entity of the given type.
type ScopeIs struct {
	EntityType string
}

// ScopeIsIn matches an entity of the given type that is also in the given
// UID.
type ScopeIsIn struct {
	EntityType string
	Entity     types.EntityUID
}

func (ScopeAll) isScope()   {}
func (ScopeEq) isScope()    {}
func (ScopeIn) isScope()    {}
func (ScopeInSet) isScope() {}
func (ScopeIs) isScope()    {}
func (ScopeIsIn) isScope()  {}

func (ScopeAll) marshalCedar(b *strings.Builder, variable string) {
	b.WriteString(variable)
}

func (s ScopeEq) marshalCedar(b *strings.Builder, variable string) {
	b.WriteString(variable)
	b.WriteString(" == ")
	b.WriteString(s.Entity.MarshalCedar())
}

func (s ScopeIn) marshalCedar(b *strings.Builder, variable string) {
	b.WriteString(variable)
	b.WriteString(" in ")
	b.WriteString(s.Entity.MarshalCedar())
}

func (s ScopeInSet) marshalCedar(b *strings.Builder, variable string) {
	b.WriteString(variable)
	b.WriteString(" in [")
	for i, e := range s.Entities {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(e.MarshalCedar())
	}
	b.WriteByte(']')
}

func (s ScopeIs) marshalCedar(b *strings.Builder, variable string) {
	b.WriteString(variable)
	b.WriteString(" is ")
	b.WriteString(s.EntityType)
}

func (s ScopeIsIn) marshalCedar(b *strings.Builder, variable string) {
	b.WriteString(variable)
	b.WriteString(" is ")
	b.WriteString(s.EntityType)
	b.WriteString(" in ")
	b.WriteString(s.Entity.MarshalCedar())
}
