// Package policy defines the parsed policy representation: effects, scopes,
// condition expressions, and their textual and JSON encodings.
package policy

import (
	"fmt"

	"github.com/authz-engine/policy-core/pkg/types"
)

// Position locates a token in policy source text, 1-based.
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("line %d, column %d", p.Line, p.Column)
}

// ConditionKind distinguishes when clauses from unless clauses.
type ConditionKind string

const (
	ConditionWhen   ConditionKind = "when"
	ConditionUnless ConditionKind = "unless"
)

// Condition is one when/unless clause. An unless clause is satisfied when
// its body evaluates to false.
type Condition struct {
	Kind ConditionKind
	Body Node
}

// Policy is one parsed policy. Policies are immutable after parsing; the
// evaluator and validator only ever read them.
type Policy struct {
	// ID labels the policy in decisions and diagnostics. Parsed policies
	// are labeled by declaration position (policy0, policy1, ...) unless
	// an @id annotation overrides the label.
	ID          string
	Effect      types.Effect
	Annotations map[string]string
	Principal   Scope
	Action      Scope
	Resource    Scope
	Conditions  []Condition
	Position    Position
}

// Set is an ordered collection of policies, as they appeared in source.
type Set struct {
	policies []*Policy
}

// NewSet builds a Set over the given policies, preserving order.
func NewSet(policies []*Policy) *Set {
	return &Set{policies: policies}
}

// Policies returns the policies in declaration order. The returned slice
// is a copy; the policies themselves are shared and read-only.
func (s *Set) Policies() []*Policy {
	out := make([]*Policy, len(s.policies))
	copy(out, s.policies)
	return out
}

// Len returns the number of policies in the set.
func (s *Set) Len() int {
	return len(s.policies)
}
