package policy

import (
	"strings"

	"github.com/authz-engine/policy-core/pkg/types"
)

// Node is one expression-tree node of a policy condition.
type Node interface {
	isNode()
	precedence() int
	marshalCedar(b *strings.Builder)
}

// Operator precedence levels, loosest first. Relational operators do not
// chain: their operands must bind tighter than the operator itself.
const (
	precIf = iota
	precOr
	precAnd
	precRelation
	precAdd
	precMul
	precUnary
	precPostfix
	precPrimary
)

// BinaryOp names a comparison or arithmetic operator.
type BinaryOp string

const (
	OpEquals    BinaryOp = "=="
	OpNotEquals BinaryOp = "!="
	OpLess      BinaryOp = "<"
	OpLessEq    BinaryOp = "<="
	OpGreater   BinaryOp = ">"
	OpGreaterEq BinaryOp = ">="
	OpAdd       BinaryOp = "+"
	OpSub       BinaryOp = "-"
	OpMul       BinaryOp = "*"
)

// NodeValue is a literal value.
type NodeValue struct {
	Value types.Value
}

// NodeVariable is one of the request variables: principal, action,
// resource, or context.
type NodeVariable struct {
	Name string
}

// NodeAnd is short-circuiting conjunction.
type NodeAnd struct {
	Left, Right Node
}

// NodeOr is short-circuiting disjunction.
type NodeOr struct {
	Left, Right Node
}

// NodeNot is boolean negation.
type NodeNot struct {
	Arg Node
}

// NodeNegate is arithmetic negation.
type NodeNegate struct {
	Arg Node
}

// NodeBinary is a comparison or arithmetic operator application.
type NodeBinary struct {
	Op          BinaryOp
	Left, Right Node
}

// NodeIn is the hierarchy-membership test.
type NodeIn struct {
	Left, Right Node
}

// NodeHas tests whether an entity or record carries an attribute.
type NodeHas struct {
	Arg  Node
	Attr string
}

// NodeLike matches a string against a pattern with * wildcards.
type NodeLike struct {
	Arg     Node
	Pattern string
}

// NodeIs tests an entity reference's type.
type NodeIs struct {
	Arg        Node
	EntityType string
}

// NodeIsIn combines a type test with a hierarchy-membership test.
type NodeIsIn struct {
	Arg        Node
	EntityType string
	In         Node
}

// NodeAccess reads an attribute of an entity or record.
type NodeAccess struct {
	Arg  Node
	Attr string
}

// NodeContains tests set membership of a single element.
type NodeContains struct {
	Left, Right Node
}

// NodeContainsAll tests whether a set includes every element of another.
type NodeContainsAll struct {
	Left, Right Node
}

// NodeContainsAny tests whether a set includes any element of another.
type NodeContainsAny struct {
	Left, Right Node
}

// NodeIf is conditional choice; only the taken branch is evaluated.
type NodeIf struct {
	If, Then, Else Node
}

// NodeSet is a set literal.
type NodeSet struct {
	Elements []Node
}

// RecordPair is one key/value entry of a record literal.
type RecordPair struct {
	Key   string
	Value Node
}

// NodeRecord is a record literal with pairs in source order.
type NodeRecord struct {
	Pairs []RecordPair
}

// NodeExtensionCall invokes an extension function, either in call form,
// ip("10.0.0.1"), or method form, addr.isIpv4(). In method form the
// receiver is the first argument.
type NodeExtensionCall struct {
	Name       string
	Args       []Node
	MethodForm bool
}

func (NodeValue) isNode()         {}
func (NodeVariable) isNode()      {}
func (NodeAnd) isNode()           {}
func (NodeOr) isNode()            {}
func (NodeNot) isNode()           {}
func (NodeNegate) isNode()        {}
func (NodeBinary) isNode()        {}
func (NodeIn) isNode()            {}
func (NodeHas) isNode()           {}
func (NodeLike) isNode()          {}
func (NodeIs) isNode()            {}
func (NodeIsIn) isNode()          {}
func (NodeAccess) isNode()        {}
func (NodeContains) isNode()      {}
func (NodeContainsAll) isNode()   {}
func (NodeContainsAny) isNode()   {}
func (NodeIf) isNode()            {}
func (NodeSet) isNode()           {}
func (NodeRecord) isNode()        {}
func (NodeExtensionCall) isNode() {}

func (NodeValue) precedence() int    { return precPrimary }
func (NodeVariable) precedence() int { return precPrimary }
func (NodeAnd) precedence() int      { return precAnd }
func (NodeOr) precedence() int       { return precOr }
func (NodeNot) precedence() int      { return precUnary }
func (NodeNegate) precedence() int   { return precUnary }

func (n NodeBinary) precedence() int {
	switch n.Op {
	case OpAdd, OpSub:
		return precAdd
	case OpMul:
		return precMul
	default:
		return precRelation
	}
}

func (NodeIn) precedence() int          { return precRelation }
func (NodeHas) precedence() int         { return precRelation }
func (NodeLike) precedence() int        { return precRelation }
func (NodeIs) precedence() int          { return precRelation }
func (NodeIsIn) precedence() int        { return precRelation }
func (NodeAccess) precedence() int      { return precPostfix }
func (NodeContains) precedence() int    { return precPostfix }
func (NodeContainsAll) precedence() int { return precPostfix }
func (NodeContainsAny) precedence() int { return precPostfix }
func (NodeIf) precedence() int          { return precIf }
func (NodeSet) precedence() int         { return precPrimary }
func (NodeRecord) precedence() int      { return precPrimary }

func (n NodeExtensionCall) precedence() int {
	if n.MethodForm {
		return precPostfix
	}
	return precPrimary
}
