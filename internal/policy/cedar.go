package policy

import (
	"strings"

	"github.com/authz-engine/policy-core/pkg/types"
)

func quote(s string) string {
	return types.QuoteString(s)
}

// MarshalCedar renders the policy in canonical single-line policy text.
// Parsing the result yields a policy equal to the original.
func (p *Policy) MarshalCedar() string {
	var b strings.Builder
	for _, key := range types.SortedKeys(p.Annotations) {
		b.WriteByte('@')
		b.WriteString(key)
		b.WriteByte('(')
		b.WriteString(quote(p.Annotations[key]))
		b.WriteString(")\n")
	}
	b.WriteString(string(p.Effect))
	b.WriteByte('(')
	p.Principal.marshalCedar(&b, "principal")
	b.WriteString(", ")
	p.Action.marshalCedar(&b, "action")
	b.WriteString(", ")
	p.Resource.marshalCedar(&b, "resource")
	b.WriteByte(')')
	for _, c := range p.Conditions {
		b.WriteByte(' ')
		b.WriteString(string(c.Kind))
		b.WriteString(" { ")
		c.Body.marshalCedar(&b)
		b.WriteString(" }")
	}
	b.WriteByte(';')
	return b.String()
}

// MarshalCedar renders every policy in the set, in declaration order,
// separated by blank lines.
func (s *Set) MarshalCedar() string {
	texts := make([]string, len(s.policies))
	for i, p := range s.policies {
		texts[i] = p.MarshalCedar()
	}
	return strings.Join(texts, "\n\n")
}

// writeChild renders a child expression, parenthesizing it when its
// precedence is too loose for the surrounding operator.
func writeChild(b *strings.Builder, n Node, min int) {
	if n.precedence() < min {
		b.WriteByte('(')
		n.marshalCedar(b)
		b.WriteByte(')')
		return
	}
	n.marshalCedar(b)
}

func (n NodeValue) marshalCedar(b *strings.Builder) {
	b.WriteString(n.Value.MarshalCedar())
}

func (n NodeVariable) marshalCedar(b *strings.Builder) {
	b.WriteString(n.Name)
}

func (n NodeAnd) marshalCedar(b *strings.Builder) {
	writeChild(b, n.Left, precAnd)
	b.WriteString(" && ")
	writeChild(b, n.Right, precRelation)
}

func (n NodeOr) marshalCedar(b *strings.Builder) {
	writeChild(b, n.Left, precOr)
	b.WriteString(" || ")
	writeChild(b, n.Right, precAnd)
}

func (n NodeNot) marshalCedar(b *strings.Builder) {
	b.WriteByte('!')
	writeChild(b, n.Arg, precUnary)
}

func (n NodeNegate) marshalCedar(b *strings.Builder) {
	b.WriteByte('-')
	writeChild(b, n.Arg, precUnary)
}

func (n NodeBinary) marshalCedar(b *strings.Builder) {
	switch n.Op {
	case OpAdd, OpSub:
		writeChild(b, n.Left, precAdd)
		b.WriteString(" " + string(n.Op) + " ")
		writeChild(b, n.Right, precMul)
	case OpMul:
		writeChild(b, n.Left, precMul)
		b.WriteString(" * ")
		writeChild(b, n.Right, precUnary)
	default:
		writeChild(b, n.Left, precAdd)
		b.WriteString(" " + string(n.Op) + " ")
		writeChild(b, n.Right, precAdd)
	}
}

func (n NodeIn) marshalCedar(b *strings.Builder) {
	writeChild(b, n.Left, precAdd)
	b.WriteString(" in ")
	writeChild(b, n.Right, precAdd)
}

func (n NodeHas) marshalCedar(b *strings.Builder) {
	writeChild(b, n.Arg, precAdd)
	b.WriteString(" has ")
	writeAttrName(b, n.Attr)
}

// The like pattern is kept in raw source form so literal \* stars survive;
// it renders back verbatim.
func (n NodeLike) marshalCedar(b *strings.Builder) {
	writeChild(b, n.Arg, precAdd)
	b.WriteString(" like \"")
	b.WriteString(n.Pattern)
	b.WriteByte('"')
}

func (n NodeIs) marshalCedar(b *strings.Builder) {
	writeChild(b, n.Arg, precAdd)
	b.WriteString(" is ")
	b.WriteString(n.EntityType)
}

func (n NodeIsIn) marshalCedar(b *strings.Builder) {
	writeChild(b, n.Arg, precAdd)
	b.WriteString(" is ")
	b.WriteString(n.EntityType)
	b.WriteString(" in ")
	writeChild(b, n.In, precAdd)
}

func (n NodeAccess) marshalCedar(b *strings.Builder) {
	writeChild(b, n.Arg, precPostfix)
	if isIdent(n.Attr) {
		b.WriteByte('.')
		b.WriteString(n.Attr)
		return
	}
	b.WriteByte('[')
	b.WriteString(quote(n.Attr))
	b.WriteByte(']')
}

func (n NodeContains) marshalCedar(b *strings.Builder) {
	writeMethod(b, n.Left, "contains", n.Right)
}

func (n NodeContainsAll) marshalCedar(b *strings.Builder) {
	writeMethod(b, n.Left, "containsAll", n.Right)
}

func (n NodeContainsAny) marshalCedar(b *strings.Builder) {
	writeMethod(b, n.Left, "containsAny", n.Right)
}

func writeMethod(b *strings.Builder, receiver Node, name string, arg Node) {
	writeChild(b, receiver, precPostfix)
	b.WriteByte('.')
	b.WriteString(name)
	b.WriteByte('(')
	arg.marshalCedar(b)
	b.WriteByte(')')
}

func (n NodeIf) marshalCedar(b *strings.Builder) {
	b.WriteString("if ")
	writeChild(b, n.If, precOr)
	b.WriteString(" then ")
	writeChild(b, n.Then, precOr)
	b.WriteString(" else ")
	writeChild(b, n.Else, precOr)
}

func (n NodeSet) marshalCedar(b *strings.Builder) {
	b.WriteByte('[')
	for i, e := range n.Elements {
		if i > 0 {
			b.WriteString(", ")
		}
		e.marshalCedar(b)
	}
	b.WriteByte(']')
}

func (n NodeRecord) marshalCedar(b *strings.Builder) {
	b.WriteByte('{')
	for i, pair := range n.Pairs {
		if i > 0 {
			b.WriteString(", ")
		}
		writeAttrName(b, pair.Key)
		b.WriteString(": ")
		pair.Value.marshalCedar(b)
	}
	b.WriteByte('}')
}

func (n NodeExtensionCall) marshalCedar(b *strings.Builder) {
	if n.MethodForm && len(n.Args) > 0 {
		writeChild(b, n.Args[0], precPostfix)
		b.WriteByte('.')
		b.WriteString(n.Name)
		b.WriteByte('(')
		for i, a := range n.Args[1:] {
			if i > 0 {
				b.WriteString(", ")
			}
			a.marshalCedar(b)
		}
		b.WriteByte(')')
		return
	}
	b.WriteString(n.Name)
	b.WriteByte('(')
	for i, a := range n.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		a.marshalCedar(b)
	}
	b.WriteByte(')')
}

func writeAttrName(b *strings.Builder, name string) {
	if isIdent(name) {
		b.WriteString(name)
		return
	}
	b.WriteString(quote(name))
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
