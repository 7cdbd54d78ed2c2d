package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/authz-engine/policy-core/internal/policy"
	"github.com/authz-engine/policy-core/pkg/types"
)

// Parse turns policy source text into an ordered policy set. Policies are
// labeled policy0, policy1, ... in declaration order; an @id annotation
// overrides the label.
func Parse(src string) (*policy.Set, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	var policies []*policy.Policy
	for p.peek().Kind != tokenEOF {
		parsed, err := p.parsePolicy()
		if err != nil {
			return nil, err
		}
		policies = append(policies, parsed)
	}
	for i, parsed := range policies {
		if id, ok := parsed.Annotations["id"]; ok {
			parsed.ID = id
		} else {
			parsed.ID = fmt.Sprintf("policy%d", i)
		}
	}
	return policy.NewSet(policies), nil
}

// ParsePolicy parses source text containing exactly one policy.
func ParsePolicy(src string) (*policy.Policy, error) {
	set, err := Parse(src)
	if err != nil {
		return nil, err
	}
	policies := set.Policies()
	if len(policies) != 1 {
		return nil, &ParseError{Message: fmt.Sprintf("expected exactly one policy, got %d", len(policies))}
	}
	return policies[0], nil
}

type parser struct {
	tokens []token
	pos    int
}

func newParser(src string) (*parser, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	return &parser{tokens: tokens}, nil
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) peekAhead(n int) token {
	if p.pos+n >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+n]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.Kind != tokenEOF {
		p.pos++
	}
	return tok
}

func (p *parser) unexpected(tok token) error {
	if tok.Kind == tokenEOF {
		return &ParseError{Position: tok.Pos, Message: "unexpected end of input"}
	}
	return &ParseError{Position: tok.Pos, Message: fmt.Sprintf("unexpected token `%s`", tok.display())}
}

func (p *parser) errf(tok token, format string, args ...any) error {
	return &ParseError{Position: tok.Pos, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) expectPunct(text string) (token, error) {
	tok := p.peek()
	if tok.Kind != tokenPunct || tok.Text != text {
		return token{}, p.unexpected(tok)
	}
	return p.next(), nil
}

func (p *parser) atPunct(text string) bool {
	tok := p.peek()
	return tok.Kind == tokenPunct && tok.Text == text
}

func (p *parser) atIdent(text string) bool {
	tok := p.peek()
	return tok.Kind == tokenIdent && tok.Text == text
}

func (p *parser) parsePolicy() (*policy.Policy, error) {
	start := p.peek().Pos
	annotations, err := p.parseAnnotations()
	if err != nil {
		return nil, err
	}

	effectTok := p.peek()
	var effect types.Effect
	switch {
	case p.atIdent("permit"):
		effect = types.EffectPermit
	case p.atIdent("forbid"):
		effect = types.EffectForbid
	default:
		return nil, p.unexpected(effectTok)
	}
	p.next()

	if _, err := p.expectPunct("("); err != nil {
		return nil, err
	}
	principal, err := p.parseScope("principal")
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(","); err != nil {
		return nil, err
	}
	action, err := p.parseScope("action")
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(","); err != nil {
		return nil, err
	}
	resource, err := p.parseScope("resource")
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(")"); err != nil {
		return nil, err
	}

	var conditions []policy.Condition
	for p.atIdent("when") || p.atIdent("unless") {
		kind := policy.ConditionKind(p.next().Text)
		if _, err := p.expectPunct("{"); err != nil {
			return nil, err
		}
		body, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct("}"); err != nil {
			return nil, err
		}
		conditions = append(conditions, policy.Condition{Kind: kind, Body: body})
	}

	if _, err := p.expectPunct(";"); err != nil {
		return nil, err
	}

	return &policy.Policy{
		Effect:      effect,
		Annotations: annotations,
		Principal:   principal,
		Action:      action,
		Resource:    resource,
		Conditions:  conditions,
		Position:    start,
	}, nil
}

func (p *parser) parseAnnotations() (map[string]string, error) {
	var annotations map[string]string
	for p.atPunct("@") {
		p.next()
		nameTok := p.peek()
		if nameTok.Kind != tokenIdent {
			return nil, p.unexpected(nameTok)
		}
		p.next()
		if _, err := p.expectPunct("("); err != nil {
			return nil, err
		}
		valueTok := p.peek()
		if valueTok.Kind != tokenString {
			return nil, p.unexpected(valueTok)
		}
		p.next()
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		if annotations == nil {
			annotations = map[string]string{}
		}
		if _, dup := annotations[nameTok.Text]; dup {
			return nil, p.errf(nameTok, "duplicate annotation `%s`", nameTok.Text)
		}
		annotations[nameTok.Text] = valueTok.Text
	}
	return annotations, nil
}

func (p *parser) parseScope(variable string) (policy.Scope, error) {
	varTok := p.peek()
	if varTok.Kind != tokenIdent || varTok.Text != variable {
		if varTok.Kind == tokenIdent {
			return nil, p.errf(varTok, "expected `%s`, got `%s`", variable, varTok.Text)
		}
		return nil, p.unexpected(varTok)
	}
	p.next()

	switch {
	case p.atPunct(",") || p.atPunct(")"):
		return policy.ScopeAll{}, nil

	case p.atPunct("=="):
		p.next()
		uid, err := p.parseEntityUID()
		if err != nil {
			return nil, err
		}
		return policy.ScopeEq{Entity: uid}, nil

	case p.atIdent("in"):
		p.next()
		if p.atPunct("[") {
			if variable != "action" {
				return nil, p.errf(p.peek(), "only the action head accepts an entity list")
			}
			p.next()
			var entities []types.EntityUID
			for !p.atPunct("]") {
				if len(entities) > 0 {
					if _, err := p.expectPunct(","); err != nil {
						return nil, err
					}
				}
				uid, err := p.parseEntityUID()
				if err != nil {
					return nil, err
				}
				entities = append(entities, uid)
			}
			p.next()
			return policy.ScopeInSet{Entities: entities}, nil
		}
		uid, err := p.parseEntityUID()
		if err != nil {
			return nil, err
		}
		return policy.ScopeIn{Entity: uid}, nil

	case p.atIdent("is"):
		p.next()
		entityType, err := p.parsePath()
		if err != nil {
			return nil, err
		}
		if p.atIdent("in") {
			p.next()
			uid, err := p.parseEntityUID()
			if err != nil {
				return nil, err
			}
			return policy.ScopeIsIn{EntityType: entityType, Entity: uid}, nil
		}
		return policy.ScopeIs{EntityType: entityType}, nil

	default:
		return nil, p.unexpected(p.peek())
	}
}

// parsePath reads a ::-separated type name, stopping before a ::"id" tail.
func (p *parser) parsePath() (string, error) {
	tok := p.peek()
	if tok.Kind != tokenIdent {
		return "", p.unexpected(tok)
	}
	p.next()
	parts := []string{tok.Text}
	for p.atPunct("::") && p.peekAhead(1).Kind == tokenIdent {
		p.next()
		parts = append(parts, p.next().Text)
	}
	return strings.Join(parts, "::"), nil
}

// parseEntityUID reads a Type::"id" literal.
func (p *parser) parseEntityUID() (types.EntityUID, error) {
	entityType, err := p.parsePath()
	if err != nil {
		return types.EntityUID{}, err
	}
	if _, err := p.expectPunct("::"); err != nil {
		return types.EntityUID{}, err
	}
	idTok := p.peek()
	if idTok.Kind != tokenString {
		return types.EntityUID{}, p.unexpected(idTok)
	}
	p.next()
	return types.NewEntityUID(entityType, idTok.Text), nil
}

func (p *parser) parseExpr() (policy.Node, error) {
	if p.atIdent("if") {
		p.next()
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if !p.atIdent("then") {
			return nil, p.unexpected(p.peek())
		}
		p.next()
		then, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if !p.atIdent("else") {
			return nil, p.unexpected(p.peek())
		}
		p.next()
		els, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return policy.NodeIf{If: cond, Then: then, Else: els}, nil
	}
	return p.parseOr()
}

func (p *parser) parseOr() (policy.Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.atPunct("||") {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = policy.NodeOr{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (policy.Node, error) {
	left, err := p.parseRelation()
	if err != nil {
		return nil, err
	}
	for p.atPunct("&&") {
		p.next()
		right, err := p.parseRelation()
		if err != nil {
			return nil, err
		}
		left = policy.NodeAnd{Left: left, Right: right}
	}
	return left, nil
}

var relationOps = map[string]policy.BinaryOp{
	"==": policy.OpEquals,
	"!=": policy.OpNotEquals,
	"<":  policy.OpLess,
	"<=": policy.OpLessEq,
	">":  policy.OpGreater,
	">=": policy.OpGreaterEq,
}

// parseRelation parses one optional relational operator. Relational
// operators do not chain: a < b < c is a syntax error.
func (p *parser) parseRelation() (policy.Node, error) {
	left, err := p.parseAdd()
	if err != nil {
		return nil, err
	}

	tok := p.peek()
	if tok.Kind == tokenPunct {
		if op, ok := relationOps[tok.Text]; ok {
			p.next()
			right, err := p.parseAdd()
			if err != nil {
				return nil, err
			}
			return policy.NodeBinary{Op: op, Left: left, Right: right}, nil
		}
		return left, nil
	}
	if tok.Kind != tokenIdent {
		return left, nil
	}

	switch tok.Text {
	case "in":
		p.next()
		right, err := p.parseAdd()
		if err != nil {
			return nil, err
		}
		return policy.NodeIn{Left: left, Right: right}, nil

	case "has":
		p.next()
		attr, err := p.parseAttrName()
		if err != nil {
			return nil, err
		}
		return policy.NodeHas{Arg: left, Attr: attr}, nil

	case "like":
		p.next()
		patternTok := p.peek()
		if patternTok.Kind != tokenString {
			return nil, p.unexpected(patternTok)
		}
		p.next()
		return policy.NodeLike{Arg: left, Pattern: patternTok.Raw}, nil

	case "is":
		p.next()
		entityType, err := p.parsePath()
		if err != nil {
			return nil, err
		}
		if p.atIdent("in") {
			p.next()
			in, err := p.parseAdd()
			if err != nil {
				return nil, err
			}
			return policy.NodeIsIn{Arg: left, EntityType: entityType, In: in}, nil
		}
		return policy.NodeIs{Arg: left, EntityType: entityType}, nil
	}
	return left, nil
}

func (p *parser) parseAdd() (policy.Node, error) {
	left, err := p.parseMult()
	if err != nil {
		return nil, err
	}
	for p.atPunct("+") || p.atPunct("-") {
		op := policy.OpAdd
		if p.next().Text == "-" {
			op = policy.OpSub
		}
		right, err := p.parseMult()
		if err != nil {
			return nil, err
		}
		left = policy.NodeBinary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseMult() (policy.Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.atPunct("*") {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = policy.NodeBinary{Op: policy.OpMul, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (policy.Node, error) {
	switch {
	case p.atPunct("!"):
		p.next()
		arg, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return policy.NodeNot{Arg: arg}, nil

	case p.atPunct("-"):
		minusTok := p.next()
		// fold the sign into an immediately following integer literal so
		// the most negative long is representable
		if p.peek().Kind == tokenInt {
			numTok := p.next()
			value, err := parseNegativeLong(numTok.Text)
			if err != nil {
				return nil, p.errf(minusTok, "integer literal `-%s` out of range", numTok.Text)
			}
			return policy.NodeValue{Value: value}, nil
		}
		arg, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return policy.NodeNegate{Arg: arg}, nil

	default:
		return p.parseMember()
	}
}

func parseNegativeLong(digits string) (types.Long, error) {
	value, err := strconv.ParseInt("-"+digits, 10, 64)
	if err != nil {
		return 0, err
	}
	return types.Long(value), nil
}

func (p *parser) parseMember() (policy.Node, error) {
	node, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.atPunct("."):
			p.next()
			nameTok := p.peek()
			if nameTok.Kind != tokenIdent {
				return nil, p.unexpected(nameTok)
			}
			p.next()
			if p.atPunct("(") {
				node, err = p.parseMethodCall(node, nameTok)
				if err != nil {
					return nil, err
				}
				continue
			}
			node = policy.NodeAccess{Arg: node, Attr: nameTok.Text}

		case p.atPunct("["):
			p.next()
			keyTok := p.peek()
			if keyTok.Kind != tokenString {
				return nil, p.unexpected(keyTok)
			}
			p.next()
			if _, err := p.expectPunct("]"); err != nil {
				return nil, err
			}
			node = policy.NodeAccess{Arg: node, Attr: keyTok.Text}

		default:
			return node, nil
		}
	}
}

func (p *parser) parseMethodCall(receiver policy.Node, nameTok token) (policy.Node, error) {
	args, err := p.parseCallArgs()
	if err != nil {
		return nil, err
	}
	switch nameTok.Text {
	case "contains", "containsAll", "containsAny":
		if len(args) != 1 {
			return nil, p.errf(nameTok, "`%s` expects one argument, got %d", nameTok.Text, len(args))
		}
		switch nameTok.Text {
		case "contains":
			return policy.NodeContains{Left: receiver, Right: args[0]}, nil
		case "containsAll":
			return policy.NodeContainsAll{Left: receiver, Right: args[0]}, nil
		default:
			return policy.NodeContainsAny{Left: receiver, Right: args[0]}, nil
		}
	default:
		return policy.NodeExtensionCall{
			Name:       nameTok.Text,
			Args:       append([]policy.Node{receiver}, args...),
			MethodForm: true,
		}, nil
	}
}

// parseCallArgs reads a parenthesized, comma-separated argument list,
// starting at the opening parenthesis.
func (p *parser) parseCallArgs() ([]policy.Node, error) {
	if _, err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var args []policy.Node
	for !p.atPunct(")") {
		if len(args) > 0 {
			if _, err := p.expectPunct(","); err != nil {
				return nil, err
			}
		}
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	p.next()
	return args, nil
}

func (p *parser) parsePrimary() (policy.Node, error) {
	tok := p.peek()
	switch tok.Kind {
	case tokenInt:
		p.next()
		value, err := strconv.ParseInt(tok.Text, 10, 64)
		if err != nil {
			return nil, p.errf(tok, "integer literal `%s` out of range", tok.Text)
		}
		return policy.NodeValue{Value: types.Long(value)}, nil

	case tokenString:
		p.next()
		return policy.NodeValue{Value: types.String(tok.Text)}, nil

	case tokenIdent:
		switch tok.Text {
		case "true":
			p.next()
			return policy.NodeValue{Value: types.True}, nil
		case "false":
			p.next()
			return policy.NodeValue{Value: types.False}, nil
		case "principal", "action", "resource", "context":
			p.next()
			return policy.NodeVariable{Name: tok.Text}, nil
		case "if", "then", "else", "when", "unless", "permit", "forbid", "in", "has", "like", "is":
			return nil, p.unexpected(tok)
		}
		if p.peekAhead(1).Kind == tokenPunct && p.peekAhead(1).Text == "::" {
			uid, err := p.parseEntityUID()
			if err != nil {
				return nil, err
			}
			return policy.NodeValue{Value: uid}, nil
		}
		if p.peekAhead(1).Kind == tokenPunct && p.peekAhead(1).Text == "(" {
			p.next()
			args, err := p.parseCallArgs()
			if err != nil {
				return nil, err
			}
			return policy.NodeExtensionCall{Name: tok.Text, Args: args}, nil
		}
		return nil, p.unexpected(tok)

	case tokenPunct:
		switch tok.Text {
		case "(":
			p.next()
			inner, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			return inner, nil

		case "[":
			p.next()
			var elements []policy.Node
			for !p.atPunct("]") {
				if len(elements) > 0 {
					if _, err := p.expectPunct(","); err != nil {
						return nil, err
					}
				}
				element, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				elements = append(elements, element)
			}
			p.next()
			return policy.NodeSet{Elements: elements}, nil

		case "{":
			p.next()
			var pairs []policy.RecordPair
			for !p.atPunct("}") {
				if len(pairs) > 0 {
					if _, err := p.expectPunct(","); err != nil {
						return nil, err
					}
				}
				key, err := p.parseAttrName()
				if err != nil {
					return nil, err
				}
				if _, err := p.expectPunct(":"); err != nil {
					return nil, err
				}
				value, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				pairs = append(pairs, policy.RecordPair{Key: key, Value: value})
			}
			p.next()
			return policy.NodeRecord{Pairs: pairs}, nil
		}
	}
	return nil, p.unexpected(tok)
}

// parseAttrName reads an attribute name: a bare identifier or a string.
func (p *parser) parseAttrName() (string, error) {
	tok := p.peek()
	switch tok.Kind {
	case tokenIdent:
		p.next()
		return tok.Text, nil
	case tokenString:
		p.next()
		return tok.Text, nil
	default:
		return "", p.unexpected(tok)
	}
}
