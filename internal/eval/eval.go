package eval

import (
	"github.com/authz-engine/policy-core/internal/entities"
	"github.com/authz-engine/policy-core/internal/extensions"
	"github.com/authz-engine/policy-core/internal/policy"
	"github.com/authz-engine/policy-core/pkg/types"
)

// DefaultMaxDepth bounds expression nesting. Policies this deep do not
// occur in practice; the guard exists so a pathological input faults
// instead of exhausting the stack.
const DefaultMaxDepth = 256

// Env carries everything one evaluation reads: the request variables,
// the entity store, and the extension functions. An Env is never
// mutated by evaluation, so one Env may serve many expressions.
type Env struct {
	Entities   *entities.Store
	Request    types.Request
	Extensions *extensions.Registry

	// MaxDepth overrides DefaultMaxDepth when positive.
	MaxDepth int
}

func (env *Env) limit() int {
	if env.MaxDepth > 0 {
		return env.MaxDepth
	}
	return DefaultMaxDepth
}

// Expr evaluates an expression tree to a value, or to a *Fault.
func Expr(env *Env, n policy.Node) (types.Value, error) {
	e := evaluator{env: env, limit: env.limit()}
	return e.eval(n)
}

// ConditionHolds evaluates one when/unless clause. The body must produce
// a boolean; unless inverts it.
func ConditionHolds(env *Env, c policy.Condition) (bool, error) {
	v, err := Expr(env, c.Body)
	if err != nil {
		return false, err
	}
	b, ok := v.(types.Boolean)
	if !ok {
		return false, typeMismatch("bool", v.TypeName())
	}
	if c.Kind == policy.ConditionUnless {
		return !bool(b), nil
	}
	return bool(b), nil
}

type evaluator struct {
	env   *Env
	depth int
	limit int
}

func (e *evaluator) eval(n policy.Node) (types.Value, error) {
	e.depth++
	defer func() { e.depth-- }()
	if e.depth > e.limit {
		return nil, faultf(FaultRecursionLimit, "expression nesting exceeds the maximum evaluation depth (%d)", e.limit)
	}

	switch v := n.(type) {
	case policy.NodeValue:
		return v.Value, nil
	case policy.NodeVariable:
		return e.variable(v.Name)
	case policy.NodeAnd:
		return e.and(v)
	case policy.NodeOr:
		return e.or(v)
	case policy.NodeNot:
		arg, err := e.evalBool(v.Arg)
		if err != nil {
			return nil, err
		}
		return types.Boolean(!arg), nil
	case policy.NodeNegate:
		arg, err := e.evalLong(v.Arg)
		if err != nil {
			return nil, err
		}
		out, ok := arg.CheckedNeg()
		if !ok {
			return nil, faultf(FaultArithmeticOverflow, "integer overflow while attempting to negate the value `%d`", int64(arg))
		}
		return out, nil
	case policy.NodeBinary:
		return e.binary(v)
	case policy.NodeIn:
		return e.in(v)
	case policy.NodeHas:
		return e.has(v)
	case policy.NodeLike:
		return e.like(v)
	case policy.NodeIs:
		uid, err := e.evalEntity(v.Arg)
		if err != nil {
			return nil, err
		}
		return types.Boolean(uid.Type == v.EntityType), nil
	case policy.NodeIsIn:
		return e.isIn(v)
	case policy.NodeAccess:
		return e.access(v)
	case policy.NodeContains:
		return e.contains(v)
	case policy.NodeContainsAll:
		return e.containsAll(v)
	case policy.NodeContainsAny:
		return e.containsAny(v)
	case policy.NodeIf:
		return e.ifThenElse(v)
	case policy.NodeSet:
		return e.setLiteral(v)
	case policy.NodeRecord:
		return e.recordLiteral(v)
	case policy.NodeExtensionCall:
		return e.extensionCall(v)
	default:
		return nil, typeMismatch("expression", "unknown node")
	}
}

func (e *evaluator) variable(name string) (types.Value, error) {
	switch name {
	case "principal":
		return e.env.Request.Principal, nil
	case "action":
		return e.env.Request.Action, nil
	case "resource":
		return e.env.Request.Resource, nil
	case "context":
		return e.env.Request.Context, nil
	default:
		return nil, typeMismatch("variable", "`"+name+"`")
	}
}

func (e *evaluator) evalBool(n policy.Node) (bool, error) {
	v, err := e.eval(n)
	if err != nil {
		return false, err
	}
	b, ok := v.(types.Boolean)
	if !ok {
		return false, typeMismatch("bool", v.TypeName())
	}
	return bool(b), nil
}

func (e *evaluator) evalLong(n policy.Node) (types.Long, error) {
	v, err := e.eval(n)
	if err != nil {
		return 0, err
	}
	l, ok := v.(types.Long)
	if !ok {
		return 0, typeMismatch("long", v.TypeName())
	}
	return l, nil
}

func (e *evaluator) evalEntity(n policy.Node) (types.EntityUID, error) {
	v, err := e.eval(n)
	if err != nil {
		return types.EntityUID{}, err
	}
	uid, ok := v.(types.EntityUID)
	if !ok {
		return types.EntityUID{}, typeMismatch("entity", v.TypeName())
	}
	return uid, nil
}

func (e *evaluator) evalSet(n policy.Node) (types.Set, error) {
	v, err := e.eval(n)
	if err != nil {
		return types.Set{}, err
	}
	s, ok := v.(types.Set)
	if !ok {
		return types.Set{}, typeMismatch("set", v.TypeName())
	}
	return s, nil
}

// and short-circuits: the right side is not evaluated when the left is
// false, so a fault hiding there never surfaces.
func (e *evaluator) and(n policy.NodeAnd) (types.Value, error) {
	left, err := e.evalBool(n.Left)
	if err != nil {
		return nil, err
	}
	if !left {
		return types.False, nil
	}
	right, err := e.evalBool(n.Right)
	if err != nil {
		return nil, err
	}
	return types.Boolean(right), nil
}

func (e *evaluator) or(n policy.NodeOr) (types.Value, error) {
	left, err := e.evalBool(n.Left)
	if err != nil {
		return nil, err
	}
	if left {
		return types.True, nil
	}
	right, err := e.evalBool(n.Right)
	if err != nil {
		return nil, err
	}
	return types.Boolean(right), nil
}

func (e *evaluator) binary(n policy.NodeBinary) (types.Value, error) {
	switch n.Op {
	case policy.OpEquals, policy.OpNotEquals:
		left, err := e.eval(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := e.eval(n.Right)
		if err != nil {
			return nil, err
		}
		eq := left.Equal(right)
		if n.Op == policy.OpNotEquals {
			eq = !eq
		}
		return types.Boolean(eq), nil
	}

	left, err := e.evalLong(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := e.evalLong(n.Right)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case policy.OpLess:
		return types.Boolean(left < right), nil
	case policy.OpLessEq:
		return types.Boolean(left <= right), nil
	case policy.OpGreater:
		return types.Boolean(left > right), nil
	case policy.OpGreaterEq:
		return types.Boolean(left >= right), nil
	case policy.OpAdd:
		out, ok := left.CheckedAdd(right)
		if !ok {
			return nil, overflow("add", left, right)
		}
		return out, nil
	case policy.OpSub:
		out, ok := left.CheckedSub(right)
		if !ok {
			return nil, overflow("subtract", left, right)
		}
		return out, nil
	case policy.OpMul:
		out, ok := left.CheckedMul(right)
		if !ok {
			return nil, overflow("multiply", left, right)
		}
		return out, nil
	default:
		return nil, typeMismatch("operator", string(n.Op))
	}
}

func overflow(op string, left, right types.Long) *Fault {
	return faultf(FaultArithmeticOverflow, "integer overflow while attempting to %s the values `%d` and `%d`", op, int64(left), int64(right))
}

// in tests hierarchy membership. An entity is in itself and in every
// ancestor; the right side may be a single entity or a set of entities.
func (e *evaluator) in(n policy.NodeIn) (types.Value, error) {
	left, err := e.evalEntity(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := e.eval(n.Right)
	if err != nil {
		return nil, err
	}
	return e.entityIn(left, right)
}

func (e *evaluator) entityIn(left types.EntityUID, right types.Value) (types.Value, error) {
	switch r := right.(type) {
	case types.EntityUID:
		return types.Boolean(e.env.Entities.IsDescendantOf(left, r)), nil
	case types.Set:
		for _, el := range r.Slice() {
			uid, ok := el.(types.EntityUID)
			if !ok {
				return nil, typeMismatch("entity", el.TypeName())
			}
			if e.env.Entities.IsDescendantOf(left, uid) {
				return types.True, nil
			}
		}
		return types.False, nil
	default:
		return nil, typeMismatch("entity or set of entities", right.TypeName())
	}
}

// has never faults on a missing entity or attribute; that is its point.
func (e *evaluator) has(n policy.NodeHas) (types.Value, error) {
	v, err := e.eval(n.Arg)
	if err != nil {
		return nil, err
	}
	switch obj := v.(type) {
	case types.Record:
		return types.Boolean(obj.Has(n.Attr)), nil
	case types.EntityUID:
		ent, ok := e.env.Entities.Get(obj)
		if !ok {
			return types.False, nil
		}
		return types.Boolean(ent.Attrs.Has(n.Attr)), nil
	default:
		return nil, typeMismatch("entity or record", v.TypeName())
	}
}

func (e *evaluator) isIn(n policy.NodeIsIn) (types.Value, error) {
	uid, err := e.evalEntity(n.Arg)
	if err != nil {
		return nil, err
	}
	if uid.Type != n.EntityType {
		return types.False, nil
	}
	right, err := e.eval(n.In)
	if err != nil {
		return nil, err
	}
	return e.entityIn(uid, right)
}

func (e *evaluator) access(n policy.NodeAccess) (types.Value, error) {
	v, err := e.eval(n.Arg)
	if err != nil {
		return nil, err
	}
	switch obj := v.(type) {
	case types.Record:
		out, ok := obj.Get(n.Attr)
		if !ok {
			return nil, faultf(FaultAttributeNotFound, "record does not have the attribute `%s`", n.Attr)
		}
		return out, nil
	case types.EntityUID:
		ent, ok := e.env.Entities.Get(obj)
		if !ok {
			return nil, faultf(FaultEntityNotFound, "entity `%s` does not exist", obj)
		}
		out, ok := ent.Attrs.Get(n.Attr)
		if !ok {
			return nil, faultf(FaultAttributeNotFound, "`%s` does not have the attribute `%s`", obj, n.Attr)
		}
		return out, nil
	default:
		return nil, typeMismatch("entity or record", v.TypeName())
	}
}

func (e *evaluator) contains(n policy.NodeContains) (types.Value, error) {
	set, err := e.evalSet(n.Left)
	if err != nil {
		return nil, err
	}
	el, err := e.eval(n.Right)
	if err != nil {
		return nil, err
	}
	return types.Boolean(set.Contains(el)), nil
}

func (e *evaluator) containsAll(n policy.NodeContainsAll) (types.Value, error) {
	left, err := e.evalSet(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := e.evalSet(n.Right)
	if err != nil {
		return nil, err
	}
	for _, el := range right.Slice() {
		if !left.Contains(el) {
			return types.False, nil
		}
	}
	return types.True, nil
}

func (e *evaluator) containsAny(n policy.NodeContainsAny) (types.Value, error) {
	left, err := e.evalSet(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := e.evalSet(n.Right)
	if err != nil {
		return nil, err
	}
	for _, el := range right.Slice() {
		if left.Contains(el) {
			return types.True, nil
		}
	}
	return types.False, nil
}

func (e *evaluator) ifThenElse(n policy.NodeIf) (types.Value, error) {
	cond, err := e.evalBool(n.If)
	if err != nil {
		return nil, err
	}
	if cond {
		return e.eval(n.Then)
	}
	return e.eval(n.Else)
}

func (e *evaluator) setLiteral(n policy.NodeSet) (types.Value, error) {
	elements := make([]types.Value, 0, len(n.Elements))
	for _, el := range n.Elements {
		v, err := e.eval(el)
		if err != nil {
			return nil, err
		}
		elements = append(elements, v)
	}
	return types.NewSet(elements...), nil
}

func (e *evaluator) recordLiteral(n policy.NodeRecord) (types.Value, error) {
	attrs := make(map[string]types.Value, len(n.Pairs))
	for _, pair := range n.Pairs {
		v, err := e.eval(pair.Value)
		if err != nil {
			return nil, err
		}
		attrs[pair.Key] = v
	}
	return types.NewRecord(attrs), nil
}

func (e *evaluator) extensionCall(n policy.NodeExtensionCall) (types.Value, error) {
	fn, ok := e.env.Extensions.Lookup(n.Name)
	if !ok {
		return nil, faultf(FaultUnknownExtensionFunction, "`%s` is not a known extension function", n.Name)
	}
	if len(n.Args) != len(fn.Args) {
		return nil, faultf(FaultTypeMismatch, "`%s` expects %d argument(s), got %d", n.Name, len(fn.Args), len(n.Args))
	}
	args := make([]types.Value, len(n.Args))
	for i, arg := range n.Args {
		v, err := e.eval(arg)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	out, err := fn.Call(args)
	if err != nil {
		if f, ok := err.(*Fault); ok {
			return nil, f
		}
		return nil, &Fault{Kind: FaultTypeMismatch, Message: err.Error()}
	}
	return out, nil
}
