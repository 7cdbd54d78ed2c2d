package validator

import (
	"slices"

	"github.com/authz-engine/policy-core/internal/extensions"
	"github.com/authz-engine/policy-core/internal/policy"
	"github.com/authz-engine/policy-core/pkg/types"
)

// checker typechecks one policy's conditions under one request
// environment. Issues accumulate on the checker; cNever marks a
// subexpression that already failed, so later operations over it stay
// quiet instead of cascading.
type checker struct {
	v   *Validator
	env requestEnv

	issues []Issue
}

func (c *checker) report(sev Severity, format string, args ...any) {
	c.issues = append(c.issues, newIssue(sev, format, args...))
}

// checkConditions typechecks the condition clauses in order, threading
// capabilities from each when clause into the next. It reports whether
// the policy can be satisfied in this environment.
func (c *checker) checkConditions(conds []policy.Condition) bool {
	satisfiable := true
	caps := capabilitySet{}
	for _, cond := range conds {
		t, condCaps := c.check(cond.Body, caps)
		if !isBoolish(t) {
			if !isNever(t) {
				c.report(SeverityError, "condition of `%s` must be a boolean, got %s", cond.Kind, typeName(t))
			}
			continue
		}
		switch cond.Kind {
		case policy.ConditionWhen:
			if _, ok := t.(cFalse); ok {
				satisfiable = false
			}
			caps = caps.merge(condCaps)
		case policy.ConditionUnless:
			if _, ok := t.(cTrue); ok {
				satisfiable = false
			}
		}
	}
	return satisfiable
}

// check returns the expression's type together with the capabilities that
// are established whenever the expression evaluates to true.
func (c *checker) check(n policy.Node, caps capabilitySet) (ctype, capabilitySet) {
	switch v := n.(type) {
	case policy.NodeValue:
		return c.typeOfValue(v.Value), nil
	case policy.NodeVariable:
		return c.variable(v)
	case policy.NodeAnd:
		return c.and(v, caps)
	case policy.NodeOr:
		return c.or(v, caps)
	case policy.NodeNot:
		t, _ := c.check(v.Arg, caps)
		if !c.requireBoolish(t, "operand of `!` must be a boolean, got %s") {
			return cNever{}, nil
		}
		switch t.(type) {
		case cTrue:
			return cFalse{}, nil
		case cFalse:
			return cTrue{}, nil
		}
		return cBool{}, nil
	case policy.NodeNegate:
		t, _ := c.check(v.Arg, caps)
		if isNever(t) {
			return cNever{}, nil
		}
		if _, ok := t.(cLong); !ok {
			c.report(SeverityError, "operand of `-` must be a long, got %s", typeName(t))
			return cNever{}, nil
		}
		return cLong{}, nil
	case policy.NodeBinary:
		return c.binary(v, caps)
	case policy.NodeIn:
		return c.in(v, caps)
	case policy.NodeHas:
		return c.has(v, caps)
	case policy.NodeLike:
		t, _ := c.check(v.Arg, caps)
		if isNever(t) {
			return cNever{}, nil
		}
		if _, ok := t.(cString); !ok {
			c.report(SeverityError, "operand of `like` must be a string, got %s", typeName(t))
			return cNever{}, nil
		}
		return cBool{}, nil
	case policy.NodeIs:
		t, _ := c.check(v.Arg, caps)
		if isNever(t) {
			return cNever{}, nil
		}
		e, ok := t.(cEntity)
		if !ok {
			c.report(SeverityError, "operand of `is` must be an entity, got %s", typeName(t))
			return cNever{}, nil
		}
		return c.isResult(e, v.EntityType), nil
	case policy.NodeIsIn:
		return c.isIn(v, caps)
	case policy.NodeAccess:
		return c.access(v, caps)
	case policy.NodeContains:
		lt, _ := c.check(v.Left, caps)
		rt, _ := c.check(v.Right, caps)
		if isNever(lt) || isNever(rt) {
			return cNever{}, nil
		}
		if _, ok := lt.(cSet); !ok {
			c.report(SeverityError, "`contains` can only be applied to a set, got %s", typeName(lt))
			return cNever{}, nil
		}
		return cBool{}, nil
	case policy.NodeContainsAll:
		return c.setPair(v.Left, v.Right, "containsAll", caps)
	case policy.NodeContainsAny:
		return c.setPair(v.Left, v.Right, "containsAny", caps)
	case policy.NodeIf:
		return c.ifThenElse(v, caps)
	case policy.NodeSet:
		return c.setLiteral(v, caps)
	case policy.NodeRecord:
		return c.recordLiteral(v, caps)
	case policy.NodeExtensionCall:
		return c.extensionCall(v, caps)
	default:
		return cNever{}, nil
	}
}

func (c *checker) variable(v policy.NodeVariable) (ctype, capabilitySet) {
	switch v.Name {
	case "principal":
		return entityOf(c.env.principalType), nil
	case "action":
		return entityOf(c.env.actionUID.Type), nil
	case "resource":
		return entityOf(c.env.resourceType), nil
	case "context":
		return c.env.context, nil
	default:
		c.report(SeverityError, "unknown variable `%s`", v.Name)
		return cNever{}, nil
	}
}

func (c *checker) requireBoolish(t ctype, format string) bool {
	if isBoolish(t) {
		return true
	}
	if !isNever(t) {
		c.report(SeverityError, format, typeName(t))
	}
	return false
}

func (c *checker) and(v policy.NodeAnd, caps capabilitySet) (ctype, capabilitySet) {
	lt, lcaps := c.check(v.Left, caps)
	lok := c.requireBoolish(lt, "left operand of `&&` must be a boolean, got %s")
	if _, ok := lt.(cFalse); ok {
		// The right side never runs; only its entity references still
		// need to resolve.
		c.checkEntityRefs(v.Right)
		return cFalse{}, nil
	}
	rt, rcaps := c.check(v.Right, caps.merge(lcaps))
	rok := c.requireBoolish(rt, "right operand of `&&` must be a boolean, got %s")
	if !lok || !rok {
		return cNever{}, nil
	}
	outCaps := lcaps.merge(rcaps)
	if _, ok := rt.(cFalse); ok {
		return cFalse{}, nil
	}
	_, lTrue := lt.(cTrue)
	_, rTrue := rt.(cTrue)
	if lTrue && rTrue {
		return cTrue{}, outCaps
	}
	return cBool{}, outCaps
}

func (c *checker) or(v policy.NodeOr, caps capabilitySet) (ctype, capabilitySet) {
	lt, lcaps := c.check(v.Left, caps)
	lok := c.requireBoolish(lt, "left operand of `||` must be a boolean, got %s")
	if _, ok := lt.(cTrue); ok {
		c.checkEntityRefs(v.Right)
		return cTrue{}, lcaps
	}
	rt, rcaps := c.check(v.Right, caps)
	rok := c.requireBoolish(rt, "right operand of `||` must be a boolean, got %s")
	if !lok || !rok {
		return cNever{}, nil
	}
	if _, ok := lt.(cFalse); ok {
		// Truth of the whole can only come from the right side.
		switch rt.(type) {
		case cTrue:
			return cTrue{}, rcaps
		case cFalse:
			return cFalse{}, nil
		}
		return cBool{}, rcaps
	}
	if _, ok := rt.(cTrue); ok {
		return cTrue{}, lcaps.intersect(rcaps)
	}
	return cBool{}, lcaps.intersect(rcaps)
}

func (c *checker) binary(v policy.NodeBinary, caps capabilitySet) (ctype, capabilitySet) {
	lt, _ := c.check(v.Left, caps)
	rt, _ := c.check(v.Right, caps)
	if isNever(lt) || isNever(rt) {
		return cNever{}, nil
	}
	switch v.Op {
	case policy.OpEquals, policy.OpNotEquals:
		if _, ok := lub(lt, rt); !ok {
			c.report(SeverityError, "comparison between incompatible types %s and %s", typeName(lt), typeName(rt))
			return cNever{}, nil
		}
		return cBool{}, nil
	default:
		_, lLong := lt.(cLong)
		_, rLong := rt.(cLong)
		if !lLong || !rLong {
			c.report(SeverityError, "operands of `%s` must be longs, got %s and %s", v.Op, typeName(lt), typeName(rt))
			return cNever{}, nil
		}
		switch v.Op {
		case policy.OpAdd, policy.OpSub, policy.OpMul:
			return cLong{}, nil
		}
		return cBool{}, nil
	}
}

func (c *checker) in(v policy.NodeIn, caps capabilitySet) (ctype, capabilitySet) {
	lt, _ := c.check(v.Left, caps)
	rt, _ := c.check(v.Right, caps)
	if isNever(lt) || isNever(rt) {
		return cNever{}, nil
	}
	le, ok := lt.(cEntity)
	if !ok {
		c.report(SeverityError, "left operand of `in` must be an entity, got %s", typeName(lt))
		return cNever{}, nil
	}
	return c.inResult(le, rt), nil
}

// inResult types a membership test of a known-entity left side against
// the right side, refining to false when the hierarchy rules out any
// ancestor relationship.
func (c *checker) inResult(le cEntity, rt ctype) ctype {
	var rightNames []string
	switch rv := rt.(type) {
	case cEntity:
		rightNames = rv.names
	case cSet:
		switch el := rv.element.(type) {
		case cEntity:
			rightNames = el.names
		case cNever:
			// Membership in the empty set.
			return cFalse{}
		default:
			c.report(SeverityError, "right operand of `in` must be an entity or a set of entities, got %s", typeName(rt))
			return cNever{}
		}
	default:
		c.report(SeverityError, "right operand of `in` must be an entity or a set of entities, got %s", typeName(rt))
		return cNever{}
	}
	if len(le.names) == 0 || len(rightNames) == 0 {
		return cBool{}
	}
	for _, rn := range rightNames {
		descendants := c.v.schema.EntityTypesIn(rn)
		for _, ln := range le.names {
			if slices.Contains(descendants, ln) {
				return cBool{}
			}
		}
	}
	return cFalse{}
}

func (c *checker) has(v policy.NodeHas, caps capabilitySet) (ctype, capabilitySet) {
	t, _ := c.check(v.Arg, caps)
	if isNever(t) {
		return cNever{}, nil
	}
	var result ctype
	switch arg := t.(type) {
	case cRecord:
		attr, ok := arg.attrs[v.Attr]
		switch {
		case !ok:
			result = cFalse{}
		case attr.required:
			result = cTrue{}
		default:
			result = cBool{}
		}
	case cEntity:
		result = c.entityHasResult(arg, v.Attr)
	default:
		c.report(SeverityError, "operand of `has` must be an entity or a record, got %s", typeName(t))
		return cNever{}, nil
	}
	if _, ok := result.(cFalse); !ok {
		if path, ok := capabilityPath(v.Arg); ok {
			return result, capabilitySet{}.with(capability{path: path, attr: v.Attr})
		}
	}
	return result, nil
}

// entityHasResult never returns true: an entity reference can dangle at
// runtime, so even a declared required attribute may be missing.
func (c *checker) entityHasResult(e cEntity, attr string) ctype {
	for _, name := range e.names {
		et, ok := c.v.schema.EntityTypes[name]
		if !ok {
			continue
		}
		if _, ok := et.Shape.Attributes[attr]; ok {
			return cBool{}
		}
	}
	return cFalse{}
}

func (c *checker) isResult(e cEntity, entityType string) ctype {
	if !c.v.knownEntityType(entityType) {
		c.report(SeverityError, "unrecognized entity type `%s`", entityType)
		return cNever{}
	}
	if !slices.Contains(e.names, entityType) {
		return cFalse{}
	}
	if len(e.names) == 1 {
		return cTrue{}
	}
	return cBool{}
}

func (c *checker) isIn(v policy.NodeIsIn, caps capabilitySet) (ctype, capabilitySet) {
	t, _ := c.check(v.Arg, caps)
	if isNever(t) {
		c.checkEntityRefs(v.In)
		return cNever{}, nil
	}
	e, ok := t.(cEntity)
	if !ok {
		c.report(SeverityError, "operand of `is` must be an entity, got %s", typeName(t))
		c.checkEntityRefs(v.In)
		return cNever{}, nil
	}
	isType := c.isResult(e, v.EntityType)
	rt, _ := c.check(v.In, caps)
	if isNever(isType) || isNever(rt) {
		return cNever{}, nil
	}
	// When the type test passes, the operand's type is exactly
	// v.EntityType; the membership half is typed under that refinement.
	inType := c.inResult(entityOf(v.EntityType), rt)
	return andSingleton(isType, inType), nil
}

func (c *checker) access(v policy.NodeAccess, caps capabilitySet) (ctype, capabilitySet) {
	t, _ := c.check(v.Arg, caps)
	if isNever(t) {
		return cNever{}, nil
	}
	switch arg := t.(type) {
	case cRecord:
		attr, ok := arg.attrs[v.Attr]
		if !ok {
			c.report(SeverityError, "%s does not have the attribute `%s`", typeName(t), v.Attr)
			return cNever{}, nil
		}
		if !attr.required && !c.guarded(v, caps) {
			c.report(c.v.opts.UnguardedOptionalAccess, "attribute `%s` is optional and may not be present; use `has` to check for it first", v.Attr)
			if c.v.opts.UnguardedOptionalAccess == SeverityError {
				return cNever{}, nil
			}
		}
		return attr.typ, nil
	case cEntity:
		return c.entityAccess(arg, v, caps)
	default:
		c.report(SeverityError, "cannot access attribute `%s` on %s", v.Attr, typeName(t))
		return cNever{}, nil
	}
}

func (c *checker) entityAccess(e cEntity, v policy.NodeAccess, caps capabilitySet) (ctype, capabilitySet) {
	var found ctype = cNever{}
	declared := 0
	requiredEverywhere := true
	for _, name := range e.names {
		et, ok := c.v.schema.EntityTypes[name]
		if !ok {
			requiredEverywhere = false
			continue
		}
		attr, ok := et.Shape.Attributes[v.Attr]
		if !ok {
			requiredEverywhere = false
			continue
		}
		declared++
		joined, ok := lub(found, fromSchemaType(attr.Type))
		if !ok {
			c.report(SeverityError, "attribute `%s` has incompatible declarations across %s", v.Attr, typeName(e))
			return cNever{}, nil
		}
		found = joined
		if !attr.Required {
			requiredEverywhere = false
		}
	}
	if declared == 0 {
		c.report(SeverityError, "%s does not have the attribute `%s`", typeName(e), v.Attr)
		return cNever{}, nil
	}
	if declared < len(e.names) {
		requiredEverywhere = false
	}
	if !requiredEverywhere && !c.guarded(v, caps) {
		c.report(c.v.opts.UnguardedOptionalAccess, "attribute `%s` is optional and may not be present; use `has` to check for it first", v.Attr)
		if c.v.opts.UnguardedOptionalAccess == SeverityError {
			return cNever{}, nil
		}
	}
	return found, nil
}

func (c *checker) guarded(v policy.NodeAccess, caps capabilitySet) bool {
	path, ok := capabilityPath(v.Arg)
	return ok && caps[capability{path: path, attr: v.Attr}]
}

// capabilityPath renders the attribute paths `has` guards can cover:
// a request variable followed by attribute accesses.
func capabilityPath(n policy.Node) (string, bool) {
	switch v := n.(type) {
	case policy.NodeVariable:
		return v.Name, true
	case policy.NodeAccess:
		base, ok := capabilityPath(v.Arg)
		if !ok {
			return "", false
		}
		return base + "." + v.Attr, true
	}
	return "", false
}

func (c *checker) setPair(left, right policy.Node, op string, caps capabilitySet) (ctype, capabilitySet) {
	lt, _ := c.check(left, caps)
	rt, _ := c.check(right, caps)
	if isNever(lt) || isNever(rt) {
		return cNever{}, nil
	}
	_, lSet := lt.(cSet)
	_, rSet := rt.(cSet)
	if !lSet || !rSet {
		c.report(SeverityError, "`%s` expects set operands, got %s and %s", op, typeName(lt), typeName(rt))
		return cNever{}, nil
	}
	return cBool{}, nil
}

func (c *checker) ifThenElse(v policy.NodeIf, caps capabilitySet) (ctype, capabilitySet) {
	ct, ccaps := c.check(v.If, caps)
	cok := c.requireBoolish(ct, "condition of `if` must be a boolean, got %s")
	switch ct.(type) {
	case cTrue:
		t, tcaps := c.check(v.Then, caps.merge(ccaps))
		c.checkEntityRefs(v.Else)
		return t, ccaps.merge(tcaps)
	case cFalse:
		c.checkEntityRefs(v.Then)
		return c.check(v.Else, caps)
	}
	tt, tcaps := c.check(v.Then, caps.merge(ccaps))
	et, ecaps := c.check(v.Else, caps)
	if !cok || isNever(tt) || isNever(et) {
		return cNever{}, nil
	}
	out, ok := lub(tt, et)
	if !ok {
		c.report(SeverityError, "branches of `if` have incompatible types %s and %s", typeName(tt), typeName(et))
		return cNever{}, nil
	}
	return out, ccaps.merge(tcaps).intersect(ecaps)
}

func (c *checker) setLiteral(v policy.NodeSet, caps capabilitySet) (ctype, capabilitySet) {
	var element ctype = cNever{}
	bad := false
	for _, elem := range v.Elements {
		et, _ := c.check(elem, caps)
		if isNever(et) {
			bad = true
			continue
		}
		joined, ok := lub(element, et)
		if !ok {
			c.report(SeverityError, "set elements have incompatible types %s and %s", typeName(element), typeName(et))
			bad = true
			continue
		}
		element = joined
	}
	if bad {
		return cNever{}, nil
	}
	return cSet{element: element}, nil
}

func (c *checker) recordLiteral(v policy.NodeRecord, caps capabilitySet) (ctype, capabilitySet) {
	attrs := make(map[string]cattr, len(v.Pairs))
	bad := false
	for _, pair := range v.Pairs {
		t, _ := c.check(pair.Value, caps)
		if isNever(t) {
			bad = true
			continue
		}
		attrs[pair.Key] = cattr{typ: t, required: true}
	}
	if bad {
		return cNever{}, nil
	}
	return cRecord{attrs: attrs}, nil
}

func (c *checker) extensionCall(v policy.NodeExtensionCall, caps capabilitySet) (ctype, capabilitySet) {
	argTypes := make([]ctype, len(v.Args))
	for i, arg := range v.Args {
		argTypes[i], _ = c.check(arg, caps)
	}
	fn, ok := c.v.registry.Lookup(v.Name)
	if !ok {
		c.report(SeverityError, "`%s` is not a known extension function", v.Name)
		return cNever{}, nil
	}
	if len(v.Args) != len(fn.Args) {
		c.report(SeverityError, "`%s` expects %d argument(s), got %d", v.Name, len(fn.Args), len(v.Args))
		return cNever{}, nil
	}
	bad := false
	for i, at := range argTypes {
		if isNever(at) {
			bad = true
			continue
		}
		want := sigCType(fn.Args[i])
		if !satisfies(at, want) {
			c.report(SeverityError, "argument %d of `%s` must be of type %s, got %s", i+1, v.Name, typeName(want), typeName(at))
			bad = true
		}
	}
	if bad {
		return cNever{}, nil
	}
	// A constructor applied to a literal can be checked for real: a
	// malformed literal would fault on every request that reaches it.
	if fn.Style == extensions.StyleConstructor && len(v.Args) == 1 {
		if lit, ok := v.Args[0].(policy.NodeValue); ok {
			if _, ok := lit.Value.(types.String); ok {
				if _, err := fn.Call([]types.Value{lit.Value}); err != nil {
					c.report(SeverityError, "%s", err)
					return cNever{}, nil
				}
			}
		}
	}
	return sigCType(fn.Returns), nil
}

func (c *checker) typeOfValue(v types.Value) ctype {
	switch val := v.(type) {
	case types.Boolean:
		if bool(val) {
			return cTrue{}
		}
		return cFalse{}
	case types.Long:
		return cLong{}
	case types.String:
		return cString{}
	case types.EntityUID:
		return c.checkUIDRef(val)
	case types.Set:
		var element ctype = cNever{}
		for _, elem := range val.Slice() {
			et := c.typeOfValue(elem)
			if isNever(et) {
				return cNever{}
			}
			joined, ok := lub(element, et)
			if !ok {
				c.report(SeverityError, "set elements have incompatible types %s and %s", typeName(element), typeName(et))
				return cNever{}
			}
			element = joined
		}
		return cSet{element: element}
	case types.Record:
		attrs := make(map[string]cattr, val.Len())
		for _, key := range val.Keys() {
			elem, _ := val.Get(key)
			t := c.typeOfValue(elem)
			if isNever(t) {
				return cNever{}
			}
			attrs[key] = cattr{typ: t, required: true}
		}
		return cRecord{attrs: attrs}
	case types.IPAddr:
		return cExtension{name: "ipaddr"}
	case types.Decimal:
		return cExtension{name: "decimal"}
	default:
		return cNever{}
	}
}

// checkUIDRef validates an entity literal against the schema. Literals
// in an action namespace must name a declared action; all others must
// name a declared entity type.
func (c *checker) checkUIDRef(uid types.EntityUID) ctype {
	if c.v.actionTypes[uid.Type] {
		if _, ok := c.v.schema.Actions[uid]; !ok {
			c.report(SeverityError, "unrecognized action id `%s`", uid)
			return cNever{}
		}
		return entityOf(uid.Type)
	}
	if _, ok := c.v.schema.EntityTypes[uid.Type]; !ok {
		c.report(SeverityError, "unrecognized entity type `%s`", uid.Type)
		return cNever{}
	}
	return entityOf(uid.Type)
}

// checkEntityRefs resolves entity references in branches the evaluator
// can never reach. Types are not checked there, but dangling names are
// still mistakes.
func (c *checker) checkEntityRefs(n policy.Node) {
	switch v := n.(type) {
	case policy.NodeValue:
		c.checkValueRefs(v.Value)
	case policy.NodeAnd:
		c.checkEntityRefs(v.Left)
		c.checkEntityRefs(v.Right)
	case policy.NodeOr:
		c.checkEntityRefs(v.Left)
		c.checkEntityRefs(v.Right)
	case policy.NodeNot:
		c.checkEntityRefs(v.Arg)
	case policy.NodeNegate:
		c.checkEntityRefs(v.Arg)
	case policy.NodeBinary:
		c.checkEntityRefs(v.Left)
		c.checkEntityRefs(v.Right)
	case policy.NodeIn:
		c.checkEntityRefs(v.Left)
		c.checkEntityRefs(v.Right)
	case policy.NodeHas:
		c.checkEntityRefs(v.Arg)
	case policy.NodeLike:
		c.checkEntityRefs(v.Arg)
	case policy.NodeIs:
		c.checkEntityRefs(v.Arg)
		if !c.v.knownEntityType(v.EntityType) {
			c.report(SeverityError, "unrecognized entity type `%s`", v.EntityType)
		}
	case policy.NodeIsIn:
		c.checkEntityRefs(v.Arg)
		c.checkEntityRefs(v.In)
		if !c.v.knownEntityType(v.EntityType) {
			c.report(SeverityError, "unrecognized entity type `%s`", v.EntityType)
		}
	case policy.NodeAccess:
		c.checkEntityRefs(v.Arg)
	case policy.NodeContains:
		c.checkEntityRefs(v.Left)
		c.checkEntityRefs(v.Right)
	case policy.NodeContainsAll:
		c.checkEntityRefs(v.Left)
		c.checkEntityRefs(v.Right)
	case policy.NodeContainsAny:
		c.checkEntityRefs(v.Left)
		c.checkEntityRefs(v.Right)
	case policy.NodeIf:
		c.checkEntityRefs(v.If)
		c.checkEntityRefs(v.Then)
		c.checkEntityRefs(v.Else)
	case policy.NodeSet:
		for _, elem := range v.Elements {
			c.checkEntityRefs(elem)
		}
	case policy.NodeRecord:
		for _, pair := range v.Pairs {
			c.checkEntityRefs(pair.Value)
		}
	case policy.NodeExtensionCall:
		for _, arg := range v.Args {
			c.checkEntityRefs(arg)
		}
	}
}

func (c *checker) checkValueRefs(v types.Value) {
	switch val := v.(type) {
	case types.EntityUID:
		c.checkUIDRef(val)
	case types.Set:
		for _, elem := range val.Slice() {
			c.checkValueRefs(elem)
		}
	case types.Record:
		for _, key := range val.Keys() {
			elem, _ := val.Get(key)
			c.checkValueRefs(elem)
		}
	}
}

func andSingleton(a, b ctype) ctype {
	if isNever(a) || isNever(b) {
		return cNever{}
	}
	if _, ok := a.(cFalse); ok {
		return cFalse{}
	}
	if _, ok := b.(cFalse); ok {
		return cFalse{}
	}
	_, aTrue := a.(cTrue)
	_, bTrue := b.(cTrue)
	if aTrue && bTrue {
		return cTrue{}
	}
	return cBool{}
}

func isNever(t ctype) bool {
	_, ok := t.(cNever)
	return ok
}

func sigCType(name string) ctype {
	switch name {
	case "bool":
		return cBool{}
	case "long":
		return cLong{}
	case "string":
		return cString{}
	default:
		return cExtension{name: name}
	}
}
