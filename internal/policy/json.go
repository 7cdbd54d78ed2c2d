package policy

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/authz-engine/policy-core/pkg/types"
)

// The JSON policy format mirrors the policy structure directly: an effect,
// one scope object per head, and a list of condition clauses whose bodies
// are expression trees keyed by operator.

type policyJSON struct {
	Effect      *string           `json:"effect"`
	Principal   json.RawMessage   `json:"principal"`
	Action      json.RawMessage   `json:"action"`
	Resource    json.RawMessage   `json:"resource"`
	Conditions  []conditionJSON   `json:"conditions"`
	Annotations map[string]string `json:"annotations,omitempty"`
}

type conditionJSON struct {
	Kind string          `json:"kind"`
	Body json.RawMessage `json:"body"`
}

// MarshalJSON encodes the policy in the JSON policy format.
func (p *Policy) MarshalJSON() ([]byte, error) {
	principal, err := scopeToJSON(p.Principal)
	if err != nil {
		return nil, err
	}
	action, err := scopeToJSON(p.Action)
	if err != nil {
		return nil, err
	}
	resource, err := scopeToJSON(p.Resource)
	if err != nil {
		return nil, err
	}
	conditions := make([]conditionJSON, 0, len(p.Conditions))
	for _, c := range p.Conditions {
		body, err := nodeToJSON(c.Body)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, conditionJSON{Kind: string(c.Kind), Body: body})
	}
	effect := string(p.Effect)
	return json.Marshal(policyJSON{
		Effect:      &effect,
		Principal:   principal,
		Action:      action,
		Resource:    resource,
		Conditions:  conditions,
		Annotations: p.Annotations,
	})
}

// UnmarshalJSON decodes the JSON policy format. The policy ID is not part
// of the format; callers label the result.
func (p *Policy) UnmarshalJSON(data []byte) error {
	var raw policyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Effect == nil {
		return fmt.Errorf("missing field `effect`")
	}
	effect := types.Effect(*raw.Effect)
	if effect != types.EffectPermit && effect != types.EffectForbid {
		return fmt.Errorf("unknown effect `%s`", *raw.Effect)
	}
	principal, err := scopeFromJSON(raw.Principal, "principal")
	if err != nil {
		return err
	}
	action, err := scopeFromJSON(raw.Action, "action")
	if err != nil {
		return err
	}
	resource, err := scopeFromJSON(raw.Resource, "resource")
	if err != nil {
		return err
	}
	conditions := make([]Condition, 0, len(raw.Conditions))
	for _, c := range raw.Conditions {
		kind := ConditionKind(c.Kind)
		if kind != ConditionWhen && kind != ConditionUnless {
			return fmt.Errorf("unknown condition kind `%s`", c.Kind)
		}
		body, err := nodeFromJSON(c.Body)
		if err != nil {
			return err
		}
		conditions = append(conditions, Condition{Kind: kind, Body: body})
	}
	p.Effect = effect
	p.Annotations = raw.Annotations
	p.Principal = principal
	p.Action = action
	p.Resource = resource
	p.Conditions = conditions
	return nil
}

func scopeToJSON(s Scope) (json.RawMessage, error) {
	switch v := s.(type) {
	case ScopeAll:
		return json.Marshal(struct {
			Op string `json:"op"`
		}{"All"})
	case ScopeEq:
		return json.Marshal(struct {
			Op     string          `json:"op"`
			Entity types.EntityUID `json:"entity"`
		}{"==", v.Entity})
	case ScopeIn:
		return json.Marshal(struct {
			Op     string          `json:"op"`
			Entity types.EntityUID `json:"entity"`
		}{"in", v.Entity})
	case ScopeInSet:
		entities := v.Entities
		if entities == nil {
			entities = []types.EntityUID{}
		}
		return json.Marshal(struct {
			Op       string            `json:"op"`
			Entities []types.EntityUID `json:"entities"`
		}{"in", entities})
	case ScopeIs:
		return json.Marshal(struct {
			Op         string `json:"op"`
			EntityType string `json:"entity_type"`
		}{"is", v.EntityType})
	case ScopeIsIn:
		return json.Marshal(struct {
			Op         string `json:"op"`
			EntityType string `json:"entity_type"`
			In         struct {
				Entity types.EntityUID `json:"entity"`
			} `json:"in"`
		}{Op: "is", EntityType: v.EntityType, In: struct {
			Entity types.EntityUID `json:"entity"`
		}{v.Entity}})
	default:
		return nil, fmt.Errorf("unsupported scope %T", s)
	}
}

func scopeFromJSON(raw json.RawMessage, head string) (Scope, error) {
	if raw == nil {
		return nil, fmt.Errorf("missing field `%s`", head)
	}
	var probe struct {
		Op         string             `json:"op"`
		Entity     *types.EntityUID   `json:"entity"`
		Entities   *[]types.EntityUID `json:"entities"`
		EntityType string             `json:"entity_type"`
		In         *struct {
			Entity types.EntityUID `json:"entity"`
		} `json:"in"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("%s scope: %w", head, err)
	}
	switch probe.Op {
	case "All":
		return ScopeAll{}, nil
	case "==":
		if probe.Entity == nil {
			return nil, fmt.Errorf("%s scope: `==` requires an entity", head)
		}
		return ScopeEq{Entity: *probe.Entity}, nil
	case "in":
		if probe.Entity != nil {
			return ScopeIn{Entity: *probe.Entity}, nil
		}
		if probe.Entities != nil {
			if head != "action" {
				return nil, fmt.Errorf("%s scope: only the action head accepts an entity list", head)
			}
			return ScopeInSet{Entities: *probe.Entities}, nil
		}
		return nil, fmt.Errorf("%s scope: `in` requires an entity or entity list", head)
	case "is":
		if probe.EntityType == "" {
			return nil, fmt.Errorf("%s scope: `is` requires an entity type", head)
		}
		if probe.In != nil {
			return ScopeIsIn{EntityType: probe.EntityType, Entity: probe.In.Entity}, nil
		}
		return ScopeIs{EntityType: probe.EntityType}, nil
	default:
		return nil, fmt.Errorf("%s scope: unknown operator `%s`", head, probe.Op)
	}
}

type binaryJSON struct {
	Left  json.RawMessage `json:"left"`
	Right json.RawMessage `json:"right"`
}

type unaryJSON struct {
	Arg json.RawMessage `json:"arg"`
}

type attrJSON struct {
	Left json.RawMessage `json:"left"`
	Attr string          `json:"attr"`
}

type likeJSON struct {
	Left    json.RawMessage `json:"left"`
	Pattern string          `json:"pattern"`
}

type isJSON struct {
	Left       json.RawMessage `json:"left"`
	EntityType string          `json:"entity_type"`
	In         json.RawMessage `json:"in,omitempty"`
}

type ifJSON struct {
	If   json.RawMessage `json:"if"`
	Then json.RawMessage `json:"then"`
	Else json.RawMessage `json:"else"`
}

// constructorExtensions names the extension functions rendered in call
// form; every other extension renders in method form.
var constructorExtensions = map[string]bool{
	"ip":      true,
	"decimal": true,
}

func oneKey(key string, val any) (json.RawMessage, error) {
	k, err := json.Marshal(key)
	if err != nil {
		return nil, err
	}
	v, err := json.Marshal(val)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	b.Grow(len(k) + len(v) + 3)
	b.WriteByte('{')
	b.Write(k)
	b.WriteByte(':')
	b.Write(v)
	b.WriteByte('}')
	return json.RawMessage(b.String()), nil
}

func binaryToJSON(op string, left, right Node) (json.RawMessage, error) {
	l, err := nodeToJSON(left)
	if err != nil {
		return nil, err
	}
	r, err := nodeToJSON(right)
	if err != nil {
		return nil, err
	}
	return oneKey(op, binaryJSON{Left: l, Right: r})
}

func nodeToJSON(n Node) (json.RawMessage, error) {
	switch v := n.(type) {
	case NodeValue:
		literal, err := types.ValueToJSON(v.Value)
		if err != nil {
			return nil, err
		}
		return oneKey("Value", literal)
	case NodeVariable:
		return oneKey("Var", v.Name)
	case NodeAnd:
		return binaryToJSON("&&", v.Left, v.Right)
	case NodeOr:
		return binaryToJSON("||", v.Left, v.Right)
	case NodeNot:
		arg, err := nodeToJSON(v.Arg)
		if err != nil {
			return nil, err
		}
		return oneKey("!", unaryJSON{Arg: arg})
	case NodeNegate:
		arg, err := nodeToJSON(v.Arg)
		if err != nil {
			return nil, err
		}
		return oneKey("neg", unaryJSON{Arg: arg})
	case NodeBinary:
		return binaryToJSON(string(v.Op), v.Left, v.Right)
	case NodeIn:
		return binaryToJSON("in", v.Left, v.Right)
	case NodeContains:
		return binaryToJSON("contains", v.Left, v.Right)
	case NodeContainsAll:
		return binaryToJSON("containsAll", v.Left, v.Right)
	case NodeContainsAny:
		return binaryToJSON("containsAny", v.Left, v.Right)
	case NodeAccess:
		arg, err := nodeToJSON(v.Arg)
		if err != nil {
			return nil, err
		}
		return oneKey(".", attrJSON{Left: arg, Attr: v.Attr})
	case NodeHas:
		arg, err := nodeToJSON(v.Arg)
		if err != nil {
			return nil, err
		}
		return oneKey("has", attrJSON{Left: arg, Attr: v.Attr})
	case NodeLike:
		arg, err := nodeToJSON(v.Arg)
		if err != nil {
			return nil, err
		}
		return oneKey("like", likeJSON{Left: arg, Pattern: v.Pattern})
	case NodeIs:
		arg, err := nodeToJSON(v.Arg)
		if err != nil {
			return nil, err
		}
		return oneKey("is", isJSON{Left: arg, EntityType: v.EntityType})
	case NodeIsIn:
		arg, err := nodeToJSON(v.Arg)
		if err != nil {
			return nil, err
		}
		in, err := nodeToJSON(v.In)
		if err != nil {
			return nil, err
		}
		return oneKey("is", isJSON{Left: arg, EntityType: v.EntityType, In: in})
	case NodeIf:
		cond, err := nodeToJSON(v.If)
		if err != nil {
			return nil, err
		}
		then, err := nodeToJSON(v.Then)
		if err != nil {
			return nil, err
		}
		els, err := nodeToJSON(v.Else)
		if err != nil {
			return nil, err
		}
		return oneKey("if-then-else", ifJSON{If: cond, Then: then, Else: els})
	case NodeSet:
		elements := make([]json.RawMessage, 0, len(v.Elements))
		for _, e := range v.Elements {
			raw, err := nodeToJSON(e)
			if err != nil {
				return nil, err
			}
			elements = append(elements, raw)
		}
		return oneKey("Set", elements)
	case NodeRecord:
		var b strings.Builder
		b.WriteByte('{')
		for i, pair := range v.Pairs {
			if i > 0 {
				b.WriteByte(',')
			}
			key, err := json.Marshal(pair.Key)
			if err != nil {
				return nil, err
			}
			value, err := nodeToJSON(pair.Value)
			if err != nil {
				return nil, err
			}
			b.Write(key)
			b.WriteByte(':')
			b.Write(json.RawMessage(value))
		}
		b.WriteByte('}')
		return oneKey("Record", json.RawMessage(b.String()))
	case NodeExtensionCall:
		args := make([]json.RawMessage, 0, len(v.Args))
		for _, a := range v.Args {
			raw, err := nodeToJSON(a)
			if err != nil {
				return nil, err
			}
			args = append(args, raw)
		}
		return oneKey(v.Name, args)
	default:
		return nil, fmt.Errorf("unsupported expression node %T", n)
	}
}

func nodeFromJSON(raw json.RawMessage) (Node, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if len(fields) != 1 {
		return nil, fmt.Errorf("expression must have exactly one operator key, got %d", len(fields))
	}
	var op string
	var body json.RawMessage
	for k, v := range fields {
		op, body = k, v
	}

	switch op {
	case "Value":
		value, err := types.ValueFromJSON(body)
		if err != nil {
			return nil, err
		}
		return NodeValue{Value: value}, nil
	case "Var":
		var name string
		if err := json.Unmarshal(body, &name); err != nil {
			return nil, err
		}
		switch name {
		case "principal", "action", "resource", "context":
			return NodeVariable{Name: name}, nil
		}
		return nil, fmt.Errorf("unknown variable `%s`", name)
	case "&&", "||", "==", "!=", "<", "<=", ">", ">=", "+", "-", "*", "in", "contains", "containsAll", "containsAny":
		var b binaryJSON
		if err := json.Unmarshal(body, &b); err != nil {
			return nil, err
		}
		left, err := nodeFromJSON(b.Left)
		if err != nil {
			return nil, err
		}
		right, err := nodeFromJSON(b.Right)
		if err != nil {
			return nil, err
		}
		switch op {
		case "&&":
			return NodeAnd{Left: left, Right: right}, nil
		case "||":
			return NodeOr{Left: left, Right: right}, nil
		case "in":
			return NodeIn{Left: left, Right: right}, nil
		case "contains":
			return NodeContains{Left: left, Right: right}, nil
		case "containsAll":
			return NodeContainsAll{Left: left, Right: right}, nil
		case "containsAny":
			return NodeContainsAny{Left: left, Right: right}, nil
		default:
			return NodeBinary{Op: BinaryOp(op), Left: left, Right: right}, nil
		}
	case "!", "neg":
		var u unaryJSON
		if err := json.Unmarshal(body, &u); err != nil {
			return nil, err
		}
		arg, err := nodeFromJSON(u.Arg)
		if err != nil {
			return nil, err
		}
		if op == "!" {
			return NodeNot{Arg: arg}, nil
		}
		return NodeNegate{Arg: arg}, nil
	case ".", "has":
		var a attrJSON
		if err := json.Unmarshal(body, &a); err != nil {
			return nil, err
		}
		arg, err := nodeFromJSON(a.Left)
		if err != nil {
			return nil, err
		}
		if op == "." {
			return NodeAccess{Arg: arg, Attr: a.Attr}, nil
		}
		return NodeHas{Arg: arg, Attr: a.Attr}, nil
	case "like":
		var l likeJSON
		if err := json.Unmarshal(body, &l); err != nil {
			return nil, err
		}
		arg, err := nodeFromJSON(l.Left)
		if err != nil {
			return nil, err
		}
		return NodeLike{Arg: arg, Pattern: l.Pattern}, nil
	case "is":
		var i isJSON
		if err := json.Unmarshal(body, &i); err != nil {
			return nil, err
		}
		arg, err := nodeFromJSON(i.Left)
		if err != nil {
			return nil, err
		}
		if i.In != nil {
			in, err := nodeFromJSON(i.In)
			if err != nil {
				return nil, err
			}
			return NodeIsIn{Arg: arg, EntityType: i.EntityType, In: in}, nil
		}
		return NodeIs{Arg: arg, EntityType: i.EntityType}, nil
	case "if-then-else":
		var f ifJSON
		if err := json.Unmarshal(body, &f); err != nil {
			return nil, err
		}
		cond, err := nodeFromJSON(f.If)
		if err != nil {
			return nil, err
		}
		then, err := nodeFromJSON(f.Then)
		if err != nil {
			return nil, err
		}
		els, err := nodeFromJSON(f.Else)
		if err != nil {
			return nil, err
		}
		return NodeIf{If: cond, Then: then, Else: els}, nil
	case "Set":
		var elements []json.RawMessage
		if err := json.Unmarshal(body, &elements); err != nil {
			return nil, err
		}
		nodes := make([]Node, 0, len(elements))
		for _, e := range elements {
			node, err := nodeFromJSON(e)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, node)
		}
		return NodeSet{Elements: nodes}, nil
	case "Record":
		var pairs map[string]json.RawMessage
		if err := json.Unmarshal(body, &pairs); err != nil {
			return nil, err
		}
		record := NodeRecord{Pairs: make([]RecordPair, 0, len(pairs))}
		for _, key := range types.SortedKeys(pairs) {
			value, err := nodeFromJSON(pairs[key])
			if err != nil {
				return nil, err
			}
			record.Pairs = append(record.Pairs, RecordPair{Key: key, Value: value})
		}
		return record, nil
	default:
		var args []json.RawMessage
		if err := json.Unmarshal(body, &args); err != nil {
			return nil, fmt.Errorf("extension call `%s`: %w", op, err)
		}
		nodes := make([]Node, 0, len(args))
		for _, a := range args {
			node, err := nodeFromJSON(a)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, node)
		}
		method := !constructorExtensions[op] && len(nodes) > 0
		return NodeExtensionCall{Name: op, Args: nodes, MethodForm: method}, nil
	}
}
