package validator

import (
	"fmt"
	"slices"

	"github.com/authz-engine/policy-core/internal/policy"
	"github.com/authz-engine/policy-core/pkg/types"
)

// scopeCandidates works out which entity types and actions each head
// constraint admits. nil means unconstrained; an empty non-nil slice
// means the constraint admits nothing.
type scopeCandidates struct {
	principalTypes []string
	actionUIDs     []types.EntityUID
	resourceTypes  []string
}

func (v *Validator) resolveScopes(p *policy.Policy) (scopeCandidates, []Issue) {
	var out scopeCandidates
	var issues []Issue

	pt, issue := v.entityScopeCandidates(p.Principal)
	if issue != nil {
		issues = append(issues, *issue)
	}
	out.principalTypes = pt

	au, issue := v.actionScopeCandidates(p.Action)
	if issue != nil {
		issues = append(issues, *issue)
	}
	out.actionUIDs = au

	rt, issue := v.entityScopeCandidates(p.Resource)
	if issue != nil {
		issues = append(issues, *issue)
	}
	out.resourceTypes = rt

	return out, issues
}

// entityScopeCandidates handles the principal and resource heads, which
// admit ==, in, is, and is..in constraints.
func (v *Validator) entityScopeCandidates(s policy.Scope) ([]string, *Issue) {
	switch c := s.(type) {
	case policy.ScopeAll:
		return nil, nil
	case policy.ScopeEq:
		if issue := v.checkEntityTypeDeclared(c.Entity.Type); issue != nil {
			return []string{}, issue
		}
		return []string{c.Entity.Type}, nil
	case policy.ScopeIn:
		if issue := v.checkEntityTypeDeclared(c.Entity.Type); issue != nil {
			return []string{}, issue
		}
		return v.schema.EntityTypesIn(c.Entity.Type), nil
	case policy.ScopeIs:
		if issue := v.checkEntityTypeDeclared(c.EntityType); issue != nil {
			return []string{}, issue
		}
		return []string{c.EntityType}, nil
	case policy.ScopeIsIn:
		if issue := v.checkEntityTypeDeclared(c.EntityType); issue != nil {
			return []string{}, issue
		}
		if issue := v.checkEntityTypeDeclared(c.Entity.Type); issue != nil {
			return []string{}, issue
		}
		if !slices.Contains(v.schema.EntityTypesIn(c.Entity.Type), c.EntityType) {
			return []string{}, &Issue{
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("scope can never match: entity type `%s` can never be a member of `%s`", c.EntityType, c.Entity.Type),
			}
		}
		return []string{c.EntityType}, nil
	default:
		return []string{}, &Issue{Severity: SeverityError, Message: fmt.Sprintf("unsupported scope constraint %T", s)}
	}
}

// actionScopeCandidates handles the action head. An `in` constraint is
// expanded to the concrete actions the schema places in the group.
func (v *Validator) actionScopeCandidates(s policy.Scope) ([]types.EntityUID, *Issue) {
	switch c := s.(type) {
	case policy.ScopeAll:
		return nil, nil
	case policy.ScopeEq:
		if issue := v.checkActionDeclared(c.Entity); issue != nil {
			return []types.EntityUID{}, issue
		}
		return []types.EntityUID{c.Entity}, nil
	case policy.ScopeIn:
		if issue := v.checkActionDeclared(c.Entity); issue != nil {
			return []types.EntityUID{}, issue
		}
		return v.actionsInGroup(c.Entity), nil
	case policy.ScopeInSet:
		var out []types.EntityUID
		for _, target := range c.Entities {
			if issue := v.checkActionDeclared(target); issue != nil {
				return []types.EntityUID{}, issue
			}
			for _, uid := range v.actionsInGroup(target) {
				if !slices.Contains(out, uid) {
					out = append(out, uid)
				}
			}
		}
		return out, nil
	default:
		return []types.EntityUID{}, &Issue{Severity: SeverityError, Message: fmt.Sprintf("unsupported action scope constraint %T", s)}
	}
}

func (v *Validator) actionsInGroup(group types.EntityUID) []types.EntityUID {
	var out []types.EntityUID
	for uid := range v.schema.Actions {
		if v.schema.ActionInGroup(uid, group) {
			out = append(out, uid)
		}
	}
	slices.SortFunc(out, compareUID)
	return out
}

func (v *Validator) checkEntityTypeDeclared(name string) *Issue {
	if _, ok := v.schema.EntityTypes[name]; ok {
		return nil
	}
	return &Issue{Severity: SeverityError, Message: fmt.Sprintf("unrecognized entity type `%s`", name)}
}

func (v *Validator) checkActionDeclared(uid types.EntityUID) *Issue {
	if _, ok := v.schema.Actions[uid]; ok {
		return nil
	}
	return &Issue{Severity: SeverityError, Message: fmt.Sprintf("unrecognized action id `%s`", uid)}
}

// checkApplicability verifies some declared action satisfies all three
// head constraints at once.
func (v *Validator) checkApplicability(c scopeCandidates) *Issue {
	actions := c.actionUIDs
	if actions == nil {
		for uid := range v.schema.Actions {
			actions = append(actions, uid)
		}
	}
	for _, uid := range actions {
		action, ok := v.schema.Actions[uid]
		if !ok {
			continue
		}
		if len(action.PrincipalTypes) == 0 || len(action.ResourceTypes) == 0 {
			continue
		}
		principalOK := c.principalTypes == nil
		if !principalOK {
			for _, pt := range c.principalTypes {
				if slices.Contains(action.PrincipalTypes, pt) {
					principalOK = true
					break
				}
			}
		}
		resourceOK := c.resourceTypes == nil
		if !resourceOK {
			for _, rt := range c.resourceTypes {
				if slices.Contains(action.ResourceTypes, rt) {
					resourceOK = true
					break
				}
			}
		}
		if principalOK && resourceOK {
			return nil
		}
	}
	return &Issue{
		Severity: SeverityWarning,
		Message:  "policy applies to no principal, action, and resource combination declared in the schema",
	}
}
