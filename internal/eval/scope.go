package eval

import (
	"github.com/authz-engine/policy-core/internal/policy"
	"github.com/authz-engine/policy-core/pkg/types"
)

// ScopeMatches reports whether an entity satisfies one head constraint.
// Head constraints compare UIDs and walk the hierarchy only; they never
// fault.
func ScopeMatches(env *Env, s policy.Scope, uid types.EntityUID) bool {
	switch c := s.(type) {
	case policy.ScopeAll:
		return true
	case policy.ScopeEq:
		return uid == c.Entity
	case policy.ScopeIn:
		return env.Entities.IsDescendantOf(uid, c.Entity)
	case policy.ScopeInSet:
		for _, target := range c.Entities {
			if env.Entities.IsDescendantOf(uid, target) {
				return true
			}
		}
		return false
	case policy.ScopeIs:
		return uid.Type == c.EntityType
	case policy.ScopeIsIn:
		return uid.Type == c.EntityType && env.Entities.IsDescendantOf(uid, c.Entity)
	default:
		return false
	}
}

// PolicyMatches reports whether the request satisfies a policy: all three
// head constraints hold and every when/unless clause holds. A fault in a
// condition makes only this policy unsatisfied; the caller records it.
func PolicyMatches(env *Env, p *policy.Policy) (bool, error) {
	if !ScopeMatches(env, p.Principal, env.Request.Principal) {
		return false, nil
	}
	if !ScopeMatches(env, p.Action, env.Request.Action) {
		return false, nil
	}
	if !ScopeMatches(env, p.Resource, env.Request.Resource) {
		return false, nil
	}
	for _, c := range p.Conditions {
		ok, err := ConditionHolds(env, c)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
