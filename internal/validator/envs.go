package validator

import (
	"maps"
	"slices"

	"github.com/authz-engine/policy-core/internal/schema"
	"github.com/authz-engine/policy-core/pkg/types"
)

// requestEnv is one concrete typing of the request variables: an action
// together with one declared principal/resource type pair it applies to.
// Conditions are checked once per environment.
type requestEnv struct {
	principalType string
	actionUID     types.EntityUID
	resourceType  string
	context       cRecord
}

// requestEnvs builds every environment the schema declares.
func requestEnvs(s *schema.Schema) []requestEnv {
	var envs []requestEnv
	for uid, action := range s.Actions {
		ctx := fromRecordType(action.Context)
		for _, pt := range action.PrincipalTypes {
			for _, rt := range action.ResourceTypes {
				envs = append(envs, requestEnv{
					principalType: pt,
					actionUID:     uid,
					resourceType:  rt,
					context:       ctx,
				})
			}
		}
	}
	// Deterministic order keeps issue output stable.
	slices.SortFunc(envs, func(a, b requestEnv) int {
		if c := compareUID(a.actionUID, b.actionUID); c != 0 {
			return c
		}
		if a.principalType != b.principalType {
			return compareString(a.principalType, b.principalType)
		}
		return compareString(a.resourceType, b.resourceType)
	})
	return envs
}

func compareUID(a, b types.EntityUID) int {
	if a.Type != b.Type {
		return compareString(a.Type, b.Type)
	}
	return compareString(a.ID, b.ID)
}

func compareString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// filterEnvs keeps the environments compatible with the policy's scope
// candidates. A nil candidate list means the scope is unconstrained.
func filterEnvs(envs []requestEnv, principalTypes []string, actionUIDs []types.EntityUID, resourceTypes []string) []requestEnv {
	var out []requestEnv
	for _, env := range envs {
		if principalTypes != nil && !slices.Contains(principalTypes, env.principalType) {
			continue
		}
		if resourceTypes != nil && !slices.Contains(resourceTypes, env.resourceType) {
			continue
		}
		if actionUIDs != nil && !slices.Contains(actionUIDs, env.actionUID) {
			continue
		}
		out = append(out, env)
	}
	return out
}

// capability records that an attribute access is known safe because a
// `has` test guards it on the same path.
type capability struct {
	path string
	attr string
}

type capabilitySet map[capability]bool

func (cs capabilitySet) with(c capability) capabilitySet {
	out := maps.Clone(cs)
	if out == nil {
		out = capabilitySet{}
	}
	out[c] = true
	return out
}

func (cs capabilitySet) merge(other capabilitySet) capabilitySet {
	if len(other) == 0 {
		return cs
	}
	out := maps.Clone(cs)
	if out == nil {
		out = capabilitySet{}
	}
	maps.Copy(out, other)
	return out
}

// intersect keeps the capabilities both sides guarantee. Disjunctions
// only establish what every branch establishes.
func (cs capabilitySet) intersect(other capabilitySet) capabilitySet {
	out := capabilitySet{}
	for c := range cs {
		if other[c] {
			out[c] = true
		}
	}
	return out
}
