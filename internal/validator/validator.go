package validator

import (
	"fmt"
	"strings"

	"github.com/authz-engine/policy-core/internal/extensions"
	"github.com/authz-engine/policy-core/internal/policy"
	"github.com/authz-engine/policy-core/internal/schema"
)

// Severity grades an issue. Errors mark policies that are provably
// inconsistent with the schema; warnings mark policies that are legal
// but can never apply, or accesses that may fault at runtime.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one finding against one policy.
type Issue struct {
	PolicyID string
	Severity Severity
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("validation %s on policy `%s`: %s", i.Severity, i.PolicyID, i.Message)
}

func newIssue(sev Severity, format string, args ...any) Issue {
	return Issue{Severity: sev, Message: fmt.Sprintf(format, args...)}
}

// Result collects the issues for a whole policy set, in policy order.
type Result struct {
	Issues []Issue
}

// Valid reports whether validation produced no errors. Warnings alone do
// not make a policy set invalid.
func (r *Result) Valid() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			return false
		}
	}
	return true
}

func (r *Result) String() string {
	if len(r.Issues) == 0 {
		return "no errors or warnings"
	}
	lines := make([]string, len(r.Issues))
	for i, issue := range r.Issues {
		lines[i] = issue.String()
	}
	return strings.Join(lines, "\n")
}

// Options adjusts validation strictness.
type Options struct {
	// UnguardedOptionalAccess sets how reading an optional attribute
	// without a has guard on the same path is reported. The zero value
	// means SeverityWarning, in which case checking continues under the
	// declared attribute type.
	UnguardedOptionalAccess Severity
}

// Validator checks policy sets against one schema. It is immutable and
// safe for concurrent use.
type Validator struct {
	schema      *schema.Schema
	registry    *extensions.Registry
	opts        Options
	actionTypes map[string]bool
	envs        []requestEnv
}

// New builds a validator for the schema. A nil registry means the
// default extension functions.
func New(s *schema.Schema, reg *extensions.Registry, opts Options) *Validator {
	if reg == nil {
		reg = extensions.DefaultRegistry()
	}
	if opts.UnguardedOptionalAccess == "" {
		opts.UnguardedOptionalAccess = SeverityWarning
	}
	actionTypes := make(map[string]bool, len(s.Actions))
	for uid := range s.Actions {
		actionTypes[uid.Type] = true
	}
	return &Validator{
		schema:      s,
		registry:    reg,
		opts:        opts,
		actionTypes: actionTypes,
		envs:        requestEnvs(s),
	}
}

// ValidateSet checks every policy and returns the combined findings.
func (v *Validator) ValidateSet(ps *policy.Set) *Result {
	var issues []Issue
	for _, p := range ps.Policies() {
		found := v.validatePolicy(p)
		for i := range found {
			found[i].PolicyID = p.ID
		}
		issues = append(issues, found...)
	}
	return &Result{Issues: issues}
}

// validatePolicy runs the stages in order and stops at the first stage
// that fails: a policy whose scope does not resolve gets exactly the
// scope findings, with no follow-on noise from later stages.
func (v *Validator) validatePolicy(p *policy.Policy) []Issue {
	candidates, issues := v.resolveScopes(p)
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			return issues
		}
	}
	if scopeImpossible(candidates) {
		return issues
	}
	if issue := v.checkApplicability(candidates); issue != nil {
		return append(issues, *issue)
	}
	envs := filterEnvs(v.envs, candidates.principalTypes, candidates.actionUIDs, candidates.resourceTypes)
	if len(envs) == 0 {
		return issues
	}

	seen := make(map[Issue]bool)
	satisfiable := false
	for _, env := range envs {
		ch := &checker{v: v, env: env}
		if ch.checkConditions(p.Conditions) {
			satisfiable = true
		}
		for _, issue := range ch.issues {
			if seen[issue] {
				continue
			}
			seen[issue] = true
			issues = append(issues, issue)
		}
	}
	if !satisfiable {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Message:  "policy conditions can never be satisfied for any valid request",
		})
	}
	return issues
}

func scopeImpossible(c scopeCandidates) bool {
	return (c.principalTypes != nil && len(c.principalTypes) == 0) ||
		(c.actionUIDs != nil && len(c.actionUIDs) == 0) ||
		(c.resourceTypes != nil && len(c.resourceTypes) == 0)
}

func (v *Validator) knownEntityType(name string) bool {
	if _, ok := v.schema.EntityTypes[name]; ok {
		return true
	}
	return v.actionTypes[name]
}
