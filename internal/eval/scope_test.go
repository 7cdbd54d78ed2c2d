package eval

import (
	"testing"

	"github.com/authz-engine/policy-core/internal/parser"
	"github.com/authz-engine/policy-core/pkg/types"
)

func TestScopeMatching(t *testing.T) {
	env := testEnv(t,
		types.NewEntity(alice, types.EmptyRecord(), []types.EntityUID{admins}),
		types.NewEntity(view, types.EmptyRecord(), []types.EntityUID{types.NewEntityUID("Action", "readOnly")}),
	)
	tests := []struct {
		src  string
		want bool
	}{
		{`permit(principal, action, resource);`, true},
		{`permit(principal == User::"alice", action, resource);`, true},
		{`permit(principal == User::"bob", action, resource);`, false},
		{`permit(principal in Group::"admins", action, resource);`, true},
		{`permit(principal in Group::"other", action, resource);`, false},
		{`permit(principal is User, action, resource);`, true},
		{`permit(principal is Group, action, resource);`, false},
		{`permit(principal is User in Group::"admins", action, resource);`, true},
		{`permit(principal, action == Action::"view", resource);`, true},
		{`permit(principal, action == Action::"edit", resource);`, false},
		{`permit(principal, action in [Action::"edit", Action::"view"], resource);`, true},
		{`permit(principal, action in [Action::"edit"], resource);`, false},
		{`permit(principal, action in Action::"readOnly", resource);`, true},
		{`permit(principal, action, resource == Photo::"vacation.jpg");`, true},
		{`permit(principal, action, resource == Photo::"other.jpg");`, false},
		{`permit(principal, action, resource is Photo);`, true},
	}
	for _, tt := range tests {
		p, err := parser.ParsePolicy(tt.src)
		if err != nil {
			t.Fatalf("parse %q: %v", tt.src, err)
		}
		got, err := PolicyMatches(env, p)
		if err != nil {
			t.Fatalf("match %q: %v", tt.src, err)
		}
		if got != tt.want {
			t.Errorf("%s matched %v, want %v", tt.src, got, tt.want)
		}
	}
}

func TestPolicyMatchesConditions(t *testing.T) {
	env := testEnv(t,
		types.NewEntity(alice, types.NewRecord(map[string]types.Value{"age": types.Long(30)}), nil),
	)
	tests := []struct {
		src  string
		want bool
	}{
		{`permit(principal, action, resource) when { principal.age > 18 };`, true},
		{`permit(principal, action, resource) when { principal.age > 40 };`, false},
		{`permit(principal, action, resource) unless { principal.age > 18 };`, false},
		{`permit(principal, action, resource) unless { principal.age > 40 };`, true},
		{`permit(principal, action, resource) when { context.authenticated } when { context.port == 443 };`, true},
		{`permit(principal, action, resource) when { context.authenticated } unless { context.port == 443 };`, false},
	}
	for _, tt := range tests {
		p, err := parser.ParsePolicy(tt.src)
		if err != nil {
			t.Fatalf("parse %q: %v", tt.src, err)
		}
		got, err := PolicyMatches(env, p)
		if err != nil {
			t.Fatalf("match %q: %v", tt.src, err)
		}
		if got != tt.want {
			t.Errorf("%s matched %v, want %v", tt.src, got, tt.want)
		}
	}
}

func TestPolicyMatchesFaultPropagates(t *testing.T) {
	env := testEnv(t) // alice has no stored entity, so .age faults
	p, err := parser.ParsePolicy(`permit(principal, action, resource) when { principal.age > 18 };`)
	if err != nil {
		t.Fatal(err)
	}
	matched, err := PolicyMatches(env, p)
	if err == nil {
		t.Fatal("expected a fault")
	}
	if matched {
		t.Error("faulting policy must not match")
	}
}

func TestScopeSkipsConditionFault(t *testing.T) {
	// When the scope does not match, conditions are never evaluated and
	// their faults never surface.
	env := testEnv(t)
	p, err := parser.ParsePolicy(`permit(principal == User::"bob", action, resource) when { principal.age > 18 };`)
	if err != nil {
		t.Fatal(err)
	}
	matched, err := PolicyMatches(env, p)
	if err != nil {
		t.Fatalf("unexpected fault: %v", err)
	}
	if matched {
		t.Error("scope mismatch must not match")
	}
}
