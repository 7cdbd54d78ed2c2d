package entities

import (
	"testing"

	"github.com/authz-engine/policy-core/pkg/types"
)

func uid(entityType, id string) types.EntityUID {
	return types.NewEntityUID(entityType, id)
}

func entity(u types.EntityUID, parents ...types.EntityUID) types.Entity {
	return types.NewEntity(u, types.EmptyRecord(), parents)
}

func TestGetAndLen(t *testing.T) {
	alice := uid("User", "alice")
	store := NewStore([]types.Entity{entity(alice)})
	if store.Len() != 1 {
		t.Errorf("Len = %d", store.Len())
	}
	if _, ok := store.Get(alice); !ok {
		t.Error("alice should be present")
	}
	if _, ok := store.Get(uid("User", "bob")); ok {
		t.Error("bob should be absent")
	}
}

func TestAncestorsChain(t *testing.T) {
	alice := uid("User", "alice")
	eng := uid("Group", "engineering")
	all := uid("Group", "everyone")
	store := NewStore([]types.Entity{
		entity(alice, eng),
		entity(eng, all),
		entity(all),
	})

	got := store.Ancestors(alice)
	if len(got) != 2 {
		t.Fatalf("closure size = %d, want 2", len(got))
	}
	for _, want := range []types.EntityUID{eng, all} {
		if _, ok := got[want]; !ok {
			t.Errorf("closure missing %v", want)
		}
	}
	if _, ok := got[alice]; ok {
		t.Error("alice is not her own ancestor in an acyclic graph")
	}
}

func TestAncestorsTerminatesOnCycle(t *testing.T) {
	a := uid("Group", "a")
	b := uid("Group", "b")
	c := uid("Group", "c")
	store := NewStore([]types.Entity{
		entity(a, b),
		entity(b, c),
		entity(c, a),
	})

	got := store.Ancestors(a)
	if len(got) != 3 {
		t.Fatalf("closure size = %d, want 3", len(got))
	}
	for _, want := range []types.EntityUID{a, b, c} {
		if _, ok := got[want]; !ok {
			t.Errorf("closure missing %v", want)
		}
	}
}

func TestAncestorsOfUnknownEntity(t *testing.T) {
	store := NewStore(nil)
	if got := store.Ancestors(uid("User", "ghost")); len(got) != 0 {
		t.Errorf("closure of unknown entity = %v, want empty", got)
	}
}

func TestAncestorsParentNotInStore(t *testing.T) {
	alice := uid("User", "alice")
	ghost := uid("Group", "ghost")
	store := NewStore([]types.Entity{entity(alice, ghost)})

	got := store.Ancestors(alice)
	if _, ok := got[ghost]; !ok {
		t.Error("declared parents count even when the parent record is absent")
	}
}

func TestIsDescendantOf(t *testing.T) {
	alice := uid("User", "alice")
	eng := uid("Group", "engineering")
	store := NewStore([]types.Entity{entity(alice, eng), entity(eng)})

	if !store.IsDescendantOf(alice, eng) {
		t.Error("alice in engineering should hold")
	}
	if !store.IsDescendantOf(alice, alice) {
		t.Error("an entity is in itself")
	}
	if store.IsDescendantOf(eng, alice) {
		t.Error("membership is not symmetric")
	}
}

func TestMemoizationReturnsSameClosure(t *testing.T) {
	alice := uid("User", "alice")
	eng := uid("Group", "engineering")
	store := NewStore([]types.Entity{entity(alice, eng)})

	first := store.Ancestors(alice)
	second := store.Ancestors(alice)
	if len(first) != len(second) {
		t.Error("memoized closure differs")
	}
}

func TestParseJSON(t *testing.T) {
	data := []byte(`[
		{
			"uid": {"type": "User", "id": "alice"},
			"attrs": {"age": 30, "name": "Alice", "team": {"__entity": {"type": "Group", "id": "eng"}}},
			"parents": [{"type": "Group", "id": "eng"}]
		},
		{
			"uid": {"type": "Group", "id": "eng"},
			"attrs": {},
			"parents": []
		}
	]`)
	store, err := ParseJSON(data)
	if err != nil {
		t.Fatalf("ParseJSON failed: %v", err)
	}
	alice, ok := store.Get(uid("User", "alice"))
	if !ok {
		t.Fatal("alice missing")
	}
	if v, ok := alice.Attrs.Get("age"); !ok || !v.Equal(types.Long(30)) {
		t.Errorf("age = %v", v)
	}
	if v, ok := alice.Attrs.Get("team"); !ok || !v.Equal(uid("Group", "eng")) {
		t.Errorf("team = %v", v)
	}
	if !store.IsDescendantOf(uid("User", "alice"), uid("Group", "eng")) {
		t.Error("parents edge missing")
	}
}

func TestParseJSONRejectsNonArray(t *testing.T) {
	if _, err := ParseJSON([]byte(`{}`)); err == nil {
		t.Error("object input should fail")
	}
	if _, err := ParseJSON([]byte(`[{"attrs": {}}]`)); err == nil {
		t.Error("missing uid should fail")
	}
}
