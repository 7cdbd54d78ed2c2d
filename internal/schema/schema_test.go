package schema

import (
	"sort"
	"strings"
	"testing"

	"github.com/authz-engine/policy-core/pkg/types"
)

const photoAppSchema = `{
	"PhotoApp": {
		"commonTypes": {
			"PersonType": {
				"type": "Record",
				"attributes": {
					"age": {"type": "Long"},
					"name": {"type": "String"}
				}
			},
			"ContextType": {
				"type": "Record",
				"attributes": {
					"ip": {"type": "Extension", "name": "ipaddr"}
				}
			}
		},
		"entityTypes": {
			"User": {
				"shape": {
					"type": "Record",
					"attributes": {
						"employeeId": {"type": "String", "required": true},
						"personInfo": {"type": "PersonType"}
					}
				},
				"memberOfTypes": ["UserGroup"]
			},
			"UserGroup": {
				"shape": {"type": "Record", "attributes": {}}
			},
			"Photo": {
				"shape": {"type": "Record", "attributes": {}},
				"memberOfTypes": ["Album"]
			},
			"Album": {
				"shape": {"type": "Record", "attributes": {}}
			}
		},
		"actions": {
			"viewPhoto": {
				"appliesTo": {
					"principalTypes": ["User", "UserGroup"],
					"resourceTypes": ["Photo"],
					"context": {"type": "ContextType"}
				}
			},
			"listPhotos": {
				"appliesTo": {
					"principalTypes": ["User", "UserGroup"],
					"resourceTypes": ["Photo"],
					"context": {"type": "ContextType"}
				}
			}
		}
	}
}`

func TestParsePhotoAppSchema(t *testing.T) {
	s, err := ParseJSON([]byte(photoAppSchema))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if len(s.EntityTypes) != 4 {
		t.Fatalf("got %d entity types", len(s.EntityTypes))
	}
	user, ok := s.EntityTypes["PhotoApp::User"]
	if !ok {
		t.Fatal("PhotoApp::User missing; names must be namespace-qualified")
	}
	if len(user.MemberOfTypes) != 1 || user.MemberOfTypes[0] != "PhotoApp::UserGroup" {
		t.Errorf("memberOfTypes = %v", user.MemberOfTypes)
	}
	emp, ok := user.Shape.Attributes["employeeId"]
	if !ok {
		t.Fatal("employeeId attribute missing")
	}
	if _, ok := emp.Type.(StringType); !ok || !emp.Required {
		t.Errorf("employeeId = %+v", emp)
	}
	// personInfo expands the PersonType common type.
	info, ok := user.Shape.Attributes["personInfo"]
	if !ok {
		t.Fatal("personInfo attribute missing")
	}
	rec, ok := info.Type.(RecordType)
	if !ok {
		t.Fatalf("personInfo resolved to %T", info.Type)
	}
	if _, ok := rec.Attributes["age"].Type.(LongType); !ok {
		t.Errorf("personInfo.age = %+v", rec.Attributes["age"])
	}

	view, ok := s.Actions[types.NewEntityUID("PhotoApp::Action", "viewPhoto")]
	if !ok {
		t.Fatal("viewPhoto action missing")
	}
	if len(view.PrincipalTypes) != 2 || view.PrincipalTypes[0] != "PhotoApp::User" {
		t.Errorf("principalTypes = %v", view.PrincipalTypes)
	}
	ipAttr, ok := view.Context.Attributes["ip"]
	if !ok {
		t.Fatal("context.ip missing; ContextType should expand")
	}
	ext, ok := ipAttr.Type.(ExtensionType)
	if !ok || ext.Name != "ipaddr" {
		t.Errorf("context.ip = %+v", ipAttr.Type)
	}
}

func TestRequiredDefaultsTrue(t *testing.T) {
	src := `{"": {"entityTypes": {"User": {"shape": {"type": "Record", "attributes": {
		"a": {"type": "Long"},
		"b": {"type": "Long", "required": false}
	}}}}, "actions": {}}}`
	s, err := ParseJSON([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	user := s.EntityTypes["User"]
	if user == nil {
		t.Fatal("empty namespace should leave names unqualified")
	}
	if !user.Shape.Attributes["a"].Required {
		t.Error("a should default to required")
	}
	if user.Shape.Attributes["b"].Required {
		t.Error("b is declared optional")
	}
}

func TestEntityTypesIn(t *testing.T) {
	s, err := ParseJSON([]byte(photoAppSchema))
	if err != nil {
		t.Fatal(err)
	}
	got := s.EntityTypesIn("PhotoApp::Album")
	sort.Strings(got)
	want := []string{"PhotoApp::Album", "PhotoApp::Photo"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("EntityTypesIn(Album) = %v, want %v", got, want)
	}
	if got := s.EntityTypesIn("PhotoApp::Photo"); len(got) != 1 {
		t.Errorf("EntityTypesIn(Photo) = %v", got)
	}
}

func TestActionInGroup(t *testing.T) {
	src := `{"NS": {"entityTypes": {}, "actions": {
		"readOnly": {},
		"view": {"memberOf": [{"id": "readOnly"}]},
		"zoom": {"memberOf": [{"id": "view"}]}
	}}}`
	s, err := ParseJSON([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	readOnly := types.NewEntityUID("NS::Action", "readOnly")
	view := types.NewEntityUID("NS::Action", "view")
	zoom := types.NewEntityUID("NS::Action", "zoom")
	if !s.ActionInGroup(view, readOnly) {
		t.Error("view should be in readOnly")
	}
	if !s.ActionInGroup(zoom, readOnly) {
		t.Error("zoom should be in readOnly transitively")
	}
	if !s.ActionInGroup(view, view) {
		t.Error("an action is in itself")
	}
	if s.ActionInGroup(readOnly, zoom) {
		t.Error("membership is not symmetric")
	}
}

func TestSyntaxErrorPosition(t *testing.T) {
	src := "{\n\t\"NS\": {\n\t\t\"entityTypes\": {}\n\t\t\"actions\": {}\n\t}\n}"
	_, err := ParseJSON([]byte(src))
	if err == nil {
		t.Fatal("expected syntax error")
	}
	msg := err.Error()
	if !strings.HasPrefix(msg, "failed to parse schema: ") {
		t.Errorf("missing prefix: %s", msg)
	}
	if !strings.Contains(msg, "at line 4 column ") {
		t.Errorf("missing position: %s", msg)
	}
}

func TestUndeclaredCommonType(t *testing.T) {
	src := `{"": {"entityTypes": {"User": {"shape": {"type": "Record", "attributes": {
		"info": {"type": "Mystery"}
	}}}}, "actions": {}}}`
	_, err := ParseJSON([]byte(src))
	if err == nil || !strings.Contains(err.Error(), "undeclared common type `Mystery`") {
		t.Errorf("got %v", err)
	}
}

func TestCommonTypeCycle(t *testing.T) {
	src := `{"": {
		"commonTypes": {
			"A": {"type": "Record", "attributes": {"b": {"type": "B"}}},
			"B": {"type": "Record", "attributes": {"a": {"type": "A"}}}
		},
		"entityTypes": {"User": {"shape": {"type": "A"}}},
		"actions": {}
	}}`
	_, err := ParseJSON([]byte(src))
	if err == nil || !strings.Contains(err.Error(), "cycle in common type definitions") {
		t.Errorf("got %v", err)
	}
}

func TestUndeclaredReferences(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			"memberOfTypes",
			`{"": {"entityTypes": {"User": {"memberOfTypes": ["Ghost"]}}, "actions": {}}}`,
			"undeclared entity type `Ghost`",
		},
		{
			"shape entity ref",
			`{"": {"entityTypes": {"User": {"shape": {"type": "Record", "attributes": {"boss": {"type": "Entity", "name": "Ghost"}}}}}, "actions": {}}}`,
			"undeclared entity type `Ghost`",
		},
		{
			"principal type",
			`{"": {"entityTypes": {"Doc": {}}, "actions": {"read": {"appliesTo": {"principalTypes": ["Ghost"], "resourceTypes": ["Doc"]}}}}}`,
			"undeclared principal type `Ghost`",
		},
		{
			"action memberOf",
			`{"": {"entityTypes": {}, "actions": {"read": {"memberOf": [{"id": "ghost"}]}}}}`,
			"undeclared action",
		},
	}
	for _, tt := range tests {
		_, err := ParseJSON([]byte(tt.src))
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: got %v, want substring %q", tt.name, err, tt.want)
		}
	}
}

func TestContextMustBeRecord(t *testing.T) {
	src := `{"": {"entityTypes": {"Doc": {}}, "actions": {"read": {"appliesTo": {
		"principalTypes": ["Doc"], "resourceTypes": ["Doc"], "context": {"type": "Long"}
	}}}}}`
	_, err := ParseJSON([]byte(src))
	if err == nil || !strings.Contains(err.Error(), "context is not a record") {
		t.Errorf("got %v", err)
	}
}

func TestSetTypeResolution(t *testing.T) {
	src := `{"": {"entityTypes": {
		"Team": {},
		"User": {"shape": {"type": "Record", "attributes": {
			"teams": {"type": "Set", "element": {"type": "Entity", "name": "Team"}}
		}}}
	}, "actions": {}}}`
	s, err := ParseJSON([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	teams := s.EntityTypes["User"].Shape.Attributes["teams"]
	set, ok := teams.Type.(SetType)
	if !ok {
		t.Fatalf("teams = %T", teams.Type)
	}
	ref, ok := set.Element.(EntityRefType)
	if !ok || ref.Name != "Team" {
		t.Errorf("element = %+v", set.Element)
	}
}
