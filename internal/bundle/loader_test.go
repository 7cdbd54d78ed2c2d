package bundle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authz-engine/policy-core/pkg/types"
)

const testManifest = `name: photo-app
version: 1.2.0
description: Photo sharing access policies
policy_files:
  - access.cedar
  - admin.cedar
schema_file: schema.json
entity_file: entities.json
`

const testAccessCedar = `permit(
  principal == User::"alice",
  action in [Action::"read", Action::"edit"],
  resource == Photo::"foo.jpg"
);
`

const testAdminCedar = `@id("admin-all")
permit(principal in Group::"admins", action, resource);

forbid(principal, action == Action::"delete", resource is Photo)
when { !context.approved };
`

// Schema and entity fixtures carry comments and trailing commas on purpose;
// the loader strips them before decoding.
const testSchemaJSONC = `{
  // Photo sharing application schema
  "PhotoApp": {
    "entityTypes": {
      "User": {
        "memberOfTypes": ["Group"],
      },
      "Group": {},
      "Photo": {
        "shape": {
          "type": "Record",
          "attributes": {
            "private": {"type": "Boolean"},
          },
        },
      },
    },
    "actions": {
      "read": {
        "appliesTo": {
          "principalTypes": ["User"],
          "resourceTypes": ["Photo"],
        },
      },
    },
  },
}
`

const testEntitiesJSONC = `[
  // seed records
  {
    "uid": {"type": "User", "id": "alice"},
    "attrs": {"age": 24},
    "parents": [{"type": "Group", "id": "admins"}],
  },
  {"uid": {"type": "Group", "id": "admins"}, "attrs": {}, "parents": []},
]
`

func writeBundleDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func TestLoaderLoadsBundle(t *testing.T) {
	dir := writeBundleDir(t, map[string]string{
		ManifestFile:    testManifest,
		"access.cedar":  testAccessCedar,
		"admin.cedar":   testAdminCedar,
		"schema.json":   testSchemaJSONC,
		"entities.json": testEntitiesJSONC,
	})

	b, err := NewLoader(nil).Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "photo-app", b.Manifest.Name)
	assert.Equal(t, "1.2.0", b.Manifest.Version)

	require.Equal(t, 3, b.Policies.Len())
	policies := b.Policies.Policies()
	assert.Equal(t, "policy0", policies[0].ID)
	assert.Equal(t, "admin-all", policies[1].ID)
	assert.Equal(t, "policy2", policies[2].ID)
	assert.Equal(t, types.EffectPermit, policies[0].Effect)
	assert.Equal(t, types.EffectForbid, policies[2].Effect)

	require.NotNil(t, b.Schema)
	assert.Contains(t, b.Schema.EntityTypes, "PhotoApp::User")
	assert.Contains(t, b.Schema.EntityTypes, "PhotoApp::Photo")

	require.Equal(t, 2, b.Entities.Len())
	alice, ok := b.Entities.Get(types.NewEntityUID("User", "alice"))
	require.True(t, ok)
	assert.True(t, b.Entities.IsDescendantOf(alice.UID, types.NewEntityUID("Group", "admins")))
}

func TestLoaderScansCedarFilesWithoutManifestList(t *testing.T) {
	dir := writeBundleDir(t, map[string]string{
		ManifestFile: "name: scanned\nversion: 0.1.0\n",
		"b.cedar":    "forbid(principal, action, resource);\n",
		"a.cedar":    "permit(principal, action, resource);\n",
		"notes.txt":  "not a policy\n",
	})

	b, err := NewLoader(nil).Load(dir)
	require.NoError(t, err)

	require.Equal(t, 2, b.Policies.Len())
	policies := b.Policies.Policies()
	assert.Equal(t, "policy0", policies[0].ID)
	assert.Equal(t, types.EffectPermit, policies[0].Effect)
	assert.Equal(t, "policy1", policies[1].ID)
	assert.Equal(t, types.EffectForbid, policies[1].Effect)
}

func TestLoaderRejectsBadPolicyFile(t *testing.T) {
	dir := writeBundleDir(t, map[string]string{
		ManifestFile:   "name: broken\nversion: 0.1.0\n",
		"access.cedar": "permit(principal\n",
	})

	b, err := NewLoader(nil).Load(dir)
	require.Error(t, err)
	assert.Nil(t, b)
	assert.Contains(t, err.Error(), "access.cedar")
}

func TestLoaderRejectsMissingManifest(t *testing.T) {
	dir := t.TempDir()

	b, err := NewLoader(nil).Load(dir)
	require.Error(t, err)
	assert.Nil(t, b)
	assert.Contains(t, err.Error(), ManifestFile)
}

func TestLoaderRejectsDuplicatePolicyIDs(t *testing.T) {
	dir := writeBundleDir(t, map[string]string{
		ManifestFile: "name: dup\nversion: 0.1.0\n",
		"a.cedar":    "@id(\"house-rules\")\npermit(principal, action, resource);\n",
		"b.cedar":    "@id(\"house-rules\")\nforbid(principal, action, resource);\n",
	})

	b, err := NewLoader(nil).Load(dir)
	require.Error(t, err)
	assert.Nil(t, b)
	assert.Contains(t, err.Error(), "duplicate policy id `house-rules`")
}

func TestLoaderRejectsBadSchemaFile(t *testing.T) {
	dir := writeBundleDir(t, map[string]string{
		ManifestFile:  "name: bad-schema\nversion: 0.1.0\nschema_file: schema.json\n",
		"a.cedar":     "permit(principal, action, resource);\n",
		"schema.json": "{\"PhotoApp\": {\n",
	})

	b, err := NewLoader(nil).Load(dir)
	require.Error(t, err)
	assert.Nil(t, b)
	assert.Contains(t, err.Error(), "schema.json")
}

func TestLoaderRejectsMissingEntityFile(t *testing.T) {
	dir := writeBundleDir(t, map[string]string{
		ManifestFile: "name: no-entities\nversion: 0.1.0\nentity_file: entities.json\n",
		"a.cedar":    "permit(principal, action, resource);\n",
	})

	b, err := NewLoader(nil).Load(dir)
	require.Error(t, err)
	assert.Nil(t, b)
	assert.Contains(t, err.Error(), "entities.json")
}

func TestLoaderDefaultsNameToDirectory(t *testing.T) {
	dir := writeBundleDir(t, map[string]string{
		ManifestFile: "version: 0.1.0\n",
		"a.cedar":    "permit(principal, action, resource);\n",
	})

	b, err := NewLoader(nil).Load(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(dir), b.Manifest.Name)
}

func TestLoaderEmptyBundle(t *testing.T) {
	dir := writeBundleDir(t, map[string]string{
		ManifestFile: "name: empty\nversion: 0.1.0\n",
	})

	b, err := NewLoader(nil).Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 0, b.Policies.Len())
	assert.Nil(t, b.Schema)
	require.NotNil(t, b.Entities)
	assert.Equal(t, 0, b.Entities.Len())
}
