// Package bundle loads policy bundles from disk: a YAML manifest naming
// policy, schema, and entity files, parsed into an immutable Bundle, with
// optional hot reload over fsnotify.
package bundle

import (
	"github.com/authz-engine/policy-core/internal/entities"
	"github.com/authz-engine/policy-core/internal/policy"
	"github.com/authz-engine/policy-core/internal/schema"
)

// ManifestFile is the well-known manifest name inside a bundle directory.
const ManifestFile = "bundle.yaml"

// Manifest describes the contents of a bundle directory
type Manifest struct {
	Name        string   `yaml:"name"`
	Version     string   `yaml:"version"`
	Description string   `yaml:"description,omitempty"`
	PolicyFiles []string `yaml:"policy_files,omitempty"`
	SchemaFile  string   `yaml:"schema_file,omitempty"`
	EntityFile  string   `yaml:"entity_file,omitempty"`
}

// Bundle is one fully loaded bundle. Bundles are immutable; a reload
// builds a new one and leaves previous bundles untouched.
type Bundle struct {
	Manifest Manifest
	Policies *policy.Set

	// Schema is nil when the manifest names no schema file.
	Schema *schema.Schema

	// Entities is empty, never nil, when the manifest names no entity file.
	Entities *entities.Store
}
