package bundle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/authz-engine/policy-core/internal/entities"
	"github.com/authz-engine/policy-core/internal/parser"
	"github.com/authz-engine/policy-core/internal/policy"
	"github.com/authz-engine/policy-core/internal/schema"
)

// Loader reads bundle directories into Bundle values.
type Loader struct {
	logger *zap.Logger
}

// NewLoader creates a bundle loader. A nil logger disables logging.
func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{logger: logger}
}

// Load reads the bundle rooted at dir. The directory must contain a
// bundle.yaml manifest; policy files either come from the manifest's
// policy_files list or, when the list is empty, from every .cedar file in
// the directory in name order. Any file that fails to read or parse fails
// the whole load.
func (l *Loader) Load(dir string) (*Bundle, error) {
	manifest, err := l.readManifest(dir)
	if err != nil {
		return nil, err
	}

	files, err := l.policyFiles(dir, manifest)
	if err != nil {
		return nil, err
	}

	policies, err := l.loadPolicies(dir, files)
	if err != nil {
		return nil, err
	}

	b := &Bundle{
		Manifest: manifest,
		Policies: policies,
		Entities: entities.NewStore(nil),
	}

	if manifest.SchemaFile != "" {
		s, err := l.loadSchema(dir, manifest.SchemaFile)
		if err != nil {
			return nil, err
		}
		b.Schema = s
	}

	if manifest.EntityFile != "" {
		store, err := l.loadEntities(dir, manifest.EntityFile)
		if err != nil {
			return nil, err
		}
		b.Entities = store
	}

	l.logger.Info("Loaded policy bundle",
		zap.String("name", manifest.Name),
		zap.String("version", manifest.Version),
		zap.Int("policies", b.Policies.Len()),
		zap.Int("entities", b.Entities.Len()))

	return b, nil
}

func (l *Loader) readManifest(dir string) (Manifest, error) {
	var manifest Manifest

	path := filepath.Join(dir, ManifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return manifest, fmt.Errorf("read bundle manifest %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return manifest, fmt.Errorf("parse bundle manifest %s: %w", path, err)
	}

	if manifest.Name == "" {
		manifest.Name = filepath.Base(dir)
	}
	return manifest, nil
}

// policyFiles resolves the list of policy files relative to dir. Without an
// explicit manifest list, every .cedar file in the directory is a policy
// file; os.ReadDir already sorts entries by name, which fixes the labeling
// order.
func (l *Loader) policyFiles(dir string, manifest Manifest) ([]string, error) {
	if len(manifest.PolicyFiles) > 0 {
		return manifest.PolicyFiles, nil
	}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan bundle directory %s: %w", dir, err)
	}

	var files []string
	for _, e := range dirEntries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".cedar") {
			continue
		}
		files = append(files, e.Name())
	}
	return files, nil
}

// loadPolicies parses each policy file and merges the results into one set.
// Positional policy labels are renumbered across the whole bundle so that
// the n-th policy of the bundle is policyN regardless of which file holds
// it; @id annotations are left alone.
func (l *Loader) loadPolicies(dir string, files []string) (*policy.Set, error) {
	var merged []*policy.Policy
	seen := make(map[string]string)

	for _, file := range files {
		path := filepath.Join(dir, file)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read policy file %s: %w", path, err)
		}

		set, err := parser.Parse(string(data))
		if err != nil {
			l.logger.Warn("Policy file failed to parse",
				zap.String("file", path),
				zap.Error(err))
			return nil, fmt.Errorf("parse policy file %s: %w", path, err)
		}

		for _, p := range set.Policies() {
			if _, annotated := p.Annotations["id"]; !annotated {
				p.ID = fmt.Sprintf("policy%d", len(merged))
			}
			if prev, dup := seen[p.ID]; dup {
				return nil, fmt.Errorf("duplicate policy id `%s` in %s (already used in %s)", p.ID, path, prev)
			}
			seen[p.ID] = path
			merged = append(merged, p)
		}

		l.logger.Debug("Loaded policy file",
			zap.String("file", path),
			zap.Int("policies", set.Len()))
	}

	return policy.NewSet(merged), nil
}

// loadSchema reads one schema file. Comments and trailing commas are
// stripped before decoding, so schema files may be JSONC.
func (l *Loader) loadSchema(dir, file string) (*schema.Schema, error) {
	path := filepath.Join(dir, file)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file %s: %w", path, err)
	}

	s, err := schema.ParseJSON(jsonc.ToJSON(data))
	if err != nil {
		return nil, fmt.Errorf("parse schema file %s: %w", path, err)
	}
	return s, nil
}

// loadEntities reads one entity file, also accepting JSONC.
func (l *Loader) loadEntities(dir, file string) (*entities.Store, error) {
	path := filepath.Join(dir, file)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read entity file %s: %w", path, err)
	}

	store, err := entities.ParseJSON(jsonc.ToJSON(data))
	if err != nil {
		return nil, fmt.Errorf("parse entity file %s: %w", path, err)
	}
	return store, nil
}
