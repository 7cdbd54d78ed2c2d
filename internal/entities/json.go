package entities

import (
	"encoding/json"
	"fmt"

	"github.com/authz-engine/policy-core/pkg/types"
)

// entityJSON is the wire form of one entity record:
// {"uid": {"type", "id"}, "attrs": {...}, "parents": [{"type", "id"}]}.
type entityJSON struct {
	UID     *types.EntityUID           `json:"uid"`
	Attrs   map[string]json.RawMessage `json:"attrs"`
	Parents []types.EntityUID          `json:"parents"`
}

// ParseJSON decodes a JSON array of entity records and builds a Store.
func ParseJSON(data []byte) (*Store, error) {
	list, err := EntitiesFromJSON(data)
	if err != nil {
		return nil, err
	}
	return NewStore(list), nil
}

// EntitiesFromJSON decodes a JSON array of entity records.
func EntitiesFromJSON(data []byte) ([]types.Entity, error) {
	var records []entityJSON
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("error during entity deserialization: %w", err)
	}
	out := make([]types.Entity, 0, len(records))
	for i, record := range records {
		if record.UID == nil {
			return nil, fmt.Errorf("entity %d: missing field `uid`", i)
		}
		attrs := make(map[string]types.Value, len(record.Attrs))
		for name, raw := range record.Attrs {
			value, err := types.ValueFromJSON(raw)
			if err != nil {
				return nil, fmt.Errorf("entity `%s` attribute %q: %w", record.UID, name, err)
			}
			attrs[name] = value
		}
		out = append(out, types.NewEntity(*record.UID, types.NewRecord(attrs), record.Parents))
	}
	return out, nil
}
