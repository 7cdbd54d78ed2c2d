package types

import (
	"encoding/json"
	"fmt"
	"sort"

	"golang.org/x/exp/maps"
)

// The JSON encoding of values follows the entity-record conventions: plain
// JSON scalars, arrays, and objects map onto Boolean/Long/String/Set/Record,
// while entity references and extension values use the reserved __entity
// and __extn escapes.

type entityEscape struct {
	Entity uidJSON `json:"__entity"`
}

type extnEscape struct {
	Extn extnBody `json:"__extn"`
}

type extnBody struct {
	Fn  string `json:"fn"`
	Arg string `json:"arg"`
}

// ValueFromJSON decodes one JSON value into a runtime Value. Numbers must
// be integral: there is no floating-point value type.
func ValueFromJSON(data json.RawMessage) (Value, error) {
	var probe any
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}
	return valueFromDecoded(data, probe)
}

func valueFromDecoded(data json.RawMessage, probe any) (Value, error) {
	switch v := probe.(type) {
	case bool:
		return Boolean(v), nil
	case float64:
		var l int64
		if err := json.Unmarshal(data, &l); err != nil {
			return nil, fmt.Errorf("expected an integer, got `%v`", v)
		}
		return Long(l), nil
	case string:
		return String(v), nil
	case []any:
		var elements []json.RawMessage
		if err := json.Unmarshal(data, &elements); err != nil {
			return nil, err
		}
		values := make([]Value, 0, len(elements))
		for _, raw := range elements {
			value, err := ValueFromJSON(raw)
			if err != nil {
				return nil, err
			}
			values = append(values, value)
		}
		return NewSet(values...), nil
	case map[string]any:
		if _, ok := v["__entity"]; ok && len(v) == 1 {
			var escape entityEscape
			if err := json.Unmarshal(data, &escape); err != nil {
				return nil, err
			}
			return EntityUID{Type: escape.Entity.Type, ID: escape.Entity.ID}, nil
		}
		if _, ok := v["__extn"]; ok && len(v) == 1 {
			var escape extnEscape
			if err := json.Unmarshal(data, &escape); err != nil {
				return nil, err
			}
			return extensionFromEscape(escape.Extn)
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, err
		}
		attrs := make(map[string]Value, len(fields))
		for name, raw := range fields {
			value, err := ValueFromJSON(raw)
			if err != nil {
				return nil, fmt.Errorf("attribute %q: %w", name, err)
			}
			attrs[name] = value
		}
		return NewRecord(attrs), nil
	case nil:
		return nil, fmt.Errorf("null is not a valid value")
	default:
		return nil, fmt.Errorf("unsupported JSON value `%v`", v)
	}
}

func extensionFromEscape(body extnBody) (Value, error) {
	switch body.Fn {
	case "ip":
		return ParseIPAddr(body.Arg)
	case "decimal":
		return ParseDecimal(body.Arg)
	default:
		return nil, fmt.Errorf("unknown extension function `%s`", body.Fn)
	}
}

// ValueToJSON encodes a runtime Value using the same conventions that
// ValueFromJSON accepts.
func ValueToJSON(v Value) (json.RawMessage, error) {
	switch val := v.(type) {
	case Boolean:
		return json.Marshal(bool(val))
	case Long:
		return json.Marshal(int64(val))
	case String:
		return json.Marshal(string(val))
	case Set:
		elements := val.Slice()
		encoded := make([]json.RawMessage, 0, len(elements))
		for _, e := range elements {
			raw, err := ValueToJSON(e)
			if err != nil {
				return nil, err
			}
			encoded = append(encoded, raw)
		}
		return json.Marshal(encoded)
	case Record:
		fields := make(map[string]json.RawMessage, val.Len())
		for _, k := range val.Keys() {
			attr, _ := val.Get(k)
			raw, err := ValueToJSON(attr)
			if err != nil {
				return nil, err
			}
			fields[k] = raw
		}
		return json.Marshal(fields)
	case EntityUID:
		return json.Marshal(entityEscape{Entity: uidJSON{Type: val.Type, ID: val.ID}})
	case IPAddr:
		return json.Marshal(extnEscape{Extn: extnBody{Fn: "ip", Arg: val.String()}})
	case Decimal:
		return json.Marshal(extnEscape{Extn: extnBody{Fn: "decimal", Arg: val.String()}})
	default:
		return nil, fmt.Errorf("unsupported value type %s", v.TypeName())
	}
}

// RecordFromJSON decodes a JSON object into a Record, rejecting any other
// JSON shape.
func RecordFromJSON(data json.RawMessage) (Record, error) {
	value, err := ValueFromJSON(data)
	if err != nil {
		return Record{}, err
	}
	record, ok := value.(Record)
	if !ok {
		return Record{}, fmt.Errorf("expression is not a record: `%s`", compactJSON(data))
	}
	return record, nil
}

func compactJSON(data json.RawMessage) string {
	var probe any
	if err := json.Unmarshal(data, &probe); err != nil {
		return string(data)
	}
	out, err := json.Marshal(probe)
	if err != nil {
		return string(data)
	}
	return string(out)
}

// SortUIDs orders UIDs by type then id, for deterministic output.
func SortUIDs(uids []EntityUID) {
	sort.Slice(uids, func(i, j int) bool {
		if uids[i].Type != uids[j].Type {
			return uids[i].Type < uids[j].Type
		}
		return uids[i].ID < uids[j].ID
	})
}

// SortedKeys returns the keys of m in lexicographic order.
func SortedKeys[V any](m map[string]V) []string {
	keys := maps.Keys(m)
	sort.Strings(keys)
	return keys
}
