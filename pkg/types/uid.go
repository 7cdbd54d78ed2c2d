package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EntityUID names one entity: a type path such as PhotoApp::User plus an
// identifier string. Equality is exact and case-sensitive on both parts.
type EntityUID struct {
	Type string
	ID   string
}

// NewEntityUID returns the UID for the given entity type and identifier.
func NewEntityUID(entityType, id string) EntityUID {
	return EntityUID{Type: entityType, ID: id}
}

func (u EntityUID) TypeName() string { return "entity" }

func (u EntityUID) Equal(other Value) bool {
	o, ok := other.(EntityUID)
	return ok && u == o
}

// MarshalCedar renders the UID in policy-text syntax, Type::"id".
func (u EntityUID) MarshalCedar() string {
	return u.Type + "::" + QuoteString(u.ID)
}

// String renders the UID as it appears in diagnostics, identical to its
// policy-text form.
func (u EntityUID) String() string {
	return u.MarshalCedar()
}

func (u EntityUID) isValue() {}

// uidJSON is the wire form of a UID inside entity records and the policy
// JSON format.
type uidJSON struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// MarshalJSON encodes the UID as {"type": ..., "id": ...}.
func (u EntityUID) MarshalJSON() ([]byte, error) {
	return json.Marshal(uidJSON{Type: u.Type, ID: u.ID})
}

// UnmarshalJSON decodes {"type": ..., "id": ...}, requiring both fields.
func (u *EntityUID) UnmarshalJSON(data []byte) error {
	var raw uidJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Type == "" {
		return fmt.Errorf("entity uid missing field `type`")
	}
	u.Type = raw.Type
	u.ID = raw.ID
	return nil
}

// ParseEntityUID parses the textual form Type::"id", where the type may be
// a ::-separated path. It reports the first unexpected token on malformed
// input so callers can surface the offending position.
func ParseEntityUID(s string) (EntityUID, error) {
	rest := strings.TrimSpace(s)
	var path []string
	for {
		ident, remainder, err := scanIdent(rest)
		if err != nil {
			return EntityUID{}, err
		}
		path = append(path, ident)
		if !strings.HasPrefix(remainder, "::") {
			if remainder == "" {
				return EntityUID{}, fmt.Errorf("unexpected end of input, expected `::`")
			}
			return EntityUID{}, fmt.Errorf("unexpected token `%c`", remainder[0])
		}
		rest = remainder[2:]
		if strings.HasPrefix(rest, `"`) {
			id, remainder, err := scanQuoted(rest)
			if err != nil {
				return EntityUID{}, err
			}
			if strings.TrimSpace(remainder) != "" {
				return EntityUID{}, fmt.Errorf("unexpected token `%c`", remainder[0])
			}
			return EntityUID{Type: strings.Join(path, "::"), ID: id}, nil
		}
	}
}

func scanIdent(s string) (ident, rest string, err error) {
	if s == "" {
		return "", "", fmt.Errorf("unexpected end of input, expected identifier")
	}
	i := 0
	for i < len(s) {
		c := s[i]
		if c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || i > 0 && c >= '0' && c <= '9' {
			i++
			continue
		}
		break
	}
	if i == 0 {
		return "", "", fmt.Errorf("unexpected token `%c`", s[0])
	}
	return s[:i], s[i:], nil
}

func scanQuoted(s string) (value, rest string, err error) {
	var b strings.Builder
	i := 1
	for i < len(s) {
		switch s[i] {
		case '"':
			return b.String(), s[i+1:], nil
		case '\\':
			if i+1 >= len(s) {
				return "", "", fmt.Errorf("unterminated string literal")
			}
			i++
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case '0':
				b.WriteByte(0)
			case '"', '\\', '\'':
				b.WriteByte(s[i])
			default:
				return "", "", fmt.Errorf("invalid escape `\\%c`", s[i])
			}
			i++
		default:
			b.WriteByte(s[i])
			i++
		}
	}
	return "", "", fmt.Errorf("unterminated string literal")
}
