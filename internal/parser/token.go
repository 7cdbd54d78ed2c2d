// Package parser turns policy source text into the parsed representation,
// reporting the position of the first offending token on malformed input.
package parser

import (
	"github.com/authz-engine/policy-core/internal/policy"
)

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenIdent
	tokenInt
	tokenString
	tokenPunct
)

// token is one lexical element. For string literals Text holds the decoded
// value and Raw the source form between the quotes; for everything else
// the two are identical.
type token struct {
	Kind tokenKind
	Text string
	Raw  string
	Pos  policy.Position
}

// display renders the token for error messages.
func (t token) display() string {
	switch t.Kind {
	case tokenEOF:
		return "end of input"
	case tokenString:
		return `"` + t.Raw + `"`
	default:
		return t.Text
	}
}

// ParseError describes the first syntax error in policy source text.
type ParseError struct {
	Position policy.Position
	Message  string
}

func (e *ParseError) Error() string {
	return e.Message
}
