// Package types defines the runtime value model shared by the parser,
// evaluator, validator, and decision engine.
package types

import (
	"strconv"
	"strings"
)

// Value is a runtime policy value. The set of implementations is closed:
// Boolean, Long, String, Set, Record, EntityUID, IPAddr, and Decimal.
type Value interface {
	// TypeName returns the user-facing name of the value's type, as it
	// appears in diagnostics.
	TypeName() string

	// Equal reports structural equality. Values of different types are
	// never equal; comparing them is not an error.
	Equal(other Value) bool

	// MarshalCedar renders the value in policy-text syntax.
	MarshalCedar() string

	isValue()
}

// Boolean is a true/false value.
type Boolean bool

const (
	True  = Boolean(true)
	False = Boolean(false)
)

func (b Boolean) TypeName() string { return "bool" }

func (b Boolean) Equal(other Value) bool {
	o, ok := other.(Boolean)
	return ok && b == o
}

func (b Boolean) MarshalCedar() string {
	return strconv.FormatBool(bool(b))
}

func (b Boolean) isValue() {}

// Long is a 64-bit signed integer. Arithmetic on Longs is checked; the
// evaluator reports overflow instead of wrapping.
type Long int64

func (l Long) TypeName() string { return "long" }

func (l Long) Equal(other Value) bool {
	o, ok := other.(Long)
	return ok && l == o
}

func (l Long) MarshalCedar() string {
	return strconv.FormatInt(int64(l), 10)
}

func (l Long) isValue() {}

// CheckedAdd returns l+o, reporting false on signed overflow.
func (l Long) CheckedAdd(o Long) (Long, bool) {
	sum := l + o
	if (l > 0 && o > 0 && sum < 0) || (l < 0 && o < 0 && sum >= 0) {
		return 0, false
	}
	return sum, true
}

// CheckedSub returns l-o, reporting false on signed overflow.
func (l Long) CheckedSub(o Long) (Long, bool) {
	diff := l - o
	if (l >= 0 && o < 0 && diff < 0) || (l < 0 && o > 0 && diff >= 0) {
		return 0, false
	}
	return diff, true
}

// CheckedMul returns l*o, reporting false on signed overflow.
func (l Long) CheckedMul(o Long) (Long, bool) {
	if l == 0 || o == 0 {
		return 0, true
	}
	if l == -1 && o == minLong || o == -1 && l == minLong {
		return 0, false
	}
	product := l * o
	if product/o != l {
		return 0, false
	}
	return product, true
}

// CheckedNeg returns -l, reporting false for the minimum value.
func (l Long) CheckedNeg() (Long, bool) {
	if l == minLong {
		return 0, false
	}
	return -l, true
}

const minLong = Long(-1 << 63)

// String is an immutable text value.
type String string

func (s String) TypeName() string { return "string" }

func (s String) Equal(other Value) bool {
	o, ok := other.(String)
	return ok && s == o
}

func (s String) MarshalCedar() string {
	return QuoteString(string(s))
}

func (s String) isValue() {}

// QuoteString renders s as a double-quoted policy-text string literal.
func QuoteString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case 0:
			b.WriteString(`\0`)
		default:
			if r < 0x20 {
				b.WriteString(`\u{` + strconv.FormatInt(int64(r), 16) + `}`)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
