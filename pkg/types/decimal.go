package types

import (
	"fmt"
	"strconv"
	"strings"
)

// decimalScale fixes four fractional digits for Decimal values.
const decimalScale = 10000

// Decimal is an extension value holding a fixed-point number with four
// fractional digits, stored as a scaled 64-bit integer.
type Decimal struct {
	value int64
}

// ParseDecimal parses a decimal literal of the form `-?digits.digits` with
// one to four fractional digits. Values outside the representable range
// are rejected.
func ParseDecimal(s string) (Decimal, error) {
	intPart, fracPart, found := strings.Cut(s, ".")
	if !found {
		return Decimal{}, fmt.Errorf("invalid decimal %q: missing fractional part", s)
	}
	if len(fracPart) < 1 || len(fracPart) > 4 {
		return Decimal{}, fmt.Errorf("invalid decimal %q: expected 1 to 4 fractional digits", s)
	}
	negative := strings.HasPrefix(intPart, "-")
	whole, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return Decimal{}, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	frac, err := strconv.ParseUint(fracPart, 10, 64)
	if err != nil {
		return Decimal{}, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	for i := len(fracPart); i < 4; i++ {
		frac *= 10
	}

	scaled, ok := Long(whole).CheckedMul(decimalScale)
	if !ok {
		return Decimal{}, fmt.Errorf("decimal %q out of range", s)
	}
	signedFrac := Long(frac)
	if negative {
		signedFrac = -signedFrac
	}
	total, ok := scaled.CheckedAdd(signedFrac)
	if !ok {
		return Decimal{}, fmt.Errorf("decimal %q out of range", s)
	}
	return Decimal{value: int64(total)}, nil
}

func (d Decimal) TypeName() string { return "decimal" }

func (d Decimal) Equal(other Value) bool {
	o, ok := other.(Decimal)
	return ok && d.value == o.value
}

// Cmp compares two decimals, returning -1, 0, or 1.
func (d Decimal) Cmp(other Decimal) int {
	switch {
	case d.value < other.value:
		return -1
	case d.value > other.value:
		return 1
	default:
		return 0
	}
}

// MarshalCedar renders the value as a decimal(...) constructor call.
func (d Decimal) MarshalCedar() string {
	return `decimal(` + QuoteString(d.String()) + `)`
}

// String renders the decimal with trailing fractional zeros trimmed, always
// keeping at least one fractional digit.
func (d Decimal) String() string {
	whole := d.value / decimalScale
	frac := d.value % decimalScale
	sign := ""
	if d.value < 0 {
		sign = "-"
		whole = -whole
		frac = -frac
	}
	digits := strings.TrimRight(fmt.Sprintf("%04d", frac), "0")
	if digits == "" {
		digits = "0"
	}
	return fmt.Sprintf("%s%d.%s", sign, whole, digits)
}

func (d Decimal) isValue() {}
