// Package eval implements expression evaluation: a pure recursive tree
// walk over a policy condition against one request and entity store.
// Faults are typed and never panic; the engine layer decides what a
// fault means for the overall decision.
package eval

import "fmt"

// FaultKind classifies an evaluation fault.
type FaultKind string

const (
	FaultAttributeNotFound        FaultKind = "attribute_not_found"
	FaultTypeMismatch             FaultKind = "type_mismatch"
	FaultUnknownExtensionFunction FaultKind = "unknown_extension_function"
	FaultArithmeticOverflow       FaultKind = "arithmetic_overflow"
	FaultEntityNotFound           FaultKind = "entity_not_found"
	FaultRecursionLimit           FaultKind = "recursion_limit"
)

// Fault is an evaluation error with a stable kind. One fault aborts the
// expression it occurs in, nothing more.
type Fault struct {
	Kind    FaultKind
	Message string
}

func (f *Fault) Error() string { return f.Message }

func faultf(kind FaultKind, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func typeMismatch(expected, got string) *Fault {
	return faultf(FaultTypeMismatch, "type error: expected %s, got %s", expected, got)
}
