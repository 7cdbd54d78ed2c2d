// Package extensions implements the pluggable extension functions policies
// may call: constructors and methods for the ipaddr and decimal types.
// Adding an extension type means registering its functions here; neither
// the evaluator nor the validator enumerates them.
package extensions

import (
	"fmt"

	"github.com/authz-engine/policy-core/pkg/types"
)

// Style says how a function appears in policy text.
type Style int

const (
	// StyleConstructor functions are called by name: ip("10.0.0.1").
	StyleConstructor Style = iota
	// StyleMethod functions are called on a receiver, which arrives as
	// the first argument: addr.isIpv4().
	StyleMethod
)

// Signature describes one extension function for signature checking.
type Signature struct {
	Name    string
	Style   Style
	Args    []string
	Returns string
}

// Function pairs a signature with its implementation. Implementations
// check their own argument values and return plain errors; the evaluator
// classifies them.
type Function struct {
	Signature
	Call func(args []types.Value) (types.Value, error)
}

// Registry maps extension function names to implementations.
type Registry struct {
	functions map[string]Function
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{functions: make(map[string]Function)}
}

// Register adds or replaces a function.
func (r *Registry) Register(fn Function) {
	r.functions[fn.Name] = fn
}

// Lookup returns the named function, if registered.
func (r *Registry) Lookup(name string) (Function, bool) {
	fn, ok := r.functions[name]
	return fn, ok
}

// Signatures returns the signature table, for the validator.
func (r *Registry) Signatures() map[string]Signature {
	out := make(map[string]Signature, len(r.functions))
	for name, fn := range r.functions {
		out[name] = fn.Signature
	}
	return out
}

// DefaultRegistry returns a registry with the ipaddr and decimal function
// sets installed.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	registerIPAddr(r)
	registerDecimal(r)
	return r
}

func argString(args []types.Value, i int, fn string) (string, error) {
	s, ok := args[i].(types.String)
	if !ok {
		return "", fmt.Errorf("`%s` expects a string argument, got %s", fn, args[i].TypeName())
	}
	return string(s), nil
}

func argIPAddr(args []types.Value, i int, fn string) (types.IPAddr, error) {
	ip, ok := args[i].(types.IPAddr)
	if !ok {
		return types.IPAddr{}, fmt.Errorf("`%s` expects an ipaddr argument, got %s", fn, args[i].TypeName())
	}
	return ip, nil
}

func argDecimal(args []types.Value, i int, fn string) (types.Decimal, error) {
	d, ok := args[i].(types.Decimal)
	if !ok {
		return types.Decimal{}, fmt.Errorf("`%s` expects a decimal argument, got %s", fn, args[i].TypeName())
	}
	return d, nil
}
