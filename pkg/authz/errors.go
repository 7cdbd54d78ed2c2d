package authz

import "fmt"

// Call-level error codes. Each identifies which input of which call was
// malformed; binding layers treat the numbering as a stable contract.
//
// IsAuthorized inputs.
const (
	CodeBadPrincipal = 101
	CodeBadAction    = 102
	CodeBadResource  = 103
	CodeBadContext   = 104
	CodeBadPolicySet = 105
	CodeBadEntities  = 106
)

// Validate inputs.
const (
	CodeBadSchema     = 201
	CodeBadPolicyText = 202
)

// Policy conversion inputs.
const (
	CodeBadPolicySource = 301
	CodeBadPolicyJSON   = 401
	CodeBadPolicyForm   = 402
)

// ValidateSchema input.
const (
	CodeBadSchemaDoc = 501
)

// CallError is a call-level failure: malformed input that stopped the
// call before the engine ran. Message carries a bracketed tag naming the
// offending argument, e.g. "[PrincipalErr]: unexpected token `:`".
type CallError struct {
	Code    int
	Message string
}

func (e *CallError) Error() string {
	return e.Message
}

func callErr(code int, tag string, err error) *CallError {
	return &CallError{Code: code, Message: fmt.Sprintf("[%s]: %s", tag, err)}
}
