package types

// Effect is what a policy grants when satisfied.
type Effect string

const (
	EffectPermit Effect = "permit"
	EffectForbid Effect = "forbid"
)

// Decision is the outcome of evaluating a request against a policy set.
type Decision string

const (
	DecisionAllow Decision = "Allow"
	DecisionDeny  Decision = "Deny"
)

// Request is one authorization question: who (principal) wants to do what
// (action) to what (resource), with request-scoped context attributes.
type Request struct {
	Principal EntityUID
	Action    EntityUID
	Resource  EntityUID
	Context   Record
}

// Diagnostic is an evaluation fault contained to a single policy. Faults
// never abort the call; they are collected here for diagnosability.
type Diagnostic struct {
	PolicyID string `json:"policyId"`
	Message  string `json:"message"`
}

func (d Diagnostic) String() string {
	return "while evaluating policy `" + d.PolicyID + "`: " + d.Message
}

// Response is the full result of one decision: the Allow/Deny outcome, the
// ids of the permit policies that justified an Allow (empty on Deny), and
// every evaluation fault encountered across the policy set, in canonical
// policy-id order.
type Response struct {
	Decision    Decision     `json:"decision"`
	Reasons     []string     `json:"reasons"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}
