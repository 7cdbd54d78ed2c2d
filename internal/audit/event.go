package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/authz-engine/policy-core/pkg/types"
)

// DecisionEvent is one audit record of an authorization decision
type DecisionEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	EventID    string    `json:"event_id"`
	Principal  string    `json:"principal"`
	Action     string    `json:"action"`
	Resource   string    `json:"resource"`
	Decision   string    `json:"decision"`
	Reasons    []string  `json:"reasons,omitempty"`
	ErrorCount int       `json:"error_count"`
	DurationUs int64     `json:"duration_us"`
}

// NewDecisionEvent builds an audit event from a decided request
func NewDecisionEvent(req types.Request, resp types.Response, latency time.Duration) *DecisionEvent {
	return &DecisionEvent{
		Timestamp:  time.Now(),
		EventID:    uuid.NewString(),
		Principal:  req.Principal.String(),
		Action:     req.Action.String(),
		Resource:   req.Resource.String(),
		Decision:   string(resp.Decision),
		Reasons:    resp.Reasons,
		ErrorCount: len(resp.Diagnostics),
		DurationUs: latency.Microseconds(),
	}
}
