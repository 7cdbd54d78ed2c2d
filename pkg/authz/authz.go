// Package authz is the public boundary of the policy engine: stateless
// calls that take policy source text and JSON documents, and return
// authorization decisions, validation reports, and policy format
// conversions. Malformed input yields a CallError with a stable numeric
// code; calls never panic and never return a partial decision.
package authz

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/authz-engine/policy-core/internal/audit"
	"github.com/authz-engine/policy-core/internal/engine"
	"github.com/authz-engine/policy-core/internal/entities"
	"github.com/authz-engine/policy-core/internal/metrics"
	"github.com/authz-engine/policy-core/internal/policy"
	"github.com/authz-engine/policy-core/internal/schema"
	"github.com/authz-engine/policy-core/internal/validator"
	"github.com/authz-engine/policy-core/pkg/types"
)

// EngineVersion is the static semantic version of the engine and its
// schema format.
const EngineVersion = "1.0.0"

// Version returns the engine version.
func Version() string {
	return EngineVersion
}

// AuthorizationResult is the outcome of one IsAuthorized call. Errors
// holds the evaluation faults contained per policy; a fault never turns
// into a call-level failure.
type AuthorizationResult struct {
	Decision string   `json:"decision"`
	Reasons  []string `json:"reasons"`
	Errors   []string `json:"errors"`
}

// ValidationReport lists the validator's findings, rendered as display
// strings tagged with the policy id.
type ValidationReport struct {
	ValidationErrors   []string `json:"validationErrors"`
	ValidationWarnings []string `json:"validationWarnings"`
}

// String renders the report for display: "no errors or warnings" when
// both lists are empty, otherwise one finding per line, errors first.
func (r ValidationReport) String() string {
	if len(r.ValidationErrors) == 0 && len(r.ValidationWarnings) == 0 {
		return "no errors or warnings"
	}
	lines := make([]string, 0, len(r.ValidationErrors)+len(r.ValidationWarnings))
	lines = append(lines, r.ValidationErrors...)
	lines = append(lines, r.ValidationWarnings...)
	return strings.Join(lines, "\n")
}

// AuditConfig enables decision audit logging: one structured JSON event
// per IsAuthorized call, written asynchronously so auditing never blocks
// a decision.
type AuditConfig struct {
	// Output selects the destination: "stdout" (the default), "file",
	// or "syslog".
	Output string

	// File rotation settings for the "file" output.
	FilePath       string
	FileMaxSizeMB  int
	FileMaxAgeDays int
	FileMaxBackups int

	// Syslog endpoint for the "syslog" output.
	SyslogAddr     string
	SyslogProtocol string

	// BufferSize caps queued events; on overflow the oldest event is
	// dropped and counted. Zero means the audit default.
	BufferSize int
}

// Config wires the optional ambient pieces of an Authorizer. The zero
// value gives a silent, unmetered, audit-free authorizer with engine
// defaults.
type Config struct {
	// MaxRecursionDepth bounds expression evaluation depth per call.
	// Zero means the engine default.
	MaxRecursionDepth int

	// CacheSize bounds the parse memoization cache entry count. Zero
	// means the engine default; negative disables memoization.
	CacheSize int

	// Workers sets the batch evaluation worker count. Zero means the
	// engine default.
	Workers int

	// MetricsNamespace enables Prometheus metrics under the given
	// namespace, scraped via MetricsHandler. Empty disables metrics.
	MetricsNamespace string

	// OptionalAttributeAccess controls how Validate reports reading a
	// schema-optional attribute without a has guard: "warning" (the
	// default) or "error".
	OptionalAttributeAccess string

	// Audit enables decision audit logging. Nil disables it.
	Audit *AuditConfig

	// Logger receives authorizer, engine, and audit logs. Nil disables
	// logging.
	Logger *zap.Logger
}

// Authorizer is the engine's public entry point. It is stateless apart
// from parse memoization: every call receives its complete working set
// as arguments, so concurrent calls need no coordination.
type Authorizer struct {
	engine        *engine.Engine
	metrics       metrics.Metrics
	audit         audit.Logger
	auditEnabled  bool
	logger        *zap.Logger
	validatorOpts validator.Options
}

// New builds an Authorizer. It fails only on unusable configuration,
// such as an audit output that cannot be opened.
func New(cfg Config) (*Authorizer, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.OptionalAttributeAccess {
	case "", "warning", "error":
	default:
		return nil, fmt.Errorf("unknown optional attribute access mode %q (want \"warning\" or \"error\")", cfg.OptionalAttributeAccess)
	}

	var m metrics.Metrics = metrics.NewNoOpMetrics()
	if cfg.MetricsNamespace != "" {
		m = metrics.NewPrometheusMetrics(cfg.MetricsNamespace)
	}

	engCfg := engine.DefaultConfig()
	if cfg.MaxRecursionDepth > 0 {
		engCfg.MaxRecursionDepth = cfg.MaxRecursionDepth
	}
	if cfg.CacheSize != 0 {
		engCfg.CacheSize = cfg.CacheSize
	}
	if cfg.Workers > 0 {
		engCfg.Workers = cfg.Workers
	}
	engCfg.Metrics = m
	engCfg.Logger = logger

	auditCfg := audit.DefaultConfig()
	if cfg.Audit != nil {
		auditCfg.Enabled = true
		if cfg.Audit.Output != "" {
			auditCfg.Type = cfg.Audit.Output
		}
		if cfg.Audit.FilePath != "" {
			auditCfg.FilePath = cfg.Audit.FilePath
		}
		if cfg.Audit.FileMaxSizeMB > 0 {
			auditCfg.FileMaxSize = cfg.Audit.FileMaxSizeMB
		}
		if cfg.Audit.FileMaxAgeDays > 0 {
			auditCfg.FileMaxAge = cfg.Audit.FileMaxAgeDays
		}
		if cfg.Audit.FileMaxBackups > 0 {
			auditCfg.FileMaxBackups = cfg.Audit.FileMaxBackups
		}
		auditCfg.SyslogAddr = cfg.Audit.SyslogAddr
		auditCfg.SyslogProtocol = cfg.Audit.SyslogProtocol
		if cfg.Audit.BufferSize > 0 {
			auditCfg.BufferSize = cfg.Audit.BufferSize
		}
	}
	auditLogger, err := audit.NewLogger(&auditCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("configure audit logging: %w", err)
	}

	return &Authorizer{
		engine:       engine.New(engCfg),
		metrics:      m,
		audit:        auditLogger,
		auditEnabled: cfg.Audit != nil,
		logger:       logger,
		validatorOpts: validator.Options{
			UnguardedOptionalAccess: validator.Severity(cfg.OptionalAttributeAccess),
		},
	}, nil
}

// Close stops the batch workers and flushes any buffered audit events.
func (a *Authorizer) Close() error {
	a.engine.Close()
	return a.audit.Close()
}

// MetricsHandler serves the Prometheus scrape endpoint for this
// authorizer's metrics.
func (a *Authorizer) MetricsHandler() http.Handler {
	return a.metrics.HTTPHandler()
}

// AuditDropped reports how many audit events were dropped to buffer
// overflow since the authorizer was created.
func (a *Authorizer) AuditDropped() uint64 {
	return a.audit.Dropped()
}

// IsAuthorized answers one authorization question. The principal,
// action, and resource are UIDs in Type::"id" form; context is a JSON
// object; policies is policy source text; entitiesJSON is a JSON array
// of entity records {"uid":{"type","id"},"attrs":{..},"parents":[..]}.
func (a *Authorizer) IsAuthorized(principal, action, resource, contextJSON, policies, entitiesJSON string) (AuthorizationResult, error) {
	principalUID, err := types.ParseEntityUID(principal)
	if err != nil {
		return AuthorizationResult{}, a.reject(CodeBadPrincipal, "PrincipalErr", err)
	}
	actionUID, err := types.ParseEntityUID(action)
	if err != nil {
		return AuthorizationResult{}, a.reject(CodeBadAction, "ActionErr", err)
	}
	resourceUID, err := types.ParseEntityUID(resource)
	if err != nil {
		return AuthorizationResult{}, a.reject(CodeBadResource, "ResourceErr", err)
	}
	context, err := contextFromJSON(contextJSON)
	if err != nil {
		return AuthorizationResult{}, a.reject(CodeBadContext, "ContextErr", err)
	}
	set, err := a.engine.Parse(policies)
	if err != nil {
		return AuthorizationResult{}, a.reject(CodeBadPolicySet, "PoliciesErr", err)
	}
	store, err := entities.ParseJSON([]byte(entitiesJSON))
	if err != nil {
		return AuthorizationResult{}, a.reject(CodeBadEntities, "EntitiesErr", err)
	}

	req := types.Request{
		Principal: principalUID,
		Action:    actionUID,
		Resource:  resourceUID,
		Context:   context,
	}

	start := time.Now()
	resp := a.engine.Decide(req, set, store)
	if a.auditEnabled {
		a.audit.LogDecision(audit.NewDecisionEvent(req, resp, time.Since(start)))
	}

	reasons := resp.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	errs := make([]string, 0, len(resp.Diagnostics))
	for _, d := range resp.Diagnostics {
		errs = append(errs, d.String())
	}
	return AuthorizationResult{
		Decision: string(resp.Decision),
		Reasons:  reasons,
		Errors:   errs,
	}, nil
}

// Validate statically checks policy source text against a JSON schema
// document. Validator findings land in the report; only unparsable
// inputs fail the call.
func (a *Authorizer) Validate(schemaJSON, policies string) (ValidationReport, error) {
	s, err := schema.ParseJSON([]byte(schemaJSON))
	if err != nil {
		return ValidationReport{}, a.reject(CodeBadSchema, "SchemaErr", err)
	}
	set, err := a.engine.Parse(policies)
	if err != nil {
		return ValidationReport{}, a.reject(CodeBadPolicyText, "PolicyErr", err)
	}

	start := time.Now()
	result := validator.New(s, nil, a.validatorOpts).ValidateSet(set)

	report := ValidationReport{
		ValidationErrors:   []string{},
		ValidationWarnings: []string{},
	}
	for _, issue := range result.Issues {
		if issue.Severity == validator.SeverityError {
			report.ValidationErrors = append(report.ValidationErrors, issue.String())
		} else {
			report.ValidationWarnings = append(report.ValidationWarnings, issue.String())
		}
	}
	a.metrics.RecordValidation(len(report.ValidationErrors), len(report.ValidationWarnings), time.Since(start))
	return report, nil
}

// ValidateSchema checks that a schema document alone is usable:
// well-formed JSON, resolvable common types, and every referenced
// entity type and action declared. A nil error means the schema is
// clean.
func (a *Authorizer) ValidateSchema(schemaJSON string) error {
	if _, err := schema.ParseJSON([]byte(schemaJSON)); err != nil {
		return a.reject(CodeBadSchemaDoc, "SchemaErr", err)
	}
	return nil
}

// PolicyToJSON converts the source text of a single policy to the JSON
// policy format.
func (a *Authorizer) PolicyToJSON(policyText string) (string, error) {
	set, err := a.engine.Parse(policyText)
	if err != nil {
		return "", a.reject(CodeBadPolicySource, "PolicyErr", err)
	}
	if set.Len() != 1 {
		return "", a.reject(CodeBadPolicySource, "PolicyErr",
			fmt.Errorf("expected exactly one policy, got %d", set.Len()))
	}
	data, err := json.Marshal(set.Policies()[0])
	if err != nil {
		return "", a.reject(CodeBadPolicySource, "PolicyErr", err)
	}
	return string(data), nil
}

// PolicyFromJSON converts one policy in the JSON policy format back to
// canonical source text.
func (a *Authorizer) PolicyFromJSON(policyJSON string) (string, error) {
	var probe any
	if err := json.Unmarshal([]byte(policyJSON), &probe); err != nil {
		return "", a.reject(CodeBadPolicyJSON, "PolicyJsonErr", err)
	}
	var p policy.Policy
	if err := json.Unmarshal([]byte(policyJSON), &p); err != nil {
		return "", a.reject(CodeBadPolicyForm, "PolicyErr", err)
	}
	return p.MarshalCedar(), nil
}

func (a *Authorizer) reject(code int, tag string, err error) *CallError {
	ce := callErr(code, tag, err)
	a.logger.Debug("call rejected",
		zap.Int("code", ce.Code),
		zap.String("message", ce.Message))
	return ce
}

func contextFromJSON(src string) (types.Record, error) {
	value, err := types.ValueFromJSON(json.RawMessage(src))
	if err != nil {
		return types.Record{}, err
	}
	record, ok := value.(types.Record)
	if !ok {
		return types.Record{}, fmt.Errorf("expression is not a record: `%s`", strings.TrimSpace(src))
	}
	return record, nil
}

// Package-level calls share one authorizer with the zero configuration:
// no logging, no metrics, no audit output.
var defaultAuthorizer = sync.OnceValue(func() *Authorizer {
	a, err := New(Config{})
	if err != nil {
		panic(err) // the zero configuration opens no outputs
	}
	return a
})

// IsAuthorized answers one authorization question with the default
// authorizer.
func IsAuthorized(principal, action, resource, contextJSON, policies, entitiesJSON string) (AuthorizationResult, error) {
	return defaultAuthorizer().IsAuthorized(principal, action, resource, contextJSON, policies, entitiesJSON)
}

// Validate checks policy source text against a schema with the default
// authorizer.
func Validate(schemaJSON, policies string) (ValidationReport, error) {
	return defaultAuthorizer().Validate(schemaJSON, policies)
}

// ValidateSchema checks a schema document with the default authorizer.
func ValidateSchema(schemaJSON string) error {
	return defaultAuthorizer().ValidateSchema(schemaJSON)
}

// PolicyToJSON converts policy text to the JSON policy format with the
// default authorizer.
func PolicyToJSON(policyText string) (string, error) {
	return defaultAuthorizer().PolicyToJSON(policyText)
}

// PolicyFromJSON converts JSON policy form to source text with the
// default authorizer.
func PolicyFromJSON(policyJSON string) (string, error) {
	return defaultAuthorizer().PolicyFromJSON(policyJSON)
}
