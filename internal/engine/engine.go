// Package engine provides the core decision engine: deny-overrides
// combination of per-policy evaluation, batch fan-out over a worker pool,
// and parse memoization.
package engine

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/authz-engine/policy-core/internal/cache"
	"github.com/authz-engine/policy-core/internal/entities"
	"github.com/authz-engine/policy-core/internal/eval"
	"github.com/authz-engine/policy-core/internal/extensions"
	"github.com/authz-engine/policy-core/internal/metrics"
	"github.com/authz-engine/policy-core/internal/parser"
	"github.com/authz-engine/policy-core/internal/policy"
	"github.com/authz-engine/policy-core/pkg/types"
)

// Engine is the core authorization decision engine
type Engine struct {
	parseCache *cache.PolicyCache
	pool       *WorkerPool
	metrics    metrics.Metrics
	logger     *zap.Logger
	extensions *extensions.Registry
	config     Config
}

// Config configures the decision engine
type Config struct {
	// MaxRecursionDepth bounds expression nesting per evaluation
	MaxRecursionDepth int
	// CacheSize is the maximum number of memoized parsed policy sets (0 disables)
	CacheSize int
	// CacheTTL is the time-to-live for memoized parse results (0 keeps entries forever)
	CacheTTL time.Duration
	// Workers is the number of parallel workers for batch evaluation
	Workers int
	// Metrics receives engine observations (nil for NoOp)
	Metrics metrics.Metrics
	// Logger receives engine logs (nil disables logging)
	Logger *zap.Logger
	// Extensions overrides the extension function registry (nil for the default)
	Extensions *extensions.Registry
}

// DefaultConfig returns a default engine configuration
func DefaultConfig() Config {
	return Config{
		MaxRecursionDepth: eval.DefaultMaxDepth,
		CacheSize:         1024,
		CacheTTL:          5 * time.Minute,
		Workers:           16,
	}
}

// New creates a new decision engine
func New(cfg Config) *Engine {
	m := cfg.Metrics
	if m == nil {
		m = metrics.NewNoOpMetrics()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := cfg.Extensions
	if reg == nil {
		reg = extensions.DefaultRegistry()
	}

	return &Engine{
		parseCache: cache.NewPolicyCache(cfg.CacheSize, cfg.CacheTTL),
		pool:       NewWorkerPool(cfg.Workers),
		metrics:    m,
		logger:     logger,
		extensions: reg,
		config:     cfg,
	}
}

// Decide evaluates one request against a policy set. Each policy is
// checked independently: scope match plus all conditions true makes it
// satisfied; an evaluation fault makes it unsatisfied and is recorded as
// a diagnostic without aborting the others. The outcome is Allow iff at
// least one permit is satisfied and no forbid is.
func (e *Engine) Decide(req types.Request, ps *policy.Set, store *entities.Store) types.Response {
	start := time.Now()

	if store == nil {
		store = entities.NewStore(nil)
	}
	env := &eval.Env{
		Entities:   store,
		Request:    req,
		Extensions: e.extensions,
		MaxDepth:   e.config.MaxRecursionDepth,
	}

	var reasons []string
	var diagnostics []types.Diagnostic
	forbidden := false

	for _, p := range ps.Policies() {
		matched, err := eval.PolicyMatches(env, p)
		if err != nil {
			diagnostics = append(diagnostics, types.Diagnostic{PolicyID: p.ID, Message: err.Error()})
			e.recordFault(p.ID, err)
			continue
		}
		if !matched {
			continue
		}
		if p.Effect == types.EffectForbid {
			forbidden = true
		} else {
			reasons = append(reasons, p.ID)
		}
	}

	decision := types.DecisionDeny
	if forbidden || len(reasons) == 0 {
		reasons = nil
	} else {
		decision = types.DecisionAllow
	}

	// Canonical ordering keeps the response independent of policy-set order.
	slices.Sort(reasons)
	slices.SortFunc(diagnostics, func(a, b types.Diagnostic) int {
		return strings.Compare(a.PolicyID, b.PolicyID)
	})

	e.metrics.RecordDecision(string(decision), time.Since(start))

	return types.Response{
		Decision:    decision,
		Reasons:     reasons,
		Diagnostics: diagnostics,
	}
}

// DecideBatch evaluates independent requests over the worker pool and
// returns responses in request order.
func (e *Engine) DecideBatch(requests []types.Request, ps *policy.Set, store *entities.Store) []types.Response {
	start := time.Now()

	responses := make([]types.Response, len(requests))
	var wg sync.WaitGroup

	for i := range requests {
		wg.Add(1)
		req := requests[i]
		idx := i

		e.pool.Submit(func() {
			defer wg.Done()
			responses[idx] = e.Decide(req, ps, store)
		})
	}

	wg.Wait()
	e.metrics.RecordBatch(len(requests), time.Since(start))
	return responses
}

// Parse parses policy source text into a set, memoized on the exact
// source string
func (e *Engine) Parse(src string) (*policy.Set, error) {
	if set, ok := e.parseCache.Get(src); ok {
		e.metrics.RecordCacheHit()
		return set, nil
	}
	e.metrics.RecordCacheMiss()

	start := time.Now()
	set, err := parser.Parse(src)
	if err != nil {
		return nil, err
	}
	e.metrics.RecordParse(time.Since(start))

	e.parseCache.Put(src, set)
	return set, nil
}

// CacheStats returns parse cache statistics
func (e *Engine) CacheStats() cache.Stats {
	return e.parseCache.Stats()
}

// ClearCache clears the parse cache
func (e *Engine) ClearCache() {
	e.parseCache.Clear()
}

// Close stops the batch workers. Decide remains usable after Close;
// DecideBatch does not.
func (e *Engine) Close() {
	e.pool.Stop()
}

func (e *Engine) recordFault(policyID string, err error) {
	kind := "unknown"
	var fault *eval.Fault
	if errors.As(err, &fault) {
		kind = string(fault.Kind)
	}
	e.metrics.RecordFault(kind)
	e.logger.Debug("contained evaluation fault",
		zap.String("policy", policyID),
		zap.String("kind", kind),
		zap.Error(err))
}
