package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m Metrics) string {
	t.Helper()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	m.HTTPHandler().ServeHTTP(w, req)
	return w.Body.String()
}

// TestNewPrometheusMetrics verifies constructor creates valid instance
func TestNewPrometheusMetrics(t *testing.T) {
	tests := []struct {
		name      string
		namespace string
	}{
		{name: "Default namespace", namespace: "authz"},
		{name: "Custom namespace", namespace: "my_app"},
		{name: "Underscored namespace", namespace: "policy_engine"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewPrometheusMetrics(tt.namespace)
			require.NotNil(t, m)
			require.NotNil(t, m.HTTPHandler())

			body := scrape(t, m)
			assert.Contains(t, body, tt.namespace+"_")
		})
	}
}

// TestPrometheusMetrics_DecisionCounters verifies labeled decision counters
func TestPrometheusMetrics_DecisionCounters(t *testing.T) {
	m := NewPrometheusMetrics("authz_test")

	m.RecordDecision("Allow", 5*time.Microsecond)
	m.RecordDecision("Deny", 3*time.Microsecond)
	m.RecordDecision("Allow", 7*time.Microsecond)

	body := scrape(t, m)

	// Verify separate counters for each label
	assert.Contains(t, body, "authz_test_decisions_total{decision=\"Allow\"} 2")
	assert.Contains(t, body, "authz_test_decisions_total{decision=\"Deny\"} 1")
}

// TestPrometheusMetrics_DecisionHistogram verifies latency observations
func TestPrometheusMetrics_DecisionHistogram(t *testing.T) {
	m := NewPrometheusMetrics("authz_test")

	durations := []time.Duration{
		1 * time.Microsecond,
		5 * time.Microsecond,
		10 * time.Microsecond,
		25 * time.Microsecond,
		50 * time.Microsecond,
		100 * time.Microsecond,
		500 * time.Microsecond,
		1000 * time.Microsecond,
	}

	for _, d := range durations {
		m.RecordDecision("Allow", d)
	}

	body := scrape(t, m)

	// Verify histogram count
	assert.Contains(t, body, "authz_test_decision_duration_microseconds_count 8")

	// Verify histogram sum (1+5+10+25+50+100+500+1000 = 1691)
	assert.Contains(t, body, "authz_test_decision_duration_microseconds_sum 1691")

	// Verify buckets are populated
	assert.Contains(t, body, "authz_test_decision_duration_microseconds_bucket")
}

// TestPrometheusMetrics_BatchObservations verifies batch size and latency
func TestPrometheusMetrics_BatchObservations(t *testing.T) {
	m := NewPrometheusMetrics("authz_test")

	m.RecordBatch(3, 120*time.Microsecond)
	m.RecordBatch(7, 280*time.Microsecond)

	body := scrape(t, m)

	assert.Contains(t, body, "authz_test_batch_size_count 2")
	assert.Contains(t, body, "authz_test_batch_size_sum 10")
	assert.Contains(t, body, "authz_test_batch_duration_microseconds_count 2")
	assert.Contains(t, body, "authz_test_batch_duration_microseconds_sum 400")
}

// TestPrometheusMetrics_FaultCounters verifies fault counters by kind
func TestPrometheusMetrics_FaultCounters(t *testing.T) {
	m := NewPrometheusMetrics("authz_test")

	m.RecordFault("attribute")
	m.RecordFault("attribute")
	m.RecordFault("overflow")

	body := scrape(t, m)

	assert.Contains(t, body, "authz_test_evaluation_faults_total{kind=\"attribute\"} 2")
	assert.Contains(t, body, "authz_test_evaluation_faults_total{kind=\"overflow\"} 1")
}

// TestPrometheusMetrics_ValidationIssues verifies severity-labeled counters
func TestPrometheusMetrics_ValidationIssues(t *testing.T) {
	m := NewPrometheusMetrics("authz_test")

	m.RecordValidation(2, 1, 150*time.Microsecond)
	m.RecordValidation(0, 3, 90*time.Microsecond)

	body := scrape(t, m)

	assert.Contains(t, body, "authz_test_validate_issues_total{severity=\"error\"} 2")
	assert.Contains(t, body, "authz_test_validate_issues_total{severity=\"warning\"} 4")
	assert.Contains(t, body, "authz_test_validate_duration_microseconds_count 2")
	assert.Contains(t, body, "authz_test_validate_duration_microseconds_sum 240")
}

// TestPrometheusMetrics_CleanValidationAddsNoIssues verifies zero-count runs
func TestPrometheusMetrics_CleanValidationAddsNoIssues(t *testing.T) {
	m := NewPrometheusMetrics("authz_test")

	m.RecordValidation(0, 0, 50*time.Microsecond)

	body := scrape(t, m)

	// Clean run records latency but no issue series
	assert.Contains(t, body, "authz_test_validate_duration_microseconds_count 1")
	assert.NotContains(t, body, "authz_test_validate_issues_total{")
}

// TestPrometheusMetrics_CacheCounters verifies parse cache hit/miss counters
func TestPrometheusMetrics_CacheCounters(t *testing.T) {
	m := NewPrometheusMetrics("authz_test")

	m.RecordCacheHit()
	m.RecordCacheHit()
	m.RecordCacheHit()
	m.RecordCacheMiss()

	body := scrape(t, m)

	assert.Contains(t, body, "authz_test_parse_cache_hits_total 3")
	assert.Contains(t, body, "authz_test_parse_cache_misses_total 1")
}

// TestPrometheusMetrics_ParseHistogram verifies parse latency observations
func TestPrometheusMetrics_ParseHistogram(t *testing.T) {
	m := NewPrometheusMetrics("authz_test")

	m.RecordParse(40 * time.Microsecond)
	m.RecordParse(60 * time.Microsecond)

	body := scrape(t, m)

	assert.Contains(t, body, "authz_test_parse_duration_microseconds_count 2")
	assert.Contains(t, body, "authz_test_parse_duration_microseconds_sum 100")
}

// TestPrometheusMetrics_Registry_StandardCollectors verifies Go runtime metrics
func TestPrometheusMetrics_Registry_StandardCollectors(t *testing.T) {
	m := NewPrometheusMetrics("authz_test")

	body := scrape(t, m)

	// Verify standard Go metrics are registered
	assert.Contains(t, body, "go_goroutines")
	assert.Contains(t, body, "go_memstats_alloc_bytes")
	assert.Contains(t, body, "process_cpu_seconds_total")
}

// TestPrometheusMetrics_ZeroValues verifies registered counters start at zero
func TestPrometheusMetrics_ZeroValues(t *testing.T) {
	m := NewPrometheusMetrics("authz_test")

	body := scrape(t, m)

	assert.Contains(t, body, "authz_test_parse_cache_hits_total 0")
	assert.Contains(t, body, "authz_test_parse_cache_misses_total 0")
	assert.Contains(t, body, "authz_test_decision_duration_microseconds_count 0")
}
