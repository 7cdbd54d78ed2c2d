package metrics

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMetricsInterface_AllMethodsExist verifies the Metrics interface contract
func TestMetricsInterface_AllMethodsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric Metrics
	}{
		{
			name:   "PrometheusMetrics implements all methods",
			metric: NewPrometheusMetrics("authz_test"),
		},
		{
			name:   "NoOpMetrics implements all methods",
			metric: &NoOpMetrics{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.metric.RecordDecision("Allow", 100*time.Microsecond)
			tt.metric.RecordDecision("Deny", 50*time.Microsecond)
			tt.metric.RecordBatch(10, 500*time.Microsecond)
			tt.metric.RecordFault("attribute")
			tt.metric.RecordParse(200 * time.Microsecond)
			tt.metric.RecordValidation(1, 2, 300*time.Microsecond)
			tt.metric.RecordCacheHit()
			tt.metric.RecordCacheMiss()

			handler := tt.metric.HTTPHandler()
			require.NotNil(t, handler)
		})
	}
}

// TestNoOpMetrics_NoPanics ensures NoOp metrics never crash
func TestNoOpMetrics_NoPanics(t *testing.T) {
	m := &NoOpMetrics{}

	// Run all methods concurrently to ensure thread safety
	var wg sync.WaitGroup
	iterations := 100

	for i := 0; i < iterations; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordDecision("Allow", 1*time.Microsecond)
			m.RecordBatch(5, 1*time.Microsecond)
			m.RecordFault("entity")
			m.RecordParse(1 * time.Microsecond)
			m.RecordValidation(0, 0, 1*time.Microsecond)
			m.RecordCacheHit()
			m.RecordCacheMiss()
			_ = m.HTTPHandler()
		}()
	}

	wg.Wait()
	// If we reach here without panic, test passes
}

// TestNoOpMetrics_HTTPHandler verifies NoOp handler returns valid response
func TestNoOpMetrics_HTTPHandler(t *testing.T) {
	m := &NoOpMetrics{}
	handler := m.HTTPHandler()

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "monitoring disabled")
}
