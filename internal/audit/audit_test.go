package audit

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/authz-engine/policy-core/pkg/types"
)

// memWriter collects events in memory for assertions
type memWriter struct {
	mu     sync.Mutex
	events []any
	closed bool
}

func (w *memWriter) Write(event any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events = append(w.events, event)
	return nil
}

func (w *memWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *memWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.events)
}

// blockingWriter blocks every Write until release is closed
type blockingWriter struct {
	memWriter
	entered chan struct{}
	release chan struct{}
}

func (w *blockingWriter) Write(event any) error {
	w.entered <- struct{}{}
	<-w.release
	return w.memWriter.Write(event)
}

func testEvent() *DecisionEvent {
	req := types.Request{
		Principal: types.NewEntityUID("User", "alice"),
		Action:    types.NewEntityUID("Action", "read"),
		Resource:  types.NewEntityUID("Photo", "foo.jpg"),
		Context:   types.EmptyRecord(),
	}
	resp := types.Response{
		Decision: types.DecisionAllow,
		Reasons:  []string{"policy0"},
	}
	return NewDecisionEvent(req, resp, 1500*time.Microsecond)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "stdout", cfg.Type)
	assert.Equal(t, 1000, cfg.BufferSize)
	assert.Equal(t, 100*time.Millisecond, cfg.FlushInterval)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "Disabled config always valid",
			cfg:     Config{Enabled: false},
			wantErr: false,
		},
		{
			name:    "Enabled without type",
			cfg:     Config{Enabled: true},
			wantErr: true,
		},
		{
			name:    "Unknown type",
			cfg:     Config{Enabled: true, Type: "kafka"},
			wantErr: true,
		},
		{
			name:    "File without path",
			cfg:     Config{Enabled: true, Type: "file"},
			wantErr: true,
		},
		{
			name:    "Syslog without address",
			cfg:     Config{Enabled: true, Type: "syslog"},
			wantErr: true,
		},
		{
			name:    "Valid stdout",
			cfg:     Config{Enabled: true, Type: "stdout"},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigValidateAppliesDefaults(t *testing.T) {
	cfg := Config{Enabled: true, Type: "stdout"}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 1000, cfg.BufferSize)
	assert.Equal(t, 100*time.Millisecond, cfg.FlushInterval)
}

func TestNewLoggerDisabled(t *testing.T) {
	logger, err := NewLogger(&Config{Enabled: false}, nil)
	require.NoError(t, err)

	// All operations are no-ops
	logger.LogDecision(testEvent())
	assert.NoError(t, logger.Flush())
	assert.Equal(t, uint64(0), logger.Dropped())
	assert.NoError(t, logger.Close())
}

func TestNewLoggerNilConfig(t *testing.T) {
	logger, err := NewLogger(nil, nil)
	require.NoError(t, err)
	defer logger.Close()

	// Default config is disabled
	logger.LogDecision(testEvent())
	assert.Equal(t, uint64(0), logger.Dropped())
}

func TestNewLoggerInvalidType(t *testing.T) {
	_, err := NewLogger(&Config{Enabled: true, Type: "quic"}, nil)
	assert.Error(t, err)
}

func TestNewDecisionEvent(t *testing.T) {
	req := types.Request{
		Principal: types.NewEntityUID("User", "alice"),
		Action:    types.NewEntityUID("Action", "read"),
		Resource:  types.NewEntityUID("Photo", "foo.jpg"),
		Context:   types.EmptyRecord(),
	}
	resp := types.Response{
		Decision:    types.DecisionDeny,
		Diagnostics: []types.Diagnostic{{PolicyID: "policy0", Message: "boom"}},
	}

	event := NewDecisionEvent(req, resp, 2500*time.Microsecond)

	assert.NotEmpty(t, event.EventID)
	assert.False(t, event.Timestamp.IsZero())
	assert.Equal(t, `User::"alice"`, event.Principal)
	assert.Equal(t, `Action::"read"`, event.Action)
	assert.Equal(t, `Photo::"foo.jpg"`, event.Resource)
	assert.Equal(t, "Deny", event.Decision)
	assert.Empty(t, event.Reasons)
	assert.Equal(t, 1, event.ErrorCount)
	assert.Equal(t, int64(2500), event.DurationUs)

	// Event ids are unique
	other := NewDecisionEvent(req, resp, time.Microsecond)
	assert.NotEqual(t, event.EventID, other.EventID)
}

func TestFileWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit", "decisions.log")

	writer, err := NewFileWriter(path, 10, 1, 1)
	require.NoError(t, err)

	require.NoError(t, writer.Write(testEvent()))
	require.NoError(t, writer.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"decision":"Allow"`)
	assert.Contains(t, string(content), `"event_id":"`)
}

func TestFileLoggerEndToEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decisions.log")

	cfg := Config{
		Enabled:       true,
		Type:          "file",
		FilePath:      path,
		BufferSize:    100,
		FlushInterval: 50 * time.Millisecond,
	}

	logger, err := NewLogger(&cfg, zap.NewNop())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		logger.LogDecision(testEvent())
	}

	require.NoError(t, logger.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"decision":"Allow"`)
	assert.Contains(t, string(content), `"reasons":["policy0"]`)
}

func TestAsyncLoggerDeliversAll(t *testing.T) {
	mem := &memWriter{}
	cfg := Config{BufferSize: 100, FlushInterval: 10 * time.Millisecond}

	logger := newAsyncLogger(mem, cfg, nil)

	for i := 0; i < 10; i++ {
		logger.LogDecision(testEvent())
	}

	require.Eventually(t, func() bool { return mem.count() == 10 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, uint64(0), logger.Dropped())

	require.NoError(t, logger.Close())
	assert.True(t, mem.closed)
}

func TestAsyncLoggerOverflowDropsOldest(t *testing.T) {
	blocked := &blockingWriter{
		entered: make(chan struct{}, 64),
		release: make(chan struct{}),
	}
	cfg := Config{BufferSize: 10, FlushInterval: time.Hour}

	logger := newAsyncLogger(blocked, cfg, nil)

	// First event reaches the writer and parks there.
	logger.LogDecision(testEvent())
	<-blocked.entered

	// The ring holds size-1 events; everything older is dropped.
	for i := 0; i < 20; i++ {
		logger.LogDecision(testEvent())
	}

	close(blocked.release)

	require.Eventually(t, func() bool { return blocked.count() == 10 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, uint64(11), logger.Dropped())

	require.NoError(t, logger.Close())
	assert.Equal(t, 10, blocked.count())
}

func TestAsyncLoggerCloseFlushes(t *testing.T) {
	mem := &memWriter{}
	cfg := Config{BufferSize: 100, FlushInterval: time.Hour}

	logger := newAsyncLogger(mem, cfg, nil)

	for i := 0; i < 3; i++ {
		logger.LogDecision(testEvent())
	}

	require.NoError(t, logger.Close())
	assert.Equal(t, 3, mem.count())
}

func BenchmarkAsyncLoggerLogDecision(b *testing.B) {
	mem := &memWriter{}
	cfg := Config{BufferSize: 4096, FlushInterval: 10 * time.Millisecond}

	logger := newAsyncLogger(mem, cfg, nil)
	defer logger.Close()

	event := testEvent()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.LogDecision(event)
	}
}
