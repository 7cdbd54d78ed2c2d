package audit

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// asyncLogger implements asynchronous audit logging with a ring buffer.
// When the buffer is full the oldest event is dropped and counted; the
// caller is never blocked.
type asyncLogger struct {
	writer Writer
	logger *zap.Logger

	// Ring buffer
	buffer []*DecisionEvent
	size   int
	head   int
	tail   int
	mu     sync.Mutex

	dropped atomic.Uint64

	// Background writer
	flushCh  chan struct{}
	doneCh   chan struct{}
	stopped  chan struct{}
	interval time.Duration
}

// newAsyncLogger creates a new async logger
func newAsyncLogger(writer Writer, cfg Config, logger *zap.Logger) *asyncLogger {
	if logger == nil {
		logger = zap.NewNop()
	}

	l := &asyncLogger{
		writer:   writer,
		logger:   logger,
		buffer:   make([]*DecisionEvent, cfg.BufferSize),
		size:     cfg.BufferSize,
		flushCh:  make(chan struct{}, 1),
		doneCh:   make(chan struct{}),
		stopped:  make(chan struct{}),
		interval: cfg.FlushInterval,
	}

	// Start background writer goroutine
	go l.run()

	return l
}

// LogDecision adds an event to the ring buffer (non-blocking)
func (l *asyncLogger) LogDecision(event *DecisionEvent) {
	l.mu.Lock()

	l.buffer[l.tail] = event
	l.tail = (l.tail + 1) % l.size

	// Drop oldest if buffer full (overflow protection)
	if l.tail == l.head {
		l.head = (l.head + 1) % l.size
		l.dropped.Add(1)
	}

	l.mu.Unlock()

	// Trigger flush (non-blocking)
	select {
	case l.flushCh <- struct{}{}:
	default:
	}
}

// run is the background goroutine that flushes events periodically
func (l *asyncLogger) run() {
	defer close(l.stopped)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = l.flush()
		case <-l.flushCh:
			_ = l.flush()
		case <-l.doneCh:
			_ = l.flush() // Final flush on shutdown
			return
		}
	}
}

// Flush flushes pending events (can be called externally)
func (l *asyncLogger) Flush() error {
	return l.flush()
}

// flush writes all buffered events to the writer
func (l *asyncLogger) flush() error {
	l.mu.Lock()
	events := l.copyEvents()
	l.mu.Unlock()

	if len(events) == 0 {
		return nil
	}

	// Write events (outside of lock)
	var lastErr error
	for _, event := range events {
		if err := l.writer.Write(event); err != nil {
			lastErr = err
			l.logger.Warn("audit write failed", zap.Error(err))
		}
	}

	return lastErr
}

// copyEvents copies events from the ring buffer and clears it
func (l *asyncLogger) copyEvents() []*DecisionEvent {
	if l.head == l.tail {
		return nil
	}

	var events []*DecisionEvent
	i := l.head
	for i != l.tail {
		events = append(events, l.buffer[i])
		l.buffer[i] = nil
		i = (i + 1) % l.size
	}

	l.head = l.tail

	return events
}

// Dropped returns the number of events lost to buffer overflow
func (l *asyncLogger) Dropped() uint64 {
	return l.dropped.Load()
}

// Close stops the background writer after a final flush
func (l *asyncLogger) Close() error {
	close(l.doneCh)
	<-l.stopped
	return l.writer.Close()
}
