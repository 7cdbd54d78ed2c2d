// Package audit records authorization decisions as structured JSON lines.
// Logging is asynchronous behind a bounded buffer, so a decide call never
// waits on an audit destination.
package audit

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Logger records decision events
type Logger interface {
	// LogDecision enqueues one decision event without blocking
	LogDecision(event *DecisionEvent)

	// Flush writes pending events
	Flush() error

	// Dropped returns the number of events lost to buffer overflow
	Dropped() uint64

	// Close flushes remaining events and releases the writer
	Close() error
}

// Config configures audit logging
type Config struct {
	// Enabled enables audit logging
	Enabled bool

	// Output type: stdout, file, syslog
	Type string

	// For file output
	FilePath       string
	FileMaxSize    int // MB
	FileMaxAge     int // Days
	FileMaxBackups int

	// For syslog
	SyslogAddr     string
	SyslogProtocol string // tcp, udp, unix

	// Performance tuning
	BufferSize    int           // Ring buffer size (default: 1000)
	FlushInterval time.Duration // Batch interval (default: 100ms)
}

// DefaultConfig returns a default audit configuration (disabled)
func DefaultConfig() Config {
	return Config{
		Enabled:        false,
		Type:           "stdout",
		BufferSize:     1000,
		FlushInterval:  100 * time.Millisecond,
		FileMaxSize:    100, // 100MB
		FileMaxAge:     30,  // 30 days
		FileMaxBackups: 10,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.Type == "" {
		return fmt.Errorf("audit type is required")
	}

	if c.Type != "stdout" && c.Type != "file" && c.Type != "syslog" {
		return fmt.Errorf("invalid audit type: %s (must be stdout, file, or syslog)", c.Type)
	}

	if c.Type == "file" && c.FilePath == "" {
		return fmt.Errorf("file path is required for file output")
	}

	if c.Type == "syslog" && c.SyslogAddr == "" {
		return fmt.Errorf("syslog address is required for syslog output")
	}

	if c.BufferSize <= 0 {
		c.BufferSize = 1000
	}

	if c.FlushInterval <= 0 {
		c.FlushInterval = 100 * time.Millisecond
	}

	return nil
}

// NewLogger creates a new audit logger
func NewLogger(cfg *Config, logger *zap.Logger) (Logger, error) {
	if cfg == nil {
		def := DefaultConfig()
		cfg = &def
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if !cfg.Enabled {
		return &noopLogger{}, nil
	}

	var writer Writer
	var err error

	switch cfg.Type {
	case "stdout":
		writer = NewStdoutWriter()
	case "file":
		writer, err = NewFileWriter(cfg.FilePath, cfg.FileMaxSize, cfg.FileMaxAge, cfg.FileMaxBackups)
		if err != nil {
			return nil, fmt.Errorf("create file writer: %w", err)
		}
	case "syslog":
		writer, err = NewSyslogWriter(cfg.SyslogProtocol, cfg.SyslogAddr)
		if err != nil {
			return nil, fmt.Errorf("create syslog writer: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported audit type: %s", cfg.Type)
	}

	return newAsyncLogger(writer, *cfg, logger), nil
}

// noopLogger is used when audit logging is disabled
type noopLogger struct{}

func (n *noopLogger) LogDecision(event *DecisionEvent) {}
func (n *noopLogger) Flush() error                     { return nil }
func (n *noopLogger) Dropped() uint64                  { return 0 }
func (n *noopLogger) Close() error                     { return nil }
