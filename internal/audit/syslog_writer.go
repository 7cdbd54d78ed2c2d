package audit

import (
	"encoding/json"
	"fmt"
	"log/syslog"
	"sync"
)

// syslogWriter writes audit events to syslog
type syslogWriter struct {
	writer *syslog.Writer
	mu     sync.Mutex
}

// NewSyslogWriter creates a new syslog writer
func NewSyslogWriter(protocol, address string) (Writer, error) {
	if protocol == "" {
		protocol = "tcp"
	}

	writer, err := syslog.Dial(protocol, address, syslog.LOG_INFO|syslog.LOG_LOCAL0, "policy-core")
	if err != nil {
		return nil, fmt.Errorf("connect to syslog: %w", err)
	}

	return &syslogWriter{
		writer: writer,
	}, nil
}

// Write writes an event to syslog as JSON
func (w *syslogWriter) Write(event any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	return w.writer.Info(string(data))
}

// Close closes the syslog writer
func (w *syslogWriter) Close() error {
	return w.writer.Close()
}
