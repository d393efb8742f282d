package audit

import (
	"context"
	"log/slog"
	"sync"
)

// Sink receives flushed batches.
type Sink interface {
	Write(ctx context.Context, events []Event) error
	Close() error
}

// LogSink writes each event as a structured log line. It is the default sink
// when no broker is configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Write(ctx context.Context, events []Event) error {
	for _, e := range events {
		level := slog.LevelInfo
		switch e.Severity {
		case SeverityWarning:
			level = slog.LevelWarn
		case SeverityCritical:
			level = slog.LevelError
		}
		s.logger.Log(ctx, level, "audit",
			"action", e.Action,
			"category", e.Category,
			"severity", e.Severity,
			"subject", e.Subject,
			"email", e.Email,
			"reason", e.Reason,
			"ip", e.IP,
			"device", e.Device,
			"request_id", e.RequestID,
			"event_time", e.Timestamp,
		)
	}
	return nil
}

func (s *LogSink) Close() error { return nil }

// MemorySink keeps events in memory. Used by tests and the CLI.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Write(_ context.Context, events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

func (s *MemorySink) Close() error { return nil }

// Events returns a copy of everything written so far.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

// Actions lists the actions written so far, in order.
func (s *MemorySink) Actions() []AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AuditEvent, len(s.events))
	for i, e := range s.events {
		out[i] = e.Action
	}
	return out
}
