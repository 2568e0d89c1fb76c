// Package audit records who did what to which case. The line Logger
// gives operators a grep-friendly stream; StoreLogger feeds the same
// events into the tamper-evident chain; Exporter turns a case's trail
// into a reviewable zip.
package audit

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType categorizes an audit event by pipeline stage.
type EventType string

const (
	EventScan         EventType = "SCAN"
	EventVerification EventType = "VERIFICATION"
	EventAssembly     EventType = "ASSEMBLY"
	EventAttestation  EventType = "ATTESTATION"
	EventExport       EventType = "EXPORT"
	EventRuleset      EventType = "RULESET"
)

// Event represents a structured audit record.
type Event struct {
	ID        string                 `json:"id"`
	Operator  string                 `json:"operator"`
	CaseID    string                 `json:"case_id,omitempty"`
	Type      EventType              `json:"type"`
	Action    string                 `json:"action"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Logger defines the interface for recording audit events.
type Logger interface {
	Record(ctx context.Context, eventType EventType, caseID, action string, metadata map[string]interface{}) error
}

// logger implements Logger, writing structured JSON to a configurable Writer.
type logger struct {
	mu       sync.Mutex
	writer   io.Writer
	operator string
}

// NewLogger creates a Logger writing to os.Stdout. An empty operator
// records as "system".
func NewLogger(operator string) Logger {
	return NewLoggerWithWriter(os.Stdout, operator)
}

// NewLoggerWithWriter creates a Logger writing to the given writer.
// This allows injection for testing and custom sinks.
func NewLoggerWithWriter(w io.Writer, operator string) Logger {
	if w == nil {
		w = os.Stdout
	}
	if operator == "" {
		operator = "system"
	}
	return &logger{writer: w, operator: operator}
}

func (l *logger) Record(ctx context.Context, eventType EventType, caseID, action string, metadata map[string]interface{}) error {
	event := Event{
		ID:        uuid.New().String(),
		Operator:  l.operator,
		CaseID:    caseID,
		Type:      eventType,
		Action:    action,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	bytes, err := json.Marshal(event)
	if err != nil {
		return err
	}
	// Prefix with AUDIT: for easy filtering
	_, err = l.writer.Write(append([]byte("AUDIT: "), append(bytes, '\n')...))
	return err
}
