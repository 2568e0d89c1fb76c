package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rowhouse-labs/docket/pkg/store"
)

// StoreLogger records events into the hash-chained audit store, so
// every pipeline action lands on the tamper-evident trail.
type StoreLogger struct {
	store    *store.AuditStore
	operator string
}

func NewStoreLogger(s *store.AuditStore, operator string) *StoreLogger {
	if operator == "" {
		operator = "system"
	}
	return &StoreLogger{store: s, operator: operator}
}

var entryTypes = map[EventType]store.EntryType{
	EventScan:         store.EntryTypeScan,
	EventVerification: store.EntryTypeVerification,
	EventAssembly:     store.EntryTypeAssembly,
	EventAttestation:  store.EntryTypeAttestation,
	EventExport:       store.EntryTypeExport,
	EventRuleset:      store.EntryTypeRulesetChange,
}

func (l *StoreLogger) Record(ctx context.Context, eventType EventType, caseID, action string, metadata map[string]interface{}) error {
	if l.store == nil {
		return fmt.Errorf("fail-closed: audit store not configured")
	}
	entryType, ok := entryTypes[eventType]
	if !ok {
		return fmt.Errorf("unknown audit event type %q", eventType)
	}

	evt := Event{
		ID:        uuid.New().String(),
		Operator:  l.operator,
		CaseID:    caseID,
		Type:      eventType,
		Action:    action,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	}

	_, err := l.store.Append(entryType, caseID, action, evt, map[string]string{
		"operator":   l.operator,
		"event_id":   evt.ID,
		"event_type": string(eventType),
	})
	return err
}
