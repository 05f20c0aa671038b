package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Store is the slice of persistence the audit trail needs.
type Store interface {
	InsertAuditLog(ctx context.Context, entry Entry) error
}

type Logger struct {
	store Store
}

func NewLogger(store Store) *Logger {
	return &Logger{store: store}
}

type Entry struct {
	Action     string
	EntityType string
	EntityID   *uuid.UUID
	RequestID  string
	Metadata   map[string]any
}

func (l *Logger) Log(ctx context.Context, entry Entry) error {
	if l == nil || l.store == nil {
		return nil
	}
	if err := l.store.InsertAuditLog(ctx, entry); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}
