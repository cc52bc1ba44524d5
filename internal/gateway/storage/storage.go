// Package storage defines the persistence interfaces and record types used
// by the gateway's audit trail.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// AuditEvent stores one append-only gateway audit event: an admission
// rejection, a suspicious message, or an executive action.
type AuditEvent struct {
	ID          int64
	Timestamp   time.Time
	Severity    string
	ActorNumber int
	UserID      string
	Action      string
	Detail      string
}

// AuditEventStore persists append-only audit events.
type AuditEventStore interface {
	AppendAuditEvent(ctx context.Context, evt AuditEvent) error
	// ListAuditEvents returns the most recent events, newest first.
	ListAuditEvents(ctx context.Context, limit int) ([]AuditEvent, error)
}
