package catalog

import (
	"context"
	"time"
)

// AuditEvent describes one catalog mutation for the audit trail. Before and
// After are nil for creations and deletions respectively.
type AuditEvent struct {
	Actor    string
	Action   string
	Entity   string
	EntityID string
	Before   *Product
	After    *Product
	At       time.Time
}

// AuditSink receives mutation events. Implementations are expected to be
// fast; the coordinator hands events off on a separate goroutine and drops
// them (with a log line) when recording fails, so a slow or failing sink can
// never add latency or failure modes to the mutation path.
type AuditSink interface {
	Record(ctx context.Context, event AuditEvent) error
}
