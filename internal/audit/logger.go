// Package audit persists catalog mutation events. Writes happen on the
// worker, never on the mutation path.
package audit

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry represents a record stored in audit_logs. Before and After hold JSON
// snapshots of the product around the mutation; either may be nil.
type Entry struct {
	Actor    string
	Action   string
	Entity   string
	EntityID string
	Before   []byte
	After    []byte
	At       time.Time
}

// Logger writes records into audit_logs.
type Logger struct {
	pool *pgxpool.Pool
}

// NewLogger returns a new Logger.
func NewLogger(pool *pgxpool.Pool) *Logger {
	return &Logger{pool: pool}
}

// Record persists the log entry.
func (l *Logger) Record(ctx context.Context, entry Entry) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	if entry.Action == "" || entry.Entity == "" || entry.EntityID == "" {
		return errors.New("audit entry requires action/entity/entity_id")
	}
	actor := entry.Actor
	if actor == "" {
		actor = "system"
	}
	at := entry.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := l.pool.Exec(ctx, `INSERT INTO audit_logs (actor, action, entity, entity_id, before, after, occurred_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		actor, entry.Action, entry.Entity, entry.EntityID, entry.Before, entry.After, at)
	return err
}
