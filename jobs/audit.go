package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/thedavestack/product-catalog/internal/audit"
	"github.com/thedavestack/product-catalog/internal/catalog"
)

// AuditEnqueuer satisfies catalog.AuditSink by handing events to the queue.
// The mutation path only pays for one enqueue round-trip; the worker owns
// persistence and its retries.
type AuditEnqueuer struct {
	client *asynq.Client
}

// NewAuditEnqueuer constructs AuditEnqueuer.
func NewAuditEnqueuer(client *asynq.Client) *AuditEnqueuer {
	return &AuditEnqueuer{client: client}
}

// Record enqueues one audit event.
func (e *AuditEnqueuer) Record(ctx context.Context, event catalog.AuditEvent) error {
	payload := AuditRecordPayload{
		Actor:    event.Actor,
		Action:   event.Action,
		Entity:   event.Entity,
		EntityID: event.EntityID,
		At:       event.At,
	}
	if event.Before != nil {
		raw, err := json.Marshal(event.Before)
		if err != nil {
			return err
		}
		payload.Before = raw
	}
	if event.After != nil {
		raw, err := json.Marshal(event.After)
		if err != nil {
			return err
		}
		payload.After = raw
	}
	task, err := NewAuditRecordTask(payload)
	if err != nil {
		return err
	}
	_, err = e.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault), asynq.MaxRetry(3))
	return err
}

// AuditJob persists queued audit events.
type AuditJob struct {
	writer *audit.Logger
	logger *slog.Logger
}

// NewAuditJob constructs AuditJob.
func NewAuditJob(writer *audit.Logger, logger *slog.Logger) *AuditJob {
	return &AuditJob{writer: writer, logger: logger}
}

// Handle processes TaskAuditRecord tasks.
func (j *AuditJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload AuditRecordPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	err := j.writer.Record(ctx, audit.Entry{
		Actor:    payload.Actor,
		Action:   payload.Action,
		Entity:   payload.Entity,
		EntityID: payload.EntityID,
		Before:   payload.Before,
		After:    payload.After,
		At:       payload.At,
	})
	if err != nil {
		j.logger.Error("persist audit record",
			slog.String("action", payload.Action),
			slog.String("entity_id", payload.EntityID),
			slog.Any("error", err))
	}
	return err
}
