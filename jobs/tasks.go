package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuditRecord is the task type carrying one catalog audit event.
	TaskAuditRecord = "audit:record"
	// TaskLowStockScan is the periodic scan for products at or below their
	// reorder threshold.
	TaskLowStockScan = "catalog:lowstock:scan"
)

// AuditRecordPayload mirrors one catalog mutation for the audit trail.
type AuditRecordPayload struct {
	Actor    string          `json:"actor"`
	Action   string          `json:"action"`
	Entity   string          `json:"entity"`
	EntityID string          `json:"entity_id"`
	Before   json.RawMessage `json:"before,omitempty"`
	After    json.RawMessage `json:"after,omitempty"`
	At       time.Time       `json:"at"`
}

// NewAuditRecordTask constructs an Asynq task for one audit event.
func NewAuditRecordTask(payload AuditRecordPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditRecord, data), nil
}

// LowStockScanPayload bounds one scan run.
type LowStockScanPayload struct {
	Limit int `json:"limit"`
}

// NewLowStockScanTask constructs the periodic low-stock scan task.
func NewLowStockScanTask(limit int) (*asynq.Task, error) {
	data, err := json.Marshal(LowStockScanPayload{Limit: limit})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, data), nil
}
