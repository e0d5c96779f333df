// Package jobs runs the background integrity checks and housekeeping the
// transactional core relies on: every non-void journal entry must balance,
// every stock projection must equal the signed sum of its non-reversed
// movements, and stale idempotency keys must go away.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrity verifies that posted entries balance.
	TaskLedgerIntegrity = "ledger:integrity"
	// TaskStockRecount verifies projections against the movement log.
	TaskStockRecount = "stock:recount"
	// TaskIdempotencyCleanup drops expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// LedgerIntegrityPayload scopes an integrity run. TenantID zero means all
// tenants.
type LedgerIntegrityPayload struct {
	TenantID int64 `json:"tenant_id"`
}

// NewLedgerIntegrityTask constructs the asynq task.
func NewLedgerIntegrityTask(payload LedgerIntegrityPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrity, data), nil
}

// StockRecountPayload scopes a recount run.
type StockRecountPayload struct {
	TenantID int64 `json:"tenant_id"`
	// Repair rewrites drifted projections from the movement log instead of
	// only reporting them.
	Repair bool `json:"repair"`
}

// NewStockRecountTask constructs the asynq task.
func NewStockRecountTask(payload StockRecountPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStockRecount, data), nil
}

// IdempotencyCleanupPayload carries the retention window in hours.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewIdempotencyCleanupTask constructs the asynq task.
func NewIdempotencyCleanupTask(payload IdempotencyCleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}
