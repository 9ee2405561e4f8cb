package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskInventoryReconcile compares every product's stock with its ledger.
	TaskInventoryReconcile = "inventory:reconcile"
	// TaskInventoryLowStockScan reports products at or below their reorder level.
	TaskInventoryLowStockScan = "inventory:low_stock_scan"
	// TaskIdempotencyCleanup purges expired idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// Cron specs for the scheduled tasks, evaluated in UTC.
const (
	CronInventoryReconcile  = "0 * * * *"
	CronLowStockScan        = "*/30 * * * *"
	CronIdempotencyCleanup  = "0 3 * * *"
	defaultCleanupRetention = 7 * 24 * time.Hour
)

// ReconcilePayload carries scheduling metadata.
type ReconcilePayload struct {
	RequestedBy string `json:"requested_by,omitempty"`
}

// LowStockScanPayload carries scheduling metadata.
type LowStockScanPayload struct {
	RequestedBy string `json:"requested_by,omitempty"`
}

// IdempotencyCleanupPayload sets how long keys are kept. Zero means the default.
type IdempotencyCleanupPayload struct {
	Retention time.Duration `json:"retention"`
}

// NewReconcileTask constructs an inventory reconciliation task.
func NewReconcileTask(requestedBy string) (*asynq.Task, error) {
	return newTask(TaskInventoryReconcile, ReconcilePayload{RequestedBy: requestedBy})
}

// NewLowStockScanTask constructs a low stock scan task.
func NewLowStockScanTask(requestedBy string) (*asynq.Task, error) {
	return newTask(TaskInventoryLowStockScan, LowStockScanPayload{RequestedBy: requestedBy})
}

// NewIdempotencyCleanupTask constructs a cleanup task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	return newTask(TaskIdempotencyCleanup, IdempotencyCleanupPayload{Retention: retention})
}

// NewTaskByName builds any supported task with its default payload.
func NewTaskByName(name, requestedBy string) (*asynq.Task, error) {
	switch name {
	case TaskInventoryReconcile:
		return NewReconcileTask(requestedBy)
	case TaskInventoryLowStockScan:
		return NewLowStockScanTask(requestedBy)
	case TaskIdempotencyCleanup:
		return NewIdempotencyCleanupTask(0)
	default:
		return nil, fmt.Errorf("jobs: unsupported task %q", name)
	}
}

func newTask(typ string, payload any) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(typ, body, asynq.Queue(QueueDefault)), nil
}
