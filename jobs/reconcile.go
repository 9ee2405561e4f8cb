package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-pos/internal/inventory"
	jobmetrics "github.com/odyssey-erp/odyssey-pos/internal/jobs"
)

// Reconciler returns products whose stock differs from their ledger.
type Reconciler interface {
	ReconcileAll(ctx context.Context) ([]inventory.Reconciliation, error)
}

// DriftRecorder receives the number of drifting products after each run.
type DriftRecorder interface {
	SetStockDrift(products int)
}

// ReconcileJob checks the stock ledger invariant for every product.
type ReconcileJob struct {
	Inventory Reconciler
	Drift     DriftRecorder
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewReconcileJob wires dependencies for the reconciliation handler.
func NewReconcileJob(inv Reconciler, drift DriftRecorder, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReconcileJob {
	return &ReconcileJob{Inventory: inv, Drift: drift, Logger: logger, Metrics: metrics}
}

// Handle runs the reconciliation. Drift is reported, never repaired.
func (j *ReconcileJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Inventory == nil {
		return errors.New("reconcile: handler not configured")
	}
	var payload ReconcilePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	tracker := j.Metrics.Track(TaskInventoryReconcile)
	defer func() { err = tracker.End(err) }()

	logger := loggerOr(j.Logger).With(slog.String("job", TaskInventoryReconcile))
	drifting, err := j.Inventory.ReconcileAll(ctx)
	if err != nil {
		logger.Error("reconcile stock ledger", slog.Any("error", err))
		return err
	}
	for _, r := range drifting {
		logger.Error("stock ledger drift",
			slog.Int64("product_id", r.ProductID),
			slog.String("name", r.Name),
			slog.Int64("current_stock", r.CurrentStock),
			slog.Int64("ledger_sum", r.LedgerSum),
			slog.Int64("drift", r.Drift()),
		)
	}
	if j.Drift != nil {
		j.Drift.SetStockDrift(len(drifting))
	}
	j.Metrics.AddFindings(TaskInventoryReconcile, len(drifting))
	logger.Info("stock ledger reconciled", slog.Int("drifting", len(drifting)), slog.String("requested_by", payload.RequestedBy))
	return nil
}

func loggerOr(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
