package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-pos/internal/jobs"
	"github.com/odyssey-erp/odyssey-pos/internal/reports"
)

// LowStockLister lists active products at or below their reorder level.
type LowStockLister interface {
	LowStock(ctx context.Context) ([]reports.LowStockItem, error)
}

// LowStockScanJob logs products that need reordering.
type LowStockScanJob struct {
	Reports LowStockLister
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewLowStockScanJob wires dependencies for the scan handler.
func NewLowStockScanJob(lister LowStockLister, logger *slog.Logger, metrics *jobmetrics.Metrics) *LowStockScanJob {
	return &LowStockScanJob{Reports: lister, Logger: logger, Metrics: metrics}
}

// Handle runs the scan.
func (j *LowStockScanJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Reports == nil {
		return errors.New("low stock scan: handler not configured")
	}
	tracker := j.Metrics.Track(TaskInventoryLowStockScan)
	defer func() { err = tracker.End(err) }()

	logger := loggerOr(j.Logger).With(slog.String("job", TaskInventoryLowStockScan))
	items, err := j.Reports.LowStock(ctx)
	if err != nil {
		logger.Error("load low stock", slog.Any("error", err))
		return err
	}
	for _, it := range items {
		logger.Warn("low stock",
			slog.Int64("product_id", it.ProductID),
			slog.String("name", it.Name),
			slog.String("supplier", it.SupplierName),
			slog.Int64("current_stock", it.CurrentStock),
			slog.Int64("min_stock", it.MinStock),
		)
	}
	j.Metrics.AddFindings(TaskInventoryLowStockScan, len(items))
	logger.Info("low stock scan completed", slog.Int("products", len(items)))
	return nil
}
