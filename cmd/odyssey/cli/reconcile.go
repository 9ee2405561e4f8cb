package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/odyssey-erp/odyssey-pos/internal/inventory"
)

// ExitDrift is returned when at least one product's stock differs from its ledger.
const ExitDrift = 10

// Reconciler lists products whose stock column differs from the sum of their movements.
type Reconciler interface {
	ReconcileAll(ctx context.Context) ([]inventory.Reconciliation, error)
}

// ReconcileCLI checks the stock ledger from the command line.
type ReconcileCLI struct {
	inventory Reconciler
}

// NewReconcileCLI constructs the helper.
func NewReconcileCLI(inv Reconciler) (*ReconcileCLI, error) {
	if inv == nil {
		return nil, errors.New("reconcile cli: inventory service required")
	}
	return &ReconcileCLI{inventory: inv}, nil
}

// ReconcileOptions defines available flags for the reconcile command.
type ReconcileOptions struct {
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// ReconcileSummary describes the JSON output of reconcile.
type ReconcileSummary struct {
	OK       bool            `json:"ok"`
	Drifting []DriftingEntry `json:"drifting"`
}

// DriftingEntry is one product whose stock is not explained by its ledger.
type DriftingEntry struct {
	ProductID    int64  `json:"product_id"`
	Name         string `json:"name"`
	CurrentStock int64  `json:"current_stock"`
	LedgerSum    int64  `json:"ledger_sum"`
	Drift        int64  `json:"drift"`
}

// ReconcileCommand runs the check, prints the outcome and returns the exit code.
func (c *ReconcileCLI) ReconcileCommand(ctx context.Context, opts ReconcileOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	rows, err := c.inventory.ReconcileAll(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "reconcile: %v\n", err)
		return 1
	}
	summary := buildReconcileSummary(rows)
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(summary); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "reconcile: encode json: %v\n", err)
			return 1
		}
	} else {
		renderReconcileHuman(opts.Stdout, summary)
	}
	if !summary.OK {
		return ExitDrift
	}
	return 0
}

func buildReconcileSummary(rows []inventory.Reconciliation) ReconcileSummary {
	drifting := make([]DriftingEntry, 0, len(rows))
	for _, r := range rows {
		if r.Balanced() {
			continue
		}
		drifting = append(drifting, DriftingEntry{
			ProductID:    r.ProductID,
			Name:         r.Name,
			CurrentStock: r.CurrentStock,
			LedgerSum:    r.LedgerSum,
			Drift:        r.Drift(),
		})
	}
	sort.Slice(drifting, func(i, j int) bool { return drifting[i].ProductID < drifting[j].ProductID })
	return ReconcileSummary{OK: len(drifting) == 0, Drifting: drifting}
}

func renderReconcileHuman(out io.Writer, summary ReconcileSummary) {
	if summary.OK {
		_, _ = fmt.Fprintln(out, "Stock ledger balanced for every product.")
		return
	}
	_, _ = fmt.Fprintf(out, "%d product(s) drifting:\n", len(summary.Drifting))
	for _, d := range summary.Drifting {
		_, _ = fmt.Fprintf(out, " - #%d %s: stock %d, ledger %d (drift %+d)\n", d.ProductID, d.Name, d.CurrentStock, d.LedgerSum, d.Drift)
	}
}
