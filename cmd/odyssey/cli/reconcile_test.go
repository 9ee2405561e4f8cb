package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pos/internal/inventory"
)

type stubReconciler struct {
	rows []inventory.Reconciliation
	err  error
}

func (s stubReconciler) ReconcileAll(context.Context) ([]inventory.Reconciliation, error) {
	return s.rows, s.err
}

func TestReconcileCommandBalanced(t *testing.T) {
	cli, err := NewReconcileCLI(stubReconciler{})
	require.NoError(t, err)

	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	exitCode := cli.ReconcileCommand(context.Background(), ReconcileOptions{JSONOutput: true, Stdout: stdout, Stderr: stderr})
	require.Zero(t, exitCode)
	require.Empty(t, stderr.String())

	var summary ReconcileSummary
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &summary))
	require.True(t, summary.OK)
	require.Empty(t, summary.Drifting)
}

func TestReconcileCommandDrift(t *testing.T) {
	cli, err := NewReconcileCLI(stubReconciler{rows: []inventory.Reconciliation{
		{ProductID: 9, Name: "Gula 1kg", CurrentStock: 12, LedgerSum: 10},
		{ProductID: 3, Name: "Kopi", CurrentStock: 0, LedgerSum: 1},
	}})
	require.NoError(t, err)

	stdout := new(bytes.Buffer)
	exitCode := cli.ReconcileCommand(context.Background(), ReconcileOptions{JSONOutput: true, Stdout: stdout, Stderr: new(bytes.Buffer)})
	require.Equal(t, ExitDrift, exitCode)

	var summary ReconcileSummary
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &summary))
	require.False(t, summary.OK)
	require.Len(t, summary.Drifting, 2)
	require.Equal(t, int64(3), summary.Drifting[0].ProductID)
	require.Equal(t, int64(-1), summary.Drifting[0].Drift)
	require.Equal(t, int64(2), summary.Drifting[1].Drift)

	human := new(bytes.Buffer)
	require.Equal(t, ExitDrift, cli.ReconcileCommand(context.Background(), ReconcileOptions{Stdout: human, Stderr: new(bytes.Buffer)}))
	require.Contains(t, human.String(), "2 product(s) drifting")
	require.Contains(t, human.String(), "drift +2")
}

func TestReconcileCommandStorageError(t *testing.T) {
	cli, err := NewReconcileCLI(stubReconciler{err: errors.New("connection refused")})
	require.NoError(t, err)

	stderr := new(bytes.Buffer)
	exitCode := cli.ReconcileCommand(context.Background(), ReconcileOptions{Stdout: new(bytes.Buffer), Stderr: stderr})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "connection refused")

	_, err = NewReconcileCLI(nil)
	require.Error(t, err)
}
