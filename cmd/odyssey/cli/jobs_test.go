package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pos/jobs"
)

type stubQueue struct {
	enqueued  []string
	stats     jobs.QueueStats
	scheduled []*asynq.TaskInfo
	err       error
}

func (s *stubQueue) Enqueue(_ context.Context, name, requestedBy string) (*asynq.TaskInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.enqueued = append(s.enqueued, name+"/"+requestedBy)
	return &asynq.TaskInfo{ID: "t-1", Type: name, Queue: jobs.QueueDefault}, nil
}

func (s *stubQueue) Stats() (jobs.QueueStats, error) { return s.stats, s.err }

func (s *stubQueue) Scheduled(int) ([]*asynq.TaskInfo, error) { return s.scheduled, s.err }

func runJobs(t *testing.T, q Queue, args ...string) (int, string, string) {
	t.Helper()
	jc, err := NewJobsCLI(q)
	require.NoError(t, err)
	var stdout, stderr bytes.Buffer
	code := jc.JobsCommand(context.Background(), args, JobsOptions{Stdout: &stdout, Stderr: &stderr})
	return code, stdout.String(), stderr.String()
}

func TestJobsTrigger(t *testing.T) {
	q := &stubQueue{}
	code, out, _ := runJobs(t, q, "trigger", jobs.TaskInventoryReconcile)
	require.Zero(t, code)
	require.Contains(t, out, "enqueued inventory:reconcile id=t-1")
	require.Equal(t, []string{"inventory:reconcile/cli"}, q.enqueued)

	code, _, errOut := runJobs(t, q, "trigger")
	require.Equal(t, 2, code)
	require.Contains(t, errOut, "task name required")

	code, _, errOut = runJobs(t, &stubQueue{err: errors.New("unknown task")}, "trigger", "mail:send")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "unknown task")
}

func TestJobsStatsAndScheduled(t *testing.T) {
	q := &stubQueue{
		stats: jobs.QueueStats{Queue: jobs.QueueDefault, Pending: 2, Retry: 1},
		scheduled: []*asynq.TaskInfo{{
			ID: "s-1", Type: jobs.TaskInventoryLowStockScan,
			NextProcessAt: time.Date(2026, time.March, 11, 9, 30, 0, 0, time.UTC),
		}},
	}
	code, out, _ := runJobs(t, q, "stats")
	require.Zero(t, code)
	var stats jobs.QueueStats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	require.Equal(t, 2, stats.Pending)

	code, out, _ = runJobs(t, q, "scheduled")
	require.Zero(t, code)
	require.Contains(t, out, "inventory:low_stock_scan")
	require.Contains(t, out, "2026-03-11T09:30:00Z")
}

func TestJobsUnknownSubcommand(t *testing.T) {
	code, _, errOut := runJobs(t, &stubQueue{}, "purge")
	require.Equal(t, 2, code)
	require.Contains(t, errOut, `unknown subcommand "purge"`)

	_, err := NewJobsCLI(nil)
	require.Error(t, err)
}
