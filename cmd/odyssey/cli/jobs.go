package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-pos/jobs"
)

// Queue is the subset of *jobs.Client the jobs command drives.
type Queue interface {
	Enqueue(ctx context.Context, name, requestedBy string) (*asynq.TaskInfo, error)
	Stats() (jobs.QueueStats, error)
	Scheduled(size int) ([]*asynq.TaskInfo, error)
}

// JobsOptions controls where the jobs command writes.
type JobsOptions struct {
	Stdout io.Writer
	Stderr io.Writer
}

// JobsCLI implements `odyssey jobs`.
type JobsCLI struct {
	queue Queue
}

// NewJobsCLI wraps queue.
func NewJobsCLI(queue Queue) (*JobsCLI, error) {
	if queue == nil {
		return nil, fmt.Errorf("jobs cli: queue required")
	}
	return &JobsCLI{queue: queue}, nil
}

// JobsCommand runs one of trigger <task>, stats or scheduled and returns the exit code.
func (c *JobsCLI) JobsCommand(ctx context.Context, args []string, opts JobsOptions) int {
	stdout, stderr := opts.Stdout, opts.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	if len(args) == 0 {
		fmt.Fprintln(stderr, "jobs: expected trigger, stats or scheduled")
		return 2
	}

	switch args[0] {
	case "trigger":
		if len(args) != 2 {
			fmt.Fprintln(stderr, "jobs trigger: task name required")
			return 2
		}
		info, err := c.queue.Enqueue(ctx, args[1], "cli")
		if err != nil {
			fmt.Fprintf(stderr, "jobs trigger: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
	case "stats":
		stats, err := c.queue.Stats()
		if err != nil {
			fmt.Fprintf(stderr, "jobs stats: %v\n", err)
			return 1
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(stats)
	case "scheduled":
		tasks, err := c.queue.Scheduled(20)
		if err != nil {
			fmt.Fprintf(stderr, "jobs scheduled: %v\n", err)
			return 1
		}
		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTASK\tNEXT RUN")
		for _, t := range tasks {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", t.ID, t.Type, t.NextProcessAt.UTC().Format(time.RFC3339))
		}
		_ = tw.Flush()
	default:
		fmt.Fprintf(stderr, "jobs: unknown subcommand %q\n", args[0])
		return 2
	}
	return 0
}
