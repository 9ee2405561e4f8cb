package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	defaultConcurrency = 5
	defaultMaxRetry    = 3
	scheduledBy        = "scheduler"
)

// Worker runs the asynq server and, when cron entries are configured, its scheduler.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	logger    *slog.Logger
}

// TaskHandler binds a task type to its handler.
type TaskHandler struct {
	Type    string
	Handler asynq.HandlerFunc
}

// CronRegistration enqueues Task on the cron Spec.
type CronRegistration struct {
	Spec    string
	Task    *asynq.Task
	Options []asynq.Option
}

// WorkerConfig collects what NewWorker needs.
type WorkerConfig struct {
	RedisOpts   asynq.RedisClientOpt
	Logger      *slog.Logger
	Concurrency int
	Location    *time.Location
	Handlers    []TaskHandler
	Cron        []CronRegistration
}

// NewWorker builds the server mux and registers cron entries.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	logger := loggerOr(cfg.Logger)
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{QueueDefault: 1},
		Logger:      newAsynqLogger(logger),
		LogLevel:    asynq.InfoLevel,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			logger.Warn("task failed",
				slog.String("task", task.Type()),
				slog.Int("retried", retried),
				slog.Any("error", err))
		}),
	})

	mux := asynq.NewServeMux()
	for _, h := range cfg.Handlers {
		if h.Type == "" || h.Handler == nil {
			return nil, fmt.Errorf("jobs: incomplete handler for %q", h.Type)
		}
		mux.HandleFunc(h.Type, h.Handler)
	}

	w := &Worker{server: srv, mux: mux, logger: logger}
	if len(cfg.Cron) == 0 {
		return w, nil
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	w.scheduler = asynq.NewScheduler(cfg.RedisOpts, &asynq.SchedulerOpts{Location: loc, Logger: newAsynqLogger(logger)})
	for _, entry := range cfg.Cron {
		id, err := w.scheduler.Register(entry.Spec, entry.Task, entry.Options...)
		if err != nil {
			return nil, fmt.Errorf("jobs: schedule %s: %w", entry.Task.Type(), err)
		}
		logger.Info("cron registered", slog.String("task", entry.Task.Type()), slog.String("spec", entry.Spec), slog.String("entry", id))
	}
	return w, nil
}

// Schedule returns the recurring inventory and maintenance tasks.
func Schedule() ([]CronRegistration, error) {
	specs := []struct {
		spec string
		task string
	}{
		{CronInventoryReconcile, TaskInventoryReconcile},
		{CronLowStockScan, TaskInventoryLowStockScan},
		{CronIdempotencyCleanup, TaskIdempotencyCleanup},
	}
	out := make([]CronRegistration, 0, len(specs))
	for _, s := range specs {
		task, err := NewTaskByName(s.task, scheduledBy)
		if err != nil {
			return nil, err
		}
		out = append(out, CronRegistration{
			Spec:    s.spec,
			Task:    task,
			Options: []asynq.Option{asynq.Queue(QueueDefault), asynq.MaxRetry(defaultMaxRetry)},
		})
	}
	return out, nil
}

// Run processes tasks until ctx is cancelled or the server stops.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("jobs: worker not configured")
	}
	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			return err
		}
		defer w.scheduler.Shutdown()
	}
	errCh := make(chan error, 1)
	go func() { errCh <- w.server.Run(w.mux) }()

	select {
	case <-ctx.Done():
		w.logger.Info("worker stopping")
		w.server.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
