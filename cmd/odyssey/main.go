package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-pos/cmd/odyssey/cli"
	"github.com/odyssey-erp/odyssey-pos/internal/app"
	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
	"github.com/odyssey-erp/odyssey-pos/internal/inventory"
	"github.com/odyssey-erp/odyssey-pos/internal/observability"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
	"github.com/odyssey-erp/odyssey-pos/internal/pos"
	"github.com/odyssey-erp/odyssey-pos/internal/reports"
	"github.com/odyssey-erp/odyssey-pos/jobs"
)

const usage = `usage: odyssey [command]

commands:
  serve                  run the HTTP API (default)
  reconcile [--json]     compare stock with the ledger; exits 10 on drift
  jobs trigger <task>    enqueue inventory:reconcile, inventory:low_stock_scan or maintenance:idempotency_cleanup
  jobs stats             print queue statistics
  jobs scheduled         list upcoming scheduled tasks
`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}
	switch cmd {
	case "serve":
		os.Exit(serve(ctx, stop, cfg, logger))
	case "reconcile":
		os.Exit(reconcile(ctx, cfg, logger, args))
	case "jobs":
		os.Exit(jobsCommand(ctx, cfg, args))
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func serve(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger) int {
	dbpool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		return 1
	}
	defer dbpool.Close()

	// Reports fall back to uncached loads when Redis is down at startup.
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, report caching disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()
	services, err := app.NewServices(cfg, dbpool, redisClient, metrics, logger)
	if err != nil {
		logger.Error("wire services", slog.Any("error", err))
		return 1
	}

	redisOpt, err := jobs.RedisOpt(cfg.RedisAddr)
	if err != nil {
		logger.Error("redis address", slog.Any("error", err))
		return 1
	}
	inspector := asynq.NewInspector(redisOpt)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	// LoadConfig already rejected an unknown REPORT_TIMEZONE.
	loc, _ := cfg.Location()

	readiness := map[string]app.Pinger{"postgres": dbpool}
	if redisClient != nil {
		readiness["redis"] = app.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	}

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		POSHandler:       pos.NewHandler(logger, services.POS, cfg.CheckoutRateLimit).WithLocation(loc),
		CatalogHandler:   catalog.NewHandler(logger, services.Catalog),
		InventoryHandler: inventory.NewHandler(logger, services.Inventory).WithLocation(loc),
		ReportsHandler:   reports.NewHandler(logger, services.Reports),
		JobHandler:       jobs.NewHandler(inspector, logger),
		Metrics:          metrics,
		Readiness:        readiness,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
		return 1
	}
	return 0
}

func reconcile(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) int {
	fs := flag.NewFlagSet("reconcile", flag.ContinueOnError)
	jsonOutput := fs.Bool("json", false, "print the result as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	dbpool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: 2})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		return 1
	}
	defer dbpool.Close()

	services, err := app.NewServices(cfg, dbpool, nil, nil, logger)
	if err != nil {
		logger.Error("wire services", slog.Any("error", err))
		return 1
	}
	rc, err := cli.NewReconcileCLI(services.Inventory)
	if err != nil {
		logger.Error("init reconcile", slog.Any("error", err))
		return 1
	}
	return rc.ReconcileCommand(ctx, cli.ReconcileOptions{JSONOutput: *jsonOutput})
}

func jobsCommand(ctx context.Context, cfg *app.Config, args []string) int {
	redisOpt, err := jobs.RedisOpt(cfg.RedisAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "jobs: %v\n", err)
		return 1
	}
	client := jobs.NewClient(redisOpt)
	defer func() { _ = client.Close() }()

	jc, err := cli.NewJobsCLI(client)
	if err != nil {
		fmt.Fprintf(os.Stderr, "jobs: %v\n", err)
		return 1
	}
	return jc.JobsCommand(ctx, args, cli.JobsOptions{})
}
