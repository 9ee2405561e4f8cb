package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
	"github.com/odyssey-erp/odyssey-pos/internal/inventory"
	"github.com/odyssey-erp/odyssey-pos/internal/observability"
	"github.com/odyssey-erp/odyssey-pos/internal/pos"
	"github.com/odyssey-erp/odyssey-pos/internal/reports"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// Services holds the domain services shared by the server, the worker and the CLI.
type Services struct {
	POS         *pos.Service
	Catalog     *catalog.Service
	Inventory   *inventory.Service
	Reports     *reports.Service
	ReportCache *reports.Cache
	Idempotency *shared.IdempotencyStore
}

// NewServices wires repositories and services. redisClient may be nil, which
// disables report caching; metrics may be nil.
func NewServices(cfg *Config, pool *pgxpool.Pool, redisClient *redis.Client, metrics *observability.Metrics, logger *slog.Logger) (*Services, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	audit := shared.NewAuditLogger(pool)
	idem := shared.NewIdempotencyStore(pool)

	var cache *reports.Cache
	var changes inventory.ChangeHandlers
	if redisClient != nil {
		cache = reports.NewCache(redisClient, cfg.ReportCacheTTL)
		// Every committed stock or catalog change invalidates cached reports.
		changes = append(changes, cache)
	}

	var posMetrics pos.MetricsPort
	if metrics != nil {
		posMetrics = metrics
	}

	return &Services{
		POS:         pos.NewService(pos.NewRepository(pool, cfg.TxMaxAttempts), audit, changes, posMetrics, logger.With(slog.String("module", "pos"))),
		Catalog:     catalog.NewService(catalog.NewRepository(pool, cfg.TxMaxAttempts), audit, changes, logger.With(slog.String("module", "catalog"))),
		Inventory:   inventory.NewService(inventory.NewRepository(pool, cfg.TxMaxAttempts), audit, idem, changes, logger.With(slog.String("module", "inventory"))),
		Reports:     reports.NewService(reports.NewRepository(pool), cache, loc, logger.With(slog.String("module", "reports"))),
		ReportCache: cache,
		Idempotency: idem,
	}, nil
}
