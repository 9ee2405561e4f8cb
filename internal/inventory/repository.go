package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
)

// Repository persists ledger data in PostgreSQL.
type Repository struct {
	pool        *pgxpool.Pool
	maxAttempts int
}

// NewRepository constructs Repository. maxAttempts bounds serialization retries.
func NewRepository(pool *pgxpool.Pool, maxAttempts int) *Repository {
	return &Repository{pool: pool, maxAttempts: maxAttempts}
}

// TxRepository exposes the stock primitives that must run inside a transaction.
type TxRepository interface {
	// LockProducts row-locks the given products in id order and returns their stock.
	// Unknown ids are absent from the map.
	LockProducts(ctx context.Context, ids []int64) (map[int64]StockLevel, error)
	// ApplyMovement changes current_stock by m.Delta and appends the ledger row.
	ApplyMovement(ctx context.Context, m Movement) (Movement, error)
}

type txRepository struct {
	tx pgx.Tx
}

// NewTxRepository binds the stock primitives to an open transaction so other
// modules can compose them with their own writes.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

// WithTx executes the callback inside a serializable transaction, retrying on conflicts.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil || r.pool == nil {
		return errors.New("inventory repository not initialised")
	}
	return db.WithSerializableTx(ctx, r.pool, r.maxAttempts, func(tx pgx.Tx) error {
		return fn(ctx, NewTxRepository(tx))
	})
}

func (t *txRepository) LockProducts(ctx context.Context, ids []int64) (map[int64]StockLevel, error) {
	rows, err := t.tx.Query(ctx, `SELECT id, name, unit, current_stock, min_stock, is_active
FROM products
WHERE id = ANY($1)
ORDER BY id
FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	levels := make(map[int64]StockLevel, len(ids))
	for rows.Next() {
		var lvl StockLevel
		if err := rows.Scan(&lvl.ProductID, &lvl.Name, &lvl.Unit, &lvl.Stock, &lvl.MinStock, &lvl.Active); err != nil {
			return nil, err
		}
		levels[lvl.ProductID] = lvl
	}
	return levels, rows.Err()
}

func (t *txRepository) ApplyMovement(ctx context.Context, m Movement) (Movement, error) {
	var balance int64
	err := t.tx.QueryRow(ctx, `UPDATE products
SET current_stock = current_stock + $2, updated_at = NOW()
WHERE id = $1 AND current_stock + $2 >= 0
RETURNING current_stock`, m.ProductID, m.Delta).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || db.IsCheckViolation(err, "products_current_stock_check") {
			return Movement{}, ErrNegativeStock
		}
		return Movement{}, fmt.Errorf("inventory: update stock: %w", err)
	}
	m.BalanceAfter = balance
	var saleID *int64
	if m.SaleID != 0 {
		saleID = &m.SaleID
	}
	err = t.tx.QueryRow(ctx, `INSERT INTO stock_movements (product_id, delta, reason, sale_id, note, balance_after)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, created_at`, m.ProductID, m.Delta, string(m.Reason), saleID, m.Note, m.BalanceAfter).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return Movement{}, fmt.Errorf("inventory: insert movement: %w", err)
	}
	return m, nil
}

// ListMovements returns ledger rows newest first.
func (r *Repository) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("inventory repository not initialised")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT id, product_id, delta, reason, COALESCE(sale_id, 0), note, balance_after, created_at
FROM stock_movements
WHERE ($1::bigint = 0 OR product_id = $1)
  AND ($2::text = '' OR reason = $2)
  AND created_at BETWEEN COALESCE($3, '-infinity'::timestamptz) AND COALESCE($4, 'infinity'::timestamptz)
ORDER BY created_at DESC, id DESC
LIMIT $5`, filter.ProductID, string(filter.Reason), nullTime(filter.From), nullTime(filter.To), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	movements := []Movement{}
	for rows.Next() {
		var m Movement
		var reason string
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Delta, &reason, &m.SaleID, &m.Note, &m.BalanceAfter, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Reason = Reason(reason)
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

const reconcileQuery = `SELECT p.id, p.name, p.current_stock, COALESCE(SUM(m.delta), 0), COUNT(m.id)
FROM products p
LEFT JOIN stock_movements m ON m.product_id = p.id
WHERE ($1::bigint = 0 OR p.id = $1)
GROUP BY p.id, p.name, p.current_stock
ORDER BY p.id`

// Reconcile compares one product's stock with its ledger.
func (r *Repository) Reconcile(ctx context.Context, productID int64) (Reconciliation, error) {
	rows, err := r.reconcile(ctx, productID)
	if err != nil {
		return Reconciliation{}, err
	}
	if len(rows) == 0 {
		return Reconciliation{}, ErrProductNotFound
	}
	return rows[0], nil
}

// ReconcileAll compares every product's stock with its ledger.
func (r *Repository) ReconcileAll(ctx context.Context) ([]Reconciliation, error) {
	return r.reconcile(ctx, 0)
}

func (r *Repository) reconcile(ctx context.Context, productID int64) ([]Reconciliation, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("inventory repository not initialised")
	}
	// Repeatable read gives one snapshot for the stock column and the ledger sum.
	var out []Reconciliation
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, reconcileQuery, productID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var rec Reconciliation
			if err := rows.Scan(&rec.ProductID, &rec.Name, &rec.CurrentStock, &rec.LedgerSum, &rec.Movements); err != nil {
				return err
			}
			out = append(out, rec)
		}
		return rows.Err()
	})
	return out, err
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
