package pos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-pos/internal/inventory"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
)

// Repository persists sales in PostgreSQL.
type Repository struct {
	pool        *pgxpool.Pool
	maxAttempts int
}

// NewRepository constructs Repository. maxAttempts bounds serialization retries.
func NewRepository(pool *pgxpool.Pool, maxAttempts int) *Repository {
	return &Repository{pool: pool, maxAttempts: maxAttempts}
}

// TxRepository is the checkout unit of work: the stock primitives plus sale writes.
type TxRepository interface {
	inventory.TxRepository
	ReferenceExists(ctx context.Context, reference string) (bool, error)
	InsertSale(ctx context.Context, sale Sale) (Sale, error)
	InsertSaleLine(ctx context.Context, line SaleLine) (SaleLine, error)
}

type txRepository struct {
	inventory.TxRepository
	tx pgx.Tx
}

// WithTx runs fn in a serializable transaction, retrying serialization failures and deadlocks.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil || r.pool == nil {
		return errors.New("pos repository not initialised")
	}
	return db.WithSerializableTx(ctx, r.pool, r.maxAttempts, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{TxRepository: inventory.NewTxRepository(tx), tx: tx})
	})
}

func (t *txRepository) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sales WHERE reference = $1)`, reference).Scan(&exists)
	return exists, err
}

func (t *txRepository) InsertSale(ctx context.Context, sale Sale) (Sale, error) {
	var discountType *string
	if sale.Discount != nil {
		kind := string(sale.Discount.Type)
		discountType = &kind
	}
	err := t.tx.QueryRow(ctx, `INSERT INTO sales (reference, subtotal, discount_type, discount_value, discount_amount, total, tendered, change_due, note, cashier, item_count)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id, created_at`,
		sale.Reference, sale.Subtotal.Cents(), discountType, discountValue(sale.Discount), sale.DiscountAmount.Cents(),
		sale.Total.Cents(), sale.Tendered.Cents(), sale.Change.Cents(), sale.Note, sale.Cashier, sale.ItemCount,
	).Scan(&sale.ID, &sale.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, "sales_reference_key") {
			return Sale{}, ErrDuplicateReference
		}
		return Sale{}, fmt.Errorf("pos: insert sale: %w", err)
	}
	return sale, nil
}

func (t *txRepository) InsertSaleLine(ctx context.Context, line SaleLine) (SaleLine, error) {
	err := t.tx.QueryRow(ctx, `INSERT INTO sale_lines (sale_id, product_id, quantity, unit_price, line_total)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`, line.SaleID, line.ProductID, line.Quantity, line.UnitPrice.Cents(), line.LineTotal.Cents()).Scan(&line.ID)
	if err != nil {
		return SaleLine{}, fmt.Errorf("pos: insert sale line: %w", err)
	}
	return line, nil
}

const saleColumns = `s.id, s.reference, s.subtotal, COALESCE(s.discount_type, ''), s.discount_value, s.discount_amount,
s.total, s.tendered, s.change_due, s.note, s.cashier, s.item_count, s.created_at`

func scanSale(row pgx.Row) (Sale, error) {
	var s Sale
	var discountType string
	var discountValue int64
	err := row.Scan(&s.ID, &s.Reference, &s.Subtotal, &discountType, &discountValue, &s.DiscountAmount,
		&s.Total, &s.Tendered, &s.Change, &s.Note, &s.Cashier, &s.ItemCount, &s.CreatedAt)
	if err != nil {
		return Sale{}, err
	}
	s.Discount = discountFromStored(discountType, discountValue)
	return s, nil
}

// ListSales returns sale headers newest first.
func (r *Repository) ListSales(ctx context.Context, filter SaleFilter) ([]Sale, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("pos repository not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT `+saleColumns+`
FROM sales s
WHERE s.created_at BETWEEN COALESCE($1, '-infinity'::timestamptz) AND COALESCE($2, 'infinity'::timestamptz)
ORDER BY s.created_at DESC, s.id DESC
LIMIT $3`, nullTime(filter.From), nullTime(filter.To), filter.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	sales := []Sale{}
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, s)
	}
	return sales, rows.Err()
}

// GetSale loads a sale and its lines by id.
func (r *Repository) GetSale(ctx context.Context, id int64) (Sale, error) {
	return r.getSale(ctx, `s.id = $1`, id)
}

// GetSaleByReference loads a sale and its lines by reference.
func (r *Repository) GetSaleByReference(ctx context.Context, reference string) (Sale, error) {
	return r.getSale(ctx, `s.reference = $1`, reference)
}

func (r *Repository) getSale(ctx context.Context, where string, arg any) (Sale, error) {
	if r == nil || r.pool == nil {
		return Sale{}, errors.New("pos repository not initialised")
	}
	sale, err := scanSale(r.pool.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales s WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, ErrSaleNotFound
		}
		return Sale{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT l.id, l.sale_id, l.product_id, p.name, p.unit, l.quantity, l.unit_price, l.line_total
FROM sale_lines l
JOIN products p ON p.id = l.product_id
WHERE l.sale_id = $1
ORDER BY l.id`, sale.ID)
	if err != nil {
		return Sale{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var l SaleLine
		if err := rows.Scan(&l.ID, &l.SaleID, &l.ProductID, &l.ProductName, &l.Unit, &l.Quantity, &l.UnitPrice, &l.LineTotal); err != nil {
			return Sale{}, err
		}
		sale.Lines = append(sale.Lines, l)
	}
	return sale, rows.Err()
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
