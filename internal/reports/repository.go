package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository runs read-only aggregations. It never recomputes stock from the ledger.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SalesTotals counts sales created in [from, to). Zero bounds are open.
func (r *Repository) SalesTotals(ctx context.Context, from, to time.Time) (Period, error) {
	var p Period
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(total), 0)
FROM sales
WHERE created_at >= COALESCE($1, '-infinity'::timestamptz)
  AND created_at < COALESCE($2, 'infinity'::timestamptz)`, nullTime(from), nullTime(to)).Scan(&p.Count, &p.Revenue)
	return p, err
}

// DailyTotals returns one row per day with sales since from, in loc's calendar.
func (r *Repository) DailyTotals(ctx context.Context, from time.Time, loc *time.Location) ([]DayPoint, error) {
	rows, err := r.pool.Query(ctx, `SELECT to_char(created_at AT TIME ZONE $2, 'YYYY-MM-DD') AS day, COUNT(*), COALESCE(SUM(total), 0)
FROM sales
WHERE created_at >= $1
GROUP BY day
ORDER BY day`, from, loc.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	points := []DayPoint{}
	for rows.Next() {
		var p DayPoint
		if err := rows.Scan(&p.Date, &p.Count, &p.Revenue); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// WeeklyTotals returns one row per ISO week (Monday start) with sales since from.
// StartDate carries the week's Monday in loc's calendar.
func (r *Repository) WeeklyTotals(ctx context.Context, from time.Time, loc *time.Location) ([]WeekPoint, error) {
	rows, err := r.pool.Query(ctx, `SELECT to_char(date_trunc('week', created_at AT TIME ZONE $2), 'YYYY-MM-DD') AS week_start, COUNT(*), COALESCE(SUM(total), 0)
FROM sales
WHERE created_at >= $1
GROUP BY week_start
ORDER BY week_start`, from, loc.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	points := []WeekPoint{}
	for rows.Next() {
		var p WeekPoint
		if err := rows.Scan(&p.StartDate, &p.Count, &p.Revenue); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// MonthlyTotals returns one row per calendar month with sales since from. Month is YYYY-MM.
func (r *Repository) MonthlyTotals(ctx context.Context, from time.Time, loc *time.Location) ([]MonthPoint, error) {
	rows, err := r.pool.Query(ctx, `SELECT to_char(created_at AT TIME ZONE $2, 'YYYY-MM') AS month, COUNT(*), COALESCE(SUM(total), 0)
FROM sales
WHERE created_at >= $1
GROUP BY month
ORDER BY month`, from, loc.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	points := []MonthPoint{}
	for rows.Next() {
		var p MonthPoint
		if err := rows.Scan(&p.Month, &p.Count, &p.Revenue); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// TopProducts ranks products by quantity sold.
func (r *Repository) TopProducts(ctx context.Context, limit int) ([]ProductSales, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.name, SUM(l.quantity) AS qty, SUM(l.line_total)
FROM sale_lines l
JOIN products p ON p.id = l.product_id
GROUP BY p.id, p.name
ORDER BY qty DESC, p.name
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ProductSales{}
	for rows.Next() {
		var ps ProductSales
		if err := rows.Scan(&ps.ProductID, &ps.Name, &ps.Quantity, &ps.Revenue); err != nil {
			return nil, err
		}
		out = append(out, ps)
	}
	return out, rows.Err()
}

// CategorySales totals sale lines per category, including categories without sales.
func (r *Repository) CategorySales(ctx context.Context) ([]CategorySales, error) {
	rows, err := r.pool.Query(ctx, `SELECT c.id, c.name, COALESCE(SUM(l.quantity), 0), COALESCE(SUM(l.line_total), 0) AS revenue
FROM categories c
LEFT JOIN products p ON p.category_id = c.id
LEFT JOIN sale_lines l ON l.product_id = p.id
GROUP BY c.id, c.name
ORDER BY revenue DESC, c.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []CategorySales{}
	for rows.Next() {
		var cs CategorySales
		if err := rows.Scan(&cs.CategoryID, &cs.Name, &cs.Quantity, &cs.Revenue); err != nil {
			return nil, err
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

// InventoryStatus counts active products by stock band.
func (r *Repository) InventoryStatus(ctx context.Context) (InventoryStatus, error) {
	var s InventoryStatus
	err := r.pool.QueryRow(ctx, `SELECT
  COUNT(*) FILTER (WHERE current_stock > 0 AND current_stock <= min_stock),
  COUNT(*) FILTER (WHERE current_stock = 0),
  COUNT(*) FILTER (WHERE current_stock > min_stock),
  COUNT(*)
FROM products
WHERE is_active`).Scan(&s.Low, &s.Out, &s.WellStocked, &s.TotalActive)
	return s, err
}

// LowStock lists active products at or below their reorder level, emptiest first.
func (r *Repository) LowStock(ctx context.Context) ([]LowStockItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.name, c.name, p.supplier_name, p.unit, p.current_stock, p.min_stock
FROM products p
JOIN categories c ON c.id = p.category_id
WHERE p.is_active AND p.current_stock <= p.min_stock
ORDER BY p.current_stock, p.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []LowStockItem{}
	for rows.Next() {
		var it LowStockItem
		if err := rows.Scan(&it.ProductID, &it.Name, &it.Category, &it.SupplierName, &it.Unit, &it.CurrentStock, &it.MinStock); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
