package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-pos/internal/inventory"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
)

const duplicateProductConstraint = "products_name_supplier_key"

// TxRepository groups the writes that run inside one catalog transaction.
type TxRepository interface {
	inventory.TxRepository
	ResolveCategory(ctx context.Context, id int64, name string) (Category, error)
	InsertProduct(ctx context.Context, p Product) (Product, error)
	UpdateProduct(ctx context.Context, p Product) (Product, error)
}

// Repository persists products and categories.
type Repository struct {
	pool        *pgxpool.Pool
	maxAttempts int
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool, maxAttempts int) *Repository {
	return &Repository{pool: pool, maxAttempts: maxAttempts}
}

type txRepository struct {
	inventory.TxRepository
	tx pgx.Tx
}

// WithTx runs fn in a serializable transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil || r.pool == nil {
		return errors.New("catalog repository not initialised")
	}
	return db.WithSerializableTx(ctx, r.pool, r.maxAttempts, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{TxRepository: inventory.NewTxRepository(tx), tx: tx})
	})
}

func (t *txRepository) ResolveCategory(ctx context.Context, id int64, name string) (Category, error) {
	var c Category
	if id > 0 {
		err := t.tx.QueryRow(ctx, `SELECT id, name FROM categories WHERE id = $1`, id).Scan(&c.ID, &c.Name)
		if errors.Is(err, pgx.ErrNoRows) {
			return Category{}, ErrCategoryNotFound
		}
		return c, err
	}
	err := t.tx.QueryRow(ctx, `INSERT INTO categories (name) VALUES ($1)
ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
RETURNING id, name`, name).Scan(&c.ID, &c.Name)
	return c, err
}

func (t *txRepository) InsertProduct(ctx context.Context, p Product) (Product, error) {
	err := t.tx.QueryRow(ctx, `INSERT INTO products (name, category_id, supplier_name, unit, price, min_stock, current_stock, is_active)
VALUES ($1, $2, $3, $4, $5, $6, 0, TRUE)
RETURNING id, current_stock, is_active, created_at, updated_at`,
		p.Name, p.CategoryID, p.SupplierName, p.Unit, p.Price.Cents(), p.MinStock,
	).Scan(&p.ID, &p.CurrentStock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, duplicateProductConstraint) {
			return Product{}, ErrDuplicateProduct
		}
		return Product{}, fmt.Errorf("catalog: insert product: %w", err)
	}
	return p, nil
}

func (t *txRepository) UpdateProduct(ctx context.Context, p Product) (Product, error) {
	err := t.tx.QueryRow(ctx, `UPDATE products
SET name = $2, category_id = $3, supplier_name = $4, unit = $5, price = $6, min_stock = $7, updated_at = NOW()
WHERE id = $1
RETURNING current_stock, is_active, created_at, updated_at`,
		p.ID, p.Name, p.CategoryID, p.SupplierName, p.Unit, p.Price.Cents(), p.MinStock,
	).Scan(&p.CurrentStock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return Product{}, ErrProductNotFound
		case db.IsUniqueViolation(err, duplicateProductConstraint):
			return Product{}, ErrDuplicateProduct
		}
		return Product{}, fmt.Errorf("catalog: update product: %w", err)
	}
	return p, nil
}

const productColumns = `p.id, p.name, p.category_id, c.name, p.supplier_name, p.unit, p.price, p.min_stock,
p.current_stock, p.is_active, p.created_at, p.updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.CategoryID, &p.CategoryName, &p.SupplierName, &p.Unit, &p.Price, &p.MinStock,
		&p.CurrentStock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// List returns products ordered by name.
func (r *Repository) List(ctx context.Context, filter ProductFilter) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p JOIN categories c ON c.id = p.category_id WHERE 1=1`
	args := []any{}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := strconv.Itoa(len(args))
		query += ` AND (p.name ILIKE $` + n + ` OR p.supplier_name ILIKE $` + n + ` OR c.name ILIKE $` + n + `)`
	}
	if filter.CategoryID > 0 {
		args = append(args, filter.CategoryID)
		query += ` AND p.category_id = $` + strconv.Itoa(len(args))
	}
	if filter.ActiveOnly {
		query += ` AND p.is_active`
	}
	query += ` ORDER BY p.name, p.id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// Get returns one product.
func (r *Repository) Get(ctx context.Context, id int64) (Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+`
FROM products p JOIN categories c ON c.id = p.category_id
WHERE p.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrProductNotFound
	}
	return p, err
}

// SetActive flips the soft-delete flag.
func (r *Repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// Delete removes a product that no ledger or sale row references.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrProductInUse
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// ListCategories returns all categories with their product counts.
func (r *Repository) ListCategories(ctx context.Context) ([]CategorySummary, error) {
	rows, err := r.pool.Query(ctx, `SELECT c.id, c.name, COUNT(p.id) FILTER (WHERE p.is_active)
FROM categories c
LEFT JOIN products p ON p.category_id = c.id
GROUP BY c.id, c.name
ORDER BY c.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []CategorySummary{}
	for rows.Next() {
		var c CategorySummary
		if err := rows.Scan(&c.ID, &c.Name, &c.ActiveProducts); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
