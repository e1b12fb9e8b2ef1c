package products

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pets-things/pets-things/internal/masterdata/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error)
	Get(ctx context.Context, id int64) (Product, error)
	Create(ctx context.Context, product Product) (Product, error)
	Update(ctx context.Context, id int64, product Product) error
	Deactivate(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

// List filters with a fixed predicate set; every filter is bound as a
// parameter and disabled by its zero value.
func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	var total int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products
WHERE ($1 = 0 OR category_id = $1)
  AND ($2 = '' OR name ILIKE '%' || $2 || '%')
  AND ($3 = -1 OR is_active = ($3 = 1))`,
		filters.CategoryParam(), filters.Search, filters.ActiveParam()).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, `SELECT id, name, category_id, COALESCE(description, ''), unit_price, is_active, created_at, updated_at
FROM products
WHERE ($1 = 0 OR category_id = $1)
  AND ($2 = '' OR name ILIKE '%' || $2 || '%')
  AND ($3 = -1 OR is_active = ($3 = 1))
ORDER BY CASE WHEN $4 THEN NULL ELSE name END ASC, CASE WHEN $4 THEN name END DESC
LIMIT $5 OFFSET $6`,
		filters.CategoryParam(), filters.Search, filters.ActiveParam(), filters.SortDesc(), filters.PageLimit(), filters.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.CategoryID, &p.Description, &p.UnitPrice, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, p)
	}
	return list, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Product, error) {
	var p Product
	err := r.db.QueryRow(ctx, `SELECT id, name, category_id, COALESCE(description, ''), unit_price, is_active, created_at, updated_at
FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.CategoryID, &p.Description, &p.UnitPrice, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, shared.ErrNotFound
	}
	return p, err
}

func (r *repository) Create(ctx context.Context, product Product) (Product, error) {
	now := time.Now()
	err := r.db.QueryRow(ctx, `INSERT INTO products (name, category_id, description, unit_price, is_active, created_at, updated_at)
VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $6) RETURNING id`,
		product.Name, product.CategoryID, product.Description, product.UnitPrice, product.IsActive, now).
		Scan(&product.ID)
	if err != nil {
		return Product{}, err
	}
	product.CreatedAt = now
	product.UpdatedAt = now
	return product, nil
}

func (r *repository) Update(ctx context.Context, id int64, product Product) error {
	tag, err := r.db.Exec(ctx, `UPDATE products SET name = $1, category_id = $2, description = NULLIF($3, ''), unit_price = $4, is_active = $5, updated_at = $6
WHERE id = $7`,
		product.Name, product.CategoryID, product.Description, product.UnitPrice, product.IsActive, time.Now(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Deactivate soft-deletes the product. Rows referencing it (lines, ledger
// entries) stay intact.
func (r *repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE products SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
