package sales

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pets-things/pets-things/internal/inventory"
	"github.com/pets-things/pets-things/internal/shared"
)

// Repository persists sales in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by the service. Stock
// mutations run through the inventory ledger on the same transaction, so a
// completing sale deducts stock inside its own commit boundary.
type TxRepository interface {
	GetSaleForUpdate(ctx context.Context, id int64) (Sale, error)
	ListLines(ctx context.Context, saleID int64) ([]SaleLine, error)
	InsertLine(ctx context.Context, saleID, productID, qty int64) (SaleLine, error)
	DeleteLine(ctx context.Context, saleID, lineID int64) error
	MarkCompleted(ctx context.Context, saleID int64, total float64, actorID int64) error
	StockForUpdate(ctx context.Context, locationID, productID int64) (inventory.StockRecord, error)
	ApplyMovement(ctx context.Context, mv inventory.Movement) (int64, error)
}

type txRepository struct {
	tx     pgx.Tx
	ledger inventory.Ledger
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("sales repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func (r *txRepository) GetSaleForUpdate(ctx context.Context, id int64) (Sale, error) {
	var sale Sale
	var completedBy *int64
	var completedAt *time.Time
	err := r.tx.QueryRow(ctx, `SELECT id, branch_id, COALESCE(customer_id, 0), status, total_amount, created_by, created_at, completed_by, completed_at
FROM sales WHERE id=$1 FOR UPDATE`, id).
		Scan(&sale.ID, &sale.BranchID, &sale.CustomerID, &sale.Status, &sale.TotalAmount, &sale.CreatedBy, &sale.CreatedAt, &completedBy, &completedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, ErrNotFound
		}
		return Sale{}, err
	}
	if completedBy != nil {
		sale.CompletedBy = *completedBy
	}
	if completedAt != nil {
		sale.CompletedAt = *completedAt
	}
	return sale, nil
}

func (r *txRepository) ListLines(ctx context.Context, saleID int64) ([]SaleLine, error) {
	return scanLines(r.tx.Query(ctx, `SELECT id, sale_id, product_id, qty, unit_price, line_total
FROM sale_lines WHERE sale_id=$1 ORDER BY id`, saleID))
}

// InsertLine snapshots the product's current unit price into the line.
func (r *txRepository) InsertLine(ctx context.Context, saleID, productID, qty int64) (SaleLine, error) {
	var line SaleLine
	err := r.tx.QueryRow(ctx, `INSERT INTO sale_lines (sale_id, product_id, qty, unit_price, line_total)
SELECT $1, p.id, $3, p.unit_price, $3 * p.unit_price FROM products p WHERE p.id=$2 AND p.is_active
RETURNING id, sale_id, product_id, qty, unit_price, line_total`, saleID, productID, qty).
		Scan(&line.ID, &line.SaleID, &line.ProductID, &line.Qty, &line.UnitPrice, &line.LineTotal)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SaleLine{}, ErrNotFound
		}
		return SaleLine{}, err
	}
	return line, nil
}

func (r *txRepository) DeleteLine(ctx context.Context, saleID, lineID int64) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM sale_lines WHERE id=$1 AND sale_id=$2`, lineID, saleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkCompleted is a guarded conditional update: it only succeeds while the
// sale is still OPEN, which closes the re-completion hole.
func (r *txRepository) MarkCompleted(ctx context.Context, saleID int64, total float64, actorID int64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE sales SET status=$3, total_amount=$2, completed_by=$4, completed_at=NOW()
WHERE id=$1 AND status=$5`, saleID, total, string(SaleStatusCompleted), actorID, string(SaleStatusOpen))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrInvalidStateTransition
	}
	return nil
}

func (r *txRepository) StockForUpdate(ctx context.Context, locationID, productID int64) (inventory.StockRecord, error) {
	return r.ledger.StockForUpdate(ctx, r.tx, locationID, productID)
}

func (r *txRepository) ApplyMovement(ctx context.Context, mv inventory.Movement) (int64, error) {
	return r.ledger.Apply(ctx, r.tx, mv)
}

// CreateSale opens a new sale header.
func (r *Repository) CreateSale(ctx context.Context, input CreateSaleInput) (Sale, error) {
	var sale Sale
	err := r.pool.QueryRow(ctx, `INSERT INTO sales (branch_id, customer_id, status, total_amount, created_by, created_at)
VALUES ($1, NULLIF($2, 0), $3, 0, $4, NOW())
RETURNING id, branch_id, COALESCE(customer_id, 0), status, total_amount, created_by, created_at`,
		input.BranchID, input.CustomerID, string(SaleStatusOpen), input.ActorID).
		Scan(&sale.ID, &sale.BranchID, &sale.CustomerID, &sale.Status, &sale.TotalAmount, &sale.CreatedBy, &sale.CreatedAt)
	return sale, err
}

// GetSale loads a sale header with its lines.
func (r *Repository) GetSale(ctx context.Context, id int64) (Sale, error) {
	var sale Sale
	var completedBy *int64
	var completedAt *time.Time
	err := r.pool.QueryRow(ctx, `SELECT id, branch_id, COALESCE(customer_id, 0), status, total_amount, created_by, created_at, completed_by, completed_at
FROM sales WHERE id=$1`, id).
		Scan(&sale.ID, &sale.BranchID, &sale.CustomerID, &sale.Status, &sale.TotalAmount, &sale.CreatedBy, &sale.CreatedAt, &completedBy, &completedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, ErrNotFound
		}
		return Sale{}, err
	}
	if completedBy != nil {
		sale.CompletedBy = *completedBy
	}
	if completedAt != nil {
		sale.CompletedAt = *completedAt
	}
	lines, err := scanLines(r.pool.Query(ctx, `SELECT id, sale_id, product_id, qty, unit_price, line_total
FROM sale_lines WHERE sale_id=$1 ORDER BY id`, id))
	if err != nil {
		return Sale{}, err
	}
	sale.Lines = lines
	return sale, nil
}

// ListSales lists headers matching the filter, newest first.
func (r *Repository) ListSales(ctx context.Context, filter ListFilter) ([]Sale, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT id, branch_id, COALESCE(customer_id, 0), status, total_amount, created_by, created_at
FROM sales
WHERE ($1 = 0 OR branch_id = $1)
  AND ($2 = '' OR status = $2)
  AND created_at BETWEEN COALESCE($3, '-infinity') AND COALESCE($4, 'infinity')
ORDER BY created_at DESC, id DESC
LIMIT $5`, filter.BranchID, string(filter.Status), nullTime(filter.From), nullTime(filter.To), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	sales := []Sale{}
	for rows.Next() {
		var sale Sale
		if err := rows.Scan(&sale.ID, &sale.BranchID, &sale.CustomerID, &sale.Status, &sale.TotalAmount, &sale.CreatedBy, &sale.CreatedAt); err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}

func scanLines(rows pgx.Rows, err error) ([]SaleLine, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lines := []SaleLine{}
	for rows.Next() {
		var line SaleLine
		if err := rows.Scan(&line.ID, &line.SaleID, &line.ProductID, &line.Qty, &line.UnitPrice, &line.LineTotal); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
