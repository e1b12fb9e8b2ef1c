package purchasing

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pets-things/pets-things/internal/inventory"
	"github.com/pets-things/pets-things/internal/shared"
)

// Repository persists purchases in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by the service. Stock
// receipts run through the inventory ledger on the same transaction, so a
// completing purchase books its quantities inside its own commit boundary.
type TxRepository interface {
	GetPurchaseForUpdate(ctx context.Context, id int64) (Purchase, error)
	ListLines(ctx context.Context, purchaseID int64) ([]PurchaseLine, error)
	InsertLine(ctx context.Context, purchaseID, productID, qty int64, unitCost float64) (PurchaseLine, error)
	DeleteLine(ctx context.Context, purchaseID, lineID int64) error
	MarkCompleted(ctx context.Context, purchaseID int64, total float64, actorID int64) error
	EnsureStock(ctx context.Context, locationID, productID int64) error
	ApplyMovement(ctx context.Context, mv inventory.Movement) (int64, error)
	StampPurchase(ctx context.Context, locationID, productID int64) error
}

type txRepository struct {
	tx     pgx.Tx
	ledger inventory.Ledger
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("purchasing repository not initialised")
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

func (r *txRepository) GetPurchaseForUpdate(ctx context.Context, id int64) (Purchase, error) {
	var p Purchase
	var completedBy *int64
	var completedAt *time.Time
	err := r.tx.QueryRow(ctx, `SELECT id, warehouse_id, supplier_id, status, total_amount, created_by, created_at, completed_by, completed_at
FROM purchases WHERE id=$1 FOR UPDATE`, id).
		Scan(&p.ID, &p.WarehouseID, &p.SupplierID, &p.Status, &p.TotalAmount, &p.CreatedBy, &p.CreatedAt, &completedBy, &completedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Purchase{}, ErrNotFound
		}
		return Purchase{}, err
	}
	if completedBy != nil {
		p.CompletedBy = *completedBy
	}
	if completedAt != nil {
		p.CompletedAt = *completedAt
	}
	return p, nil
}

func (r *txRepository) ListLines(ctx context.Context, purchaseID int64) ([]PurchaseLine, error) {
	return scanLines(r.tx.Query(ctx, `SELECT id, purchase_id, product_id, qty, unit_cost, line_total
FROM purchase_lines WHERE purchase_id=$1 ORDER BY id`, purchaseID))
}

// InsertLine records the supplier's unit cost as entered; unlike sale lines
// there is no catalog price to snapshot.
func (r *txRepository) InsertLine(ctx context.Context, purchaseID, productID, qty int64, unitCost float64) (PurchaseLine, error) {
	var line PurchaseLine
	err := r.tx.QueryRow(ctx, `INSERT INTO purchase_lines (purchase_id, product_id, qty, unit_cost, line_total)
SELECT $1, p.id, $3, $4, $3 * $4 FROM products p WHERE p.id=$2 AND p.is_active
RETURNING id, purchase_id, product_id, qty, unit_cost, line_total`, purchaseID, productID, qty, unitCost).
		Scan(&line.ID, &line.PurchaseID, &line.ProductID, &line.Qty, &line.UnitCost, &line.LineTotal)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseLine{}, ErrNotFound
		}
		return PurchaseLine{}, err
	}
	return line, nil
}

func (r *txRepository) DeleteLine(ctx context.Context, purchaseID, lineID int64) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM purchase_lines WHERE id=$1 AND purchase_id=$2`, lineID, purchaseID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkCompleted is a guarded conditional update: it only succeeds while the
// purchase is still OPEN, which closes the re-completion hole.
func (r *txRepository) MarkCompleted(ctx context.Context, purchaseID int64, total float64, actorID int64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE purchases SET status=$3, total_amount=$2, completed_by=$4, completed_at=NOW()
WHERE id=$1 AND status=$5`, purchaseID, total, string(PurchaseStatusCompleted), actorID, string(PurchaseStatusOpen))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrInvalidStateTransition
	}
	return nil
}

func (r *txRepository) EnsureStock(ctx context.Context, locationID, productID int64) error {
	return r.ledger.EnsureStock(ctx, r.tx, locationID, productID)
}

func (r *txRepository) ApplyMovement(ctx context.Context, mv inventory.Movement) (int64, error) {
	return r.ledger.Apply(ctx, r.tx, mv)
}

func (r *txRepository) StampPurchase(ctx context.Context, locationID, productID int64) error {
	return r.ledger.StampPurchase(ctx, r.tx, locationID, productID)
}

// CreatePurchase opens a new purchase header.
func (r *Repository) CreatePurchase(ctx context.Context, input CreatePurchaseInput) (Purchase, error) {
	var p Purchase
	err := r.pool.QueryRow(ctx, `INSERT INTO purchases (warehouse_id, supplier_id, status, total_amount, created_by, created_at)
VALUES ($1, $2, $3, 0, $4, NOW())
RETURNING id, warehouse_id, supplier_id, status, total_amount, created_by, created_at`,
		input.WarehouseID, input.SupplierID, string(PurchaseStatusOpen), input.ActorID).
		Scan(&p.ID, &p.WarehouseID, &p.SupplierID, &p.Status, &p.TotalAmount, &p.CreatedBy, &p.CreatedAt)
	return p, err
}

// GetPurchase loads a purchase header with its lines.
func (r *Repository) GetPurchase(ctx context.Context, id int64) (Purchase, error) {
	var p Purchase
	var completedBy *int64
	var completedAt *time.Time
	err := r.pool.QueryRow(ctx, `SELECT id, warehouse_id, supplier_id, status, total_amount, created_by, created_at, completed_by, completed_at
FROM purchases WHERE id=$1`, id).
		Scan(&p.ID, &p.WarehouseID, &p.SupplierID, &p.Status, &p.TotalAmount, &p.CreatedBy, &p.CreatedAt, &completedBy, &completedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Purchase{}, ErrNotFound
		}
		return Purchase{}, err
	}
	if completedBy != nil {
		p.CompletedBy = *completedBy
	}
	if completedAt != nil {
		p.CompletedAt = *completedAt
	}
	lines, err := scanLines(r.pool.Query(ctx, `SELECT id, purchase_id, product_id, qty, unit_cost, line_total
FROM purchase_lines WHERE purchase_id=$1 ORDER BY id`, id))
	if err != nil {
		return Purchase{}, err
	}
	p.Lines = lines
	return p, nil
}

// ListPurchases lists headers matching the filter, newest first.
func (r *Repository) ListPurchases(ctx context.Context, filter ListFilter) ([]Purchase, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT id, warehouse_id, supplier_id, status, total_amount, created_by, created_at
FROM purchases
WHERE ($1 = 0 OR warehouse_id = $1)
  AND ($2 = 0 OR supplier_id = $2)
  AND ($3 = '' OR status = $3)
  AND created_at BETWEEN COALESCE($4, '-infinity') AND COALESCE($5, 'infinity')
ORDER BY created_at DESC, id DESC
LIMIT $6`, filter.WarehouseID, filter.SupplierID, string(filter.Status), nullTime(filter.From), nullTime(filter.To), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	purchases := []Purchase{}
	for rows.Next() {
		var p Purchase
		if err := rows.Scan(&p.ID, &p.WarehouseID, &p.SupplierID, &p.Status, &p.TotalAmount, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}

func scanLines(rows pgx.Rows, err error) ([]PurchaseLine, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lines := []PurchaseLine{}
	for rows.Next() {
		var line PurchaseLine
		if err := rows.Scan(&line.ID, &line.PurchaseID, &line.ProductID, &line.Qty, &line.UnitCost, &line.LineTotal); err != nil {
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
