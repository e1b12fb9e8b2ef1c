package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by the service.
type TxRepository interface {
	LocationKind(ctx context.Context, locationID int64) (string, error)
	StockForUpdate(ctx context.Context, locationID, productID int64) (StockRecord, error)
	EnsureStock(ctx context.Context, locationID, productID int64) error
	Apply(ctx context.Context, mv Movement) (int64, error)
	InsertTransfer(ctx context.Context, tr Transfer) (int64, error)
	StampRestock(ctx context.Context, locationID, productID int64) error
}

type txRepository struct {
	tx     pgx.Tx
	ledger Ledger
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("inventory repository not initialised")
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

// LocationKind reports the kind of an active location. Missing or
// deactivated locations count as the wrong kind.
func (r *txRepository) LocationKind(ctx context.Context, locationID int64) (string, error) {
	var kind string
	err := r.tx.QueryRow(ctx, `SELECT kind FROM locations WHERE id=$1 AND is_active`, locationID).Scan(&kind)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrWrongLocationKind
		}
		return "", err
	}
	return kind, nil
}

func (r *txRepository) StockForUpdate(ctx context.Context, locationID, productID int64) (StockRecord, error) {
	return r.ledger.StockForUpdate(ctx, r.tx, locationID, productID)
}

func (r *txRepository) EnsureStock(ctx context.Context, locationID, productID int64) error {
	return r.ledger.EnsureStock(ctx, r.tx, locationID, productID)
}

func (r *txRepository) Apply(ctx context.Context, mv Movement) (int64, error) {
	return r.ledger.Apply(ctx, r.tx, mv)
}

func (r *txRepository) InsertTransfer(ctx context.Context, tr Transfer) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO transfers (warehouse_id, branch_id, product_id, qty, performed_by, created_at)
VALUES ($1,$2,$3,$4,$5,NOW()) RETURNING id`, tr.WarehouseID, tr.BranchID, tr.ProductID, tr.Qty, tr.PerformedBy).Scan(&id)
	return id, err
}

func (r *txRepository) StampRestock(ctx context.Context, locationID, productID int64) error {
	return r.ledger.StampRestock(ctx, r.tx, locationID, productID)
}

// GetStock reads one stock record without locking.
func (r *Repository) GetStock(ctx context.Context, locationID, productID int64) (StockRecord, error) {
	var rec StockRecord
	var movedAt, restockAt, purchaseAt *time.Time
	err := r.pool.QueryRow(ctx, `SELECT location_id, product_id, on_hand, min_qty, last_movement_at, last_restock_at, last_purchase_at
FROM stock_records WHERE location_id=$1 AND product_id=$2`, locationID, productID).
		Scan(&rec.LocationID, &rec.ProductID, &rec.OnHand, &rec.MinQty, &movedAt, &restockAt, &purchaseAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StockRecord{}, ErrStockRowMissing
		}
		return StockRecord{}, err
	}
	if movedAt != nil {
		rec.LastMovementAt = *movedAt
	}
	if restockAt != nil {
		rec.LastRestockAt = *restockAt
	}
	if purchaseAt != nil {
		rec.LastPurchaseAt = *purchaseAt
	}
	return rec, nil
}

// ListMovements returns ledger entries matching the filter, oldest first.
func (r *Repository) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT id, location_id, product_id, change_qty, movement_type, ref_kind, COALESCE(ref_id, 0), performed_by, created_at
FROM stock_movements
WHERE ($1 = 0 OR location_id = $1)
  AND ($2 = 0 OR product_id = $2)
  AND ($3 = '' OR movement_type = $3)
  AND created_at BETWEEN COALESCE($4, '-infinity') AND COALESCE($5, 'infinity')
ORDER BY created_at ASC, id ASC
LIMIT $6`, filter.LocationID, filter.ProductID, string(filter.Type), nullTime(filter.From), nullTime(filter.To), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	movements := []Movement{}
	for rows.Next() {
		var mv Movement
		if err := rows.Scan(&mv.ID, &mv.LocationID, &mv.ProductID, &mv.ChangeQty, &mv.Type, &mv.RefKind, &mv.RefID, &mv.PerformedBy, &mv.At); err != nil {
			return nil, err
		}
		movements = append(movements, mv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return movements, nil
}

// SeedProduct creates zero stock records for a new product at every location.
func (r *Repository) SeedProduct(ctx context.Context, productID int64) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO stock_records (location_id, product_id, on_hand, min_qty)
SELECT l.id, $1, 0, 0 FROM locations l
ON CONFLICT (location_id, product_id) DO NOTHING`, productID)
	return err
}

// SeedLocation creates zero stock records for a new location for every product.
func (r *Repository) SeedLocation(ctx context.Context, locationID int64) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO stock_records (location_id, product_id, on_hand, min_qty)
SELECT $1, p.id, 0, 0 FROM products p
ON CONFLICT (location_id, product_id) DO NOTHING`, locationID)
	return err
}

// VerifyLedger compares each stock record with its movement sum and returns
// the pairs that disagree.
func (r *Repository) VerifyLedger(ctx context.Context) ([]Discrepancy, error) {
	rows, err := r.pool.Query(ctx, `SELECT s.location_id, s.product_id, s.on_hand, COALESCE(m.total, 0)
FROM stock_records s
LEFT JOIN (
    SELECT location_id, product_id, SUM(change_qty) AS total
    FROM stock_movements GROUP BY location_id, product_id
) m ON m.location_id = s.location_id AND m.product_id = s.product_id
WHERE s.on_hand <> COALESCE(m.total, 0)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var found []Discrepancy
	for rows.Next() {
		var d Discrepancy
		if err := rows.Scan(&d.LocationID, &d.ProductID, &d.OnHand, &d.LedgerSum); err != nil {
			return nil, err
		}
		found = append(found, d)
	}
	return found, rows.Err()
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
