package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// Ledger bundles the SQL that mutates stock_records and stock_movements.
// Every mutation runs on a caller-supplied transaction so sale and purchase
// completion can move stock inside their own commit boundary. Callers must
// lock the stock row with StockForUpdate before deducting.
type Ledger struct{}

// StockForUpdate reads a stock record under a row lock. The lock is held
// until the surrounding transaction commits or rolls back.
func (Ledger) StockForUpdate(ctx context.Context, tx pgx.Tx, locationID, productID int64) (StockRecord, error) {
	var rec StockRecord
	var movedAt, restockAt, purchaseAt *time.Time
	err := tx.QueryRow(ctx, `SELECT location_id, product_id, on_hand, min_qty, last_movement_at, last_restock_at, last_purchase_at
FROM stock_records WHERE location_id=$1 AND product_id=$2 FOR UPDATE`, locationID, productID).
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

// EnsureStock creates a zero stock record for the pair when absent.
func (Ledger) EnsureStock(ctx context.Context, tx pgx.Tx, locationID, productID int64) error {
	_, err := tx.Exec(ctx, `INSERT INTO stock_records (location_id, product_id, on_hand, min_qty)
VALUES ($1,$2,0,0) ON CONFLICT (location_id, product_id) DO NOTHING`, locationID, productID)
	return err
}

// Apply appends a movement row and adjusts the matching stock record by
// ChangeQty in one step. The update refuses to push on_hand below zero, so a
// deduction that lost the race between lock and write fails here and the
// surrounding transaction rolls back, leaving no orphaned movement.
func (Ledger) Apply(ctx context.Context, tx pgx.Tx, mv Movement) (int64, error) {
	if mv.ChangeQty == 0 {
		return 0, ErrInvalidQuantity
	}
	var movementID int64
	err := tx.QueryRow(ctx, `INSERT INTO stock_movements (location_id, product_id, change_qty, movement_type, ref_kind, ref_id, performed_by, created_at)
VALUES ($1,$2,$3,$4,$5,NULLIF($6,0),$7,NOW()) RETURNING id`,
		mv.LocationID, mv.ProductID, mv.ChangeQty, string(mv.Type), mv.RefKind, mv.RefID, mv.PerformedBy).Scan(&movementID)
	if err != nil {
		return 0, err
	}
	var onHand int64
	err = tx.QueryRow(ctx, `UPDATE stock_records SET on_hand = on_hand + $3, last_movement_at = NOW()
WHERE location_id=$1 AND product_id=$2 AND on_hand + $3 >= 0 RETURNING on_hand`,
		mv.LocationID, mv.ProductID, mv.ChangeQty).Scan(&onHand)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if mv.ChangeQty < 0 {
				return 0, ErrInsufficientStock
			}
			return 0, ErrStockRowMissing
		}
		return 0, err
	}
	return movementID, nil
}

// StampRestock records the time stock last arrived at a location.
func (Ledger) StampRestock(ctx context.Context, tx pgx.Tx, locationID, productID int64) error {
	_, err := tx.Exec(ctx, `UPDATE stock_records SET last_restock_at = NOW() WHERE location_id=$1 AND product_id=$2`, locationID, productID)
	return err
}

// StampPurchase records the time stock was last purchased into a location.
func (Ledger) StampPurchase(ctx context.Context, tx pgx.Tx, locationID, productID int64) error {
	_, err := tx.Exec(ctx, `UPDATE stock_records SET last_purchase_at = NOW() WHERE location_id=$1 AND product_id=$2`, locationID, productID)
	return err
}
