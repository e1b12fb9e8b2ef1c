package reports

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository executes the aggregate queries behind each report.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// StockLevels lists on-hand quantities per location and product.
func (r *Repository) StockLevels(ctx context.Context, filter StockFilter) ([]StockLevel, error) {
	rows, err := r.pool.Query(ctx, `SELECT s.location_id, l.name, l.kind, s.product_id, p.name, s.on_hand, s.min_qty
FROM stock_records s
JOIN locations l ON l.id = s.location_id
JOIN products p ON p.id = s.product_id
WHERE ($1 = 0 OR s.location_id = $1)
ORDER BY l.name, p.name`, filter.LocationID)
	return scanStockLevels(rows, err)
}

// LowStock lists rows whose on-hand count fell below the minimum.
func (r *Repository) LowStock(ctx context.Context, filter StockFilter) ([]StockLevel, error) {
	rows, err := r.pool.Query(ctx, `SELECT s.location_id, l.name, l.kind, s.product_id, p.name, s.on_hand, s.min_qty
FROM stock_records s
JOIN locations l ON l.id = s.location_id
JOIN products p ON p.id = s.product_id
WHERE s.on_hand < s.min_qty
  AND ($1 = 0 OR s.location_id = $1)
ORDER BY l.name, p.name`, filter.LocationID)
	return scanStockLevels(rows, err)
}

// SalesSummary aggregates completed sales per branch over [From, To).
func (r *Repository) SalesSummary(ctx context.Context, filter SalesFilter) ([]SalesSummaryRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT s.branch_id, l.name, COUNT(*), COALESCE(SUM(s.total_amount), 0)
FROM sales s
JOIN locations l ON l.id = s.branch_id
WHERE s.status = 'COMPLETED'
  AND s.completed_at >= $1 AND s.completed_at < $2
  AND ($3 = 0 OR s.branch_id = $3)
GROUP BY s.branch_id, l.name
ORDER BY l.name`, filter.From, filter.To, filter.BranchID)
	if err != nil {
		return nil, fmt.Errorf("reports: sales summary: %w", err)
	}
	defer rows.Close()

	var out []SalesSummaryRow
	for rows.Next() {
		var row SalesSummaryRow
		if err := rows.Scan(&row.BranchID, &row.BranchName, &row.SaleCount, &row.Revenue); err != nil {
			return nil, fmt.Errorf("reports: sales summary: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Occupancy counts occupied room nights over [From, To). Only confirmed
// and completed bookings occupy rooms; the overlap with the window is
// clamped so bookings straddling the edges count partially.
func (r *Repository) Occupancy(ctx context.Context, filter OccupancyFilter) (OccupancyReport, error) {
	rep := OccupancyReport{From: filter.From, To: filter.To}
	err := r.pool.QueryRow(ctx, `SELECT
  (SELECT COUNT(*) FROM rooms WHERE is_active),
  COALESCE(SUM(LEAST(b.date_to, $2::date) - GREATEST(b.date_from, $1::date)), 0)
FROM booking_rooms br
JOIN bookings b ON b.id = br.booking_id
WHERE b.status IN ('CONFIRMED', 'COMPLETED')
  AND b.date_from < $2 AND b.date_to > $1`, filter.From, filter.To).
		Scan(&rep.RoomCount, &rep.OccupiedNights)
	if err != nil {
		return OccupancyReport{}, fmt.Errorf("reports: occupancy: %w", err)
	}
	return rep, nil
}

func scanStockLevels(rows pgx.Rows, err error) ([]StockLevel, error) {
	if err != nil {
		return nil, fmt.Errorf("reports: stock query: %w", err)
	}
	defer rows.Close()

	var out []StockLevel
	for rows.Next() {
		var row StockLevel
		if err := rows.Scan(&row.LocationID, &row.LocationName, &row.LocationKind, &row.ProductID, &row.ProductName, &row.OnHand, &row.MinQty); err != nil {
			return nil, fmt.Errorf("reports: scan stock row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
