package reports

import (
	"errors"
	"time"
)

// ErrInvalidRange is returned when a report window is empty or reversed.
var ErrInvalidRange = errors.New("reports: invalid date range")

// StockFilter scopes the stock level report to a single location.
// A zero LocationID means all locations.
type StockFilter struct {
	LocationID int64
}

// StockLevel is one row of the stock level report.
type StockLevel struct {
	LocationID   int64  `json:"location_id"`
	LocationName string `json:"location_name"`
	LocationKind string `json:"location_kind"`
	ProductID    int64  `json:"product_id"`
	ProductName  string `json:"product_name"`
	OnHand       int64  `json:"on_hand"`
	MinQty       int64  `json:"min_qty"`
}

// SalesFilter scopes the sales summary. The window is half open,
// completions at From count and completions at To do not.
type SalesFilter struct {
	From     time.Time
	To       time.Time
	BranchID int64
}

// SalesSummaryRow aggregates completed sales for one branch.
type SalesSummaryRow struct {
	BranchID   int64   `json:"branch_id"`
	BranchName string  `json:"branch_name"`
	SaleCount  int64   `json:"sale_count"`
	Revenue    float64 `json:"revenue"`
}

// OccupancyFilter scopes the occupancy report to a half open date window.
type OccupancyFilter struct {
	From time.Time
	To   time.Time
}

// OccupancyReport summarises hotel utilisation over a window.
// Available nights is active rooms times nights in the window; occupied
// nights counts confirmed and completed bookings only.
type OccupancyReport struct {
	From            time.Time `json:"from"`
	To              time.Time `json:"to"`
	RoomCount       int64     `json:"room_count"`
	AvailableNights int64     `json:"available_nights"`
	OccupiedNights  int64     `json:"occupied_nights"`
	OccupancyRate   float64   `json:"occupancy_rate"`
}

// DashboardFilter scopes the combined dashboard.
type DashboardFilter struct {
	From time.Time
	To   time.Time
}

// Dashboard bundles the report widgets fetched together for the
// overview page.
type Dashboard struct {
	LowStock  []StockLevel      `json:"low_stock"`
	Sales     []SalesSummaryRow `json:"sales"`
	Occupancy OccupancyReport   `json:"occupancy"`
}
