package purchasing

import (
	"errors"
	"time"
)

// PurchaseStatus is the purchase lifecycle state. A purchase accepts line
// changes while OPEN; completion is a one-way transition that books the
// received quantities into warehouse stock.
type PurchaseStatus string

const (
	// PurchaseStatusOpen accepts line additions and removals.
	PurchaseStatusOpen PurchaseStatus = "OPEN"
	// PurchaseStatusCompleted is terminal; stock has been received.
	PurchaseStatusCompleted PurchaseStatus = "COMPLETED"
)

// Purchase is a supplier order header received into a warehouse.
type Purchase struct {
	ID          int64          `json:"id"`
	WarehouseID int64          `json:"warehouse_id"`
	SupplierID  int64          `json:"supplier_id"`
	Status      PurchaseStatus `json:"status"`
	TotalAmount float64        `json:"total_amount"`
	CreatedBy   int64          `json:"created_by"`
	CreatedAt   time.Time      `json:"created_at"`
	CompletedBy int64          `json:"completed_by,omitempty"`
	CompletedAt time.Time      `json:"completed_at,omitempty"`
	Lines       []PurchaseLine `json:"lines,omitempty"`
}

// PurchaseLine carries the supplier's unit cost as entered on the line.
type PurchaseLine struct {
	ID         int64   `json:"id"`
	PurchaseID int64   `json:"purchase_id"`
	ProductID  int64   `json:"product_id"`
	Qty        int64   `json:"qty"`
	UnitCost   float64 `json:"unit_cost"`
	LineTotal  float64 `json:"line_total"`
}

// CreatePurchaseInput opens a new draft purchase.
type CreatePurchaseInput struct {
	WarehouseID int64
	SupplierID  int64
	ActorID     int64
}

// AddLineInput appends a product line to an open purchase.
type AddLineInput struct {
	PurchaseID int64
	ProductID  int64
	Qty        int64
	UnitCost   float64
	ActorID    int64
}

// ListFilter narrows purchase listings to a fixed set of predicates.
type ListFilter struct {
	WarehouseID int64
	SupplierID  int64
	Status      PurchaseStatus
	From        time.Time
	To          time.Time
	Limit       int
}

var (
	ErrNotFound        = errors.New("purchasing: purchase not found")
	ErrEmptyPurchase   = errors.New("purchasing: purchase has no lines")
	ErrInvalidQuantity = errors.New("purchasing: quantity must be positive")
	ErrInvalidCost     = errors.New("purchasing: unit cost must not be negative")
)
