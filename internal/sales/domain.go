package sales

import (
	"errors"
	"time"
)

// SaleStatus is the sale lifecycle state. A sale accepts line changes while
// OPEN; completion is a one-way transition that deducts branch stock.
type SaleStatus string

const (
	// SaleStatusOpen accepts line additions and removals.
	SaleStatusOpen SaleStatus = "OPEN"
	// SaleStatusCompleted is terminal; stock has been deducted.
	SaleStatusCompleted SaleStatus = "COMPLETED"
)

// Sale is a point-of-sale transaction header at a branch.
type Sale struct {
	ID          int64      `json:"id"`
	BranchID    int64      `json:"branch_id"`
	CustomerID  int64      `json:"customer_id,omitempty"`
	Status      SaleStatus `json:"status"`
	TotalAmount float64    `json:"total_amount"`
	CreatedBy   int64      `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedBy int64      `json:"completed_by,omitempty"`
	CompletedAt time.Time  `json:"completed_at,omitempty"`
	Lines       []SaleLine `json:"lines,omitempty"`
}

// SaleLine carries the unit price snapshot taken when the line was added.
type SaleLine struct {
	ID        int64   `json:"id"`
	SaleID    int64   `json:"sale_id"`
	ProductID int64   `json:"product_id"`
	Qty       int64   `json:"qty"`
	UnitPrice float64 `json:"unit_price"`
	LineTotal float64 `json:"line_total"`
}

// CreateSaleInput opens a new sale.
type CreateSaleInput struct {
	BranchID   int64
	CustomerID int64
	ActorID    int64
}

// AddLineInput appends a product line to an open sale.
type AddLineInput struct {
	SaleID    int64
	ProductID int64
	Qty       int64
	ActorID   int64
}

// ListFilter narrows sale listings to a fixed set of predicates.
type ListFilter struct {
	BranchID int64
	Status   SaleStatus
	From     time.Time
	To       time.Time
	Limit    int
}

// ErrNotFound indicates the sale or a referenced record does not exist.
var ErrNotFound = errors.New("sales: record not found")

// ErrEmptySale indicates completion was attempted with zero lines.
var ErrEmptySale = errors.New("sales: cannot complete a sale without lines")

// ErrInvalidQuantity indicates a non-positive line quantity.
var ErrInvalidQuantity = errors.New("sales: quantity must be positive")
