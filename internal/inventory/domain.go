package inventory

import (
	"errors"
	"time"
)

// MovementType enumerates supported stock movements.
type MovementType string

const (
	// MovementPurchase is an inbound movement from a completed purchase.
	MovementPurchase MovementType = "PURCHASE"
	// MovementSale is an outbound movement from a completed sale.
	MovementSale MovementType = "SALE"
	// MovementTransferIn is the receiving side of a warehouse to branch transfer.
	MovementTransferIn MovementType = "TRANSFER_IN"
	// MovementTransferOut is the sending side of a warehouse to branch transfer.
	MovementTransferOut MovementType = "TRANSFER_OUT"
	// MovementRestock is a manual positive adjustment.
	MovementRestock MovementType = "RESTOCK"
)

// Reference kinds recorded on movements.
const (
	RefSale     = "SALE"
	RefPurchase = "PURCHASE"
	RefTransfer = "TRANSFER"
	RefRestock  = "RESTOCK"
)

// StockRecord tracks on-hand quantity per (location, product) pair. One row
// exists for every pair; rows are seeded when products or locations are
// created.
type StockRecord struct {
	LocationID     int64
	ProductID      int64
	OnHand         int64
	MinQty         int64
	LastMovementAt time.Time
	LastRestockAt  time.Time
	LastPurchaseAt time.Time
}

// Movement is an append-only ledger entry recording a signed quantity change.
// The sum of ChangeQty per (location, product) must always equal the current
// StockRecord.OnHand.
type Movement struct {
	ID          int64
	LocationID  int64
	ProductID   int64
	ChangeQty   int64
	Type        MovementType
	RefKind     string
	RefID       int64
	PerformedBy int64
	At          time.Time
}

// Transfer is the immutable record of one completed warehouse to branch
// movement, created atomically with its two ledger entries.
type Transfer struct {
	ID          int64
	WarehouseID int64
	BranchID    int64
	ProductID   int64
	Qty         int64
	PerformedBy int64
	At          time.Time
}

// TransferInput describes a warehouse to branch transfer request. RequestID
// is an optional client-supplied key used to reject duplicate submissions.
type TransferInput struct {
	WarehouseID int64
	BranchID    int64
	ProductID   int64
	Qty         int64
	ActorID     int64
	RequestID   string
}

// RestockInput describes a manual restock at a location.
type RestockInput struct {
	LocationID int64
	ProductID  int64
	Qty        int64
	ActorID    int64
}

// MovementFilter narrows ledger listings to a fixed set of predicates.
type MovementFilter struct {
	LocationID int64
	ProductID  int64
	Type       MovementType
	From       time.Time
	To         time.Time
	Limit      int
}

// Discrepancy reports a (location, product) pair whose on-hand quantity does
// not match the movement ledger sum.
type Discrepancy struct {
	LocationID int64
	ProductID  int64
	OnHand     int64
	LedgerSum  int64
}

// ErrInsufficientStock is returned when a deduction exceeds on-hand quantity.
var ErrInsufficientStock = errors.New("inventory: insufficient stock")

// ErrStockRowMissing indicates no stock record exists for the pair.
var ErrStockRowMissing = errors.New("inventory: stock record missing")

// ErrInvalidQuantity indicates a non-positive quantity.
var ErrInvalidQuantity = errors.New("inventory: quantity must be positive")

// ErrSameLocation indicates source and destination are identical.
var ErrSameLocation = errors.New("inventory: source and destination must differ")

// ErrWrongLocationKind indicates a transfer endpoint that is not an active
// warehouse source or branch destination.
var ErrWrongLocationKind = errors.New("inventory: transfer requires a warehouse source and a branch destination")
