package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pets-things/pets-things/internal/masterdata/locations"
	"github.com/pets-things/pets-things/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetStock(ctx context.Context, locationID, productID int64) (StockRecord, error)
	ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error)
	SeedProduct(ctx context.Context, productID int64) error
	SeedLocation(ctx context.Context, locationID int64) error
	VerifyLedger(ctx context.Context) ([]Discrepancy, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates stock ledger operations.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency *shared.IdempotencyStore
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, idem *shared.IdempotencyStore) *Service {
	return &Service{repo: repo, audit: audit, idempotency: idem}
}

// Transfer moves quantity from a warehouse to a branch. Both endpoints are
// checked against the locations register inside the transaction. The warehouse
// deduction, branch increment, transfer record and both ledger entries commit
// as one unit; any failure rolls everything back so a partial transfer is
// never observable.
func (s *Service) Transfer(ctx context.Context, input TransferInput) (Transfer, error) {
	if input.WarehouseID == 0 || input.BranchID == 0 || input.ProductID == 0 {
		return Transfer{}, fmt.Errorf("inventory: warehouse, branch and product required")
	}
	if input.WarehouseID == input.BranchID {
		return Transfer{}, ErrSameLocation
	}
	if input.Qty <= 0 {
		return Transfer{}, ErrInvalidQuantity
	}

	requestID := input.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	key := fmt.Sprintf("transfer:%s", requestID)
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, "inventory"); err != nil {
			return Transfer{}, err
		}
	}

	var result Transfer
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		kind, err := tx.LocationKind(ctx, input.WarehouseID)
		if err != nil {
			return err
		}
		if kind != locations.KindWarehouse {
			return ErrWrongLocationKind
		}
		kind, err = tx.LocationKind(ctx, input.BranchID)
		if err != nil {
			return err
		}
		if kind != locations.KindBranch {
			return ErrWrongLocationKind
		}

		stock, err := tx.StockForUpdate(ctx, input.WarehouseID, input.ProductID)
		if err != nil {
			return err
		}
		if stock.OnHand < input.Qty {
			return ErrInsufficientStock
		}

		transferID, err := tx.InsertTransfer(ctx, Transfer{
			WarehouseID: input.WarehouseID,
			BranchID:    input.BranchID,
			ProductID:   input.ProductID,
			Qty:         input.Qty,
			PerformedBy: input.ActorID,
		})
		if err != nil {
			return err
		}

		if _, err := tx.Apply(ctx, Movement{
			LocationID:  input.WarehouseID,
			ProductID:   input.ProductID,
			ChangeQty:   -input.Qty,
			Type:        MovementTransferOut,
			RefKind:     RefTransfer,
			RefID:       transferID,
			PerformedBy: input.ActorID,
		}); err != nil {
			return err
		}

		if err := tx.EnsureStock(ctx, input.BranchID, input.ProductID); err != nil {
			return err
		}
		if _, err := tx.Apply(ctx, Movement{
			LocationID:  input.BranchID,
			ProductID:   input.ProductID,
			ChangeQty:   input.Qty,
			Type:        MovementTransferIn,
			RefKind:     RefTransfer,
			RefID:       transferID,
			PerformedBy: input.ActorID,
		}); err != nil {
			return err
		}
		if err := tx.StampRestock(ctx, input.BranchID, input.ProductID); err != nil {
			return err
		}

		result = Transfer{
			ID:          transferID,
			WarehouseID: input.WarehouseID,
			BranchID:    input.BranchID,
			ProductID:   input.ProductID,
			Qty:         input.Qty,
			PerformedBy: input.ActorID,
		}
		return nil
	})
	if err != nil {
		if s.idempotency != nil {
			_ = s.idempotency.Delete(ctx, key)
		}
		return Transfer{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "inventory:transfer",
			Entity:   "transfers",
			EntityID: fmt.Sprintf("%d", result.ID),
			Meta: map[string]any{
				"warehouse_id": input.WarehouseID,
				"branch_id":    input.BranchID,
				"product_id":   input.ProductID,
				"qty":          input.Qty,
			},
		})
	}
	return result, nil
}

// Restock posts a manual positive adjustment at a location.
func (s *Service) Restock(ctx context.Context, input RestockInput) (Movement, error) {
	if input.LocationID == 0 || input.ProductID == 0 {
		return Movement{}, fmt.Errorf("inventory: location and product required")
	}
	if input.Qty <= 0 {
		return Movement{}, ErrInvalidQuantity
	}

	mv := Movement{
		LocationID:  input.LocationID,
		ProductID:   input.ProductID,
		ChangeQty:   input.Qty,
		Type:        MovementRestock,
		RefKind:     RefRestock,
		PerformedBy: input.ActorID,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.EnsureStock(ctx, input.LocationID, input.ProductID); err != nil {
			return err
		}
		id, err := tx.Apply(ctx, mv)
		if err != nil {
			return err
		}
		mv.ID = id
		return tx.StampRestock(ctx, input.LocationID, input.ProductID)
	})
	if err != nil {
		return Movement{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "inventory:restock",
			Entity:   "stock_movements",
			EntityID: fmt.Sprintf("%d", mv.ID),
			Meta: map[string]any{
				"location_id": input.LocationID,
				"product_id":  input.ProductID,
				"qty":         input.Qty,
			},
		})
	}
	return mv, nil
}

// GetStock returns the current record for a pair.
func (s *Service) GetStock(ctx context.Context, locationID, productID int64) (StockRecord, error) {
	if locationID == 0 || productID == 0 {
		return StockRecord{}, fmt.Errorf("inventory: location and product required")
	}
	return s.repo.GetStock(ctx, locationID, productID)
}

// ListMovements lists ledger entries.
func (s *Service) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	return s.repo.ListMovements(ctx, filter)
}

// SeedProduct creates stock rows for a new product at every location.
func (s *Service) SeedProduct(ctx context.Context, productID int64) error {
	return s.repo.SeedProduct(ctx, productID)
}

// SeedLocation creates stock rows for a new location for every product.
func (s *Service) SeedLocation(ctx context.Context, locationID int64) error {
	return s.repo.SeedLocation(ctx, locationID)
}

// VerifyLedger reports pairs whose on-hand count disagrees with the ledger.
func (s *Service) VerifyLedger(ctx context.Context) ([]Discrepancy, error) {
	return s.repo.VerifyLedger(ctx)
}
