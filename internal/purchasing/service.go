package purchasing

import (
	"context"
	"fmt"

	"github.com/pets-things/pets-things/internal/inventory"
	"github.com/pets-things/pets-things/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	CreatePurchase(ctx context.Context, input CreatePurchaseInput) (Purchase, error)
	GetPurchase(ctx context.Context, id int64) (Purchase, error)
	ListPurchases(ctx context.Context, filter ListFilter) ([]Purchase, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates supplier purchasing operations.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// Create opens a new draft purchase against a warehouse.
func (s *Service) Create(ctx context.Context, input CreatePurchaseInput) (Purchase, error) {
	return s.repo.CreatePurchase(ctx, input)
}

// AddLine appends a product line to an open purchase.
func (s *Service) AddLine(ctx context.Context, input AddLineInput) (PurchaseLine, error) {
	if input.Qty <= 0 {
		return PurchaseLine{}, ErrInvalidQuantity
	}
	if input.UnitCost < 0 {
		return PurchaseLine{}, ErrInvalidCost
	}
	var line PurchaseLine
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetPurchaseForUpdate(ctx, input.PurchaseID)
		if err != nil {
			return err
		}
		if p.Status != PurchaseStatusOpen {
			return shared.ErrInvalidStateTransition
		}
		line, err = tx.InsertLine(ctx, input.PurchaseID, input.ProductID, input.Qty, input.UnitCost)
		return err
	})
	return line, err
}

// RemoveLine deletes a line from an open purchase.
func (s *Service) RemoveLine(ctx context.Context, purchaseID, lineID int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetPurchaseForUpdate(ctx, purchaseID)
		if err != nil {
			return err
		}
		if p.Status != PurchaseStatusOpen {
			return shared.ErrInvalidStateTransition
		}
		return tx.DeleteLine(ctx, purchaseID, lineID)
	})
}

// Complete finalises an open purchase: every line's quantity is received into
// the warehouse with a PURCHASE ledger entry, the last purchase date is
// stamped per product, and the header total is fixed to the line sum. Stock
// rows are created on first receipt, and there is no insufficiency check
// since receipts only add quantity. Completing an already completed purchase
// fails with ErrInvalidStateTransition instead of booking stock twice.
func (s *Service) Complete(ctx context.Context, purchaseID, actorID int64) (Purchase, error) {
	var completed Purchase
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetPurchaseForUpdate(ctx, purchaseID)
		if err != nil {
			return err
		}
		if p.Status != PurchaseStatusOpen {
			return shared.ErrInvalidStateTransition
		}
		lines, err := tx.ListLines(ctx, purchaseID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrEmptyPurchase
		}

		var total float64
		for _, line := range lines {
			if err := tx.EnsureStock(ctx, p.WarehouseID, line.ProductID); err != nil {
				return err
			}
			if _, err := tx.ApplyMovement(ctx, inventory.Movement{
				LocationID:  p.WarehouseID,
				ProductID:   line.ProductID,
				ChangeQty:   line.Qty,
				Type:        inventory.MovementPurchase,
				RefKind:     inventory.RefPurchase,
				RefID:       p.ID,
				PerformedBy: actorID,
			}); err != nil {
				return err
			}
			if err := tx.StampPurchase(ctx, p.WarehouseID, line.ProductID); err != nil {
				return err
			}
			total += line.LineTotal
		}

		if err := tx.MarkCompleted(ctx, purchaseID, total, actorID); err != nil {
			return err
		}
		completed = p
		completed.Status = PurchaseStatusCompleted
		completed.TotalAmount = total
		completed.CompletedBy = actorID
		completed.Lines = lines
		return nil
	})
	if err != nil {
		return Purchase{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "purchasing:complete",
			Entity:   "purchases",
			EntityID: fmt.Sprintf("%d", purchaseID),
			Meta: map[string]any{
				"warehouse_id": completed.WarehouseID,
				"supplier_id":  completed.SupplierID,
				"total":        completed.TotalAmount,
				"lines":        len(completed.Lines),
			},
		})
	}
	return completed, nil
}

// Get loads a purchase with lines.
func (s *Service) Get(ctx context.Context, id int64) (Purchase, error) {
	return s.repo.GetPurchase(ctx, id)
}

// List lists purchases matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Purchase, error) {
	return s.repo.ListPurchases(ctx, filter)
}
