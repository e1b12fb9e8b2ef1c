package sales

import (
	"context"
	"fmt"

	"github.com/pets-things/pets-things/internal/inventory"
	"github.com/pets-things/pets-things/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	CreateSale(ctx context.Context, input CreateSaleInput) (Sale, error)
	GetSale(ctx context.Context, id int64) (Sale, error)
	ListSales(ctx context.Context, filter ListFilter) ([]Sale, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates point-of-sale operations.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// Create opens a new sale at a branch.
func (s *Service) Create(ctx context.Context, input CreateSaleInput) (Sale, error) {
	if input.BranchID == 0 {
		return Sale{}, fmt.Errorf("sales: branch required")
	}
	return s.repo.CreateSale(ctx, input)
}

// AddLine appends a product line to an open sale, snapshotting the current
// unit price. Lines on completed sales are immutable.
func (s *Service) AddLine(ctx context.Context, input AddLineInput) (SaleLine, error) {
	if input.Qty <= 0 {
		return SaleLine{}, ErrInvalidQuantity
	}
	var line SaleLine
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale, err := tx.GetSaleForUpdate(ctx, input.SaleID)
		if err != nil {
			return err
		}
		if sale.Status != SaleStatusOpen {
			return shared.ErrInvalidStateTransition
		}
		line, err = tx.InsertLine(ctx, input.SaleID, input.ProductID, input.Qty)
		return err
	})
	return line, err
}

// RemoveLine deletes a line from an open sale.
func (s *Service) RemoveLine(ctx context.Context, saleID, lineID int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale, err := tx.GetSaleForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if sale.Status != SaleStatusOpen {
			return shared.ErrInvalidStateTransition
		}
		return tx.DeleteLine(ctx, saleID, lineID)
	})
}

// Complete finalises an open sale: every line's branch stock row is locked
// and verified, stock is deducted with a SALE ledger entry per line, and the
// header total is fixed to the line sum. Everything commits as one unit; a
// failure on any line rolls back all deductions. Completing an already
// completed sale fails with ErrInvalidStateTransition instead of deducting
// stock twice.
func (s *Service) Complete(ctx context.Context, saleID, actorID int64) (Sale, error) {
	var completed Sale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale, err := tx.GetSaleForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if sale.Status != SaleStatusOpen {
			return shared.ErrInvalidStateTransition
		}
		lines, err := tx.ListLines(ctx, saleID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrEmptySale
		}

		var total float64
		for _, line := range lines {
			stock, err := tx.StockForUpdate(ctx, sale.BranchID, line.ProductID)
			if err != nil {
				return err
			}
			if stock.OnHand < line.Qty {
				return inventory.ErrInsufficientStock
			}
			if _, err := tx.ApplyMovement(ctx, inventory.Movement{
				LocationID:  sale.BranchID,
				ProductID:   line.ProductID,
				ChangeQty:   -line.Qty,
				Type:        inventory.MovementSale,
				RefKind:     inventory.RefSale,
				RefID:       sale.ID,
				PerformedBy: actorID,
			}); err != nil {
				return err
			}
			total += line.LineTotal
		}

		if err := tx.MarkCompleted(ctx, saleID, total, actorID); err != nil {
			return err
		}
		completed = sale
		completed.Status = SaleStatusCompleted
		completed.TotalAmount = total
		completed.CompletedBy = actorID
		completed.Lines = lines
		return nil
	})
	if err != nil {
		return Sale{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "sales:complete",
			Entity:   "sales",
			EntityID: fmt.Sprintf("%d", saleID),
			Meta: map[string]any{
				"branch_id": completed.BranchID,
				"total":     completed.TotalAmount,
				"lines":     len(completed.Lines),
			},
		})
	}
	return completed, nil
}

// Get loads a sale with lines.
func (s *Service) Get(ctx context.Context, id int64) (Sale, error) {
	return s.repo.GetSale(ctx, id)
}

// List lists sales matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Sale, error) {
	return s.repo.ListSales(ctx, filter)
}
