package sales

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pets-things/pets-things/internal/inventory"
	"github.com/pets-things/pets-things/internal/shared"
)

type memoryState struct {
	sales     map[int64]Sale
	lines     map[int64][]SaleLine
	stocks    map[string]int64
	movements []inventory.Movement
	prices    map[int64]float64
	nextID    int64
}

func (s *memoryState) clone() *memoryState {
	out := &memoryState{
		sales:     make(map[int64]Sale, len(s.sales)),
		lines:     make(map[int64][]SaleLine, len(s.lines)),
		stocks:    make(map[string]int64, len(s.stocks)),
		movements: append([]inventory.Movement(nil), s.movements...),
		prices:    s.prices,
		nextID:    s.nextID,
	}
	for k, v := range s.sales {
		out.sales[k] = v
	}
	for k, v := range s.lines {
		out.lines[k] = append([]SaleLine(nil), v...)
	}
	for k, v := range s.stocks {
		out.stocks[k] = v
	}
	return out
}

type memoryRepo struct {
	state *memoryState
}

type memoryTx struct {
	state *memoryState
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{state: &memoryState{
		sales:  make(map[int64]Sale),
		lines:  make(map[int64][]SaleLine),
		stocks: make(map[string]int64),
		prices: make(map[int64]float64),
	}}
}

func stockKey(locationID, productID int64) string {
	return fmt.Sprintf("%d:%d", locationID, productID)
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &memoryTx{state: r.state.clone()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	r.state = tx.state
	return nil
}

func (r *memoryRepo) CreateSale(ctx context.Context, input CreateSaleInput) (Sale, error) {
	r.state.nextID++
	sale := Sale{ID: r.state.nextID, BranchID: input.BranchID, CustomerID: input.CustomerID, Status: SaleStatusOpen, CreatedBy: input.ActorID}
	r.state.sales[sale.ID] = sale
	return sale, nil
}

func (r *memoryRepo) GetSale(ctx context.Context, id int64) (Sale, error) {
	sale, ok := r.state.sales[id]
	if !ok {
		return Sale{}, ErrNotFound
	}
	sale.Lines = append([]SaleLine(nil), r.state.lines[id]...)
	return sale, nil
}

func (r *memoryRepo) ListSales(ctx context.Context, filter ListFilter) ([]Sale, error) {
	var out []Sale
	for _, sale := range r.state.sales {
		out = append(out, sale)
	}
	return out, nil
}

func (tx *memoryTx) GetSaleForUpdate(ctx context.Context, id int64) (Sale, error) {
	sale, ok := tx.state.sales[id]
	if !ok {
		return Sale{}, ErrNotFound
	}
	return sale, nil
}

func (tx *memoryTx) ListLines(ctx context.Context, saleID int64) ([]SaleLine, error) {
	return append([]SaleLine(nil), tx.state.lines[saleID]...), nil
}

func (tx *memoryTx) InsertLine(ctx context.Context, saleID, productID, qty int64) (SaleLine, error) {
	price, ok := tx.state.prices[productID]
	if !ok {
		return SaleLine{}, ErrNotFound
	}
	tx.state.nextID++
	line := SaleLine{ID: tx.state.nextID, SaleID: saleID, ProductID: productID, Qty: qty, UnitPrice: price, LineTotal: float64(qty) * price}
	tx.state.lines[saleID] = append(tx.state.lines[saleID], line)
	return line, nil
}

func (tx *memoryTx) DeleteLine(ctx context.Context, saleID, lineID int64) error {
	lines := tx.state.lines[saleID]
	for i, line := range lines {
		if line.ID == lineID {
			tx.state.lines[saleID] = append(lines[:i], lines[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (tx *memoryTx) MarkCompleted(ctx context.Context, saleID int64, total float64, actorID int64) error {
	sale, ok := tx.state.sales[saleID]
	if !ok || sale.Status != SaleStatusOpen {
		return shared.ErrInvalidStateTransition
	}
	sale.Status = SaleStatusCompleted
	sale.TotalAmount = total
	sale.CompletedBy = actorID
	tx.state.sales[saleID] = sale
	return nil
}

func (tx *memoryTx) StockForUpdate(ctx context.Context, locationID, productID int64) (inventory.StockRecord, error) {
	onHand, ok := tx.state.stocks[stockKey(locationID, productID)]
	if !ok {
		return inventory.StockRecord{}, inventory.ErrStockRowMissing
	}
	return inventory.StockRecord{LocationID: locationID, ProductID: productID, OnHand: onHand}, nil
}

func (tx *memoryTx) ApplyMovement(ctx context.Context, mv inventory.Movement) (int64, error) {
	k := stockKey(mv.LocationID, mv.ProductID)
	onHand, ok := tx.state.stocks[k]
	if !ok {
		return 0, inventory.ErrStockRowMissing
	}
	if onHand+mv.ChangeQty < 0 {
		return 0, inventory.ErrInsufficientStock
	}
	tx.state.stocks[k] = onHand + mv.ChangeQty
	tx.state.nextID++
	mv.ID = tx.state.nextID
	tx.state.movements = append(tx.state.movements, mv)
	return mv.ID, nil
}

func openSaleWithLines(t *testing.T, repo *memoryRepo, svc *Service) Sale {
	t.Helper()
	ctx := context.Background()
	repo.state.prices[100] = 10.0
	repo.state.prices[200] = 4.5
	repo.state.stocks[stockKey(1, 100)] = 10
	repo.state.stocks[stockKey(1, 200)] = 10

	sale, err := svc.Create(ctx, CreateSaleInput{BranchID: 1, ActorID: 5})
	require.NoError(t, err)
	_, err = svc.AddLine(ctx, AddLineInput{SaleID: sale.ID, ProductID: 100, Qty: 2, ActorID: 5})
	require.NoError(t, err)
	_, err = svc.AddLine(ctx, AddLineInput{SaleID: sale.ID, ProductID: 200, Qty: 3, ActorID: 5})
	require.NoError(t, err)
	return sale
}

func TestCompleteComputesTotalAndDeductsStock(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()
	sale := openSaleWithLines(t, repo, svc)

	completed, err := svc.Complete(ctx, sale.ID, 5)
	require.NoError(t, err)
	require.Equal(t, SaleStatusCompleted, completed.Status)
	require.InDelta(t, 33.5, completed.TotalAmount, 0.0001)

	require.EqualValues(t, 8, repo.state.stocks[stockKey(1, 100)])
	require.EqualValues(t, 7, repo.state.stocks[stockKey(1, 200)])
	require.Len(t, repo.state.movements, 2)
	for _, mv := range repo.state.movements {
		require.Equal(t, inventory.MovementSale, mv.Type)
		require.Equal(t, sale.ID, mv.RefID)
		require.Negative(t, mv.ChangeQty)
	}
}

func TestCompleteEmptySale(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	sale, err := svc.Create(ctx, CreateSaleInput{BranchID: 1, ActorID: 5})
	require.NoError(t, err)

	_, err = svc.Complete(ctx, sale.ID, 5)
	require.ErrorIs(t, err, ErrEmptySale)
}

func TestCompleteNotFound(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	_, err := svc.Complete(context.Background(), 999, 5)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCompleteInsufficientStockRollsBackAllLines(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()
	sale := openSaleWithLines(t, repo, svc)

	// Second line can no longer be covered.
	repo.state.stocks[stockKey(1, 200)] = 1

	_, err := svc.Complete(ctx, sale.ID, 5)
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)

	// The first line's deduction must not survive the rollback.
	require.EqualValues(t, 10, repo.state.stocks[stockKey(1, 100)])
	require.EqualValues(t, 1, repo.state.stocks[stockKey(1, 200)])
	require.Empty(t, repo.state.movements)

	got, err := svc.Get(ctx, sale.ID)
	require.NoError(t, err)
	require.Equal(t, SaleStatusOpen, got.Status)
	require.Zero(t, got.TotalAmount)
}

func TestCompleteMissingStockRow(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()
	sale := openSaleWithLines(t, repo, svc)
	delete(repo.state.stocks, stockKey(1, 200))

	_, err := svc.Complete(ctx, sale.ID, 5)
	require.ErrorIs(t, err, inventory.ErrStockRowMissing)
	require.EqualValues(t, 10, repo.state.stocks[stockKey(1, 100)])
	require.Empty(t, repo.state.movements)
}

func TestCompleteTwiceRejected(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()
	sale := openSaleWithLines(t, repo, svc)

	_, err := svc.Complete(ctx, sale.ID, 5)
	require.NoError(t, err)

	_, err = svc.Complete(ctx, sale.ID, 5)
	require.ErrorIs(t, err, shared.ErrInvalidStateTransition)

	// Stock was deducted exactly once.
	require.EqualValues(t, 8, repo.state.stocks[stockKey(1, 100)])
	require.EqualValues(t, 7, repo.state.stocks[stockKey(1, 200)])
	require.Len(t, repo.state.movements, 2)
}

func TestLineMutationLockedAfterCompletion(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()
	sale := openSaleWithLines(t, repo, svc)

	_, err := svc.Complete(ctx, sale.ID, 5)
	require.NoError(t, err)

	_, err = svc.AddLine(ctx, AddLineInput{SaleID: sale.ID, ProductID: 100, Qty: 1, ActorID: 5})
	require.ErrorIs(t, err, shared.ErrInvalidStateTransition)

	got, _ := svc.Get(ctx, sale.ID)
	err = svc.RemoveLine(ctx, sale.ID, got.Lines[0].ID)
	require.ErrorIs(t, err, shared.ErrInvalidStateTransition)
}
