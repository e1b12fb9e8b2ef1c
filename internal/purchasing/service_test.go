package purchasing

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pets-things/pets-things/internal/inventory"
	"github.com/pets-things/pets-things/internal/shared"
)

type memoryState struct {
	purchases map[int64]Purchase
	lines     map[int64][]PurchaseLine
	stocks    map[string]int64
	stamped   map[string]int
	movements []inventory.Movement
	nextID    int64
}

func (s *memoryState) clone() *memoryState {
	out := &memoryState{
		purchases: make(map[int64]Purchase, len(s.purchases)),
		lines:     make(map[int64][]PurchaseLine, len(s.lines)),
		stocks:    make(map[string]int64, len(s.stocks)),
		stamped:   make(map[string]int, len(s.stamped)),
		movements: append([]inventory.Movement(nil), s.movements...),
		nextID:    s.nextID,
	}
	for k, v := range s.purchases {
		out.purchases[k] = v
	}
	for k, v := range s.lines {
		out.lines[k] = append([]PurchaseLine(nil), v...)
	}
	for k, v := range s.stocks {
		out.stocks[k] = v
	}
	for k, v := range s.stamped {
		out.stamped[k] = v
	}
	return out
}

type memoryRepo struct {
	state  *memoryState
	failOn int64
}

type memoryTx struct {
	state  *memoryState
	failOn int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{state: &memoryState{
		purchases: make(map[int64]Purchase),
		lines:     make(map[int64][]PurchaseLine),
		stocks:    make(map[string]int64),
		stamped:   make(map[string]int),
	}}
}

func stockKey(locationID, productID int64) string {
	return fmt.Sprintf("%d:%d", locationID, productID)
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &memoryTx{state: r.state.clone(), failOn: r.failOn}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	r.state = tx.state
	return nil
}

func (r *memoryRepo) CreatePurchase(ctx context.Context, input CreatePurchaseInput) (Purchase, error) {
	r.state.nextID++
	p := Purchase{ID: r.state.nextID, WarehouseID: input.WarehouseID, SupplierID: input.SupplierID, Status: PurchaseStatusOpen, CreatedBy: input.ActorID}
	r.state.purchases[p.ID] = p
	return p, nil
}

func (r *memoryRepo) GetPurchase(ctx context.Context, id int64) (Purchase, error) {
	p, ok := r.state.purchases[id]
	if !ok {
		return Purchase{}, ErrNotFound
	}
	p.Lines = append([]PurchaseLine(nil), r.state.lines[id]...)
	return p, nil
}

func (r *memoryRepo) ListPurchases(ctx context.Context, filter ListFilter) ([]Purchase, error) {
	var out []Purchase
	for _, p := range r.state.purchases {
		out = append(out, p)
	}
	return out, nil
}

func (tx *memoryTx) GetPurchaseForUpdate(ctx context.Context, id int64) (Purchase, error) {
	p, ok := tx.state.purchases[id]
	if !ok {
		return Purchase{}, ErrNotFound
	}
	return p, nil
}

func (tx *memoryTx) ListLines(ctx context.Context, purchaseID int64) ([]PurchaseLine, error) {
	return append([]PurchaseLine(nil), tx.state.lines[purchaseID]...), nil
}

func (tx *memoryTx) InsertLine(ctx context.Context, purchaseID, productID, qty int64, unitCost float64) (PurchaseLine, error) {
	tx.state.nextID++
	line := PurchaseLine{ID: tx.state.nextID, PurchaseID: purchaseID, ProductID: productID, Qty: qty, UnitCost: unitCost, LineTotal: float64(qty) * unitCost}
	tx.state.lines[purchaseID] = append(tx.state.lines[purchaseID], line)
	return line, nil
}

func (tx *memoryTx) DeleteLine(ctx context.Context, purchaseID, lineID int64) error {
	lines := tx.state.lines[purchaseID]
	for i, line := range lines {
		if line.ID == lineID {
			tx.state.lines[purchaseID] = append(lines[:i], lines[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (tx *memoryTx) MarkCompleted(ctx context.Context, purchaseID int64, total float64, actorID int64) error {
	p, ok := tx.state.purchases[purchaseID]
	if !ok || p.Status != PurchaseStatusOpen {
		return shared.ErrInvalidStateTransition
	}
	p.Status = PurchaseStatusCompleted
	p.TotalAmount = total
	p.CompletedBy = actorID
	tx.state.purchases[purchaseID] = p
	return nil
}

func (tx *memoryTx) EnsureStock(ctx context.Context, locationID, productID int64) error {
	k := stockKey(locationID, productID)
	if _, ok := tx.state.stocks[k]; !ok {
		tx.state.stocks[k] = 0
	}
	return nil
}

func (tx *memoryTx) ApplyMovement(ctx context.Context, mv inventory.Movement) (int64, error) {
	if tx.failOn != 0 && mv.ProductID == tx.failOn {
		return 0, fmt.Errorf("injected movement failure")
	}
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

func (tx *memoryTx) StampPurchase(ctx context.Context, locationID, productID int64) error {
	tx.state.stamped[stockKey(locationID, productID)]++
	return nil
}

func openPurchaseWithLines(t *testing.T, svc *Service) Purchase {
	t.Helper()
	ctx := context.Background()
	p, err := svc.Create(ctx, CreatePurchaseInput{WarehouseID: 1, SupplierID: 9, ActorID: 5})
	require.NoError(t, err)
	_, err = svc.AddLine(ctx, AddLineInput{PurchaseID: p.ID, ProductID: 100, Qty: 20, UnitCost: 2.5, ActorID: 5})
	require.NoError(t, err)
	_, err = svc.AddLine(ctx, AddLineInput{PurchaseID: p.ID, ProductID: 200, Qty: 4, UnitCost: 12.0, ActorID: 5})
	require.NoError(t, err)
	return p
}

func TestCompleteBooksStockAndTotal(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()
	p := openPurchaseWithLines(t, svc)

	completed, err := svc.Complete(ctx, p.ID, 5)
	require.NoError(t, err)
	require.Equal(t, PurchaseStatusCompleted, completed.Status)
	require.InDelta(t, 98.0, completed.TotalAmount, 0.0001)

	require.EqualValues(t, 20, repo.state.stocks[stockKey(1, 100)])
	require.EqualValues(t, 4, repo.state.stocks[stockKey(1, 200)])
	require.Len(t, repo.state.movements, 2)
	for _, mv := range repo.state.movements {
		require.Equal(t, inventory.MovementPurchase, mv.Type)
		require.Equal(t, p.ID, mv.RefID)
		require.Positive(t, mv.ChangeQty)
	}
	require.Equal(t, 1, repo.state.stamped[stockKey(1, 100)])
	require.Equal(t, 1, repo.state.stamped[stockKey(1, 200)])
}

func TestCompleteCreatesMissingStockRows(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()
	p := openPurchaseWithLines(t, svc)

	// No stock rows seeded: first receipt must create them at zero.
	_, err := svc.Complete(ctx, p.ID, 5)
	require.NoError(t, err)
	require.EqualValues(t, 20, repo.state.stocks[stockKey(1, 100)])
}

func TestCompleteEmptyPurchase(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	p, err := svc.Create(ctx, CreatePurchaseInput{WarehouseID: 1, SupplierID: 9, ActorID: 5})
	require.NoError(t, err)

	_, err = svc.Complete(ctx, p.ID, 5)
	require.ErrorIs(t, err, ErrEmptyPurchase)
}

func TestCompleteNotFound(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	_, err := svc.Complete(context.Background(), 404, 5)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCompleteRollsBackOnMidwayFailure(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()
	p := openPurchaseWithLines(t, svc)
	repo.failOn = 200

	_, err := svc.Complete(ctx, p.ID, 5)
	require.Error(t, err)

	// The first line's receipt must not survive the rollback.
	require.EqualValues(t, 0, repo.state.stocks[stockKey(1, 100)])
	require.Empty(t, repo.state.movements)
	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, PurchaseStatusOpen, got.Status)
}

func TestCompleteTwiceRejected(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()
	p := openPurchaseWithLines(t, svc)

	_, err := svc.Complete(ctx, p.ID, 5)
	require.NoError(t, err)

	_, err = svc.Complete(ctx, p.ID, 5)
	require.ErrorIs(t, err, shared.ErrInvalidStateTransition)

	// Stock was received exactly once.
	require.EqualValues(t, 20, repo.state.stocks[stockKey(1, 100)])
	require.Len(t, repo.state.movements, 2)
}

func TestAddLineValidation(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()
	p, err := svc.Create(ctx, CreatePurchaseInput{WarehouseID: 1, SupplierID: 9, ActorID: 5})
	require.NoError(t, err)

	_, err = svc.AddLine(ctx, AddLineInput{PurchaseID: p.ID, ProductID: 100, Qty: 0, UnitCost: 1})
	require.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = svc.AddLine(ctx, AddLineInput{PurchaseID: p.ID, ProductID: 100, Qty: 1, UnitCost: -0.5})
	require.ErrorIs(t, err, ErrInvalidCost)
}

func TestLineMutationLockedAfterCompletion(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()
	p := openPurchaseWithLines(t, svc)

	_, err := svc.Complete(ctx, p.ID, 5)
	require.NoError(t, err)

	_, err = svc.AddLine(ctx, AddLineInput{PurchaseID: p.ID, ProductID: 100, Qty: 1, UnitCost: 2, ActorID: 5})
	require.ErrorIs(t, err, shared.ErrInvalidStateTransition)

	got, _ := svc.Get(ctx, p.ID)
	err = svc.RemoveLine(ctx, p.ID, got.Lines[0].ID)
	require.ErrorIs(t, err, shared.ErrInvalidStateTransition)
}
