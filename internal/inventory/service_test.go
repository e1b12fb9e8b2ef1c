package inventory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pets-things/pets-things/internal/masterdata/locations"
)

type memoryRepo struct {
	stocks    map[string]StockRecord
	kinds     map[int64]string
	seeded    map[string]int64
	movements []Movement
	transfers []Transfer
	nextID    int64

	failTransferIn bool
}

type memoryTx struct {
	repo *memoryRepo

	stocks    map[string]StockRecord
	movements []Movement
	transfers []Transfer
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		stocks: make(map[string]StockRecord),
		seeded: make(map[string]int64),
		kinds: map[int64]string{
			1: locations.KindWarehouse,
			2: locations.KindBranch,
			3: locations.KindBranch,
		},
	}
}

func (r *memoryRepo) addLocation(id int64, kind string) {
	r.kinds[id] = kind
}

func key(locationID, productID int64) string {
	return fmt.Sprintf("%d:%d", locationID, productID)
}

// seed injects an on-hand baseline directly, standing in for ledger history
// that predates the fake; VerifyLedger counts it as such.
func (r *memoryRepo) seed(locationID, productID, onHand int64) {
	k := key(locationID, productID)
	r.stocks[k] = StockRecord{LocationID: locationID, ProductID: productID, OnHand: onHand}
	r.seeded[k] = onHand
}

// WithTx runs fn against a copy of the state and commits only on success, so
// a failing callback leaves the repo untouched.
func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &memoryTx{
		repo:      r,
		stocks:    make(map[string]StockRecord, len(r.stocks)),
		movements: append([]Movement(nil), r.movements...),
		transfers: append([]Transfer(nil), r.transfers...),
		nextID:    r.nextID,
	}
	for k, v := range r.stocks {
		tx.stocks[k] = v
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	r.stocks = tx.stocks
	r.movements = tx.movements
	r.transfers = tx.transfers
	r.nextID = tx.nextID
	return nil
}

func (r *memoryRepo) GetStock(ctx context.Context, locationID, productID int64) (StockRecord, error) {
	rec, ok := r.stocks[key(locationID, productID)]
	if !ok {
		return StockRecord{}, ErrStockRowMissing
	}
	return rec, nil
}

func (r *memoryRepo) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	return append([]Movement(nil), r.movements...), nil
}

func (r *memoryRepo) SeedProduct(ctx context.Context, productID int64) error   { return nil }
func (r *memoryRepo) SeedLocation(ctx context.Context, locationID int64) error { return nil }

func (r *memoryRepo) VerifyLedger(ctx context.Context) ([]Discrepancy, error) {
	sums := make(map[string]int64, len(r.seeded))
	for k, baseline := range r.seeded {
		sums[k] = baseline
	}
	for _, mv := range r.movements {
		sums[key(mv.LocationID, mv.ProductID)] += mv.ChangeQty
	}
	var found []Discrepancy
	for k, rec := range r.stocks {
		if rec.OnHand != sums[k] {
			found = append(found, Discrepancy{LocationID: rec.LocationID, ProductID: rec.ProductID, OnHand: rec.OnHand, LedgerSum: sums[k]})
		}
	}
	return found, nil
}

func (tx *memoryTx) LocationKind(ctx context.Context, locationID int64) (string, error) {
	kind, ok := tx.repo.kinds[locationID]
	if !ok {
		return "", ErrWrongLocationKind
	}
	return kind, nil
}

func (tx *memoryTx) StockForUpdate(ctx context.Context, locationID, productID int64) (StockRecord, error) {
	rec, ok := tx.stocks[key(locationID, productID)]
	if !ok {
		return StockRecord{}, ErrStockRowMissing
	}
	return rec, nil
}

func (tx *memoryTx) EnsureStock(ctx context.Context, locationID, productID int64) error {
	k := key(locationID, productID)
	if _, ok := tx.stocks[k]; !ok {
		tx.stocks[k] = StockRecord{LocationID: locationID, ProductID: productID}
	}
	return nil
}

func (tx *memoryTx) Apply(ctx context.Context, mv Movement) (int64, error) {
	if tx.repo.failTransferIn && mv.Type == MovementTransferIn {
		return 0, errors.New("injected failure")
	}
	k := key(mv.LocationID, mv.ProductID)
	rec, ok := tx.stocks[k]
	if !ok {
		return 0, ErrStockRowMissing
	}
	if rec.OnHand+mv.ChangeQty < 0 {
		return 0, ErrInsufficientStock
	}
	tx.nextID++
	mv.ID = tx.nextID
	rec.OnHand += mv.ChangeQty
	tx.stocks[k] = rec
	tx.movements = append(tx.movements, mv)
	return mv.ID, nil
}

func (tx *memoryTx) InsertTransfer(ctx context.Context, tr Transfer) (int64, error) {
	tx.nextID++
	tr.ID = tx.nextID
	tx.transfers = append(tx.transfers, tr)
	return tr.ID, nil
}

func (tx *memoryTx) StampRestock(ctx context.Context, locationID, productID int64) error {
	return nil
}

func requireLedgerConsistent(t *testing.T, repo *memoryRepo) {
	t.Helper()
	found, err := repo.VerifyLedger(context.Background())
	require.NoError(t, err)
	require.Empty(t, found)
}

func TestTransferMovesStockBothSides(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed(1, 10, 20)
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	tr, err := svc.Transfer(ctx, TransferInput{WarehouseID: 1, BranchID: 2, ProductID: 10, Qty: 5, ActorID: 7})
	require.NoError(t, err)
	require.NotZero(t, tr.ID)

	warehouse, err := repo.GetStock(ctx, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 15, warehouse.OnHand)

	branch, err := repo.GetStock(ctx, 2, 10)
	require.NoError(t, err)
	require.EqualValues(t, 5, branch.OnHand)

	require.Len(t, repo.movements, 2)
	out, in := repo.movements[0], repo.movements[1]
	require.Equal(t, MovementTransferOut, out.Type)
	require.EqualValues(t, -5, out.ChangeQty)
	require.Equal(t, MovementTransferIn, in.Type)
	require.EqualValues(t, 5, in.ChangeQty)
	require.Equal(t, tr.ID, out.RefID)
	require.Equal(t, tr.ID, in.RefID)
	requireLedgerConsistent(t, repo)
}

func TestTransferInsufficientStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed(1, 10, 3)
	svc := NewService(repo, nil, nil)

	_, err := svc.Transfer(context.Background(), TransferInput{WarehouseID: 1, BranchID: 2, ProductID: 10, Qty: 5, ActorID: 7})
	require.ErrorIs(t, err, ErrInsufficientStock)

	warehouse, err := repo.GetStock(context.Background(), 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 3, warehouse.OnHand)
	require.Empty(t, repo.movements)
}

func TestTransferMissingWarehouseRow(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)

	_, err := svc.Transfer(context.Background(), TransferInput{WarehouseID: 1, BranchID: 2, ProductID: 10, Qty: 5})
	require.ErrorIs(t, err, ErrStockRowMissing)
	require.Empty(t, repo.movements)
}

func TestTransferRollsBackOnMidwayFailure(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed(1, 10, 20)
	repo.failTransferIn = true
	svc := NewService(repo, nil, nil)

	_, err := svc.Transfer(context.Background(), TransferInput{WarehouseID: 1, BranchID: 2, ProductID: 10, Qty: 5})
	require.Error(t, err)

	// The warehouse deduction happened inside the transaction before the
	// failure; after rollback nothing may remain of it.
	warehouse, err := repo.GetStock(context.Background(), 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 20, warehouse.OnHand)
	require.Empty(t, repo.movements)
	require.Empty(t, repo.transfers)
	requireLedgerConsistent(t, repo)
}

func TestTransferValidation(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	ctx := context.Background()

	_, err := svc.Transfer(ctx, TransferInput{WarehouseID: 1, BranchID: 1, ProductID: 10, Qty: 5})
	require.ErrorIs(t, err, ErrSameLocation)

	_, err = svc.Transfer(ctx, TransferInput{WarehouseID: 1, BranchID: 2, ProductID: 10, Qty: 0})
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestTransferEndpointKindsEnforced(t *testing.T) {
	repo := newMemoryRepo()
	repo.addLocation(4, locations.KindBranch)
	repo.addLocation(5, locations.KindWarehouse)
	repo.seed(4, 10, 20)
	repo.seed(2, 10, 20)
	repo.seed(1, 10, 20)
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	// branch as source
	_, err := svc.Transfer(ctx, TransferInput{WarehouseID: 4, BranchID: 2, ProductID: 10, Qty: 5})
	require.ErrorIs(t, err, ErrWrongLocationKind)

	// warehouse as destination
	_, err = svc.Transfer(ctx, TransferInput{WarehouseID: 1, BranchID: 5, ProductID: 10, Qty: 5})
	require.ErrorIs(t, err, ErrWrongLocationKind)

	// unknown location
	_, err = svc.Transfer(ctx, TransferInput{WarehouseID: 99, BranchID: 2, ProductID: 10, Qty: 5})
	require.ErrorIs(t, err, ErrWrongLocationKind)

	require.Empty(t, repo.movements)
	require.Empty(t, repo.transfers)
}

func TestRestockIncrementsAndRecords(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	mv, err := svc.Restock(ctx, RestockInput{LocationID: 3, ProductID: 10, Qty: 12, ActorID: 1})
	require.NoError(t, err)
	require.Equal(t, MovementRestock, mv.Type)

	rec, err := repo.GetStock(ctx, 3, 10)
	require.NoError(t, err)
	require.EqualValues(t, 12, rec.OnHand)
	requireLedgerConsistent(t, repo)
}

func TestLedgerSumHoldsAcrossSequence(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	_, err := svc.Restock(ctx, RestockInput{LocationID: 1, ProductID: 10, Qty: 30, ActorID: 1})
	require.NoError(t, err)
	_, err = svc.Transfer(ctx, TransferInput{WarehouseID: 1, BranchID: 2, ProductID: 10, Qty: 10, ActorID: 1})
	require.NoError(t, err)
	_, err = svc.Transfer(ctx, TransferInput{WarehouseID: 1, BranchID: 2, ProductID: 10, Qty: 7, ActorID: 1})
	require.NoError(t, err)
	_, err = svc.Transfer(ctx, TransferInput{WarehouseID: 1, BranchID: 2, ProductID: 10, Qty: 100, ActorID: 1})
	require.ErrorIs(t, err, ErrInsufficientStock)

	warehouse, err := repo.GetStock(ctx, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 13, warehouse.OnHand)
	branch, err := repo.GetStock(ctx, 2, 10)
	require.NoError(t, err)
	require.EqualValues(t, 17, branch.OnHand)
	requireLedgerConsistent(t, repo)
}
