package products

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pets-things/pets-things/internal/masterdata/shared"
)

type fakeRepo struct {
	created []Product
	nextID  int64
}

func (f *fakeRepo) List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	return f.created, len(f.created), nil
}

func (f *fakeRepo) Get(ctx context.Context, id int64) (Product, error) {
	for _, p := range f.created {
		if p.ID == id {
			return p, nil
		}
	}
	return Product{}, shared.ErrNotFound
}

func (f *fakeRepo) Create(ctx context.Context, product Product) (Product, error) {
	f.nextID++
	product.ID = f.nextID
	f.created = append(f.created, product)
	return product, nil
}

func (f *fakeRepo) Update(ctx context.Context, id int64, product Product) error { return nil }
func (f *fakeRepo) Deactivate(ctx context.Context, id int64) error              { return nil }

type fakeSeeder struct {
	seeded []int64
}

func (f *fakeSeeder) SeedProduct(ctx context.Context, productID int64) error {
	f.seeded = append(f.seeded, productID)
	return nil
}

func TestCreateValidatesAndSeeds(t *testing.T) {
	repo := &fakeRepo{}
	seeder := &fakeSeeder{}
	svc := NewService(repo, seeder)
	ctx := context.Background()

	_, err := svc.Create(ctx, Product{Name: "  ", CategoryID: 1})
	require.ErrorIs(t, err, shared.ErrRequiredField)

	_, err = svc.Create(ctx, Product{Name: "Cat food", CategoryID: 0})
	require.ErrorIs(t, err, shared.ErrRequiredField)

	_, err = svc.Create(ctx, Product{Name: "Cat food", CategoryID: 1, UnitPrice: -1})
	require.ErrorIs(t, err, shared.ErrValidation)

	created, err := svc.Create(ctx, Product{Name: "Cat food", CategoryID: 1, UnitPrice: 4.5, IsActive: true})
	require.NoError(t, err)
	require.Equal(t, []int64{created.ID}, seeder.seeded)
}

func TestGetRejectsInvalidID(t *testing.T) {
	svc := NewService(&fakeRepo{}, nil)
	_, err := svc.Get(context.Background(), 0)
	require.ErrorIs(t, err, shared.ErrInvalidID)
}
