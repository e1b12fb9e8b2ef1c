package cats

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pets-things/pets-things/internal/shared"
)

type memoryRepo struct {
	cats   map[int64]Cat
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{cats: make(map[int64]Cat)}
}

func (r *memoryRepo) Insert(ctx context.Context, input CreateCatInput) (Cat, error) {
	r.nextID++
	cat := Cat{ID: r.nextID, OwnerID: input.OwnerID, Name: input.Name, Breed: input.Breed, BirthDate: input.BirthDate, Notes: input.Notes, IsActive: true}
	r.cats[cat.ID] = cat
	return cat, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Cat, error) {
	cat, ok := r.cats[id]
	if !ok || !cat.IsActive {
		return Cat{}, ErrNotFound
	}
	return cat, nil
}

func (r *memoryRepo) ListByOwner(ctx context.Context, ownerID int64) ([]Cat, error) {
	var out []Cat
	for _, cat := range r.cats {
		if cat.OwnerID == ownerID && cat.IsActive {
			out = append(out, cat)
		}
	}
	return out, nil
}

func (r *memoryRepo) Update(ctx context.Context, id int64, input UpdateCatInput) error {
	cat, ok := r.cats[id]
	if !ok || !cat.IsActive {
		return ErrNotFound
	}
	cat.Name = input.Name
	cat.Breed = input.Breed
	cat.BirthDate = input.BirthDate
	cat.Notes = input.Notes
	r.cats[id] = cat
	return nil
}

func (r *memoryRepo) Deactivate(ctx context.Context, id int64) error {
	cat, ok := r.cats[id]
	if !ok || !cat.IsActive {
		return ErrNotFound
	}
	cat.IsActive = false
	r.cats[id] = cat
	return nil
}

var (
	owner    = shared.Actor{UserID: 7, Role: shared.RoleCustomer}
	stranger = shared.Actor{UserID: 8, Role: shared.RoleCustomer}
	employee = shared.Actor{UserID: 2, Role: shared.RoleEmployee}
)

func TestCustomerOwnsTheirCats(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	cat, err := svc.Create(ctx, owner, CreateCatInput{Name: "Misu"})
	require.NoError(t, err)
	require.EqualValues(t, owner.UserID, cat.OwnerID)

	// A customer cannot create a cat under someone else's account.
	other, err := svc.Create(ctx, owner, CreateCatInput{OwnerID: 99, Name: "Ghost"})
	require.NoError(t, err)
	require.EqualValues(t, owner.UserID, other.OwnerID)

	_, err = svc.Get(ctx, stranger, cat.ID)
	require.ErrorIs(t, err, ErrNotFound)

	got, err := svc.Get(ctx, employee, cat.ID)
	require.NoError(t, err)
	require.Equal(t, "Misu", got.Name)
}

func TestStaffMayCreateForCustomer(t *testing.T) {
	svc := NewService(newMemoryRepo())
	cat, err := svc.Create(context.Background(), employee, CreateCatInput{OwnerID: 7, Name: "Misu"})
	require.NoError(t, err)
	require.EqualValues(t, 7, cat.OwnerID)
}

func TestSoftDeleteHidesCat(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	cat, err := svc.Create(ctx, owner, CreateCatInput{Name: "Misu"})
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(ctx, stranger, cat.ID), ErrNotFound)
	require.NoError(t, svc.Delete(ctx, owner, cat.ID))

	_, err = svc.Get(ctx, owner, cat.ID)
	require.ErrorIs(t, err, ErrNotFound)

	list, err := svc.ListMine(ctx, owner, 0)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestUpdateRequiresOwnership(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	cat, err := svc.Create(ctx, owner, CreateCatInput{Name: "Misu"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, stranger, cat.ID, UpdateCatInput{Name: "Hacked"})
	require.ErrorIs(t, err, ErrNotFound)

	updated, err := svc.Update(ctx, owner, cat.ID, UpdateCatInput{Name: "Misu II", Breed: "persian"})
	require.NoError(t, err)
	require.Equal(t, "Misu II", updated.Name)
}
