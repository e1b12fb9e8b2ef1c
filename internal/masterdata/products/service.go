package products

import (
	"context"

	"github.com/pets-things/pets-things/internal/masterdata/shared"
)

// StockSeeder creates zeroed stock rows for a new product across all
// locations.
type StockSeeder interface {
	SeedProduct(ctx context.Context, productID int64) error
}

type Service struct {
	repo   Repository
	seeder StockSeeder
}

func NewService(repo Repository, seeder StockSeeder) *Service {
	return &Service{repo: repo, seeder: seeder}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

// Create inserts the product and eagerly seeds a stock row for it at every
// location, so stock lookups never have to handle a missing pair.
func (s *Service) Create(ctx context.Context, product Product) (Product, error) {
	if err := s.validate(product); err != nil {
		return Product{}, err
	}
	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return Product{}, err
	}
	if s.seeder != nil {
		if err := s.seeder.SeedProduct(ctx, created.ID); err != nil {
			return Product{}, err
		}
	}
	return created, nil
}

func (s *Service) Update(ctx context.Context, id int64, product Product) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	if err := s.validate(product); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, product)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	return s.repo.Deactivate(ctx, id)
}
