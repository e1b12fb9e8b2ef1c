package locations

import (
	"context"
	"fmt"
	"strings"

	"github.com/pets-things/pets-things/internal/masterdata/shared"
)

// StockSeeder creates zeroed stock rows for a new location across all
// products.
type StockSeeder interface {
	SeedLocation(ctx context.Context, locationID int64) error
}

type Service struct {
	repo   Repository
	seeder StockSeeder
}

func NewService(repo Repository, seeder StockSeeder) *Service {
	return &Service{repo: repo, seeder: seeder}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Location, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Location, error) {
	if id <= 0 {
		return Location{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

// Create inserts the location and eagerly seeds stock rows for every
// product at it.
func (s *Service) Create(ctx context.Context, location Location) (Location, error) {
	if err := s.validate(location); err != nil {
		return Location{}, err
	}
	created, err := s.repo.Create(ctx, location)
	if err != nil {
		return Location{}, err
	}
	if s.seeder != nil {
		if err := s.seeder.SeedLocation(ctx, created.ID); err != nil {
			return Location{}, err
		}
	}
	return created, nil
}

func (s *Service) Update(ctx context.Context, id int64, location Location) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	if err := s.validate(location); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, location)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	return s.repo.Deactivate(ctx, id)
}

func (s *Service) validate(l Location) error {
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("%w: name", shared.ErrRequiredField)
	}
	if l.Kind != KindBranch && l.Kind != KindWarehouse {
		return fmt.Errorf("%w: kind must be branch or warehouse", shared.ErrValidation)
	}
	return nil
}
