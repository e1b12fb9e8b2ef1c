package rooms

import (
	"context"
	"fmt"
	"strings"

	"github.com/pets-things/pets-things/internal/masterdata/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Room, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Room, error) {
	if id <= 0 {
		return Room{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, room Room) (Room, error) {
	if err := s.validate(room); err != nil {
		return Room{}, err
	}
	return s.repo.Create(ctx, room)
}

func (s *Service) Update(ctx context.Context, id int64, room Room) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	if err := s.validate(room); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, room)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	return s.repo.Deactivate(ctx, id)
}

func (s *Service) validate(rm Room) error {
	if strings.TrimSpace(rm.Number) == "" {
		return fmt.Errorf("%w: number", shared.ErrRequiredField)
	}
	if rm.PricePerNight < 0 {
		return fmt.Errorf("%w: price_per_night must not be negative", shared.ErrValidation)
	}
	return nil
}
