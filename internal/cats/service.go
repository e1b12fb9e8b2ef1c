package cats

import (
	"context"

	"github.com/pets-things/pets-things/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	Insert(ctx context.Context, input CreateCatInput) (Cat, error)
	Get(ctx context.Context, id int64) (Cat, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]Cat, error)
	Update(ctx context.Context, id int64, input UpdateCatInput) error
	Deactivate(ctx context.Context, id int64) error
}

// Service manages pet profiles. Ownership is enforced here: a customer may
// only touch their own cats, staff may touch any.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, actor shared.Actor, input CreateCatInput) (Cat, error) {
	if !actor.IsStaff() || input.OwnerID == 0 {
		input.OwnerID = actor.UserID
	}
	return s.repo.Insert(ctx, input)
}

func (s *Service) Get(ctx context.Context, actor shared.Actor, id int64) (Cat, error) {
	cat, err := s.repo.Get(ctx, id)
	if err != nil {
		return Cat{}, err
	}
	if !actor.IsStaff() && cat.OwnerID != actor.UserID {
		return Cat{}, ErrNotFound
	}
	return cat, nil
}

func (s *Service) ListMine(ctx context.Context, actor shared.Actor, ownerID int64) ([]Cat, error) {
	if !actor.IsStaff() || ownerID == 0 {
		ownerID = actor.UserID
	}
	return s.repo.ListByOwner(ctx, ownerID)
}

func (s *Service) Update(ctx context.Context, actor shared.Actor, id int64, input UpdateCatInput) (Cat, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return Cat{}, err
	}
	if err := s.repo.Update(ctx, id, input); err != nil {
		return Cat{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, actor shared.Actor, id int64) error {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return err
	}
	return s.repo.Deactivate(ctx, id)
}
