package cats

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists cat profiles in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, input CreateCatInput) (Cat, error) {
	var cat Cat
	err := r.pool.QueryRow(ctx, `INSERT INTO cats (owner_id, name, breed, birth_date, notes, is_active, created_at)
VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, '0001-01-01'::date), NULLIF($5, ''), TRUE, NOW())
RETURNING id, owner_id, name, COALESCE(breed, ''), COALESCE(birth_date, '0001-01-01'::date), COALESCE(notes, ''), is_active, created_at`,
		input.OwnerID, input.Name, input.Breed, input.BirthDate, input.Notes).
		Scan(&cat.ID, &cat.OwnerID, &cat.Name, &cat.Breed, &cat.BirthDate, &cat.Notes, &cat.IsActive, &cat.CreatedAt)
	return cat, err
}

func (r *Repository) Get(ctx context.Context, id int64) (Cat, error) {
	var cat Cat
	err := r.pool.QueryRow(ctx, `SELECT id, owner_id, name, COALESCE(breed, ''), COALESCE(birth_date, '0001-01-01'::date), COALESCE(notes, ''), is_active, created_at
FROM cats WHERE id=$1 AND is_active`, id).
		Scan(&cat.ID, &cat.OwnerID, &cat.Name, &cat.Breed, &cat.BirthDate, &cat.Notes, &cat.IsActive, &cat.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Cat{}, ErrNotFound
		}
		return Cat{}, err
	}
	return cat, nil
}

// ListByOwner returns an owner's active cats, oldest first.
func (r *Repository) ListByOwner(ctx context.Context, ownerID int64) ([]Cat, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, owner_id, name, COALESCE(breed, ''), COALESCE(birth_date, '0001-01-01'::date), COALESCE(notes, ''), is_active, created_at
FROM cats WHERE owner_id=$1 AND is_active ORDER BY id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cats := []Cat{}
	for rows.Next() {
		var cat Cat
		if err := rows.Scan(&cat.ID, &cat.OwnerID, &cat.Name, &cat.Breed, &cat.BirthDate, &cat.Notes, &cat.IsActive, &cat.CreatedAt); err != nil {
			return nil, err
		}
		cats = append(cats, cat)
	}
	return cats, rows.Err()
}

func (r *Repository) Update(ctx context.Context, id int64, input UpdateCatInput) error {
	tag, err := r.pool.Exec(ctx, `UPDATE cats SET name=$2, breed=NULLIF($3, ''), birth_date=NULLIF($4, '0001-01-01'::date), notes=NULLIF($5, '')
WHERE id=$1 AND is_active`, id, input.Name, input.Breed, input.BirthDate, input.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Deactivate soft-deletes the profile.
func (r *Repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE cats SET is_active=FALSE WHERE id=$1 AND is_active`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
