package locations

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pets-things/pets-things/internal/masterdata/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Location, int, error)
	Get(ctx context.Context, id int64) (Location, error)
	Create(ctx context.Context, location Location) (Location, error)
	Update(ctx context.Context, id int64, location Location) error
	Deactivate(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Location, int, error) {
	var total int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM locations
WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')
  AND ($2 = '' OR kind = $2)
  AND ($3 = -1 OR is_active = ($3 = 1))`,
		filters.Search, filters.Kind, filters.ActiveParam()).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, `SELECT id, name, kind, is_active FROM locations
WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')
  AND ($2 = '' OR kind = $2)
  AND ($3 = -1 OR is_active = ($3 = 1))
ORDER BY kind, name
LIMIT $4 OFFSET $5`,
		filters.Search, filters.Kind, filters.ActiveParam(), filters.PageLimit(), filters.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []Location
	for rows.Next() {
		var l Location
		if err := rows.Scan(&l.ID, &l.Name, &l.Kind, &l.IsActive); err != nil {
			return nil, 0, err
		}
		list = append(list, l)
	}
	return list, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Location, error) {
	var l Location
	err := r.db.QueryRow(ctx, `SELECT id, name, kind, is_active FROM locations WHERE id = $1`, id).
		Scan(&l.ID, &l.Name, &l.Kind, &l.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return Location{}, shared.ErrNotFound
	}
	return l, err
}

func (r *repository) Create(ctx context.Context, location Location) (Location, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO locations (name, kind, is_active) VALUES ($1, $2, $3) RETURNING id`,
		location.Name, location.Kind, location.IsActive).Scan(&location.ID)
	if err != nil {
		return Location{}, err
	}
	return location, nil
}

func (r *repository) Update(ctx context.Context, id int64, location Location) error {
	tag, err := r.db.Exec(ctx, `UPDATE locations SET name = $1, kind = $2, is_active = $3 WHERE id = $4`,
		location.Name, location.Kind, location.IsActive, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE locations SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
