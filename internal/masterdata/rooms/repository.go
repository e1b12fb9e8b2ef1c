package rooms

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pets-things/pets-things/internal/masterdata/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Room, int, error)
	Get(ctx context.Context, id int64) (Room, error)
	Create(ctx context.Context, room Room) (Room, error)
	Update(ctx context.Context, id int64, room Room) error
	Deactivate(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Room, int, error) {
	var total int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM rooms
WHERE ($1 = '' OR number ILIKE '%' || $1 || '%' OR room_type ILIKE '%' || $1 || '%')
  AND ($2 = -1 OR is_active = ($2 = 1))`,
		filters.Search, filters.ActiveParam()).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, `SELECT id, number, room_type, price_per_night, is_active FROM rooms
WHERE ($1 = '' OR number ILIKE '%' || $1 || '%' OR room_type ILIKE '%' || $1 || '%')
  AND ($2 = -1 OR is_active = ($2 = 1))
ORDER BY number
LIMIT $3 OFFSET $4`,
		filters.Search, filters.ActiveParam(), filters.PageLimit(), filters.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []Room
	for rows.Next() {
		var rm Room
		if err := rows.Scan(&rm.ID, &rm.Number, &rm.RoomType, &rm.PricePerNight, &rm.IsActive); err != nil {
			return nil, 0, err
		}
		list = append(list, rm)
	}
	return list, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Room, error) {
	var rm Room
	err := r.db.QueryRow(ctx, `SELECT id, number, room_type, price_per_night, is_active FROM rooms WHERE id = $1`, id).
		Scan(&rm.ID, &rm.Number, &rm.RoomType, &rm.PricePerNight, &rm.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return Room{}, shared.ErrNotFound
	}
	return rm, err
}

func (r *repository) Create(ctx context.Context, room Room) (Room, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO rooms (number, room_type, price_per_night, is_active) VALUES ($1, $2, $3, $4) RETURNING id`,
		room.Number, room.RoomType, room.PricePerNight, room.IsActive).Scan(&room.ID)
	if err != nil {
		return Room{}, err
	}
	return room, nil
}

func (r *repository) Update(ctx context.Context, id int64, room Room) error {
	tag, err := r.db.Exec(ctx, `UPDATE rooms SET number = $1, room_type = $2, price_per_night = $3, is_active = $4 WHERE id = $5`,
		room.Number, room.RoomType, room.PricePerNight, room.IsActive, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Deactivate takes the room out of availability searches; existing bookings
// keep their lines.
func (r *repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE rooms SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
