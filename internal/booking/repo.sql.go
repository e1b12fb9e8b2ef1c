package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pets-things/pets-things/internal/shared"
)

// Repository persists bookings in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the transactional operations booking creation needs.
// Room rows are locked before the overlap re-check so two concurrent
// requests for the same room serialize on the row lock and the loser sees
// the winner's committed lines.
type TxRepository interface {
	RoomForUpdate(ctx context.Context, roomID int64) (Room, error)
	HasOverlap(ctx context.Context, roomID int64, from, to time.Time) (bool, error)
	InsertBooking(ctx context.Context, b Booking) (Booking, error)
	InsertBookingRoom(ctx context.Context, line BookingRoom) (BookingRoom, error)
}

type txRepository struct {
	tx pgx.Tx
}

// Booking creation must run at read committed. HasOverlap executes after
// RoomForUpdate returns, and under read committed its snapshot is taken
// only once any transaction that held the room lock has committed, so the
// re-check sees the winner's lines. Repeatable read would pin the snapshot
// before the lock wait and the loser would miss them.
var createTxOptions = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}

// WithTx executes the callback inside a read-committed transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("booking repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, createTxOptions)
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// RoomForUpdate locks the room row. Inactive rooms are reported as missing.
func (r *txRepository) RoomForUpdate(ctx context.Context, roomID int64) (Room, error) {
	var room Room
	err := r.tx.QueryRow(ctx, `SELECT id, number, room_type, price_per_night, is_active
FROM rooms WHERE id=$1 AND is_active FOR UPDATE`, roomID).
		Scan(&room.ID, &room.Number, &room.RoomType, &room.PricePerNight, &room.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Room{}, ErrNotFound
		}
		return Room{}, err
	}
	return room, nil
}

// HasOverlap reports whether any PENDING or CONFIRMED booking already claims
// the room for a date range overlapping [from, to). The comparison is
// half-open so back-to-back stays on the same day do not collide.
func (r *txRepository) HasOverlap(ctx context.Context, roomID int64, from, to time.Time) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (
  SELECT 1 FROM booking_rooms br
  JOIN bookings b ON b.id = br.booking_id
  WHERE br.room_id = $1
    AND b.status IN ($2, $3)
    AND b.date_from < $5
    AND b.date_to > $4
)`, roomID, string(BookingStatusPending), string(BookingStatusConfirmed), from, to).Scan(&exists)
	return exists, err
}

func (r *txRepository) InsertBooking(ctx context.Context, b Booking) (Booking, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO bookings (customer_id, date_from, date_to, status, total_amount, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW())
RETURNING id, created_at`, b.CustomerID, b.DateFrom, b.DateTo, string(b.Status), b.TotalAmount, b.CreatedBy).
		Scan(&b.ID, &b.CreatedAt)
	return b, err
}

func (r *txRepository) InsertBookingRoom(ctx context.Context, line BookingRoom) (BookingRoom, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO booking_rooms (booking_id, room_id, cat_id, nights, price_per_night, discount_percent, line_total)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`, line.BookingID, line.RoomID, line.CatID, line.Nights, line.PricePerNight, line.DiscountPercent, line.LineTotal).
		Scan(&line.ID)
	return line, err
}

// SearchAvailableRooms lists active rooms free for the whole of [from, to).
func (r *Repository) SearchAvailableRooms(ctx context.Context, from, to time.Time) ([]Room, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, number, room_type, price_per_night, is_active
FROM rooms rm
WHERE rm.is_active
  AND NOT EXISTS (
    SELECT 1 FROM booking_rooms br
    JOIN bookings b ON b.id = br.booking_id
    WHERE br.room_id = rm.id
      AND b.status IN ($1, $2)
      AND b.date_from < $4
      AND b.date_to > $3
  )
ORDER BY rm.number`, string(BookingStatusPending), string(BookingStatusConfirmed), from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	rooms := []Room{}
	for rows.Next() {
		var room Room
		if err := rows.Scan(&room.ID, &room.Number, &room.RoomType, &room.PricePerNight, &room.IsActive); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

// GetBooking loads a booking header with its room lines.
func (r *Repository) GetBooking(ctx context.Context, id int64) (Booking, error) {
	var b Booking
	err := r.pool.QueryRow(ctx, `SELECT id, customer_id, date_from, date_to, status, total_amount, created_by, created_at
FROM bookings WHERE id=$1`, id).
		Scan(&b.ID, &b.CustomerID, &b.DateFrom, &b.DateTo, &b.Status, &b.TotalAmount, &b.CreatedBy, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Booking{}, ErrNotFound
		}
		return Booking{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, booking_id, room_id, cat_id, nights, price_per_night, discount_percent, line_total
FROM booking_rooms WHERE booking_id=$1 ORDER BY id`, id)
	if err != nil {
		return Booking{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line BookingRoom
		if err := rows.Scan(&line.ID, &line.BookingID, &line.RoomID, &line.CatID, &line.Nights, &line.PricePerNight, &line.DiscountPercent, &line.LineTotal); err != nil {
			return Booking{}, err
		}
		b.Rooms = append(b.Rooms, line)
	}
	return b, rows.Err()
}

// ListBookings lists headers matching the filter, newest first.
func (r *Repository) ListBookings(ctx context.Context, filter ListFilter) ([]Booking, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT id, customer_id, date_from, date_to, status, total_amount, created_by, created_at
FROM bookings
WHERE ($1 = 0 OR customer_id = $1)
  AND ($2 = '' OR status = $2)
  AND date_from >= COALESCE($3, '-infinity')
  AND date_to <= COALESCE($4, 'infinity')
ORDER BY created_at DESC, id DESC
LIMIT $5`, filter.CustomerID, string(filter.Status), nullTime(filter.From), nullTime(filter.To), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	bookings := []Booking{}
	for rows.Next() {
		var b Booking
		if err := rows.Scan(&b.ID, &b.CustomerID, &b.DateFrom, &b.DateTo, &b.Status, &b.TotalAmount, &b.CreatedBy, &b.CreatedAt); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// UpdateStatus is a guarded conditional update: the booking must currently be
// in one of the allowed predecessor states or no row is touched.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, next BookingStatus, allowedFrom ...BookingStatus) error {
	froms := make([]string, len(allowedFrom))
	for i, s := range allowedFrom {
		froms[i] = string(s)
	}
	tag, err := r.pool.Exec(ctx, `UPDATE bookings SET status=$2 WHERE id=$1 AND status = ANY($3)`, id, string(next), froms)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrInvalidStateTransition
	}
	return nil
}

// CancelStalePending cancels bookings still PENDING after their start
// date passed and returns the affected ids.
func (r *Repository) CancelStalePending(ctx context.Context, before time.Time) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `UPDATE bookings SET status='CANCELLED'
WHERE status='PENDING' AND date_from <= $1
RETURNING id`, before)
	if err != nil {
		return nil, fmt.Errorf("booking: sweep stale: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
