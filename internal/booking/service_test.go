package booking

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/pets-things/pets-things/internal/shared"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

type memoryState struct {
	rooms    map[int64]Room
	bookings map[int64]Booking
	lines    []BookingRoom
	nextID   int64
}

func (s *memoryState) clone() *memoryState {
	out := &memoryState{
		rooms:    make(map[int64]Room, len(s.rooms)),
		bookings: make(map[int64]Booking, len(s.bookings)),
		lines:    append([]BookingRoom(nil), s.lines...),
		nextID:   s.nextID,
	}
	for k, v := range s.rooms {
		out.rooms[k] = v
	}
	for k, v := range s.bookings {
		out.bookings[k] = v
	}
	return out
}

type memoryRepo struct {
	state *memoryState
}

type memoryTx struct {
	state *memoryState
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{state: &memoryState{
		rooms:    make(map[int64]Room),
		bookings: make(map[int64]Booking),
	}}
}

func (r *memoryRepo) addRoom(id int64, number string, price float64) {
	r.state.rooms[id] = Room{ID: id, Number: number, RoomType: "standard", PricePerNight: price, IsActive: true}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &memoryTx{state: r.state.clone()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	r.state = tx.state
	return nil
}

func (tx *memoryTx) RoomForUpdate(ctx context.Context, roomID int64) (Room, error) {
	room, ok := tx.state.rooms[roomID]
	if !ok || !room.IsActive {
		return Room{}, ErrNotFound
	}
	return room, nil
}

func overlaps(state *memoryState, roomID int64, from, to time.Time) bool {
	for _, line := range state.lines {
		if line.RoomID != roomID {
			continue
		}
		b := state.bookings[line.BookingID]
		if b.Status != BookingStatusPending && b.Status != BookingStatusConfirmed {
			continue
		}
		if b.DateFrom.Before(to) && b.DateTo.After(from) {
			return true
		}
	}
	return false
}

func (tx *memoryTx) HasOverlap(ctx context.Context, roomID int64, from, to time.Time) (bool, error) {
	return overlaps(tx.state, roomID, from, to), nil
}

func (tx *memoryTx) InsertBooking(ctx context.Context, b Booking) (Booking, error) {
	tx.state.nextID++
	b.ID = tx.state.nextID
	tx.state.bookings[b.ID] = b
	return b, nil
}

func (tx *memoryTx) InsertBookingRoom(ctx context.Context, line BookingRoom) (BookingRoom, error) {
	tx.state.nextID++
	line.ID = tx.state.nextID
	tx.state.lines = append(tx.state.lines, line)
	return line, nil
}

func (r *memoryRepo) SearchAvailableRooms(ctx context.Context, from, to time.Time) ([]Room, error) {
	var out []Room
	for _, room := range r.state.rooms {
		if room.IsActive && !overlaps(r.state, room.ID, from, to) {
			out = append(out, room)
		}
	}
	return out, nil
}

func (r *memoryRepo) GetBooking(ctx context.Context, id int64) (Booking, error) {
	b, ok := r.state.bookings[id]
	if !ok {
		return Booking{}, ErrNotFound
	}
	for _, line := range r.state.lines {
		if line.BookingID == id {
			b.Rooms = append(b.Rooms, line)
		}
	}
	return b, nil
}

func (r *memoryRepo) ListBookings(ctx context.Context, filter ListFilter) ([]Booking, error) {
	var out []Booking
	for _, b := range r.state.bookings {
		out = append(out, b)
	}
	return out, nil
}

func (r *memoryRepo) UpdateStatus(ctx context.Context, id int64, next BookingStatus, allowedFrom ...BookingStatus) error {
	b, ok := r.state.bookings[id]
	if !ok {
		return shared.ErrInvalidStateTransition
	}
	for _, from := range allowedFrom {
		if b.Status == from {
			b.Status = next
			r.state.bookings[id] = b
			return nil
		}
	}
	return shared.ErrInvalidStateTransition
}

func (r *memoryRepo) CancelStalePending(ctx context.Context, before time.Time) ([]int64, error) {
	var ids []int64
	for id, b := range r.state.bookings {
		if b.Status == BookingStatusPending && !b.DateFrom.After(before) {
			b.Status = BookingStatusCancelled
			r.state.bookings[id] = b
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func TestCreateBookingPricesLines(t *testing.T) {
	repo := newMemoryRepo()
	repo.addRoom(1, "101", 30.0)
	repo.addRoom(2, "102", 30.0)
	svc := NewService(repo, nil)
	ctx := context.Background()

	// 12 nights crosses the long-stay threshold.
	b, err := svc.Create(ctx, CreateBookingInput{
		CustomerID: 7,
		DateFrom:   date("2024-01-01"),
		DateTo:     date("2024-01-13"),
		CatIDs:     []int64{10, 11},
		RoomIDs:    []int64{1, 2},
		ActorID:    7,
	})
	require.NoError(t, err)
	require.Equal(t, BookingStatusPending, b.Status)
	require.Len(t, b.Rooms, 2)
	for _, line := range b.Rooms {
		require.EqualValues(t, 12, line.Nights)
		require.InDelta(t, 10.0, line.DiscountPercent, 0.0001)
		require.InDelta(t, 324.0, line.LineTotal, 0.0001)
	}
	require.InDelta(t, 648.0, b.TotalAmount, 0.0001)
}

func TestCreateBookingShortStayNoDiscount(t *testing.T) {
	repo := newMemoryRepo()
	repo.addRoom(1, "101", 30.0)
	svc := NewService(repo, nil)

	b, err := svc.Create(context.Background(), CreateBookingInput{
		CustomerID: 7,
		DateFrom:   date("2024-01-01"),
		DateTo:     date("2024-01-06"),
		CatIDs:     []int64{10},
		RoomIDs:    []int64{1},
	})
	require.NoError(t, err)
	require.InDelta(t, 150.0, b.TotalAmount, 0.0001)
	require.Zero(t, b.Rooms[0].DiscountPercent)
}

func TestCreateBookingInvalidDateRange(t *testing.T) {
	repo := newMemoryRepo()
	repo.addRoom(1, "101", 30.0)
	svc := NewService(repo, nil)
	ctx := context.Background()

	for _, tc := range []struct{ from, to string }{
		{"2024-01-05", "2024-01-05"},
		{"2024-01-05", "2024-01-01"},
	} {
		_, err := svc.Create(ctx, CreateBookingInput{
			DateFrom: date(tc.from),
			DateTo:   date(tc.to),
			CatIDs:   []int64{10},
			RoomIDs:  []int64{1},
		})
		require.ErrorIs(t, err, ErrInvalidDateRange)
	}

	_, err := svc.SearchRooms(ctx, date("2024-01-05"), date("2024-01-05"))
	require.ErrorIs(t, err, ErrInvalidDateRange)
}

func TestCreateBookingMismatchedSelection(t *testing.T) {
	repo := newMemoryRepo()
	repo.addRoom(1, "101", 30.0)
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateBookingInput{
		DateFrom: date("2024-01-01"),
		DateTo:   date("2024-01-05"),
		CatIDs:   []int64{10, 11},
		RoomIDs:  []int64{1},
	})
	require.ErrorIs(t, err, ErrMismatchedSelection)

	_, err = svc.Create(ctx, CreateBookingInput{
		DateFrom: date("2024-01-01"),
		DateTo:   date("2024-01-05"),
	})
	require.ErrorIs(t, err, ErrMismatchedSelection)
}

func TestDuplicateRoomSelectionRejected(t *testing.T) {
	repo := newMemoryRepo()
	repo.addRoom(1, "101", 30.0)
	svc := NewService(repo, nil)

	_, err := svc.Create(context.Background(), CreateBookingInput{
		CustomerID: 5,
		DateFrom:   date("2024-01-10"),
		DateTo:     date("2024-01-15"),
		CatIDs:     []int64{10, 11},
		RoomIDs:    []int64{1, 1},
	})
	require.ErrorIs(t, err, ErrMismatchedSelection)
	require.Empty(t, repo.state.bookings)
	require.Empty(t, repo.state.lines)
}

// The overlap re-check reads booking_rooms rows, not the locked rooms row,
// so it only works if its snapshot postdates the lock wait. Read committed
// gives every statement a fresh snapshot; repeatable read would not.
func TestCreateTxSnapshotsPerStatement(t *testing.T) {
	require.Equal(t, pgx.ReadCommitted, createTxOptions.IsoLevel)
}

func TestOverlapHalfOpenIntervals(t *testing.T) {
	repo := newMemoryRepo()
	repo.addRoom(1, "101", 30.0)
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateBookingInput{
		CustomerID: 7,
		DateFrom:   date("2024-01-10"),
		DateTo:     date("2024-01-15"),
		CatIDs:     []int64{10},
		RoomIDs:    []int64{1},
	})
	require.NoError(t, err)

	// Ends exactly when the existing stay begins: no overlap.
	_, err = svc.Create(ctx, CreateBookingInput{
		CustomerID: 8,
		DateFrom:   date("2024-01-05"),
		DateTo:     date("2024-01-10"),
		CatIDs:     []int64{20},
		RoomIDs:    []int64{1},
	})
	require.NoError(t, err)

	// Starts inside the existing stay: conflict.
	_, err = svc.Create(ctx, CreateBookingInput{
		CustomerID: 9,
		DateFrom:   date("2024-01-12"),
		DateTo:     date("2024-01-20"),
		CatIDs:     []int64{30},
		RoomIDs:    []int64{1},
	})
	require.ErrorIs(t, err, ErrRoomUnavailable)
}

func TestCancelledBookingFreesRoom(t *testing.T) {
	repo := newMemoryRepo()
	repo.addRoom(1, "101", 30.0)
	svc := NewService(repo, nil)
	ctx := context.Background()

	b, err := svc.Create(ctx, CreateBookingInput{
		CustomerID: 7,
		DateFrom:   date("2024-01-10"),
		DateTo:     date("2024-01-15"),
		CatIDs:     []int64{10},
		RoomIDs:    []int64{1},
	})
	require.NoError(t, err)
	require.NoError(t, svc.Cancel(ctx, b.ID, 7))

	_, err = svc.Create(ctx, CreateBookingInput{
		CustomerID: 8,
		DateFrom:   date("2024-01-12"),
		DateTo:     date("2024-01-14"),
		CatIDs:     []int64{20},
		RoomIDs:    []int64{1},
	})
	require.NoError(t, err)
}

func TestPartialUnavailabilityAbortsWholeBooking(t *testing.T) {
	repo := newMemoryRepo()
	repo.addRoom(1, "101", 30.0)
	repo.addRoom(2, "102", 30.0)
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateBookingInput{
		CustomerID: 7,
		DateFrom:   date("2024-01-10"),
		DateTo:     date("2024-01-15"),
		CatIDs:     []int64{10},
		RoomIDs:    []int64{2},
	})
	require.NoError(t, err)

	// Room 1 is free but room 2 conflicts: nothing may be assigned.
	_, err = svc.Create(ctx, CreateBookingInput{
		CustomerID: 8,
		DateFrom:   date("2024-01-12"),
		DateTo:     date("2024-01-14"),
		CatIDs:     []int64{20, 21},
		RoomIDs:    []int64{1, 2},
	})
	require.ErrorIs(t, err, ErrRoomUnavailable)
	require.Len(t, repo.state.bookings, 1)
	require.Len(t, repo.state.lines, 1)

	rooms, err := svc.SearchRooms(ctx, date("2024-01-12"), date("2024-01-14"))
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	require.EqualValues(t, 1, rooms[0].ID)
}

func TestStatusTransitions(t *testing.T) {
	repo := newMemoryRepo()
	repo.addRoom(1, "101", 30.0)
	svc := NewService(repo, nil)
	ctx := context.Background()

	b, err := svc.Create(ctx, CreateBookingInput{
		CustomerID: 7,
		DateFrom:   date("2024-01-10"),
		DateTo:     date("2024-01-15"),
		CatIDs:     []int64{10},
		RoomIDs:    []int64{1},
	})
	require.NoError(t, err)

	// Complete requires CONFIRMED.
	require.ErrorIs(t, svc.Complete(ctx, b.ID, 1), shared.ErrInvalidStateTransition)

	require.NoError(t, svc.Confirm(ctx, b.ID, 1))
	require.NoError(t, svc.Complete(ctx, b.ID, 1))

	// Terminal states admit no further transitions.
	require.ErrorIs(t, svc.Confirm(ctx, b.ID, 1), shared.ErrInvalidStateTransition)
	require.ErrorIs(t, svc.Cancel(ctx, b.ID, 1), shared.ErrInvalidStateTransition)
}

func TestConfirmCancelledBookingRejected(t *testing.T) {
	repo := newMemoryRepo()
	repo.addRoom(1, "101", 30.0)
	svc := NewService(repo, nil)
	ctx := context.Background()

	b, err := svc.Create(ctx, CreateBookingInput{
		CustomerID: 7,
		DateFrom:   date("2024-01-10"),
		DateTo:     date("2024-01-15"),
		CatIDs:     []int64{10},
		RoomIDs:    []int64{1},
	})
	require.NoError(t, err)
	require.NoError(t, svc.Cancel(ctx, b.ID, 7))

	require.ErrorIs(t, svc.Confirm(ctx, b.ID, 1), shared.ErrInvalidStateTransition)
	got, err := svc.Get(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, BookingStatusCancelled, got.Status)
}

func TestInactiveRoomRejected(t *testing.T) {
	repo := newMemoryRepo()
	repo.addRoom(1, "101", 30.0)
	room := repo.state.rooms[1]
	room.IsActive = false
	repo.state.rooms[1] = room
	svc := NewService(repo, nil)

	_, err := svc.Create(context.Background(), CreateBookingInput{
		CustomerID: 7,
		DateFrom:   date("2024-01-10"),
		DateTo:     date("2024-01-15"),
		CatIDs:     []int64{10},
		RoomIDs:    []int64{1},
	})
	require.ErrorIs(t, err, ErrNotFound)
	require.Empty(t, repo.state.bookings)
}

func TestSweepStaleCancelsOnlyExpiredPending(t *testing.T) {
	repo := newMemoryRepo()
	repo.addRoom(1, "101", 30.0)
	repo.addRoom(2, "102", 30.0)
	svc := NewService(repo, nil)
	ctx := context.Background()

	stale, err := svc.Create(ctx, CreateBookingInput{
		CustomerID: 7,
		DateFrom:   date("2024-01-10"),
		DateTo:     date("2024-01-12"),
		CatIDs:     []int64{10},
		RoomIDs:    []int64{1},
	})
	require.NoError(t, err)

	confirmed, err := svc.Create(ctx, CreateBookingInput{
		CustomerID: 8,
		DateFrom:   date("2024-01-11"),
		DateTo:     date("2024-01-13"),
		CatIDs:     []int64{11},
		RoomIDs:    []int64{2},
	})
	require.NoError(t, err)
	require.NoError(t, svc.Confirm(ctx, confirmed.ID, 1))

	n, err := svc.SweepStale(ctx, date("2024-01-11"))
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, BookingStatusCancelled, repo.state.bookings[stale.ID].Status)
	require.Equal(t, BookingStatusConfirmed, repo.state.bookings[confirmed.ID].Status)
}
