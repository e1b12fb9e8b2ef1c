package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/pets-things/pets-things/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	SearchAvailableRooms(ctx context.Context, from, to time.Time) ([]Room, error)
	GetBooking(ctx context.Context, id int64) (Booking, error)
	ListBookings(ctx context.Context, filter ListFilter) ([]Booking, error)
	UpdateStatus(ctx context.Context, id int64, next BookingStatus, allowedFrom ...BookingStatus) error
	CancelStalePending(ctx context.Context, before time.Time) ([]int64, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates room reservations.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// SearchRooms lists rooms free for the whole of [from, to).
func (s *Service) SearchRooms(ctx context.Context, from, to time.Time) ([]Room, error) {
	if Nights(from, to) <= 0 {
		return nil, ErrInvalidDateRange
	}
	return s.repo.SearchAvailableRooms(ctx, from, to)
}

// Create reserves rooms for cats over [DateFrom, DateTo). The availability a
// caller saw during search is only advisory: every selected room is locked
// and re-checked for overlap inside the creation transaction, so of two
// concurrent requests for the same room exactly one commits and the other
// fails with ErrRoomUnavailable. Any failing room aborts the whole booking.
// A selection naming the same room twice is rejected up front.
func (s *Service) Create(ctx context.Context, input CreateBookingInput) (Booking, error) {
	nights := Nights(input.DateFrom, input.DateTo)
	if nights <= 0 {
		return Booking{}, ErrInvalidDateRange
	}
	if len(input.RoomIDs) == 0 || len(input.CatIDs) != len(input.RoomIDs) {
		return Booking{}, ErrMismatchedSelection
	}
	seen := make(map[int64]struct{}, len(input.RoomIDs))
	for _, roomID := range input.RoomIDs {
		if _, dup := seen[roomID]; dup {
			return Booking{}, ErrMismatchedSelection
		}
		seen[roomID] = struct{}{}
	}

	var created Booking
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		lines := make([]BookingRoom, 0, len(input.RoomIDs))
		var total float64
		for i, roomID := range input.RoomIDs {
			room, err := tx.RoomForUpdate(ctx, roomID)
			if err != nil {
				return err
			}
			taken, err := tx.HasOverlap(ctx, roomID, input.DateFrom, input.DateTo)
			if err != nil {
				return err
			}
			if taken {
				return ErrRoomUnavailable
			}
			line := BookingRoom{
				RoomID:          room.ID,
				CatID:           input.CatIDs[i],
				Nights:          nights,
				PricePerNight:   room.PricePerNight,
				DiscountPercent: DiscountPercent(nights),
				LineTotal:       LineTotal(nights, room.PricePerNight),
			}
			total += line.LineTotal
			lines = append(lines, line)
		}

		b, err := tx.InsertBooking(ctx, Booking{
			CustomerID:  input.CustomerID,
			DateFrom:    input.DateFrom,
			DateTo:      input.DateTo,
			Status:      BookingStatusPending,
			TotalAmount: total,
			CreatedBy:   input.ActorID,
		})
		if err != nil {
			return err
		}
		for _, line := range lines {
			line.BookingID = b.ID
			inserted, err := tx.InsertBookingRoom(ctx, line)
			if err != nil {
				return err
			}
			b.Rooms = append(b.Rooms, inserted)
		}
		created = b
		return nil
	})
	if err != nil {
		return Booking{}, err
	}

	s.recordAudit(ctx, input.ActorID, "booking:create", created.ID, map[string]any{
		"customer_id": created.CustomerID,
		"rooms":       len(created.Rooms),
		"total":       created.TotalAmount,
	})
	return created, nil
}

// Confirm moves a PENDING booking to CONFIRMED.
func (s *Service) Confirm(ctx context.Context, id, actorID int64) error {
	if err := s.repo.UpdateStatus(ctx, id, BookingStatusConfirmed, BookingStatusPending); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "booking:confirm", id, nil)
	return nil
}

// Cancel moves a PENDING or CONFIRMED booking to CANCELLED, freeing its
// rooms for the dates.
func (s *Service) Cancel(ctx context.Context, id, actorID int64) error {
	if err := s.repo.UpdateStatus(ctx, id, BookingStatusCancelled, BookingStatusPending, BookingStatusConfirmed); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "booking:cancel", id, nil)
	return nil
}

// Complete moves a CONFIRMED booking to COMPLETED at the end of the stay.
func (s *Service) Complete(ctx context.Context, id, actorID int64) error {
	if err := s.repo.UpdateStatus(ctx, id, BookingStatusCompleted, BookingStatusConfirmed); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "booking:complete", id, nil)
	return nil
}

// SweepStale cancels bookings left PENDING past their start date. It
// returns how many bookings were cancelled; the worker runs it on a
// schedule so abandoned reservations stop blocking availability.
func (s *Service) SweepStale(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.repo.CancelStalePending(ctx, now)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		s.recordAudit(ctx, 0, "booking:sweep", id, nil)
	}
	return len(ids), nil
}

// Get loads a booking with its room lines.
func (s *Service) Get(ctx context.Context, id int64) (Booking, error) {
	return s.repo.GetBooking(ctx, id)
}

// List lists bookings matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Booking, error) {
	return s.repo.ListBookings(ctx, filter)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, bookingID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "bookings",
		EntityID: fmt.Sprintf("%d", bookingID),
		Meta:     meta,
	})
}
