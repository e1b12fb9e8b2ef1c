package booking

import (
	"errors"
	"time"
)

// BookingStatus is the booking lifecycle state. Transitions move strictly
// forward: PENDING -> CONFIRMED -> COMPLETED, with CANCELLED reachable from
// PENDING or CONFIRMED. CANCELLED and COMPLETED are terminal.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
)

// Booking is a room reservation header. Dates are half-open: the stay covers
// [DateFrom, DateTo), so a booking ending on a day does not collide with one
// starting that same day.
type Booking struct {
	ID          int64         `json:"id"`
	CustomerID  int64         `json:"customer_id"`
	DateFrom    time.Time     `json:"date_from"`
	DateTo      time.Time     `json:"date_to"`
	Status      BookingStatus `json:"status"`
	TotalAmount float64       `json:"total_amount"`
	CreatedBy   int64         `json:"created_by"`
	CreatedAt   time.Time     `json:"created_at"`
	Rooms       []BookingRoom `json:"rooms,omitempty"`
}

// BookingRoom assigns one cat to one room for the booking's date range,
// carrying the price snapshot computed at creation time.
type BookingRoom struct {
	ID              int64   `json:"id"`
	BookingID       int64   `json:"booking_id"`
	RoomID          int64   `json:"room_id"`
	CatID           int64   `json:"cat_id"`
	Nights          int64   `json:"nights"`
	PricePerNight   float64 `json:"price_per_night"`
	DiscountPercent float64 `json:"discount_percent"`
	LineTotal       float64 `json:"line_total"`
}

// Room is the view of a hotel room the booking engine needs.
type Room struct {
	ID            int64   `json:"id"`
	Number        string  `json:"number"`
	RoomType      string  `json:"room_type"`
	PricePerNight float64 `json:"price_per_night"`
	IsActive      bool    `json:"is_active"`
}

// CreateBookingInput creates a booking assigning cats to rooms positionally:
// CatIDs[i] stays in RoomIDs[i]. Both lists must be the same length.
type CreateBookingInput struct {
	CustomerID int64
	DateFrom   time.Time
	DateTo     time.Time
	CatIDs     []int64
	RoomIDs    []int64
	ActorID    int64
}

// ListFilter narrows booking listings to a fixed set of predicates.
type ListFilter struct {
	CustomerID int64
	Status     BookingStatus
	From       time.Time
	To         time.Time
	Limit      int
}

// longStayDiscountNights is the stay length above which the flat discount
// applies.
const longStayDiscountNights = 10

// longStayDiscountPercent is the flat discount for long stays.
const longStayDiscountPercent = 10.0

// Nights returns the stay length in whole days for the half-open interval
// [from, to). Zero or negative means the range is invalid.
func Nights(from, to time.Time) int64 {
	return int64(to.Sub(from) / (24 * time.Hour))
}

// DiscountPercent returns the flat long-stay discount for the given number
// of nights.
func DiscountPercent(nights int64) float64 {
	if nights > longStayDiscountNights {
		return longStayDiscountPercent
	}
	return 0
}

// LineTotal prices one room line: nights times the nightly rate, less the
// long-stay discount.
func LineTotal(nights int64, pricePerNight float64) float64 {
	discount := DiscountPercent(nights)
	return float64(nights) * pricePerNight * (1 - discount/100)
}

var (
	ErrNotFound            = errors.New("booking: record not found")
	ErrInvalidDateRange    = errors.New("booking: date_to must be after date_from")
	ErrRoomUnavailable     = errors.New("booking: room is not available for the requested dates")
	ErrMismatchedSelection = errors.New("booking: cats and rooms must pair up one to one")
)
