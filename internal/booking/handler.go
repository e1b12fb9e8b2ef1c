package booking

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pets-things/pets-things/internal/platform/httpx"
	"github.com/pets-things/pets-things/internal/rbac"
	"github.com/pets-things/pets-things/internal/shared"
)

// Handler wires HTTP endpoints for the booking module.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs the booking handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers booking routes. Customers may search, create and
// cancel their own bookings; confirming and completing a stay is staff work.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAuthenticated())
		r.Get("/rooms/available", h.handleSearchRooms)
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{bookingID}", h.handleGet)
		r.Post("/{bookingID}/cancel", h.handleCancel)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireStaff())
		r.Post("/{bookingID}/confirm", h.handleConfirm)
		r.Post("/{bookingID}/complete", h.handleComplete)
	})
}

type createBookingRequest struct {
	CustomerID int64   `json:"customer_id,omitempty"`
	DateFrom   string  `json:"date_from"`
	DateTo     string  `json:"date_to"`
	CatIDs     []int64 `json:"cat_ids"`
	RoomIDs    []int64 `json:"room_ids"`
}

func (h *Handler) handleSearchRooms(w http.ResponseWriter, r *http.Request) {
	from, err1 := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	to, err2 := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if err1 != nil || err2 != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "from and to must be YYYY-MM-DD dates")
		return
	}
	rooms, err := h.service.SearchRooms(r.Context(), from, to)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"rooms": rooms, "count": len(rooms)})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	from, err1 := time.Parse("2006-01-02", req.DateFrom)
	to, err2 := time.Parse("2006-01-02", req.DateTo)
	if err1 != nil || err2 != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "date_from and date_to must be YYYY-MM-DD dates")
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	customerID := req.CustomerID
	if !actor.IsStaff() || customerID == 0 {
		customerID = actor.UserID
	}
	b, err := h.service.Create(r.Context(), CreateBookingInput{
		CustomerID: customerID,
		DateFrom:   from,
		DateTo:     to,
		CatIDs:     req.CatIDs,
		RoomIDs:    req.RoomIDs,
		ActorID:    actor.UserID,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, b)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "bookingID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid booking id")
		return
	}
	b, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	if !actor.IsStaff() && b.CustomerID != actor.UserID {
		httpx.Problem(w, http.StatusNotFound, "Not Found", ErrNotFound.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{Status: BookingStatus(q.Get("status"))}
	filter.CustomerID, _ = strconv.ParseInt(q.Get("customer_id"), 10, 64)
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	if from := q.Get("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid from date")
			return
		}
		filter.From = t
	}
	if to := q.Get("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid to date")
			return
		}
		filter.To = t
	}
	actor, _ := shared.ActorFromContext(r.Context())
	if !actor.IsStaff() {
		filter.CustomerID = actor.UserID
	}
	bookings, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"bookings": bookings, "count": len(bookings)})
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.service.Confirm)
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.service.Complete)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "bookingID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid booking id")
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	if !actor.IsStaff() {
		b, err := h.service.Get(r.Context(), id)
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		if b.CustomerID != actor.UserID {
			httpx.Problem(w, http.StatusNotFound, "Not Found", ErrNotFound.Error())
			return
		}
	}
	if err := h.service.Cancel(r.Context(), id, actor.UserID); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id, actorID int64) error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "bookingID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid booking id")
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	if err := fn(r.Context(), id, actor.UserID); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidDateRange):
		httpx.Problem(w, http.StatusBadRequest, "Invalid Date Range", err.Error())
	case errors.Is(err, ErrMismatchedSelection):
		httpx.Problem(w, http.StatusBadRequest, "Mismatched Selection", err.Error())
	case errors.Is(err, ErrRoomUnavailable):
		httpx.Problem(w, http.StatusConflict, "Room Unavailable", err.Error())
	case errors.Is(err, shared.ErrInvalidStateTransition):
		httpx.Problem(w, http.StatusConflict, "Invalid State", err.Error())
	default:
		h.logger.Error("booking request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
