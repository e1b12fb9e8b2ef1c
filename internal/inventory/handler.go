package inventory

import (
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

// Handler wires HTTP endpoints for the inventory module.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs the inventory handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireStaff())
		r.Get("/stock", h.handleGetStock)
		r.Get("/movements", h.handleListMovements)
		r.Post("/transfers", h.handleTransfer)
		r.Post("/restocks", h.handleRestock)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRole(shared.RoleAdmin))
		r.Get("/integrity", h.handleIntegrity)
	})
}

type transferRequest struct {
	WarehouseID int64  `json:"warehouse_id"`
	BranchID    int64  `json:"branch_id"`
	ProductID   int64  `json:"product_id"`
	Qty         int64  `json:"qty"`
	RequestID   string `json:"request_id,omitempty"`
}

type restockRequest struct {
	LocationID int64 `json:"location_id"`
	ProductID  int64 `json:"product_id"`
	Qty        int64 `json:"qty"`
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	transfer, err := h.service.Transfer(r.Context(), TransferInput{
		WarehouseID: req.WarehouseID,
		BranchID:    req.BranchID,
		ProductID:   req.ProductID,
		Qty:         req.Qty,
		ActorID:     actor.UserID,
		RequestID:   req.RequestID,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"id":           transfer.ID,
		"warehouse_id": transfer.WarehouseID,
		"branch_id":    transfer.BranchID,
		"product_id":   transfer.ProductID,
		"qty":          transfer.Qty,
	})
}

func (h *Handler) handleRestock(w http.ResponseWriter, r *http.Request) {
	var req restockRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	mv, err := h.service.Restock(r.Context(), RestockInput{
		LocationID: req.LocationID,
		ProductID:  req.ProductID,
		Qty:        req.Qty,
		ActorID:    actor.UserID,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"movement_id": mv.ID,
		"location_id": mv.LocationID,
		"product_id":  mv.ProductID,
		"qty":         mv.ChangeQty,
	})
}

func (h *Handler) handleGetStock(w http.ResponseWriter, r *http.Request) {
	locationID, _ := strconv.ParseInt(r.URL.Query().Get("location_id"), 10, 64)
	productID, _ := strconv.ParseInt(r.URL.Query().Get("product_id"), 10, 64)
	rec, err := h.service.GetStock(r.Context(), locationID, productID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"location_id":      rec.LocationID,
		"product_id":       rec.ProductID,
		"on_hand":          rec.OnHand,
		"min_qty":          rec.MinQty,
		"last_movement_at": rec.LastMovementAt,
	})
}

func (h *Handler) handleListMovements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := MovementFilter{Type: MovementType(q.Get("type"))}
	filter.LocationID, _ = strconv.ParseInt(q.Get("location_id"), 10, 64)
	filter.ProductID, _ = strconv.ParseInt(q.Get("product_id"), 10, 64)
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
		filter.To = t.Add(24*time.Hour - time.Nanosecond)
	}
	movements, err := h.service.ListMovements(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"movements": movements, "count": len(movements)})
}

func (h *Handler) handleIntegrity(w http.ResponseWriter, r *http.Request) {
	discrepancies, err := h.service.VerifyLedger(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"ok":            len(discrepancies) == 0,
		"discrepancies": discrepancies,
	})
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInsufficientStock):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Insufficient Stock", err.Error())
	case errors.Is(err, ErrStockRowMissing):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrSameLocation), errors.Is(err, ErrWrongLocationKind):
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	default:
		h.logger.Error("inventory request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
