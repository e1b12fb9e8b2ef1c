package reports

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/pets-things/pets-things/internal/platform/httpx"
	"github.com/pets-things/pets-things/internal/rbac"
	"github.com/pets-things/pets-things/internal/shared"
)

const dashboardWindowDays = 7

// Handler wires HTTP endpoints for the reporting module.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	rateLimit func(http.Handler) http.Handler
}

// NewHandler constructs the reports handler. CSV exports are rate
// limited per actor since they bypass the JSON cache path.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	limiter := httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
		if actor, ok := shared.ActorFromContext(r.Context()); ok {
			return "user:" + strconv.FormatInt(actor.UserID, 10), nil
		}
		return httprate.KeyByIP(r)
	}))
	return &Handler{logger: logger, service: service, rbac: rbac, rateLimit: limiter}
}

// MountRoutes registers report routes. All endpoints are staff-only.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireStaff())
		r.Get("/dashboard", h.handleDashboard)
		r.Get("/stock", h.handleStock)
		r.Get("/stock/low", h.handleLowStock)
		r.Get("/sales", h.handleSalesSummary)
		r.Get("/occupancy", h.handleOccupancy)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireStaff())
		r.Use(h.rateLimit)
		r.Get("/stock/export.csv", h.handleStockCSV)
		r.Get("/sales/export.csv", h.handleSalesCSV)
		r.Get("/occupancy/export.csv", h.handleOccupancyCSV)
	})
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	filter, err := parseWindow(r, dashboardWindowDays)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	dash, err := h.service.Dashboard(r.Context(), DashboardFilter{From: filter.From, To: filter.To})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dash)
}

func (h *Handler) handleStock(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.StockLevels(r.Context(), stockFilter(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"rows": rows, "count": len(rows)})
}

func (h *Handler) handleLowStock(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.LowStock(r.Context(), stockFilter(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"rows": rows, "count": len(rows)})
}

func (h *Handler) handleSalesSummary(w http.ResponseWriter, r *http.Request) {
	filter, err := salesFilter(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	rows, err := h.service.SalesSummary(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"rows": rows, "count": len(rows)})
}

func (h *Handler) handleOccupancy(w http.ResponseWriter, r *http.Request) {
	window, err := parseWindow(r, dashboardWindowDays)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	rep, err := h.service.Occupancy(r.Context(), OccupancyFilter{From: window.From, To: window.To})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rep)
}

func (h *Handler) handleStockCSV(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.StockLevels(r.Context(), stockFilter(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeCSVHeaders(w, "stock_levels.csv")
	if err := WriteStockCSV(w, rows); err != nil {
		h.logger.Error("stock csv export failed", slog.Any("error", err))
	}
}

func (h *Handler) handleSalesCSV(w http.ResponseWriter, r *http.Request) {
	filter, err := salesFilter(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	rows, err := h.service.SalesSummary(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeCSVHeaders(w, "sales_summary.csv")
	if err := WriteSalesSummaryCSV(w, rows); err != nil {
		h.logger.Error("sales csv export failed", slog.Any("error", err))
	}
}

func (h *Handler) handleOccupancyCSV(w http.ResponseWriter, r *http.Request) {
	window, err := parseWindow(r, dashboardWindowDays)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	rep, err := h.service.Occupancy(r.Context(), OccupancyFilter{From: window.From, To: window.To})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeCSVHeaders(w, "occupancy.csv")
	if err := WriteOccupancyCSV(w, rep); err != nil {
		h.logger.Error("occupancy csv export failed", slog.Any("error", err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidRange):
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
	default:
		h.logger.Error("report request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func writeCSVHeaders(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}

func stockFilter(r *http.Request) StockFilter {
	locationID, _ := strconv.ParseInt(r.URL.Query().Get("location_id"), 10, 64)
	return StockFilter{LocationID: locationID}
}

// salesFilter requires an explicit from/to pair; summaries over an
// unbounded window are never wanted.
func salesFilter(r *http.Request) (SalesFilter, error) {
	q := r.URL.Query()
	from, err := time.Parse("2006-01-02", q.Get("from"))
	if err != nil {
		return SalesFilter{}, ErrInvalidRange
	}
	to, err := time.Parse("2006-01-02", q.Get("to"))
	if err != nil {
		return SalesFilter{}, ErrInvalidRange
	}
	branchID, _ := strconv.ParseInt(q.Get("branch_id"), 10, 64)
	return SalesFilter{From: from, To: to, BranchID: branchID}, nil
}

// parseWindow reads from/to, defaulting to a window of defaultDays
// starting today when both are absent.
func parseWindow(r *http.Request, defaultDays int) (OccupancyFilter, error) {
	q := r.URL.Query()
	if q.Get("from") == "" && q.Get("to") == "" {
		from := time.Now().UTC().Truncate(24 * time.Hour)
		return OccupancyFilter{From: from, To: from.AddDate(0, 0, defaultDays)}, nil
	}
	from, err := time.Parse("2006-01-02", q.Get("from"))
	if err != nil {
		return OccupancyFilter{}, ErrInvalidRange
	}
	to, err := time.Parse("2006-01-02", q.Get("to"))
	if err != nil {
		return OccupancyFilter{}, ErrInvalidRange
	}
	return OccupancyFilter{From: from, To: to}, nil
}
