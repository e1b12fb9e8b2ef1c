package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/pets-things/pets-things/internal/auth"
	"github.com/pets-things/pets-things/internal/booking"
	"github.com/pets-things/pets-things/internal/cats"
	"github.com/pets-things/pets-things/internal/inventory"
	"github.com/pets-things/pets-things/internal/masterdata/categories"
	"github.com/pets-things/pets-things/internal/masterdata/locations"
	"github.com/pets-things/pets-things/internal/masterdata/products"
	"github.com/pets-things/pets-things/internal/masterdata/rooms"
	"github.com/pets-things/pets-things/internal/masterdata/suppliers"
	"github.com/pets-things/pets-things/internal/observability"
	"github.com/pets-things/pets-things/internal/purchasing"
	"github.com/pets-things/pets-things/internal/reports"
	"github.com/pets-things/pets-things/internal/sales"
	"github.com/pets-things/pets-things/internal/shared"
	"github.com/pets-things/pets-things/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	Metrics        *observability.Metrics

	AuthHandler       *auth.Handler
	ProductHandler    *products.Handler
	CategoryHandler   *categories.Handler
	LocationHandler   *locations.Handler
	RoomHandler       *rooms.Handler
	SupplierHandler   *suppliers.Handler
	CatHandler        *cats.Handler
	InventoryHandler  *inventory.Handler
	SalesHandler      *sales.Handler
	PurchasingHandler *purchasing.Handler
	BookingHandler    *booking.Handler
	ReportHandler     *reports.Handler
	JobHandler        *jobs.Handler
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", params.ProductHandler.MountRoutes)
		r.Route("/categories", params.CategoryHandler.MountRoutes)
		r.Route("/locations", params.LocationHandler.MountRoutes)
		r.Route("/rooms", params.RoomHandler.MountRoutes)
		r.Route("/suppliers", params.SupplierHandler.MountRoutes)
		r.Route("/cats", params.CatHandler.MountRoutes)
		r.Route("/inventory", params.InventoryHandler.MountRoutes)
		r.Route("/sales", params.SalesHandler.MountRoutes)
		r.Route("/purchases", params.PurchasingHandler.MountRoutes)
		r.Route("/bookings", params.BookingHandler.MountRoutes)
		r.Route("/reports", params.ReportHandler.MountRoutes)
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
