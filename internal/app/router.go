package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/procureflow/procureflow/internal/budget"
	"github.com/procureflow/procureflow/internal/procurement"
	"github.com/procureflow/procureflow/internal/supplier"
	"github.com/procureflow/procureflow/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	BudgetHandler      *budget.Handler
	SupplierHandler    *supplier.Handler
	ProcurementHandler *procurement.Handler
	JobHandler         *jobs.Handler
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Everything below requires an explicit tenant scope.
	r.Group(func(r chi.Router) {
		r.Use(ScopeMiddleware(params.Logger))
		if params.BudgetHandler != nil {
			r.Route("/budgets", params.BudgetHandler.MountRoutes)
		}
		if params.SupplierHandler != nil {
			r.Route("/suppliers", params.SupplierHandler.MountRoutes)
		}
		if params.ProcurementHandler != nil {
			r.Route("/requisitions", params.ProcurementHandler.MountRoutes)
			r.Route("/orders", params.ProcurementHandler.MountOrderRoutes)
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
