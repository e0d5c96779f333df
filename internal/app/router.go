package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/factora-erp/factora/internal/documents"
	"github.com/factora-erp/factora/internal/ledger"
	"github.com/factora-erp/factora/internal/ledger/accounts"
	"github.com/factora-erp/factora/internal/numbering"
	"github.com/factora-erp/factora/internal/observability"
	"github.com/factora-erp/factora/internal/party"
	"github.com/factora-erp/factora/internal/stock"
	"github.com/factora-erp/factora/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	DocumentsHandler *documents.Handler
	StockHandler     *stock.Handler
	LedgerHandler    *ledger.Handler
	AccountsHandler  *accounts.Handler
	PartyHandler     *party.Handler
	NumberingHandler *numbering.Handler
	JobsHandler      *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(TenantMiddleware)
		r.Route("/documents", params.DocumentsHandler.MountRoutes)
		r.Route("/stock", params.StockHandler.MountRoutes)
		r.Route("/ledger", params.LedgerHandler.MountRoutes)
		r.Route("/accounts", params.AccountsHandler.MountRoutes)
		r.Route("/parties", params.PartyHandler.MountRoutes)
		r.Route("/numbering", params.NumberingHandler.MountRoutes)
	})

	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}

	return r
}
