package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/stockroom-hq/stockroom/internal/audit"
	"github.com/stockroom-hq/stockroom/internal/documents"
	"github.com/stockroom-hq/stockroom/internal/ledger"
	"github.com/stockroom-hq/stockroom/internal/masterdata"
	"github.com/stockroom-hq/stockroom/internal/observability"
	"github.com/stockroom-hq/stockroom/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	Metrics           *observability.Metrics
	DocumentsHandler  *documents.Handler
	StockHandler      *ledger.Handler
	MasterDataHandler *masterdata.Handler
	AuditHandler      *audit.Handler
	JobHandler        *jobs.Handler
}

// NewRouter constructs the chi.Router. Everything under /api requires the
// gateway identity headers; health and job probes stay open.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)
	r.Use(params.Metrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(IdentityMiddleware(params.Logger))

		r.Route("/documents", params.DocumentsHandler.MountRoutes)
		r.Route("/stock", params.StockHandler.MountRoutes)
		params.MasterDataHandler.MountRoutes(r)
		if params.AuditHandler != nil {
			r.Route("/audit", params.AuditHandler.MountRoutes)
		}
	})

	return r
}
