package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sfv-tech/sfv-ops/internal/materials"
	"github.com/sfv-tech/sfv-ops/internal/observability"
	"github.com/sfv-tech/sfv-ops/internal/platform/httpx"
	"github.com/sfv-tech/sfv-ops/internal/quotations"
	"github.com/sfv-tech/sfv-ops/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	Pool              *pgxpool.Pool
	Actors            ActorResolver
	Metrics           *observability.Metrics
	QuotationsHandler *quotations.Handler
	MaterialsHandler  *materials.Handler
	UsersHandler      *users.Handler
}

// NewRouter assembles the chi router with the full middleware chain.
// Health and metrics endpoints bypass identity resolution.
func NewRouter(p RouterParams) chi.Router {
	r := chi.NewRouter()

	mwCfg := MiddlewareConfig{Logger: p.Logger, Config: p.Config, Actors: p.Actors, Metrics: p.Metrics}
	for _, mw := range MiddlewareStack(mwCfg) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if p.Pool != nil {
			if err := p.Pool.Ping(req.Context()); err != nil {
				httpx.Problem(w, http.StatusServiceUnavailable, "Unhealthy", "database unreachable")
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if p.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", p.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(IdentityMiddleware(mwCfg))
		r.Route("/quotations", p.QuotationsHandler.MountRoutes)
		r.Route("/materials", p.MaterialsHandler.MountRoutes)
		r.Route("/users", p.UsersHandler.MountRoutes)
	})

	return r
}
