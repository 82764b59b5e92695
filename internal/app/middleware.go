package app

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/sfv-tech/sfv-ops/internal/observability"
	"github.com/sfv-tech/sfv-ops/internal/platform/httpx"
	"github.com/sfv-tech/sfv-ops/internal/shared"
)

// ActorResolver resolves an authenticated user id to an Actor. Unknown or
// inactive users resolve to an error.
type ActorResolver interface {
	ResolveActor(ctx context.Context, id int64) (shared.Actor, error)
}

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger  *slog.Logger
	Config  *Config
	Actors  ActorResolver
	Metrics *observability.Metrics
}

// identityHeader carries the authenticated user id set by the gateway.
// Authentication itself happens upstream; this service only resolves the id
// to a role-bearing actor.
const identityHeader = "X-User-Id"

// IdentityMiddleware attaches the resolved actor to the request context.
// Requests without a resolvable identity are rejected with 401.
func IdentityMiddleware(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(identityHeader)
			if raw == "" {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			actor, err := cfg.Actors.ResolveActor(r.Context(), id)
			if err != nil {
				cfg.Logger.Warn("identity resolution failed", slog.Int64("user_id", id), slog.Any("error", err))
				httpx.RespondError(w, err)
				return
			}
			ctx := shared.ContextWithActor(r.Context(), actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// MiddlewareStack installs the shared middleware chain.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		FeaturePolicy:         "none",
		ContentSecurityPolicy: "default-src 'self'",
		SSLRedirect:           cfg.Config != nil && cfg.Config.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	})

	timeout := 30 * time.Second
	if cfg.Config != nil && cfg.Config.AppRequestTimeout > 0 {
		timeout = cfg.Config.AppRequestTimeout
	}

	middlewares := []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Timeout(timeout),
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := secureMiddleware.Process(w, r); err != nil {
					cfg.Logger.Warn("secure headers blocked request", slog.Any("error", err))
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				next.ServeHTTP(w, r)
			})
		},
		middleware.Compress(5),
		httprate.Limit(60, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)),
	}
	if cfg.Metrics != nil {
		middlewares = append(middlewares, func(next http.Handler) http.Handler {
			return cfg.Metrics.Middleware(next)
		})
	}
	return middlewares
}
