package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/unrolled/secure"

	"github.com/stockroom-hq/stockroom/internal/platform/httpx"
	"github.com/stockroom-hq/stockroom/internal/shared"
)

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger *slog.Logger
	Config *Config
}

// IdentityMiddleware resolves the tenant and actor from the gateway headers.
// The API trusts the gateway to have authenticated the caller; requests
// without a valid tenant are rejected before they reach any handler.
func IdentityMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID, err := uuid.Parse(r.Header.Get("X-Tenant-ID"))
			if err != nil {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing or invalid tenant")
				return
			}
			actorID, err := uuid.Parse(r.Header.Get("X-Actor-ID"))
			if err != nil {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing or invalid actor")
				return
			}
			ident := shared.Identity{TenantID: tenantID, ActorID: actorID}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithIdentity(r.Context(), ident)))
		})
	}
}

// MiddlewareStack installs the outer middleware chain.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		SSLRedirect:        cfg.Config != nil && cfg.Config.IsProduction(),
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
	})

	timeout := 30 * time.Second
	if cfg.Config != nil && cfg.Config.AppRequestTimeout > 0 {
		timeout = cfg.Config.AppRequestTimeout
	}
	rateLimit := 120
	if cfg.Config != nil && cfg.Config.RateLimit > 0 {
		rateLimit = cfg.Config.RateLimit
	}

	return []func(http.Handler) http.Handler{
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
		httprate.Limit(rateLimit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)),
	}
}
